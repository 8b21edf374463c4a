package eventbus

import (
	"fmt"
	"os"
	"strconv"
)

// GetBrokers returns Kafka bootstrap servers from env KAFKA_BOOTSTRAP_SERVERS
func GetBrokers() (string, error) {
	v := os.Getenv("KAFKA_BOOTSTRAP_SERVERS")
	if v == "" {
		return "", fmt.Errorf("KAFKA_BOOTSTRAP_SERVERS environment variable is required")
	}
	return v, nil
}

// GetGroupID returns consumer group id from env KAFKA_GROUP_ID, falling back to def.
func GetGroupID(def string) string {
	if v := os.Getenv("KAFKA_GROUP_ID"); v != "" {
		return v
	}
	return def
}

// kafkaMessageMaxBytes 는 KAFKA_MESSAGE_MAX_BYTES 가 양수일 때만 값을 돌려준다.
func kafkaMessageMaxBytes() (int, bool) {
	v := os.Getenv("KAFKA_MESSAGE_MAX_BYTES")
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}
