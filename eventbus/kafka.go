package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"

	"xinji/config"
)

// KafkaEventBus는 confluent-kafka-go 기반 EventBus 구현체입니다.
// API 가 발행하고 processor 가 소비한다.
type KafkaEventBus struct {
	Producer *kafka.Producer
	Brokers  string
}

func NewKafkaEventBus(brokers string) (*KafkaEventBus, error) {
	cfg := kafka.ConfigMap{
		"bootstrap.servers": brokers,
		"acks":              "all",
		"retries":           5,
	}
	if n, ok := kafkaMessageMaxBytes(); ok {
		cfg["message.max.bytes"] = n
	}
	p, err := kafka.NewProducer(&cfg)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}

	// 전달 보고서 처리
	go func() {
		for e := range p.Events() {
			switch ev := e.(type) {
			case *kafka.Message:
				if ev.TopicPartition.Error != nil {
					config.Logger.Errorf("kafka delivery failed %v: %v", ev.TopicPartition, ev.TopicPartition.Error)
				}
			case kafka.Error:
				config.Logger.Errorf("kafka error: %v", ev)
			}
		}
	}()

	return &KafkaEventBus{Producer: p, Brokers: brokers}, nil
}

func (k *KafkaEventBus) Close() {
	if k.Producer == nil {
		return
	}
	if remaining := k.Producer.Flush(5000); remaining > 0 {
		config.Logger.Warnf("kafka producer closed with %d unflushed messages", remaining)
	}
	k.Producer.Close()
	config.Logger.Info("kafka producer closed")
}

// Publish 는 전달 보고서를 받을 때까지 기다린다.
func (k *KafkaEventBus) Publish(ctx context.Context, topic string, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	deliveryChan := make(chan kafka.Event, 1)
	err = k.Producer.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &topic, Partition: kafka.PartitionAny},
		Value:          data,
		Key:            []byte(event.ID),
	}, deliveryChan)
	if err != nil {
		return fmt.Errorf("produce to %s: %w", topic, err)
	}

	select {
	case ev := <-deliveryChan:
		if m, ok := ev.(*kafka.Message); ok && m.TopicPartition.Error != nil {
			return fmt.Errorf("deliver to %s: %w", topic, m.TopicPartition.Error)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (k *KafkaEventBus) newConsumer(groupID string) (*kafka.Consumer, error) {
	return kafka.NewConsumer(&kafka.ConfigMap{
		"bootstrap.servers":             k.Brokers,
		"group.id":                      groupID,
		"auto.offset.reset":             "earliest",
		"enable.auto.commit":            false, // 재시도/DLQ 발행이 끝난 뒤에만 커밋
		"partition.assignment.strategy": "range",
	})
}

// Subscribe 는 기본 토픽을 소비한다. 실패한 이벤트는 재시도 토픽 또는 DLQ 로 보낸 뒤 커밋한다.
func (k *KafkaEventBus) Subscribe(ctx context.Context, groupID string, topic Topic, handler EventHandler) error {
	c, err := k.newConsumer(groupID)
	if err != nil {
		return fmt.Errorf("create kafka consumer: %w", err)
	}
	defer c.Close()

	if err := c.SubscribeTopics([]string{topic.Base()}, nil); err != nil {
		return fmt.Errorf("subscribe %s: %w", topic.Base(), err)
	}
	config.Logger.Infof("consumer %s started on %s", groupID, topic.Base())

	for {
		select {
		case <-ctx.Done():
			config.Logger.Infof("consumer %s stopping", groupID)
			return ctx.Err()
		default:
		}

		msg, err := c.ReadMessage(100 * time.Millisecond)
		if err != nil {
			var kerr kafka.Error
			if errors.As(err, &kerr) && kerr.IsFatal() {
				return fmt.Errorf("consumer %s fatal: %w", groupID, err)
			}
			continue
		}

		var evt Event
		if err := json.Unmarshal(msg.Value, &evt); err != nil {
			config.Logger.Errorf("skip malformed event on %s: %v", *msg.TopicPartition.Topic, err)
			c.CommitMessage(msg)
			continue
		}

		if evt.Retry > 0 {
			config.InfoWithFields("event retry started", config.Fields{"task_id": evt.ID, "retry": evt.Retry, "max_retry": evt.MaxRetry})
		}
		if herr := handler(ctx, evt); herr != nil {
			target, routed, dead := nextHop(topic, evt, herr)
			if dead {
				config.ErrorWithFields("event moved to dlq", config.Fields{"task_id": evt.ID, "topic": target, "error": herr.Error()})
			} else {
				config.WarnWithFields("event scheduled for retry", config.Fields{"task_id": evt.ID, "topic": target, "retry": routed.Retry})
			}
			if perr := k.Publish(ctx, target, routed); perr != nil {
				// 커밋하지 않으면 같은 메시지가 다시 전달된다.
				config.Logger.Errorf("publish %s failed, offset not committed: %v", target, perr)
				continue
			}
		}

		if _, err := c.CommitMessage(msg); err != nil {
			config.Logger.Errorf("commit offset: %v", err)
		}
	}
}

// StartRetryReinjector 는 재시도 토픽의 메시지를 지연 시간이 지난 뒤 기본 토픽으로 재발행한다.
func (k *KafkaEventBus) StartRetryReinjector(ctx context.Context, groupID string, topic Topic) error {
	c, err := k.newConsumer(groupID)
	if err != nil {
		return fmt.Errorf("create retry consumer: %w", err)
	}
	defer c.Close()

	retryTopics := topic.GetRetryTopics()
	if err := c.SubscribeTopics(retryTopics, nil); err != nil {
		return fmt.Errorf("subscribe retry topics: %w", err)
	}
	config.Logger.Infof("retry reinjector %s started on %s", groupID, strings.Join(retryTopics, ", "))

	for {
		select {
		case <-ctx.Done():
			config.Logger.Infof("retry reinjector %s stopping", groupID)
			return ctx.Err()
		default:
		}

		msg, err := c.ReadMessage(100 * time.Millisecond)
		if err != nil {
			var kerr kafka.Error
			if errors.As(err, &kerr) {
				if kerr.Code() == kafka.ErrTimedOut {
					continue
				}
				if kerr.IsFatal() {
					return fmt.Errorf("retry reinjector fatal: %w", err)
				}
			}
			config.Logger.Errorf("retry reinjector read: %v", err)
			time.Sleep(500 * time.Millisecond)
			continue
		}

		topicName := *msg.TopicPartition.Topic
		delay, ok := ParseRetryDelayFromTopicName(topicName)
		if !ok {
			config.Logger.Errorf("unknown retry topic %s, skipping", topicName)
			c.CommitMessage(msg)
			continue
		}

		if wait := time.Until(msg.Timestamp.Add(delay)); wait > 0 {
			// 컨슈머 전체가 멈추지 않도록 짧게만 기다린 뒤 같은 오프셋을 다시 읽는다.
			time.Sleep(min(max(wait, 50*time.Millisecond), 500*time.Millisecond))
			c.Seek(msg.TopicPartition, 0)
			continue
		}

		var evt Event
		if err := json.Unmarshal(msg.Value, &evt); err != nil {
			config.Logger.Errorf("skip malformed retry event on %s: %v", topicName, err)
			c.CommitMessage(msg)
			continue
		}

		if err := k.Publish(ctx, topic.Base(), evt); err != nil {
			config.Logger.Errorf("reinject %s failed: %v", evt.ID, err)
			continue
		}
		config.InfoWithFields("event reinjected", config.Fields{"task_id": evt.ID, "from": topicName, "retry": evt.Retry})

		if _, err := c.CommitMessage(msg); err != nil {
			config.Logger.Errorf("commit retry offset: %v", err)
		}
	}
}
