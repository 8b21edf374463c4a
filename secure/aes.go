package secure

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
)

const blockSize = aes.BlockSize

var ErrInvalidCiphertext = errors.New("invalid ciphertext")

// Cipher 는 일기 본문과 전화번호를 저장 전에 암호화한다.
// AES-128-CBC, PKCS#7 패딩, base64 표준 인코딩을 사용한다.
type Cipher struct {
	block cipher.Block
	iv    []byte
}

// NewCipher 는 key/iv 를 16바이트로 맞춘다. 짧으면 0 으로 채우고 길면 자른다.
func NewCipher(key, iv string) (*Cipher, error) {
	block, err := aes.NewCipher(padOrTrim([]byte(key), blockSize))
	if err != nil {
		return nil, fmt.Errorf("init aes: %w", err)
	}
	return &Cipher{block: block, iv: padOrTrim([]byte(iv), blockSize)}, nil
}

// NewCipherFromEnv 는 AES_KEY, AES_IV 환경변수로 Cipher 를 만든다.
func NewCipherFromEnv() (*Cipher, error) {
	key := os.Getenv("AES_KEY")
	if key == "" {
		return nil, errors.New("AES_KEY is not set")
	}
	return NewCipher(key, os.Getenv("AES_IV"))
}

// Encrypt 는 빈 문자열을 그대로 반환한다.
func (c *Cipher) Encrypt(plain string) (string, error) {
	if plain == "" {
		return "", nil
	}
	data := pkcs7Pad([]byte(plain), blockSize)
	out := make([]byte, len(data))
	cipher.NewCBCEncrypter(c.block, c.iv).CryptBlocks(out, data)
	return base64.StdEncoding.EncodeToString(out), nil
}

func (c *Cipher) Decrypt(encoded string) (string, error) {
	if encoded == "" {
		return "", nil
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidCiphertext, err)
	}
	if len(data) == 0 || len(data)%blockSize != 0 {
		return "", ErrInvalidCiphertext
	}
	out := make([]byte, len(data))
	cipher.NewCBCDecrypter(c.block, c.iv).CryptBlocks(out, data)
	plain, err := pkcs7Unpad(out, blockSize)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

func padOrTrim(b []byte, n int) []byte {
	out := make([]byte, n)
	copy(out, b)
	return out
}

func pkcs7Pad(b []byte, size int) []byte {
	n := size - len(b)%size
	return append(b, bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(b []byte, size int) ([]byte, error) {
	n := int(b[len(b)-1])
	if n == 0 || n > size || n > len(b) {
		return nil, ErrInvalidCiphertext
	}
	for _, v := range b[len(b)-n:] {
		if int(v) != n {
			return nil, ErrInvalidCiphertext
		}
	}
	return b[:len(b)-n], nil
}
