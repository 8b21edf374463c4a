// Package apperr 는 API 호출자에게 노출되는 비즈니스 오류 분류이다.
package apperr

import (
	"errors"
	"net/http"
)

type Kind int

const (
	KindInternal Kind = iota
	KindBadRequest
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindTooManyRequests
)

// Code 는 응답 envelope 의 code 이자 HTTP 상태 코드이다.
func (k Kind) Code() int {
	switch k {
	case KindBadRequest:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindTooManyRequests:
		return http.StatusTooManyRequests
	}
	return http.StatusInternalServerError
}

type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, msg string) *Error { return &Error{Kind: kind, Message: msg} }

func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

func NotFound(msg string) *Error        { return New(KindNotFound, msg) }
func Forbidden(msg string) *Error       { return New(KindForbidden, msg) }
func BadRequest(msg string) *Error      { return New(KindBadRequest, msg) }
func TooManyRequests(msg string) *Error { return New(KindTooManyRequests, msg) }
func Unauthorized(msg string) *Error    { return New(KindUnauthorized, msg) }
func Internal(msg string, err error) *Error {
	return Wrap(KindInternal, msg, err)
}

// As 는 체인 안에서 *Error 를 찾는다.
func As(err error) (*Error, bool) {
	var ae *Error
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

// CodeOf 는 임의의 에러를 응답 코드로 변환한다. 분류되지 않은 에러는 500 이다.
func CodeOf(err error) int {
	if err == nil {
		return http.StatusOK
	}
	if ae, ok := As(err); ok {
		return ae.Kind.Code()
	}
	return http.StatusInternalServerError
}

// Is 는 err 가 주어진 분류인지 확인한다.
func Is(err error, kind Kind) bool {
	ae, ok := As(err)
	return ok && ae.Kind == kind
}

// PublicMessage 는 사용자에게 보여 줄 메시지이다. 내부 오류 상세는 숨긴다.
func PublicMessage(err error) string {
	if ae, ok := As(err); ok && ae.Kind != KindInternal {
		return ae.Message
	}
	return "服务器内部错误"
}
