package events

import (
	"context"

	"xinji/config"
	"xinji/eventbus"
)

// Router 는 payload 의 type 필드를 보고 등록된 핸들러로 보낸다.
type Router struct {
	handlers map[EventType]eventbus.EventHandler
}

func NewRouter() *Router {
	return &Router{handlers: make(map[EventType]eventbus.EventHandler)}
}

// Handle 은 JSON payload 를 T 로 디코딩해 fn 에 넘기는 핸들러를 등록한다.
func Handle[T any](r *Router, t EventType, fn func(ctx context.Context, payload T) error) {
	r.handlers[t] = func(ctx context.Context, evt eventbus.Event) error {
		v, err := eventbus.DecodeJSON[T](evt)
		if err != nil {
			return err
		}
		return fn(ctx, v)
	}
}

// Dispatch 는 eventbus.EventHandler 로 쓰인다.
func (r *Router) Dispatch(ctx context.Context, evt eventbus.Event) error {
	t, err := eventbus.PeekType(evt)
	if err != nil {
		// 다시 읽어도 같은 결과이므로 재시도하지 않는다.
		config.Logger.Errorf("drop event %s without type: %v", evt.ID, err)
		return nil
	}
	h, ok := r.handlers[EventType(t)]
	if !ok {
		// 알 수 없는 타입 또는 다른 서비스용 이벤트는 무시 (커밋)
		config.Logger.Debugf("no handler for event type %s", t)
		return nil
	}
	return h(ctx, evt)
}
