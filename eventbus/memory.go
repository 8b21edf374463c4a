package eventbus

import (
	"context"
	"fmt"
	"sync"
	"time"

	"xinji/config"
)

// MemoryEventBus 는 단일 프로세스용 EventBus 이다.
// 토픽마다 크기가 제한된 큐를 두고 Subscribe 가 워커 고루틴을 띄운다.
// 실패한 이벤트는 RetryDelays 만큼 뒤에 같은 큐로 돌아가고, 한도를 넘으면 로그만 남기고 버린다.
type MemoryEventBus struct {
	workers   int
	queueSize int
	delays    []time.Duration

	mu     sync.Mutex
	queues map[string]chan Event
	closed bool
	timers map[*time.Timer]struct{}
}

func NewMemoryEventBus(cfg config.EventBusConfig) *MemoryEventBus {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	size := cfg.QueueSize
	if size <= 0 {
		size = 64
	}
	return &MemoryEventBus{
		workers:   workers,
		queueSize: size,
		delays:    RetryDelays,
		queues:    make(map[string]chan Event),
		timers:    make(map[*time.Timer]struct{}),
	}
}

func (m *MemoryEventBus) queue(topic string) chan Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.queues[topic]
	if !ok {
		q = make(chan Event, m.queueSize)
		m.queues[topic] = q
	}
	return q
}

// Publish 는 큐가 가득 차면 기다리지 않고 ErrQueueFull 을 돌려준다.
func (m *MemoryEventBus) Publish(ctx context.Context, topic string, event Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	closed := m.closed
	m.mu.Unlock()
	if closed {
		return ErrBusClosed
	}
	select {
	case m.queue(topic) <- event:
		return nil
	default:
		return ErrQueueFull
	}
}

// Subscribe 는 ctx 가 끝날 때까지 워커들을 실행한다. groupID 는 로그에만 쓰인다.
func (m *MemoryEventBus) Subscribe(ctx context.Context, groupID string, topic Topic, handler EventHandler) error {
	q := m.queue(topic.Base())
	config.Logger.Infof("memory consumer %s started on %s (workers=%d)", groupID, topic.Base(), m.workers)

	var wg sync.WaitGroup
	for i := 0; i < m.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case evt := <-q:
					m.handle(ctx, topic, evt, handler)
				}
			}
		}()
	}
	wg.Wait()
	config.Logger.Infof("memory consumer %s stopped", groupID)
	return ctx.Err()
}

func (m *MemoryEventBus) handle(ctx context.Context, topic Topic, evt Event, handler EventHandler) {
	err := safeCall(ctx, evt, handler)
	if err == nil {
		return
	}
	target, routed, dead := nextHop(topic, evt, err)
	if dead {
		config.ErrorWithFields("event dropped after max retries", config.Fields{"task_id": evt.ID, "topic": target, "error": err.Error()})
		return
	}
	delay := m.delays[min(routed.Retry, len(m.delays))-1]
	config.WarnWithFields("event scheduled for retry", config.Fields{"task_id": evt.ID, "retry": routed.Retry, "delay": delay.String()})
	m.after(delay, func() {
		if perr := m.Publish(context.Background(), topic.Base(), routed); perr != nil {
			config.ErrorWithFields("retry reinject failed", config.Fields{"task_id": evt.ID, "error": perr.Error()})
		}
	})
}

func (m *MemoryEventBus) after(d time.Duration, fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	var t *time.Timer
	t = time.AfterFunc(d, func() {
		m.mu.Lock()
		delete(m.timers, t)
		m.mu.Unlock()
		fn()
	})
	m.timers[t] = struct{}{}
}

// safeCall 은 핸들러 panic 이 워커를 죽이지 않도록 오류로 바꾼다.
func safeCall(ctx context.Context, evt Event, handler EventHandler) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = panicError{value: r}
		}
	}()
	return handler(ctx, evt)
}

type panicError struct{ value any }

func (p panicError) Error() string {
	return fmt.Sprintf("handler panic: %v", p.value)
}

// StartRetryReinjector 는 재시도가 타이머로 처리되므로 ctx 가 끝날 때까지 기다리기만 한다.
func (m *MemoryEventBus) StartRetryReinjector(ctx context.Context, groupID string, topic Topic) error {
	<-ctx.Done()
	return ctx.Err()
}

// Close 는 대기 중인 재시도 타이머를 멈추고 이후 Publish 를 거절한다.
func (m *MemoryEventBus) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.closed = true
	for t := range m.timers {
		t.Stop()
	}
	m.timers = map[*time.Timer]struct{}{}
}
