// Package eventbus 进程内发布订阅，为 SSE 推送提供数据变更事件，
// 让已打开的页面在条目/打分变化后自动刷新。
package eventbus

import (
	"context"
	"sync"
	"time"
)

// 事件类型。Data 中约定携带 collection / endeavor 等定位字段。
const (
	TypeEntryChanged    = "entry.changed"
	TypeScoreToggled    = "score.toggled"
	TypeEndeavorRenamed = "endeavor.renamed"
	TypeFeatureReloaded = "feature.reloaded"
)

type Event struct {
	Type      string         `json:"type"`
	Timestamp int64          `json:"timestamp"`
	Data      map[string]any `json:"data,omitempty"`
}

type Hub struct {
	mu   sync.RWMutex
	subs map[chan Event]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[chan Event]struct{})}
}

// Publish 广播事件。hub 为 nil 时直接忽略，服务层不必判空。
func (h *Hub) Publish(evt Event) {
	if h == nil {
		return
	}
	if evt.Timestamp == 0 {
		evt.Timestamp = time.Now().UnixMilli()
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.subs {
		select {
		case ch <- evt:
		default:
			// 慢消费者直接丢弃，变更事件允许丢失，客户端有整页刷新兜底
		}
	}
}

// Subscribe 订阅事件流，ctx 结束时自动退订并关闭通道
func (h *Hub) Subscribe(ctx context.Context, buffer int) <-chan Event {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan Event, buffer)

	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	go func() {
		<-ctx.Done()
		h.mu.Lock()
		delete(h.subs, ch)
		h.mu.Unlock()
		close(ch)
	}()

	return ch
}
