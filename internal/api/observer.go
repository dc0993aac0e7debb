package api

import (
	"context"
	"sync"

	"github.com/UkralStul/social-blog-service/internal/domain"
	"github.com/google/uuid"
)

type CommentEventType string

const (
	CommentCreated CommentEventType = "created"
	CommentUpdated CommentEventType = "updated"
	CommentDeleted CommentEventType = "deleted"
)

// CommentEvent - изменение комментария, рассылаемое подписчикам поста.
type CommentEvent struct {
	Type    CommentEventType
	Comment *domain.Comment
	Author  *domain.Profile
}

const subscriberBuffer = 16

// CommentObserver хранит каналы для подписчиков на комментарии.
type CommentObserver struct {
	mu sync.RWMutex
	//   map[postID] map[subscriberID] channel
	subs map[int64]map[string]chan CommentEvent
}

// NewCommentObserver - конструктор для наблюдателя.
func NewCommentObserver() *CommentObserver {
	return &CommentObserver{
		subs: make(map[int64]map[string]chan CommentEvent),
	}
}

// Subscribe регистрирует подписчика поста. Подписка снимается, а канал
// закрывается после отмены ctx.
func (o *CommentObserver) Subscribe(ctx context.Context, postID int64) <-chan CommentEvent {
	subID := uuid.NewString()
	ch := make(chan CommentEvent, subscriberBuffer)

	o.mu.Lock()
	if o.subs[postID] == nil {
		o.subs[postID] = make(map[string]chan CommentEvent)
	}
	o.subs[postID][subID] = ch
	o.mu.Unlock()

	// Горутина для очистки при отключении клиента
	go func() {
		<-ctx.Done()
		o.mu.Lock()
		if postSubs, ok := o.subs[postID]; ok {
			delete(postSubs, subID)
			if len(postSubs) == 0 {
				delete(o.subs, postID)
			}
		}
		close(ch)
		o.mu.Unlock()
	}()

	return ch
}

// Publish рассылает событие подписчикам поста, не блокируясь на медленных клиентах.
func (o *CommentObserver) Publish(event CommentEvent) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	for _, ch := range o.subs[event.Comment.PostID] {
		select {
		case ch <- event:
		default:
			// Клиент не успевает читать, событие пропускается
		}
	}
}

// Subscribers возвращает число подписчиков поста.
func (o *CommentObserver) Subscribers(postID int64) int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.subs[postID])
}
