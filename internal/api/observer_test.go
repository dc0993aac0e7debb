package api

import (
	"context"
	"testing"
	"time"

	"github.com/UkralStul/social-blog-service/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommentObserver(t *testing.T) {
	o := NewCommentObserver()
	ctx, cancel := context.WithCancel(context.Background())

	events := o.Subscribe(ctx, 1)
	other := o.Subscribe(context.Background(), 2)
	assert.Equal(t, 1, o.Subscribers(1))

	o.Publish(CommentEvent{Type: CommentCreated, Comment: &domain.Comment{ID: 10, PostID: 1}})
	select {
	case ev := <-events:
		assert.Equal(t, int64(10), ev.Comment.ID)
	case <-time.After(time.Second):
		t.Fatal("event was not delivered")
	}
	assert.Empty(t, other)

	cancel()
	require.Eventually(t, func() bool { return o.Subscribers(1) == 0 }, time.Second, 10*time.Millisecond)
	_, open := <-events
	assert.False(t, open)

	// публикация без подписчиков не блокируется
	o.Publish(CommentEvent{Type: CommentDeleted, Comment: &domain.Comment{ID: 11, PostID: 1}})
}

func TestCommentObserver_SlowSubscriber(t *testing.T) {
	o := NewCommentObserver()
	events := o.Subscribe(context.Background(), 1)

	for i := 0; i < subscriberBuffer*2; i++ {
		o.Publish(CommentEvent{Type: CommentCreated, Comment: &domain.Comment{ID: int64(i), PostID: 1}})
	}
	assert.Len(t, events, subscriberBuffer)
}
