package dataloader

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/UkralStul/social-blog-service/internal/domain"
	"github.com/UkralStul/social-blog-service/internal/storage"
	"github.com/UkralStul/social-blog-service/internal/storage/inmemory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingStore считает батчевые вызовы хранилища.
type countingStore struct {
	storage.Storage
	profileCalls  atomic.Int32
	reactionCalls atomic.Int32
}

func (s *countingStore) GetProfilesByIDs(ctx context.Context, ids []int64) (map[int64]*domain.Profile, error) {
	s.profileCalls.Add(1)
	return s.Storage.GetProfilesByIDs(ctx, ids)
}

func (s *countingStore) ReactionCounts(ctx context.Context, targets []domain.Target) (map[domain.Target]domain.ReactionCounts, error) {
	s.reactionCalls.Add(1)
	return s.Storage.ReactionCounts(ctx, targets)
}

func TestLoaders_BatchProfiles(t *testing.T) {
	mem := inmemory.New()
	ctx := context.Background()
	var ids []int64
	for _, name := range []string{"ann", "ben", "cat"} {
		_, p, err := mem.CreateUser(ctx, &domain.User{Username: name, PasswordHash: "x"})
		require.NoError(t, err)
		ids = append(ids, p.ID)
	}
	store := &countingStore{Storage: mem}
	loaders := NewLoaders(store)

	thunks := make([]func() (*domain.Profile, error), 0, len(ids)+1)
	for _, id := range ids {
		thunks = append(thunks, loaders.ProfileThunk(ctx, id))
	}
	thunks = append(thunks, loaders.ProfileThunk(ctx, 999))

	for i, id := range ids {
		p, err := thunks[i]()
		require.NoError(t, err)
		assert.Equal(t, id, p.ID)
	}
	_, err := thunks[len(ids)]()
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, int32(1), store.profileCalls.Load())
}

func TestLoaders_ReactionCounts(t *testing.T) {
	mem := inmemory.New()
	ctx := context.Background()
	_, p, err := mem.CreateUser(ctx, &domain.User{Username: "ann", PasswordHash: "x"})
	require.NoError(t, err)
	post, err := mem.CreatePost(ctx, &domain.Post{Title: "t", Caption: "c", AuthorID: p.ID}, nil)
	require.NoError(t, err)
	comment, err := mem.CreateComment(ctx, &domain.Comment{PostID: post.ID, AuthorID: p.ID, Text: "hi"})
	require.NoError(t, err)
	_, err = mem.ToggleReaction(ctx, p.ID, domain.PostRef(post.ID), domain.Like)
	require.NoError(t, err)

	store := &countingStore{Storage: mem}
	loaders := NewLoaders(store)

	postThunk := loaders.ReactionCountsThunk(ctx, domain.PostRef(post.ID))
	commentThunk := loaders.ReactionCountsThunk(ctx, domain.CommentRef(comment.ID))

	counts, err := postThunk()
	require.NoError(t, err)
	assert.Equal(t, domain.ReactionCounts{Likes: 1}, counts)
	counts, err = commentThunk()
	require.NoError(t, err)
	assert.Equal(t, domain.ReactionCounts{}, counts)
	assert.Equal(t, int32(1), store.reactionCalls.Load())

	// после Clear значение перечитывается
	_, err = mem.ToggleReaction(ctx, p.ID, domain.PostRef(post.ID), domain.Like)
	require.NoError(t, err)
	loaders.ClearReactionCounts(ctx, domain.PostRef(post.ID))
	counts, err = loaders.ReactionCountsThunk(ctx, domain.PostRef(post.ID))()
	require.NoError(t, err)
	assert.Equal(t, domain.ReactionCounts{}, counts)
}

func TestMiddleware(t *testing.T) {
	var got *Loaders
	h := Middleware(inmemory.New(), http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = For(r.Context())
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.NotNil(t, got)
	assert.NotNil(t, got.ProfileByID)
}
