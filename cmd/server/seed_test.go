package main

import (
	"context"
	"testing"

	"github.com/UkralStul/social-blog-service/internal/domain"
	"github.com/UkralStul/social-blog-service/internal/storage"
	"github.com/UkralStul/social-blog-service/internal/storage/inmemory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFillWithMockData(t *testing.T) {
	ctx := context.Background()
	store := inmemory.New()
	require.NoError(t, fillWithMockData(ctx, store))

	posts, err := store.GetPosts(ctx, storage.Page{Limit: 10})
	require.NoError(t, err)
	require.Len(t, posts, 1, "archived post must stay out of the feed")
	assert.Len(t, posts[0].Tags, 2)

	comments, err := store.GetCommentsByPostID(ctx, posts[0].ID)
	require.NoError(t, err)
	assert.Len(t, comments, 2)

	counts, err := store.ReactionCounts(ctx, []domain.Target{domain.PostRef(posts[0].ID)})
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts[domain.PostRef(posts[0].ID)].Likes)

	stats, err := store.GetFollowStats(ctx, posts[0].AuthorID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Followers)
}
