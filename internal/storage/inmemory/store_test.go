package inmemory

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/UkralStul/social-blog-service/internal/domain"
	"github.com/UkralStul/social-blog-service/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestStore создает хранилище, пользователя и один пост для тестов
func newTestStore(t *testing.T) (*Store, *domain.User, *domain.Profile, *domain.Post) {
	store := New()
	ctx := context.Background()
	user, profile, err := store.CreateUser(ctx, &domain.User{Username: "alice", PasswordHash: "x"})
	require.NoError(t, err)
	post, err := store.CreatePost(ctx, &domain.Post{
		Title:    "Test Post",
		Caption:  "Content",
		AuthorID: profile.ID,
	}, nil)
	require.NoError(t, err)
	return store, user, profile, post
}

func newUser(t *testing.T, store *Store, name string) (*domain.User, *domain.Profile) {
	user, profile, err := store.CreateUser(context.Background(), &domain.User{Username: name, PasswordHash: "x"})
	require.NoError(t, err)
	return user, profile
}

func TestStore_CreateUser(t *testing.T) {
	store := New()
	ctx := context.Background()

	user, profile, err := store.CreateUser(ctx, &domain.User{Username: "bob", PasswordHash: "hash"})
	require.NoError(t, err)
	assert.NotZero(t, user.ID)
	assert.Equal(t, user.ID, profile.UserID)
	assert.Equal(t, "bob", profile.Name)
	assert.True(t, profile.Active)
	assert.True(t, strings.HasPrefix(profile.Slug, "bob-"))

	_, _, err = store.CreateUser(ctx, &domain.User{Username: "bob", PasswordHash: "hash"})
	assert.True(t, domain.IsValidation(err))

	found, err := store.GetUserByUsername(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)

	_, err = store.GetUserByUsername(ctx, "nobody")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_CreateAndGetPost(t *testing.T) {
	store, _, profile, post := newTestStore(t)
	ctx := context.Background()

	retrieved, err := store.GetPostByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, post.Title, retrieved.Title)
	require.NotNil(t, retrieved.Author)
	assert.Equal(t, profile.Slug, retrieved.Author.Slug)
	assert.Empty(t, retrieved.Tags)

	_, err = store.GetPostByID(ctx, 999)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_ActiveProfileSwitch(t *testing.T) {
	store := New()
	ctx := context.Background()
	user, first := newUser(t, store, "carol")

	var last *domain.Profile
	for _, name := range []string{"Work", "Travel", "Music"} {
		p, err := store.CreateProfile(ctx, &domain.Profile{UserID: user.ID, Name: name})
		require.NoError(t, err)
		last = p
	}

	profiles, err := store.GetProfilesByUser(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, profiles, 4)
	active := 0
	for _, p := range profiles {
		if p.Active {
			active++
			assert.Equal(t, last.ID, p.ID)
		}
	}
	assert.Equal(t, 1, active)

	switched, err := store.SwitchActiveProfile(ctx, user.ID, first.ID)
	require.NoError(t, err)
	assert.True(t, switched.Active)

	current, err := store.ActiveProfile(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, current.ID)

	// чужой профиль не переключается
	_, other := newUser(t, store, "dave")
	_, err = store.SwitchActiveProfile(ctx, user.ID, other.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	current, err = store.ActiveProfile(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, current.ID)
}

func TestStore_ActiveProfile_SeveralActive(t *testing.T) {
	store, user, first, _ := newTestStore(t)
	ctx := context.Background()
	second, err := store.CreateProfile(ctx, &domain.Profile{UserID: user.ID, Name: "Work"})
	require.NoError(t, err)

	// два активных профиля появляются только при правке данных в обход хранилища
	store.mu.Lock()
	store.profiles[first.ID].Active = true
	store.mu.Unlock()

	for i := 0; i < 3; i++ {
		active, err := store.ActiveProfile(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, first.ID, active.ID)
		assert.Less(t, first.ID, second.ID)
	}
}

func TestStore_ActiveProfile_None(t *testing.T) {
	store := New()
	_, err := store.ActiveProfile(context.Background(), 42)
	assert.ErrorIs(t, err, domain.ErrNoActiveProfile)
}

func TestStore_DeleteProfile(t *testing.T) {
	store, user, first, post := newTestStore(t)
	ctx := context.Background()

	// последний профиль удалить нельзя
	err := store.DeleteProfile(ctx, user.ID, first.Slug)
	assert.True(t, domain.IsValidation(err))

	second, err := store.CreateProfile(ctx, &domain.Profile{UserID: user.ID, Name: "Second"})
	require.NoError(t, err)
	_, err = store.SwitchActiveProfile(ctx, user.ID, first.ID)
	require.NoError(t, err)

	_, reader := newUser(t, store, "reader")
	_, err = store.Follow(ctx, reader.ID, first.ID)
	require.NoError(t, err)
	_, err = store.ToggleReaction(ctx, reader.ID, domain.PostRef(post.ID), domain.Like)
	require.NoError(t, err)

	require.NoError(t, store.DeleteProfile(ctx, user.ID, first.Slug))

	_, err = store.GetPostByID(ctx, post.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	stats, err := store.GetFollowStats(ctx, reader.ID)
	require.NoError(t, err)
	assert.Zero(t, stats.Following)

	current, err := store.ActiveProfile(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, second.ID, current.ID)
}

func TestStore_UpdateProfile_Ownership(t *testing.T) {
	store, user, profile, _ := newTestStore(t)
	ctx := context.Background()
	stranger, _ := newUser(t, store, "mallory")

	_, err := store.UpdateProfile(ctx, stranger.ID, profile.Slug, storage.ProfileUpdate{Name: "Hacked"})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	updated, err := store.UpdateProfile(ctx, user.ID, profile.Slug, storage.ProfileUpdate{Name: "Alice", About: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "Alice", updated.Name)
	assert.Equal(t, profile.Slug, updated.Slug)

	_, err = store.UpdateProfile(ctx, user.ID, profile.Slug, storage.ProfileUpdate{Name: ""})
	assert.True(t, domain.IsValidation(err))
}

func TestStore_PostTags(t *testing.T) {
	store, user, profile, _ := newTestStore(t)
	ctx := context.Background()

	titles, err := domain.ParseTagTitles("#a #b #a")
	require.NoError(t, err)
	post, err := store.CreatePost(ctx, &domain.Post{Title: "Tagged", Caption: "c", AuthorID: profile.ID}, titles)
	require.NoError(t, err)
	require.Len(t, post.Tags, 2)
	assert.Equal(t, "a", post.Tags[0].Title)
	assert.Equal(t, "b", post.Tags[1].Title)
	require.NotNil(t, post.Tags[0].AuthorID)
	assert.Equal(t, profile.ID, *post.Tags[0].AuthorID)

	// существующий тег переиспользуется
	other, err := store.CreatePost(ctx, &domain.Post{Title: "Again", Caption: "c", AuthorID: profile.ID}, []string{"a"})
	require.NoError(t, err)
	assert.Equal(t, post.Tags[0].ID, other.Tags[0].ID)

	byTag, err := store.GetPostsByTag(ctx, post.Tags[0].Slug, storage.Page{})
	require.NoError(t, err)
	assert.Len(t, byTag, 2)

	_, err = store.GetPostsByTag(ctx, "missing", storage.Page{})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// пустой набор тегов очищает связи
	updated, err := store.UpdatePost(ctx, user.ID, post.ID, storage.PostUpdate{Title: "Tagged", Caption: "c"}, nil)
	require.NoError(t, err)
	assert.Empty(t, updated.Tags)
	assert.True(t, updated.Changed)
}

func TestStore_UpdatePost_Ownership(t *testing.T) {
	store, user, _, post := newTestStore(t)
	ctx := context.Background()
	stranger, strangerProfile := newUser(t, store, "eve")

	_, err := store.UpdatePost(ctx, stranger.ID, post.ID, storage.PostUpdate{Title: "x", Caption: "y"}, nil)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = store.UpdatePost(ctx, user.ID, post.ID, storage.PostUpdate{Title: "x", Caption: "y", AuthorID: strangerProfile.ID}, nil)
	assert.True(t, domain.IsValidation(err))

	assert.ErrorIs(t, store.DeletePost(ctx, stranger.ID, post.ID), domain.ErrNotFound)
	require.NoError(t, store.DeletePost(ctx, user.ID, post.ID))
	_, err = store.GetPostByID(ctx, post.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_Feeds(t *testing.T) {
	store, user, profile, first := newTestStore(t)
	ctx := context.Background()

	second, err := store.CreatePost(ctx, &domain.Post{Title: "Second", Caption: "c", AuthorID: profile.ID}, nil)
	require.NoError(t, err)
	_, err = store.UpdatePost(ctx, user.ID, first.ID, storage.PostUpdate{Title: first.Title, Caption: first.Caption, Archived: true}, nil)
	require.NoError(t, err)

	feed, err := store.GetPosts(ctx, storage.Page{Limit: 10})
	require.NoError(t, err)
	require.Len(t, feed, 1)
	assert.Equal(t, second.ID, feed[0].ID)

	own, err := store.GetPostsByProfile(ctx, profile.ID, true, storage.Page{})
	require.NoError(t, err)
	require.Len(t, own, 2)
	assert.Equal(t, second.ID, own[0].ID)

	public, err := store.GetPostsByProfile(ctx, profile.ID, false, storage.Page{})
	require.NoError(t, err)
	assert.Len(t, public, 1)

	page, err := store.GetPostsByProfile(ctx, profile.ID, true, storage.Page{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, first.ID, page[0].ID)
}

func TestStore_ViewPost(t *testing.T) {
	store, user, _, post := newTestStore(t)
	ctx := context.Background()

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.ViewPost(ctx, post.ID)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	retrieved, err := store.GetPostByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(n), retrieved.Views)

	_, err = store.UpdatePost(ctx, user.ID, post.ID, storage.PostUpdate{Title: post.Title, Caption: post.Caption, Archived: true}, nil)
	require.NoError(t, err)
	_, err = store.ViewPost(ctx, post.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_CreateComment_Success(t *testing.T) {
	store, _, profile, post := newTestStore(t)
	ctx := context.Background()

	comment, err := store.CreateComment(ctx, &domain.Comment{PostID: post.ID, AuthorID: profile.ID, Text: "First comment!"})
	require.NoError(t, err)
	assert.NotZero(t, comment.ID)

	comments, err := store.GetCommentsByPostID(ctx, post.ID)
	require.NoError(t, err)
	assert.Len(t, comments, 1)
	assert.Equal(t, "First comment!", comments[0].Text)
}

func TestStore_CreateComment_TooLong(t *testing.T) {
	store, _, profile, post := newTestStore(t)
	ctx := context.Background()

	longContent := strings.Repeat("a", domain.MaxCommentLength+1)
	_, err := store.CreateComment(ctx, &domain.Comment{PostID: post.ID, AuthorID: profile.ID, Text: longContent})
	require.Error(t, err)
	assert.Equal(t, "validation failed: text: is too long", err.Error())
}

func TestStore_CreateComment_Empty(t *testing.T) {
	store, _, profile, post := newTestStore(t)
	_, err := store.CreateComment(context.Background(), &domain.Comment{PostID: post.ID, AuthorID: profile.ID, Text: "   "})
	require.Error(t, err)
	assert.Equal(t, "validation failed: text: cannot be empty", err.Error())
}

func TestStore_CreateComment_ParentOnOtherPost(t *testing.T) {
	store, _, profile, post := newTestStore(t)
	ctx := context.Background()

	other, err := store.CreatePost(ctx, &domain.Post{Title: "Other", Caption: "c", AuthorID: profile.ID}, nil)
	require.NoError(t, err)
	parent, err := store.CreateComment(ctx, &domain.Comment{PostID: other.ID, AuthorID: profile.ID, Text: "root"})
	require.NoError(t, err)

	_, err = store.CreateComment(ctx, &domain.Comment{PostID: post.ID, ParentID: &parent.ID, AuthorID: profile.ID, Text: "reply"})
	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, "parentId")

	missing := int64(999)
	_, err = store.CreateComment(ctx, &domain.Comment{PostID: post.ID, ParentID: &missing, AuthorID: profile.ID, Text: "reply"})
	assert.True(t, domain.IsValidation(err))
}

func TestStore_CreateComment_ArchivedPost(t *testing.T) {
	store, user, profile, post := newTestStore(t)
	ctx := context.Background()

	_, err := store.UpdatePost(ctx, user.ID, post.ID, storage.PostUpdate{Title: post.Title, Caption: post.Caption, Archived: true}, nil)
	require.NoError(t, err)
	_, err = store.CreateComment(ctx, &domain.Comment{PostID: post.ID, AuthorID: profile.ID, Text: "hi"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_DeleteComment_KeepsReplies(t *testing.T) {
	store, user, profile, post := newTestStore(t)
	ctx := context.Background()

	root, err := store.CreateComment(ctx, &domain.Comment{PostID: post.ID, AuthorID: profile.ID, Text: "root"})
	require.NoError(t, err)
	reply, err := store.CreateComment(ctx, &domain.Comment{PostID: post.ID, ParentID: &root.ID, AuthorID: profile.ID, Text: "reply"})
	require.NoError(t, err)

	stranger, _ := newUser(t, store, "trent")
	_, err = store.DeleteComment(ctx, stranger.ID, root.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	deleted, err := store.DeleteComment(ctx, user.ID, root.ID)
	require.NoError(t, err)
	assert.True(t, deleted.Deleted)

	// повторное удаление идемпотентно
	_, err = store.DeleteComment(ctx, user.ID, root.ID)
	require.NoError(t, err)

	comments, err := store.GetCommentsByPostID(ctx, post.ID)
	require.NoError(t, err)
	require.Len(t, comments, 2)

	thread := domain.BuildThread(comments)
	require.Len(t, thread.Roots, 1)
	rootNode := thread.Nodes[thread.Roots[0]]
	assert.True(t, rootNode.Comment.Deleted)
	require.Len(t, rootNode.Children, 1)
	assert.Equal(t, reply.ID, thread.Nodes[rootNode.Children[0]].Comment.ID)

	_, err = store.UpdateComment(ctx, user.ID, root.ID, "edit")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	edited, err := store.UpdateComment(ctx, user.ID, reply.ID, "edited reply")
	require.NoError(t, err)
	assert.True(t, edited.Changed)
	assert.Equal(t, "edited reply", edited.Text)
}

func TestStore_ToggleReaction(t *testing.T) {
	store, _, profile, post := newTestStore(t)
	ctx := context.Background()
	target := domain.PostRef(post.ID)

	counts := func() domain.ReactionCounts {
		m, err := store.ReactionCounts(ctx, []domain.Target{target})
		require.NoError(t, err)
		return m[target]
	}

	res, err := store.ToggleReaction(ctx, profile.ID, target, domain.Like)
	require.NoError(t, err)
	assert.Equal(t, domain.ReactionCreated, res.Outcome)
	assert.Equal(t, domain.ReactionCounts{Likes: 1}, counts())

	res, err = store.ToggleReaction(ctx, profile.ID, target, domain.Like)
	require.NoError(t, err)
	assert.Equal(t, domain.ReactionRemoved, res.Outcome)
	assert.Nil(t, res.Reaction)
	assert.Equal(t, domain.ReactionCounts{}, counts())

	res, err = store.ToggleReaction(ctx, profile.ID, target, domain.Dislike)
	require.NoError(t, err)
	assert.Equal(t, domain.ReactionCreated, res.Outcome)
	assert.Equal(t, domain.ReactionCounts{Dislikes: 1}, counts())

	res, err = store.ToggleReaction(ctx, profile.ID, target, domain.Like)
	require.NoError(t, err)
	assert.Equal(t, domain.ReactionChanged, res.Outcome)
	assert.Equal(t, domain.ReactionCounts{Likes: 1}, counts())

	res, err = store.ToggleReaction(ctx, profile.ID, target, domain.Like)
	require.NoError(t, err)
	assert.Equal(t, domain.ReactionRemoved, res.Outcome)
	assert.Equal(t, domain.ReactionCounts{}, counts())
}

func TestStore_ToggleReaction_Targets(t *testing.T) {
	store, user, profile, post := newTestStore(t)
	ctx := context.Background()

	_, err := store.ToggleReaction(ctx, profile.ID, domain.PostRef(999), domain.Like)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = store.ToggleReaction(ctx, profile.ID, domain.PostRef(post.ID), domain.ReactionValue(7))
	assert.True(t, domain.IsValidation(err))

	comment, err := store.CreateComment(ctx, &domain.Comment{PostID: post.ID, AuthorID: profile.ID, Text: "hi"})
	require.NoError(t, err)
	_, err = store.ToggleReaction(ctx, profile.ID, domain.CommentRef(comment.ID), domain.Dislike)
	require.NoError(t, err)

	// реакции на пост и комментарий с одинаковым id не смешиваются
	m, err := store.ReactionCounts(ctx, []domain.Target{domain.PostRef(post.ID), domain.CommentRef(comment.ID)})
	require.NoError(t, err)
	assert.Equal(t, domain.ReactionCounts{}, m[domain.PostRef(post.ID)])
	assert.Equal(t, domain.ReactionCounts{Dislikes: 1}, m[domain.CommentRef(comment.ID)])

	_, err = store.DeleteComment(ctx, user.ID, comment.ID)
	require.NoError(t, err)
	_, err = store.ToggleReaction(ctx, profile.ID, domain.CommentRef(comment.ID), domain.Like)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_ToggleReaction_Concurrent(t *testing.T) {
	store, _, profile, post := newTestStore(t)
	ctx := context.Background()
	target := domain.PostRef(post.ID)

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.ToggleReaction(ctx, profile.ID, target, domain.Like)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	// четное число переключений возвращает в исходное состояние
	m, err := store.ReactionCounts(ctx, []domain.Target{target})
	require.NoError(t, err)
	assert.Equal(t, domain.ReactionCounts{}, m[target])
}

func TestStore_FollowGraph(t *testing.T) {
	store := New()
	ctx := context.Background()
	_, a := newUser(t, store, "anna")
	_, b := newUser(t, store, "boris")

	first, err := store.Follow(ctx, a.ID, b.ID)
	require.NoError(t, err)
	again, err := store.Follow(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)

	ok, err := store.IsFollowing(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = store.IsFollowing(ctx, b.ID, a.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	followers, err := store.GetFollowers(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, followers, 1)
	assert.Equal(t, a.ID, followers[0].ID)

	following, err := store.GetFollowing(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, following, 1)
	assert.Equal(t, b.ID, following[0].ID)

	stats, err := store.GetFollowStats(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.FollowStats{Followers: 1}, stats)

	_, err = store.Follow(ctx, a.ID, a.ID)
	assert.True(t, domain.IsValidation(err))
	_, err = store.Follow(ctx, a.ID, 999)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, store.Unfollow(ctx, a.ID, b.ID))
	assert.ErrorIs(t, store.Unfollow(ctx, a.ID, b.ID), domain.ErrNotFound)

	stats, err = store.GetFollowStats(ctx, b.ID)
	require.NoError(t, err)
	assert.Zero(t, stats.Followers)
}
