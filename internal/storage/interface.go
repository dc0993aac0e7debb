package storage

import (
	"context"
	"time"

	"github.com/UkralStul/social-blog-service/internal/domain"
)

// Page - окно limit/offset для списков.
type Page struct {
	Limit  int
	Offset int
}

// PostUpdate - редактируемые поля поста. AuthorID должен быть профилем того же пользователя.
type PostUpdate struct {
	Title    string
	Caption  string
	Picture  *string
	AuthorID int64
	Archived bool
}

type ProfileUpdate struct {
	Name     string
	About    string
	Birthday *time.Time
}

// Storage определяет контракт для хранилищ.
//
// Попытка изменить чужой пост, комментарий или профиль возвращает domain.ErrNotFound.
type Storage interface {
	// Users
	CreateUser(ctx context.Context, user *domain.User) (*domain.User, *domain.Profile, error)
	GetUserByUsername(ctx context.Context, username string) (*domain.User, error)

	// Profiles
	CreateProfile(ctx context.Context, profile *domain.Profile) (*domain.Profile, error)
	SwitchActiveProfile(ctx context.Context, userID, profileID int64) (*domain.Profile, error)
	ActiveProfile(ctx context.Context, userID int64) (*domain.Profile, error)
	GetProfileBySlug(ctx context.Context, slug string) (*domain.Profile, error)
	GetProfilesByIDs(ctx context.Context, ids []int64) (map[int64]*domain.Profile, error)
	GetProfilesByUser(ctx context.Context, userID int64) ([]*domain.Profile, error)
	GetProfiles(ctx context.Context, page Page) ([]*domain.Profile, error)
	UpdateProfile(ctx context.Context, userID int64, slug string, upd ProfileUpdate) (*domain.Profile, error)
	DeleteProfile(ctx context.Context, userID int64, slug string) error

	// Posts
	CreatePost(ctx context.Context, post *domain.Post, tagTitles []string) (*domain.Post, error)
	UpdatePost(ctx context.Context, userID, postID int64, upd PostUpdate, tagTitles []string) (*domain.Post, error)
	DeletePost(ctx context.Context, userID, postID int64) error
	GetPostByID(ctx context.Context, id int64) (*domain.Post, error)
	ViewPost(ctx context.Context, id int64) (*domain.Post, error)
	GetPosts(ctx context.Context, page Page) ([]*domain.Post, error)
	GetPostsByProfile(ctx context.Context, profileID int64, includeArchived bool, page Page) ([]*domain.Post, error)
	GetPostsByTag(ctx context.Context, tagSlug string, page Page) ([]*domain.Post, error)

	// Comments
	CreateComment(ctx context.Context, comment *domain.Comment) (*domain.Comment, error)
	UpdateComment(ctx context.Context, userID, commentID int64, text string) (*domain.Comment, error)
	DeleteComment(ctx context.Context, userID, commentID int64) (*domain.Comment, error)
	GetCommentByID(ctx context.Context, id int64) (*domain.Comment, error)
	GetCommentsByPostID(ctx context.Context, postID int64) ([]*domain.Comment, error)

	// Reactions
	ToggleReaction(ctx context.Context, profileID int64, target domain.Target, value domain.ReactionValue) (domain.ReactionToggle, error)
	ReactionCounts(ctx context.Context, targets []domain.Target) (map[domain.Target]domain.ReactionCounts, error)

	// Follow graph
	Follow(ctx context.Context, senderID, recipientID int64) (*domain.Follow, error)
	Unfollow(ctx context.Context, senderID, recipientID int64) error
	IsFollowing(ctx context.Context, senderID, recipientID int64) (bool, error)
	GetFollowers(ctx context.Context, profileID int64) ([]*domain.Profile, error)
	GetFollowing(ctx context.Context, profileID int64) ([]*domain.Profile, error)
	GetFollowStats(ctx context.Context, profileID int64) (domain.FollowStats, error)

	Close() error
}
