package api

import (
	"context"
	"time"

	"github.com/UkralStul/social-blog-service/internal/dataloader"
	"github.com/UkralStul/social-blog-service/internal/domain"
)

const dateLayout = "2006-01-02"

type profileView struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	About     string    `json:"about,omitempty"`
	Birthday  string    `json:"birthday,omitempty"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"createdAt"`
}

func newProfileView(p *domain.Profile) *profileView {
	if p == nil {
		return nil
	}
	v := &profileView{
		ID:        p.ID,
		Name:      p.Name,
		Slug:      p.Slug,
		About:     p.About,
		Active:    p.Active,
		CreatedAt: p.CreatedAt,
	}
	if p.Birthday != nil {
		v.Birthday = p.Birthday.Format(dateLayout)
	}
	return v
}

func newProfileViews(ps []*domain.Profile) []*profileView {
	out := make([]*profileView, len(ps))
	for i, p := range ps {
		out[i] = newProfileView(p)
	}
	return out
}

type tagView struct {
	Title string `json:"title"`
	Slug  string `json:"slug"`
}

type postView struct {
	ID        int64                 `json:"id"`
	Title     string                `json:"title"`
	Caption   string                `json:"caption"`
	Picture   *string               `json:"picture,omitempty"`
	Author    *profileView          `json:"author"`
	Tags      []tagView             `json:"tags"`
	Archived  bool                  `json:"archived"`
	Changed   bool                  `json:"changed"`
	Views     int64                 `json:"views"`
	Reactions domain.ReactionCounts `json:"reactions"`
	CreatedAt time.Time             `json:"createdAt"`
	UpdatedAt time.Time             `json:"updatedAt"`
}

type postDetailView struct {
	postView
	CommentCount int            `json:"commentCount"`
	Comments     []*commentView `json:"comments"`
}

type commentView struct {
	ID        int64                 `json:"id"`
	PostID    int64                 `json:"postId"`
	ParentID  *int64                `json:"parentId,omitempty"`
	Depth     int                   `json:"depth"`
	Author    *profileView          `json:"author"`
	Text      string                `json:"text"`
	Deleted   bool                  `json:"deleted"`
	Changed   bool                  `json:"changed"`
	Reactions domain.ReactionCounts `json:"reactions"`
	CreatedAt time.Time             `json:"createdAt"`
	UpdatedAt time.Time             `json:"updatedAt"`
	Replies   []*commentView        `json:"replies"`
}

func newCommentView(c *domain.Comment, author *domain.Profile) *commentView {
	v := &commentView{
		ID:        c.ID,
		PostID:    c.PostID,
		ParentID:  c.ParentID,
		Author:    newProfileView(author),
		Text:      c.Text,
		Deleted:   c.Deleted,
		Changed:   c.Changed,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
		Replies:   []*commentView{},
	}
	if c.Deleted {
		v.Text = ""
	}
	return v
}

// renderPosts собирает представления постов, счетчики реакций грузятся одним батчем.
func renderPosts(ctx context.Context, posts []*domain.Post) ([]*postView, error) {
	loaders := dataloader.For(ctx)
	thunks := make([]func() (domain.ReactionCounts, error), len(posts))
	for i, p := range posts {
		thunks[i] = loaders.ReactionCountsThunk(ctx, domain.PostRef(p.ID))
	}

	views := make([]*postView, len(posts))
	for i, p := range posts {
		counts, err := thunks[i]()
		if err != nil {
			return nil, err
		}
		v := &postView{
			ID:        p.ID,
			Title:     p.Title,
			Caption:   p.Caption,
			Picture:   p.Picture,
			Author:    newProfileView(p.Author),
			Tags:      make([]tagView, len(p.Tags)),
			Archived:  p.Archived,
			Changed:   p.Changed,
			Views:     p.Views,
			Reactions: counts,
			CreatedAt: p.CreatedAt,
			UpdatedAt: p.UpdatedAt,
		}
		for j, t := range p.Tags {
			v.Tags[j] = tagView{Title: t.Title, Slug: t.Slug}
		}
		views[i] = v
	}
	return views, nil
}

// renderThread строит дерево комментариев за один проход. Авторы и счетчики
// всех узлов запрашиваются одним батчем каждый.
func renderThread(ctx context.Context, comments []*domain.Comment) ([]*commentView, error) {
	thread := domain.BuildThread(comments)
	loaders := dataloader.For(ctx)

	authors := make([]func() (*domain.Profile, error), thread.Len())
	counts := make([]func() (domain.ReactionCounts, error), thread.Len())
	for i, n := range thread.Nodes {
		authors[i] = loaders.ProfileThunk(ctx, n.Comment.AuthorID)
		counts[i] = loaders.ReactionCountsThunk(ctx, domain.CommentRef(n.Comment.ID))
	}

	views := make([]*commentView, thread.Len())
	for i, n := range thread.Nodes {
		author, err := authors[i]()
		if err != nil {
			return nil, err
		}
		v := newCommentView(n.Comment, author)
		if v.Reactions, err = counts[i](); err != nil {
			return nil, err
		}
		views[i] = v
	}

	for i, n := range thread.Nodes {
		for _, child := range n.Children {
			views[i].Replies = append(views[i].Replies, views[child])
		}
	}
	thread.Walk(func(depth, idx int) {
		views[idx].Depth = depth
	})

	roots := make([]*commentView, len(thread.Roots))
	for i, r := range thread.Roots {
		roots[i] = views[r]
	}
	return roots, nil
}
