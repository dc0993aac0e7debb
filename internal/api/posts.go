package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/UkralStul/social-blog-service/internal/domain"
	"github.com/UkralStul/social-blog-service/internal/storage"
	"github.com/go-chi/chi/v5"
)

type postRequest struct {
	Title    string  `json:"title"`
	Caption  string  `json:"caption"`
	Picture  *string `json:"picture"`
	Tags     string  `json:"tags"`
	Archived bool    `json:"archived"`
	// Author - slug одного из профилей пользователя. По умолчанию активный профиль.
	Author string `json:"author"`
}

// authorFor проверяет, что профиль из запроса принадлежит текущему пользователю.
func (s *Server) authorFor(ctx context.Context, slug string) (*domain.Profile, error) {
	p, err := s.ownProfile(ctx, slug)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.NewValidationError("author", "must be one of your profiles")
	}
	return p, err
}

func (s *Server) createPost(w http.ResponseWriter, r *http.Request) {
	var req postRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	tags, err := domain.ParseTagTitles(req.Tags)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var author *domain.Profile
	if req.Author != "" {
		author, err = s.authorFor(r.Context(), req.Author)
	} else {
		author, err = s.actingProfile(r.Context())
	}
	if err != nil {
		writeError(w, r, err)
		return
	}

	post, err := s.Storage.CreatePost(r.Context(), &domain.Post{
		Title:    req.Title,
		Caption:  req.Caption,
		Picture:  req.Picture,
		Archived: req.Archived,
		AuthorID: author.ID,
	}, tags)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.writePost(w, r, http.StatusCreated, post)
}

func (s *Server) updatePost(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	postID, err := idParam(r, "postID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req postRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	tags, err := domain.ParseTagTitles(req.Tags)
	if err != nil {
		writeError(w, r, err)
		return
	}

	upd := storage.PostUpdate{
		Title:    req.Title,
		Caption:  req.Caption,
		Picture:  req.Picture,
		Archived: req.Archived,
	}
	if req.Author != "" {
		author, err := s.authorFor(r.Context(), req.Author)
		if err != nil {
			writeError(w, r, err)
			return
		}
		upd.AuthorID = author.ID
	}

	post, err := s.Storage.UpdatePost(r.Context(), userID, postID, upd, tags)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.writePost(w, r, http.StatusOK, post)
}

func (s *Server) deletePost(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	postID, err := idParam(r, "postID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.Storage.DeletePost(r.Context(), userID, postID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// getPost - страница поста: просмотр засчитывается, архивный пост не отдается.
func (s *Server) getPost(w http.ResponseWriter, r *http.Request) {
	postID, err := idParam(r, "postID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	post, err := s.Storage.ViewPost(r.Context(), postID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	views, err := renderPosts(r.Context(), []*domain.Post{post})
	if err != nil {
		writeError(w, r, err)
		return
	}

	comments, err := s.Storage.GetCommentsByPostID(r.Context(), postID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	thread, err := renderThread(r.Context(), comments)
	if err != nil {
		writeError(w, r, err)
		return
	}
	visible := 0
	for _, c := range comments {
		if !c.Deleted {
			visible++
		}
	}
	writeJSON(w, http.StatusOK, postDetailView{postView: *views[0], CommentCount: visible, Comments: thread})
}

func (s *Server) listPosts(w http.ResponseWriter, r *http.Request) {
	page, err := pageParams(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	posts, err := s.Storage.GetPosts(r.Context(), page)
	s.writePosts(w, r, posts, err)
}

func (s *Server) listPostsByTag(w http.ResponseWriter, r *http.Request) {
	page, err := pageParams(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	posts, err := s.Storage.GetPostsByTag(r.Context(), chi.URLParam(r, "tagSlug"), page)
	s.writePosts(w, r, posts, err)
}

func (s *Server) listProfilePosts(w http.ResponseWriter, r *http.Request) {
	page, err := pageParams(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	p, err := s.Storage.GetProfileBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	posts, err := s.Storage.GetPostsByProfile(r.Context(), p.ID, false, page)
	s.writePosts(w, r, posts, err)
}

// listOwnPosts - посты активного профиля, включая архивные.
func (s *Server) listOwnPosts(w http.ResponseWriter, r *http.Request) {
	page, err := pageParams(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	p, err := s.actingProfile(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	posts, err := s.Storage.GetPostsByProfile(r.Context(), p.ID, true, page)
	s.writePosts(w, r, posts, err)
}

func (s *Server) writePosts(w http.ResponseWriter, r *http.Request, posts []*domain.Post, err error) {
	if err != nil {
		writeError(w, r, err)
		return
	}
	views, err := renderPosts(r.Context(), posts)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) writePost(w http.ResponseWriter, r *http.Request, status int, post *domain.Post) {
	views, err := renderPosts(r.Context(), []*domain.Post{post})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, status, views[0])
}
