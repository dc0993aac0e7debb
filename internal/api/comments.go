package api

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/UkralStul/social-blog-service/internal/dataloader"
	"github.com/UkralStul/social-blog-service/internal/domain"
	"github.com/gorilla/websocket"
)

type commentRequest struct {
	Text     string `json:"text"`
	ParentID *int64 `json:"parentId"`
}

type threadResponse struct {
	PostID   int64          `json:"postId"`
	Comments []*commentView `json:"comments"`
}

func (s *Server) listComments(w http.ResponseWriter, r *http.Request) {
	postID, err := idParam(r, "postID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if _, err := s.visiblePost(r.Context(), postID); err != nil {
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
	writeJSON(w, http.StatusOK, threadResponse{PostID: postID, Comments: thread})
}

// visiblePost возвращает пост, если он не в архиве.
func (s *Server) visiblePost(ctx context.Context, postID int64) (*domain.Post, error) {
	post, err := s.Storage.GetPostByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post.Archived {
		return nil, domain.ErrNotFound
	}
	return post, nil
}

func (s *Server) createComment(w http.ResponseWriter, r *http.Request) {
	postID, err := idParam(r, "postID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	author, err := s.actingProfile(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req commentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	comment, err := s.Storage.CreateComment(r.Context(), &domain.Comment{
		PostID:   postID,
		ParentID: req.ParentID,
		AuthorID: author.ID,
		Text:     req.Text,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.Observer.Publish(CommentEvent{Type: CommentCreated, Comment: comment, Author: author})
	writeJSON(w, http.StatusCreated, newCommentView(comment, author))
}

func (s *Server) updateComment(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	commentID, err := idParam(r, "commentID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req commentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	comment, err := s.Storage.UpdateComment(r.Context(), userID, commentID, req.Text)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.writeCommentChange(w, r, CommentUpdated, comment)
}

func (s *Server) deleteComment(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	commentID, err := idParam(r, "commentID")
	if err != nil {
		writeError(w, r, err)
		return
	}

	comment, err := s.Storage.DeleteComment(r.Context(), userID, commentID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.writeCommentChange(w, r, CommentDeleted, comment)
}

func (s *Server) writeCommentChange(w http.ResponseWriter, r *http.Request, typ CommentEventType, comment *domain.Comment) {
	author, err := dataloader.For(r.Context()).ProfileThunk(r.Context(), comment.AuthorID)()
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.Observer.Publish(CommentEvent{Type: typ, Comment: comment, Author: author})
	writeJSON(w, http.StatusOK, newCommentView(comment, author))
}

type liveEvent struct {
	Type    CommentEventType `json:"type"`
	Comment *commentView     `json:"comment"`
}

const writeWait = 5 * time.Second

// liveComments отдает по websocket изменения комментариев поста.
func (s *Server) liveComments(w http.ResponseWriter, r *http.Request) {
	postID, err := idParam(r, "postID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if _, err := s.visiblePost(r.Context(), postID); err != nil {
		writeError(w, r, err)
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	// Подписываемся до апгрейда, чтобы не пропустить события сразу после рукопожатия
	events := s.Observer.Subscribe(ctx, postID)

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("live comments: upgrade failed for post %d: %v", postID, err)
		return
	}
	defer conn.Close()

	// Чтение нужно только для обработки control-фреймов и закрытия соединения
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(s.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(liveEvent{Type: ev.Type, Comment: newCommentView(ev.Comment, ev.Author)}); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
