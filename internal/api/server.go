package api

import (
	"context"
	"net/http"
	"time"

	"github.com/UkralStul/social-blog-service/internal/auth"
	"github.com/UkralStul/social-blog-service/internal/dataloader"
	"github.com/UkralStul/social-blog-service/internal/domain"
	"github.com/UkralStul/social-blog-service/internal/storage"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
)

// Server содержит зависимости HTTP-обработчиков.
type Server struct {
	Storage  storage.Storage
	Issuer   *auth.Issuer
	Observer *CommentObserver

	upgrader     websocket.Upgrader
	pingInterval time.Duration
}

func NewServer(store storage.Storage, issuer *auth.Issuer) *Server {
	return &Server{
		Storage:  store,
		Issuer:   issuer,
		Observer: NewCommentObserver(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		pingInterval: 10 * time.Second,
	}
}

// Routes собирает роутер со всеми эндпоинтами.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(auth.Middleware(s.Issuer))
	r.Use(func(next http.Handler) http.Handler {
		return dataloader.Middleware(s.Storage, next)
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/register", s.register)
	r.Post("/login", s.login)
	r.Post("/logout", s.logout)

	// Чтение доступно анонимно
	r.Get("/posts", s.listPosts)
	r.Get("/posts/{postID}", s.getPost)
	r.Get("/posts/{postID}/comments", s.listComments)
	r.Get("/posts/{postID}/comments/live", s.liveComments)
	r.Get("/tags/{tagSlug}/posts", s.listPostsByTag)
	r.Get("/all-profiles", s.listAllProfiles)
	r.Get("/profiles/{slug}", s.getProfile)
	r.Get("/profiles/{slug}/posts", s.listProfilePosts)
	r.Get("/profiles/{slug}/followers", s.listFollowers)
	r.Get("/profiles/{slug}/following", s.listFollowing)
	r.Get("/profiles/{slug}/follow-stats", s.followStats)

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireUser)

		r.Get("/me", s.me)
		r.Get("/my-posts", s.listOwnPosts)

		r.Get("/profiles", s.listOwnProfiles)
		r.Post("/profiles", s.createProfile)
		r.Put("/profiles/{slug}", s.updateProfile)
		r.Delete("/profiles/{slug}", s.deleteProfile)
		r.Post("/profiles/{slug}/activate", s.activateProfile)

		r.Get("/profiles/{slug}/follow", s.isFollowing)
		r.Post("/profiles/{slug}/follow", s.follow)
		r.Delete("/profiles/{slug}/follow", s.unfollow)

		r.Post("/posts", s.createPost)
		r.Put("/posts/{postID}", s.updatePost)
		r.Delete("/posts/{postID}", s.deletePost)

		r.Post("/posts/{postID}/comments", s.createComment)
		r.Put("/comments/{commentID}", s.updateComment)
		r.Delete("/comments/{commentID}", s.deleteComment)

		r.Post("/posts/{postID}/reactions/{value}", s.togglePostReaction)
		r.Post("/comments/{commentID}/reactions/{value}", s.toggleCommentReaction)
	})

	return r
}

func currentUser(ctx context.Context) (int64, error) {
	userID, ok := auth.UserID(ctx)
	if !ok {
		return 0, domain.ErrUnauthenticated
	}
	return userID, nil
}

// actingProfile возвращает активный профиль текущего пользователя.
func (s *Server) actingProfile(ctx context.Context) (*domain.Profile, error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	return s.Storage.ActiveProfile(ctx, userID)
}

// ownProfile находит профиль по slug среди профилей текущего пользователя.
func (s *Server) ownProfile(ctx context.Context, slug string) (*domain.Profile, error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	p, err := s.Storage.GetProfileBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if p.UserID != userID {
		return nil, domain.ErrNotFound
	}
	return p, nil
}
