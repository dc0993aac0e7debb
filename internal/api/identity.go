package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/UkralStul/social-blog-service/internal/auth"
	"github.com/UkralStul/social-blog-service/internal/domain"
)

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	UserID    int64        `json:"userId"`
	Username  string       `json:"username"`
	Profile   *profileView `json:"profile,omitempty"`
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := domain.ValidateCredentials(req.Username, req.Password); err != nil {
		writeError(w, r, err)
		return
	}
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}

	user, profile, err := s.Storage.CreateUser(r.Context(), &domain.User{Username: req.Username, PasswordHash: hash})
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.issueToken(w, r, http.StatusCreated, user, profile)
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	user, err := s.Storage.GetUserByUsername(r.Context(), req.Username)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		writeError(w, r, err)
		return
	}
	if user == nil || !auth.CheckPasswordHash(user.PasswordHash, req.Password) {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "invalid username or password"})
		return
	}

	profile, err := s.Storage.ActiveProfile(r.Context(), user.ID)
	if err != nil && !errors.Is(err, domain.ErrNoActiveProfile) {
		writeError(w, r, err)
		return
	}
	s.issueToken(w, r, http.StatusOK, user, profile)
}

func (s *Server) issueToken(w http.ResponseWriter, r *http.Request, status int, user *domain.User, profile *domain.Profile) {
	token, expires, err := s.Issuer.Issue(user.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, status, tokenResponse{
		Token:     token,
		ExpiresAt: expires,
		UserID:    user.ID,
		Username:  user.Username,
		Profile:   newProfileView(profile),
	})
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	w.WriteHeader(http.StatusNoContent)
}

type meResponse struct {
	UserID   int64          `json:"userId"`
	Active   *profileView   `json:"active"`
	Profiles []*profileView `json:"profiles"`
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	profiles, err := s.Storage.GetProfilesByUser(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	active, err := s.Storage.ActiveProfile(r.Context(), userID)
	if err != nil && !errors.Is(err, domain.ErrNoActiveProfile) {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, meResponse{
		UserID:   userID,
		Active:   newProfileView(active),
		Profiles: newProfileViews(profiles),
	})
}
