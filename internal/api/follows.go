package api

import (
	"net/http"

	"github.com/UkralStul/social-blog-service/internal/domain"
	"github.com/go-chi/chi/v5"
)

type followResponse struct {
	Following bool               `json:"following"`
	Stats     domain.FollowStats `json:"stats"`
}

// followPair возвращает активный профиль (отправитель) и профиль из URL (получатель).
func (s *Server) followPair(r *http.Request) (*domain.Profile, *domain.Profile, error) {
	sender, err := s.actingProfile(r.Context())
	if err != nil {
		return nil, nil, err
	}
	recipient, err := s.Storage.GetProfileBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		return nil, nil, err
	}
	return sender, recipient, nil
}

func (s *Server) follow(w http.ResponseWriter, r *http.Request) {
	sender, recipient, err := s.followPair(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if _, err := s.Storage.Follow(r.Context(), sender.ID, recipient.ID); err != nil {
		writeError(w, r, err)
		return
	}
	s.writeFollowState(w, r, true, recipient.ID)
}

func (s *Server) unfollow(w http.ResponseWriter, r *http.Request) {
	sender, recipient, err := s.followPair(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.Storage.Unfollow(r.Context(), sender.ID, recipient.ID); err != nil {
		writeError(w, r, err)
		return
	}
	s.writeFollowState(w, r, false, recipient.ID)
}

func (s *Server) isFollowing(w http.ResponseWriter, r *http.Request) {
	sender, recipient, err := s.followPair(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	following, err := s.Storage.IsFollowing(r.Context(), sender.ID, recipient.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.writeFollowState(w, r, following, recipient.ID)
}

func (s *Server) writeFollowState(w http.ResponseWriter, r *http.Request, following bool, recipientID int64) {
	stats, err := s.Storage.GetFollowStats(r.Context(), recipientID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, followResponse{Following: following, Stats: stats})
}

func (s *Server) listFollowers(w http.ResponseWriter, r *http.Request) {
	p, err := s.Storage.GetProfileBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	followers, err := s.Storage.GetFollowers(r.Context(), p.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newProfileViews(followers))
}

func (s *Server) listFollowing(w http.ResponseWriter, r *http.Request) {
	p, err := s.Storage.GetProfileBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	following, err := s.Storage.GetFollowing(r.Context(), p.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newProfileViews(following))
}

func (s *Server) followStats(w http.ResponseWriter, r *http.Request) {
	p, err := s.Storage.GetProfileBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	stats, err := s.Storage.GetFollowStats(r.Context(), p.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
