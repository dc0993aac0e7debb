package api

import (
	"net/http"
	"time"

	"github.com/UkralStul/social-blog-service/internal/domain"
	"github.com/UkralStul/social-blog-service/internal/storage"
	"github.com/go-chi/chi/v5"
)

type profileRequest struct {
	Name     string `json:"name"`
	About    string `json:"about"`
	Birthday string `json:"birthday"`
}

func (req profileRequest) birthday() (*time.Time, error) {
	if req.Birthday == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, req.Birthday)
	if err != nil {
		return nil, domain.NewValidationError("birthday", "must be a date in YYYY-MM-DD format")
	}
	return &t, nil
}

type profilePageResponse struct {
	Profile *profileView       `json:"profile"`
	Stats   domain.FollowStats `json:"stats"`
}

func (s *Server) listOwnProfiles(w http.ResponseWriter, r *http.Request) {
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
	writeJSON(w, http.StatusOK, newProfileViews(profiles))
}

func (s *Server) listAllProfiles(w http.ResponseWriter, r *http.Request) {
	page, err := pageParams(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	profiles, err := s.Storage.GetProfiles(r.Context(), page)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newProfileViews(profiles))
}

func (s *Server) getProfile(w http.ResponseWriter, r *http.Request) {
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
	writeJSON(w, http.StatusOK, profilePageResponse{Profile: newProfileView(p), Stats: stats})
}

func (s *Server) createProfile(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req profileRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	birthday, err := req.birthday()
	if err != nil {
		writeError(w, r, err)
		return
	}

	p, err := s.Storage.CreateProfile(r.Context(), &domain.Profile{
		UserID:   userID,
		Name:     req.Name,
		About:    req.About,
		Birthday: birthday,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newProfileView(p))
}

func (s *Server) updateProfile(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req profileRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	birthday, err := req.birthday()
	if err != nil {
		writeError(w, r, err)
		return
	}

	p, err := s.Storage.UpdateProfile(r.Context(), userID, chi.URLParam(r, "slug"), storage.ProfileUpdate{
		Name:     req.Name,
		About:    req.About,
		Birthday: birthday,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newProfileView(p))
}

func (s *Server) deleteProfile(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.Storage.DeleteProfile(r.Context(), userID, chi.URLParam(r, "slug")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) activateProfile(w http.ResponseWriter, r *http.Request) {
	p, err := s.ownProfile(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	active, err := s.Storage.SwitchActiveProfile(r.Context(), p.UserID, p.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newProfileView(active))
}
