package api

import (
	"net/http"

	"github.com/UkralStul/social-blog-service/internal/dataloader"
	"github.com/UkralStul/social-blog-service/internal/domain"
	"github.com/go-chi/chi/v5"
)

type reactionResponse struct {
	Target  string                `json:"target"`
	Outcome string                `json:"outcome"`
	Value   *string               `json:"value"`
	Counts  domain.ReactionCounts `json:"counts"`
}

func (s *Server) togglePostReaction(w http.ResponseWriter, r *http.Request) {
	postID, err := idParam(r, "postID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.toggleReaction(w, r, domain.PostRef(postID))
}

func (s *Server) toggleCommentReaction(w http.ResponseWriter, r *http.Request) {
	commentID, err := idParam(r, "commentID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.toggleReaction(w, r, domain.CommentRef(commentID))
}

// toggleReaction: нет реакции - создать, другое значение - заменить, то же - удалить.
func (s *Server) toggleReaction(w http.ResponseWriter, r *http.Request, target domain.Target) {
	value, err := domain.ParseReactionValue(chi.URLParam(r, "value"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	profile, err := s.actingProfile(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	result, err := s.Storage.ToggleReaction(r.Context(), profile.ID, target, value)
	if err != nil {
		writeError(w, r, err)
		return
	}

	loaders := dataloader.For(r.Context())
	loaders.ClearReactionCounts(r.Context(), target)
	counts, err := loaders.ReactionCountsThunk(r.Context(), target)()
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := reactionResponse{Target: target.String(), Outcome: result.Outcome.String(), Counts: counts}
	if result.Reaction != nil {
		v := result.Reaction.Value.String()
		resp.Value = &v
	}
	writeJSON(w, http.StatusOK, resp)
}
