package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/twobeats/worldcup/internal/domain/model"
	"github.com/twobeats/worldcup/pkg/logger"
)

// CandidateDependencies defines the per-candidate reads.
type CandidateDependencies interface {
	CandidateStats(ctx context.Context, id model.CandidateID) (model.CandidateStats, error)
	Standing(ctx context.Context, id model.CandidateID) (Standing, error)
}

// CandidatesHandler serves per-candidate statistics.
type CandidatesHandler struct {
	deps   CandidateDependencies
	logger logger.Logger
}

// NewCandidatesHandler creates a new candidates handler.
func NewCandidatesHandler(deps CandidateDependencies, l logger.Logger) *CandidatesHandler {
	return &CandidatesHandler{deps: deps, logger: l}
}

type candidateStatsResponse struct {
	CandidateID uint64    `json:"candidate_id"`
	Appearances int64     `json:"appearances"`
	Wins        int64     `json:"wins"`
	BestFinish  int       `json:"best_finish"`
	WinRate     float64   `json:"win_rate"`
	Rank        *int      `json:"rank,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// HandleGetStats handles GET /worldcup/candidates/{id}/stats.
func (h *CandidatesHandler) HandleGetStats(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_candidate_stats"
	raw := r.PathValue("id")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		fail(r.Context(), w, h.logger, WrapKind(op, ErrBadRequest, fmt.Errorf("candidate id %q", raw)))
		return
	}

	st, err := h.deps.CandidateStats(r.Context(), model.CandidateID(id))
	if err != nil {
		fail(r.Context(), w, h.logger, Wrap(op, err))
		return
	}
	resp := candidateStatsResponse{
		CandidateID: uint64(st.CandidateID),
		Appearances: st.Appearances,
		Wins:        st.Wins,
		BestFinish:  st.BestFinish,
		UpdatedAt:   utc(st.UpdatedAt),
	}
	if st.Appearances > 0 {
		resp.WinRate = float64(st.Wins) / float64(st.Appearances)
	}
	// The leaderboard is projected asynchronously, so a fresh candidate may have no rank yet.
	if standing, err := h.deps.Standing(r.Context(), st.CandidateID); err == nil {
		resp.Rank = &standing.Rank
	}
	writeJSON(w, http.StatusOK, resp)
}
