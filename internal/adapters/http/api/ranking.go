package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/twobeats/worldcup/pkg/logger"
)

// RankingDependencies defines the interface for ranking reads.
type RankingDependencies interface {
	Ranking(ctx context.Context, limit int) ([]Standing, error)
}

// RankingHandler serves the "most WorldCup wins" ranking.
type RankingHandler struct {
	deps         RankingDependencies
	defaultLimit int
	logger       logger.Logger
}

// NewRankingHandler creates a new ranking handler.
func NewRankingHandler(deps RankingDependencies, defaultLimit int, l logger.Logger) *RankingHandler {
	return &RankingHandler{deps: deps, defaultLimit: defaultLimit, logger: l}
}

type rankingRow struct {
	Standing
	WinRate float64 `json:"win_rate"`
}

// HandleGetRanking handles GET /worldcup/ranking?limit=N.
func (h *RankingHandler) HandleGetRanking(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_ranking"
	n := h.defaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			fail(r.Context(), w, h.logger, WrapKind(op, ErrBadRequest, fmt.Errorf("limit %q is not a number", raw)))
			return
		}
		n = v
	}

	rows, err := h.deps.Ranking(r.Context(), n)
	if err != nil {
		fail(r.Context(), w, h.logger, Wrap(op, err))
		return
	}
	out := make([]rankingRow, len(rows))
	for i, st := range rows {
		out[i] = rankingRow{Standing: st, WinRate: st.WinRate()}
	}
	writeJSON(w, http.StatusOK, out)
}
