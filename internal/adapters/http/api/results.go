package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/twobeats/worldcup/internal/domain/model"
	"github.com/twobeats/worldcup/pkg/logger"
)

// ResultDependencies defines the submit operation the handler needs.
type ResultDependencies interface {
	SubmitResult(ctx context.Context, result model.TournamentResult) (model.CommitOutcome, error)
}

// ResultsHandler accepts finished tournaments.
type ResultsHandler struct {
	deps   ResultDependencies
	auth   *Authenticator
	logger logger.Logger
}

// NewResultsHandler creates a new results handler.
func NewResultsHandler(deps ResultDependencies, auth *Authenticator, l logger.Logger) *ResultsHandler {
	return &ResultsHandler{deps: deps, auth: auth, logger: l}
}

type resultEntry struct {
	MusicID uint64 `json:"music_id" validate:"required"`
	Rank    int    `json:"rank" validate:"required,min=1"`
}

// submitRequest mirrors the OpenAPI schema for POST /worldcup/results.
type submitRequest struct {
	BracketID   string        `json:"bracket_id" validate:"required,max=64"`
	UserUID     string        `json:"user_uid" validate:"omitempty,uuid"`
	TotalRounds int           `json:"total_rounds" validate:"gte=0"`
	Results     []resultEntry `json:"results" validate:"required,min=1,max=1024,dive"`
	Picks       []uint64      `json:"picks" validate:"omitempty,max=1023"`
}

type submitResponse struct {
	Accepted  bool   `json:"accepted"`
	BracketID string `json:"bracket_id"`
	Champion  uint64 `json:"champion"`
}

type rejectedResponse struct {
	Accepted bool `json:"accepted"`
	errorResponse
}

// HandleSubmit handles POST /worldcup/results.
func (h *ResultsHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	const op = "api.submit_result"
	ctx := r.Context()

	subject, err := h.auth.Subject(r)
	if err != nil {
		fail(ctx, w, h.logger, Wrap(op, err))
		return
	}
	var req submitRequest
	if err := decodeJSON(w, r, op, &req); err != nil {
		fail(ctx, w, h.logger, err)
		return
	}

	out, err := h.deps.SubmitResult(ctx, req.toModel(subject))
	if errors.Is(err, model.ErrDuplicateSubmission) {
		status, code := statusFor(err)
		writeJSON(w, status, rejectedResponse{
			Accepted:      false,
			errorResponse: errorResponse{Code: code, Message: Wrap(op, err).Error()},
		})
		return
	}
	if err != nil {
		fail(ctx, w, h.logger, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, submitResponse{
		Accepted:  true,
		BracketID: out.BracketID,
		Champion:  uint64(out.Champion),
	})
}

func (req submitRequest) toModel(subject string) model.TournamentResult {
	result := model.TournamentResult{
		BracketID:   req.BracketID,
		Participant: model.Participant{UserID: subject, AnonID: req.UserUID},
		TotalRounds: req.TotalRounds,
		Entries:     make([]model.Entry, len(req.Results)),
	}
	for i, e := range req.Results {
		result.Entries[i] = model.Entry{CandidateID: model.CandidateID(e.MusicID), Rank: e.Rank}
	}
	if len(req.Picks) > 0 {
		result.Picks = make([]model.CandidateID, len(req.Picks))
		for i, p := range req.Picks {
			result.Picks[i] = model.CandidateID(p)
		}
	}
	return result
}
