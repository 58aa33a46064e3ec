package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/twobeats/worldcup/internal/domain/bracket"
	"github.com/twobeats/worldcup/internal/domain/model"
	"github.com/twobeats/worldcup/pkg/logger"
)

// BracketDependencies defines the bracket operations the handler needs.
type BracketDependencies interface {
	IssueBracket(ctx context.Context, f model.Filter, size int) (model.IssuedBracket, error)
	GetBracket(ctx context.Context, id string) (model.BracketSpec, error)
}

// BracketsHandler issues and looks up brackets.
type BracketsHandler struct {
	deps   BracketDependencies
	logger logger.Logger
}

// NewBracketsHandler creates a new brackets handler.
func NewBracketsHandler(deps BracketDependencies, l logger.Logger) *BracketsHandler {
	return &BracketsHandler{deps: deps, logger: l}
}

type issueRequest struct {
	Genre string `json:"genre" validate:"omitempty,max=32"`
	Tag   string `json:"tag" validate:"omitempty,max=64"`
	Size  int    `json:"size"`
}

type candidateResponse struct {
	ID           uint64   `json:"id"`
	Title        string   `json:"title,omitempty"`
	Artist       string   `json:"artist,omitempty"`
	Genre        string   `json:"genre,omitempty"`
	Tags         []string `json:"tags,omitempty"`
	ThumbnailURL string   `json:"thumbnail_url,omitempty"`
	FileURL      string   `json:"file_url,omitempty"`
}

// matchResponse carries home and away only for the first round; later
// pairings depend on the participant's picks.
type matchResponse struct {
	Round int     `json:"round"`
	Index int     `json:"index"`
	Home  *uint64 `json:"home,omitempty"`
	Away  *uint64 `json:"away,omitempty"`
}

type bracketResponse struct {
	BracketID string              `json:"bracket_id"`
	Size      int                 `json:"size"`
	Rounds    int                 `json:"rounds"`
	Slots     []candidateResponse `json:"slots"`
	Matches   []matchResponse     `json:"matches"`
	IssuedAt  time.Time           `json:"issued_at"`
	ExpiresAt *time.Time          `json:"expires_at,omitempty"`
}

// HandleIssue handles POST /worldcup/brackets.
func (h *BracketsHandler) HandleIssue(w http.ResponseWriter, r *http.Request) {
	const op = "api.issue_bracket"
	var req issueRequest
	if err := decodeJSON(w, r, op, &req); err != nil {
		fail(r.Context(), w, h.logger, err)
		return
	}
	genre, ok := model.ParseGenre(req.Genre)
	if !ok {
		fail(r.Context(), w, h.logger, WrapKind(op, ErrBadRequest, fmt.Errorf("unknown genre %q", req.Genre)))
		return
	}

	issued, err := h.deps.IssueBracket(r.Context(), model.Filter{Genre: genre, Tag: req.Tag}, req.Size)
	if err != nil {
		fail(r.Context(), w, h.logger, Wrap(op, err))
		return
	}
	expires := utc(issued.ExpiresAt)
	writeJSON(w, http.StatusCreated, toBracketResponse(issued.Spec, &expires))
}

// HandleGet handles GET /worldcup/brackets/{id}.
func (h *BracketsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_bracket"
	spec, err := h.deps.GetBracket(r.Context(), r.PathValue("id"))
	if err != nil {
		fail(r.Context(), w, h.logger, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, toBracketResponse(spec, nil))
}

func toBracketResponse(spec model.BracketSpec, expires *time.Time) bracketResponse {
	resp := bracketResponse{
		BracketID: spec.ID,
		Size:      spec.Size,
		Rounds:    spec.Rounds(),
		Slots:     make([]candidateResponse, len(spec.Slots)),
		Matches:   make([]matchResponse, 0, bracket.MatchCount(spec.Size)),
		IssuedAt:  utc(spec.IssuedAt),
		ExpiresAt: expires,
	}
	for i, id := range spec.Slots {
		c := candidateResponse{ID: uint64(id)}
		if i < len(spec.Candidates) && spec.Candidates[i].ID == id {
			cand := spec.Candidates[i]
			c.Title, c.Artist, c.Genre = cand.Title, cand.Artist, string(cand.Genre)
			c.Tags, c.ThumbnailURL, c.FileURL = cand.Tags, cand.ThumbnailURL, cand.FileURL
		}
		resp.Slots[i] = c
	}
	for m := range bracket.Schedule(spec) {
		mr := matchResponse{Round: m.Round, Index: m.Index}
		if m.Round == 0 {
			home, away := uint64(m.Home), uint64(m.Away)
			mr.Home, mr.Away = &home, &away
		}
		resp.Matches = append(resp.Matches, mr)
	}
	return resp
}
