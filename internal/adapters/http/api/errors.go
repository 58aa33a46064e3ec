package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/twobeats/worldcup/internal/domain/model"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest   = errors.New("bad request")
	ErrUnauthorized = errors.New("unauthorized")
	ErrRateLimited  = errors.New("rate limited")
)

// OpError records the handler operation that failed, the error kind the
// client sees, and the underlying cause.
type OpError struct {
	Op   string
	Kind error
	Err  error
}

func (e *OpError) Error() string {
	var parts []string
	if e.Kind != nil {
		parts = append(parts, e.Kind.Error())
	}
	if e.Err != nil {
		parts = append(parts, e.Err.Error())
	}
	if len(parts) == 0 {
		return e.Op
	}
	return e.Op + ": " + strings.Join(parts, ": ")
}

// Unwrap exposes both the kind and the cause to errors.Is.
func (e *OpError) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.Kind != nil {
		out = append(out, e.Kind)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

// Wrap annotates err with op.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &OpError{Op: op, Err: err}
}

// NewKind builds an error of the given kind with no further cause.
func NewKind(op string, kind error) error {
	return &OpError{Op: op, Kind: kind}
}

// WrapKind builds an error of the given kind caused by err.
func WrapKind(op string, kind, err error) error {
	return &OpError{Op: op, Kind: kind, Err: err}
}

type errorMapping struct {
	err    error
	status int
	code   string
}

// errorMappings is the only place errors become HTTP statuses and codes.
var errorMappings = []errorMapping{
	{ErrUnauthorized, http.StatusUnauthorized, "unauthorized"},
	{ErrRateLimited, http.StatusTooManyRequests, "rate_limited"},
	{model.ErrInvalidBracketSize, http.StatusBadRequest, "invalid_bracket_size"},
	{model.ErrInsufficientCandidates, http.StatusConflict, "insufficient_candidates"},
	{model.ErrBracketMismatch, http.StatusNotFound, "bracket_mismatch"},
	{model.ErrCandidateSetMismatch, http.StatusUnprocessableEntity, "candidate_set_mismatch"},
	{model.ErrRankDistributionMismatch, http.StatusUnprocessableEntity, "rank_distribution_mismatch"},
	{model.ErrPickMismatch, http.StatusUnprocessableEntity, "pick_mismatch"},
	{model.ErrAmbiguousParticipant, http.StatusBadRequest, "ambiguous_participant"},
	{model.ErrDuplicateSubmission, http.StatusConflict, "duplicate_submission"},
	{model.ErrNotFound, http.StatusNotFound, "not_found"},
	{model.ErrInvalidInput, http.StatusBadRequest, "bad_request"},
	{ErrBadRequest, http.StatusBadRequest, "bad_request"},
}

// statusFor maps err to an HTTP status and a stable error code.
func statusFor(err error) (int, string) {
	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			return m.status, m.code
		}
	}
	return http.StatusInternalServerError, "internal_error"
}
