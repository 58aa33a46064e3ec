package model

import "errors"

// Domain errors shared by selector, validator, store and API.
var (
	ErrInvalidBracketSize       = errors.New("invalid bracket size")
	ErrInsufficientCandidates   = errors.New("insufficient candidates")
	ErrBracketMismatch          = errors.New("bracket mismatch")
	ErrCandidateSetMismatch     = errors.New("candidate set mismatch")
	ErrRankDistributionMismatch = errors.New("rank distribution mismatch")
	ErrPickMismatch             = errors.New("pick mismatch")
	ErrAmbiguousParticipant     = errors.New("ambiguous participant")
	ErrDuplicateSubmission      = errors.New("duplicate submission")
	ErrInvalidInput             = errors.New("invalid input")
	ErrNotFound                 = errors.New("not found")
)

// Kind classifies an error for callers that map errors to transport codes.
type Kind uint8

// Error kinds.
const (
	KindInternal Kind = iota
	KindInput
	KindConsistency
	KindConflict
	KindResource
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindInput:
		return "input"
	case KindConsistency:
		return "consistency"
	case KindConflict:
		return "conflict"
	case KindResource:
		return "resource"
	case KindNotFound:
		return "not_found"
	default:
		return "internal"
	}
}

var kinds = []struct {
	err  error
	kind Kind
}{
	{ErrInvalidBracketSize, KindInput},
	{ErrInvalidInput, KindInput},
	{ErrAmbiguousParticipant, KindInput},
	{ErrBracketMismatch, KindConsistency},
	{ErrCandidateSetMismatch, KindConsistency},
	{ErrRankDistributionMismatch, KindConsistency},
	{ErrPickMismatch, KindConsistency},
	{ErrDuplicateSubmission, KindConflict},
	{ErrInsufficientCandidates, KindResource},
	{ErrNotFound, KindNotFound},
}

// KindOf returns the kind of the first domain sentinel wrapped by err.
func KindOf(err error) Kind {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindInternal
}
