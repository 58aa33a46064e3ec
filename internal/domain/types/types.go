// Package types contains common types used across the application
package types

// Standing represents a popularity leaderboard row.
type Standing struct {
	Rank        int    `json:"rank"`
	CandidateID uint64 `json:"candidate_id"`
	Wins        int64  `json:"wins"`
	Appearances int64  `json:"appearances"`
	BestFinish  int    `json:"best_finish"`
}

// WinRate returns wins per appearance, or 0 for a candidate never played.
func (s Standing) WinRate() float64 {
	if s.Appearances == 0 {
		return 0
	}
	return float64(s.Wins) / float64(s.Appearances)
}
