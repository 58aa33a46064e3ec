package simulate

import "fmt"

// verifyRanking checks that rows are ordered by wins and densely ranked:
// equal wins share a rank and each lower total takes the next rank.
func verifyRanking(rows []RankingRow) error {
	for i, r := range rows {
		if r.Wins > r.Appearances {
			return fmt.Errorf("%w: track %d won %d of %d appearances", ErrVerification, r.CandidateID, r.Wins, r.Appearances)
		}
		if i == 0 {
			if r.Rank != 1 {
				return fmt.Errorf("%w: first row has rank %d", ErrVerification, r.Rank)
			}
			continue
		}
		prev := rows[i-1]
		switch {
		case r.Wins > prev.Wins:
			return fmt.Errorf("%w: row %d has more wins than row %d", ErrVerification, i, i-1)
		case r.Wins == prev.Wins && r.Rank != prev.Rank:
			return fmt.Errorf("%w: rows %d and %d tie on wins but rank %d and %d",
				ErrVerification, i-1, i, prev.Rank, r.Rank)
		case r.Wins < prev.Wins && r.Rank != prev.Rank+1:
			return fmt.Errorf("%w: row %d has rank %d after rank %d", ErrVerification, i, r.Rank, prev.Rank)
		}
	}
	return nil
}
