package app

import "portal-score-service/internal/domain"

// VoteResult carries the recomputed vote sets and derived net points that get
// written back to the store after a toggle.
type VoteResult struct {
	Upvotes   []string
	Downvotes []string
	Points    int
}

// ToggleVote applies one vote action. Voting in the direction already held
// retracts the vote; voting the opposite direction moves it. A voter id never
// ends up in both sets.
func ToggleVote(upvotes, downvotes []string, voterID string, dir domain.VoteDirection) VoteResult {
	ups := removeID(upvotes, voterID)
	downs := removeID(downvotes, voterID)

	switch dir {
	case domain.VoteDown:
		if !containsID(downvotes, voterID) {
			downs = append(downs, voterID)
		}
	default:
		if !containsID(upvotes, voterID) {
			ups = append(ups, voterID)
		}
	}

	return VoteResult{
		Upvotes:   ups,
		Downvotes: downs,
		Points:    len(ups) - len(downs),
	}
}

func containsID(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func removeID(ids []string, id string) []string {
	out := make([]string, 0, len(ids))
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
