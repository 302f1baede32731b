package governance

import (
	"github.com/jagnani73/daoscape-sub001/src/api/types"
)

// Tally is the weighted vote count for one proposal phase.
type Tally struct {
	Yes     int
	No      int
	Abstain int
}

// TallyVotes sums vote weights per value. ABSTAIN is counted but never
// influences the winner.
func TallyVotes(votes []types.Vote) Tally {
	var t Tally
	for _, v := range votes {
		switch v.Value {
		case types.VoteYes:
			t.Yes += v.Weight
		case types.VoteNo:
			t.No += v.Weight
		case types.VoteAbstain:
			t.Abstain += v.Weight
		}
	}
	return t
}

// Winner resolves the tally: YES only on a strictly greater weighted-yes
// total; a tie goes to NO.
func (t Tally) Winner() string {
	if t.Yes > t.No {
		return types.VoteYes
	}
	return types.VoteNo
}

// Sides splits voters into winning and losing sides for a settled value.
// Abstainers sit on neither side.
func Sides(votes []types.Vote, winner string) (winning, losing []types.Vote) {
	for _, v := range votes {
		switch v.Value {
		case winner:
			winning = append(winning, v)
		case types.VoteAbstain:
		default:
			losing = append(losing, v)
		}
	}
	return winning, losing
}
