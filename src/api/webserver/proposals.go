package webserver

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/jagnani73/daoscape-sub001/src/api/data"
	"github.com/jagnani73/daoscape-sub001/src/api/governance"
	"github.com/jagnani73/daoscape-sub001/src/api/merits"
	"github.com/jagnani73/daoscape-sub001/src/api/types"
)

type Proposals struct {
	db      *gorm.DB
	rdb     *redis.Client
	merits  *merits.Client
	locks   *governance.Locks
	coldURL string
}

func NewProposals(db *gorm.DB, rdb *redis.Client, mc *merits.Client, locks *governance.Locks, coldURL string) Proposals {
	return Proposals{db: db, rdb: rdb, merits: mc, locks: locks, coldURL: coldURL}
}

func (p Proposals) Create(c *gin.Context) {
	var req struct {
		Title       string    `json:"title" binding:"required"`
		Description string    `json:"description" binding:"required"`
		DAOID       *string   `json:"dao_id"`
		VotingStart time.Time `json:"voting_start" binding:"required"`
		VotingEnd   time.Time `json:"voting_end" binding:"required"`
		FeedbackEnd time.Time `json:"feedback_end" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}

	now := time.Now()
	switch {
	case !req.VotingStart.After(now):
		respondValidation(c, fmt.Errorf("voting_start must be in the future"))
		return
	case !req.VotingEnd.After(req.VotingStart):
		respondValidation(c, fmt.Errorf("voting_end must be after voting_start"))
		return
	case !req.FeedbackEnd.After(req.VotingEnd):
		respondValidation(c, fmt.Errorf("feedback_end must be after voting_end"))
		return
	}

	if req.DAOID != nil {
		var dao types.DAO
		if err := p.db.First(&dao, "id = ?", *req.DAOID).Error; err != nil {
			respondErr(c, http.StatusNotFound, "dao not found")
			return
		}
	}

	proposal := types.Proposal{
		ID:          uuid.NewString(),
		DAOID:       req.DAOID,
		Title:       req.Title,
		Description: req.Description,
		VotingStart: req.VotingStart,
		VotingEnd:   req.VotingEnd,
		FeedbackEnd: req.FeedbackEnd,
		VotingHouse: governance.AssignHouse(),
	}
	if err := p.db.Create(&proposal).Error; err != nil {
		respondErr(c, http.StatusInternalServerError, err.Error())
		return
	}
	respondOK(c, http.StatusCreated, proposal)
}

func (p Proposals) Get(c *gin.Context) {
	var proposal types.Proposal
	if err := p.db.First(&proposal, "id = ?", c.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondErr(c, http.StatusNotFound, "proposal not found")
			return
		}
		respondErr(c, http.StatusInternalServerError, err.Error())
		return
	}
	respondOK(c, http.StatusOK, proposal)
}

func (p Proposals) ListByDAO(c *gin.Context) {
	var proposals []types.Proposal
	if err := p.db.Where("dao_id = ?", c.Param("id")).
		Order("voting_start desc").Find(&proposals).Error; err != nil {
		respondErr(c, http.StatusInternalServerError, err.Error())
		return
	}
	respondOK(c, http.StatusOK, proposals)
}

// Conclude runs the one-way OPEN -> CONCLUDED transition for one phase of a
// proposal. The feedback phase additionally settles reputation and merits.
func (p Proposals) Conclude(c *gin.Context) {
	var req struct {
		ProposalID string `json:"proposal_id" binding:"required"`
		IsFeedback *bool  `json:"is_feedback" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}
	isFeedback := *req.IsFeedback

	release := p.locks.Acquire(req.ProposalID)
	defer release()

	var proposal types.Proposal
	if err := p.db.First(&proposal, "id = ?", req.ProposalID).Error; err != nil {
		respondErr(c, http.StatusNotFound, "proposal not found")
		return
	}

	concluded := proposal.Conclusion
	phaseEnd := proposal.VotingEnd
	column := "conclusion"
	if isFeedback {
		concluded = proposal.FeedbackConclusion
		phaseEnd = proposal.FeedbackEnd
		column = "feedback_conclusion"
	}
	if concluded != nil {
		respondErr(c, http.StatusBadRequest, "proposal already concluded")
		return
	}
	if time.Now().Before(phaseEnd) {
		respondErr(c, http.StatusBadRequest, "proposal has not ended yet")
		return
	}

	// Binding tallies are scoped to the proposal's house; feedback is
	// DAO-wide.
	house := ""
	if !isFeedback {
		house = proposal.VotingHouse
	}
	votes, err := votesForPhase(p.db, proposal, isFeedback, house)
	if err != nil {
		respondErr(c, http.StatusInternalServerError, err.Error())
		return
	}

	winner := governance.TallyVotes(votes).Winner()
	if err := p.db.Model(&proposal).Update(column, winner).Error; err != nil {
		respondErr(c, http.StatusInternalServerError, err.Error())
		return
	}
	if err := p.db.First(&proposal, "id = ?", proposal.ID).Error; err != nil {
		respondErr(c, http.StatusInternalServerError, err.Error())
		return
	}

	go p.announce(proposal, isFeedback, winner)
	go shipToColdStorage(p.coldURL, proposal)

	if !isFeedback {
		respondOK(c, http.StatusOK, proposal)
		return
	}

	receipt := p.settleRewards(c, proposal, votes, winner)
	respondOK(c, http.StatusOK, gin.H{"merits": receipt, "proposal": proposal})
}

// settleRewards applies the feedback-phase side effects after the conclusion
// write has committed. Reputation moves for both sides; merits go to the
// winning side only. A dispatcher failure is logged, never rolled back.
func (p Proposals) settleRewards(ctx context.Context, proposal types.Proposal, votes []types.Vote, winner string) *merits.DistributeReceipt {
	winning, losing := governance.Sides(votes, winner)

	changes := make([]types.ReputationChange, 0, len(winning)+len(losing))
	daoID := ""
	if proposal.DAOID != nil {
		daoID = *proposal.DAOID
	}
	for _, v := range winning {
		changes = append(changes, types.ReputationChange{
			MemberAddress: v.MemberAddress, DAOID: daoID, Change: types.ReputationWin,
		})
	}
	for _, v := range losing {
		changes = append(changes, types.ReputationChange{
			MemberAddress: v.MemberAddress, DAOID: daoID, Change: types.ReputationLoss,
		})
	}
	if err := applyReputationChanges(p.db, changes); err != nil {
		log.Printf("reputation update for proposal %s: %v", proposal.ID, err)
	}

	if p.merits == nil || len(winning) == 0 {
		return nil
	}
	addresses := make([]string, 0, len(winning))
	for _, v := range winning {
		addresses = append(addresses, v.MemberAddress)
	}
	dists, total := merits.BuildDistributions(addresses, types.ProposalMeritReward)
	receipt, err := p.merits.Distribute(ctx, merits.DistributeRequest{
		ID:                    fmt.Sprintf("%s::%s::%d", daoID, proposal.ID, time.Now().Unix()),
		Description:           fmt.Sprintf("Feedback rewards for proposal %s", proposal.Title),
		Distributions:         dists,
		CreateMissingAccounts: true,
		ExpectedTotal:         total,
	})
	if err != nil {
		log.Printf("merit distribution for proposal %s: %v", proposal.ID, err)
		return nil
	}
	return receipt
}

func (p Proposals) announce(proposal types.Proposal, isFeedback bool, winner string) {
	if p.rdb == nil {
		return
	}
	err := data.PublishConclusion(context.Background(), p.rdb, map[string]interface{}{
		"proposal_id": proposal.ID,
		"is_feedback": isFeedback,
		"result":      winner,
		"time":        time.Now().Unix(),
	})
	if err != nil {
		log.Printf("publish conclusion for proposal %s: %v", proposal.ID, err)
	}
}
