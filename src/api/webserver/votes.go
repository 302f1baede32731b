package webserver

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/jagnani73/daoscape-sub001/src/api/governance"
	"github.com/jagnani73/daoscape-sub001/src/api/types"
)

type Votes struct {
	db    *gorm.DB
	locks *governance.Locks
}

func NewVotes(db *gorm.DB, locks *governance.Locks) Votes {
	return Votes{db: db, locks: locks}
}

func (v Votes) Cast(c *gin.Context) {
	var req struct {
		ProposalID    string `json:"proposal_id" binding:"required"`
		WalletAddress string `json:"wallet_address" binding:"required"`
		Vote          string `json:"vote" binding:"required,oneof=YES NO ABSTAIN"`
		IsFeedback    *bool  `json:"is_feedback" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}
	addr, err := normalizeAddress(req.WalletAddress)
	if err != nil {
		respondErr(c, http.StatusBadRequest, err.Error())
		return
	}
	isFeedback := *req.IsFeedback

	release := v.locks.Acquire(req.ProposalID)
	defer release()

	var proposal types.Proposal
	if err := v.db.First(&proposal, "id = ?", req.ProposalID).Error; err != nil {
		respondErr(c, http.StatusNotFound, "proposal not found")
		return
	}

	var existing types.Vote
	err = v.db.First(&existing,
		"proposal_id = ? AND member_address = ? AND is_feedback = ?",
		proposal.ID, addr, isFeedback).Error
	if err == nil {
		respondErr(c, http.StatusBadRequest, "already voted on this proposal")
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		respondErr(c, http.StatusInternalServerError, err.Error())
		return
	}

	// Unattached proposals have no membership to check.
	if proposal.DAOID != nil {
		var membership types.Membership
		if err := v.db.First(&membership,
			"dao_id = ? AND member_address = ?", *proposal.DAOID, addr).Error; err != nil {
			respondErr(c, http.StatusBadRequest, "not a member of this proposal's dao")
			return
		}
	}

	now := time.Now()
	if isFeedback {
		if now.After(proposal.FeedbackEnd) {
			respondErr(c, http.StatusBadRequest, "feedback has ended")
			return
		}
	} else {
		if now.Before(proposal.VotingStart) {
			respondErr(c, http.StatusBadRequest, "voting has not started yet")
			return
		}
		if now.After(proposal.VotingEnd) {
			respondErr(c, http.StatusBadRequest, "voting has ended")
			return
		}
	}

	if _, err := upsertMember(v.db, addr); err != nil {
		respondErr(c, http.StatusInternalServerError, err.Error())
		return
	}

	// Weight is fixed per phase, never taken from the payload.
	weight := types.WeightBinding
	if isFeedback {
		weight = types.WeightFeedback
	}

	vote := types.Vote{
		ProposalID:    proposal.ID,
		MemberAddress: addr,
		IsFeedback:    isFeedback,
		DAOID:         proposal.DAOID,
		Value:         req.Vote,
		Weight:        weight,
	}
	if err := v.db.Create(&vote).Error; err != nil {
		// The unique index catches a concurrent duplicate.
		respondCreateErr(c, err, "already voted on this proposal")
		return
	}
	respondOK(c, http.StatusCreated, vote)
}

func (v Votes) ListByProposal(c *gin.Context) {
	isFeedback := c.Query("is_feedback") == "true"
	house := c.Query("house")

	var proposal types.Proposal
	if err := v.db.First(&proposal, "id = ?", c.Param("id")).Error; err != nil {
		respondErr(c, http.StatusNotFound, "proposal not found")
		return
	}

	votes, err := votesForPhase(v.db, proposal, isFeedback, house)
	if err != nil {
		respondErr(c, http.StatusInternalServerError, err.Error())
		return
	}
	respondOK(c, http.StatusOK, votes)
}

// votesForPhase fetches the votes of one phase. A house filter applies to
// the binding phase only; feedback is always DAO-wide. House scoping needs
// the proposal's DAO to resolve each voter's membership.
func votesForPhase(db *gorm.DB, proposal types.Proposal, isFeedback bool, house string) ([]types.Vote, error) {
	q := db.Where("proposal_id = ? AND is_feedback = ?", proposal.ID, isFeedback)
	if !isFeedback && house != "" && proposal.DAOID != nil {
		q = q.Where("member_address IN (?)",
			db.Model(&types.Membership{}).
				Select("member_address").
				Where("dao_id = ? AND house = ?", *proposal.DAOID, house))
	}
	var votes []types.Vote
	if err := q.Find(&votes).Error; err != nil {
		return nil, err
	}
	return votes, nil
}
