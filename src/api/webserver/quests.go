package webserver

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jagnani73/daoscape-sub001/src/api/merits"
	"github.com/jagnani73/daoscape-sub001/src/api/types"
)

type Quests struct {
	db     *gorm.DB
	merits *merits.Client
}

func NewQuests(db *gorm.DB, mc *merits.Client) Quests {
	return Quests{db: db, merits: mc}
}

func (q Quests) Create(c *gin.Context) {
	var req struct {
		Title                string  `json:"title" binding:"required"`
		Description          string  `json:"description" binding:"required"`
		DAOID                *string `json:"dao_id"`
		MeritReward          int     `json:"merit_reward"`
		TwitterFollowEnabled bool    `json:"twitter_follow_enabled"`
		TwitterPostEnabled   bool    `json:"twitter_post_enabled"`
		DiscordJoinEnabled   bool    `json:"discord_join_enabled"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}
	if req.DAOID != nil {
		var dao types.DAO
		if err := q.db.First(&dao, "id = ?", *req.DAOID).Error; err != nil {
			respondErr(c, http.StatusNotFound, "dao not found")
			return
		}
	}

	reward := req.MeritReward
	if reward <= 0 {
		reward = types.DefaultQuestMeritReward
	}
	quest := types.Quest{
		ID:                   uuid.NewString(),
		DAOID:                req.DAOID,
		Title:                req.Title,
		Description:          req.Description,
		MeritReward:          reward,
		TwitterFollowEnabled: req.TwitterFollowEnabled,
		TwitterPostEnabled:   req.TwitterPostEnabled,
		DiscordJoinEnabled:   req.DiscordJoinEnabled,
	}
	if err := q.db.Create(&quest).Error; err != nil {
		respondErr(c, http.StatusInternalServerError, err.Error())
		return
	}
	respondOK(c, http.StatusCreated, quest)
}

func (q Quests) Join(c *gin.Context) {
	var req struct {
		QuestID  string `json:"quest_id" binding:"required"`
		MemberID string `json:"member_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}
	addr, err := normalizeAddress(req.MemberID)
	if err != nil {
		respondErr(c, http.StatusBadRequest, err.Error())
		return
	}

	var quest types.Quest
	if err := q.db.First(&quest, "id = ?", req.QuestID).Error; err != nil {
		respondErr(c, http.StatusNotFound, "quest not found")
		return
	}
	var member types.Member
	if err := q.db.First(&member, "address = ?", addr).Error; err != nil {
		respondErr(c, http.StatusNotFound, "member not found")
		return
	}

	var existing types.QuestParticipant
	err = q.db.First(&existing, "quest_id = ? AND member_address = ?", quest.ID, addr).Error
	if err == nil {
		respondErr(c, http.StatusBadRequest, "already joined this quest")
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		respondErr(c, http.StatusInternalServerError, err.Error())
		return
	}

	// A disabled requirement is pre-satisfied.
	participant := types.QuestParticipant{
		QuestID:                quest.ID,
		MemberAddress:          addr,
		TwitterFollowCompleted: !quest.TwitterFollowEnabled,
		TwitterPostCompleted:   !quest.TwitterPostEnabled,
		DiscordJoinCompleted:   !quest.DiscordJoinEnabled,
	}
	if err := q.db.Create(&participant).Error; err != nil {
		respondCreateErr(c, err, "already joined this quest")
		return
	}
	respondOK(c, http.StatusCreated, participant)
}

// UpdateCompletion patches one or more completion flags. When all three are
// true and the participant has not been rewarded, the quest reward is
// dispatched and the one-way rewarded flag set, so replayed all-true patches
// stay reward-neutral.
func (q Quests) UpdateCompletion(c *gin.Context) {
	var req struct {
		TwitterFollowCompleted *bool `json:"twitter_follow_completed"`
		TwitterPostCompleted   *bool `json:"twitter_post_completed"`
		DiscordJoinCompleted   *bool `json:"discord_join_completed"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}
	if req.TwitterFollowCompleted == nil && req.TwitterPostCompleted == nil && req.DiscordJoinCompleted == nil {
		respondErr(c, http.StatusBadRequest, "no completion flags supplied")
		return
	}

	addr, err := normalizeAddress(c.Param("member_id"))
	if err != nil {
		respondErr(c, http.StatusBadRequest, err.Error())
		return
	}

	var participant types.QuestParticipant
	if err := q.db.First(&participant,
		"quest_id = ? AND member_address = ?", c.Param("quest_id"), addr).Error; err != nil {
		respondErr(c, http.StatusNotFound, "quest participant not found")
		return
	}

	patch := map[string]interface{}{}
	if req.TwitterFollowCompleted != nil {
		participant.TwitterFollowCompleted = *req.TwitterFollowCompleted
		patch["twitter_follow_completed"] = *req.TwitterFollowCompleted
	}
	if req.TwitterPostCompleted != nil {
		participant.TwitterPostCompleted = *req.TwitterPostCompleted
		patch["twitter_post_completed"] = *req.TwitterPostCompleted
	}
	if req.DiscordJoinCompleted != nil {
		participant.DiscordJoinCompleted = *req.DiscordJoinCompleted
		patch["discord_join_completed"] = *req.DiscordJoinCompleted
	}

	if err := q.db.Model(&types.QuestParticipant{}).
		Where("quest_id = ? AND member_address = ?", participant.QuestID, addr).
		Updates(patch).Error; err != nil {
		respondErr(c, http.StatusInternalServerError, err.Error())
		return
	}

	completed := participant.TwitterFollowCompleted &&
		participant.TwitterPostCompleted &&
		participant.DiscordJoinCompleted

	var receipt *merits.DistributeReceipt
	if completed && !participant.Rewarded {
		// Conditional claim of the one-way flag: only the patch that flips
		// rewarded in the store pays out, so crossing all-true patches cannot
		// dispatch twice.
		claim := q.db.Model(&types.QuestParticipant{}).
			Where("quest_id = ? AND member_address = ? AND rewarded = ?",
				participant.QuestID, addr, false).
			Update("rewarded", true)
		if claim.Error != nil {
			respondErr(c, http.StatusInternalServerError, claim.Error.Error())
			return
		}
		participant.Rewarded = true
		if claim.RowsAffected == 1 {
			receipt = q.dispatchReward(c, participant)
		}
	}
	respondOK(c, http.StatusOK, gin.H{"participant": participant, "merits": receipt})
}

// dispatchReward pays out a completed quest. Runs after the rewarded flag is
// committed; a dispatcher failure is logged, not surfaced as a quest failure.
func (q Quests) dispatchReward(c *gin.Context, participant types.QuestParticipant) *merits.DistributeReceipt {
	if q.merits == nil {
		return nil
	}
	var quest types.Quest
	if err := q.db.First(&quest, "id = ?", participant.QuestID).Error; err != nil {
		log.Printf("quest reward: load quest %s: %v", participant.QuestID, err)
		return nil
	}

	dists, total := merits.BuildDistributions([]string{participant.MemberAddress}, quest.MeritReward)
	receipt, err := q.merits.Distribute(c, merits.DistributeRequest{
		ID:                    fmt.Sprintf("%s::%s::%d", quest.ID, participant.MemberAddress, time.Now().Unix()),
		Description:           fmt.Sprintf("Completion reward for quest %s", quest.Title),
		Distributions:         dists,
		CreateMissingAccounts: true,
		ExpectedTotal:         total,
	})
	if err != nil {
		log.Printf("quest reward for %s/%s: %v", quest.ID, participant.MemberAddress, err)
		return nil
	}
	return receipt
}
