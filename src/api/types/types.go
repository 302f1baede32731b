package types

import "time"

// Voting houses. Every membership and every proposal gets one of these
// four, assigned uniformly at random.
const (
	HouseAlpha = "ALPHA"
	HouseBeta  = "BETA"
	HouseGamma = "GAMMA"
	HouseDelta = "DELTA"
)

var Houses = []string{HouseAlpha, HouseBeta, HouseGamma, HouseDelta}

// Vote values.
const (
	VoteYes     = "YES"
	VoteNo      = "NO"
	VoteAbstain = "ABSTAIN"
)

// Vote weights are fixed per phase and never client supplied.
const (
	WeightBinding  = 100
	WeightFeedback = 1
)

// Reputation constants.
const (
	DefaultReputation = 100
	ReputationWin     = 10
	ReputationLoss    = -10
)

// ProposalMeritReward is the merit amount paid to each winning-side voter
// when a feedback conclusion settles.
const ProposalMeritReward = 10

// DefaultQuestMeritReward is used when a quest does not set its own reward.
const DefaultQuestMeritReward = 5

// Members (wallet identified)
type Member struct {
	Address    string    `gorm:"primaryKey;size:42" json:"address"`
	Reputation int       `gorm:"not null;default:100" json:"reputation"`
	CreatedAt  time.Time `json:"created_at"`
}

// DAOs
type DAO struct {
	ID           string `gorm:"primaryKey;size:36" json:"id"`
	Name         string `gorm:"size:128;not null" json:"name"`
	Description  string `gorm:"type:text" json:"description"`
	Logo         string `gorm:"size:512" json:"logo"`
	OwnerAddress string `gorm:"size:42;index;not null" json:"owner_address"`
	// Social links, fixed 4-slot vector; empty string when absent.
	Discord   string     `gorm:"size:256" json:"discord"`
	Telegram  string     `gorm:"size:256" json:"telegram"`
	Twitter   string     `gorm:"size:256" json:"twitter"`
	Website   string     `gorm:"size:256" json:"website"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	Owner     Member     `gorm:"foreignKey:OwnerAddress" json:"-"`
	Tokens    []DAOToken `gorm:"foreignKey:DAOID" json:"tokens"`
}

// DAO treasury / governance tokens
type DAOToken struct {
	ID      uint64 `gorm:"primaryKey" json:"-"`
	DAOID   string `gorm:"size:36;index;not null" json:"-"`
	ChainID uint64 `gorm:"not null" json:"chain_id"`
	Address string `gorm:"size:42;not null" json:"address"`
}

// Memberships. The composite key keeps one membership per (dao, member) at
// the schema level.
type Membership struct {
	DAOID         string    `gorm:"primaryKey;size:36" json:"dao_id"`
	MemberAddress string    `gorm:"primaryKey;size:42" json:"member_address"`
	House         string    `gorm:"size:8;not null" json:"house"`
	CreatedAt     time.Time `json:"created_at"`
	DAO           DAO       `gorm:"foreignKey:DAOID" json:"-"`
	Member        Member    `gorm:"foreignKey:MemberAddress" json:"-"`
}

// Proposals. Conclusion fields are written once per phase and never cleared.
type Proposal struct {
	ID                 string    `gorm:"primaryKey;size:36" json:"id"`
	DAOID              *string   `gorm:"size:36;index" json:"dao_id"`
	Title              string    `gorm:"size:255;not null" json:"title"`
	Description        string    `gorm:"type:text" json:"description"`
	VotingStart        time.Time `gorm:"not null" json:"voting_start"`
	VotingEnd          time.Time `gorm:"not null" json:"voting_end"`
	FeedbackEnd        time.Time `gorm:"not null" json:"feedback_end"`
	VotingHouse        string    `gorm:"size:8;not null" json:"voting_house"`
	Conclusion         *string   `gorm:"size:8" json:"conclusion"`
	FeedbackConclusion *string   `gorm:"size:8" json:"feedback_conclusion"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
	Votes              []Vote    `gorm:"foreignKey:ProposalID" json:"-"`
}

// Votes. The unique index enforces at most one vote per (proposal, member,
// phase) regardless of application-level checks.
type Vote struct {
	ID            uint64    `gorm:"primaryKey" json:"id"`
	ProposalID    string    `gorm:"size:36;uniqueIndex:idx_vote_once;not null" json:"proposal_id"`
	MemberAddress string    `gorm:"size:42;uniqueIndex:idx_vote_once;not null" json:"member_address"`
	IsFeedback    bool      `gorm:"uniqueIndex:idx_vote_once;not null" json:"is_feedback"`
	DAOID         *string   `gorm:"size:36;index" json:"dao_id"`
	Value         string    `gorm:"size:8;not null" json:"value"`
	Weight        int       `gorm:"not null" json:"weight"`
	CreatedAt     time.Time `json:"created_at"`
	Proposal      Proposal  `gorm:"foreignKey:ProposalID" json:"-"`
	Member        Member    `gorm:"foreignKey:MemberAddress" json:"-"`
}

// Quests
type Quest struct {
	ID                   string    `gorm:"primaryKey;size:36" json:"id"`
	DAOID                *string   `gorm:"size:36;index" json:"dao_id"`
	Title                string    `gorm:"size:255;not null" json:"title"`
	Description          string    `gorm:"type:text" json:"description"`
	MeritReward          int       `gorm:"not null" json:"merit_reward"`
	TwitterFollowEnabled bool      `gorm:"not null" json:"twitter_follow_enabled"`
	TwitterPostEnabled   bool      `gorm:"not null" json:"twitter_post_enabled"`
	DiscordJoinEnabled   bool      `gorm:"not null" json:"discord_join_enabled"`
	CreatedAt            time.Time `json:"created_at"`
}

// Quest participants. Rewarded is a one-way flag: once the completion
// reward has been dispatched it is never dispatched again.
type QuestParticipant struct {
	QuestID                string    `gorm:"primaryKey;size:36" json:"quest_id"`
	MemberAddress          string    `gorm:"primaryKey;size:42" json:"member_address"`
	TwitterFollowCompleted bool      `gorm:"not null" json:"twitter_follow_completed"`
	TwitterPostCompleted   bool      `gorm:"not null" json:"twitter_post_completed"`
	DiscordJoinCompleted   bool      `gorm:"not null" json:"discord_join_completed"`
	Rewarded               bool      `gorm:"not null;default:false" json:"rewarded"`
	CreatedAt              time.Time `json:"created_at"`
	UpdatedAt              time.Time `json:"updated_at"`
	Quest                  Quest     `gorm:"foreignKey:QuestID" json:"-"`
	Member                 Member    `gorm:"foreignKey:MemberAddress" json:"-"`
}

// ReputationChange is one entry of a batched reputation update.
type ReputationChange struct {
	MemberAddress string
	DAOID         string
	Change        int
}
