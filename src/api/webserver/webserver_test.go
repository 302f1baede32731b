package webserver

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/jagnani73/daoscape-sub001/src/api/config"
	"github.com/jagnani73/daoscape-sub001/src/api/types"
)

const (
	addrA = "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	addrB = "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
	addrC = "0xcccccccccccccccccccccccccccccccccccccccc"
)

// meritRecorder fakes the external merit-distribution endpoint.
type meritRecorder struct {
	mu   sync.Mutex
	reqs []map[string]interface{}
}

func (m *meritRecorder) handler(w http.ResponseWriter, r *http.Request) {
	var req map[string]interface{}
	_ = json.NewDecoder(r.Body).Decode(&req)
	m.mu.Lock()
	m.reqs = append(m.reqs, req)
	m.mu.Unlock()
	_ = json.NewEncoder(w).Encode(map[string]uint64{
		"accounts_distributed": uint64(len(req["distributions"].([]interface{}))),
		"accounts_created":     0,
	})
}

func (m *meritRecorder) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.reqs)
}

func (m *meritRecorder) last() map[string]interface{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reqs[len(m.reqs)-1]
}

// coldRecorder fakes the cold-storage archive endpoint.
type coldRecorder struct {
	mu       sync.Mutex
	archived []types.Proposal
}

func (r *coldRecorder) handler(w http.ResponseWriter, req *http.Request) {
	var p types.Proposal
	if err := json.NewDecoder(req.Body).Decode(&p); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	r.mu.Lock()
	r.archived = append(r.archived, p)
	r.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (r *coldRecorder) shipped() []types.Proposal {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]types.Proposal(nil), r.archived...)
}

type env struct {
	t      *testing.T
	db     *gorm.DB
	router *gin.Engine
	merits *meritRecorder
	cold   *coldRecorder
}

func newEnv(t *testing.T) *env {
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(
		&types.Member{}, &types.DAO{}, &types.DAOToken{},
		&types.Membership{}, &types.Proposal{}, &types.Vote{},
		&types.Quest{}, &types.QuestParticipant{},
	))

	rec := &meritRecorder{}
	srv := httptest.NewServer(http.HandlerFunc(rec.handler))
	t.Cleanup(srv.Close)

	cold := &coldRecorder{}
	coldSrv := httptest.NewServer(http.HandlerFunc(cold.handler))
	t.Cleanup(coldSrv.Close)

	cfg := config.Config{
		JWTSecret:      "test-secret",
		MeritsURL:      srv.URL,
		ColdStorageURL: coldSrv.URL,
	}
	router := gin.New()
	attachRoutes(router, cfg, db, nil)

	return &env{t: t, db: db, router: router, merits: rec, cold: cold}
}

func (e *env) do(method, path string, body interface{}) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(e.t, err)
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

type apiResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Name    string          `json:"name"`
	Message string          `json:"message"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) apiResponse {
	var resp apiResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func dataInto(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	resp := decode(t, w)
	require.True(t, resp.Success, "expected success envelope, got %s", w.Body.String())
	require.NoError(t, json.Unmarshal(resp.Data, out))
}

func (e *env) createDAO(owner string) types.DAO {
	w := e.do(http.MethodPost, "/v1/dao/create", gin.H{
		"name":          "Test DAO",
		"description":   "A governance playground",
		"logo":          "https://cdn.example/logo.png",
		"owner_address": owner,
		"tokens": []gin.H{
			{"chain_id": 1, "address": "0x1111111111111111111111111111111111111111"},
		},
		"socials": gin.H{"discord": "https://discord.gg/test", "website": "https://example.org"},
	})
	require.Equal(e.t, http.StatusCreated, w.Code, w.Body.String())
	var dao types.DAO
	dataInto(e.t, w, &dao)
	return dao
}

func (e *env) createMember(addr string) {
	w := e.do(http.MethodPost, "/v1/member/create", gin.H{"wallet_address": addr})
	require.Equal(e.t, http.StatusCreated, w.Code, w.Body.String())
}

func (e *env) joinDAO(daoID, addr string) *httptest.ResponseRecorder {
	return e.do(http.MethodPost, "/v1/membership/join", gin.H{
		"dao_id": daoID, "wallet_address": addr,
	})
}

func (e *env) createProposal(daoID *string) types.Proposal {
	now := time.Now()
	body := gin.H{
		"title":        "Fund the community pool",
		"description":  "Allocate treasury to the pool",
		"voting_start": now.Add(time.Hour),
		"voting_end":   now.Add(2 * time.Hour),
		"feedback_end": now.Add(3 * time.Hour),
	}
	if daoID != nil {
		body["dao_id"] = *daoID
	}
	w := e.do(http.MethodPost, "/v1/proposal/create", body)
	require.Equal(e.t, http.StatusCreated, w.Code, w.Body.String())
	var proposal types.Proposal
	dataInto(e.t, w, &proposal)
	return proposal
}

// openVoting rewinds the voting window so that now falls inside it.
func (e *env) openVoting(proposalID string) {
	now := time.Now()
	require.NoError(e.t, e.db.Model(&types.Proposal{}).Where("id = ?", proposalID).
		Updates(map[string]interface{}{
			"voting_start": now.Add(-time.Hour),
			"voting_end":   now.Add(time.Hour),
			"feedback_end": now.Add(2 * time.Hour),
		}).Error)
}

// closeVoting pushes the voting window fully into the past, feedback still open.
func (e *env) closeVoting(proposalID string) {
	now := time.Now()
	require.NoError(e.t, e.db.Model(&types.Proposal{}).Where("id = ?", proposalID).
		Updates(map[string]interface{}{
			"voting_start": now.Add(-3 * time.Hour),
			"voting_end":   now.Add(-2 * time.Hour),
			"feedback_end": now.Add(time.Hour),
		}).Error)
}

// closeFeedback pushes every window into the past.
func (e *env) closeFeedback(proposalID string) {
	now := time.Now()
	require.NoError(e.t, e.db.Model(&types.Proposal{}).Where("id = ?", proposalID).
		Updates(map[string]interface{}{
			"voting_start": now.Add(-3 * time.Hour),
			"voting_end":   now.Add(-2 * time.Hour),
			"feedback_end": now.Add(-time.Hour),
		}).Error)
}

func (e *env) setHouse(daoID, addr, house string) {
	require.NoError(e.t, e.db.Model(&types.Membership{}).
		Where("dao_id = ? AND member_address = ?", daoID, addr).
		Update("house", house).Error)
}

func (e *env) castVote(proposalID, addr, value string, isFeedback bool) *httptest.ResponseRecorder {
	return e.do(http.MethodPost, "/v1/vote", gin.H{
		"proposal_id":    proposalID,
		"wallet_address": addr,
		"vote":           value,
		"is_feedback":    isFeedback,
	})
}

func (e *env) conclude(proposalID string, isFeedback bool) *httptest.ResponseRecorder {
	return e.do(http.MethodPost, "/v1/proposal/conclude", gin.H{
		"proposal_id": proposalID,
		"is_feedback": isFeedback,
	})
}

func (e *env) reputation(addr string) int {
	var member types.Member
	require.NoError(e.t, e.db.First(&member, "address = ?", addr).Error)
	return member.Reputation
}

func houseSet() map[string]bool {
	valid := map[string]bool{}
	for _, h := range types.Houses {
		valid[h] = true
	}
	return valid
}

func TestCreateDAOAutoJoinsOwner(t *testing.T) {
	e := newEnv(t)
	dao := e.createDAO(addrA)

	require.NotEmpty(t, dao.ID)
	assert.Equal(t, addrA, dao.OwnerAddress)
	assert.Equal(t, "https://discord.gg/test", dao.Discord)
	assert.Equal(t, "", dao.Telegram)
	assert.Equal(t, "", dao.Twitter)
	assert.Equal(t, "https://example.org", dao.Website)
	require.Len(t, dao.Tokens, 1)
	assert.Equal(t, uint64(1), dao.Tokens[0].ChainID)

	var membership types.Membership
	require.NoError(t, e.db.First(&membership,
		"dao_id = ? AND member_address = ?", dao.ID, addrA).Error)
	assert.True(t, houseSet()[membership.House])

	assert.Equal(t, types.DefaultReputation, e.reputation(addrA))
}

func TestCreateDAOAddressCase(t *testing.T) {
	e := newEnv(t)
	w := e.do(http.MethodPost, "/v1/dao/create", gin.H{
		"name":          "Case DAO",
		"description":   "d",
		"logo":          "l",
		"owner_address": "0xAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var dao types.DAO
	dataInto(t, w, &dao)
	assert.Equal(t, addrA, dao.OwnerAddress)
}

func TestJoinDAO(t *testing.T) {
	e := newEnv(t)
	dao := e.createDAO(addrA)

	// Member must exist before joining.
	w := e.joinDAO(dao.ID, addrB)
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "member not found", decode(t, w).Message)

	e.createMember(addrB)
	w = e.joinDAO(dao.ID, addrB)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var membership types.Membership
	dataInto(t, w, &membership)
	assert.True(t, houseSet()[membership.House])

	// Second join conflicts.
	w = e.joinDAO(dao.ID, addrB)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "already a member of this dao", decode(t, w).Message)

	// Unknown DAO.
	w = e.joinDAO("missing-dao", addrB)
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "dao not found", decode(t, w).Message)
}

func TestProposalWindowValidation(t *testing.T) {
	e := newEnv(t)
	now := time.Now()

	cases := []struct {
		name                 string
		start, end, feedback time.Time
	}{
		{"start in the past", now.Add(-time.Minute), now.Add(time.Hour), now.Add(2 * time.Hour)},
		{"end before start", now.Add(2 * time.Hour), now.Add(time.Hour), now.Add(3 * time.Hour)},
		{"feedback before end", now.Add(time.Hour), now.Add(3 * time.Hour), now.Add(2 * time.Hour)},
		{"feedback equals end", now.Add(time.Hour), now.Add(2 * time.Hour), now.Add(2 * time.Hour)},
	}
	for _, tc := range cases {
		w := e.do(http.MethodPost, "/v1/proposal/create", gin.H{
			"title":        "t",
			"description":  "d",
			"voting_start": tc.start,
			"voting_end":   tc.end,
			"feedback_end": tc.feedback,
		})
		require.Equal(t, http.StatusBadRequest, w.Code, tc.name)
		assert.Equal(t, "Validation Error", decode(t, w).Name, tc.name)
	}

	// Unknown DAO is a NotFound, not a validation failure.
	w := e.do(http.MethodPost, "/v1/proposal/create", gin.H{
		"title":        "t",
		"description":  "d",
		"dao_id":       "missing-dao",
		"voting_start": now.Add(time.Hour),
		"voting_end":   now.Add(2 * time.Hour),
		"feedback_end": now.Add(3 * time.Hour),
	})
	require.Equal(t, http.StatusNotFound, w.Code)

	proposal := e.createProposal(nil)
	assert.True(t, houseSet()[proposal.VotingHouse])
	assert.Nil(t, proposal.Conclusion)
	assert.Nil(t, proposal.FeedbackConclusion)
}

func TestVoteLifecycle(t *testing.T) {
	e := newEnv(t)
	dao := e.createDAO(addrA)
	e.createMember(addrB)
	require.Equal(t, http.StatusCreated, e.joinDAO(dao.ID, addrB).Code)

	proposal := e.createProposal(&dao.ID)

	// Binding vote before the window opens.
	w := e.castVote(proposal.ID, addrB, types.VoteYes, false)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "voting has not started yet", decode(t, w).Message)

	// Feedback has no lower bound: it may start before binding voting does.
	w = e.castVote(proposal.ID, addrB, types.VoteAbstain, true)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var feedbackVote types.Vote
	dataInto(t, w, &feedbackVote)
	assert.Equal(t, types.WeightFeedback, feedbackVote.Weight)

	e.openVoting(proposal.ID)

	// Client-supplied weight is ignored.
	w = e.do(http.MethodPost, "/v1/vote", gin.H{
		"proposal_id":    proposal.ID,
		"wallet_address": addrB,
		"vote":           types.VoteYes,
		"is_feedback":    false,
		"weight":         5,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var vote types.Vote
	dataInto(t, w, &vote)
	assert.Equal(t, types.WeightBinding, vote.Weight)
	assert.Equal(t, types.VoteYes, vote.Value)

	// One binding vote per member per proposal.
	w = e.castVote(proposal.ID, addrB, types.VoteNo, false)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "already voted on this proposal", decode(t, w).Message)

	// Non-members cannot vote.
	e.createMember(addrC)
	w = e.castVote(proposal.ID, addrC, types.VoteYes, false)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "not a member of this proposal's dao", decode(t, w).Message)

	// Unknown proposal.
	w = e.castVote("missing-proposal", addrB, types.VoteYes, false)
	require.Equal(t, http.StatusNotFound, w.Code)

	// Conclusion is rejected while the window is open.
	w = e.conclude(proposal.ID, false)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "proposal has not ended yet", decode(t, w).Message)

	e.closeVoting(proposal.ID)

	// Binding votes after voting_end are rejected.
	e.createMember(addrC)
	require.Equal(t, http.StatusCreated, e.joinDAO(dao.ID, addrC).Code)
	w = e.castVote(proposal.ID, addrC, types.VoteYes, false)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "voting has ended", decode(t, w).Message)

	// Tally is scoped to the proposal's house for the binding phase.
	e.setHouse(dao.ID, addrB, proposal.VotingHouse)

	w = e.conclude(proposal.ID, false)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var concluded types.Proposal
	dataInto(t, w, &concluded)
	require.NotNil(t, concluded.Conclusion)
	assert.Equal(t, types.VoteYes, *concluded.Conclusion)
	assert.Nil(t, concluded.FeedbackConclusion)

	// The transition is one way.
	w = e.conclude(proposal.ID, false)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "proposal already concluded", decode(t, w).Message)

	// No merits move on a binding conclusion.
	assert.Equal(t, 0, e.merits.count())
}

func TestBindingTallyHouseScoped(t *testing.T) {
	e := newEnv(t)
	dao := e.createDAO(addrA)
	e.createMember(addrB)
	e.createMember(addrC)
	require.Equal(t, http.StatusCreated, e.joinDAO(dao.ID, addrB).Code)
	require.Equal(t, http.StatusCreated, e.joinDAO(dao.ID, addrC).Code)

	proposal := e.createProposal(&dao.ID)
	e.openVoting(proposal.ID)

	// B sits in the proposal's house and votes NO; C sits elsewhere and
	// votes YES. Only B's vote may count.
	e.setHouse(dao.ID, addrB, proposal.VotingHouse)
	other := types.HouseAlpha
	if proposal.VotingHouse == types.HouseAlpha {
		other = types.HouseBeta
	}
	e.setHouse(dao.ID, addrC, other)

	require.Equal(t, http.StatusCreated, e.castVote(proposal.ID, addrB, types.VoteNo, false).Code)
	require.Equal(t, http.StatusCreated, e.castVote(proposal.ID, addrC, types.VoteYes, false).Code)

	e.closeVoting(proposal.ID)
	w := e.conclude(proposal.ID, false)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var concluded types.Proposal
	dataInto(t, w, &concluded)
	require.NotNil(t, concluded.Conclusion)
	assert.Equal(t, types.VoteNo, *concluded.Conclusion)
}

func TestFeedbackConclusionRewards(t *testing.T) {
	e := newEnv(t)
	dao := e.createDAO(addrA)
	e.createMember(addrB)
	e.createMember(addrC)
	require.Equal(t, http.StatusCreated, e.joinDAO(dao.ID, addrB).Code)
	require.Equal(t, http.StatusCreated, e.joinDAO(dao.ID, addrC).Code)

	proposal := e.createProposal(&dao.ID)

	// Feedback votes may land any time before feedback_end.
	require.Equal(t, http.StatusCreated, e.castVote(proposal.ID, addrA, types.VoteYes, true).Code)
	require.Equal(t, http.StatusCreated, e.castVote(proposal.ID, addrB, types.VoteYes, true).Code)
	require.Equal(t, http.StatusCreated, e.castVote(proposal.ID, addrC, types.VoteNo, true).Code)

	w := e.conclude(proposal.ID, true)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "proposal has not ended yet", decode(t, w).Message)

	e.closeFeedback(proposal.ID)
	w = e.conclude(proposal.ID, true)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var result struct {
		Merits   *json.RawMessage `json:"merits"`
		Proposal types.Proposal   `json:"proposal"`
	}
	dataInto(t, w, &result)
	require.NotNil(t, result.Proposal.FeedbackConclusion)
	assert.Equal(t, types.VoteYes, *result.Proposal.FeedbackConclusion)
	assert.Nil(t, result.Proposal.Conclusion) // phases are independent
	require.NotNil(t, result.Merits)

	// Winning side gains, losing side pays, abstainers would sit out.
	assert.Equal(t, types.DefaultReputation+types.ReputationWin, e.reputation(addrA))
	assert.Equal(t, types.DefaultReputation+types.ReputationWin, e.reputation(addrB))
	assert.Equal(t, types.DefaultReputation+types.ReputationLoss, e.reputation(addrC))

	// Merits go to the winning side only.
	require.Equal(t, 1, e.merits.count())
	req := e.merits.last()
	dists := req["distributions"].([]interface{})
	require.Len(t, dists, 2)
	assert.Equal(t, true, req["create_missing_accounts"])
	assert.Equal(t, "20", req["expected_total"])
	assert.Contains(t, req["id"].(string), dao.ID+"::"+proposal.ID+"::")

	// Feedback conclusion is one way too.
	w = e.conclude(proposal.ID, true)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "proposal already concluded", decode(t, w).Message)
}

func TestFeedbackConclusionNoWins(t *testing.T) {
	e := newEnv(t)
	dao := e.createDAO(addrA)
	e.createMember(addrB)
	require.Equal(t, http.StatusCreated, e.joinDAO(dao.ID, addrB).Code)

	proposal := e.createProposal(&dao.ID)

	// Tie at 1:1 resolves to NO; YES voter loses reputation.
	require.Equal(t, http.StatusCreated, e.castVote(proposal.ID, addrA, types.VoteYes, true).Code)
	require.Equal(t, http.StatusCreated, e.castVote(proposal.ID, addrB, types.VoteNo, true).Code)

	e.closeFeedback(proposal.ID)
	w := e.conclude(proposal.ID, true)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var result struct {
		Proposal types.Proposal `json:"proposal"`
	}
	dataInto(t, w, &result)
	require.NotNil(t, result.Proposal.FeedbackConclusion)
	assert.Equal(t, types.VoteNo, *result.Proposal.FeedbackConclusion)

	assert.Equal(t, types.DefaultReputation+types.ReputationLoss, e.reputation(addrA))
	assert.Equal(t, types.DefaultReputation+types.ReputationWin, e.reputation(addrB))
}

func TestConcludeNotFound(t *testing.T) {
	e := newEnv(t)
	w := e.conclude("missing-proposal", false)
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "proposal not found", decode(t, w).Message)
}

func TestListVotesByPhase(t *testing.T) {
	e := newEnv(t)
	dao := e.createDAO(addrA)
	e.createMember(addrB)
	require.Equal(t, http.StatusCreated, e.joinDAO(dao.ID, addrB).Code)

	proposal := e.createProposal(&dao.ID)
	e.openVoting(proposal.ID)
	require.Equal(t, http.StatusCreated, e.castVote(proposal.ID, addrA, types.VoteYes, false).Code)
	require.Equal(t, http.StatusCreated, e.castVote(proposal.ID, addrB, types.VoteNo, true).Code)

	var votes []types.Vote
	w := e.do(http.MethodGet, "/v1/proposals/"+proposal.ID+"/votes?is_feedback=false", nil)
	require.Equal(t, http.StatusOK, w.Code)
	dataInto(t, w, &votes)
	require.Len(t, votes, 1)
	assert.Equal(t, addrA, votes[0].MemberAddress)
	assert.Equal(t, types.WeightBinding, votes[0].Weight)

	w = e.do(http.MethodGet, "/v1/proposals/"+proposal.ID+"/votes?is_feedback=true", nil)
	require.Equal(t, http.StatusOK, w.Code)
	dataInto(t, w, &votes)
	require.Len(t, votes, 1)
	assert.Equal(t, addrB, votes[0].MemberAddress)
	assert.Equal(t, types.WeightFeedback, votes[0].Weight)

	// House filter restricts the binding phase.
	e.setHouse(dao.ID, addrA, types.HouseAlpha)
	w = e.do(http.MethodGet, "/v1/proposals/"+proposal.ID+"/votes?is_feedback=false&house="+types.HouseBeta, nil)
	require.Equal(t, http.StatusOK, w.Code)
	dataInto(t, w, &votes)
	assert.Len(t, votes, 0)
}

func TestMemberEndpoints(t *testing.T) {
	e := newEnv(t)

	w := e.do(http.MethodGet, "/v1/members/"+addrA, nil)
	require.Equal(t, http.StatusNotFound, w.Code)

	e.createMember(addrA)
	w = e.do(http.MethodGet, "/v1/members/"+addrA, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var out struct {
		Member      types.Member       `json:"member"`
		Memberships []types.Membership `json:"memberships"`
	}
	dataInto(t, w, &out)
	assert.Equal(t, addrA, out.Member.Address)
	assert.Equal(t, types.DefaultReputation, out.Member.Reputation)
	assert.Len(t, out.Memberships, 0)

	// Creating twice is an upsert, not a conflict.
	e.createMember(addrA)
}

func TestMeRequiresJWT(t *testing.T) {
	e := newEnv(t)

	w := e.do(http.MethodGet, "/v1/me", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	token, err := issueJWT(addrA, []byte("test-secret"))
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/v1/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var member types.Member
	dataInto(t, rec, &member)
	assert.Equal(t, addrA, member.Address)
	assert.Equal(t, types.DefaultReputation, member.Reputation)
}

func TestMeRejectsUnsignedToken(t *testing.T) {
	e := newEnv(t)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"addr": addrA,
		"exp":  time.Now().Add(time.Hour).Unix(),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/v1/me", nil)
	req.Header.Set("Authorization", "Bearer "+unsigned)
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestConcludeShipsToColdStorage(t *testing.T) {
	e := newEnv(t)
	dao := e.createDAO(addrA)
	proposal := e.createProposal(&dao.ID)
	e.openVoting(proposal.ID)
	e.setHouse(dao.ID, addrA, proposal.VotingHouse)
	w := e.castVote(proposal.ID, addrA, "YES", false)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	e.closeVoting(proposal.ID)

	w = e.conclude(proposal.ID, false)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// Archival runs detached from the request.
	require.Eventually(t, func() bool {
		return len(e.cold.shipped()) > 0
	}, 5*time.Second, 10*time.Millisecond)

	archived := e.cold.shipped()[0]
	assert.Equal(t, proposal.ID, archived.ID)
	require.NotNil(t, archived.Conclusion)
	assert.Equal(t, "YES", *archived.Conclusion)
}

func TestCreateConflictMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	respondCreateErr(c, gorm.ErrDuplicatedKey, "already voted on this proposal")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "already voted on this proposal")

	rec = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(rec)
	respondCreateErr(c, errors.New("connection reset"), "already voted on this proposal")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "connection reset")
}

func TestVoteUniqueIndexTranslates(t *testing.T) {
	e := newEnv(t)
	dao := e.createDAO(addrA)
	proposal := e.createProposal(&dao.ID)

	vote := types.Vote{
		ProposalID:    proposal.ID,
		MemberAddress: addrA,
		IsFeedback:    false,
		DAOID:         &dao.ID,
		Value:         "YES",
		Weight:        types.WeightBinding,
	}
	require.NoError(t, e.db.Create(&vote).Error)

	dup := types.Vote{
		ProposalID:    proposal.ID,
		MemberAddress: addrA,
		IsFeedback:    false,
		DAOID:         &dao.ID,
		Value:         "NO",
		Weight:        types.WeightBinding,
	}
	err := e.db.Create(&dup).Error
	require.Error(t, err)
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)
}
