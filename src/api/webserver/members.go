package webserver

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/jagnani73/daoscape-sub001/src/api/types"
)

type Members struct{ db *gorm.DB }

func NewMembers(db *gorm.DB) Members { return Members{db: db} }

// upsertMember lazily creates a member on first reference. Reputation starts
// at the fixed default and is never reset for an existing member.
func upsertMember(db *gorm.DB, addr string) (types.Member, error) {
	member := types.Member{Address: addr}
	err := db.Where(types.Member{Address: addr}).
		Attrs(types.Member{Reputation: types.DefaultReputation}).
		FirstOrCreate(&member).Error
	return member, err
}

func (m Members) Create(c *gin.Context) {
	var req struct {
		WalletAddress string `json:"wallet_address" binding:"required"`
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

	member, err := upsertMember(m.db, addr)
	if err != nil {
		respondErr(c, http.StatusInternalServerError, err.Error())
		return
	}
	respondOK(c, http.StatusCreated, member)
}

func (m Members) Get(c *gin.Context) {
	addr, err := normalizeAddress(c.Param("address"))
	if err != nil {
		respondErr(c, http.StatusBadRequest, err.Error())
		return
	}

	var member types.Member
	if err := m.db.First(&member, "address = ?", addr).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondErr(c, http.StatusNotFound, "member not found")
			return
		}
		respondErr(c, http.StatusInternalServerError, err.Error())
		return
	}

	var memberships []types.Membership
	m.db.Where("member_address = ?", addr).Find(&memberships)
	respondOK(c, http.StatusOK, gin.H{"member": member, "memberships": memberships})
}

// Me returns the authenticated caller's member record, lazily created.
func (m Members) Me(c *gin.Context) {
	addr := c.GetString("addr")
	member, err := upsertMember(m.db, addr)
	if err != nil {
		respondErr(c, http.StatusInternalServerError, err.Error())
		return
	}
	respondOK(c, http.StatusOK, member)
}
