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

type Memberships struct{ db *gorm.DB }

func NewMemberships(db *gorm.DB) Memberships { return Memberships{db: db} }

func (m Memberships) Join(c *gin.Context) {
	var req struct {
		DAOID         string `json:"dao_id" binding:"required"`
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

	var member types.Member
	if err := m.db.First(&member, "address = ?", addr).Error; err != nil {
		respondErr(c, http.StatusNotFound, "member not found")
		return
	}
	var dao types.DAO
	if err := m.db.First(&dao, "id = ?", req.DAOID).Error; err != nil {
		respondErr(c, http.StatusNotFound, "dao not found")
		return
	}

	var existing types.Membership
	err = m.db.First(&existing, "dao_id = ? AND member_address = ?", dao.ID, addr).Error
	if err == nil {
		respondErr(c, http.StatusBadRequest, "already a member of this dao")
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		respondErr(c, http.StatusInternalServerError, err.Error())
		return
	}

	membership := types.Membership{
		DAOID:         dao.ID,
		MemberAddress: addr,
		House:         governance.AssignHouse(),
		CreatedAt:     time.Now(),
	}
	if err := m.db.Create(&membership).Error; err != nil {
		// Composite key makes a concurrent duplicate join lose here.
		respondCreateErr(c, err, "already a member of this dao")
		return
	}
	respondOK(c, http.StatusCreated, membership)
}

func (m Memberships) ListByDAO(c *gin.Context) {
	var dao types.DAO
	if err := m.db.First(&dao, "id = ?", c.Param("id")).Error; err != nil {
		respondErr(c, http.StatusNotFound, "dao not found")
		return
	}

	var memberships []types.Membership
	if err := m.db.Where("dao_id = ?", dao.ID).Order("created_at asc").Find(&memberships).Error; err != nil {
		respondErr(c, http.StatusInternalServerError, err.Error())
		return
	}
	respondOK(c, http.StatusOK, memberships)
}
