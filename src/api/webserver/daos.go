package webserver

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jagnani73/daoscape-sub001/src/api/governance"
	"github.com/jagnani73/daoscape-sub001/src/api/types"
)

type Daos struct{ db *gorm.DB }

func NewDaos(db *gorm.DB) Daos { return Daos{db: db} }

func (d Daos) Create(c *gin.Context) {
	var req struct {
		Name         string `json:"name" binding:"required"`
		Description  string `json:"description" binding:"required"`
		Logo         string `json:"logo" binding:"required"`
		OwnerAddress string `json:"owner_address" binding:"required"`
		Tokens       []struct {
			ChainID uint64 `json:"chain_id" binding:"required"`
			Address string `json:"address" binding:"required"`
		} `json:"tokens"`
		Socials struct {
			Discord  string `json:"discord"`
			Telegram string `json:"telegram"`
			Twitter  string `json:"twitter"`
			Website  string `json:"website"`
		} `json:"socials"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}

	owner, err := normalizeAddress(req.OwnerAddress)
	if err != nil {
		respondErr(c, http.StatusBadRequest, err.Error())
		return
	}

	dao := types.DAO{
		ID:           uuid.NewString(),
		Name:         req.Name,
		Description:  req.Description,
		Logo:         req.Logo,
		OwnerAddress: owner,
		Discord:      req.Socials.Discord,
		Telegram:     req.Socials.Telegram,
		Twitter:      req.Socials.Twitter,
		Website:      req.Socials.Website,
	}

	err = d.db.Transaction(func(tx *gorm.DB) error {
		// Owner is lazily upserted as a member on first reference.
		if _, err := upsertMember(tx, owner); err != nil {
			return err
		}
		if err := tx.Create(&dao).Error; err != nil {
			return err
		}
		for _, t := range req.Tokens {
			tokenAddr, err := normalizeAddress(t.Address)
			if err != nil {
				return err
			}
			if err := tx.Create(&types.DAOToken{
				DAOID: dao.ID, ChainID: t.ChainID, Address: tokenAddr,
			}).Error; err != nil {
				return err
			}
		}
		// Owner auto-joins with a random house.
		return tx.Create(&types.Membership{
			DAOID:         dao.ID,
			MemberAddress: owner,
			House:         governance.AssignHouse(),
			CreatedAt:     time.Now(),
		}).Error
	})
	if err != nil {
		respondErr(c, http.StatusInternalServerError, err.Error())
		return
	}

	d.db.Preload("Tokens").First(&dao, "id = ?", dao.ID)
	respondOK(c, http.StatusCreated, dao)
}

func (d Daos) Get(c *gin.Context) {
	var dao types.DAO
	if err := d.db.Preload("Tokens").First(&dao, "id = ?", c.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondErr(c, http.StatusNotFound, "dao not found")
			return
		}
		respondErr(c, http.StatusInternalServerError, err.Error())
		return
	}
	respondOK(c, http.StatusOK, dao)
}

func (d Daos) List(c *gin.Context) {
	var daos []types.DAO
	if err := d.db.Preload("Tokens").Order("created_at desc").Find(&daos).Error; err != nil {
		respondErr(c, http.StatusInternalServerError, err.Error())
		return
	}
	respondOK(c, http.StatusOK, daos)
}
