package webserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/jagnani73/daoscape-sub001/src/api/data"
)

type Auth struct {
	rdb       *redis.Client
	jwtSecret []byte
}

func NewAuth(rdb *redis.Client, secret []byte) Auth {
	return Auth{rdb: rdb, jwtSecret: secret}
}

func (a Auth) Challenge(c *gin.Context) {
	var req struct {
		Address string `json:"address" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}
	addr, err := normalizeAddress(req.Address)
	if err != nil {
		respondErr(c, http.StatusBadRequest, err.Error())
		return
	}
	nonce := uuid.NewString()
	if err := data.SetNonce(c, a.rdb, addr, nonce); err != nil {
		respondErr(c, http.StatusInternalServerError, err.Error())
		return
	}
	respondOK(c, http.StatusOK, gin.H{"nonce": nonce})
}

func (a Auth) Verify(c *gin.Context) {
	var req struct {
		Address   string `json:"address" binding:"required"`
		Signature string `json:"signature" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}
	addr, err := normalizeAddress(req.Address)
	if err != nil {
		respondErr(c, http.StatusBadRequest, err.Error())
		return
	}

	nonce, err := data.GetAndDelNonce(c, a.rdb, addr)
	if err != nil {
		respondErr(c, http.StatusUnauthorized, "challenge expired")
		return
	}

	signer, err := recoverAddress(nonce, req.Signature)
	if err != nil || signer != addr {
		respondErr(c, http.StatusUnauthorized, "bad signature")
		return
	}

	token, err := issueJWT(addr, a.jwtSecret)
	if err != nil {
		respondErr(c, http.StatusInternalServerError, err.Error())
		return
	}
	respondOK(c, http.StatusOK, gin.H{"token": token})
}
