package webserver

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func respondOK(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{"success": true, "data": data})
}

func respondErr(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"message": msg})
}

// respondValidation is the schema-boundary failure shape; business logic
// never sees these requests.
func respondValidation(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"name": "Validation Error", "message": err.Error()})
}

// respondCreateErr maps a failed insert. A unique-key violation means a
// concurrent writer won the race and gets the caller's conflict message;
// anything else is a storage fault.
func respondCreateErr(c *gin.Context, err error, conflictMsg string) {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		respondErr(c, http.StatusBadRequest, conflictMsg)
		return
	}
	respondErr(c, http.StatusInternalServerError, err.Error())
}
