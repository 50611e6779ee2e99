package server

import (
	"github.com/gin-gonic/gin"

	"docextract/pkg/models"
)

// Fail aborts the request with a {"detail": ...} body.
func Fail(c *gin.Context, status int, detail string) {
	c.AbortWithStatusJSON(status, models.ErrorResponse{Detail: detail})
}
