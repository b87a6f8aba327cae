package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-presensi-api/internal/middleware"
	"github.com/noah-isme/sma-presensi-api/internal/models"
)

// claimsFromContext extracts JWT claims stored by the auth middleware.
func claimsFromContext(c *gin.Context) *models.JWTClaims {
	v, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := v.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}
