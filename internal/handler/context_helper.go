package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/hms-api/internal/middleware"
	"github.com/noah-isme/hms-api/internal/models"
)

func claimsFromContext(c *gin.Context) *models.Claims {
	claims, ok := middleware.ClaimsFrom(c)
	if !ok {
		return nil
	}
	return claims
}

// cityFor returns the city a request operates on: the caller's active city, or the
// cityId query parameter for super administrators who carry none.
func cityFor(c *gin.Context, claims *models.Claims) string {
	if claims.IsSuperAdmin() {
		if city := c.Query("cityId"); city != "" {
			return city
		}
	}
	return claims.ActiveCityID
}
