package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/timetable-engine/internal/middleware"
)

func actorID(c *gin.Context) string {
	claims, ok := middleware.CurrentUser(c)
	if !ok || claims == nil {
		return ""
	}
	return claims.UserID
}
