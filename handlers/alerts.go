package handlers

import (
	"net/http"
	"strconv"
	"tontine-backend/utils"

	"github.com/gin-gonic/gin"
)

const defaultAlertLimit = 50

// GET /api/alerts — the member's inbox across all their groups
func GetAlerts(c *gin.Context) {
	userID := utils.GetCurrentUserID(c)

	limit := defaultAlertLimit
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed <= 200 {
			limit = parsed
		}
	}

	alerts, err := groupService.Alerts(c.Request.Context(), userID, limit)
	if err != nil {
		utils.InternalError(c, "Failed to load alerts")
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "", alerts)
}
