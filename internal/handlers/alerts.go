package handlers

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"healwise-server/internal/metrics"
	"healwise-server/internal/middleware"
	"healwise-server/internal/models"
	"healwise-server/internal/utils"
)

// AlertHandler handles administrative alerting requests.
type AlertHandler struct {
	DB      *gorm.DB
	Metrics *metrics.Collector
}

// NewAlertHandler creates a new AlertHandler.
func NewAlertHandler(db *gorm.DB, collector *metrics.Collector) *AlertHandler {
	return &AlertHandler{DB: db, Metrics: collector}
}

// CreateAlertRequest represents the request body for publishing an alert.
type CreateAlertRequest struct {
	Severity  string `json:"severity" binding:"required,oneof=info warning critical"`
	Title     string `json:"title" binding:"required"`
	Message   string `json:"message" binding:"required"`
	ExpiresAt string `json:"expiresAt"`
}

// CreateAlert publishes a new administrative alert. Admins only.
func (h *AlertHandler) CreateAlert(c *gin.Context) {
	var req CreateAlertRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	adminID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	alert := models.Alert{
		Severity:  models.AlertSeverity(req.Severity),
		Title:     req.Title,
		Message:   req.Message,
		Active:    true,
		CreatedBy: adminID,
	}
	if req.ExpiresAt != "" {
		expiresAt, err := time.Parse(time.RFC3339, req.ExpiresAt)
		if err != nil {
			utils.BadRequest(c, "expiresAt must be RFC3339")
			return
		}
		alert.ExpiresAt = &expiresAt
	}

	if err := h.DB.Create(&alert).Error; err != nil {
		utils.InternalServerError(c, "Failed to create alert: "+err.Error())
		return
	}

	h.Metrics.AlertsPublished.Inc()
	utils.Created(c, "Alert published successfully", alert)
}

// GetAlerts lists every alert, newest first. Admins only.
func (h *AlertHandler) GetAlerts(c *gin.Context) {
	var alerts []models.Alert
	if err := h.DB.Order("created_at desc").Find(&alerts).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch alerts: "+err.Error())
		return
	}
	utils.Success(c, "Alerts fetched successfully", alerts)
}

// GetActiveAlerts lists the alerts currently shown to portal users:
// active and not yet expired. Any authenticated user.
func (h *AlertHandler) GetActiveAlerts(c *gin.Context) {
	var alerts []models.Alert
	if err := h.DB.
		Where("active = ?", true).
		Where("expires_at IS NULL OR expires_at > ?", time.Now()).
		Order("created_at desc").
		Find(&alerts).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch active alerts: "+err.Error())
		return
	}
	utils.Success(c, "Active alerts fetched successfully", alerts)
}

// DeactivateAlert retires an alert without deleting it. Admins only.
func (h *AlertHandler) DeactivateAlert(c *gin.Context) {
	alertID := c.Param("id")

	var alert models.Alert
	if err := h.DB.First(&alert, "id = ?", alertID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(c, "Alert not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	if !alert.Active {
		utils.Success(c, "Alert already inactive", alert)
		return
	}

	alert.Active = false
	if err := h.DB.Save(&alert).Error; err != nil {
		utils.InternalServerError(c, "Failed to deactivate alert: "+err.Error())
		return
	}

	utils.Success(c, "Alert deactivated successfully", alert)
}
