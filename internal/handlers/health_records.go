package handlers

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"healwise-server/internal/middleware"
	"healwise-server/internal/models"
	"healwise-server/internal/utils"
)

// HealthRecordHandler handles patient health record requests.
type HealthRecordHandler struct {
	DB  *gorm.DB
	Log *zap.Logger
}

// NewHealthRecordHandler creates a new HealthRecordHandler.
func NewHealthRecordHandler(db *gorm.DB, log *zap.Logger) *HealthRecordHandler {
	return &HealthRecordHandler{DB: db, Log: log}
}

// CreateHealthRecordRequest represents the request body for creating a health record.
type CreateHealthRecordRequest struct {
	PatientID  string                  `json:"patientId" binding:"required,uuid"`
	RecordType models.HealthRecordType `json:"recordType" binding:"required"`
	RecordDate string                  `json:"recordDate" binding:"required"`
	Title      string                  `json:"title" binding:"required"`
	Department string                  `json:"department"`
	Summary    string                  `json:"summary" binding:"required"`
	Details    string                  `json:"details"`
}

// CreateHealthRecord handles creating a new health record. Doctors only.
func (h *HealthRecordHandler) CreateHealthRecord(c *gin.Context) {
	var req CreateHealthRecordRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	doctorID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "Doctor ID not found in token")
		return
	}

	var patient models.User
	if err := h.DB.Where("id = ? AND role = ?", req.PatientID, models.RolePatient).First(&patient).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(c, "Patient not found")
		} else {
			utils.InternalServerError(c, "Database error verifying patient: "+err.Error())
		}
		return
	}

	recordDate, err := time.Parse(time.RFC3339, req.RecordDate)
	if err != nil {
		utils.BadRequest(c, "recordDate must be RFC3339")
		return
	}

	record := models.HealthRecord{
		PatientID:  req.PatientID,
		DoctorID:   doctorID,
		RecordType: req.RecordType,
		RecordDate: recordDate,
		Title:      req.Title,
		Department: req.Department,
		Summary:    req.Summary,
		Details:    req.Details,
	}

	if err := h.DB.Create(&record).Error; err != nil {
		utils.InternalServerError(c, "Failed to create health record: "+err.Error())
		return
	}

	h.Log.Info("health record created",
		zap.String("recordId", record.ID),
		zap.String("patientId", record.PatientID),
		zap.String("doctorId", record.DoctorID))
	utils.Created(c, "Health record created successfully", record)
}

// GetHealthRecordsForPatient handles fetching all records of one patient.
// Patients read their own; doctors and admins read any patient's.
func (h *HealthRecordHandler) GetHealthRecordsForPatient(c *gin.Context) {
	patientID := c.Param("patientId")

	userID, _ := middleware.GetUserIDFromContext(c)
	userRole, _ := middleware.GetUserRoleFromContext(c)

	if userRole == models.RolePatient && userID != patientID {
		utils.Forbidden(c, "You are not authorized to view these health records")
		return
	}

	var records []models.HealthRecord
	if err := h.DB.Preload("Doctor").
		Where("patient_id = ?", patientID).
		Order("record_date desc").
		Find(&records).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch health records: "+err.Error())
		return
	}

	utils.Success(c, "Health records fetched successfully", records)
}

// GetHealthRecordByID handles fetching a single health record.
func (h *HealthRecordHandler) GetHealthRecordByID(c *gin.Context) {
	recordID := c.Param("id")

	var record models.HealthRecord
	if err := h.DB.Preload("Patient").Preload("Doctor").First(&record, "id = ?", recordID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(c, "Health record not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	userID, _ := middleware.GetUserIDFromContext(c)
	userRole, _ := middleware.GetUserRoleFromContext(c)

	canView := userRole == models.RoleAdmin ||
		userRole == models.RoleDoctor ||
		userID == record.PatientID
	if !canView {
		utils.Forbidden(c, "You are not authorized to view this health record")
		return
	}

	utils.Success(c, "Health record fetched successfully", record)
}

// UpdateHealthRecordRequest represents the request body for updating a health record.
type UpdateHealthRecordRequest struct {
	RecordType models.HealthRecordType `json:"recordType"`
	RecordDate string                  `json:"recordDate"`
	Title      string                  `json:"title"`
	Department string                  `json:"department"`
	Summary    string                  `json:"summary"`
	Details    string                  `json:"details"`
}

// UpdateHealthRecord handles updating a health record. The authoring doctor
// or an admin only.
func (h *HealthRecordHandler) UpdateHealthRecord(c *gin.Context) {
	recordID := c.Param("id")

	var req UpdateHealthRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Invalid request payload: "+err.Error())
		return
	}

	var record models.HealthRecord
	if err := h.DB.First(&record, "id = ?", recordID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(c, "Health record not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	userID, _ := middleware.GetUserIDFromContext(c)
	userRole, _ := middleware.GetUserRoleFromContext(c)
	if userRole != models.RoleAdmin && userID != record.DoctorID {
		utils.Forbidden(c, "Only the authoring doctor or an admin can update this record")
		return
	}

	if req.RecordType != "" {
		record.RecordType = req.RecordType
	}
	if req.RecordDate != "" {
		recordDate, err := time.Parse(time.RFC3339, req.RecordDate)
		if err != nil {
			utils.BadRequest(c, "recordDate must be RFC3339")
			return
		}
		record.RecordDate = recordDate
	}
	if req.Title != "" {
		record.Title = req.Title
	}
	if req.Department != "" {
		record.Department = req.Department
	}
	if req.Summary != "" {
		record.Summary = req.Summary
	}
	if req.Details != "" {
		record.Details = req.Details
	}

	if err := h.DB.Save(&record).Error; err != nil {
		utils.InternalServerError(c, "Failed to update health record: "+err.Error())
		return
	}

	utils.Success(c, "Health record updated successfully", record)
}

// DeleteHealthRecord handles deleting a health record. The authoring doctor
// or an admin only.
func (h *HealthRecordHandler) DeleteHealthRecord(c *gin.Context) {
	recordID := c.Param("id")

	var record models.HealthRecord
	if err := h.DB.First(&record, "id = ?", recordID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(c, "Health record not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	userID, _ := middleware.GetUserIDFromContext(c)
	userRole, _ := middleware.GetUserRoleFromContext(c)
	if userRole != models.RoleAdmin && userID != record.DoctorID {
		utils.Forbidden(c, "Only the authoring doctor or an admin can delete this record")
		return
	}

	if err := h.DB.Delete(&record).Error; err != nil {
		utils.InternalServerError(c, "Failed to delete health record: "+err.Error())
		return
	}

	utils.Success(c, "Health record deleted successfully", nil)
}
