package handlers

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"healwise-server/internal/metrics"
	"healwise-server/internal/middleware"
	"healwise-server/internal/models"
	"healwise-server/internal/scheduler"
	"healwise-server/internal/utils"
)

// AppointmentHandler handles appointment related requests.
type AppointmentHandler struct {
	DB      *gorm.DB
	Engine  *scheduler.Scheduler
	Log     *zap.Logger
	Metrics *metrics.Collector
}

// NewAppointmentHandler creates a new AppointmentHandler.
func NewAppointmentHandler(db *gorm.DB, engine *scheduler.Scheduler, log *zap.Logger, collector *metrics.Collector) *AppointmentHandler {
	return &AppointmentHandler{DB: db, Engine: engine, Log: log, Metrics: collector}
}

// respondSchedulerError maps the engine's error taxonomy onto HTTP statuses.
func respondSchedulerError(c *gin.Context, err error) {
	var conflict *scheduler.ConflictError
	switch {
	case errors.As(err, &conflict):
		utils.Conflict(c, conflict.Error(), conflict)
	case errors.Is(err, scheduler.ErrDoctorNotFound),
		errors.Is(err, scheduler.ErrAppointmentNotFound):
		utils.NotFound(c, err.Error())
	case errors.Is(err, scheduler.ErrAccessDenied):
		utils.Forbidden(c, err.Error())
	case errors.Is(err, scheduler.ErrScheduledInPast),
		errors.Is(err, scheduler.ErrInvalidDuration),
		errors.Is(err, scheduler.ErrReasonRequired),
		errors.Is(err, scheduler.ErrInvalidType),
		errors.Is(err, scheduler.ErrInvalidPriority),
		errors.Is(err, scheduler.ErrInvalidTransition),
		errors.Is(err, scheduler.ErrCancellationWindow),
		errors.Is(err, scheduler.ErrInvalidDate):
		utils.BadRequest(c, err.Error())
	default:
		utils.InternalServerError(c, "Unexpected error: "+err.Error())
	}
}

// CreateAppointmentRequest represents the request body for booking an appointment.
type CreateAppointmentRequest struct {
	DoctorID     string    `json:"doctorId" binding:"required,uuid"`
	PatientID    string    `json:"patientId"` // only honored for admins booking on a patient's behalf
	DateTime     time.Time `json:"dateTime" binding:"required"`
	Duration     int       `json:"duration"`
	Type         string    `json:"type"`
	Priority     string    `json:"priority"`
	Reason       string    `json:"reason" binding:"required"`
	Symptoms     string    `json:"symptoms"`
	PatientNotes string    `json:"patientNotes"`
}

// CreateAppointment books a new appointment in status pending. Patients book
// for themselves; admins may book on a patient's behalf.
func (h *AppointmentHandler) CreateAppointment(c *gin.Context) {
	var req CreateAppointmentRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	callerID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}
	callerRole, _ := middleware.GetUserRoleFromContext(c)

	patientID := callerID
	if req.PatientID != "" && req.PatientID != callerID {
		if callerRole != models.RoleAdmin {
			utils.Forbidden(c, "Patients can only book appointments for themselves.")
			return
		}
		patientID = req.PatientID
	}

	appointment, err := h.Engine.CreateAppointment(c.Request.Context(), scheduler.CreateInput{
		PatientID:    patientID,
		DoctorID:     req.DoctorID,
		DateTime:     req.DateTime,
		Duration:     req.Duration,
		Type:         models.AppointmentType(req.Type),
		Priority:     models.AppointmentPriority(req.Priority),
		Reason:       req.Reason,
		Symptoms:     req.Symptoms,
		PatientNotes: req.PatientNotes,
	})
	if err != nil {
		respondSchedulerError(c, err)
		return
	}

	h.Metrics.AppointmentsTotal.WithLabelValues(string(appointment.Status)).Inc()
	if appointment.Priority == models.PriorityUrgent {
		h.raiseUrgentAlert(c, appointment)
	}

	utils.Created(c, "Appointment created successfully", appointment)
}

// raiseUrgentAlert publishes an admin alert for an urgent booking. Failure
// to write the alert never fails the booking itself.
func (h *AppointmentHandler) raiseUrgentAlert(c *gin.Context, a *models.Appointment) {
	alert := models.Alert{
		Severity:  models.SeverityCritical,
		Title:     "Urgent appointment booked",
		Message:   "An urgent-priority appointment was booked for " + a.DateTime.Format(time.RFC3339),
		Active:    true,
		CreatedBy: a.PatientID,
	}
	if err := h.DB.Create(&alert).Error; err != nil {
		h.Log.Error("raising urgent-appointment alert",
			zap.String("appointmentId", a.ID), zap.Error(err))
		return
	}
	h.Metrics.AlertsPublished.Inc()
}

// GetAppointmentsForUser handles fetching appointments for the logged-in user.
// Patients see their own, doctors see their schedule, admins see everything.
func (h *AppointmentHandler) GetAppointmentsForUser(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}
	userRole, _ := middleware.GetUserRoleFromContext(c)

	var appointments []models.Appointment
	var err error

	query := h.DB.Preload("Patient").Preload("Doctor").Order("date_time asc")
	switch userRole {
	case models.RolePatient:
		err = query.Where("patient_id = ?", userID).Find(&appointments).Error
	case models.RoleDoctor:
		err = query.Where("doctor_id = ?", userID).Find(&appointments).Error
	case models.RoleAdmin:
		err = query.Find(&appointments).Error
	default:
		utils.Forbidden(c, "User role not permitted to view appointments.")
		return
	}

	if err != nil {
		utils.InternalServerError(c, "Failed to fetch appointments: "+err.Error())
		return
	}

	utils.Success(c, "Appointments fetched successfully", appointments)
}

// GetAppointmentByID handles fetching a single appointment by its ID.
// Accessible by the involved patient, the involved doctor, or an admin.
func (h *AppointmentHandler) GetAppointmentByID(c *gin.Context) {
	appointmentID := c.Param("id")

	var appointment models.Appointment
	if err := h.DB.Preload("Patient").Preload("Doctor").First(&appointment, "id = ?", appointmentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(c, "Appointment not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	userID, _ := middleware.GetUserIDFromContext(c)
	userRole, _ := middleware.GetUserRoleFromContext(c)

	isParty := userID == appointment.PatientID || userID == appointment.DoctorID
	if userRole != models.RoleAdmin && !isParty {
		utils.Forbidden(c, "You are not authorized to view this appointment")
		return
	}

	utils.Success(c, "Appointment fetched successfully", appointment)
}

// UpdateAppointmentStatusRequest represents the request body for a status transition.
type UpdateAppointmentStatusRequest struct {
	Status             string `json:"status" binding:"required"`
	DoctorNotes        string `json:"doctorNotes"`
	CancellationReason string `json:"cancellationReason"`
}

// UpdateAppointmentStatus applies one transition of the appointment state
// machine. Authorization and transition legality live in the engine.
func (h *AppointmentHandler) UpdateAppointmentStatus(c *gin.Context) {
	var req UpdateAppointmentStatusRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	callerID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}
	callerRole, _ := middleware.GetUserRoleFromContext(c)

	appointment, err := h.Engine.UpdateStatus(c.Request.Context(), callerID, callerRole, c.Param("id"), scheduler.StatusUpdate{
		Status:             models.AppointmentStatus(req.Status),
		DoctorNotes:        req.DoctorNotes,
		CancellationReason: req.CancellationReason,
	})
	if err != nil {
		respondSchedulerError(c, err)
		return
	}

	h.Metrics.AppointmentsTotal.WithLabelValues(string(appointment.Status)).Inc()
	utils.Success(c, "Appointment status updated successfully", appointment)
}

// AvailableSlotsResponse is the payload for a slot availability lookup.
type AvailableSlotsResponse struct {
	DoctorID string      `json:"doctorId"`
	Date     string      `json:"date"`
	Duration int         `json:"duration"`
	Slots    []time.Time `json:"slots"`
}

// GetAvailableSlots enumerates free slot start times for a doctor on a
// future date. Query params: doctorId, date (YYYY-MM-DD), duration (minutes).
func (h *AppointmentHandler) GetAvailableSlots(c *gin.Context) {
	doctorID := c.Query("doctorId")
	if doctorID == "" {
		utils.BadRequest(c, "doctorId query parameter is required")
		return
	}

	date, err := time.ParseInLocation("2006-01-02", c.Query("date"), time.Local)
	if err != nil {
		utils.BadRequest(c, "date must be in YYYY-MM-DD format")
		return
	}

	duration := scheduler.DefaultDurationMins
	if raw := c.Query("duration"); raw != "" {
		if duration, err = parsePositiveInt(raw); err != nil {
			utils.BadRequest(c, "duration must be a positive integer")
			return
		}
	}

	slots, err := h.Engine.GetAvailableSlots(c.Request.Context(), doctorID, date, duration)
	if err != nil {
		respondSchedulerError(c, err)
		return
	}

	h.Metrics.SlotsQueriedTotal.Inc()
	utils.Success(c, "Available slots fetched successfully", AvailableSlotsResponse{
		DoctorID: doctorID,
		Date:     date.Format("2006-01-02"),
		Duration: duration,
		Slots:    slots,
	})
}

// ConflictCheckResponse is the payload for an advisory conflict probe.
type ConflictCheckResponse struct {
	Conflict bool                     `json:"conflict"`
	Details  *scheduler.ConflictError `json:"details,omitempty"`
}

// CheckConflict probes whether a proposed interval would collide with an
// existing booking, without writing anything. Query params: doctorId,
// dateTime (RFC3339), duration, excludeId.
func (h *AppointmentHandler) CheckConflict(c *gin.Context) {
	doctorID := c.Query("doctorId")
	if doctorID == "" {
		utils.BadRequest(c, "doctorId query parameter is required")
		return
	}

	dateTime, err := time.Parse(time.RFC3339, c.Query("dateTime"))
	if err != nil {
		utils.BadRequest(c, "dateTime must be RFC3339")
		return
	}

	duration := scheduler.DefaultDurationMins
	if raw := c.Query("duration"); raw != "" {
		if duration, err = parsePositiveInt(raw); err != nil {
			utils.BadRequest(c, "duration must be a positive integer")
			return
		}
	}

	conflicting, err := h.Engine.CheckConflict(c.Request.Context(), doctorID, dateTime, duration, c.Query("excludeId"))
	if err != nil {
		respondSchedulerError(c, err)
		return
	}

	resp := ConflictCheckResponse{Conflict: conflicting != nil}
	if conflicting != nil {
		resp.Details = &scheduler.ConflictError{
			DateTime: conflicting.DateTime,
			Duration: conflicting.Duration,
		}
	}
	utils.Success(c, "Conflict check completed", resp)
}
