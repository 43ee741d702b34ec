package scheduler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"healwise-server/internal/models"
)

const (
	// MinDurationMins and MaxDurationMins bound a single visit.
	MinDurationMins     = 15
	MaxDurationMins     = 180
	DefaultDurationMins = 30

	// CancellationWindow is the minimum lead time before an appointment's
	// start at which cancellation is still permitted.
	CancellationWindow = 2 * time.Hour
)

// Scheduler owns the appointment lifecycle: creation with conflict-freedom,
// status transitions, cancellation-window policy, and slot availability.
// It is stateless; all state lives in the Store.
type Scheduler struct {
	store Store
	now   Clock
	log   *zap.Logger
}

func New(store Store, now Clock, log *zap.Logger) *Scheduler {
	if now == nil {
		now = time.Now
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Scheduler{store: store, now: now, log: log}
}

// CreateInput carries the fields a booking request may set.
type CreateInput struct {
	PatientID    string
	DoctorID     string
	DateTime     time.Time
	Duration     int
	Type         models.AppointmentType
	Priority     models.AppointmentPriority
	Reason       string
	Symptoms     string
	PatientNotes string
}

// CreateAppointment validates the request, verifies the doctor, and books
// the visit in status pending. The conflict check and insert run atomically
// in the store, so overlapping bookings for the same doctor cannot both
// commit.
func (s *Scheduler) CreateAppointment(ctx context.Context, in CreateInput) (*models.Appointment, error) {
	if in.Duration == 0 {
		in.Duration = DefaultDurationMins
	}
	if in.Duration < MinDurationMins || in.Duration > MaxDurationMins {
		return nil, ErrInvalidDuration
	}
	if strings.TrimSpace(in.Reason) == "" {
		return nil, ErrReasonRequired
	}
	if in.Type == "" {
		in.Type = models.TypeConsultation
	} else if !in.Type.IsValid() {
		return nil, ErrInvalidType
	}
	if in.Priority == "" {
		in.Priority = models.PriorityMedium
	} else if !in.Priority.IsValid() {
		return nil, ErrInvalidPriority
	}
	if !in.DateTime.After(s.now()) {
		return nil, ErrScheduledInPast
	}

	isDoctor, err := s.store.DoctorExists(ctx, in.DoctorID)
	if err != nil {
		return nil, fmt.Errorf("verifying doctor: %w", err)
	}
	if !isDoctor {
		return nil, ErrDoctorNotFound
	}

	a := &models.Appointment{
		PatientID:    in.PatientID,
		DoctorID:     in.DoctorID,
		DateTime:     in.DateTime,
		Duration:     in.Duration,
		Status:       models.StatusPending,
		Type:         in.Type,
		Priority:     in.Priority,
		Reason:       in.Reason,
		Symptoms:     in.Symptoms,
		PatientNotes: in.PatientNotes,
	}

	conflict, err := s.store.InsertIfFree(ctx, a)
	if err != nil {
		s.log.Error("booking appointment", zap.String("doctorId", in.DoctorID), zap.Error(err))
		return nil, fmt.Errorf("booking appointment: %w", err)
	}
	if conflict != nil {
		return nil, &ConflictError{DateTime: conflict.DateTime, Duration: conflict.Duration}
	}
	return a, nil
}

// StatusUpdate carries the optional fields a transition may attach.
type StatusUpdate struct {
	Status             models.AppointmentStatus
	DoctorNotes        string
	CancellationReason string
}

// UpdateStatus applies one transition of the appointment state machine:
//
//	pending            → scheduled  (doctor approval)
//	pending/scheduled  → confirmed  (doctor)
//	any non-terminal   → completed  (doctor, may attach notes)
//	scheduled          → cancelled  (patient/doctor party or admin,
//	                                 outside the cancellation window)
//
// completed and cancelled are terminal. Any other target is rejected with
// ErrInvalidTransition rather than written through.
func (s *Scheduler) UpdateStatus(ctx context.Context, callerID string, callerRole models.Role, appointmentID string, upd StatusUpdate) (*models.Appointment, error) {
	a, err := s.store.AppointmentByID(ctx, appointmentID)
	if err != nil {
		return nil, fmt.Errorf("loading appointment: %w", err)
	}
	if a == nil {
		return nil, ErrAppointmentNotFound
	}

	isParty := callerID == a.PatientID || callerID == a.DoctorID
	if callerRole != models.RoleAdmin && !isParty {
		return nil, ErrAccessDenied
	}
	if a.Status.IsTerminal() {
		return nil, ErrInvalidTransition
	}

	now := s.now()
	switch upd.Status {
	case models.StatusScheduled:
		if callerRole != models.RoleDoctor || callerID != a.DoctorID {
			return nil, ErrAccessDenied
		}
		if a.Status != models.StatusPending {
			return nil, ErrInvalidTransition
		}
		a.Status = models.StatusScheduled

	case models.StatusConfirmed:
		if callerRole != models.RoleDoctor || callerID != a.DoctorID {
			return nil, ErrAccessDenied
		}
		if a.Status != models.StatusPending && a.Status != models.StatusScheduled {
			return nil, ErrInvalidTransition
		}
		a.Status = models.StatusConfirmed
		a.ConfirmedAt = &now

	case models.StatusCompleted:
		if callerRole != models.RoleDoctor || callerID != a.DoctorID {
			return nil, ErrAccessDenied
		}
		a.Status = models.StatusCompleted
		a.CompletedAt = &now
		if upd.DoctorNotes != "" {
			a.DoctorNotes = upd.DoctorNotes
		}

	case models.StatusCancelled:
		if !s.CanCancel(a, now) {
			return nil, ErrCancellationWindow
		}
		a.Status = models.StatusCancelled
		a.CancelledBy = callerID
		a.CancelledAt = &now
		a.CancellationReason = upd.CancellationReason

	default:
		return nil, ErrInvalidTransition
	}

	if err := s.store.Update(ctx, a); err != nil {
		s.log.Error("updating appointment status",
			zap.String("appointmentId", appointmentID),
			zap.String("target", string(upd.Status)),
			zap.Error(err))
		return nil, fmt.Errorf("updating appointment: %w", err)
	}
	return a, nil
}

// CanCancel reports whether the appointment may still be cancelled at now:
// it must be in status scheduled with at least CancellationWindow of lead
// time remaining.
func (s *Scheduler) CanCancel(a *models.Appointment, now time.Time) bool {
	return a.Status == models.StatusScheduled && a.DateTime.Sub(now) >= CancellationWindow
}

// CheckConflict probes for an overlapping blocking-status appointment
// without writing anything. excludeID skips an appointment being
// re-validated in place. Returns nil when the interval is free.
func (s *Scheduler) CheckConflict(ctx context.Context, doctorID string, dateTime time.Time, duration int, excludeID string) (*models.Appointment, error) {
	if duration <= 0 {
		duration = DefaultDurationMins
	}
	end := dateTime.Add(time.Duration(duration) * time.Minute)
	return s.store.FirstConflict(ctx, doctorID, dateTime, end, excludeID)
}
