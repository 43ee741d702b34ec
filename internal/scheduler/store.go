package scheduler

import (
	"context"
	"time"

	"healwise-server/internal/models"
)

// BlockingStatuses are the appointment states that reserve a doctor's time.
// Pending bookings hold their slot until a doctor approves or cancels them,
// so two patients can never wait on the same time.
var BlockingStatuses = []models.AppointmentStatus{
	models.StatusPending,
	models.StatusScheduled,
	models.StatusConfirmed,
}

// Clock supplies the current time. Injected so window and lead-time policy
// can be tested against a fixed instant.
type Clock func() time.Time

// Store is the persistence contract the scheduling engine operates through.
// Implementations return (nil, nil) from lookups when no row matches.
type Store interface {
	// DoctorExists reports whether id names an account with the doctor role.
	DoctorExists(ctx context.Context, id string) (bool, error)

	// AppointmentByID loads a single appointment.
	AppointmentByID(ctx context.Context, id string) (*models.Appointment, error)

	// FirstConflict returns the earliest blocking-status appointment for the
	// doctor whose interval overlaps [start, end), skipping excludeID when
	// non-empty.
	FirstConflict(ctx context.Context, doctorID string, start, end time.Time, excludeID string) (*models.Appointment, error)

	// BlockingBetween returns the doctor's blocking-status appointments
	// starting within [from, to), ordered by start time.
	BlockingBetween(ctx context.Context, doctorID string, from, to time.Time) ([]models.Appointment, error)

	// InsertIfFree re-runs the conflict check and inserts the appointment
	// atomically, so a slot cannot be double-booked between probe and write.
	// It returns the conflicting appointment when the slot was taken.
	InsertIfFree(ctx context.Context, a *models.Appointment) (*models.Appointment, error)

	// Update persists a status transition.
	Update(ctx context.Context, a *models.Appointment) error
}
