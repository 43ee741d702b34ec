package scheduler

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrDoctorNotFound      = errors.New("doctor not found")
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrAccessDenied        = errors.New("caller is not authorized for this appointment")
	ErrScheduledInPast     = errors.New("appointment date must be in the future")
	ErrInvalidDuration     = errors.New("appointment duration must be between 15 and 180 minutes")
	ErrReasonRequired      = errors.New("appointment reason is required")
	ErrInvalidType         = errors.New("invalid appointment type")
	ErrInvalidPriority     = errors.New("invalid appointment priority")
	ErrInvalidTransition   = errors.New("invalid appointment status transition")
	ErrCancellationWindow  = errors.New("appointments can only be cancelled at least 2 hours before their start")
	ErrInvalidDate         = errors.New("availability date must be in the future")
)

// ConflictError reports an overlapping booking. It carries the conflicting
// appointment's start and duration so the client can offer an alternative.
type ConflictError struct {
	DateTime time.Time `json:"dateTime"`
	Duration int       `json:"duration"`
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("doctor already booked at %s for %d minutes",
		e.DateTime.Format(time.RFC3339), e.Duration)
}
