package models

import (
	"time"
)

// AppointmentStatus represents the lifecycle state of an appointment.
//
// State transitions:
//
//	pending → scheduled → confirmed → completed
//	scheduled → cancelled (only outside the cancellation window)
//	pending/scheduled/confirmed → completed
type AppointmentStatus string

const (
	StatusPending   AppointmentStatus = "pending"
	StatusScheduled AppointmentStatus = "scheduled"
	StatusConfirmed AppointmentStatus = "confirmed"
	StatusCompleted AppointmentStatus = "completed"
	StatusCancelled AppointmentStatus = "cancelled"
)

// IsTerminal reports whether no further transitions are allowed.
func (s AppointmentStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// AppointmentType classifies the visit.
type AppointmentType string

const (
	TypeConsultation AppointmentType = "consultation"
	TypeFollowUp     AppointmentType = "follow-up"
	TypeCheckup      AppointmentType = "checkup"
	TypeEmergency    AppointmentType = "emergency"
	TypeRoutine      AppointmentType = "routine"
)

func (t AppointmentType) IsValid() bool {
	switch t {
	case TypeConsultation, TypeFollowUp, TypeCheckup, TypeEmergency, TypeRoutine:
		return true
	}
	return false
}

// AppointmentPriority ranks urgency.
type AppointmentPriority string

const (
	PriorityLow    AppointmentPriority = "low"
	PriorityMedium AppointmentPriority = "medium"
	PriorityHigh   AppointmentPriority = "high"
	PriorityUrgent AppointmentPriority = "urgent"
)

func (p AppointmentPriority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Appointment represents one scheduled interaction between a patient and a doctor.
type Appointment struct {
	BaseModel
	PatientID string              `gorm:"size:36;index" json:"patientId"`
	DoctorID  string              `gorm:"size:36;index" json:"doctorId"`
	DateTime  time.Time           `gorm:"index" json:"dateTime"`
	Duration  int                 `gorm:"default:30" json:"duration"` // minutes
	Status    AppointmentStatus   `gorm:"size:20;default:'pending';index" json:"status"`
	Type      AppointmentType     `gorm:"size:20;default:'consultation'" json:"type"`
	Priority  AppointmentPriority `gorm:"size:20;default:'medium'" json:"priority"`

	Reason       string `gorm:"size:255" json:"reason"`
	Symptoms     string `gorm:"type:text" json:"symptoms,omitempty"`
	PatientNotes string `gorm:"type:text" json:"patientNotes,omitempty"`
	DoctorNotes  string `gorm:"type:text" json:"doctorNotes,omitempty"`

	ConfirmedAt        *time.Time `json:"confirmedAt,omitempty"`
	CompletedAt        *time.Time `json:"completedAt,omitempty"`
	CancelledBy        string     `gorm:"size:36" json:"cancelledBy,omitempty"`
	CancelledAt        *time.Time `json:"cancelledAt,omitempty"`
	CancellationReason string     `gorm:"size:255" json:"cancellationReason,omitempty"`

	// Relations
	Patient User `gorm:"foreignKey:PatientID" json:"-"`
	Doctor  User `gorm:"foreignKey:DoctorID" json:"-"`
}

// EndsAt returns the exclusive end instant of the appointment interval.
func (a *Appointment) EndsAt() time.Time {
	return a.DateTime.Add(time.Duration(a.Duration) * time.Minute)
}

// Overlaps applies the half-open interval test against [start, end).
// Touching boundaries do not overlap.
func (a *Appointment) Overlaps(start, end time.Time) bool {
	return a.DateTime.Before(end) && a.EndsAt().After(start)
}
