package models

import (
	"time"
)

// AlertSeverity grades an administrative alert.
type AlertSeverity string

const (
	SeverityInfo     AlertSeverity = "info"
	SeverityWarning  AlertSeverity = "warning"
	SeverityCritical AlertSeverity = "critical"
)

func (s AlertSeverity) IsValid() bool {
	switch s {
	case SeverityInfo, SeverityWarning, SeverityCritical:
		return true
	}
	return false
}

// Alert represents an administrative broadcast shown to portal users.
// Alerts are published by admins, or raised automatically when an
// urgent-priority appointment is booked.
type Alert struct {
	BaseModel
	Severity  AlertSeverity `gorm:"size:20;default:'info'" json:"severity"`
	Title     string        `gorm:"size:255;not null" json:"title"`
	Message   string        `gorm:"type:text" json:"message"`
	Active    bool          `gorm:"default:true;index" json:"active"`
	ExpiresAt *time.Time    `json:"expiresAt,omitempty"`
	CreatedBy string        `gorm:"size:36" json:"createdBy"`

	Creator User `gorm:"foreignKey:CreatedBy" json:"-"`
}
