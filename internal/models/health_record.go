package models

import (
	"time"
)

// HealthRecordType represents the type of health record
type HealthRecordType string

const (
	RecordTypeConsultation     HealthRecordType = "ConsultationNote"
	RecordTypeLabResult        HealthRecordType = "LabResult"
	RecordTypePrescription     HealthRecordType = "Prescription"
	RecordTypeImagingReport    HealthRecordType = "ImagingReport"
	RecordTypeVaccination      HealthRecordType = "VaccinationRecord"
	RecordTypeAllergy          HealthRecordType = "AllergyRecord"
	RecordTypeDischargeSummary HealthRecordType = "DischargeSummary"
)

// HealthRecord represents a patient's health record entry, authored by a doctor.
type HealthRecord struct {
	BaseModel
	PatientID  string           `gorm:"size:36;index" json:"patientId"`
	DoctorID   string           `gorm:"size:36;index" json:"doctorId"`
	RecordType HealthRecordType `gorm:"size:50" json:"recordType"`
	RecordDate time.Time        `json:"date"`
	Title      string           `gorm:"size:255;not null" json:"title"`
	Department string           `gorm:"size:100" json:"department"`
	Summary    string           `gorm:"type:text" json:"summary"`
	Details    string           `gorm:"type:text" json:"details"`

	// Relations
	Patient User `gorm:"foreignKey:PatientID" json:"-"`
	Doctor  User `gorm:"foreignKey:DoctorID" json:"-"`
}
