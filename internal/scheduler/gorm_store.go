package scheduler

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"healwise-server/internal/models"
)

// GormStore is the MySQL-backed Store.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (g *GormStore) DoctorExists(ctx context.Context, id string) (bool, error) {
	var count int64
	err := g.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ? AND role = ?", id, models.RoleDoctor).
		Count(&count).Error
	return count > 0, err
}

func (g *GormStore) AppointmentByID(ctx context.Context, id string) (*models.Appointment, error) {
	var a models.Appointment
	err := g.db.WithContext(ctx).First(&a, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (g *GormStore) FirstConflict(ctx context.Context, doctorID string, start, end time.Time, excludeID string) (*models.Appointment, error) {
	return firstConflict(g.db.WithContext(ctx), doctorID, start, end, excludeID)
}

func firstConflict(tx *gorm.DB, doctorID string, start, end time.Time, excludeID string) (*models.Appointment, error) {
	q := tx.
		Where("doctor_id = ? AND status IN ?", doctorID, BlockingStatuses).
		Where("date_time < ? AND DATE_ADD(date_time, INTERVAL duration MINUTE) > ?", end, start).
		Order("date_time asc")
	if excludeID != "" {
		q = q.Where("id <> ?", excludeID)
	}

	var a models.Appointment
	err := q.First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// InsertIfFree re-checks for conflicts and inserts inside one transaction,
// closing the read-then-write race between two concurrent bookings.
func (g *GormStore) InsertIfFree(ctx context.Context, a *models.Appointment) (*models.Appointment, error) {
	var conflict *models.Appointment
	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c, err := firstConflict(tx, a.DoctorID, a.DateTime, a.EndsAt(), "")
		if err != nil {
			return err
		}
		if c != nil {
			conflict = c
			return nil
		}
		return tx.Create(a).Error
	})
	if err != nil {
		return nil, err
	}
	return conflict, nil
}

func (g *GormStore) BlockingBetween(ctx context.Context, doctorID string, from, to time.Time) ([]models.Appointment, error) {
	var out []models.Appointment
	err := g.db.WithContext(ctx).
		Where("doctor_id = ? AND status IN ?", doctorID, BlockingStatuses).
		Where("date_time >= ? AND date_time < ?", from, to).
		Order("date_time asc").
		Find(&out).Error
	return out, err
}

func (g *GormStore) Update(ctx context.Context, a *models.Appointment) error {
	return g.db.WithContext(ctx).Save(a).Error
}
