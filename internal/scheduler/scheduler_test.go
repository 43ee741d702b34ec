package scheduler_test

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"healwise-server/internal/models"
	"healwise-server/internal/scheduler"
)

// memStore is an in-memory Store for engine tests.
type memStore struct {
	mu           sync.Mutex
	doctors      map[string]bool
	appointments map[string]models.Appointment
}

func newMemStore() *memStore {
	return &memStore{
		doctors:      make(map[string]bool),
		appointments: make(map[string]models.Appointment),
	}
}

func (m *memStore) addDoctor(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.doctors[id] = true
}

func (m *memStore) seed(a models.Appointment) models.Appointment {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	m.appointments[a.ID] = a
	return a
}

func (m *memStore) DoctorExists(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.doctors[id], nil
}

func (m *memStore) AppointmentByID(ctx context.Context, id string) (*models.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appointments[id]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func blocking(status models.AppointmentStatus) bool {
	for _, s := range scheduler.BlockingStatuses {
		if s == status {
			return true
		}
	}
	return false
}

func (m *memStore) firstConflictLocked(doctorID string, start, end time.Time, excludeID string) *models.Appointment {
	var found *models.Appointment
	for id := range m.appointments {
		a := m.appointments[id]
		if a.DoctorID != doctorID || !blocking(a.Status) || a.ID == excludeID {
			continue
		}
		if !a.Overlaps(start, end) {
			continue
		}
		if found == nil || a.DateTime.Before(found.DateTime) {
			c := a
			found = &c
		}
	}
	return found
}

func (m *memStore) FirstConflict(ctx context.Context, doctorID string, start, end time.Time, excludeID string) (*models.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.firstConflictLocked(doctorID, start, end, excludeID), nil
}

func (m *memStore) BlockingBetween(ctx context.Context, doctorID string, from, to time.Time) ([]models.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Appointment
	for id := range m.appointments {
		a := m.appointments[id]
		if a.DoctorID != doctorID || !blocking(a.Status) {
			continue
		}
		if a.DateTime.Before(from) || !a.DateTime.Before(to) {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DateTime.Before(out[j].DateTime) })
	return out, nil
}

func (m *memStore) InsertIfFree(ctx context.Context, a *models.Appointment) (*models.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c := m.firstConflictLocked(a.DoctorID, a.DateTime, a.EndsAt(), ""); c != nil {
		return c, nil
	}
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	m.appointments[a.ID] = *a
	return nil, nil
}

func (m *memStore) Update(ctx context.Context, a *models.Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.appointments[a.ID] = *a
	return nil
}

// invariantHolds checks the no-overlap invariant across every pair of a
// doctor's blocking-status appointments.
func (m *memStore) invariantHolds(doctorID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []models.Appointment
	for id := range m.appointments {
		a := m.appointments[id]
		if a.DoctorID == doctorID && blocking(a.Status) {
			all = append(all, a)
		}
	}
	for i := range all {
		for j := i + 1; j < len(all); j++ {
			if all[i].Overlaps(all[j].DateTime, all[j].EndsAt()) {
				return false
			}
		}
	}
	return true
}

const (
	doctorID   = "a4c135d8-59a5-4cbd-9f7c-3f79a2a6a6ce"
	patientID  = "0de94acb-6b67-4a0b-8a8f-9c41ad1d2f7a"
	adminID    = "9b2b15e1-5af5-4f0a-93de-50a0fc2dcb55"
	strangerID = "e9c1f702-24a8-41ac-a0f2-6c9a5c7e9b11"
)

// baseClock is 08:00 on an arbitrary fixed day.
var baseClock = time.Date(2030, time.March, 4, 8, 0, 0, 0, time.UTC)

func newTestScheduler(t *testing.T) (*scheduler.Scheduler, *memStore) {
	t.Helper()
	store := newMemStore()
	store.addDoctor(doctorID)
	s := scheduler.New(store, func() time.Time { return baseClock }, nil)
	return s, store
}

func validInput(dateTime time.Time) scheduler.CreateInput {
	return scheduler.CreateInput{
		PatientID: patientID,
		DoctorID:  doctorID,
		DateTime:  dateTime,
		Reason:    "persistent headaches",
	}
}

func TestCreateAppointmentDefaults(t *testing.T) {
	s, _ := newTestScheduler(t)

	a, err := s.CreateAppointment(context.Background(), validInput(baseClock.Add(24*time.Hour)))
	require.NoError(t, err)

	assert.NotEmpty(t, a.ID)
	assert.Equal(t, models.StatusPending, a.Status)
	assert.Equal(t, scheduler.DefaultDurationMins, a.Duration)
	assert.Equal(t, models.TypeConsultation, a.Type)
	assert.Equal(t, models.PriorityMedium, a.Priority)
	assert.Equal(t, patientID, a.PatientID)
}

func TestCreateAppointmentValidation(t *testing.T) {
	s, _ := newTestScheduler(t)
	future := baseClock.Add(24 * time.Hour)

	tests := []struct {
		name    string
		mutate  func(*scheduler.CreateInput)
		wantErr error
	}{
		{"past date", func(in *scheduler.CreateInput) { in.DateTime = baseClock.Add(-time.Hour) }, scheduler.ErrScheduledInPast},
		{"exactly now", func(in *scheduler.CreateInput) { in.DateTime = baseClock }, scheduler.ErrScheduledInPast},
		{"empty reason", func(in *scheduler.CreateInput) { in.Reason = "  " }, scheduler.ErrReasonRequired},
		{"duration too short", func(in *scheduler.CreateInput) { in.Duration = 10 }, scheduler.ErrInvalidDuration},
		{"duration too long", func(in *scheduler.CreateInput) { in.Duration = 181 }, scheduler.ErrInvalidDuration},
		{"bad type", func(in *scheduler.CreateInput) { in.Type = "surgery" }, scheduler.ErrInvalidType},
		{"bad priority", func(in *scheduler.CreateInput) { in.Priority = "extreme" }, scheduler.ErrInvalidPriority},
		{"unknown doctor", func(in *scheduler.CreateInput) { in.DoctorID = strangerID }, scheduler.ErrDoctorNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInput(future)
			tt.mutate(&in)
			_, err := s.CreateAppointment(context.Background(), in)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestConflictRejection(t *testing.T) {
	s, store := newTestScheduler(t)

	// confirmed appointment tomorrow 10:00-10:30
	at10 := baseClock.Add(24 * time.Hour).Add(2 * time.Hour)
	store.seed(models.Appointment{
		DoctorID:  doctorID,
		PatientID: strangerID,
		DateTime:  at10,
		Duration:  30,
		Status:    models.StatusConfirmed,
	})

	// overlapping start at 10:15 must fail regardless of duration
	_, err := s.CreateAppointment(context.Background(), func() scheduler.CreateInput {
		in := validInput(at10.Add(15 * time.Minute))
		in.Duration = 15
		return in
	}())
	var conflict *scheduler.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.True(t, conflict.DateTime.Equal(at10))
	assert.Equal(t, 30, conflict.Duration)

	// touching boundary at 10:30 is not an overlap
	a, err := s.CreateAppointment(context.Background(), validInput(at10.Add(30*time.Minute)))
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, a.Status)

	assert.True(t, store.invariantHolds(doctorID))
}

func TestPendingReservesSlot(t *testing.T) {
	s, store := newTestScheduler(t)

	at := baseClock.Add(24 * time.Hour)
	store.seed(models.Appointment{
		DoctorID:  doctorID,
		PatientID: strangerID,
		DateTime:  at,
		Duration:  30,
		Status:    models.StatusPending,
	})

	_, err := s.CreateAppointment(context.Background(), validInput(at.Add(10*time.Minute)))
	var conflict *scheduler.ConflictError
	assert.ErrorAs(t, err, &conflict)
}

func TestCancelledDoesNotBlock(t *testing.T) {
	s, store := newTestScheduler(t)

	at := baseClock.Add(24 * time.Hour)
	store.seed(models.Appointment{
		DoctorID:  doctorID,
		PatientID: strangerID,
		DateTime:  at,
		Duration:  30,
		Status:    models.StatusCancelled,
	})

	_, err := s.CreateAppointment(context.Background(), validInput(at))
	assert.NoError(t, err)
}

func TestUpdateStatusHappyPath(t *testing.T) {
	s, store := newTestScheduler(t)
	ctx := context.Background()

	a := store.seed(models.Appointment{
		DoctorID:  doctorID,
		PatientID: patientID,
		DateTime:  baseClock.Add(24 * time.Hour),
		Duration:  30,
		Status:    models.StatusPending,
	})

	// doctor approval: pending -> scheduled
	updated, err := s.UpdateStatus(ctx, doctorID, models.RoleDoctor, a.ID, scheduler.StatusUpdate{Status: models.StatusScheduled})
	require.NoError(t, err)
	assert.Equal(t, models.StatusScheduled, updated.Status)

	// scheduled -> confirmed stamps confirmedAt
	updated, err = s.UpdateStatus(ctx, doctorID, models.RoleDoctor, a.ID, scheduler.StatusUpdate{Status: models.StatusConfirmed})
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, updated.Status)
	require.NotNil(t, updated.ConfirmedAt)
	assert.True(t, updated.ConfirmedAt.Equal(baseClock))

	// confirmed -> completed stamps completedAt and attaches notes
	updated, err = s.UpdateStatus(ctx, doctorID, models.RoleDoctor, a.ID, scheduler.StatusUpdate{
		Status:      models.StatusCompleted,
		DoctorNotes: "prescribed rest",
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, updated.Status)
	require.NotNil(t, updated.CompletedAt)
	assert.Equal(t, "prescribed rest", updated.DoctorNotes)

	// terminal: nothing more is allowed
	_, err = s.UpdateStatus(ctx, doctorID, models.RoleDoctor, a.ID, scheduler.StatusUpdate{Status: models.StatusConfirmed})
	assert.ErrorIs(t, err, scheduler.ErrInvalidTransition)
}

func TestUpdateStatusGuards(t *testing.T) {
	s, store := newTestScheduler(t)
	ctx := context.Background()

	seedPending := func() models.Appointment {
		return store.seed(models.Appointment{
			DoctorID:  doctorID,
			PatientID: patientID,
			DateTime:  baseClock.Add(24 * time.Hour),
			Duration:  30,
			Status:    models.StatusPending,
		})
	}

	t.Run("unknown appointment", func(t *testing.T) {
		_, err := s.UpdateStatus(ctx, doctorID, models.RoleDoctor, uuid.New().String(), scheduler.StatusUpdate{Status: models.StatusConfirmed})
		assert.ErrorIs(t, err, scheduler.ErrAppointmentNotFound)
	})

	t.Run("stranger denied every target", func(t *testing.T) {
		a := seedPending()
		for _, target := range []models.AppointmentStatus{
			models.StatusScheduled, models.StatusConfirmed, models.StatusCompleted, models.StatusCancelled,
		} {
			_, err := s.UpdateStatus(ctx, strangerID, models.RolePatient, a.ID, scheduler.StatusUpdate{Status: target})
			assert.ErrorIs(t, err, scheduler.ErrAccessDenied, "target %s", target)
		}
	})

	t.Run("patient cannot confirm own appointment", func(t *testing.T) {
		a := seedPending()
		_, err := s.UpdateStatus(ctx, patientID, models.RolePatient, a.ID, scheduler.StatusUpdate{Status: models.StatusConfirmed})
		assert.ErrorIs(t, err, scheduler.ErrAccessDenied)
	})

	t.Run("unrecognized target rejected", func(t *testing.T) {
		a := seedPending()
		_, err := s.UpdateStatus(ctx, doctorID, models.RoleDoctor, a.ID, scheduler.StatusUpdate{Status: "rescheduled"})
		assert.ErrorIs(t, err, scheduler.ErrInvalidTransition)
	})

	t.Run("approval only from pending", func(t *testing.T) {
		a := seedPending()
		a.Status = models.StatusConfirmed
		require.NoError(t, store.Update(ctx, &a))
		_, err := s.UpdateStatus(ctx, doctorID, models.RoleDoctor, a.ID, scheduler.StatusUpdate{Status: models.StatusScheduled})
		assert.ErrorIs(t, err, scheduler.ErrInvalidTransition)
	})
}

func TestUpdateStatusAdminOverride(t *testing.T) {
	s, store := newTestScheduler(t)
	ctx := context.Background()

	seedScheduled := func() models.Appointment {
		return store.seed(models.Appointment{
			DoctorID:  doctorID,
			PatientID: patientID,
			DateTime:  baseClock.Add(48 * time.Hour),
			Duration:  30,
			Status:    models.StatusScheduled,
		})
	}

	t.Run("admin cancels without being a party", func(t *testing.T) {
		a := seedScheduled()
		updated, err := s.UpdateStatus(ctx, adminID, models.RoleAdmin, a.ID, scheduler.StatusUpdate{
			Status:             models.StatusCancelled,
			CancellationReason: "doctor unavailable",
		})
		require.NoError(t, err)
		assert.Equal(t, models.StatusCancelled, updated.Status)
		assert.Equal(t, adminID, updated.CancelledBy)
	})

	t.Run("admin still bound by cancellation window", func(t *testing.T) {
		a := store.seed(models.Appointment{
			DoctorID:  doctorID,
			PatientID: patientID,
			DateTime:  baseClock.Add(time.Hour),
			Duration:  30,
			Status:    models.StatusScheduled,
		})
		_, err := s.UpdateStatus(ctx, adminID, models.RoleAdmin, a.ID, scheduler.StatusUpdate{Status: models.StatusCancelled})
		assert.ErrorIs(t, err, scheduler.ErrCancellationWindow)
	})

	t.Run("clinical transitions stay doctor-only", func(t *testing.T) {
		pending := store.seed(models.Appointment{
			DoctorID:  doctorID,
			PatientID: patientID,
			DateTime:  baseClock.Add(48 * time.Hour),
			Duration:  30,
			Status:    models.StatusPending,
		})
		for _, target := range []models.AppointmentStatus{
			models.StatusScheduled, models.StatusConfirmed, models.StatusCompleted,
		} {
			_, err := s.UpdateStatus(ctx, adminID, models.RoleAdmin, pending.ID, scheduler.StatusUpdate{Status: target})
			assert.ErrorIs(t, err, scheduler.ErrAccessDenied, "target %s", target)
		}
	})
}

func TestCancellationWindow(t *testing.T) {
	s, store := newTestScheduler(t)
	ctx := context.Background()

	seedScheduled := func(lead time.Duration) models.Appointment {
		return store.seed(models.Appointment{
			DoctorID:  doctorID,
			PatientID: patientID,
			DateTime:  baseClock.Add(lead),
			Duration:  30,
			Status:    models.StatusScheduled,
		})
	}

	t.Run("inside window rejected", func(t *testing.T) {
		a := seedScheduled(time.Hour + 59*time.Minute)
		_, err := s.UpdateStatus(ctx, patientID, models.RolePatient, a.ID, scheduler.StatusUpdate{Status: models.StatusCancelled})
		assert.ErrorIs(t, err, scheduler.ErrCancellationWindow)
	})

	t.Run("outside window allowed", func(t *testing.T) {
		a := seedScheduled(2*time.Hour + time.Minute)
		updated, err := s.UpdateStatus(ctx, patientID, models.RolePatient, a.ID, scheduler.StatusUpdate{
			Status:             models.StatusCancelled,
			CancellationReason: "feeling better",
		})
		require.NoError(t, err)
		assert.Equal(t, models.StatusCancelled, updated.Status)
		assert.Equal(t, patientID, updated.CancelledBy)
		require.NotNil(t, updated.CancelledAt)
		assert.Equal(t, "feeling better", updated.CancellationReason)
	})

	t.Run("exactly at window boundary allowed", func(t *testing.T) {
		a := seedScheduled(2 * time.Hour)
		_, err := s.UpdateStatus(ctx, doctorID, models.RoleDoctor, a.ID, scheduler.StatusUpdate{Status: models.StatusCancelled})
		assert.NoError(t, err)
	})

	t.Run("pending cannot be cancelled", func(t *testing.T) {
		a := store.seed(models.Appointment{
			DoctorID:  doctorID,
			PatientID: patientID,
			DateTime:  baseClock.Add(48 * time.Hour),
			Duration:  30,
			Status:    models.StatusPending,
		})
		_, err := s.UpdateStatus(ctx, patientID, models.RolePatient, a.ID, scheduler.StatusUpdate{Status: models.StatusCancelled})
		assert.ErrorIs(t, err, scheduler.ErrCancellationWindow)
	})

	t.Run("terminal state cannot be cancelled again", func(t *testing.T) {
		a := seedScheduled(48 * time.Hour)
		_, err := s.UpdateStatus(ctx, patientID, models.RolePatient, a.ID, scheduler.StatusUpdate{Status: models.StatusCancelled})
		require.NoError(t, err)

		reloaded, err := store.AppointmentByID(ctx, a.ID)
		require.NoError(t, err)
		assert.False(t, s.CanCancel(reloaded, baseClock))

		_, err = s.UpdateStatus(ctx, patientID, models.RolePatient, a.ID, scheduler.StatusUpdate{Status: models.StatusCancelled})
		assert.ErrorIs(t, err, scheduler.ErrInvalidTransition)
	})
}

func TestCheckConflict(t *testing.T) {
	s, store := newTestScheduler(t)
	ctx := context.Background()

	at := baseClock.Add(24 * time.Hour)
	a := store.seed(models.Appointment{
		DoctorID:  doctorID,
		PatientID: patientID,
		DateTime:  at,
		Duration:  30,
		Status:    models.StatusScheduled,
	})

	conflicting, err := s.CheckConflict(ctx, doctorID, at.Add(15*time.Minute), 30, "")
	require.NoError(t, err)
	require.NotNil(t, conflicting)
	assert.Equal(t, a.ID, conflicting.ID)

	// excluding the appointment itself frees the interval
	conflicting, err = s.CheckConflict(ctx, doctorID, at.Add(15*time.Minute), 30, a.ID)
	require.NoError(t, err)
	assert.Nil(t, conflicting)

	// adjacent interval is free
	conflicting, err = s.CheckConflict(ctx, doctorID, at.Add(30*time.Minute), 30, "")
	require.NoError(t, err)
	assert.Nil(t, conflicting)
}

func TestCreateAfterCancelReopensSlot(t *testing.T) {
	s, store := newTestScheduler(t)
	ctx := context.Background()

	at := baseClock.Add(24 * time.Hour)
	a := store.seed(models.Appointment{
		DoctorID:  doctorID,
		PatientID: patientID,
		DateTime:  at,
		Duration:  30,
		Status:    models.StatusScheduled,
	})

	_, err := s.CreateAppointment(ctx, validInput(at))
	var conflict *scheduler.ConflictError
	require.ErrorAs(t, err, &conflict)

	_, err = s.UpdateStatus(ctx, patientID, models.RolePatient, a.ID, scheduler.StatusUpdate{Status: models.StatusCancelled})
	require.NoError(t, err)

	_, err = s.CreateAppointment(ctx, validInput(at))
	require.NoError(t, err)
	assert.True(t, store.invariantHolds(doctorID))
}

func TestErrorsAreTyped(t *testing.T) {
	// ConflictError must stay distinguishable from the sentinel set.
	err := error(&scheduler.ConflictError{DateTime: baseClock, Duration: 30})
	var conflict *scheduler.ConflictError
	assert.True(t, errors.As(err, &conflict))
	assert.False(t, errors.Is(err, scheduler.ErrInvalidTransition))
	assert.Contains(t, err.Error(), "30 minutes")
}
