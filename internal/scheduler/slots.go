package scheduler

import (
	"context"
	"fmt"
	"time"
)

// Working window for every doctor, in the date's local time.
const (
	WorkdayStartHour = 9
	WorkdayEndHour   = 17
)

// GetAvailableSlots enumerates the free slot start times for a doctor on a
// future calendar date. Candidates step from 09:00 in duration-minute
// increments while the whole slot fits inside the 09:00-17:00 window; a
// candidate is available iff it overlaps no blocking-status appointment
// (half-open interval test, same as the booking conflict check). The result
// is ordered earliest first; an empty slice means a fully booked day.
func (s *Scheduler) GetAvailableSlots(ctx context.Context, doctorID string, date time.Time, duration int) ([]time.Time, error) {
	if duration <= 0 {
		duration = DefaultDurationMins
	}
	if duration < MinDurationMins || duration > MaxDurationMins {
		return nil, ErrInvalidDuration
	}

	now := s.now()
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if !day.After(today) {
		return nil, ErrInvalidDate
	}

	isDoctor, err := s.store.DoctorExists(ctx, doctorID)
	if err != nil {
		return nil, fmt.Errorf("verifying doctor: %w", err)
	}
	if !isDoctor {
		return nil, ErrDoctorNotFound
	}

	booked, err := s.store.BlockingBetween(ctx, doctorID, day, day.AddDate(0, 0, 1))
	if err != nil {
		return nil, fmt.Errorf("loading bookings: %w", err)
	}

	windowStart := day.Add(WorkdayStartHour * time.Hour)
	windowEnd := day.Add(WorkdayEndHour * time.Hour)
	step := time.Duration(duration) * time.Minute

	slots := []time.Time{}
	for start := windowStart; !start.Add(step).After(windowEnd); start = start.Add(step) {
		end := start.Add(step)
		free := true
		for i := range booked {
			if booked[i].Overlaps(start, end) {
				free = false
				break
			}
		}
		if free {
			slots = append(slots, start)
		}
	}
	return slots, nil
}
