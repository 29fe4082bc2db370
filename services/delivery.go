package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"stoplist-telegram/models"
)

// CustomDateLayout is the format operators type a suspension end in.
const CustomDateLayout = "02.01.2006 15:04"

var (
	HourPresets = []int{1, 2, 4, 8, 24}
	DayPresets  = []int{1, 3, 7, 14, 30}
)

// DeliveryService schedules delivery suspensions. It never caches: every
// check reloads the state.
type DeliveryService struct {
	repo *StateRepository
	now  func() time.Time
	loc  *time.Location
}

// NewDeliveryService builds the service. now defaults to time.Now and loc,
// the zone custom dates are read in, to time.Local.
func NewDeliveryService(repo *StateRepository, now func() time.Time, loc *time.Location) *DeliveryService {
	if now == nil {
		now = time.Now
	}
	if loc == nil {
		loc = time.Local
	}
	return &DeliveryService{repo: repo, now: now, loc: loc}
}

func (d *DeliveryService) Now() time.Time { return d.now().In(d.loc) }

func (d *DeliveryService) Location() *time.Location { return d.loc }

// Status reloads the state and returns the end of the current suspension,
// or nil when delivery is enabled.
func (d *DeliveryService) Status(ctx context.Context) *time.Time {
	st := d.repo.LoadState(ctx)
	if !st.Delivery.DisabledAt(d.now()) {
		return nil
	}
	until := st.Delivery.DisabledUntil.In(d.loc)
	return &until
}

func (d *DeliveryService) IsDisabled(ctx context.Context) bool {
	return d.Status(ctx) != nil
}

// Enable clears any suspension.
func (d *DeliveryService) Enable(ctx context.Context) SaveOutcome {
	_, out, _ := d.repo.Update(ctx, func(st *models.State) (bool, error) {
		st.Delivery = models.DeliveryStatus{}
		return true, nil
	})
	return out
}

// DisableFor suspends delivery until now plus dur.
func (d *DeliveryService) DisableFor(ctx context.Context, dur time.Duration) (time.Time, SaveOutcome, error) {
	if dur <= 0 {
		return time.Time{}, Unchanged, fmt.Errorf("%w: duration must be positive", ErrInputValidation)
	}
	until := d.Now().Add(dur)
	out, err := d.DisableUntil(ctx, until)
	return until, out, err
}

// DisableUntil suspends delivery until the given instant, which must lie in
// the future.
func (d *DeliveryService) DisableUntil(ctx context.Context, until time.Time) (SaveOutcome, error) {
	if !until.After(d.now()) {
		return Unchanged, fmt.Errorf("%w: %s is not in the future", ErrInputValidation, until.Format(CustomDateLayout))
	}
	_, out, err := d.repo.Update(ctx, func(st *models.State) (bool, error) {
		u := until
		st.Delivery = models.DeliveryStatus{DisabledUntil: &u}
		return true, nil
	})
	return out, err
}

// ParseCustomDate reads a "DD.MM.YYYY HH:MM" string in the service's zone.
func (d *DeliveryService) ParseCustomDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(CustomDateLayout, strings.TrimSpace(s), d.loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date must look like 25.12.2025 18:00", ErrInputValidation)
	}
	return t, nil
}

// IsPreset reports whether n appears in presets.
func IsPreset(presets []int, n int) bool {
	for _, p := range presets {
		if p == n {
			return true
		}
	}
	return false
}
