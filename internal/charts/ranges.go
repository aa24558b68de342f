package charts

import (
	"strings"
	"time"

	"github.com/uniresearch/research-portal-backend/internal/validation"
)

const (
	RangeAll     = "all"
	RangeDaily   = "daily"
	RangeWeekly  = "weekly"
	RangeMonthly = "monthly"
	RangeYearly  = "yearly"
	RangeCustom  = "custom"
)

// Window is a half-open [From, To) time range. A zero Window means all time.
type Window struct {
	From time.Time
	To   time.Time
}

func (w Window) IsZero() bool { return w.From.IsZero() && w.To.IsZero() }

func (w Window) key() string {
	if w.IsZero() {
		return "all"
	}
	return w.From.Format("20060102") + "-" + w.To.Format("20060102")
}

// DateRange turns a preset into a window ending today. Custom ranges need
// start and end as YYYY-MM-DD, both days included.
func DateRange(preset, start, end string, now time.Time) (Window, error) {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	tomorrow := today.AddDate(0, 0, 1)

	switch strings.ToLower(strings.TrimSpace(preset)) {
	case "", RangeAll:
		return Window{}, nil
	case RangeDaily:
		return Window{From: today, To: tomorrow}, nil
	case RangeWeekly:
		// last 7 days including today
		return Window{From: today.AddDate(0, 0, -6), To: tomorrow}, nil
	case RangeMonthly:
		first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		return Window{From: first, To: first.AddDate(0, 1, 0)}, nil
	case RangeYearly:
		first := time.Date(now.Year(), 1, 1, 0, 0, 0, 0, time.UTC)
		return Window{From: first, To: first.AddDate(1, 0, 0)}, nil
	case RangeCustom:
		errs := validation.FieldErrors{}
		from, err := time.Parse("2006-01-02", start)
		if err != nil {
			errs.Add("start_date", "must be a date in YYYY-MM-DD format")
		}
		to, err := time.Parse("2006-01-02", end)
		if err != nil {
			errs.Add("end_date", "must be a date in YYYY-MM-DD format")
		}
		if len(errs) == 0 && to.Before(from) {
			errs.Add("end_date", "must not be before start_date")
		}
		if err := errs.OrNil(); err != nil {
			return Window{}, err
		}
		return Window{From: from, To: to.AddDate(0, 0, 1)}, nil
	default:
		return Window{}, validation.FieldErrors{"range": "must be one of: all, daily, weekly, monthly, yearly, custom"}
	}
}
