package jobs

import (
	"fmt"
	"strings"
	"time"

	"CaseReview/internal/clio"
	"CaseReview/internal/config"
	"CaseReview/internal/constants"

	"github.com/robfig/cron/v3"
)

// lookbacks bound the search for the most recent schedule boundary.
var lookbacks = []time.Duration{
	32 * 24 * time.Hour,
	367 * 24 * time.Hour,
	5 * 367 * 24 * time.Hour,
}

// ResolveCycle picks the billing window. Explicit start and end dates win;
// otherwise the window runs from the last schedule boundary at or before now
// to the day before the next boundary.
func ResolveCycle(cfg config.CycleConfig, now time.Time) (clio.CycleWindow, error) {
	offset := cfg.TZOffset
	if offset == "" {
		offset = config.DefaultTZOffset
	}
	loc, err := parseOffset(offset)
	if err != nil {
		return clio.CycleWindow{}, err
	}

	if cfg.StartDate != "" || cfg.EndDate != "" {
		start, err := time.ParseInLocation(constants.DateFormat, cfg.StartDate, loc)
		if err != nil {
			return clio.CycleWindow{}, fmt.Errorf("%w: "+constants.ErrInvalidCycleDate, constants.ErrConfig, cfg.StartDate)
		}
		end, err := time.ParseInLocation(constants.DateFormat, cfg.EndDate, loc)
		if err != nil {
			return clio.CycleWindow{}, fmt.Errorf("%w: "+constants.ErrInvalidCycleDate, constants.ErrConfig, cfg.EndDate)
		}
		if end.Before(start) {
			return clio.CycleWindow{}, fmt.Errorf("%w: cycle end %s is before start %s", constants.ErrConfig, cfg.EndDate, cfg.StartDate)
		}
		return clio.CycleWindow{Start: start, End: end, Offset: offset}, nil
	}

	spec := cfg.Schedule
	if spec == "" {
		spec = config.DefaultCycleSchedule
	}
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return clio.CycleWindow{}, fmt.Errorf("%w: "+constants.ErrInvalidCycleSchedule+": %v", constants.ErrConfig, spec, err)
	}

	local := now.In(loc)
	last, ok := lastBoundary(sched, local)
	if !ok {
		return clio.CycleWindow{}, fmt.Errorf("%w: "+constants.ErrInvalidCycleSchedule+": no recent boundary", constants.ErrConfig, spec)
	}
	next := sched.Next(last)
	start := midnight(last)
	end := midnight(next).AddDate(0, 0, -1)
	if end.Before(start) {
		end = start
	}
	return clio.CycleWindow{Start: start, End: end, Offset: offset}, nil
}

func lastBoundary(sched cron.Schedule, now time.Time) (time.Time, bool) {
	for _, back := range lookbacks {
		t := sched.Next(now.Add(-back))
		if t.IsZero() || t.After(now) {
			continue
		}
		for {
			n := sched.Next(t)
			if n.IsZero() || n.After(now) {
				return t, true
			}
			t = n
		}
	}
	return time.Time{}, false
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// parseOffset turns "+05:30" or "-08:00" into a fixed zone.
func parseOffset(offset string) (*time.Location, error) {
	s := strings.TrimSpace(offset)
	if strings.EqualFold(s, "Z") {
		return time.UTC, nil
	}
	t, err := time.Parse("-07:00", s)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid CLIO_TZ_OFFSET %q", constants.ErrConfig, offset)
	}
	_, secs := t.Zone()
	return time.FixedZone(s, secs), nil
}
