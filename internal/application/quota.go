package application

import (
	"context"
	"time"

	"github.com/example/timeclock/internal/persistence"
	"github.com/example/timeclock/internal/worktime"
)

// hardFallbackTarget is applied where a day needs a target even though
// no usable contracted value exists, e.g. when deducting a missing day.
const hardFallbackTarget = 8 * time.Hour

// dailyTargetOn resolves the daily target for a day: the weekly hours
// effective on that day (history first, then the current contract)
// divided over a five-day week. fallback applies when the resolved
// weekly value is non-positive.
func dailyTargetOn(ctx context.Context, store persistence.Store, employee persistence.Employee, day time.Time, fallback time.Duration) (time.Duration, error) {
	weekly, ok, err := store.HoursHistory().WeeklyHoursOn(ctx, employee.ID, day)
	if err != nil {
		return 0, err
	}
	if !ok {
		weekly = employee.WeeklyHours
	}
	return worktime.DailyTarget(weekly, fallback), nil
}

// pairingStamps converts persisted stamps into the pairing input,
// preserving order.
func pairingStamps(stamps []persistence.TimeStamp) []worktime.Stamp {
	converted := make([]worktime.Stamp, len(stamps))
	for i, stamp := range stamps {
		converted[i] = worktime.Stamp{
			ID:      stamp.ID,
			Day:     stamp.Day,
			At:      stamp.At,
			Settled: stamp.Settled,
		}
	}
	return converted
}

// trafficLight derives the balance classification: at or above the
// green threshold is green, strictly between the thresholds is yellow,
// everything else is red.
func trafficLight(employee persistence.Employee) TrafficLight {
	switch {
	case employee.FlexBalance.GreaterThanOrEqual(employee.GreenThreshold):
		return TrafficGreen
	case employee.FlexBalance.GreaterThan(employee.RedThreshold):
		return TrafficYellow
	default:
		return TrafficRed
	}
}
