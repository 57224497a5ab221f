package bill

import (
	"fmt"
	"strconv"
	"time"
)

// ComputeSettlementDate derives the concrete payment due date (YYYYMMDD) for a
// charge month and preferred day-of-month. Settlement falls in the month after
// the charge month; the preferred day is clamped to that month's last day and
// rolled forward past Saturdays and Sundays.
//
// The computation never leaves the caller without a date: on any parsing
// anomaly it returns one month from today together with a non-nil error so the
// caller can log the degraded result.
func ComputeSettlementDate(chargeMonth, settlementDay string) (string, error) {
	fallback := clock.Now().AddDate(0, 1, 0).Format("20060102")

	first, err := time.Parse("20060102", chargeMonth+"01")
	if err != nil {
		return fallback, fmt.Errorf("invalid charge month %q: %w", chargeMonth, err)
	}

	day, err := strconv.Atoi(settlementDay)
	if err != nil || day < 1 || day > 31 {
		return fallback, fmt.Errorf("invalid settlement day %q", settlementDay)
	}

	next := first.AddDate(0, 1, 0)
	lastDay := next.AddDate(0, 1, -1).Day()
	if day > lastDay {
		day = lastDay
	}

	settlement := time.Date(next.Year(), next.Month(), day, 0, 0, 0, 0, time.UTC)
	for settlement.Weekday() == time.Saturday || settlement.Weekday() == time.Sunday {
		settlement = settlement.AddDate(0, 0, 1)
	}

	return settlement.Format("20060102"), nil
}
