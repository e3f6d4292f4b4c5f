// Package clock computes economy day keys and active seasons. Daily
// structures (market, order board, staff pool) are keyed by the UTC calendar
// day; a structure is regenerated exactly when its stored day key differs
// from the current one, which makes regeneration idempotent within a day.
package clock

import "time"

// DayKeyLayout is the stored format of a day key.
const DayKeyLayout = "2006-01-02"

// Season labels, in rolling-window order.
const (
	SeasonSpring = "spring"
	SeasonSummer = "summer"
	SeasonAutumn = "autumn"
	SeasonWinter = "winter"
)

var seasonCycle = [4]string{SeasonSpring, SeasonSummer, SeasonAutumn, SeasonWinter}

// SeasonPolicy selects how the active season is derived from wall time.
type SeasonPolicy struct {
	// Mode is "quarters" (fixed calendar quarters) or "rolling".
	Mode string
	// WindowDays is the length of one season in rolling mode.
	WindowDays int
	// Anchor is the rolling-window epoch; the window count starts there.
	Anchor time.Time
}

// DayKey returns the UTC calendar date the timestamp falls on.
func DayKey(t time.Time) string {
	return t.UTC().Format(DayKeyLayout)
}

// Rollover reports whether a daily structure stored under storedDay is stale
// at time now.
func Rollover(storedDay string, now time.Time) bool {
	return storedDay != DayKey(now)
}

// Season returns the active season label under the given policy. The
// computation is pure: same policy and timestamp, same label.
func Season(p SeasonPolicy, t time.Time) string {
	t = t.UTC()
	if p.Mode == "rolling" && p.WindowDays > 0 {
		days := int(t.Sub(p.Anchor.UTC()).Hours() / 24)
		if days < 0 {
			days = 0
		}
		return seasonCycle[(days/p.WindowDays)%4]
	}
	switch t.Month() {
	case time.March, time.April, time.May:
		return SeasonSpring
	case time.June, time.July, time.August:
		return SeasonSummer
	case time.September, time.October, time.November:
		return SeasonAutumn
	default:
		return SeasonWinter
	}
}
