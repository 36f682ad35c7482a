package schedule

import "time"

// Business window bounds, local time. Upper bounds are exclusive: the last
// open second on a weekday is 17:59:59, on a Saturday 12:59:59.
const (
	openHour          = 9
	weekdayCloseHour  = 18
	saturdayCloseHour = 13
)

// IsBusinessHours reports whether t falls inside the business window when
// evaluated in loc. Monday through Friday 09:00-18:00, Saturday 09:00-13:00,
// Sunday always closed.
func IsBusinessHours(t time.Time, loc *time.Location) bool {
	local := t.In(loc)
	hour := local.Hour()

	switch local.Weekday() {
	case time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday:
		return hour >= openHour && hour < weekdayCloseHour
	case time.Saturday:
		return hour >= openHour && hour < saturdayCloseHour
	default:
		return false
	}
}

// PlanRange computes the extraction window for a run at instant now.
// The range starts at the first day of the current month at midnight local,
// advanced to the 2nd when the 1st falls on a Sunday, and ends at now.
// A start after end is possible under timezone skew; callers treat an empty
// day range as a no-op.
func PlanRange(now time.Time, loc *time.Location) (start, end time.Time) {
	local := now.In(loc)
	start = time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, loc)
	if start.Weekday() == time.Sunday {
		start = start.AddDate(0, 0, 1)
	}
	return start, local
}

// DaysBetween lists every calendar day from start through end inclusive,
// each at midnight in start's location. An inverted range yields nil.
func DaysBetween(start, end time.Time) []time.Time {
	loc := start.Location()
	day := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, loc)
	last := time.Date(end.In(loc).Year(), end.In(loc).Month(), end.In(loc).Day(), 0, 0, 0, 0, loc)

	var days []time.Time
	for !day.After(last) {
		days = append(days, day)
		day = day.AddDate(0, 0, 1)
	}
	return days
}

// DayBounds returns the millisecond epoch of day 00:00:00 and 23:59:59 in
// day's location, the window shape the conversations endpoint expects.
func DayBounds(day time.Time) (fromMs, toMs int64) {
	loc := day.Location()
	from := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, loc)
	to := time.Date(day.Year(), day.Month(), day.Day(), 23, 59, 59, 0, loc)
	return from.UnixMilli(), to.UnixMilli()
}
