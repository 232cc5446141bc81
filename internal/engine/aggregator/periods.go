package aggregator

import "time"

// Window is a half-open time range [From, To).
type Window struct {
	Label string
	From  time.Time
	To    time.Time
}

// MonthStart returns the first instant of t's calendar month in UTC.
func MonthStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// MonthBoundaries returns the current and previous calendar month windows.
// The current window ends at now.
func MonthBoundaries(now time.Time) (current, previous Window) {
	start := MonthStart(now)
	prevStart := start.AddDate(0, -1, 0)
	current = Window{Label: start.Format("Jan 2006"), From: start, To: now.UTC()}
	previous = Window{Label: prevStart.Format("Jan 2006"), From: prevStart, To: start}
	return current, previous
}

// MonthWindows returns the last n calendar months, oldest first, with the
// current month included.
func MonthWindows(now time.Time, n int) []Window {
	if n < 1 {
		return nil
	}
	start := MonthStart(now)
	out := make([]Window, 0, n)
	for i := n - 1; i >= 0; i-- {
		from := start.AddDate(0, -i, 0)
		out = append(out, Window{
			Label: from.Format("Jan 2006"),
			From:  from,
			To:    from.AddDate(0, 1, 0),
		})
	}
	return out
}
