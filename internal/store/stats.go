package store

import "time"

// StartOfDay is midnight of now's calendar day in loc. Both gateways count
// "today" from this instant in the server's local zone, so the database
// session's time zone has no say.
func StartOfDay(now time.Time, loc *time.Location) time.Time {
	y, m, d := now.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}
