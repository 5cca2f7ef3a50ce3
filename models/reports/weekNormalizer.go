package reports

import "time"

const weekKeyLayout = "2006-01-02"

// WeekStart returns Monday 00:00:00 UTC of the Monday-to-Sunday week containing t.
func WeekStart(t time.Time) time.Time {
	t = t.UTC()
	// Sunday (0) closes the preceding week
	offset := (int(t.Weekday()) + 6) % 7
	return time.Date(t.Year(), t.Month(), t.Day()-offset, 0, 0, 0, 0, time.UTC)
}

// WeekKey formats the week containing t as its Monday date.
func WeekKey(t time.Time) string {
	return WeekStart(t).Format(weekKeyLayout)
}

// ExpectedWeeks lists every week from the week of createdAt through the week of reference,
// ascending and inclusive. It is empty when createdAt is after reference.
func ExpectedWeeks(createdAt, reference time.Time) []time.Time {
	if createdAt.After(reference) {
		return nil
	}
	first := WeekStart(createdAt)
	last := WeekStart(reference)

	weeks := make([]time.Time, 0, int(last.Sub(first).Hours()/(24*7))+1)
	for w := first; !w.After(last); w = w.AddDate(0, 0, 7) {
		weeks = append(weeks, w)
	}
	return weeks
}
