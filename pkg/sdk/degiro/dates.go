package degiro

import (
	"time"
)

// reportDateLayout is the DD/MM/YYYY form the reporting endpoints take.
const reportDateLayout = "02/01/2006"

// ParseOrderDate interprets the date column of an order row relative to now.
//
// "HH:MM" is a time today. "DD/MM" is midnight on that day of the current
// year, or of the previous year when the month lies after now's month, since
// the vendor only lists past dates that way.
func ParseOrderDate(s string, now time.Time) (time.Time, error) {
	if len(s) != 5 {
		return time.Time{}, &ParseError{Value: s}
	}
	a, okA := twoDigits(s[0:2])
	b, okB := twoDigits(s[3:5])
	if !okA || !okB {
		return time.Time{}, &ParseError{Value: s}
	}
	loc := now.Location()

	switch s[2] {
	case ':':
		if a > 23 || b > 59 {
			return time.Time{}, &ParseError{Value: s, Reason: "time out of range"}
		}
		y, m, d := now.Date()
		return time.Date(y, m, d, a, b, 0, 0, loc), nil
	case '/':
		day, month := a, time.Month(b)
		if month < time.January || month > time.December {
			return time.Time{}, &ParseError{Value: s, Reason: "month out of range"}
		}
		year := now.Year()
		if month > now.Month() {
			year--
		}
		if day < 1 || day > daysIn(month, year) {
			return time.Time{}, &ParseError{Value: s, Reason: "day out of range"}
		}
		return time.Date(year, month, day, 0, 0, 0, 0, loc), nil
	}
	return time.Time{}, &ParseError{Value: s}
}

func twoDigits(s string) (int, bool) {
	if len(s) != 2 || s[0] < '0' || s[0] > '9' || s[1] < '0' || s[1] > '9' {
		return 0, false
	}
	return int(s[0]-'0')*10 + int(s[1]-'0'), true
}

func daysIn(m time.Month, year int) int {
	return time.Date(year, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
