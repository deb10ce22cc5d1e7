package degiro

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOrderDate(t *testing.T) {
	loc := time.FixedZone("CET", 3600)
	at := func(y int, m time.Month, d int) time.Time {
		return time.Date(y, m, d, 11, 22, 33, 444, loc)
	}
	tests := []struct {
		name  string
		in    string
		now   time.Time
		want  time.Time
		wantE bool
	}{
		{name: "time today", in: "14:30", now: at(2024, time.June, 15), want: time.Date(2024, time.June, 15, 14, 30, 0, 0, loc)},
		{name: "midnight", in: "00:00", now: at(2024, time.June, 15), want: time.Date(2024, time.June, 15, 0, 0, 0, 0, loc)},
		{name: "day earlier this year", in: "05/03", now: at(2024, time.June, 15), want: time.Date(2024, time.March, 5, 0, 0, 0, 0, loc)},
		{name: "same month", in: "01/06", now: at(2024, time.June, 15), want: time.Date(2024, time.June, 1, 0, 0, 0, 0, loc)},
		{name: "later month is last year", in: "05/09", now: at(2024, time.June, 15), want: time.Date(2023, time.September, 5, 0, 0, 0, 0, loc)},
		{name: "december now, january record", in: "15/01", now: at(2024, time.December, 31), want: time.Date(2024, time.January, 15, 0, 0, 0, 0, loc)},
		{name: "january now, december record", in: "24/12", now: at(2025, time.January, 2), want: time.Date(2024, time.December, 24, 0, 0, 0, 0, loc)},
		{name: "january now, january record", in: "01/01", now: at(2025, time.January, 2), want: time.Date(2025, time.January, 1, 0, 0, 0, 0, loc)},
		{name: "leap day in last year", in: "29/02", now: at(2025, time.January, 2), want: time.Date(2024, time.February, 29, 0, 0, 0, 0, loc)},
		{name: "no leap day", in: "29/02", now: at(2025, time.March, 2), wantE: true},
		{name: "hour out of range", in: "24:00", now: at(2024, time.June, 15), wantE: true},
		{name: "month out of range", in: "01/13", now: at(2024, time.June, 15), wantE: true},
		{name: "day zero", in: "00/05", now: at(2024, time.June, 15), wantE: true},
		{name: "full date", in: "2024-06-01", now: at(2024, time.June, 15), wantE: true},
		{name: "wrong separator", in: "14.30", now: at(2024, time.June, 15), wantE: true},
		{name: "letters", in: "ab:cd", now: at(2024, time.June, 15), wantE: true},
		{name: "empty", in: "", now: at(2024, time.June, 15), wantE: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseOrderDate(tt.in, tt.now)
			if tt.wantE {
				var parseErr *ParseError
				require.True(t, errors.As(err, &parseErr), "got %v", err)
				assert.Equal(t, tt.in, parseErr.Value)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s want %s", got, tt.want)
			assert.Equal(t, loc, got.Location())
		})
	}
}
