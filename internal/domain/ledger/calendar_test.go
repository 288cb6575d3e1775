package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalendar(t *testing.T) {
	t.Run("nil location defaults to UTC", func(t *testing.T) {
		assert.Equal(t, time.UTC, NewCalendar(nil).Location())
		assert.Equal(t, time.UTC, Calendar{}.Location())
	})

	t.Run("load default timezone", func(t *testing.T) {
		cal, err := LoadCalendar("")
		require.NoError(t, err)
		assert.Equal(t, DefaultTimezone, cal.Location().String())
	})

	t.Run("load invalid timezone", func(t *testing.T) {
		_, err := LoadCalendar("Not/AZone")
		assert.Error(t, err)
	})

	t.Run("day truncates in location", func(t *testing.T) {
		loc := time.FixedZone("ICT", 7*3600)
		cal := NewCalendar(loc)
		got := cal.Day(time.Date(2024, 3, 1, 20, 0, 0, 0, time.UTC))
		assert.Equal(t, time.Date(2024, 3, 2, 0, 0, 0, 0, loc), got)
	})

	t.Run("days between ignores time of day", func(t *testing.T) {
		from := time.Date(2024, 1, 1, 23, 59, 0, 0, time.UTC)
		to := time.Date(2024, 1, 2, 0, 1, 0, 0, time.UTC)
		assert.Equal(t, 1, utcCal.DaysBetween(from, to))
		assert.Equal(t, -1, utcCal.DaysBetween(to, from))
		assert.Equal(t, 0, utcCal.DaysBetween(from, from))
	})

	t.Run("days between spans a leap day", func(t *testing.T) {
		assert.Equal(t, 60, utcCal.DaysBetween(day(1), time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)))
	})

	t.Run("days between is stable across DST", func(t *testing.T) {
		loc, err := time.LoadLocation("Europe/Berlin")
		require.NoError(t, err)
		cal := NewCalendar(loc)
		from := time.Date(2024, 3, 30, 12, 0, 0, 0, loc)
		to := time.Date(2024, 4, 1, 0, 30, 0, 0, loc)
		assert.Equal(t, 2, cal.DaysBetween(from, to))
	})
}
