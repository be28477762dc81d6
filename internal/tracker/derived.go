package tracker

import (
	"math"
	"time"

	"github.com/julianstephens/habitbell/internal/constants"
	"github.com/julianstephens/habitbell/internal/models"
)

// ComputeStreak counts consecutive days ending today that have a "done" entry.
// doneDates must be sorted newest first. Repeated dates and dates after today
// are skipped; the walk stops at the first gap.
func ComputeStreak(doneDates []string, today time.Time) int {
	streak := 0
	expected := today.Format(constants.DateFormat)
	day := today

	for _, d := range doneDates {
		switch {
		case d == expected:
			streak++
			day = day.AddDate(0, 0, -1)
			expected = day.Format(constants.DateFormat)
		case d < expected:
			return streak
		}
	}
	return streak
}

// ComputeStats derives the success percentage, rounded to one decimal place.
func ComputeStats(done, missed int) models.Stats {
	stats := models.Stats{Done: done, Missed: missed}
	if total := done + missed; total > 0 {
		stats.Percent = math.Round(float64(done)/float64(total)*1000) / 10
	}
	return stats
}

// WindowStart returns the first date included in a history window of days days.
func WindowStart(today time.Time, days int) string {
	return today.AddDate(0, 0, -days).Format(constants.DateFormat)
}
