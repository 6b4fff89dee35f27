package progress

import "sort"

const ExperiencePerLevel = 100

type WorkoutDay struct {
	Date      Date `json:"date"`
	Completed bool `json:"completed"`
}

type Progress struct {
	Level           int          `json:"level"`
	Experience      int          `json:"experience"`
	Streak          int          `json:"streak"`
	CurrentAvatarID int          `json:"currentAvatarId"`
	WorkoutDays     []WorkoutDay `json:"workoutDays"`
}

// DefaultProgress is the state of a user who never checked in.
func DefaultProgress() Progress {
	return Progress{
		Level:           1,
		Experience:      0,
		Streak:          0,
		CurrentAvatarID: 1,
		WorkoutDays:     []WorkoutDay{},
	}
}

// ExperienceToNextLevel is the experience needed to leave the current level.
func (p Progress) ExperienceToNextLevel() int {
	return p.Level * ExperiencePerLevel
}

func (p Progress) HasDay(date Date) bool {
	for _, d := range p.WorkoutDays {
		if d.Date.Equal(date) {
			return true
		}
	}
	return false
}

func sortedDays(days []WorkoutDay) []WorkoutDay {
	sorted := make([]WorkoutDay, len(days))
	copy(sorted, days)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})
	return sorted
}

// CalculateStreak counts consecutive completed days ending at last. An absent
// day, an incomplete day or a gap ends the streak. Days after last are ignored.
func CalculateStreak(days []WorkoutDay, last Date) int {
	sorted := sortedDays(days)

	streak := 0
	current := last
	for i := len(sorted) - 1; i >= 0; i-- {
		day := sorted[i]
		if day.Date.After(current) {
			continue
		}
		if !day.Date.Equal(current) || !day.Completed {
			break
		}
		streak++
		current = current.AddDays(-1)
	}

	return streak
}
