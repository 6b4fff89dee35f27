package progress

import (
	"fmt"
	"strings"
)

// DuplicatePolicy decides what happens to a check-in for an already recorded day.
type DuplicatePolicy string

const (
	DuplicateIgnore DuplicatePolicy = "ignore"
	DuplicateReject DuplicatePolicy = "reject"
)

func ParseDuplicatePolicy(s string) (DuplicatePolicy, error) {
	switch DuplicatePolicy(strings.ToLower(s)) {
	case "", DuplicateIgnore:
		return DuplicateIgnore, nil
	case DuplicateReject:
		return DuplicateReject, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownDuplicatePolicy, s)
	}
}

type CheckIn struct {
	Date            Date
	Completed       bool
	ExperienceAward int
}

type CheckInResult struct {
	Progress Progress
	// Recorded is false when a duplicate day was ignored.
	Recorded        bool
	LevelsGained    int
	UnlockedAvatars []Avatar
}

// Engine applies check-ins and avatar changes to a user's progress.
// It never mutates its inputs.
type Engine struct {
	catalog         Catalog
	duplicatePolicy DuplicatePolicy
}

func NewEngine(catalog Catalog, duplicatePolicy DuplicatePolicy) *Engine {
	if duplicatePolicy == "" {
		duplicatePolicy = DuplicateIgnore
	}
	return &Engine{
		catalog:         catalog,
		duplicatePolicy: duplicatePolicy,
	}
}

func (e *Engine) Catalog() Catalog {
	return e.catalog
}

func (e *Engine) DuplicatePolicy() DuplicatePolicy {
	return e.duplicatePolicy
}

func (e *Engine) RecordCheckIn(p Progress, c CheckIn) (CheckInResult, error) {
	if c.Date.IsZero() {
		return CheckInResult{}, ErrInvalidDate
	}
	if c.ExperienceAward <= 0 {
		return CheckInResult{}, fmt.Errorf("%w: %d", ErrInvalidExperienceAward, c.ExperienceAward)
	}

	if p.HasDay(c.Date) {
		if e.duplicatePolicy == DuplicateReject {
			return CheckInResult{}, fmt.Errorf("%w: %s", ErrDuplicateDay, c.Date)
		}
		return CheckInResult{Progress: p, Recorded: false}, nil
	}

	next := p
	next.WorkoutDays = sortedDays(append(append([]WorkoutDay{}, p.WorkoutDays...), WorkoutDay{
		Date:      c.Date,
		Completed: c.Completed,
	}))

	result := CheckInResult{Recorded: true}
	if c.Completed {
		next.Experience += c.ExperienceAward
		for next.Experience >= next.ExperienceToNextLevel() {
			next.Experience -= next.ExperienceToNextLevel()
			next.Level++
			result.LevelsGained++
			// levels without an exact avatar match keep the current one
			if avatar, ok := e.catalog.UnlockedAt(next.Level); ok {
				next.CurrentAvatarID = avatar.ID
				result.UnlockedAvatars = append(result.UnlockedAvatars, avatar)
			}
		}
	}

	next.Streak = CalculateStreak(next.WorkoutDays, c.Date)
	result.Progress = next

	return result, nil
}

// ChangeAvatar selects an avatar the user has already unlocked.
func (e *Engine) ChangeAvatar(p Progress, avatarID int) (Progress, error) {
	avatar, ok := e.catalog.Get(avatarID)
	if !ok {
		return p, fmt.Errorf("%w: %d", ErrAvatarNotFound, avatarID)
	}
	if avatar.RequiredLevel > p.Level {
		return p, fmt.Errorf("%w: %s requires level %d", ErrAvatarLocked, avatar.Name, avatar.RequiredLevel)
	}

	next := p
	next.CurrentAvatarID = avatar.ID
	return next, nil
}
