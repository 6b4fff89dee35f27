package progress

import "errors"

var (
	ErrInvalidDate            = errors.New("invalid date")
	ErrInvalidExperienceAward = errors.New("experience award must be positive")
	ErrDuplicateDay           = errors.New("workout already recorded for this day")
	ErrAvatarNotFound         = errors.New("avatar not found")
	ErrAvatarLocked           = errors.New("avatar not unlocked yet")
	ErrUnknownDuplicatePolicy = errors.New("unknown duplicate check-in policy")
)
