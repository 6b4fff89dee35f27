package workouts

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/2beens/ninjatraining/internal/progress"
	"github.com/2beens/ninjatraining/internal/telemetry/metrics"
	"github.com/2beens/ninjatraining/internal/telemetry/tracing"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

//go:generate mockgen -source=$GOFILE -destination=service_mocks_test.go -package=workouts_test

type progressRepo interface {
	GetProgress(ctx context.Context, userID uuid.UUID) (*progress.Progress, error)
	CreateProgress(ctx context.Context, userID uuid.UUID, p progress.Progress) error
	ListDaysBetween(ctx context.Context, userID uuid.UUID, from, to progress.Date) ([]progress.WorkoutDay, error)
	SaveCheckIn(ctx context.Context, userID uuid.UUID, day progress.WorkoutDay, experience int, prev, next progress.Progress) error
	UpdateAvatar(ctx context.Context, userID uuid.UUID, avatarID int) error
}

// maxCheckInAttempts bounds the reload-and-retry loop when another request
// updates the same progress between our read and write.
const maxCheckInAttempts = 3

type Service struct {
	repo           progressRepo
	engine         *progress.Engine
	metricsManager *metrics.Manager
}

func NewService(repo progressRepo, engine *progress.Engine, metricsManager *metrics.Manager) *Service {
	return &Service{
		repo:           repo,
		engine:         engine,
		metricsManager: metricsManager,
	}
}

func (s *Service) Catalog() progress.Catalog {
	return s.engine.Catalog()
}

// GetOrCreate returns the progress of the user, creating the default one on first access.
func (s *Service) GetOrCreate(ctx context.Context, userID uuid.UUID) (_ *progress.Progress, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.workouts.progress.get")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	p, err := s.repo.GetProgress(ctx, userID)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, ErrProgressNotFound) {
		return nil, fmt.Errorf("get progress: %w", err)
	}

	log.Debugf("creating initial progress for user %s", userID)
	if err := s.repo.CreateProgress(ctx, userID, progress.DefaultProgress()); err != nil {
		return nil, fmt.Errorf("create progress: %w", err)
	}

	// another request might have created it in the meantime
	p, err = s.repo.GetProgress(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get created progress: %w", err)
	}
	return p, nil
}

// MarkWorkout records a check-in. Nothing is applied when storing it fails.
func (s *Service) MarkWorkout(ctx context.Context, userID uuid.UUID, checkIn progress.CheckIn) (_ *progress.CheckInResult, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.workouts.checkin")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()
	span.SetAttributes(
		attribute.String("date", checkIn.Date.String()),
		attribute.Bool("completed", checkIn.Completed),
	)

	var result progress.CheckInResult
	for attempt := 1; ; attempt++ {
		result, err = s.recordCheckIn(ctx, userID, checkIn)
		if !errors.Is(err, ErrProgressChanged) {
			break
		}
		if attempt == maxCheckInAttempts {
			return nil, fmt.Errorf("save check-in after %d attempts: %w", attempt, err)
		}
		log.Debugf("progress of user %s changed during check-in, retrying", userID)
	}
	if err != nil {
		return nil, err
	}

	s.observeCheckIn(checkIn, result)
	return &result, nil
}

func (s *Service) recordCheckIn(ctx context.Context, userID uuid.UUID, checkIn progress.CheckIn) (progress.CheckInResult, error) {
	current, err := s.GetOrCreate(ctx, userID)
	if err != nil {
		return progress.CheckInResult{}, err
	}

	result, err := s.engine.RecordCheckIn(*current, checkIn)
	if err != nil {
		return progress.CheckInResult{}, err
	}
	if !result.Recorded {
		return result, nil
	}

	experience := 0
	if checkIn.Completed {
		experience = checkIn.ExperienceAward
	}
	day := progress.WorkoutDay{Date: checkIn.Date, Completed: checkIn.Completed}
	err = s.repo.SaveCheckIn(ctx, userID, day, experience, *current, result.Progress)
	switch {
	case errors.Is(err, ErrDayExists):
		// a concurrent request stored the same day first
		if s.engine.DuplicatePolicy() == progress.DuplicateReject {
			return progress.CheckInResult{}, fmt.Errorf("%w: %s", progress.ErrDuplicateDay, checkIn.Date)
		}
		stored, err := s.repo.GetProgress(ctx, userID)
		if err != nil {
			return progress.CheckInResult{}, fmt.Errorf("reload progress: %w", err)
		}
		return progress.CheckInResult{Progress: *stored, Recorded: false}, nil
	case errors.Is(err, ErrProgressChanged):
		return progress.CheckInResult{}, err
	case err != nil:
		return progress.CheckInResult{}, fmt.Errorf("save check-in: %w", err)
	}
	return result, nil
}

func (s *Service) observeCheckIn(checkIn progress.CheckIn, result progress.CheckInResult) {
	if s.metricsManager == nil {
		return
	}
	s.metricsManager.CounterCheckIns.WithLabelValues(
		strconv.FormatBool(checkIn.Completed),
		strconv.FormatBool(result.Recorded),
	).Inc()
	s.metricsManager.CounterLevelUps.Add(float64(result.LevelsGained))
	for _, avatar := range result.UnlockedAvatars {
		s.metricsManager.CounterAvatarUnlocks.WithLabelValues(avatar.Name).Inc()
	}
}

func (s *Service) ChangeAvatar(ctx context.Context, userID uuid.UUID, avatarID int) (_ *progress.Progress, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.workouts.avatar.change")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()
	span.SetAttributes(attribute.Int("avatar.id", avatarID))

	current, err := s.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}

	next, err := s.engine.ChangeAvatar(*current, avatarID)
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpdateAvatar(ctx, userID, next.CurrentAvatarID); err != nil {
		return nil, fmt.Errorf("update avatar: %w", err)
	}
	return &next, nil
}

// Calendar lists the recorded days of the given month.
func (s *Service) Calendar(ctx context.Context, userID uuid.UUID, year int, month time.Month) (_ []progress.WorkoutDay, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.workouts.calendar")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	from := progress.NewDate(year, month, 1)
	// day 0 of the next month is the last day of this one
	to := progress.NewDate(year, month+1, 0)

	days, err := s.repo.ListDaysBetween(ctx, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list days: %w", err)
	}
	return days, nil
}
