package workouts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/2beens/ninjatraining/internal/progress"
	"github.com/2beens/ninjatraining/internal/telemetry/tracing"
	"github.com/2beens/ninjatraining/pkg"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var (
	ErrProgressNotFound = errors.New("progress not found")
	ErrDayExists        = errors.New("workout day already recorded")
	ErrProgressChanged  = errors.New("progress changed concurrently")
)

// DayRecord is a stored workout day, as exported by the journal backup.
type DayRecord struct {
	UserID     uuid.UUID     `json:"userId"`
	Date       progress.Date `json:"date"`
	Completed  bool          `json:"completed"`
	Experience int           `json:"experience"`
	CreatedAt  time.Time     `json:"createdAt"`
}

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

func (r *Repo) GetProgress(ctx context.Context, userID uuid.UUID) (_ *progress.Progress, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.progress.get")
	defer func() {
		if err != nil && !errors.Is(err, ErrProgressNotFound) {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	p := &progress.Progress{}
	err = r.db.QueryRow(ctx, `
		SELECT level, experience, streak, current_avatar_id
		FROM user_progress
		WHERE user_id = $1
	`, userID).Scan(&p.Level, &p.Experience, &p.Streak, &p.CurrentAvatarID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProgressNotFound
		}
		return nil, err
	}

	p.WorkoutDays, err = r.ListDays(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list days: %w", err)
	}

	return p, nil
}

// CreateProgress stores the initial progress of a user. An existing row is left untouched.
func (r *Repo) CreateProgress(ctx context.Context, userID uuid.UUID, p progress.Progress) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.progress.create")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	_, err = r.db.Exec(ctx, `
		INSERT INTO user_progress (user_id, level, experience, streak, current_avatar_id)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO NOTHING
	`,
		userID, p.Level, p.Experience, p.Streak, p.CurrentAvatarID,
	)
	return err
}

func scanDays(rows pgx.Rows) ([]progress.WorkoutDay, error) {
	defer rows.Close()

	days := make([]progress.WorkoutDay, 0)
	for rows.Next() {
		var day time.Time
		var completed bool
		if err := rows.Scan(&day, &completed); err != nil {
			return nil, err
		}
		days = append(days, progress.WorkoutDay{
			Date:      progress.DateOf(day),
			Completed: completed,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return days, nil
}

func (r *Repo) ListDays(ctx context.Context, userID uuid.UUID) (_ []progress.WorkoutDay, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.days.list")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	rows, err := r.db.Query(ctx, `
		SELECT day, completed
		FROM workout_days
		WHERE user_id = $1
		ORDER BY day ASC
	`, userID)
	if err != nil {
		return nil, err
	}
	return scanDays(rows)
}

// ListDaysBetween lists the days in [from, to], both ends included.
func (r *Repo) ListDaysBetween(ctx context.Context, userID uuid.UUID, from, to progress.Date) (_ []progress.WorkoutDay, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.days.between")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()
	span.SetAttributes(
		attribute.String("from", from.String()),
		attribute.String("to", to.String()),
	)

	rows, err := r.db.Query(ctx, `
		SELECT day, completed
		FROM workout_days
		WHERE user_id = $1 AND day >= $2 AND day <= $3
		ORDER BY day ASC
	`, userID, from.Time(), to.Time())
	if err != nil {
		return nil, err
	}
	return scanDays(rows)
}

// SaveCheckIn stores a new workout day and the progress it produced in one transaction.
// The progress row is only replaced while it still equals prev; otherwise nothing
// is stored and ErrProgressChanged is returned.
func (r *Repo) SaveCheckIn(
	ctx context.Context,
	userID uuid.UUID,
	day progress.WorkoutDay,
	experience int,
	prev, next progress.Progress,
) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.checkin.save")
	defer func() {
		if err != nil && !errors.Is(err, ErrDayExists) && !errors.Is(err, ErrProgressChanged) {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			if rollbackErr := tx.Rollback(ctx); rollbackErr != nil {
				err = fmt.Errorf("failed to rollback transaction: %w: %w", rollbackErr, err)
			}
		} else {
			err = tx.Commit(ctx)
		}
	}()

	_, err = tx.Exec(ctx, `
		INSERT INTO workout_days (user_id, day, completed, experience)
		VALUES ($1, $2, $3, $4)
	`, userID, day.Date.Time(), day.Completed, experience)
	if err != nil {
		if pkg.IsUniqueViolationError(err) {
			return ErrDayExists
		}
		return err
	}

	tag, err := tx.Exec(ctx, `
		UPDATE user_progress
		SET level = $1, experience = $2, streak = $3, current_avatar_id = $4, updated_at = now()
		WHERE user_id = $5
			AND level = $6 AND experience = $7 AND streak = $8 AND current_avatar_id = $9
	`,
		next.Level, next.Experience, next.Streak, next.CurrentAvatarID, userID,
		prev.Level, prev.Experience, prev.Streak, prev.CurrentAvatarID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrProgressChanged
	}

	return nil
}

func (r *Repo) UpdateAvatar(ctx context.Context, userID uuid.UUID, avatarID int) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.avatar.update")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	tag, err := r.db.Exec(ctx, `
		UPDATE user_progress
		SET current_avatar_id = $1, updated_at = now()
		WHERE user_id = $2
	`, avatarID, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrProgressNotFound
	}
	return nil
}

// ListRecordsSince lists the workout days of all users created after since, oldest first.
func (r *Repo) ListRecordsSince(ctx context.Context, since time.Time) (_ []DayRecord, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.days.since")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	rows, err := r.db.Query(ctx, `
		SELECT user_id, day, completed, experience, created_at
		FROM workout_days
		WHERE created_at > $1
		ORDER BY created_at ASC
	`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]DayRecord, 0)
	for rows.Next() {
		var rec DayRecord
		var day time.Time
		if err := rows.Scan(&rec.UserID, &day, &rec.Completed, &rec.Experience, &rec.CreatedAt); err != nil {
			return nil, err
		}
		rec.Date = progress.DateOf(day)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return records, nil
}
