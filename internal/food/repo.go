package food

import (
	"context"
	"errors"
	"time"

	"github.com/2beens/ninjatraining/internal/telemetry/tracing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const entryColumns = `id, user_id, description, calories, protein, carbs, fats, source, created_at, updated_at`

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

func scanEntry(row pgx.Row) (*Entry, error) {
	var e Entry
	var source string
	if err := row.Scan(
		&e.ID, &e.UserID, &e.Description,
		&e.Macros.Calories, &e.Macros.Protein, &e.Macros.Carbs, &e.Macros.Fats,
		&source, &e.CreatedAt, &e.UpdatedAt,
	); err != nil {
		return nil, err
	}
	e.Source = Source(source)
	return &e, nil
}

func scanEntries(rows pgx.Rows) ([]Entry, error) {
	defer rows.Close()

	entries := make([]Entry, 0)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return entries, nil
}

func (r *Repo) Add(ctx context.Context, entry Entry) (_ *Entry, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.food.add")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}

	return scanEntry(r.db.QueryRow(ctx, `
		INSERT INTO food_entries (id, user_id, description, calories, protein, carbs, fats, source)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+entryColumns,
		entry.ID, entry.UserID, entry.Description,
		entry.Macros.Calories, entry.Macros.Protein, entry.Macros.Carbs, entry.Macros.Fats,
		string(entry.Source),
	))
}

func (r *Repo) Get(ctx context.Context, userID, id uuid.UUID) (_ *Entry, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.food.get")
	defer func() {
		if err != nil && !errors.Is(err, ErrEntryNotFound) {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	e, err := scanEntry(r.db.QueryRow(ctx, `
		SELECT `+entryColumns+`
		FROM food_entries
		WHERE id = $1 AND user_id = $2
	`, id, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrEntryNotFound
	}
	return e, err
}

// Update overwrites the description and macros of an entry owned by entry.UserID.
func (r *Repo) Update(ctx context.Context, entry Entry) (_ *Entry, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.food.update")
	defer func() {
		if err != nil && !errors.Is(err, ErrEntryNotFound) {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	e, err := scanEntry(r.db.QueryRow(ctx, `
		UPDATE food_entries
		SET description = $1, calories = $2, protein = $3, carbs = $4, fats = $5, updated_at = now()
		WHERE id = $6 AND user_id = $7
		RETURNING `+entryColumns,
		entry.Description,
		entry.Macros.Calories, entry.Macros.Protein, entry.Macros.Carbs, entry.Macros.Fats,
		entry.ID, entry.UserID,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrEntryNotFound
	}
	return e, err
}

func (r *Repo) Delete(ctx context.Context, userID, id uuid.UUID) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.food.delete")
	defer func() {
		if err != nil && !errors.Is(err, ErrEntryNotFound) {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	tag, err := r.db.Exec(ctx, `
		DELETE FROM food_entries
		WHERE id = $1 AND user_id = $2
	`, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrEntryNotFound
	}
	return nil
}

// List returns all entries of the user, newest first.
func (r *Repo) List(ctx context.Context, userID uuid.UUID) (_ []Entry, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.food.list")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	rows, err := r.db.Query(ctx, `
		SELECT `+entryColumns+`
		FROM food_entries
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	return scanEntries(rows)
}

// ListSince returns the entries of the user created at or after from, newest first.
func (r *Repo) ListSince(ctx context.Context, userID uuid.UUID, from time.Time) (_ []Entry, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.food.list.since")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()
	span.SetAttributes(attribute.String("from", from.Format(time.RFC3339)))

	rows, err := r.db.Query(ctx, `
		SELECT `+entryColumns+`
		FROM food_entries
		WHERE user_id = $1 AND created_at >= $2
		ORDER BY created_at DESC
	`, userID, from)
	if err != nil {
		return nil, err
	}
	return scanEntries(rows)
}

// ListRecordsSince lists the entries of all users created after since, oldest first.
func (r *Repo) ListRecordsSince(ctx context.Context, since time.Time) (_ []Entry, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.food.records.since")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	rows, err := r.db.Query(ctx, `
		SELECT `+entryColumns+`
		FROM food_entries
		WHERE created_at > $1
		ORDER BY created_at ASC
	`, since)
	if err != nil {
		return nil, err
	}
	return scanEntries(rows)
}
