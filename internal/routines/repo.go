package routines

import (
	"context"
	"errors"
	"fmt"

	"github.com/2beens/workouttracker/internal/telemetry/tracing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
)

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

// Create stores the routine and all of its exercises in one transaction.
// The exercise inserts go out as a single batch, if any of them fails nothing
// is stored.
func (r *Repo) Create(ctx context.Context, routine Routine) (_ *Routine, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.routines.create")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()
	span.SetAttributes(attribute.Int("user.id", routine.UserID))
	span.SetAttributes(attribute.Int("exercises", len(routine.Exercises)))

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			if rollbackErr := tx.Rollback(ctx); rollbackErr != nil {
				err = fmt.Errorf("rollback: %w: %w", rollbackErr, err)
			}
		} else {
			err = tx.Commit(ctx)
		}
	}()

	err = tx.QueryRow(ctx, `
		INSERT INTO routines (user_id, name, description)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`,
		routine.UserID,
		routine.Name,
		routine.Description,
	).Scan(&routine.ID, &routine.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert routine: %w", err)
	}

	batch := &pgx.Batch{}
	for i := range routine.Exercises {
		e := &routine.Exercises[i]
		e.RoutineID = routine.ID
		e.OrderIndex = i
		batch.Queue(`
			INSERT INTO exercises (routine_id, name, kind, sets, reps, weight, duration_seconds, notes, order_index)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING id
		`,
			e.RoutineID,
			e.Name,
			e.Kind,
			e.Sets,
			e.Reps,
			e.Weight,
			e.DurationSeconds,
			e.Notes,
			e.OrderIndex,
		)
	}

	results := tx.SendBatch(ctx, batch)
	for i := range routine.Exercises {
		if err = results.QueryRow().Scan(&routine.Exercises[i].ID); err != nil {
			_ = results.Close()
			return nil, fmt.Errorf("insert exercise %d: %w", i, err)
		}
	}
	if err = results.Close(); err != nil {
		return nil, fmt.Errorf("close batch: %w", err)
	}

	routine.ExerciseCount = len(routine.Exercises)
	return &routine, nil
}

// List returns the routines of a user, newest first, without exercises.
func (r *Repo) List(ctx context.Context, userID int) (_ []Routine, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.routines.list")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()
	span.SetAttributes(attribute.Int("user.id", userID))

	rows, err := r.db.Query(ctx, `
		SELECT r.id, r.user_id, r.name, r.description, r.created_at, COUNT(e.id)
		FROM routines r
		LEFT JOIN exercises e ON e.routine_id = r.id
		WHERE r.user_id = $1
		GROUP BY r.id
		ORDER BY r.created_at DESC, r.id DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	routines := make([]Routine, 0)
	for rows.Next() {
		var routine Routine
		if err := rows.Scan(
			&routine.ID,
			&routine.UserID,
			&routine.Name,
			&routine.Description,
			&routine.CreatedAt,
			&routine.ExerciseCount,
		); err != nil {
			return nil, err
		}
		routines = append(routines, routine)
	}

	return routines, rows.Err()
}

// Get returns the routine with its exercises in execution order.
func (r *Repo) Get(ctx context.Context, userID, id int) (_ *Routine, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.routines.get")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()
	span.SetAttributes(attribute.Int("user.id", userID))
	span.SetAttributes(attribute.Int("id", id))

	routine := &Routine{}
	err = r.db.QueryRow(ctx, `
		SELECT id, user_id, name, description, created_at
		FROM routines
		WHERE id = $1 AND user_id = $2
	`, id, userID).Scan(
		&routine.ID,
		&routine.UserID,
		&routine.Name,
		&routine.Description,
		&routine.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRoutineNotFound
		}
		return nil, err
	}

	routine.Exercises, err = r.exercises(ctx, routine.ID)
	if err != nil {
		return nil, err
	}
	routine.ExerciseCount = len(routine.Exercises)

	return routine, nil
}

func (r *Repo) exercises(ctx context.Context, routineID int) ([]Exercise, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, routine_id, name, kind, sets, reps, weight, duration_seconds, notes, order_index
		FROM exercises
		WHERE routine_id = $1
		ORDER BY order_index
	`, routineID)
	if err != nil {
		return nil, fmt.Errorf("query exercises: %w", err)
	}
	defer rows.Close()

	exercises := make([]Exercise, 0)
	for rows.Next() {
		var e Exercise
		if err := rows.Scan(
			&e.ID,
			&e.RoutineID,
			&e.Name,
			&e.Kind,
			&e.Sets,
			&e.Reps,
			&e.Weight,
			&e.DurationSeconds,
			&e.Notes,
			&e.OrderIndex,
		); err != nil {
			return nil, err
		}
		exercises = append(exercises, e)
	}

	return exercises, rows.Err()
}

// Delete removes the exercises and then the routine, both scoped to the
// owner. Zero deleted routines rolls back and returns ErrRoutineNotFound.
func (r *Repo) Delete(ctx context.Context, userID, id int) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.routines.delete")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()
	span.SetAttributes(attribute.Int("user.id", userID))
	span.SetAttributes(attribute.Int("id", id))

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			if rollbackErr := tx.Rollback(ctx); rollbackErr != nil {
				err = fmt.Errorf("rollback: %w: %w", rollbackErr, err)
			}
		} else {
			err = tx.Commit(ctx)
		}
	}()

	if _, err = tx.Exec(ctx, `
		DELETE FROM exercises
		WHERE routine_id = $1
		  AND routine_id IN (SELECT id FROM routines WHERE user_id = $2)
	`, id, userID); err != nil {
		return fmt.Errorf("delete exercises: %w", err)
	}

	tag, err := tx.Exec(ctx, `DELETE FROM routines WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("delete routine: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrRoutineNotFound
	}

	return nil
}
