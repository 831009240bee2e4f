package workouts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/2beens/workouttracker/internal/routines"
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

func withTx(ctx context.Context, db *pgxpool.Pool, fn func(tx pgx.Tx) error) (err error) {
	tx, err := db.Begin(ctx)
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

	return fn(tx)
}

// Start creates an in_progress session for the routine and one empty log per
// exercise, all in one transaction. The returned exercises are the snapshot
// the session runs, in order.
func (r *Repo) Start(ctx context.Context, userID, routineID int, startTime time.Time) (_ *Started, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.start")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()
	span.SetAttributes(attribute.Int("user.id", userID))
	span.SetAttributes(attribute.Int("routine.id", routineID))

	started := &Started{StartTime: startTime}
	err = withTx(ctx, r.db, func(tx pgx.Tx) error {
		var routineName string
		err := tx.QueryRow(ctx, `
			SELECT name
			FROM routines
			WHERE id = $1 AND user_id = $2
			FOR SHARE
		`, routineID, userID).Scan(&routineName)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrRoutineNotFound
			}
			return fmt.Errorf("get routine: %w", err)
		}

		started.Exercises, err = routineExercises(ctx, tx, routineID)
		if err != nil {
			return err
		}

		err = tx.QueryRow(ctx, `
			INSERT INTO workout_sessions (user_id, routine_id, routine_name, start_time, status)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id
		`, userID, routineID, routineName, startTime, StatusInProgress).Scan(&started.SessionID)
		if err != nil {
			return fmt.Errorf("insert session: %w", err)
		}

		if len(started.Exercises) == 0 {
			return nil
		}

		batch := &pgx.Batch{}
		for _, e := range started.Exercises {
			batch.Queue(`
				INSERT INTO workout_logs (session_id, exercise_id, exercise_name, order_index)
				VALUES ($1, $2, $3, $4)
			`, started.SessionID, e.ID, e.Name, e.OrderIndex)
		}
		return execBatch(ctx, tx, batch, nil)
	})
	if err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.Int("session.id", started.SessionID))
	return started, nil
}

func routineExercises(ctx context.Context, tx pgx.Tx, routineID int) ([]routines.Exercise, error) {
	rows, err := tx.Query(ctx, `
		SELECT id, routine_id, name, kind, sets, reps, weight, duration_seconds, notes, order_index
		FROM exercises
		WHERE routine_id = $1
		ORDER BY order_index
	`, routineID)
	if err != nil {
		return nil, fmt.Errorf("query exercises: %w", err)
	}
	defer rows.Close()

	exercises := make([]routines.Exercise, 0)
	for rows.Next() {
		var e routines.Exercise
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

// execBatch sends the batch and checks every statement result in order; the
// first failure aborts the rest.
func execBatch(ctx context.Context, tx pgx.Tx, batch *pgx.Batch, check func(i int, rowsAffected int64) error) (err error) {
	results := tx.SendBatch(ctx, batch)
	defer func() {
		if closeErr := results.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close batch: %w", closeErr)
		}
	}()

	for i := 0; i < batch.Len(); i++ {
		tag, err := results.Exec()
		if err != nil {
			return fmt.Errorf("batch statement %d: %w", i, err)
		}
		if check == nil {
			continue
		}
		if err := check(i, tag.RowsAffected()); err != nil {
			return err
		}
	}
	return nil
}

// Complete marks an in_progress session of the user as completed and fills
// in the supplied logs. Everything runs in one transaction; a session that is
// missing, foreign or already completed gives ErrSessionNotFound, a log for
// an exercise outside the session gives ErrUnknownExercise.
func (r *Repo) Complete(ctx context.Context, userID, sessionID int, req CompleteRequest, endTime time.Time) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.complete")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()
	span.SetAttributes(attribute.Int("user.id", userID))
	span.SetAttributes(attribute.Int("session.id", sessionID))
	span.SetAttributes(attribute.Int("logs", len(req.ExerciseLogs)))

	return withTx(ctx, r.db, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE workout_sessions
			SET end_time = $1, status = $2, total_duration = $3
			WHERE id = $4 AND user_id = $5 AND status = $6
		`, endTime, StatusCompleted, req.Duration, sessionID, userID, StatusInProgress)
		if err != nil {
			return fmt.Errorf("update session: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrSessionNotFound
		}

		if len(req.ExerciseLogs) == 0 {
			return nil
		}

		batch := &pgx.Batch{}
		for _, l := range req.ExerciseLogs {
			completedAt := endTime
			if l.EndTime != nil {
				completedAt = *l.EndTime
			}
			batch.Queue(`
				UPDATE workout_logs
				SET sets_completed = $1, reps_completed = $2, weight_used = $3,
				    duration_seconds = $4, completed_at = $5, notes = $6
				WHERE session_id = $7 AND exercise_id = $8
			`, l.Sets, l.Reps, l.Weight, l.Duration, completedAt, l.Notes, sessionID, l.ExerciseID)
		}

		return execBatch(ctx, tx, batch, func(i int, rowsAffected int64) error {
			if rowsAffected == 0 {
				return fmt.Errorf("exercise %d: %w", req.ExerciseLogs[i].ExerciseID, ErrUnknownExercise)
			}
			return nil
		})
	})
}

// History lists the completed sessions of a user, newest first.
func (r *Repo) History(ctx context.Context, userID int) (_ []HistoryEntry, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.history")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()
	span.SetAttributes(attribute.Int("user.id", userID))

	rows, err := r.db.Query(ctx, `
		SELECT
			ws.id,
			ws.routine_id,
			ws.routine_name,
			ws.start_time,
			ws.end_time,
			COALESCE(ws.total_duration, 0),
			COUNT(wl.id),
			COUNT(wl.id) FILTER (
				WHERE wl.sets_completed > 0 OR wl.reps_completed > 0
				   OR wl.weight_used > 0 OR wl.duration_seconds > 0
			)
		FROM workout_sessions ws
		LEFT JOIN workout_logs wl ON wl.session_id = ws.id
		WHERE ws.user_id = $1 AND ws.status = $2
		GROUP BY ws.id
		ORDER BY ws.start_time DESC, ws.id DESC
	`, userID, StatusCompleted)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	history := make([]HistoryEntry, 0)
	for rows.Next() {
		var h HistoryEntry
		if err := rows.Scan(
			&h.ID,
			&h.RoutineID,
			&h.RoutineName,
			&h.StartTime,
			&h.EndTime,
			&h.TotalDuration,
			&h.TotalExercises,
			&h.CompletedExercises,
		); err != nil {
			return nil, err
		}
		history = append(history, h)
	}

	return history, rows.Err()
}

// Get returns one session of the user with its logs in exercise order.
func (r *Repo) Get(ctx context.Context, userID, sessionID int) (_ *Session, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.get")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()
	span.SetAttributes(attribute.Int("session.id", sessionID))

	session := &Session{}
	err = r.db.QueryRow(ctx, `
		SELECT id, user_id, routine_id, routine_name, start_time, end_time, status, total_duration, notes
		FROM workout_sessions
		WHERE id = $1 AND user_id = $2
	`, sessionID, userID).Scan(
		&session.ID,
		&session.UserID,
		&session.RoutineID,
		&session.RoutineName,
		&session.StartTime,
		&session.EndTime,
		&session.Status,
		&session.TotalDuration,
		&session.Notes,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}

	rows, err := r.db.Query(ctx, `
		SELECT id, session_id, exercise_id, exercise_name, order_index, sets_completed,
		       reps_completed, weight_used, duration_seconds, completed_at, notes
		FROM workout_logs
		WHERE session_id = $1
		ORDER BY order_index
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query logs: %w", err)
	}
	defer rows.Close()

	session.Logs = make([]Log, 0)
	for rows.Next() {
		var l Log
		if err := rows.Scan(
			&l.ID,
			&l.SessionID,
			&l.ExerciseID,
			&l.ExerciseName,
			&l.OrderIndex,
			&l.SetsCompleted,
			&l.RepsCompleted,
			&l.WeightUsed,
			&l.DurationSeconds,
			&l.CompletedAt,
			&l.Notes,
		); err != nil {
			return nil, err
		}
		session.Logs = append(session.Logs, l)
	}

	return session, rows.Err()
}
