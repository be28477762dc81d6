package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	apperrors "github.com/julianstephens/habitbell/internal/errors"
	"github.com/julianstephens/habitbell/internal/models"
)

func (s *Store) AddHabit(ctx context.Context, habit models.Habit, maxHabits int) (int64, error) {
	if err := s.ready(); err != nil {
		return 0, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, apperrors.Persistence("add habit", err)
	}
	defer rollback(tx)

	var count int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM habits WHERE user_id = ?`, habit.UserID).Scan(&count); err != nil {
		return 0, apperrors.Persistence("add habit", err)
	}
	if count >= maxHabits {
		return 0, fmt.Errorf("%w: user %d has %d of %d habits", apperrors.ErrCapacityExceeded, habit.UserID, count, maxHabits)
	}

	result, err := tx.ExecContext(ctx,
		`INSERT INTO habits (user_id, title, time) VALUES (?, ?, ?)`,
		habit.UserID, habit.Title, habit.RemindAt)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("%w: %q", apperrors.ErrDuplicateTitle, habit.Title)
		}
		return 0, apperrors.Persistence("add habit", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, apperrors.Persistence("add habit", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, apperrors.Persistence("add habit", err)
	}
	return id, nil
}

func (s *Store) GetHabit(ctx context.Context, id int64) (models.Habit, error) {
	if err := s.ready(); err != nil {
		return models.Habit{}, err
	}
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, title, time FROM habits WHERE id = ?`, id)
	return scanHabit(row, fmt.Sprintf("habit %d", id))
}

func (s *Store) GetHabitByTitle(ctx context.Context, userID int64, title string) (models.Habit, error) {
	if err := s.ready(); err != nil {
		return models.Habit{}, err
	}
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, title, time FROM habits WHERE user_id = ? AND title = ?`, userID, title)
	return scanHabit(row, fmt.Sprintf("habit %q", title))
}

func scanHabit(row *sql.Row, what string) (models.Habit, error) {
	var h models.Habit
	if err := row.Scan(&h.ID, &h.UserID, &h.Title, &h.RemindAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Habit{}, fmt.Errorf("%w: %s", apperrors.ErrNotFound, what)
		}
		return models.Habit{}, apperrors.Persistence("get habit", err)
	}
	return h, nil
}

func (s *Store) ListHabits(ctx context.Context, userID int64) ([]models.Habit, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, title, time FROM habits WHERE user_id = ? ORDER BY id`, userID)
	if err != nil {
		return nil, apperrors.Persistence("list habits", err)
	}
	return scanHabits(rows)
}

func (s *Store) ListAllHabits(ctx context.Context) ([]models.Habit, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, title, time FROM habits ORDER BY id`)
	if err != nil {
		return nil, apperrors.Persistence("list all habits", err)
	}
	return scanHabits(rows)
}

func scanHabits(rows *sql.Rows) ([]models.Habit, error) {
	defer rows.Close()

	habits := []models.Habit{}
	for rows.Next() {
		var h models.Habit
		if err := rows.Scan(&h.ID, &h.UserID, &h.Title, &h.RemindAt); err != nil {
			return nil, apperrors.Persistence("scan habit", err)
		}
		habits = append(habits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Persistence("scan habits", err)
	}
	return habits, nil
}

func (s *Store) CountHabits(ctx context.Context, userID int64) (int, error) {
	if err := s.ready(); err != nil {
		return 0, err
	}
	var count int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM habits WHERE user_id = ?`, userID).Scan(&count); err != nil {
		return 0, apperrors.Persistence("count habits", err)
	}
	return count, nil
}

func (s *Store) UpdateHabitTitle(ctx context.Context, id int64, title string) error {
	if err := s.ready(); err != nil {
		return err
	}
	result, err := s.db.ExecContext(ctx, `UPDATE habits SET title = ? WHERE id = ?`, title, id)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %q", apperrors.ErrDuplicateTitle, title)
		}
		return apperrors.Persistence("update habit title", err)
	}
	return expectOneRow(result, id)
}

func (s *Store) UpdateHabitTime(ctx context.Context, id int64, remindAt string) error {
	if err := s.ready(); err != nil {
		return err
	}
	result, err := s.db.ExecContext(ctx, `UPDATE habits SET time = ? WHERE id = ?`, remindAt, id)
	if err != nil {
		return apperrors.Persistence("update habit time", err)
	}
	return expectOneRow(result, id)
}

func expectOneRow(result sql.Result, id int64) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return apperrors.Persistence("update habit", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: habit %d", apperrors.ErrNotFound, id)
	}
	return nil
}

func (s *Store) DeleteHabitByTitle(ctx context.Context, userID int64, title string) error {
	if err := s.ready(); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.Persistence("delete habit", err)
	}
	defer rollback(tx)

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM habits WHERE user_id = ? AND title = ?`, userID, title); err != nil {
		return apperrors.Persistence("delete habit", err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM habits_logs WHERE user_id = ? AND habit_title = ?`, userID, title); err != nil {
		return apperrors.Persistence("delete habit logs", err)
	}

	if err := tx.Commit(); err != nil {
		return apperrors.Persistence("delete habit", err)
	}
	return nil
}

func (s *Store) DeleteHabitByID(ctx context.Context, id int64) error {
	if err := s.ready(); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.Persistence("delete habit", err)
	}
	defer rollback(tx)

	// Resolve the owner and title first; logs reference habits by title only.
	var userID int64
	var title string
	err = tx.QueryRowContext(ctx, `SELECT user_id, title FROM habits WHERE id = ?`, id).Scan(&userID, &title)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return apperrors.Persistence("delete habit", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM habits WHERE id = ?`, id); err != nil {
		return apperrors.Persistence("delete habit", err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM habits_logs WHERE user_id = ? AND habit_title = ?`, userID, title); err != nil {
		return apperrors.Persistence("delete habit logs", err)
	}

	if err := tx.Commit(); err != nil {
		return apperrors.Persistence("delete habit", err)
	}
	return nil
}
