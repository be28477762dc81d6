package postgres

import (
	"context"

	apperrors "github.com/julianstephens/habitbell/internal/errors"
	"github.com/julianstephens/habitbell/internal/models"
)

func (s *Store) AppendLog(ctx context.Context, entry models.LogEntry) error {
	if err := s.ready(); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO habits_logs (user_id, habit_title, date, status)
		VALUES ($1, $2, $3, $4)`,
		entry.UserID, entry.HabitTitle, entry.Date, string(entry.Status))
	if err != nil {
		return apperrors.Persistence("append log", err)
	}
	return nil
}

func (s *Store) CountByStatus(ctx context.Context, userID int64, status models.Status) (int, error) {
	if err := s.ready(); err != nil {
		return 0, err
	}
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM habits_logs WHERE user_id = $1 AND status = $2`,
		userID, string(status)).Scan(&count)
	if err != nil {
		return 0, apperrors.Persistence("count logs", err)
	}
	return count, nil
}

func (s *Store) LogsSince(ctx context.Context, userID int64, since string) ([]models.LogEntry, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, habit_title, date, status FROM habits_logs
		WHERE user_id = $1 AND date >= $2
		ORDER BY date DESC, id DESC`, userID, since)
	if err != nil {
		return nil, apperrors.Persistence("list logs", err)
	}
	defer rows.Close()

	entries := []models.LogEntry{}
	for rows.Next() {
		var e models.LogEntry
		var status string
		if err := rows.Scan(&e.ID, &e.UserID, &e.HabitTitle, &e.Date, &status); err != nil {
			return nil, apperrors.Persistence("scan log", err)
		}
		e.Status = models.Status(status)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Persistence("scan logs", err)
	}
	return entries, nil
}

func (s *Store) DoneDates(ctx context.Context, userID int64, title string) ([]string, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT date FROM habits_logs
		WHERE user_id = $1 AND habit_title = $2 AND status = $3
		ORDER BY date DESC`, userID, title, string(models.StatusDone))
	if err != nil {
		return nil, apperrors.Persistence("list done dates", err)
	}
	defer rows.Close()

	var dates []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, apperrors.Persistence("scan done date", err)
		}
		dates = append(dates, d)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Persistence("scan done dates", err)
	}
	return dates, nil
}

func (s *Store) LogExists(ctx context.Context, userID int64, title, date string) (bool, error) {
	if err := s.ready(); err != nil {
		return false, err
	}
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM habits_logs
			WHERE user_id = $1 AND habit_title = $2 AND date = $3
		)`, userID, title, date).Scan(&exists)
	if err != nil {
		return false, apperrors.Persistence("check log", err)
	}
	return exists, nil
}

func (s *Store) ClearLogs(ctx context.Context, userID int64) error {
	if err := s.ready(); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM habits_logs WHERE user_id = $1`, userID); err != nil {
		return apperrors.Persistence("clear logs", err)
	}
	return nil
}
