package api

import (
	"context"
	"errors"
	"io"
	"net/http"

	apperrors "github.com/julianstephens/habitbell/internal/errors"
	"github.com/julianstephens/habitbell/internal/models"
	"github.com/julianstephens/habitbell/internal/notifier"
	"github.com/julianstephens/habitbell/internal/session"
	"github.com/julianstephens/habitbell/internal/validation"
)

type addHabitRequest struct {
	Title string `json:"title"`
	Time  string `json:"time"`
}

type updateHabitRequest struct {
	UserID int64   `json:"user_id,omitempty"`
	Title  *string `json:"title,omitempty"`
	Time   *string `json:"time,omitempty"`
}

type logRequest struct {
	Title  string `json:"title"`
	Status string `json:"status"`
}

type historyResponse struct {
	Days    int               `json:"days"`
	Entries []models.LogEntry `json:"entries"`
}

type streakResponse struct {
	Title  string `json:"title"`
	Streak int    `json:"streak"`
}

type conversationState struct {
	State session.State `json:"state"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		if err := s.health(r.Context()); err != nil {
			log.Warn("Health check failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListHabits(w http.ResponseWriter, r *http.Request) {
	userID, err := userParam(r)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	habits, err := s.tracker.Overview(r.Context(), userID)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, habits)
}

func (s *Server) handleAddHabit(w http.ResponseWriter, r *http.Request) {
	userID, err := userParam(r)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	var req addHabitRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeAppError(w, r, err)
		return
	}
	habit, err := s.tracker.AddHabit(r.Context(), userID, req.Title, req.Time)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, habit)
}

func (s *Server) handleDeleteHabitByTitle(w http.ResponseWriter, r *http.Request) {
	userID, err := userParam(r)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	title, err := requiredQuery(r, "title")
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	if err := s.tracker.DeleteByTitle(r.Context(), userID, title); err != nil {
		writeAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ownedHabit loads habit id, treating a habit owned by someone else as missing.
// userID 0 skips the ownership check.
func (s *Server) ownedHabit(ctx context.Context, id, userID int64) (models.Habit, error) {
	habit, err := s.tracker.GetHabit(ctx, id)
	if err != nil {
		return models.Habit{}, err
	}
	if userID != 0 && habit.UserID != userID {
		return models.Habit{}, apperrors.ErrNotFound
	}
	return habit, nil
}

func (s *Server) handleGetHabit(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	userID, err := optionalInt(r, "user", 0)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	habit, err := s.ownedHabit(r.Context(), id, int64(userID))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, habit)
}

func (s *Server) handleUpdateHabit(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	var req updateHabitRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeAppError(w, r, err)
		return
	}
	if req.Title == nil && req.Time == nil {
		writeAppError(w, r, apperrors.Validation("body", "title or time is required"))
		return
	}

	ctx := r.Context()
	if _, err := s.ownedHabit(ctx, id, req.UserID); err != nil {
		writeAppError(w, r, err)
		return
	}
	if req.Title != nil {
		if err := s.tracker.UpdateTitle(ctx, id, *req.Title); err != nil {
			writeAppError(w, r, err)
			return
		}
	}
	if req.Time != nil {
		if err := s.tracker.UpdateTime(ctx, id, *req.Time); err != nil {
			writeAppError(w, r, err)
			return
		}
	}

	habit, err := s.tracker.GetHabit(ctx, id)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, habit)
}

func (s *Server) handleDeleteHabit(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	userID, err := optionalInt(r, "user", 0)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	if userID != 0 {
		// A missing habit deletes as a no-op; someone else's is reported missing.
		habit, err := s.tracker.GetHabit(r.Context(), id)
		switch {
		case errors.Is(err, apperrors.ErrNotFound):
			w.WriteHeader(http.StatusNoContent)
			return
		case err != nil:
			writeAppError(w, r, err)
			return
		case habit.UserID != int64(userID):
			writeAppError(w, r, apperrors.ErrNotFound)
			return
		}
	}
	if err := s.tracker.DeleteByID(r.Context(), id); err != nil {
		writeAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleLogOutcome(w http.ResponseWriter, r *http.Request) {
	userID, err := userParam(r)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	var req logRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeAppError(w, r, err)
		return
	}
	status, err := validation.Status(req.Status)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	entry, err := s.tracker.LogOutcome(r.Context(), userID, req.Title, status)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

func (s *Server) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	userID, err := userParam(r)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	if err := s.tracker.ClearHistory(r.Context(), userID); err != nil {
		writeAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	userID, err := userParam(r)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	stats, err := s.tracker.Stats(r.Context(), userID)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	userID, err := userParam(r)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	days, err := optionalInt(r, "days", s.tracker.HistoryDays())
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	if err := validation.Days(days); err != nil {
		writeAppError(w, r, err)
		return
	}
	entries, err := s.tracker.History(r.Context(), userID, days)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, historyResponse{Days: days, Entries: entries})
}

func (s *Server) handleStreak(w http.ResponseWriter, r *http.Request) {
	userID, err := userParam(r)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	title, err := requiredQuery(r, "title")
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	streak, err := s.tracker.Streak(r.Context(), userID, title)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, streakResponse{Title: title, Streak: streak})
}

func (s *Server) handleConversation(w http.ResponseWriter, r *http.Request) {
	userID, err := userParam(r)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	var ev session.Event
	if err := decodeBody(w, r, &ev); err != nil {
		writeAppError(w, r, err)
		return
	}
	reply, err := s.sessions.Handle(r.Context(), userID, ev)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reply)
}

func (s *Server) handleConversationState(w http.ResponseWriter, r *http.Request) {
	userID, err := userParam(r)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, conversationState{State: s.sessions.State(userID)})
}

func (s *Server) handleResponse(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeAppError(w, r, apperrors.Validation("body", "%v", err))
		return
	}
	resp, err := notifier.DecodeResponse(body)
	if err != nil {
		s.recorder.IncResponse("invalid")
		writeAppError(w, r, apperrors.Validation("body", "%v", err))
		return
	}
	entry, err := s.RecordResponse(r.Context(), resp)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

// RecordResponse logs a user's answer to a reminder. It backs both the
// HTTP endpoint and message-bus subscriptions.
func (s *Server) RecordResponse(ctx context.Context, resp models.Response) (models.LogEntry, error) {
	entry, err := s.tracker.LogOutcome(ctx, resp.UserID, resp.HabitTitle, resp.Status)
	if err != nil {
		s.recorder.IncResponse("rejected")
		return models.LogEntry{}, err
	}
	s.recorder.IncResponse(string(resp.Status))
	return entry, nil
}
