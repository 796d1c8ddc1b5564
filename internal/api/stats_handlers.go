package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	errorvalues "github.com/limbo/cadence/internal/error_values"
	"github.com/limbo/cadence/pkg/daykey"
	"github.com/limbo/cadence/pkg/httputil"
)

func (s *Server) DayStatus(w http.ResponseWriter, r *http.Request) {
	logger := GetLoggerFromCtx(r.Context())
	uid, id, ok := s.habitRequestIDs(w, r)
	if !ok {
		return
	}
	date, err := s.parseDate(r.URL.Query().Get("date"))
	if err != nil {
		logger.Error("day status error: invalid date")
		httputil.WriteErrorResponse(w, http.StatusBadRequest, "invalid date, expected yyyy-MM-dd", nil)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()
	status, err := s.statsService.DayStatus(ctx, id, uid, date)
	if err != nil {
		s.writeHabitError(w, logger, err, "day status")
		return
	}
	httputil.WriteJSONResponse(w, http.StatusOK, status)
}

func (s *Server) History(w http.ResponseWriter, r *http.Request) {
	logger := GetLoggerFromCtx(r.Context())
	uid, id, ok := s.habitRequestIDs(w, r)
	if !ok {
		return
	}
	from, err := s.parseDate(r.URL.Query().Get("from"))
	if err != nil {
		logger.Error("history error: invalid from date")
		httputil.WriteErrorResponse(w, http.StatusBadRequest, "invalid from date, expected yyyy-MM-dd", nil)
		return
	}
	to, err := s.parseDate(r.URL.Query().Get("to"))
	if err != nil {
		logger.Error("history error: invalid to date")
		httputil.WriteErrorResponse(w, http.StatusBadRequest, "invalid to date, expected yyyy-MM-dd", nil)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*15)
	defer cancel()
	statuses, err := s.statsService.History(ctx, id, uid, from, to)
	if err != nil {
		if errors.Is(err, errorvalues.ErrDateNotAllowed) {
			logger.Error("history error: bad range")
			httputil.WriteErrorResponse(w, http.StatusBadRequest, "requested day range is invalid or too long", nil)
			return
		}
		s.writeHabitError(w, logger, err, "history")
		return
	}
	httputil.WriteJSONResponse(w, http.StatusOK, map[string]any{
		"from": daykey.Key(from, s.loc),
		"to":   daykey.Key(to, s.loc),
		"days": statuses,
	})
}

func (s *Server) Streaks(w http.ResponseWriter, r *http.Request) {
	logger := GetLoggerFromCtx(r.Context())
	uid, id, ok := s.habitRequestIDs(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()
	streaks, err := s.statsService.Streaks(ctx, id, uid)
	if err != nil {
		s.writeHabitError(w, logger, err, "streaks")
		return
	}
	httputil.WriteJSONResponse(w, http.StatusOK, streaks)
}

func (s *Server) Score(w http.ResponseWriter, r *http.Request) {
	logger := GetLoggerFromCtx(r.Context())
	uid, id, ok := s.habitRequestIDs(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()
	breakdown, err := s.statsService.Score(ctx, id, uid)
	if err != nil {
		s.writeHabitError(w, logger, err, "score")
		return
	}
	httputil.WriteJSONResponse(w, http.StatusOK, breakdown)
}

func (s *Server) NextDue(w http.ResponseWriter, r *http.Request) {
	logger := GetLoggerFromCtx(r.Context())
	uid, id, ok := s.habitRequestIDs(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()
	desc, err := s.statsService.NextDue(ctx, id, uid)
	if err != nil {
		s.writeHabitError(w, logger, err, "next due")
		return
	}
	httputil.WriteJSONResponse(w, http.StatusOK, map[string]any{"next_due": desc})
}
