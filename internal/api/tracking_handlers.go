package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	errorvalues "github.com/limbo/cadence/internal/error_values"
	"github.com/limbo/cadence/pkg/httputil"
)

type TrackDayRequest struct {
	Date string `json:"date"`
}

type LogDurationRequest struct {
	Date    string `json:"date"`
	Seconds int    `json:"seconds"`
}

type LogQuantityRequest struct {
	Date   string `json:"date"`
	Amount int    `json:"amount"`
}

func (s *Server) Toggle(w http.ResponseWriter, r *http.Request) {
	logger := GetLoggerFromCtx(r.Context())
	uid, id, ok := s.habitRequestIDs(w, r)
	if !ok {
		return
	}
	var req TrackDayRequest
	defer r.Body.Close()
	if err := sonic.ConfigDefault.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Error("toggle error: invalid request body")
		httputil.WriteErrorResponse(w, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	date, err := s.parseDate(req.Date)
	if err != nil {
		logger.Error("toggle error: invalid date")
		httputil.WriteErrorResponse(w, http.StatusBadRequest, "invalid date, expected yyyy-MM-dd", nil)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()
	if err = s.trackingService.Toggle(ctx, id, uid, date); err != nil {
		s.writeTrackingError(w, logger, err, "toggle")
		return
	}
	w.WriteHeader(http.StatusNoContent)
	logger.Info("completion toggled")
}

func (s *Server) Skip(w http.ResponseWriter, r *http.Request) {
	uid, id, date, ok := s.trackDayParams(w, r, "skip")
	if !ok {
		return
	}
	logger := GetLoggerFromCtx(r.Context())
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()
	if err := s.trackingService.Skip(ctx, id, uid, date); err != nil {
		s.writeTrackingError(w, logger, err, "skip")
		return
	}
	w.WriteHeader(http.StatusNoContent)
	logger.Info("day skipped")
}

func (s *Server) Unskip(w http.ResponseWriter, r *http.Request) {
	uid, id, date, ok := s.trackDayParams(w, r, "unskip")
	if !ok {
		return
	}
	logger := GetLoggerFromCtx(r.Context())
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()
	if err := s.trackingService.Unskip(ctx, id, uid, date); err != nil {
		s.writeTrackingError(w, logger, err, "unskip")
		return
	}
	w.WriteHeader(http.StatusNoContent)
	logger.Info("skip removed")
}

func (s *Server) LogDuration(w http.ResponseWriter, r *http.Request) {
	logger := GetLoggerFromCtx(r.Context())
	uid, id, ok := s.habitRequestIDs(w, r)
	if !ok {
		return
	}
	var req LogDurationRequest
	defer r.Body.Close()
	if err := sonic.ConfigDefault.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Error("log duration error: invalid request body")
		httputil.WriteErrorResponse(w, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	date, err := s.parseDate(req.Date)
	if err != nil {
		logger.Error("log duration error: invalid date")
		httputil.WriteErrorResponse(w, http.StatusBadRequest, "invalid date, expected yyyy-MM-dd", nil)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()
	if err = s.trackingService.LogDuration(ctx, id, uid, date, req.Seconds); err != nil {
		s.writeTrackingError(w, logger, err, "log duration")
		return
	}
	w.WriteHeader(http.StatusNoContent)
	logger.Info("duration logged")
}

func (s *Server) LogQuantity(w http.ResponseWriter, r *http.Request) {
	logger := GetLoggerFromCtx(r.Context())
	uid, id, ok := s.habitRequestIDs(w, r)
	if !ok {
		return
	}
	var req LogQuantityRequest
	defer r.Body.Close()
	if err := sonic.ConfigDefault.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Error("log quantity error: invalid request body")
		httputil.WriteErrorResponse(w, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	date, err := s.parseDate(req.Date)
	if err != nil {
		logger.Error("log quantity error: invalid date")
		httputil.WriteErrorResponse(w, http.StatusBadRequest, "invalid date, expected yyyy-MM-dd", nil)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()
	if err = s.trackingService.LogQuantity(ctx, id, uid, date, req.Amount); err != nil {
		s.writeTrackingError(w, logger, err, "log quantity")
		return
	}
	w.WriteHeader(http.StatusNoContent)
	logger.Info("quantity logged")
}

func (s *Server) trackDayParams(w http.ResponseWriter, r *http.Request, action string) (uid, id uuid.UUID, date time.Time, ok bool) {
	logger := GetLoggerFromCtx(r.Context())
	uid, id, ok = s.habitRequestIDs(w, r)
	if !ok {
		return uuid.UUID{}, uuid.UUID{}, time.Time{}, false
	}
	var req TrackDayRequest
	defer r.Body.Close()
	if err := sonic.ConfigDefault.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Error(action + " error: invalid request body")
		httputil.WriteErrorResponse(w, http.StatusBadRequest, "invalid request body", nil)
		return uuid.UUID{}, uuid.UUID{}, time.Time{}, false
	}
	date, err := s.parseDate(req.Date)
	if err != nil {
		logger.Error(action + " error: invalid date")
		httputil.WriteErrorResponse(w, http.StatusBadRequest, "invalid date, expected yyyy-MM-dd", nil)
		return uuid.UUID{}, uuid.UUID{}, time.Time{}, false
	}
	return uid, id, date, true
}

func (s *Server) writeTrackingError(w http.ResponseWriter, logger *slog.Logger, err error, action string) {
	switch {
	case errors.Is(err, errorvalues.ErrDateNotAllowed):
		logger.Error(action + " error: date not allowed")
		httputil.WriteErrorResponse(w, http.StatusUnprocessableEntity, "logging into the future is not allowed", nil)
	case errors.Is(err, errorvalues.ErrDaySkipped):
		logger.Error(action + " error: day is skipped")
		httputil.WriteErrorResponse(w, http.StatusConflict, "day is marked as skipped", nil)
	case errors.Is(err, errorvalues.ErrHabitArchived):
		logger.Error(action + " error: archived habit")
		httputil.WriteErrorResponse(w, http.StatusConflict, "habit is archived", nil)
	case errors.Is(err, errorvalues.ErrWrongTracking):
		logger.Error(action + " error: tracking mode mismatch")
		httputil.WriteErrorResponse(w, http.StatusUnprocessableEntity, "operation doesn't match habit tracking type", nil)
	case errors.Is(err, errorvalues.ErrNothingToRemove):
		logger.Error(action + " error: nothing to remove")
		httputil.WriteErrorResponse(w, http.StatusConflict, "no completion to remove for this day", nil)
	case errors.Is(err, errorvalues.ErrRecordNotFound):
		logger.Error(action + " error: no skip record")
		httputil.WriteErrorResponse(w, http.StatusNotFound, "day is not skipped", nil)
	case errors.Is(err, errorvalues.ErrRuleNotFound):
		logger.Error(action + " error: no effective rule")
		httputil.WriteErrorResponse(w, http.StatusConflict, "habit has no schedule for this day", nil)
	default:
		s.writeHabitError(w, logger, err, action)
	}
}
