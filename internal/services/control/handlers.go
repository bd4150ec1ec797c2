package control

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"sleeptimer/internal/calendar"
	"sleeptimer/internal/schedule"
	"sleeptimer/internal/services/sleeptimer"
	"sleeptimer/pkg/logx"
)

func (s *Service) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("GET /api/schedule", s.handleSchedule)
	mux.HandleFunc("PUT /api/schedule/{day}", s.handleSetDay)
	mux.HandleFunc("GET /api/schedule.ics", s.handleICS)
	mux.HandleFunc("GET /api/upcoming", s.handleUpcoming)
	mux.HandleFunc("GET /api/events", s.handleEvents)
	mux.HandleFunc("POST /api/arm", s.handleArm)
	mux.HandleFunc("POST /api/cancel", s.handleCancel)
	mux.HandleFunc("POST /api/snooze", s.handleSnooze)
}

func (s *Service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("OK"))
}

func (s *Service) handleStatus(w http.ResponseWriter, _ *http.Request) {
	resp := StatusResponse{Status: s.timer.Status()}
	if s.sup != nil {
		snap := s.sup.Snapshot()
		resp.Runtime = &snap
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Service) handleSchedule(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.timer.Schedule())
}

func (s *Service) handleSetDay(w http.ResponseWriter, r *http.Request) {
	index, err := schedule.ParseWeekday(r.PathValue("day"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var req DayRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid body: %w", err))
		return
	}
	day, err := req.apply(s.timer.Schedule()[index])
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.timer.SetDay(r.Context(), index, day); err != nil {
		status := http.StatusInternalServerError
		if sleeptimer.IsValidation(err) {
			status = http.StatusBadRequest
		}
		writeError(w, status, err)
		return
	}
	s.log.Info("schedule edited via API", logx.String("day", schedule.DayNames[index]), logx.String("value", day.String()))
	writeJSON(w, http.StatusOK, s.timer.Schedule())
}

// apply overlays the request on the current value of the day.
func (req DayRequest) apply(prev schedule.Day) (schedule.Day, error) {
	if req.Time != "" {
		return schedule.ParseDay(req.Time, prev)
	}
	d := prev
	if req.Enabled != nil {
		d.Enabled = *req.Enabled
	}
	if req.Hour != nil {
		d.Hour = *req.Hour
	}
	if req.Minute != nil {
		d.Minute = *req.Minute
	}
	return d, d.Validate()
}

func (s *Service) handleICS(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	err := calendar.Encode(&buf, s.timer.Schedule(), calendar.ExportOptions{Now: s.timer.Status().Now})
	switch {
	case errors.Is(err, calendar.ErrEmpty):
		writeError(w, http.StatusNotFound, err)
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="sleeptimer.ics"`)
	_, _ = w.Write(buf.Bytes())
}

func (s *Service) handleUpcoming(w http.ResponseWriter, r *http.Request) {
	n, err := queryInt(r, "n", 7)
	if err != nil || n < 1 || n > maxUpcoming {
		writeError(w, http.StatusBadRequest, fmt.Errorf("n must be within 1..%d", maxUpcoming))
		return
	}
	up := s.timer.Upcoming(n)
	if up == nil {
		up = []time.Time{}
	}
	writeJSON(w, http.StatusOK, up)
}

func (s *Service) handleEvents(w http.ResponseWriter, r *http.Request) {
	if s.events == nil {
		writeError(w, http.StatusNotFound, errors.New("event journal disabled"))
		return
	}
	n, err := queryInt(r, "n", 50)
	if err != nil || n < 1 {
		writeError(w, http.StatusBadRequest, errors.New("n must be positive"))
		return
	}
	evs, err := s.events.RecentEvents(r.Context(), n)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, evs)
}

func (s *Service) handleArm(w http.ResponseWriter, _ *http.Request) {
	s.timer.Arm()
	writeJSON(w, http.StatusOK, s.timer.Status())
}

func (s *Service) handleCancel(w http.ResponseWriter, _ *http.Request) {
	s.timer.Cancel()
	writeJSON(w, http.StatusOK, s.timer.Status())
}

// handleSnooze accepts an optional ?for=<duration>; the configured snooze
// applies otherwise. Snoozing while idle is 409.
func (s *Service) handleSnooze(w http.ResponseWriter, r *http.Request) {
	var ext time.Duration
	if raw := r.URL.Query().Get("for"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid snooze duration %q", raw))
			return
		}
		ext = d
	}
	ok := s.timer.Snooze(ext)
	status := http.StatusOK
	if !ok {
		status = http.StatusConflict
	}
	writeJSON(w, status, SnoozeResponse{Snoozed: ok, Status: s.timer.Status()})
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}
