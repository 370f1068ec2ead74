package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"flyto/internal/logger"
	"flyto/internal/sim"
)

type Server struct {
	eng *sim.Engine
	mux *http.ServeMux
	log *slog.Logger
}

func NewServer(eng *sim.Engine) *Server {
	s := &Server{eng: eng, mux: http.NewServeMux(), log: logger.Log}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler { return s.mux }

func (s *Server) routes() {
	s.mux.HandleFunc("/health", s.health)
	s.mux.HandleFunc("/state", s.state)

	s.mux.HandleFunc("/command/mode", s.modeCmd)
	s.mux.HandleFunc("/command/arm", s.armCmd)
	s.mux.HandleFunc("/command/takeoff", s.takeoffCmd)
	s.mux.HandleFunc("/command/goto", s.gotoCmd)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Server) state(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "GET only")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	st, err := s.eng.State(ctx)
	if err != nil {
		writeError(w, http.StatusRequestTimeout, err.Error())
		return
	}
	if strings.Contains(r.Header.Get("Accept"), sim.MsgpackContentType) {
		b, err := msgpack.Marshal(st)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		w.Header().Set("Content-Type", sim.MsgpackContentType)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(b)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) modeCmd(w http.ResponseWriter, r *http.Request) {
	var body sim.SetModeCommand
	if !decodePost(w, r, &body) {
		return
	}
	s.submit(w, r, body)
}

func (s *Server) armCmd(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST only")
		return
	}
	s.submit(w, r, sim.ArmCommand{})
}

func (s *Server) takeoffCmd(w http.ResponseWriter, r *http.Request) {
	var body sim.TakeoffCommand
	if !decodePost(w, r, &body) {
		return
	}
	s.submit(w, r, body)
}

func (s *Server) gotoCmd(w http.ResponseWriter, r *http.Request) {
	var body sim.GoToCommand
	if !decodePost(w, r, &body) {
		return
	}
	s.submit(w, r, body)
}

func (s *Server) submit(w http.ResponseWriter, r *http.Request, cmd sim.Command) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.eng.Do(ctx, cmd); err != nil {
		status := http.StatusConflict
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			status = http.StatusRequestTimeout
		}
		s.log.Warn("command rejected", slog.String("type", string(cmd.Type())), slog.String("error", err.Error()))
		writeError(w, status, err.Error())
		return
	}
	s.log.Info("command accepted", slog.String("type", string(cmd.Type())), slog.Any("command", cmd))
	writeJSON(w, http.StatusOK, map[string]any{"status": "accepted", "type": cmd.Type()})
}

func decodePost(w http.ResponseWriter, r *http.Request, v any) bool {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST only")
		return false
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return false
	}
	return true
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
