package supervisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	"flyto/internal/geo"
	"flyto/internal/logger"
	"flyto/internal/sequencer"
	"flyto/internal/vehicle"
)

const queueSize = 100

// historySize bounds the missions remembered for status and cancel. It is
// larger than the queue so pending and running missions are never evicted.
const historySize = 4 * queueSize

var ErrQueueFull = errors.New("mission queue is full")

type Option func(*Supervisor)

func WithRecorder(r sequencer.Recorder) Option {
	return func(s *Supervisor) { s.rec = r }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Supervisor) { s.log = l }
}

// WithTransitionHook is called with the mission ID on every state change of
// the running mission.
func WithTransitionHook(fn func(id string, t sequencer.Transition)) Option {
	return func(s *Supervisor) { s.onTransition = fn }
}

// Supervisor flies queued missions one at a time over a single vehicle link.
type Supervisor struct {
	link vehicle.Link
	cfg  sequencer.Config

	rec          sequencer.Recorder
	log          *slog.Logger
	onTransition func(string, sequencer.Transition)

	queue   chan *Mission
	results chan MissionResult

	mu        sync.Mutex
	missions  *lru.Cache[string, *Mission]
	cur       *Mission
	curCancel context.CancelFunc
}

// New returns a supervisor for link. cfg.ReleaseLink is honoured once, when
// Run returns, since every queued mission shares the link.
func New(link vehicle.Link, cfg sequencer.Config, opts ...Option) *Supervisor {
	s := &Supervisor{
		link:    link,
		cfg:     cfg,
		log:     logger.Log,
		queue:   make(chan *Mission, queueSize),
		results: make(chan MissionResult, queueSize),
	}
	s.missions, _ = lru.New[string, *Mission](historySize)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Results delivers one MissionResult per finished mission. Missions cancelled
// while pending are reported when they reach the head of the queue, with a
// nil Report.
func (s *Supervisor) Results() <-chan MissionResult { return s.results }

// Run processes the queue until ctx is done. Cancelling ctx also cancels the
// running mission.
func (s *Supervisor) Run(ctx context.Context) error {
	defer func() {
		if !s.cfg.ReleaseLink {
			return
		}
		if err := s.link.Close(); err != nil {
			s.log.Warn("closing vehicle link", slog.String("error", err.Error()))
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case m := <-s.queue:
			s.mu.Lock()
			skip := m.Status != StatusPending
			if !skip {
				m.Status = StatusRunning
			}
			s.mu.Unlock()
			var res MissionResult
			if skip {
				res = MissionResult{
					MissionID: m.ID,
					Name:      m.Name,
					Target:    m.Target,
					Status:    StatusCancelled,
					Error:     "cancelled before start",
				}
			} else {
				s.log.Info("starting mission", slog.String("mission_id", m.ID), slog.String("target", m.Target.String()))
				res = s.runMission(ctx, m)
			}
			select {
			case s.results <- res:
			case <-ctx.Done():
				return nil
			}
		}
	}
}

// Submit queues a mission to target and returns its ID.
func (s *Supervisor) Submit(name string, target geo.GeoPoint) (string, error) {
	if err := target.ValidateTarget(); err != nil {
		return "", fmt.Errorf("invalid target: %w", err)
	}
	m := &Mission{
		ID:          uuid.New().String()[:8],
		Name:        name,
		Target:      target,
		Status:      StatusPending,
		State:       sequencer.Idle,
		SubmittedAt: time.Now(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	select {
	case s.queue <- m:
	default:
		return "", ErrQueueFull
	}
	s.missions.Add(m.ID, m)
	return m.ID, nil
}

// Cancel stops the mission with the given ID. A pending mission is dropped
// from the queue; a running one has its context cancelled. An empty id
// targets the running mission.
func (s *Supervisor) Cancel(id string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id = strings.TrimSpace(id)
	if id == "" {
		if s.cur == nil {
			return "", fmt.Errorf("no mission is currently running")
		}
		s.curCancel()
		return s.cur.ID, nil
	}

	m, ok := s.lookup(id)
	if !ok {
		return "", fmt.Errorf("unknown mission %s", id)
	}
	switch m.Status {
	case StatusPending:
		m.Status = StatusCancelled
		s.log.Info("pending mission cancelled", slog.String("mission_id", m.ID))
		return m.ID, nil
	case StatusRunning:
		if s.cur == m && s.curCancel != nil {
			s.curCancel()
			return m.ID, nil
		}
	}
	return "", fmt.Errorf("mission %s is already %s", m.ID, strings.ToLower(string(m.Status)))
}

// Missions returns a snapshot of the remembered missions, oldest first.
func (s *Supervisor) Missions() []Mission {
	s.mu.Lock()
	defer s.mu.Unlock()
	ms := s.missions.Values()
	out := make([]Mission, 0, len(ms))
	for _, m := range ms {
		out = append(out, *m)
	}
	return out
}

// Current returns the running mission, if any.
func (s *Supervisor) Current() (Mission, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cur == nil {
		return Mission{}, false
	}
	return *s.cur, true
}

func (s *Supervisor) lookup(id string) (*Mission, bool) {
	if m, ok := s.missions.Peek(id); ok {
		return m, true
	}
	for _, m := range s.missions.Values() {
		if strings.EqualFold(m.ID, id) {
			return m, true
		}
	}
	return nil, false
}

func (s *Supervisor) runMission(ctx context.Context, m *Mission) MissionResult {
	missionCtx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cur = m
	s.curCancel = cancel
	s.mu.Unlock()
	defer func() {
		cancel()
		s.mu.Lock()
		if s.cur == m {
			s.cur = nil
			s.curCancel = nil
		}
		s.mu.Unlock()
	}()

	cfg := s.cfg
	cfg.ReleaseLink = false

	seq := sequencer.New(s.link, cfg,
		sequencer.WithMissionID(m.ID),
		sequencer.WithLogger(s.log),
		sequencer.WithRecorder(s.rec),
		sequencer.WithTransitionHook(func(t sequencer.Transition) {
			s.mu.Lock()
			m.State = t.To
			s.mu.Unlock()
			if s.onTransition != nil {
				s.onTransition(m.ID, t)
			}
		}),
	)

	rep, err := seq.Run(missionCtx, m.Target)
	status := statusOf(rep.Metrics.Outcome)

	s.mu.Lock()
	m.Status = status
	s.mu.Unlock()

	res := MissionResult{
		MissionID: m.ID,
		Name:      m.Name,
		Target:    m.Target,
		Status:    status,
		Report:    rep,
	}
	if err != nil {
		res.Error = err.Error()
		s.log.Warn("mission finished", slog.String("mission_id", m.ID), slog.String("status", string(status)), slog.String("error", err.Error()))
	} else {
		s.log.Info("mission finished", slog.String("mission_id", m.ID), slog.String("status", string(status)))
	}
	return res
}
