// Package sequencer drives one vehicle from the ground to a single target:
// pre-flight validation, arming, takeoff and the final go-to command.
package sequencer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"flyto/internal/geo"
	"flyto/internal/logger"
	"flyto/internal/metrics"
	"flyto/internal/vehicle"
)

const (
	DefaultPollInterval   = time.Second
	DefaultArmTimeout     = 30 * time.Second
	DefaultTakeoffTimeout = 60 * time.Second
)

type Config struct {
	PollInterval time.Duration
	// ArmTimeout and TakeoffTimeout bound the two waits. Zero waits until
	// the vehicle responds or the context is cancelled.
	ArmTimeout     time.Duration
	TakeoffTimeout time.Duration
	// ReleaseLink closes the link when Run returns. The vehicle is left
	// connected by default so the operator can keep controlling it.
	ReleaseLink bool
	Policy      Policy
}

func DefaultConfig() Config {
	return Config{
		PollInterval:   DefaultPollInterval,
		ArmTimeout:     DefaultArmTimeout,
		TakeoffTimeout: DefaultTakeoffTimeout,
		Policy:         DefaultPolicy(),
	}
}

// Recorder receives mission measurements. observability.MissionCollector
// implements it.
type Recorder interface {
	ObservePhase(phase string, d time.Duration, polls int, err error)
	ObserveRejection(reason string)
	ObserveOutcome(outcome string)
}

type nopRecorder struct{}

func (nopRecorder) ObservePhase(string, time.Duration, int, error) {}
func (nopRecorder) ObserveRejection(string)                        {}
func (nopRecorder) ObserveOutcome(string)                          {}

type Option func(*Sequencer)

func WithLogger(l *slog.Logger) Option {
	return func(s *Sequencer) { s.log = l }
}

func WithRecorder(r Recorder) Option {
	return func(s *Sequencer) {
		if r != nil {
			s.rec = r
		}
	}
}

// WithTransitionHook registers fn to be called on every state change, on the
// goroutine running the mission.
func WithTransitionHook(fn func(Transition)) Option {
	return func(s *Sequencer) { s.onTransition = fn }
}

func WithMissionID(id string) Option {
	return func(s *Sequencer) { s.missionID = id }
}

// Sequencer runs a single mission against a link it owns for the duration of
// Run. It is not safe for concurrent use.
type Sequencer struct {
	link vehicle.Link
	cfg  Config

	log          *slog.Logger
	rec          Recorder
	tracer       trace.Tracer
	onTransition func(Transition)
	missionID    string

	state   State
	history []Transition
}

func New(link vehicle.Link, cfg Config, opts ...Option) *Sequencer {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.Policy == (Policy{}) {
		cfg.Policy = DefaultPolicy()
	}
	s := &Sequencer{
		link:   link,
		cfg:    cfg,
		log:    logger.Log,
		rec:    nopRecorder{},
		tracer: otel.Tracer("flyto/sequencer"),
		state:  Idle,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.missionID != "" {
		s.log = s.log.With(slog.String("mission_id", s.missionID))
	}
	return s
}

func (s *Sequencer) State() State { return s.state }

// Report describes how a mission ended.
type Report struct {
	MissionID      string                  `json:"mission_id,omitempty"`
	Target         geo.GeoPoint            `json:"target"`
	State          State                   `json:"state"`
	Preflight      PreflightResult         `json:"preflight"`
	SkippedTakeoff bool                    `json:"skipped_takeoff"`
	Transitions    []Transition            `json:"transitions"`
	Metrics        *metrics.MissionMetrics `json:"metrics"`
}

// Preflight runs the readiness checks without commanding the vehicle. Checks
// run in order and stop at the first rejection. A non-nil error means the
// link failed.
func (s *Sequencer) Preflight(ctx context.Context, target geo.GeoPoint) (PreflightResult, error) {
	var res PreflightResult
	p := s.cfg.Policy

	armable, err := s.link.IsArmable(ctx)
	if err != nil {
		return res, err
	}
	if !armable {
		res.Reason = ReasonNotArmable
		return res, nil
	}

	level, ok, err := s.link.BatteryLevel(ctx)
	if err != nil {
		return res, err
	}
	// Non-finite readings count as low and stay out of the result.
	if ok && (math.IsNaN(level) || math.IsInf(level, 0)) {
		res.Reason = ReasonBatteryLow
		return res, nil
	}
	res.Battery, res.BatteryKnown = level, ok
	if ok && level < p.MinBatteryPercent {
		res.Reason = ReasonBatteryLow
		return res, nil
	}

	pos, err := s.link.CurrentPosition(ctx)
	if err != nil {
		return res, err
	}
	if pos.Validate() != nil {
		res.Reason = ReasonPositionUnknown
		return res, nil
	}
	res.Position = pos
	res.Distance = geo.DistanceMeters(pos, target)
	res.DistanceKnown = true
	if math.IsNaN(res.Distance) || res.Distance > p.MaxDistanceMeters {
		res.Reason = ReasonTargetTooFar
	}
	return res, nil
}

// Run flies the mission to target. It returns once the go-to command has been
// issued, not when the vehicle arrives. The report is always non-nil.
func (s *Sequencer) Run(ctx context.Context, target geo.GeoPoint) (*Report, error) {
	rep := &Report{
		MissionID: s.missionID,
		Target:    target,
		Metrics:   &metrics.MissionMetrics{MissionID: s.missionID, Start: time.Now()},
	}
	if s.state != Idle {
		rep.State = s.state
		return rep, ErrAlreadyStarted
	}

	ctx, span := s.tracer.Start(ctx, "mission", trace.WithAttributes(
		attribute.String("mission.id", s.missionID),
		attribute.Float64("target.lat", target.Lat),
		attribute.Float64("target.lon", target.Lon),
		attribute.Float64("target.alt", target.Alt),
	))

	err := s.run(ctx, target, rep)

	outcome := outcomeOf(s.state)
	if s.state == Aborted && !rep.Preflight.OK() {
		outcome = "rejected"
	}
	rep.State = s.state
	rep.Transitions = append([]Transition(nil), s.history...)
	rep.Metrics.End = time.Now()
	rep.Metrics.Succeeded = err == nil
	rep.Metrics.Outcome = outcome
	rep.Metrics.Finalize()
	s.rec.ObserveOutcome(outcome)

	span.SetAttributes(attribute.String("mission.outcome", outcome))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()

	if s.cfg.ReleaseLink {
		if cerr := s.link.Close(); cerr != nil {
			s.log.Warn("closing vehicle link", slog.String("error", cerr.Error()))
		} else {
			s.log.Info("vehicle link released")
		}
	}
	return rep, err
}

func (s *Sequencer) run(ctx context.Context, target geo.GeoPoint, rep *Report) error {
	s.transition(Validating, "mission start")
	s.log.Info("running pre-flight checks", slog.String("target", target.String()))

	err := s.phase(ctx, rep, Validating, func(ctx context.Context) (int, error) {
		res, err := s.Preflight(ctx, target)
		rep.Preflight = res
		return 0, err
	})
	if err != nil {
		return s.fail(ctx, Validating, err)
	}
	pf := rep.Preflight
	if !pf.OK() {
		s.rec.ObserveRejection(pf.Reason.String())
		s.log.Warn("pre-flight check rejected",
			slog.String("reason", pf.Reason.String()),
			slog.Float64("battery", pf.Battery),
			slog.Float64("distance_m", pf.Distance))
		s.transition(Aborted, pf.String())
		return &RejectedError{Result: pf}
	}
	s.log.Info("pre-flight check passed",
		slog.String("position", pf.Position.String()),
		slog.Float64("distance_m", pf.Distance))

	// Vehicles at or above the airborne altitude are already flying; they
	// go straight to the target without arming or taking off.
	pos, err := s.link.CurrentPosition(ctx)
	if err != nil {
		return s.fail(ctx, Validating, err)
	}
	if math.IsNaN(pos.Alt) || math.IsInf(pos.Alt, 0) {
		return s.fail(ctx, Validating, fmt.Errorf("vehicle altitude %v is not a finite number", pos.Alt))
	}
	if pos.Alt < s.cfg.Policy.AirborneAltitudeMeters {
		s.transition(Arming, fmt.Sprintf("on the ground at %.1fm", pos.Alt))
		if err := s.phase(ctx, rep, Arming, s.arm); err != nil {
			return s.fail(ctx, Arming, err)
		}

		s.transition(TakingOff, "armed")
		if err := s.phase(ctx, rep, TakingOff, func(ctx context.Context) (int, error) {
			return s.takeoff(ctx, target.Alt)
		}); err != nil {
			return s.fail(ctx, TakingOff, err)
		}
		s.transition(Cruising, "takeoff altitude reached")
	} else {
		rep.SkippedTakeoff = true
		s.log.Info("vehicle already airborne; skipping arm and takeoff", slog.Float64("alt", pos.Alt))
		s.transition(Cruising, fmt.Sprintf("already airborne at %.1fm", pos.Alt))
	}

	if err := s.phase(ctx, rep, Cruising, func(ctx context.Context) (int, error) {
		return 0, s.link.GoTo(ctx, target)
	}); err != nil {
		return s.fail(ctx, Cruising, err)
	}
	s.log.Info("go-to issued", slog.String("target", target.String()))
	s.transition(Done, "go-to issued")
	return nil
}

func (s *Sequencer) arm(ctx context.Context) (int, error) {
	if err := s.link.SetFlightMode(ctx, vehicle.ModeGuided); err != nil {
		return 0, err
	}
	if err := s.link.Arm(ctx); err != nil {
		return 0, err
	}
	return s.waitFor(ctx, Arming, s.cfg.ArmTimeout, func(ctx context.Context, poll int) (bool, error) {
		armed, err := s.link.IsArmed(ctx)
		if err == nil && !armed {
			s.log.Info("waiting for arming", slog.Int("poll", poll))
		}
		return armed, err
	})
}

func (s *Sequencer) takeoff(ctx context.Context, alt float64) (int, error) {
	if err := s.link.Takeoff(ctx, alt); err != nil {
		return 0, err
	}
	threshold := alt * s.cfg.Policy.TakeoffCompletionRatio
	return s.waitFor(ctx, TakingOff, s.cfg.TakeoffTimeout, func(ctx context.Context, poll int) (bool, error) {
		pos, err := s.link.CurrentPosition(ctx)
		if err != nil {
			return false, err
		}
		if pos.Alt >= threshold {
			return true, nil
		}
		s.log.Info("ascending", slog.Float64("alt", pos.Alt), slog.Float64("threshold", threshold), slog.Int("poll", poll))
		return false, nil
	})
}

// waitFor evaluates cond once per poll interval until it holds, ctx is done,
// or timeout elapses. It returns the number of evaluations.
func (s *Sequencer) waitFor(ctx context.Context, phase State, timeout time.Duration, cond func(ctx context.Context, poll int) (bool, error)) (int, error) {
	var deadline <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		deadline = t.C
	}
	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	for polls := 1; ; polls++ {
		ok, err := cond(ctx, polls)
		if err != nil {
			return polls, err
		}
		if ok {
			return polls, nil
		}
		select {
		case <-ctx.Done():
			return polls, ctx.Err()
		case <-deadline:
			return polls, &TimeoutError{Phase: phase, After: timeout, Polls: polls}
		case <-ticker.C:
		}
	}
}

// phase runs fn inside a span and records its timing.
func (s *Sequencer) phase(ctx context.Context, rep *Report, st State, fn func(context.Context) (int, error)) error {
	ctx, span := s.tracer.Start(ctx, st.String())
	pm := metrics.PhaseMetrics{Phase: st.String(), Start: time.Now()}

	polls, err := fn(ctx)

	pm.End = time.Now()
	pm.Polls = polls
	pm.Success = err == nil
	if err != nil {
		pm.Err = err.Error()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	pm.Finalize()
	rep.Metrics.Phases = append(rep.Metrics.Phases, pm)
	s.rec.ObservePhase(pm.Phase, pm.End.Sub(pm.Start), polls, err)

	span.SetAttributes(attribute.Int("polls", polls))
	span.End()
	return err
}

// fail moves to the terminal state matching err and returns err annotated
// with the phase it interrupted.
func (s *Sequencer) fail(ctx context.Context, phase State, err error) error {
	var to State
	switch {
	case errors.Is(err, ErrTimedOut):
		to = TimedOut
	case ctx.Err() != nil:
		to = Cancelled
	case phase == Validating:
		to = Aborted
	default:
		to = Failed
	}
	s.log.Error("mission stopped", slog.String("phase", phase.String()), slog.String("state", to.String()), slog.String("error", err.Error()))
	s.transition(to, err.Error())
	if errors.Is(err, ErrTimedOut) {
		return err
	}
	return fmt.Errorf("%s: %w", phase, err)
}

func (s *Sequencer) transition(to State, reason string) {
	t := Transition{From: s.state, To: to, At: time.Now(), Reason: reason}
	s.state = to
	s.history = append(s.history, t)
	s.log.Debug("state transition", slog.String("from", t.From.String()), slog.String("to", to.String()), slog.String("reason", reason))
	if s.onTransition != nil {
		s.onTransition(t)
	}
}

func outcomeOf(st State) string {
	switch st {
	case Done:
		return "done"
	case Aborted:
		return "aborted"
	case TimedOut:
		return "timed_out"
	case Cancelled:
		return "cancelled"
	case Failed:
		return "failed"
	}
	return st.String()
}
