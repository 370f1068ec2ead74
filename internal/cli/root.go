package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"flyto/internal/config"
	"flyto/internal/geo"
	"flyto/internal/logger"
	"flyto/internal/observability"
	"flyto/internal/sim"
	"flyto/internal/targets"
	"flyto/internal/vehicle"
)

var rootCmd = &cobra.Command{
	Use:   "flyto",
	Short: "Fly a multicopter to a single waypoint",
	Long: `flyto validates a vehicle for flight, arms it, takes off to the target
altitude and sends it to a geographic target, over a JSON/HTTP vehicle link.`,
	SilenceUsage: true,
}

// Execute runs the root command. Errors have already been reported to the
// user when it returns.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.AddCommand(newFlyCmd(), newCheckCmd(), newConsoleCmd(), newSimCmd(), newDistanceCmd())
}

// linkFlags are shared by every command that talks to a vehicle.
type linkFlags struct {
	link        string
	useSim      bool
	metricsAddr string

	lat, lon, alt float64
	targetsFile   string
	targetName    string

	poll           time.Duration
	armTimeout     time.Duration
	takeoffTimeout time.Duration
	releaseLink    bool
}

func (f *linkFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&f.link, "link", "", "vehicle link address (host:port or URL)")
	fs.BoolVar(&f.useSim, "sim", false, "fly an in-process simulator instead of dialing --link")
	fs.StringVar(&f.targetsFile, "targets", "", "JSON file of named targets")
}

func (f *linkFlags) registerTarget(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.Float64Var(&f.lat, "lat", 0, "target latitude")
	fs.Float64Var(&f.lon, "lon", 0, "target longitude")
	fs.Float64Var(&f.alt, "alt", 0, "target altitude above home in meters")
	fs.StringVar(&f.targetName, "target", "", "name of a target in --targets")
}

// registerMission adds the target flags plus the knobs that only matter once
// the vehicle is commanded.
func (f *linkFlags) registerMission(cmd *cobra.Command) {
	f.registerTarget(cmd)
	fs := cmd.Flags()
	fs.DurationVar(&f.poll, "poll", 0, "state poll interval")
	fs.DurationVar(&f.armTimeout, "arm-timeout", 0, "give up arming after this long (0 waits forever)")
	fs.DurationVar(&f.takeoffTimeout, "takeoff-timeout", 0, "give up the climb after this long (0 waits forever)")
	fs.BoolVar(&f.releaseLink, "release-link", false, "close the vehicle link when the mission ends")
	fs.StringVar(&f.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
}

// config overlays the flags the user actually set on the environment config.
func (f *linkFlags) config(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return cfg, err
	}
	fs := cmd.Flags()
	if fs.Changed("link") {
		cfg.LinkAddr = f.link
	}
	if fs.Changed("lat") {
		cfg.Target.Lat = f.lat
	}
	if fs.Changed("lon") {
		cfg.Target.Lon = f.lon
	}
	if fs.Changed("alt") {
		cfg.Target.Alt = f.alt
	}
	if fs.Changed("poll") {
		cfg.PollInterval = f.poll
	}
	if fs.Changed("arm-timeout") {
		cfg.ArmTimeout = f.armTimeout
	}
	if fs.Changed("takeoff-timeout") {
		cfg.TakeoffTimeout = f.takeoffTimeout
	}
	if fs.Changed("release-link") {
		cfg.ReleaseLink = f.releaseLink
	}
	if fs.Changed("metrics-addr") {
		cfg.MetricsAddr = f.metricsAddr
	}
	return cfg, cfg.Validate()
}

func (f *linkFlags) loadTargets() ([]targets.NamedTarget, error) {
	if f.targetsFile == "" {
		return nil, nil
	}
	return targets.LoadTargetsFromFile(f.targetsFile)
}

// target picks --target from the catalog when given, else the configured point.
func (f *linkFlags) target(cfg config.Config) (string, geo.GeoPoint, error) {
	if f.targetName == "" {
		return "", cfg.Target, nil
	}
	list, err := f.loadTargets()
	if err != nil {
		return "", geo.GeoPoint{}, err
	}
	if list == nil {
		return "", geo.GeoPoint{}, errors.New("--target requires --targets")
	}
	t, err := targets.SelectTargetByName(list, f.targetName)
	if err != nil {
		return "", geo.GeoPoint{}, err
	}
	return t.Name, t.Point, nil
}

// session holds the background services a command runs against: the vehicle
// link, an optional in-process simulator and an optional metrics server.
type session struct {
	ctx       context.Context
	cancel    context.CancelFunc
	g         *errgroup.Group
	link      vehicle.Link
	collector *observability.MissionCollector
	tracing   func(context.Context) error
}

func newSession(parent context.Context) *session {
	ctx, cancel := context.WithCancel(parent)
	g, gctx := errgroup.WithContext(ctx)
	return &session{ctx: gctx, cancel: cancel, g: g}
}

func openSession(parent context.Context, cfg config.Config, useSim bool) (*session, error) {
	s := newSession(parent)
	gctx, g := s.ctx, s.g

	shutdown, err := observability.InitTracing(gctx, observability.TracingConfig{
		Enabled:     cfg.TracingEnabled,
		Exporter:    cfg.TracingExporter,
		Endpoint:    cfg.OTLPEndpoint,
		SampleRatio: cfg.TracingSampleRatio,
		Writer:      logger.Writer(),
	}, logger.Log)
	if err != nil {
		s.cancel()
		return nil, err
	}
	s.tracing = shutdown

	s.collector, err = observability.NewMissionCollector(nil)
	if err != nil {
		s.Close()
		return nil, err
	}
	if cfg.MetricsAddr != "" {
		s.serve(cfg.MetricsAddr, s.collector.Handler(), "metrics")
	}

	if useSim {
		simCfg := sim.DefaultConfig()
		// The in-process vehicle passes pre-arm checks as soon as it starts.
		simCfg.ArmableAfter = 0
		eng := sim.New(simCfg)
		g.Go(func() error { return eng.Run(gctx) })
		s.link = vehicle.NewSimLink(eng)
		logger.Log.Info("using in-process simulator", slog.String("home", eng.Home().String()))
		return s, nil
	}

	link, err := vehicle.Connect(gctx, cfg.LinkAddr, vehicle.WithConnectTimeout(cfg.ConnectTimeout))
	if err != nil {
		s.Close()
		return nil, err
	}
	s.link = link
	return s, nil
}

// serve runs an HTTP server in the session group until the session closes.
func (s *session) serve(addr string, h http.Handler, name string) {
	srv := &http.Server{Addr: addr, Handler: h, ReadHeaderTimeout: 5 * time.Second}
	s.g.Go(func() error {
		logger.Log.Info("http server listening", slog.String("server", name), slog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("%s server: %w", name, err)
		}
		return nil
	})
	s.g.Go(func() error {
		<-s.ctx.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	})
}

// Close stops background services and waits for them. The link is left to
// the caller, which decides whether to release it.
func (s *session) Close() error {
	s.cancel()
	err := s.g.Wait()
	observability.ShutdownWithTimeout(context.Background(), s.tracing, logger.Log)
	return err
}
