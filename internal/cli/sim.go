package cli

import (
	"log/slog"

	"github.com/spf13/cobra"

	"flyto/internal/logger"
	"flyto/internal/sim"
	"flyto/internal/sim/api"
	"flyto/internal/vehicle"
)

func newSimCmd() *cobra.Command {
	cfg := sim.DefaultConfig()
	var addr string
	var noBattery bool

	cmd := &cobra.Command{
		Use:   "sim",
		Short: "Serve a simulated vehicle over the JSON/HTTP link",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.NoBatteryTelemetry = noBattery
			eng := sim.New(cfg)

			sess := newSession(cmd.Context())
			sess.g.Go(func() error { return eng.Run(sess.ctx) })
			sess.serve(addr, api.NewServer(eng).Handler(), "simulator")

			logger.Log.Info("simulator started",
				slog.String("addr", addr),
				slog.String("home", eng.Home().String()),
				slog.Float64("battery", cfg.BatteryPercent),
				slog.Float64("initial_alt", cfg.InitialAlt))
			cmd.Printf("Simulator listening on %s (home %s). Ctrl+C to stop.\n", addr, eng.Home())

			<-sess.ctx.Done()
			return sess.Close()
		},
	}
	fs := cmd.Flags()
	fs.StringVar(&addr, "addr", vehicle.DefaultAddress, "listen address")
	fs.Float64Var(&cfg.HomeLat, "home-lat", cfg.HomeLat, "home latitude")
	fs.Float64Var(&cfg.HomeLon, "home-lon", cfg.HomeLon, "home longitude")
	fs.Float64Var(&cfg.BatteryPercent, "battery", cfg.BatteryPercent, "initial battery percentage")
	fs.Float64Var(&cfg.InitialAlt, "initial-alt", 0, "start airborne at this altitude (armed, GUIDED is still required)")
	fs.DurationVar(&cfg.ArmableAfter, "armable-after", cfg.ArmableAfter, "time before pre-arm checks pass")
	fs.DurationVar(&cfg.ArmDelay, "arm-delay", cfg.ArmDelay, "time from arm request to armed")
	fs.Float64Var(&cfg.ClimbRate, "climb-rate", cfg.ClimbRate, "climb rate in m/s")
	fs.Float64Var(&cfg.CruiseSpeed, "cruise-speed", cfg.CruiseSpeed, "horizontal speed in m/s")
	fs.BoolVar(&noBattery, "no-battery", false, "do not report battery telemetry")
	return cmd
}
