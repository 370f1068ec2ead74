package cli

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"flyto/internal/display"
	"flyto/internal/logger"
	"flyto/internal/sequencer"
)

func newFlyCmd() *cobra.Command {
	var f linkFlags
	cmd := &cobra.Command{
		Use:   "fly",
		Short: "Fly one mission to the target and exit",
		Long: `Runs pre-flight checks, arms, takes off and sends the vehicle to the target.
The command returns once the go-to is issued. It exits non-zero if the mission
is rejected, times out, is interrupted or loses the link.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := f.config(cmd)
			if err != nil {
				return err
			}
			name, target, err := f.target(cfg)
			if err != nil {
				return err
			}
			if err := target.ValidateTarget(); err != nil {
				return fmt.Errorf("invalid target: %w", err)
			}

			sess, err := openSession(cmd.Context(), cfg, f.useSim)
			if err != nil {
				return err
			}
			defer sess.Close()

			out := cmd.OutOrStdout()
			id := uuid.New().String()[:8]
			label := target.String()
			if name != "" {
				label = name + " " + label
			}
			fmt.Fprintf(out, "Mission %s to %s\n", id, label)

			seq := sequencer.New(sess.link, cfg.Sequencer(),
				sequencer.WithMissionID(id),
				sequencer.WithRecorder(sess.collector),
				sequencer.WithTransitionHook(func(t sequencer.Transition) {
					fmt.Fprintln(out, display.FormatTransition(id, t))
				}),
			)
			rep, runErr := seq.Run(sess.ctx, target)

			fmt.Fprintln(out, display.FormatPreflight(rep.Preflight))
			fmt.Fprint(out, display.FormatMissionMetrics(rep.Metrics))
			if runErr != nil {
				logger.Log.Error("mission failed", slog.String("mission_id", id), slog.String("error", runErr.Error()))
				return runErr
			}
			fmt.Fprintf(out, "Go-to issued; vehicle is cruising to %s\n", target)
			return nil
		},
	}
	f.register(cmd)
	f.registerMission(cmd)
	return cmd
}

func newCheckCmd() *cobra.Command {
	var f linkFlags
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Run pre-flight checks without commanding the vehicle",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := f.config(cmd)
			if err != nil {
				return err
			}
			_, target, err := f.target(cfg)
			if err != nil {
				return err
			}

			sess, err := openSession(cmd.Context(), cfg, f.useSim)
			if err != nil {
				return err
			}
			defer sess.Close()
			defer func() {
				if cfg.ReleaseLink {
					_ = sess.link.Close()
				}
			}()

			res, err := sequencer.New(sess.link, cfg.Sequencer()).Preflight(sess.ctx, target)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), display.FormatPreflight(res))
			if !res.OK() {
				return &sequencer.RejectedError{Result: res}
			}
			return nil
		},
	}
	f.register(cmd)
	f.registerTarget(cmd)
	return cmd
}
