package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"flyto/internal/config"
	"flyto/internal/display"
	"flyto/internal/geo"
	"flyto/internal/listener"
	"flyto/internal/sequencer"
	"flyto/internal/supervisor"
	"flyto/internal/targets"
	"flyto/internal/vehicle"
)

func newConsoleCmd() *cobra.Command {
	var f linkFlags
	cmd := &cobra.Command{
		Use:   "console",
		Short: "Interactive console that queues missions over one vehicle link",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := f.config(cmd)
			if err != nil {
				return err
			}
			catalog, err := f.loadTargets()
			if err != nil {
				return err
			}

			sess, err := openSession(cmd.Context(), cfg, f.useSim)
			if err != nil {
				return err
			}
			defer sess.Close()

			if err := listener.Init(historyPath()); err != nil {
				return fmt.Errorf("init terminal input: %w", err)
			}
			defer listener.Close()

			sup := supervisor.New(sess.link, cfg.Sequencer(),
				supervisor.WithRecorder(sess.collector),
				supervisor.WithTransitionHook(func(id string, t sequencer.Transition) {
					listener.AsyncPrintln(display.FormatTransition(id, t))
				}),
			)
			sess.g.Go(func() error { return sup.Run(sess.ctx) })
			go printResults(sess, sup)

			c := &console{cfg: cfg, catalog: catalog, sup: sup, sess: sess}
			listener.AsyncPrintln(fmt.Sprintf("Connected. Default target %s. Type 'help' for commands.", cfg.Target))
			c.loop()
			fmt.Println("Goodbye!")
			return nil
		},
	}
	f.register(cmd)
	f.registerMission(cmd)
	return cmd
}

func historyPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".flyto_history")
}

func printResults(sess *session, sup *supervisor.Supervisor) {
	for {
		select {
		case <-sess.ctx.Done():
			return
		case res := <-sup.Results():
			listener.AsyncPrintln(display.FormatResult(res))
			if res.Report != nil {
				listener.AsyncPrintln(display.FormatMissionMetrics(res.Report.Metrics))
			}
		}
	}
}

type console struct {
	cfg     config.Config
	catalog []targets.NamedTarget
	sup     *supervisor.Supervisor
	sess    *session
}

func (c *console) loop() {
	for {
		if c.sess.ctx.Err() != nil {
			return
		}
		line, err := listener.GetInput()
		if errors.Is(err, io.EOF) || errors.Is(err, readline.ErrInterrupt) {
			return
		}
		if err != nil || line == "" {
			continue
		}

		command, err := listener.ParseCommand(line)
		if err != nil {
			listener.AsyncPrintln(err.Error())
			continue
		}
		if command.Name == "exit" {
			return
		}
		if err := c.dispatch(command); err != nil {
			listener.AsyncPrintln(fmt.Sprintf("[%s] %v", command.Name, err))
		}
	}
}

func (c *console) dispatch(command listener.Command) error {
	switch command.Name {
	case "help":
		listener.AsyncPrintln(listener.Help)

	case "targets":
		listener.AsyncPrintln(display.FormatTargets(c.catalog))

	case "vehicle":
		snap, err := vehicle.ReadSnapshot(c.sess.ctx, c.sess.link)
		if err != nil {
			return err
		}
		listener.AsyncPrintln(display.FormatSnapshot(snap))

	case "status":
		listener.AsyncPrintln(display.FormatMissions(c.sup.Missions()))

	case "cancel":
		id, err := c.sup.Cancel(strings.Join(command.Args, ""))
		if err != nil {
			return err
		}
		listener.AsyncPrintln(fmt.Sprintf("Cancelling mission %s", id))

	case "check":
		_, target, err := c.resolve(command)
		if err != nil {
			return err
		}
		res, err := sequencer.New(c.sess.link, c.cfg.Sequencer()).Preflight(c.sess.ctx, target)
		if err != nil {
			return err
		}
		listener.AsyncPrintln(display.FormatPreflight(res))

	case "fly":
		name, target, err := c.resolve(command)
		if err != nil {
			return err
		}
		label := target.String()
		if name != "" {
			label = name + " " + label
		}
		if !listener.AskYesNo(fmt.Sprintf("Fly to %s?", label)) {
			listener.AsyncPrintln("Not submitted.")
			return nil
		}
		id, err := c.sup.Submit(name, target)
		if err != nil {
			return err
		}
		listener.AsyncPrintln(fmt.Sprintf("Submitted mission %s", id))
	}
	return nil
}

func (c *console) resolve(command listener.Command) (string, geo.GeoPoint, error) {
	name, point, err := command.TargetArg()
	if err != nil {
		return "", geo.GeoPoint{}, err
	}
	if point != nil {
		return "", *point, nil
	}
	if name == "" {
		return "", c.cfg.Target, nil
	}
	t, err := targets.SelectTargetByName(c.catalog, name)
	if err != nil {
		return "", geo.GeoPoint{}, err
	}
	return t.Name, t.Point, nil
}
