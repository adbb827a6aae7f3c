package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"tickq/internal/job"
	"tickq/internal/logging"
	"tickq/internal/sched"
)

var rootCmd = &cobra.Command{
	Use:   "ticksched",
	Short: "Run a blink-and-join demo on the cooperative tick scheduler",
	Long: `ticksched drives the cooperative scheduler from a real-time tick clock.
It starts one blinker task per configured LED, joins them with an all/any join
(optionally bounded by a timeout) and prints every scheduler event.`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

func main() {
	rootCmd.Flags().String("config", "config.yml", "config file (.yml, .yaml or .toml)")
	rootCmd.Flags().Int("ticks", 0, "stop after this many ticks (0 = when the join completes)")
	rootCmd.Flags().String("csv", "", "append the event trace to this CSV file")
	rootCmd.Flags().String("log-level", "", "debug|info|warn|error")
	rootCmd.Flags().String("log-format", "", "text|json")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "ticksched:", err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, _ []string) error {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := sched.Load(path)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("ticks") {
		cfg.RunTicks, _ = cmd.Flags().GetInt("ticks")
	}
	if v, _ := cmd.Flags().GetString("csv"); v != "" {
		cfg.CSVPath = v
	}
	if v, _ := cmd.Flags().GetString("log-level"); v != "" {
		cfg.LogLevel = v
	}
	if v, _ := cmd.Flags().GetString("log-format"); v != "" {
		cfg.LogFormat = v
	}

	tracer := sched.NewTracer(os.Stdout)
	defer tracer.Close()
	if cfg.CSVPath != "" {
		if err := tracer.EnableCSVLogging(cfg.CSVPath); err != nil {
			return fmt.Errorf("csv trace: %w", err)
		}
	}
	logger := logging.FromConfig(cfg, tracer.RunID())
	logger.Info("loaded config", "path", path, "tick_ms", cfg.TickMS, "blinkers", len(cfg.Blinkers),
		"policy", cfg.Join.Policy, "timeout_ticks", cfg.Join.TimeoutTicks)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	events := make(chan sched.StatusEvent, 256)
	clock := sched.NewTickClock(1)
	s := sched.New(clock,
		sched.WithObserver(func(ev sched.StatusEvent) { events <- ev }),
		sched.WithLogger(logger),
	)

	d := &demo{cfg: cfg, logger: logger, cancel: cancel}
	if err := d.build(s); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(events)
		clock.Start(time.Duration(cfg.TickMS) * time.Millisecond)
		defer clock.Stop()

		err := s.Run(gctx, clock.Ch)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		// NOTE: drain until the stepping goroutine closes the channel
		for ev := range events {
			tracer.Handle(ev)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("stopped", "tick", clock.Now(), "pending", s.Pending())
	return nil
}

// demo owns the storage of every task it schedules.
type demo struct {
	cfg    sched.Config
	logger *slog.Logger
	cancel context.CancelFunc

	blinkers []sched.Task
	join     sched.Join
	report   sched.Task
	linger   sched.Task
	stopper  sched.Task
}

func (d *demo) build(s *sched.Scheduler) error {
	d.blinkers = make([]sched.Task, len(d.cfg.Blinkers))
	subs := make([]*sched.Task, len(d.cfg.Blinkers))
	for i, bc := range d.cfg.Blinkers {
		name := bc.Name
		b := &job.Blinker{
			Period:  sched.Duration(bc.PeriodTicks),
			Toggles: bc.Toggles,
			Out: func(on bool) {
				d.logger.Debug("led", "name", name, "on", on)
			},
		}
		if err := d.blinkers[i].Init(b, &bc); err != nil {
			return err
		}
		d.blinkers[i].SetName(name)
		subs[i] = &d.blinkers[i]
	}

	if err := d.report.Init(sched.Func(d.reportJoin), &d.join); err != nil {
		return err
	}
	d.report.SetName("report")

	sleep := job.SleepWork(50)
	if err := d.linger.Init(sched.Func(func(s *sched.Scheduler, t *sched.Task) sched.Outcome {
		out := sleep.Run(s, t)
		if out == sched.Done && d.cfg.RunTicks == 0 {
			d.cancel()
		}
		return out
	}), nil); err != nil {
		return err
	}
	d.linger.SetName("linger")

	if err := d.join.Init(d.cfg.JoinPolicy(), &d.report, subs...); err != nil {
		return err
	}
	d.join.SetName("blinkers")
	if d.cfg.Join.TimeoutTicks > 0 {
		if err := d.join.ArmTimeout(s, sched.Duration(d.cfg.Join.TimeoutTicks)); err != nil {
			return err
		}
	} else if err := d.join.Arm(s); err != nil {
		return err
	}

	if d.cfg.RunTicks > 0 {
		if err := d.stopper.Init(sched.Func(func(*sched.Scheduler, *sched.Task) sched.Outcome {
			d.logger.Info("run ticks elapsed", "ticks", d.cfg.RunTicks)
			d.cancel()
			return sched.Done
		}), nil); err != nil {
			return err
		}
		d.stopper.SetName("stopper")
		if err := s.ScheduleAfter(&d.stopper, sched.Duration(d.cfg.RunTicks)); err != nil {
			return err
		}
	}
	return nil
}

func (d *demo) reportJoin(s *sched.Scheduler, t *sched.Task) sched.Outcome {
	j := t.Context().(*sched.Join)
	d.logger.Info("join complete",
		"join", j.String(),
		"policy", j.Policy(),
		"timed_out", j.TimedOut(),
		"completed", j.Completed(),
	)
	// losers of an any-join, and stragglers after a timeout, keep blinking unless cancelled
	if j.Policy() == sched.Any || j.TimedOut() {
		for i := range d.blinkers {
			_ = s.Cancel(&d.blinkers[i])
		}
	}
	if err := s.ScheduleNow(&d.linger); err != nil {
		d.logger.Error("schedule linger", "err", err)
	}
	return sched.Done
}
