package main

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/svemuri1602/air-quality-dashboard/internal/app"
	"github.com/svemuri1602/air-quality-dashboard/internal/config"
	"github.com/svemuri1602/air-quality-dashboard/internal/logging"
)

type configError struct{ err error }

func (e *configError) Error() string { return "config: " + e.err.Error() }
func (e *configError) Unwrap() error { return e.err }

// cli carries the configuration loaded once in the root PersistentPreRunE.
type cli struct {
	cfg config.Config
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:           appName,
		Short:         "Indoor and outdoor air quality dashboard",
		Long:          "Serves a dashboard over two air quality CSV exports: filters by date, hour and cooking periods, charts, summary statistics and correlations.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.serve(cmd)
		},
	}
	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the HTTP dashboard until interrupted",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.serve(cmd)
			},
		},
		&cobra.Command{
			Use:   "migrate",
			Short: "Apply pending database migrations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return app.Migrate(cmd.Context(), c.cfg)
			},
		},
		&cobra.Command{
			Use:   "fetch",
			Short: "Download both datasets if missing or stale and store them",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				infos, err := app.Fetch(cmd.Context(), c.cfg)
				if err != nil {
					return err
				}
				printDatasets(cmd.OutOrStdout(), infos)
				return nil
			},
		},
		newDescribeCmd(c),
		newPublishCmd(c),
	)
	return root
}

func (c *cli) setup() error {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return &configError{err: err}
	}
	c.cfg = cfg

	logger := logging.New(cfg, version, appName)
	slog.SetDefault(logger)
	return nil
}

func (c *cli) serve(cmd *cobra.Command) error {
	slog.Info("starting",
		"app", appName,
		"version", version,
		"env", c.cfg.AppEnv,
		"log_level", c.cfg.Level().String(),
	)
	err := app.Run(cmd.Context(), c.cfg)
	slog.Info("shutting down")
	return err
}

func newDescribeCmd(c *cli) *cobra.Command {
	opts := app.DescribeOptions{}
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "describe",
		Short: "Print summary statistics and correlations for a filtered dataset",
		Example: `  aqdash describe --dataset indoor
  aqdash describe --dataset indoor --from 2024-03-01 --to 2024-03-07 --hour-from 17 --hour-to 21 --cooking`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := app.Describe(cmd.Context(), c.cfg, opts)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}
			printResult(cmd.OutOrStdout(), res)
			return nil
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&opts.Dataset, "dataset", "indoor", "dataset name (indoor or outdoor)")
	flags.StringVar(&opts.From, "from", "", "first date, YYYY-MM-DD (default: first date in the data)")
	flags.StringVar(&opts.To, "to", "", "last date, YYYY-MM-DD (default: last date in the data)")
	flags.IntVar(&opts.HourFrom, "hour-from", -1, "first hour of day, 0-23 (default 0)")
	flags.IntVar(&opts.HourTo, "hour-to", -1, "last hour of day, 0-23 (default 23)")
	flags.StringVar(&opts.Parameter, "parameter", "", "parameter column (default: first numeric column)")
	flags.BoolVar(&opts.CookingOnly, "cooking", false, "only rows flagged as cooking time")
	flags.BoolVar(&asJSON, "json", false, "print the result as JSON")
	return cmd
}

func newPublishCmd(c *cli) *cobra.Command {
	opts := app.PublishOptions{}
	cmd := &cobra.Command{
		Use:     "publish FILE",
		Short:   "Replay a CSV export as live readings over MQTT",
		Example: `  aqdash publish --dataset indoor --interval 1s data/indoor.csv`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.File = args[0]
			n, err := app.Publish(cmd.Context(), c.cfg, opts)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "published %d readings to %s\n", n, c.cfg.MQTTTopic)
			return err
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&opts.Dataset, "dataset", "indoor", "dataset the readings belong to")
	flags.DurationVar(&opts.Interval, "interval", 0, "delay between readings")
	return cmd
}
