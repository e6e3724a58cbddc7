package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"SentiPulse/internal/di"
	models "SentiPulse/internal/domain/models"
	applogger "SentiPulse/pkg/logger"
	xutil "SentiPulse/pkg/util"

	"github.com/spf13/cobra"
)

var (
	aggTicker string
	aggStart  string
	aggEnd    string
)

var aggregateCmd = &cobra.Command{
	Use:   "aggregate",
	Short: "Aggregate one window of an instrument and store the recommendation",
	Long: `Aggregate folds the messages of --ticker in [--start, --end) into an aggregate,
derives the recommendation and publishes the resulting events. Without --start and
--end the last closed window is used.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		runner, err := di.InitializeRunner(cfg)
		if err != nil {
			return fmt.Errorf("initialization failed: %w", err)
		}
		defer runner.Close()

		w := runner.Pipeline.LastClosedWindow(time.Now())
		if aggStart != "" || aggEnd != "" {
			start, ok := xutil.ParseTime(aggStart)
			if !ok {
				return fmt.Errorf("invalid --start %q", aggStart)
			}
			end, ok := xutil.ParseTime(aggEnd)
			if !ok {
				return fmt.Errorf("invalid --end %q", aggEnd)
			}
			w = models.Window{Start: start, End: end}
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
		defer cancel()

		if err := runner.Events.Start(ctx); err != nil {
			return err
		}
		agg, op, runErr := runner.Pipeline.RunByTicker(ctx, aggTicker, w, nil)
		// flush queued events before exit
		if err := runner.Events.Stop(ctx); err != nil {
			runner.Logger.Warn("event flush incomplete", applogger.Error(err))
		}
		if runErr != nil {
			return runErr
		}

		out, err := json.MarshalIndent(models.AggregateResponse{Aggregated: agg, Opinion: op}, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	},
}

func init() {
	aggregateCmd.Flags().StringVar(&aggTicker, "ticker", "", "instrument ticker")
	aggregateCmd.Flags().StringVar(&aggStart, "start", "", "window start (RFC3339 or unix seconds)")
	aggregateCmd.Flags().StringVar(&aggEnd, "end", "", "window end, exclusive")
	_ = aggregateCmd.MarkFlagRequired("ticker")
}
