package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"

	"github.com/rustyeddy/btbroker/internal/logging"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "btbroker",
	Short: "A margin-trading broker simulator for backtests",
	Long: `btbroker replays scripted price ticks and orders against a simulated
margin broker.

It provides tools for:
  - Mark-to-market PnL per symbol with proportional fees
  - Cross and isolated margin with liquidation
  - Take-profit and stop-loss orders
  - Fill and equity journals in SQLite or CSV`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger = logging.New(os.Stderr, logLevel)
	},
}

var (
	logLevel string
	logger   = slog.Default()
)

// Execute adds all child commands to the root command and sets flags appropriately.
// An interrupt cancels the running replay between rows.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
}
