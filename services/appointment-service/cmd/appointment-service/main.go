package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/md-rashed-zaman/visitbook/libs/config"
	"github.com/md-rashed-zaman/visitbook/libs/runtime"
	"github.com/spf13/cobra"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := runtime.SignalContext()
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "appointment-service",
		Short:         "Appointment lifecycle and recurrence engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("database-url", config.String("DATABASE_URL", ""), "postgres URL or sqlite:<path>")
	root.PersistentFlags().String("log-level", config.String("LOG_LEVEL", "info"), "debug, info, warn or error")
	root.AddCommand(newServeCmd(), newMigrateCmd(), newSweepCmd(), newSeedCmd())
	return root
}

func serviceName() string {
	return config.String("SERVICE_NAME", "appointment-service")
}

func loggerFor(cmd *cobra.Command) *slog.Logger {
	level, _ := cmd.Flags().GetString("log-level")
	return runtime.NewLogger(serviceName(), level)
}
