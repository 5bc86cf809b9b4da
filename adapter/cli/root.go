// Package cli implements the taskmesh command line client.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/taskmesh/taskmesh/pkg/observability"
)

var (
	verbose bool
	logger  *slog.Logger
)

type commandContext struct {
	correlationID uuid.UUID
	startedAt     time.Time
}

type commandContextKey struct{}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "taskmesh",
	Short: "Taskmesh - local-first replicated task store",
	Long: `Taskmesh keeps your tasks in a local-first store that replicates
across peers when a document store is reachable and falls back to a
durable local database when it is not. Either way the same commands
work against the same task list.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger = commandLogger(logger, verbose)
		ctx := cmd.Context()
		info := commandContext{
			correlationID: uuid.New(),
			startedAt:     time.Now(),
		}
		cmd.SetContext(context.WithValue(ctx, commandContextKey{}, info))
		logger.Debug("command start",
			"command", cmd.CommandPath(),
			"correlation_id", info.correlationID.String(),
		)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger = commandLogger(logger, verbose)
		info, ok := cmd.Context().Value(commandContextKey{}).(commandContext)
		if !ok {
			return
		}
		logger.Debug("command end",
			"command", cmd.CommandPath(),
			"correlation_id", info.correlationID.String(),
			"duration_ms", time.Since(info.startedAt).Milliseconds(),
		)
	},
}

// Execute runs the root command with the given context.
func Execute(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// commandLogger returns the logger commands should use: the configured one,
// raised to debug level when the verbose flag is set.
func commandLogger(base *slog.Logger, verbose bool) *slog.Logger {
	if verbose {
		return observability.NewLogger(observability.LogConfig{
			Level:       observability.LogLevelDebug,
			Format:      observability.LogFormatText,
			Output:      os.Stderr,
			ServiceName: "taskmesh",
		})
	}
	if base == nil {
		return slog.Default()
	}
	return base
}

// SetLogger sets the CLI logger.
func SetLogger(l *slog.Logger) {
	logger = l
}
