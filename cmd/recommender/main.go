package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/tailored-agentic-units/recommender"
	"github.com/tailored-agentic-units/recommender/catalog"
)

// Version info set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "none"
)

type rootFlags struct {
	configPath  string
	catalogPath string
	verbose     bool
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:           "recommender",
		Short:         "Multi-agent book recommender",
		Long:          "Runs the suggestion, popularity and classification agents over a book catalog and prints results as JSON.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "path to YAML config file")
	cmd.PersistentFlags().StringVar(&flags.catalogPath, "catalog", "", "path to a CSV or JSON book catalog")
	cmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "enable debug logging to stderr")

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newRecommendCmd(flags))
	cmd.AddCommand(newPersonalizedCmd(flags))
	cmd.AddCommand(newSearchCmd(flags))
	cmd.AddCommand(newBatchCmd(flags))
	cmd.AddCommand(newTrendsCmd(flags))
	cmd.AddCommand(newPopularCmd(flags))
	cmd.AddCommand(newClassifyCmd(flags))
	cmd.AddCommand(newEmotionCmd(flags))
	cmd.AddCommand(newStatusCmd(flags))
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "recommender %s (commit: %s)\n", Version, Commit)
		},
	}
}

// open loads the config and catalog named by the root flags and starts a
// System. Logs go to the command's stderr.
func (f *rootFlags) open(cmd *cobra.Command) (*recommender.System, error) {
	cfg, err := recommender.LoadConfig(f.configPath)
	if err != nil {
		return nil, err
	}

	level := slog.LevelWarn
	if f.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	opts := []recommender.Option{recommender.WithLogger(logger)}
	if f.catalogPath != "" {
		records, err := catalog.LoadFile(f.catalogPath)
		if err != nil {
			return nil, err
		}
		logger.Debug("catalog loaded", slog.String("path", f.catalogPath), slog.Int("records", len(records)))
		opts = append(opts, recommender.WithCatalog(records))
	}

	return recommender.New(cfg, opts...)
}

func writeJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return err
}

func query(args []string) string {
	return strings.Join(args, " ")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cmd := newRootCmd()
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
