// Command optictl talks to the optimization service directly: submit a
// comparison run and watch it to completion, or check on a job by id. It
// drives the same client and poll loop as the Optigate server.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sahilnarang/optigate/internal/optimizer"
	"github.com/sahilnarang/optigate/internal/run"
	"github.com/sahilnarang/optigate/pkg/models"
)

const version = "1.0.0"

var (
	flagServer  string // value of --server flag
	flagTimeout time.Duration
	flagVerbose bool

	serverURL string // resolved from flag or OPTIMIZER_BASE_URL

	// run flags
	flagTickers           []string
	flagStartDate         string
	flagEndDate           string
	flagTrainingWindow    int
	flagRebalancingWindow int
	flagCostBps           float64
	flagMinWeight         float64
	flagMaxWeight         float64
	flagBenchmark         string
	flagBenchmarkTicker   string
	flagVolScaling        bool
	flagTargetVol         float64
	flagInterval          time.Duration
	flagMaxAttempts       int
	flagOutput            string
)

func main() {
	rootCmd.PersistentFlags().StringVar(&flagServer, "server", "", "Optimizer base URL - default is OPTIMIZER_BASE_URL")
	rootCmd.PersistentFlags().DurationVar(&flagTimeout, "timeout", 30*time.Second, "per-request timeout")
	rootCmd.PersistentFlags().BoolVar(&flagVerbose, "verbose", false, "verbose logging")

	runCmd.Flags().StringSliceVar(&flagTickers, "tickers", nil, "tickers to compare (at least 2)")
	runCmd.Flags().StringVar(&flagStartDate, "start-date", "", "price history start (YYYY-MM-DD)")
	runCmd.Flags().StringVar(&flagEndDate, "end-date", "", "price history end (YYYY-MM-DD)")
	runCmd.Flags().IntVar(&flagTrainingWindow, "training-window", 0, "training window in trading days (default 252)")
	runCmd.Flags().IntVar(&flagRebalancingWindow, "rebalancing-window", 0, "rebalancing window in trading days (default 21)")
	runCmd.Flags().Float64Var(&flagCostBps, "transaction-cost-bps", 0, "transaction cost in basis points (default 10)")
	runCmd.Flags().Float64Var(&flagMinWeight, "min-weight", 0, "minimum asset weight")
	runCmd.Flags().Float64Var(&flagMaxWeight, "max-weight", 0, "maximum asset weight (default 1.0)")
	runCmd.Flags().StringVar(&flagBenchmark, "benchmark", "", "benchmark type: equal_weight or custom")
	runCmd.Flags().StringVar(&flagBenchmarkTicker, "benchmark-ticker", "", "benchmark ticker when --benchmark=custom")
	runCmd.Flags().BoolVar(&flagVolScaling, "volatility-scaling", false, "scale portfolios to a volatility target")
	runCmd.Flags().Float64Var(&flagTargetVol, "target-volatility", 0, "annualized volatility target (default 0.12)")
	runCmd.Flags().DurationVar(&flagInterval, "interval", run.DefaultInterval, "delay between status polls")
	runCmd.Flags().IntVar(&flagMaxAttempts, "max-attempts", run.DefaultMaxAttempts, "poll budget before giving up")
	runCmd.Flags().StringVar(&flagOutput, "output", "", "write the result JSON to a file instead of stdout")

	rootCmd.SilenceErrors = true
	rootCmd.PersistentPreRunE = initOptictl

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)

	if err := rootCmd.Execute(); err != nil {
		slog.Error("optictl failed", "err", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:          "optictl",
	Short:        "CLI for the portfolio optimization service",
	SilenceUsage: true,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "run submits a comparison and watches it until it finishes",
	RunE:  doRun,
}

var statusCmd = &cobra.Command{
	Use:   "status <job-id>",
	Short: "status fetches the current snapshot of a job",
	Args:  cobra.ExactArgs(1),
	RunE:  doStatus,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "version prints the optictl version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("optictl: %s\n", version)
		if serverURL != "" {
			fmt.Printf("server:  %s\n", serverURL)
		}
	},
}

func doRun(cmd *cobra.Command, args []string) error {
	req := models.CompareRequest{
		Tickers:                 flagTickers,
		StartDate:               flagStartDate,
		EndDate:                 flagEndDate,
		TrainingWindow:          flagTrainingWindow,
		RebalancingWindow:       flagRebalancingWindow,
		TransactionCostBps:      flagCostBps,
		MinWeight:               flagMinWeight,
		MaxWeight:               flagMaxWeight,
		BenchmarkType:           flagBenchmark,
		BenchmarkTicker:         flagBenchmarkTicker,
		EnableVolatilityScaling: flagVolScaling,
		TargetVolatility:        flagTargetVol,
	}
	req.ApplyDefaults()
	if err := req.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	done := make(chan run.State, 1)
	client := optimizer.NewHTTPClient(serverURL, flagTimeout)
	runner := run.NewRunner(client,
		run.WithInterval(flagInterval),
		run.WithMaxAttempts(flagMaxAttempts),
		run.WithOnUpdate(func(st run.State) {
			if st.Running {
				fmt.Fprintf(os.Stderr, "%5.1f%%  %s\n", st.Progress, st.Message)
				return
			}
			select {
			case done <- st:
			default:
			}
		}),
	)

	jobID, err := runner.Start(ctx, req)
	if err != nil {
		return fmt.Errorf("starting optimization: %w", err)
	}
	slog.Info("job submitted", "job_id", jobID)

	select {
	case <-ctx.Done():
		runner.Cancel()
		return fmt.Errorf("interrupted; job %s keeps running on the server", jobID)
	case st := <-done:
		if st.Err != "" {
			return errors.New(st.Err)
		}
		return writeResult(st.Result)
	}
}

func doStatus(cmd *cobra.Command, args []string) error {
	client := optimizer.NewHTTPClient(serverURL, flagTimeout)
	snap, err := client.Status(cmd.Context(), args[0])
	if err != nil {
		if errors.Is(err, optimizer.ErrJobNotFound) {
			return fmt.Errorf("job %s not found; finished jobs are evicted after a while", args[0])
		}
		return err
	}
	return printJSON(os.Stdout, snap)
}

func writeResult(result json.RawMessage) error {
	if len(result) == 0 {
		return nil
	}
	out := os.Stdout
	if flagOutput != "" {
		f, err := os.Create(flagOutput)
		if err != nil {
			return fmt.Errorf("creating %s: %w", flagOutput, err)
		}
		defer func() {
			_ = f.Close()
		}()
		out = f
	}
	return printJSON(out, result)
}

func printJSON(out *os.File, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func initOptictl(cmd *cobra.Command, _ []string) error {
	serverURL = flagServer
	if serverURL == "" {
		serverURL = os.Getenv("OPTIMIZER_BASE_URL")
	}
	if serverURL == "" && cmd != versionCmd {
		return fmt.Errorf("no server configured: pass --server or set OPTIMIZER_BASE_URL")
	}

	level := slog.LevelInfo
	if flagVerbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})))
	return nil
}
