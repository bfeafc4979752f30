// Package main provides the bizpulse binary: the HTTP service and one-shot
// processing commands.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/spf13/cobra"

	"bizpulse/internal/app"
	"bizpulse/internal/config"
	apierrors "bizpulse/internal/errors"
	"bizpulse/internal/exporter"
	"bizpulse/internal/importer"
	"bizpulse/internal/industry/healthcare"
	"bizpulse/internal/infrastructure"
	"bizpulse/internal/operations"
	"bizpulse/pkg/contracts"
	"bizpulse/pkg/contracts/domain"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(apierrors.ExitCode(err))
	}
}

func rootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:           "bizpulse",
		Short:         "Business analytics batch processing",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file path (YAML)")

	cmd.AddCommand(
		serveCmd(&configPath),
		processCmd(&configPath),
		redactCmd(),
		versionCmd(),
	)
	return cmd
}

func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.LoadFile(path)
	if err != nil {
		return nil, apierrors.NewConfigError("failed to load configuration", err)
	}
	return cfg, nil
}

func serveCmd(configPath *string) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, job queue and websocket hub",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}

			logger, err := infrastructure.InitializeLogger(cfg.Logging)
			if err != nil {
				return apierrors.NewConfigError("failed to initialize logger", err)
			}
			defer infrastructure.CloseLogFile()

			application, err := app.NewApplication(cfg, logger)
			if err != nil {
				return err
			}
			return application.Run(cmd.Context())
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 0, "Listen port (overrides configuration)")
	return cmd
}

type processOptions struct {
	industry  string
	records   int
	chunkSize int
	workers   int
	seed      uint64
	orders    int
	input     string
	exportDir string
	logLevel  string
}

func processCmd(configPath *string) *cobra.Command {
	var opts processOptions

	cmd := &cobra.Command{
		Use:   "process",
		Short: "Run one processing pass and print the JSON result",
		Long: `Process runs a single industry handler over synthetic records or an
imported CSV/XLSX file and writes the run result to stdout.

Imports are supported for banking transactions and e-commerce products.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			logger := infrastructure.NewLoggerWithWriter(cmd.ErrOrStderr(), opts.logLevel)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runProcess(ctx, cfg.Processing, opts, logger, cmd.OutOrStdout())
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.industry, "industry", "i", "", "Industry handler (banking, ecommerce, healthcare)")
	flags.IntVarP(&opts.records, "records", "n", 0, "Synthetic record count (0 uses the configured default)")
	flags.IntVar(&opts.chunkSize, "chunk-size", 0, "Records per chunk (0 uses the industry default)")
	flags.IntVar(&opts.workers, "workers", 0, "Concurrent chunk workers")
	flags.Uint64Var(&opts.seed, "seed", 0, "Synthetic data seed (0 picks a random seed)")
	flags.IntVar(&opts.orders, "orders", 0, "Order history to stream for ecommerce runs")
	flags.StringVar(&opts.input, "input", "", "CSV or XLSX file to process instead of synthetic data")
	flags.StringVar(&opts.exportDir, "export-dir", "", "Write processed records as CSV files into this directory")
	flags.StringVar(&opts.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	_ = cmd.MarkFlagRequired("industry")

	return cmd
}

func runProcess(ctx context.Context, cfg config.ProcessingConfig, opts processOptions, logger *slog.Logger, out io.Writer) error {
	ind := domain.Industry(opts.industry)
	if !ind.Valid() {
		return apierrors.NewAppValidationError(fmt.Sprintf("unsupported industry %q", opts.industry)).
			WithContext("supported", domain.Industries())
	}
	if opts.records < 0 || opts.chunkSize < 0 || opts.workers < 0 || opts.orders < 0 {
		return apierrors.NewAppValidationError("counts must not be negative")
	}

	req := operations.RunRequest{
		Industry:    ind,
		RecordCount: opts.records,
		ChunkSize:   opts.chunkSize,
		Workers:     opts.workers,
		Seed:        opts.seed,
		OrderCount:  opts.orders,
	}
	if opts.input != "" {
		if err := loadInput(&req, opts.input); err != nil {
			return err
		}
	}

	orchOpts := []operations.OrchestratorOption{operations.WithLogger(logger)}
	var exp *exporter.RecordExporter
	if opts.exportDir != "" {
		exp = exporter.NewRecordExporter(opts.exportDir, logger)
		orchOpts = append(orchOpts,
			operations.WithTransactionSink(exp.TransactionSink()),
			operations.WithProductSink(exp.ProductSink()),
			operations.WithOrderSink(exp.OrderSink()),
			operations.WithMedicalRecordSink(exp.MedicalRecordSink()),
		)
	}

	orchestrator := operations.NewOrchestrator(cfg, orchOpts...)
	result := orchestrator.Run(ctx, req)

	if exp != nil {
		if err := exp.Close(); err != nil {
			return apierrors.NewAppError(apierrors.ErrTypeStorage, "failed to write export files", err).
				WithContext("dir", opts.exportDir)
		}
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return apierrors.NewAppError(apierrors.ErrTypeStorage, "failed to write result", err)
	}

	if !result.Succeeded() {
		return apierrors.NewRunError(result.RunID, result.Errors)
	}
	return nil
}

func loadInput(req *operations.RunRequest, path string) error {
	if _, err := os.Stat(path); err != nil {
		return apierrors.NewAppError(apierrors.ErrTypeNotFound, "input file not found", err).
			WithContext("path", path)
	}

	var err error
	switch req.Industry {
	case domain.IndustryBanking:
		req.Transactions, err = importer.Transactions(path)
	case domain.IndustryEcommerce:
		req.Products, err = importer.Products(path)
	default:
		return apierrors.NewAppValidationError(fmt.Sprintf("--input is not supported for %s", req.Industry))
	}
	if err != nil {
		return apierrors.NewImportError(path, err)
	}
	return nil
}

func redactCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "redact",
		Short: "Redact personal data read from stdin",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return apierrors.NewAppError(apierrors.ErrTypeStorage, "failed to read input", err)
			}
			if _, err := io.WriteString(cmd.OutOrStdout(), healthcare.RedactSensitiveInformation(string(text))); err != nil {
				return apierrors.NewAppError(apierrors.ErrTypeStorage, "failed to write output", err)
			}
			return nil
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			info := contracts.GetVersionInfo()
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s, %s/%s)\n", contracts.GetVersionString(), info.GoVersion, info.OS, info.Architecture)
		},
	}
}
