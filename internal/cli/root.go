package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/crosspack/crosspack/internal/observability"
	"github.com/crosspack/crosspack/internal/observability/logging"
	otelobs "github.com/crosspack/crosspack/internal/observability/otel"
	"github.com/crosspack/crosspack/internal/observability/receipt"
	"github.com/crosspack/crosspack/internal/version"
)

var (
	logFormatFlag   string
	logLevelFlag    string
	logOutputFlag   string
	receiptPathFlag string
	receiptModeFlag string

	otelEnabledFlag     bool
	otelEndpointFlag    string
	otelProtocolFlag    string
	otelInsecureFlag    bool
	otelServiceNameFlag string
	otelSampleRatioFlag float64
)

var rootCmd = &cobra.Command{
	Use:   "crosspack",
	Short: "Native cross-platform package manager",
	Long: `crosspack: installs independently-built artifacts into a user-scoped
prefix, backed by trust-pinned registry metadata and transaction-safe
install/upgrade/uninstall.`,
	Version: version.BuildVersion(),
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		ctx := observability.WithOpID(context.Background())

		logger, err := logging.NewLogger(logging.Config{
			Format: logFormatFlag,
			Level:  logLevelFlag,
			Output: logOutputFlag,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		ctx = logging.WithLogger(ctx, logger)

		if receiptPathFlag != "" {
			mode := receiptModeFlag
			if mode == "" {
				mode = "overwrite"
			}
			rw, err := receipt.NewWriter(receiptPathFlag, mode)
			if err != nil {
				return fmt.Errorf("failed to initialize receipt writer: %w", err)
			}
			ctx = receipt.WithWriter(ctx, rw)
		}

		if otelEnabledFlag {
			cfg := otelobs.Config{
				Enabled:     true,
				Endpoint:    otelEndpointFlag,
				Protocol:    otelProtocolFlag,
				Insecure:    otelInsecureFlag,
				ServiceName: otelServiceNameFlag,
				SampleRatio: otelSampleRatioFlag,
			}
			h, err := otelobs.Init(ctx, cfg)
			if err != nil {
				logger.Warn("otel", "failed to initialize tracing", "error", err.Error())
			} else {
				ctx = otelobs.WithHandle(ctx, h)
			}
		}

		cmd.SetContext(ctx)
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			return nil
		}

		var errs []error

		if h := otelobs.From(ctx); h != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			if err := h.Shutdown(shutdownCtx); err != nil {
				if lg := logging.From(ctx); lg != nil {
					lg.Warn("otel", "shutdown failed", "error", err.Error())
				}
			}
			cancel()
		}

		if rw := receipt.From(ctx); rw != nil {
			errs = append(errs, rw.Close())
		}
		if lg := logging.From(ctx); lg != nil {
			errs = append(errs, lg.Close())
		}

		return errors.Join(errs...)
	},
}

// Execute runs the root command; the sole entry point cmd/crosspack calls.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&prefixFlag, "prefix", "",
		"Install prefix (default: ~/.crosspack)")
	rootCmd.PersistentFlags().StringVar(&registryRootFlag, "registry-root", "",
		"Bypass configured sources and read manifests directly from this snapshot root")

	rootCmd.PersistentFlags().StringVar(&logFormatFlag, "log-format", "pretty",
		"Log format: pretty (default, no structured logs) or jsonl")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "info",
		"Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logOutputFlag, "log-output", "stderr",
		"Log output: stderr (default) or file path")

	rootCmd.PersistentFlags().StringVar(&receiptPathFlag, "receipt", "",
		"Path to write an audit receipt artifact (disabled if empty)")
	rootCmd.PersistentFlags().StringVar(&receiptModeFlag, "receipt-mode", "overwrite",
		"Receipt mode: overwrite (default) or append")

	rootCmd.PersistentFlags().BoolVar(&otelEnabledFlag, "otel", false,
		"Enable OpenTelemetry tracing (disabled by default)")
	rootCmd.PersistentFlags().StringVar(&otelEndpointFlag, "otel-endpoint", "",
		"OTel exporter endpoint (default: OTEL_EXPORTER_OTLP_ENDPOINT or http://localhost:4318)")
	rootCmd.PersistentFlags().StringVar(&otelProtocolFlag, "otel-protocol", "otlphttp",
		"OTel protocol: otlphttp (default) or otlpgrpc")
	rootCmd.PersistentFlags().BoolVar(&otelInsecureFlag, "otel-insecure", false,
		"Allow insecure OTel connections (no TLS)")
	rootCmd.PersistentFlags().StringVar(&otelServiceNameFlag, "otel-service-name", "crosspack",
		"OTel service name for traces")
	rootCmd.PersistentFlags().Float64Var(&otelSampleRatioFlag, "otel-sample-ratio", 1.0,
		"OTel sampling ratio (0.0-1.0)")

	rootCmd.AddCommand(GetInstallCmd())
	rootCmd.AddCommand(GetUpgradeCmd())
	rootCmd.AddCommand(GetUninstallCmd())
	rootCmd.AddCommand(GetSearchCmd())
	rootCmd.AddCommand(GetInfoCmd())
	rootCmd.AddCommand(GetPinCmd())
	rootCmd.AddCommand(GetListCmd())
	rootCmd.AddCommand(GetRegistryCmd())
	rootCmd.AddCommand(GetUpdateCmd())
	rootCmd.AddCommand(GetRollbackCmd())
	rootCmd.AddCommand(GetRepairCmd())
	rootCmd.AddCommand(GetDoctorCmd())
	rootCmd.AddCommand(GetCompletionsCmd())
	rootCmd.AddCommand(GetInitShellCmd())
	rootCmd.AddCommand(GetSelfUpdateCmd())
}
