package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"gameserverctl/internal/config"
	"gameserverctl/internal/lifecycle"
	aws "gameserverctl/internal/providers/aws"
	"gameserverctl/internal/report"
	"gameserverctl/pkg/logging"
)

// envPrefix namespaces the environment variables that override flags
const envPrefix = "GAMESERVERCTL"

const authGuidance = `AWS rejected the configured credentials. Either:
  - set aws.profile in the config file to a profile from ~/.aws/credentials, or
  - set aws.access_key_id and aws.secret_access_key in the config file, or
  - export AWS_PROFILE / AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY.`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rootCmd := newRootCmd(viper.New(), report.DefaultPrinter{})
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}

// newRootCmd builds the CLI. Flags can be overridden by GAMESERVERCTL_* variables.
func newRootCmd(v *viper.Viper, printer report.IPrinter) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "gameserverctl {start|stop|status}",
		Short:         "Start, stop and check the EC2 instance hosting the game server",
		ValidArgs:     lifecycle.Operations(),
		Args:          cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := logging.NewDefaultLogger()
			logger.SetLevel(logging.StringToLogLevel(v.GetString("log-level")))
			return run(cmd.Context(), v, args[0], printer, logger)
		},
	}

	flags := rootCmd.Flags()
	flags.String("config", "config.yaml", "Path to the configuration file (.yaml or .hcl)")
	flags.String("log-level", "info", "Log level: debug, info, warn or error")
	flags.String("output", "table", "Status output format: table or json")

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	for _, name := range []string{"config", "log-level", "output"} {
		if err := v.BindPFlag(name, flags.Lookup(name)); err != nil {
			fmt.Fprintf(os.Stderr, "Error binding %s flag: %v\n", name, err)
		}
	}

	return rootCmd
}

func run(ctx context.Context, v *viper.Viper, operation string, printer report.IPrinter, logger logging.Logger) error {
	op, err := lifecycle.ParseOperation(operation)
	if err != nil {
		return err
	}

	format, err := report.ParseOutputFormat(v.GetString("output"))
	if err != nil {
		return err
	}

	cfg, err := config.NewLoader(logger).Load(v.GetString("config"))
	if err != nil {
		return err
	}

	service, err := lifecycle.NewDefaultService(ctx, cfg, logger)
	if err != nil {
		return withGuidance(err, logger)
	}

	result, err := service.Run(ctx, op)
	if err != nil {
		return withGuidance(err, logger)
	}

	if result.Report != nil {
		return printer.PrintReport(result.Report, format)
	}
	return nil
}

// withGuidance logs how to fix credentials when AWS rejected them
func withGuidance(err error, logger logging.Logger) error {
	if aws.IsErrorCategory(err, aws.ErrProviderAuth) {
		logger.Error("%s", authGuidance)
	}
	if errors.Is(err, context.Canceled) {
		logger.Warn("Interrupted")
	}
	return err
}
