package main

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/term"
)

const (
	appName = "taskbridge"
	version = "v1.0.0"
)

type globalFlags struct {
	configPath string
	logLevel   string
}

func (g *globalFlags) register(fs *pflag.FlagSet) {
	fs.StringVarP(&g.configPath, "config", "c", os.Getenv("TASKBRIDGE_CONFIG"), "Path to YAML config file")
	fs.StringVar(&g.logLevel, "log-level", "", "Log level override (debug|info|warn|error)")
}

func setupLogging() {
	zerolog.TimeFieldFormat = time.RFC3339
	if term.IsTerminal(int(os.Stderr.Fd())) {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	} else {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Str("app", appName).Logger()
	}
}

func applyLogLevel(level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		log.Warn().Str("level", level).Msg("Unknown log level, using info")
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}

func main() {
	setupLogging()

	flags := &globalFlags{}
	rootCmd := &cobra.Command{
		Use:     appName,
		Short:   "Keeps issue tracker, budget and task manager in sync",
		Version: version,
		Long: `taskbridge mirrors issues assigned to you into your task manager and turns
money-owed ledger transactions into tasks.

It serves the issue and ledger webhooks and polls ledgers on a schedule.`,
		SilenceUsage: true,
	}
	flags.register(rootCmd.PersistentFlags())

	rootCmd.AddCommand(newServeCmd(flags))
	rootCmd.AddCommand(newPollCmd(flags))
	rootCmd.AddCommand(newSignCmd())

	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}
