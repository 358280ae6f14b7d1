package main

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/citecheck/citecheck/internal/cli"
	"github.com/citecheck/citecheck/pkg/log"
)

func main() {
	logLvl := zap.NewAtomicLevelAt(zapcore.WarnLevel)
	if lvl, err := zap.ParseAtomicLevel(os.Getenv("CITECHECK_LOG_LEVEL")); err == nil {
		logLvl = lvl
	}
	logger := log.InitLog(logLvl)
	defer func() { _ = logger.Sync() }()
	undo := zap.ReplaceGlobals(logger)
	defer undo()

	command := NewCitecheckCommand()
	if err := command.Execute(); err != nil {
		os.Exit(1)
	}
}

func NewCitecheckCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "citecheck [flags] [options]",
		Short: "citecheck validates citations against the Citecheck service.",
		Run: func(cmd *cobra.Command, args []string) {
			_ = cmd.Help()
			os.Exit(1)
		},
	}
	cmd.AddCommand(cli.NewCmdCheck())
	cmd.AddCommand(cli.NewCmdRecover())
	cmd.AddCommand(cli.NewCmdCredits())
	cmd.AddCommand(cli.NewCmdLogin())
	cmd.AddCommand(cli.NewCmdVersion())

	return cmd
}
