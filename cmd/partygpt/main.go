package main

import (
	"os"
	"path/filepath"

	clay "github.com/go-go-golems/clay/pkg"
	"github.com/go-go-golems/glazed/pkg/cli"
	"github.com/go-go-golems/glazed/pkg/cmds/logging"
	"github.com/go-go-golems/glazed/pkg/help"
	help_cmd "github.com/go-go-golems/glazed/pkg/help/cmd"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/go-go-golems/partygpt/cmd/partygpt/cmds"
	"github.com/go-go-golems/partygpt/cmd/partygpt/cmds/records"
)

var rootCmd = &cobra.Command{
	Use:   "partygpt",
	Short: "Chat with the PartyGPT guest, by keyboard or by voice",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := logging.InitLoggerFromCobra(cmd); err != nil {
			return err
		}
		if cmd.Name() == cmds.ChatCommandName {
			return redirectChatLogs(cmd)
		}
		return nil
	},
}

// redirectChatLogs keeps log lines off the terminal while the full-screen UI
// owns it, unless an explicit log file was configured.
func redirectChatLogs(cmd *cobra.Command) error {
	if !isatty.IsTerminal(os.Stdout.Fd()) {
		return nil
	}
	if f := cmd.Flags().Lookup("log-file"); f != nil && f.Value.String() != "" {
		return nil
	}
	path := filepath.Join(os.TempDir(), "partygpt-chat.log")
	out, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return errors.Wrap(err, "open chat log file")
	}
	log.Logger = zerolog.New(out).With().Timestamp().Logger()
	return nil
}

func main() {
	if err := clay.InitGlazed("partygpt", rootCmd); err != nil {
		cobra.CheckErr(err)
	}

	helpSystem := help.NewHelpSystem()
	help_cmd.SetupCobraRootCommand(helpSystem, rootCmd)

	chatCmd, err := cmds.NewChatCommand()
	cobra.CheckErr(err)
	command, err := cli.BuildCobraCommand(chatCmd)
	cobra.CheckErr(err)
	rootCmd.AddCommand(command)

	serveCmd, err := cmds.NewServeCommand()
	cobra.CheckErr(err)
	command, err = cli.BuildCobraCommand(serveCmd)
	cobra.CheckErr(err)
	rootCmd.AddCommand(command)

	detectCmd, err := cmds.NewDetectLanguageCommand()
	cobra.CheckErr(err)
	command, err = cli.BuildCobraCommand(detectCmd)
	cobra.CheckErr(err)
	rootCmd.AddCommand(command)

	records.AddToRootCommand(rootCmd)

	cobra.CheckErr(rootCmd.Execute())
}
