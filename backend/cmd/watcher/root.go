package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	envPrefix = "WATCHER"

	apiURLKey    = "api-url"
	wsURLKey     = "ws-url"
	nameKey      = "name"
	logLevelKey  = "log-level"
	stateFileKey = "state-file"
	watchURLKey  = "watch-url"
)

// rootCmd connects to the server and waits for commands on stdin.
var rootCmd = &cobra.Command{
	Use:   "watcher",
	Short: "Headless watch party participant.",
	Long: `Watcher connects to a syncwatch server with a virtual player and follows
the host's playback. Commands are read from stdin, type 'help' to list them.`,
	SilenceUsage: true,
	Args:         cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runSession(cmd.Context(), nil)
	},
}

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a room and become its host.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runSession(cmd.Context(), []string{"create"})
	},
}

var joinCmd = &cobra.Command{
	Use:   "join <room-code>",
	Short: "Join an existing room.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSession(cmd.Context(), []string{"join", args[0]})
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String(apiURLKey, "http://localhost:3000", "syncwatch api url")
	rootCmd.PersistentFlags().String(wsURLKey, "ws://localhost:8888/ws", "syncwatch websocket channel url")
	rootCmd.PersistentFlags().StringP(nameKey, "n", "", "display name")
	rootCmd.PersistentFlags().StringP(logLevelKey, "l", "warn", "log level")
	rootCmd.PersistentFlags().String(stateFileKey, "", "file to keep client identity in (memory only if empty)")
	rootCmd.PersistentFlags().String(watchURLKey, "https://www.youtube.com/watch", "video page url")

	for _, key := range []string{apiURLKey, wsURLKey, nameKey, logLevelKey, stateFileKey, watchURLKey} {
		cobra.CheckErr(viper.BindPFlag(key, rootCmd.PersistentFlags().Lookup(key)))
	}

	rootCmd.AddCommand(createCmd, joinCmd)
}

func initConfig() {
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func newLogger() (zerolog.Logger, error) {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	lvl, err := zerolog.ParseLevel(viper.GetString(logLevelKey))
	if err != nil {
		return logger, fmt.Errorf("failed to parse loglevel: %w", err)
	}
	return logger.Level(lvl), nil
}
