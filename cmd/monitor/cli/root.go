package cli

import (
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/authintegrate/authintegrate/internal/logging"
)

// defaultServerURL matches the server's default PORT.
const defaultServerURL = "http://localhost:5000"

var cfgFile string

// Execute creates the root command tree and runs it.
func Execute(version, commit, date string) error {
	return newRootCmd(version, commit, date).Execute()
}

func newRootCmd(version, commit, date string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "authmon",
		Short: "Watch fingerprint access activity from the terminal",
		Long: `authmon follows an AuthIntegrate server: it polls recent access logs, the
user roster and the daily counters, and applies realtime pushes as they arrive.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./authmon.yaml)")
	cmd.PersistentFlags().String("server", defaultServerURL, "AuthIntegrate server URL")
	cmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	viper.BindPFlag("server.url", cmd.PersistentFlags().Lookup("server"))
	viper.BindPFlag("log.level", cmd.PersistentFlags().Lookup("log-level"))

	cobra.OnInitialize(initConfig)

	cmd.AddCommand(newWatchCmd())
	cmd.AddCommand(newVersionCmd(version, commit, date))

	return cmd
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("authmon")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.authmon")
	}

	viper.SetEnvPrefix("AUTHMON")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()
	viper.ReadInConfig() // config file is optional
}

// newLogger writes to stderr so stdout stays free for the rendered view.
func newLogger() *slog.Logger {
	return logging.NewWriter(os.Stderr, viper.GetString("log.level"), true)
}
