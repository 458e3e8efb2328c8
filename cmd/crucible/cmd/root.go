package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	host   string
	apiKey string
)

var rootCmd = &cobra.Command{
	Use:   "crucible",
	Short: "Crucible CLI",
	Long:  `Run code under the memory profiler, analyze sample logs, and talk to the Crucible API.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&host, "host", "http://localhost:8080", "Crucible API URL")
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", "", "API key for authentication")

	viper.BindPFlag("host", rootCmd.PersistentFlags().Lookup("host"))
	viper.BindPFlag("api-key", rootCmd.PersistentFlags().Lookup("api-key"))
}

func initConfig() {
	// An explicitly configured file wins over the home-directory default.
	if viper.ConfigFileUsed() == "" {
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(home)
		}
		viper.SetConfigName(".crucible")
		viper.SetConfigType("yaml")
	}
	viper.SetEnvPrefix("CRUCIBLE")
	viper.AutomaticEnv()

	// A missing config file is fine; flags and env still apply.
	_ = viper.ReadInConfig()
}
