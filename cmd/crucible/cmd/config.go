package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage CLI configuration",
}

var configGetCmd = &cobra.Command{
	Use:   "get [key]",
	Short: "Print one configuration value",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if val := viper.Get(args[0]); val != nil {
			fmt.Println(val)
			return
		}
		fmt.Println("Not set")
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Write a configuration value to the config file",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		viper.Set(args[0], args[1])
		err := viper.WriteConfig()
		if os.IsNotExist(err) {
			// First write: the config file does not exist yet.
			err = viper.SafeWriteConfig()
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to write config: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Set %s to %s\n", args[0], args[1])
	},
}

var configViewCmd = &cobra.Command{
	Use:   "view",
	Short: "Print every configuration value",
	Run: func(cmd *cobra.Command, args []string) {
		for k, v := range viper.AllSettings() {
			fmt.Printf("%s: %v\n", k, v)
		}
	},
}

func init() {
	configCmd.AddCommand(configGetCmd, configSetCmd, configViewCmd)
	rootCmd.AddCommand(configCmd)
}
