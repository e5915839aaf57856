// Command ircd runs the intelligent React components server: it turns
// natural-language prompts attached to DOM elements into cached
// JavaScript event-handler modules.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	_ "go.uber.org/automaxprocs"

	"github.com/intelligent-react-components/irc-server/internal/config"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "ircd",
	Short: "Prompt-to-code generation server for intelligent React components",
}

func main() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath, "path to config file")
	rootCmd.AddCommand(serveCmd, initCmd, tokenCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
