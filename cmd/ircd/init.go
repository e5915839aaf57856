package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/intelligent-react-components/irc-server/internal/config"
	"github.com/intelligent-react-components/irc-server/internal/instruction"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default config and instruction set into the current project",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.DefaultConfig()

		if _, err := os.Stat(configPath); err == nil {
			fmt.Printf("config already exists at %s, leaving it alone\n", configPath)
		} else {
			if err := cfg.Save(configPath); err != nil {
				return err
			}
			fmt.Printf("wrote %s\n", configPath)
		}

		if err := instruction.WriteDefaults(cfg.Instructions.Dir); err != nil {
			return fmt.Errorf("failed to seed instruction directory: %w", err)
		}
		fmt.Printf("seeded instruction fragments in %s\n", cfg.Instructions.Dir)

		if err := os.MkdirAll(cfg.Cache.Dir, 0o755); err != nil {
			return fmt.Errorf("failed to create cache directory: %w", err)
		}
		fmt.Printf("created cache directory %s\n", cfg.Cache.Dir)
		return nil
	},
}
