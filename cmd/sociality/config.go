// ABOUTME: CLI commands for inspecting and editing configuration.
// ABOUTME: Prints the effective config and where it and the session live; set writes one key back.
package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/2389-research/sociality/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and edit configuration",
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Write one setting to the config file",
	Long:  "Write one setting to the config file. Keys: " + strings.Join(config.Keys, ", ") + ".",
	Args:  cobra.ExactArgs(2),
	RunE:  runConfigSet,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	RunE:  runConfigShow,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	out, err := globalConfig.YAML()
	if err != nil {
		return fmt.Errorf("failed to render config: %w", err)
	}
	path, err := config.GetConfigPath()
	if err != nil {
		return err
	}
	fmt.Printf("# config file: %s\n", path)
	fmt.Printf("# session dir: %s\n", globalStore.Dir())
	fmt.Print(out)
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFile()
	if err != nil {
		return err
	}
	if err := cfg.Set(args[0], args[1]); err != nil {
		return err
	}
	if err := cfg.Save(); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	path, _ := config.GetConfigPath()
	fmt.Printf("Set %s in %s\n", args[0], path)
	return nil
}
