package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/averith/murmur/internal/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter config file",
	Long: `Write a starter config file with default values. Edit it to add
resolver credentials before running serve.`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite an existing config file")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	loader := config.NewLoader(cfgFile)

	path := loader.GetConfigPath()
	if path == "" {
		return fmt.Errorf("failed to determine config path")
	}

	if _, err := os.Stat(path); err == nil && !initForce {
		return fmt.Errorf("config already exists at %s (use --force to overwrite)", path)
	}

	cfg := config.DefaultConfig()
	cfg.Resolver.Profiles = []config.ResolverProfile{
		{
			ID:       "primary",
			Provider: "anthropic",
			APIKey:   "sk-ant-...",
		},
	}

	if err := loader.Save(cfg); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Wrote config to %s\n", path)
	fmt.Fprintln(cmd.OutOrStdout(), "Fill in resolver profile credentials, then run: murmur serve")
	return nil
}
