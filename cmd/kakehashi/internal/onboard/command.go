package onboard

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tinyland-inc/kakehashi/cmd/kakehashi/internal"
	"github.com/tinyland-inc/kakehashi/pkg/config"
)

func NewOnboardCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "onboard",
		Short: "Write a starter config file",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return onboardCmd(force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing config file")

	return cmd
}

func onboardCmd(force bool) error {
	path := internal.GetConfigPath()

	if _, err := os.Stat(path); err == nil && !force {
		fmt.Printf("Config already exists at %s (use --force to overwrite)\n", path)
		return nil
	}

	cfg := config.DefaultConfig()
	cfg.Relay.Pairings = []config.Pairing{
		{Source: "JA_CHANNEL_ID", Target: "EN_CHANNEL_ID"},
	}

	if err := config.SaveConfig(path, cfg); err != nil {
		return fmt.Errorf("error writing config: %w", err)
	}

	fmt.Printf("✓ Starter config written to %s\n", path)
	fmt.Println("\nNext steps:")
	fmt.Println("  1. Replace the pairing placeholders with real channel IDs")
	fmt.Println("  2. Set KAKEHASHI_DISCORD_TOKEN and KAKEHASHI_TRANSLATOR_API_KEY")
	fmt.Println("     (or add them to the config file)")
	fmt.Println("  3. Run: kakehashi relay")

	return nil
}
