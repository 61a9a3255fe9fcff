// Kakehashi - Cross-channel translation relay for Discord

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tinyland-inc/kakehashi/cmd/kakehashi/internal"
	"github.com/tinyland-inc/kakehashi/cmd/kakehashi/internal/onboard"
	"github.com/tinyland-inc/kakehashi/cmd/kakehashi/internal/relay"
	"github.com/tinyland-inc/kakehashi/cmd/kakehashi/internal/version"
)

func NewKakehashiCommand() *cobra.Command {
	short := fmt.Sprintf("%s kakehashi - Cross-channel translation relay v%s\n\n", internal.Logo, internal.GetVersion())

	cmd := &cobra.Command{
		Use:     "kakehashi",
		Short:   short,
		Example: "kakehashi relay",
	}

	cmd.AddCommand(
		onboard.NewOnboardCommand(),
		relay.NewRelayCommand(),
		version.NewVersionCommand(),
	)

	return cmd
}

func main() {
	cmd := NewKakehashiCommand()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
