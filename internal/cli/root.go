package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Persistent flags shared by all commands
var (
	configFlag  string
	noColorFlag bool
	debugFlag   bool
)

// rootCmd is the base command for hostprep.
var rootCmd = &cobra.Command{
	Use:   "hostprep",
	Short: "One-shot idempotent Linux host provisioning",
	Long: `hostprep brings a Linux host from an unknown state to a known one:
a service group and user exist, the deployment directory under /opt is
symlinked into the user's home with correct ownership, the user has an
SSH key pair with a populated authorized_keys file, and sshd listens on
a non-default port.

Every step is safe to re-run: already-provisioned state is detected and
reported instead of being mutated again.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if debugFlag {
			os.Setenv("HOSTPREP_DEBUG", "1")
		}
	},
}

// Execute runs the root command and exits non-zero on any error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "path to config file (default: .hostprep.yaml)")
	rootCmd.PersistentFlags().BoolVar(&noColorFlag, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "enable debug output")
}
