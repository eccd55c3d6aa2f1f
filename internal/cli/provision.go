package cli

import (
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/hostprep/hostprep/internal/config"
	"github.com/hostprep/hostprep/internal/errors"
	"github.com/hostprep/hostprep/internal/exec"
	"github.com/hostprep/hostprep/internal/logger"
	"github.com/hostprep/hostprep/internal/provision"
	"github.com/hostprep/hostprep/internal/require"
	"github.com/hostprep/hostprep/internal/ui"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// ProvisionFlags holds the provision command's flag values. Empty/zero
// values fall back to the config file, then to built-in defaults.
type ProvisionFlags struct {
	SSHPort    int
	Group      string
	AppendKeys string
	Yes        bool

	Fail2banConfig string
	CowrieConfig   string
	CowrieDB       string
	CowrieSSHPort  int
	CronFile       string
}

var provisionFlags ProvisionFlags

// provisionCmd applies the full provisioning sequence to this host.
var provisionCmd = &cobra.Command{
	Use:   "provision <user> <folder>",
	Short: "Provision this host for a deploy user and folder",
	Long: `Provision this host: create the service group and user, lay out the
deployment directory under /opt with a home-directory symlink, generate
an SSH key pair with a populated authorized_keys file, and move sshd to
a non-default port.

Must run as root on the target host. Safe to re-run; already-provisioned
state is reported and left alone.

Examples:
  hostprep provision deploy myapp
  hostprep provision deploy myapp --ssh-port 2222
  hostprep provision deploy myapp --append-keys if-absent --yes`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return provisionCommand(cmd, args[0], args[1], provisionFlags)
	},
}

func provisionCommand(cmd *cobra.Command, user, folder string, flags ProvisionFlags) error {
	cfg, err := config.LoadOrDefault(configFlag)
	if err != nil {
		return err
	}

	status := newStatus()

	if err := require.NewPreflight(status).Check(); err != nil {
		return err
	}

	if !flags.Yes && term.IsTerminal(int(os.Stdin.Fd())) {
		var confirmed bool
		form := huh.NewForm(
			huh.NewGroup(
				huh.NewConfirm().
					Title(fmt.Sprintf("Provision this host for user '%s' and folder /opt/%s?", user, folder)).
					Value(&confirmed),
			),
		)
		if err := form.Run(); err != nil {
			return errors.WrapWithCode(err, errors.ErrConfig,
				"Failed to get confirmation",
				"Re-run with --yes to skip the prompt.")
		}
		if !confirmed {
			fmt.Println("Cancelled.")
			return nil
		}
	}

	opts := provision.Options{
		User:           user,
		Folder:         folder,
		Group:          fallback(flags.Group, cfg.Group),
		SSHPort:        flags.SSHPort,
		AppendKeys:     provision.AppendPolicy(fallback(flags.AppendKeys, cfg.AppendKeys)),
		Fail2banConfig: fallback(flags.Fail2banConfig, cfg.Fail2banConfig),
		CowrieConfig:   fallback(flags.CowrieConfig, cfg.CowrieConfig),
		CowrieDB:       fallback(flags.CowrieDB, cfg.CowrieDB),
		CowrieSSHPort:  cfg.CowrieSSHPort,
		CronFile:       fallback(flags.CronFile, cfg.CronFile),
	}
	if flags.CowrieSSHPort != 0 {
		opts.CowrieSSHPort = flags.CowrieSSHPort
	}

	p := provision.New(exec.System(), status, logger.NewEnvLogger("[provision]"))
	p.SSHConfigPath = cfg.SSHConfigPath
	return p.Run(cmd.Context(), opts)
}

// newStatus builds the status writer for stdout, honoring --no-color
// and --debug.
func newStatus() *ui.Status {
	status := ui.NewStatus(os.Stdout)
	if noColorFlag {
		status = ui.NewStatusWithColor(os.Stdout, false)
	}
	return status.SetDebug(debugFlag)
}

func fallback(flag, cfg string) string {
	if flag != "" {
		return flag
	}
	return cfg
}

func init() {
	provisionCmd.Flags().IntVar(&provisionFlags.SSHPort, "ssh-port", 0, "sshd port (default: random in [1024,10000])")
	provisionCmd.Flags().StringVar(&provisionFlags.Group, "group", "", "service group name (default: docker)")
	provisionCmd.Flags().StringVar(&provisionFlags.AppendKeys, "append-keys", "", "authorized_keys append policy: always or if-absent")
	provisionCmd.Flags().BoolVarP(&provisionFlags.Yes, "yes", "y", false, "skip the confirmation prompt")

	provisionCmd.Flags().StringVar(&provisionFlags.Fail2banConfig, "fail2ban-config", "", "Fail2Ban config file")
	provisionCmd.Flags().StringVar(&provisionFlags.CowrieConfig, "cowrie-config", "", "Cowrie config file")
	provisionCmd.Flags().StringVar(&provisionFlags.CowrieDB, "cowrie-db", "", "Cowrie database file")
	provisionCmd.Flags().IntVar(&provisionFlags.CowrieSSHPort, "cowrie-ssh-port", 0, "Cowrie SSH port")
	provisionCmd.Flags().StringVar(&provisionFlags.CronFile, "cron-file", "", "cron file")

	rootCmd.AddCommand(provisionCmd)
}
