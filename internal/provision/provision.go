package provision

import (
	"context"
	"math/rand/v2"
	"os/user"
	"strconv"

	"github.com/hostprep/hostprep/internal/errors"
	"github.com/hostprep/hostprep/internal/exec"
	"github.com/hostprep/hostprep/internal/logger"
	"github.com/hostprep/hostprep/internal/ui"
)

// AppendPolicy controls how the public key is added to authorized_keys.
type AppendPolicy string

const (
	// AppendAlways appends the public key on every run, duplicating it
	// when the host is already provisioned.
	AppendAlways AppendPolicy = "always"

	// AppendIfAbsent appends the public key only when authorized_keys
	// does not already contain it.
	AppendIfAbsent AppendPolicy = "if-absent"
)

// Valid reports whether p is a known append policy.
func (p AppendPolicy) Valid() bool {
	return p == AppendAlways || p == AppendIfAbsent
}

// Default well-known values.
const (
	DefaultGroup         = "docker"
	DefaultHomeRoot      = "/home"
	DefaultOptRoot       = "/opt"
	DefaultSSHConfigPath = "/etc/ssh/sshd_config"
	DefaultSSHPort       = 22

	// Random SSH port range, inclusive.
	RandomPortMin = 1024
	RandomPortMax = 10000
)

// Options carries the inputs for a single provisioning run.
type Options struct {
	User   string
	Folder string
	Group  string

	// SSHPort is the port sshd should listen on. Zero means pick a
	// random port in [RandomPortMin, RandomPortMax].
	SSHPort int

	// AppendKeys controls authorized_keys append behavior.
	AppendKeys AppendPolicy

	// Downstream integration paths, passed through to the deployed
	// workload's tooling. The provisioning run itself never reads them.
	Fail2banConfig string
	CowrieConfig   string
	CowrieDB       string
	CowrieSSHPort  int
	CronFile       string
}

// Provisioner applies the idempotent provisioning sequence to the host.
// Every field has a host default; tests override the lookups, roots,
// and runner.
type Provisioner struct {
	Runner exec.Runner
	Status *ui.Status
	Log    logger.Logger

	// Filesystem roots, overridable for tests and non-standard hosts.
	HomeRoot      string
	OptRoot       string
	SSHConfigPath string

	// Account database lookups. A nil error means the entry exists.
	LookupGroup func(name string) error
	LookupUser  func(name string) error

	// LookupIDs resolves a username to numeric uid/gid for chown.
	LookupIDs func(name string) (uid, gid int, err error)

	// randomPort picks a port when Options.SSHPort is zero.
	randomPort func() int
}

// New creates a Provisioner with host defaults.
func New(runner exec.Runner, status *ui.Status, log logger.Logger) *Provisioner {
	return &Provisioner{
		Runner:        runner,
		Status:        status,
		Log:           log,
		HomeRoot:      DefaultHomeRoot,
		OptRoot:       DefaultOptRoot,
		SSHConfigPath: DefaultSSHConfigPath,
		LookupGroup: func(name string) error {
			_, err := user.LookupGroup(name)
			return err
		},
		LookupUser: func(name string) error {
			_, err := user.Lookup(name)
			return err
		},
		LookupIDs:  lookupIDs,
		randomPort: RandomPort,
	}
}

// RandomPort returns a pseudo-random port in [RandomPortMin, RandomPortMax].
func RandomPort() int {
	return RandomPortMin + rand.IntN(RandomPortMax-RandomPortMin+1)
}

// Run applies the full provisioning sequence in fixed order: identity,
// deployment layout, key material, sshd port. The first failure aborts
// the run; completed steps are not rolled back, and a re-run is the
// recovery strategy.
func (p *Provisioner) Run(ctx context.Context, opts Options) error {
	group := opts.Group
	if group == "" {
		group = DefaultGroup
	}
	policy := opts.AppendKeys
	if policy == "" {
		policy = AppendAlways
	}
	if !policy.Valid() {
		return errors.New(errors.ErrConfig,
			"Unknown append-keys policy: "+string(policy),
			"Use 'always' or 'if-absent'.")
	}
	port := opts.SSHPort
	if port == 0 {
		port = p.randomPort()
		p.Log.Debug("picked random ssh port %d", port)
	}

	p.Status.Info("INFO", "Starting setup...")

	if err := p.EnsureGroup(ctx, group); err != nil {
		return err
	}
	if err := p.EnsureUser(ctx, opts.User, group); err != nil {
		return err
	}
	if err := p.ProvisionLayout(opts.Folder, opts.User); err != nil {
		return err
	}
	if err := p.ProvisionKeys(ctx, opts.User, policy); err != nil {
		return err
	}
	return p.ReconfigurePort(ctx, port)
}

func lookupIDs(name string) (int, int, error) {
	u, err := user.Lookup(name)
	if err != nil {
		return 0, 0, err
	}
	uid, err := strconv.Atoi(u.Uid)
	if err != nil {
		return 0, 0, err
	}
	gid, err := strconv.Atoi(u.Gid)
	if err != nil {
		return 0, 0, err
	}
	return uid, gid, nil
}
