// Package require verifies host preconditions before provisioning starts.
package require

import (
	"os"
	"runtime"
	"strings"

	"github.com/hostprep/hostprep/internal/errors"
	"github.com/hostprep/hostprep/internal/ui"
)

// OSReleasePath is the standard location of the os-release file.
const OSReleasePath = "/etc/os-release"

// Preflight checks that the process can actually provision this host.
// Fields are injectable for tests.
type Preflight struct {
	Euid      func() int
	GOOS      string
	OSRelease string
	Status    *ui.Status
}

// NewPreflight creates a Preflight with host defaults writing status to stdout.
func NewPreflight(status *ui.Status) *Preflight {
	return &Preflight{
		Euid:      os.Geteuid,
		GOOS:      runtime.GOOS,
		OSRelease: OSReleasePath,
		Status:    status,
	}
}

// Check verifies all preconditions. Root and Linux are fatal; a
// non-Ubuntu distribution only produces a warning (tested baseline is
// Ubuntu 22.04).
func (p *Preflight) Check() error {
	if err := p.checkOS(); err != nil {
		return err
	}
	return p.checkRoot()
}

func (p *Preflight) checkRoot() error {
	if p.Euid() == 0 {
		return nil
	}
	p.Status.Error("REQUIREMENTS", "Please run this tool as root")
	return errors.New(errors.ErrRequirements,
		"Please run this tool as root",
		"Re-run with sudo: it creates users, writes under /opt, and restarts sshd.")
}

func (p *Preflight) checkOS() error {
	if p.GOOS != "linux" {
		p.Status.Error("REQUIREMENTS", "This tool only works on Linux")
		return errors.New(errors.ErrRequirements,
			"This tool only works on Linux",
			"Run it on the target Linux host, not on your workstation.")
	}

	data, err := os.ReadFile(p.OSRelease)
	if err != nil || !strings.Contains(strings.ToLower(string(data)), "ubuntu") {
		p.Status.Warn("REQUIREMENTS",
			"This tool was tested on Ubuntu 22.04. It may not work on other OS versions.")
	}
	return nil
}
