package provision

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/hostprep/hostprep/internal/errors"
)

// ReconfigurePort moves sshd off the well-known default port. The
// config file is scanned top-to-bottom for the first matching directive:
//
//   - a commented default ("#Port 22", fresh install) is replaced with
//     an active directive for newPort, or
//   - an active "Port ..." line records the currently effective port.
//
// The file is rewritten and sshd restarted only when the effective port
// is still the default; a host whose port was already customized is
// left untouched. A missing config file is fatal for the whole run —
// the host would otherwise be in an undefined SSH state.
func (p *Provisioner) ReconfigurePort(ctx context.Context, newPort int) error {
	data, err := os.ReadFile(p.SSHConfigPath)
	if err != nil {
		p.Status.Error("SSH", "SSH config file not found: %s", p.SSHConfigPath)
		return errors.WrapWithCode(err, errors.ErrSSH,
			fmt.Sprintf("SSH config file not found: %s", p.SSHConfigPath),
			"Install openssh-server before provisioning this host.")
	}

	currentPort := strconv.Itoa(DefaultSSHPort)
	lines := strings.Split(string(data), "\n")
	for i, line := range lines {
		lower := strings.ToLower(line)
		if strings.HasPrefix(lower, "#port 22") {
			lines[i] = fmt.Sprintf("Port %d", newPort)
			break
		}
		if strings.HasPrefix(lower, "port ") {
			if fields := strings.Fields(line); len(fields) > 1 {
				currentPort = fields[1]
			}
			break
		}
	}

	if currentPort != strconv.Itoa(DefaultSSHPort) {
		p.Status.Warn("SSH", "Port is already set to %s, proceeding...", currentPort)
		return nil
	}

	mode := os.FileMode(0644)
	if fi, err := os.Stat(p.SSHConfigPath); err == nil {
		mode = fi.Mode()
	}
	if err := os.WriteFile(p.SSHConfigPath, []byte(strings.Join(lines, "\n")), mode); err != nil {
		return errors.WrapWithCode(err, errors.ErrSSH,
			fmt.Sprintf("Couldn't rewrite %s", p.SSHConfigPath),
			"Check that the tool runs as root.")
	}
	p.Status.Info("SSH", "SSH server port changed to %d", newPort)

	if err := p.Runner.Run(ctx, "systemctl", "restart", "sshd"); err != nil {
		return errors.WrapWithCode(err, errors.ErrSSH,
			"Couldn't restart the SSH server",
			fmt.Sprintf("The config now listens on %d; restart sshd manually.", newPort))
	}
	p.Status.Info("SSH", "SSH server restarted.")
	return nil
}
