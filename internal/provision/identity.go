package provision

import (
	"context"
	"fmt"

	"github.com/hostprep/hostprep/internal/errors"
)

// EnsureGroup creates the service group if it does not exist. An
// existing group is reported and left untouched.
func (p *Provisioner) EnsureGroup(ctx context.Context, name string) error {
	if err := p.LookupGroup(name); err == nil {
		p.Status.Warn("GROUP", "%s already exists, proceeding...", name)
		return nil
	}

	if err := p.Runner.Run(ctx, "groupadd", name); err != nil {
		return errors.WrapWithCode(err, errors.ErrGroup,
			fmt.Sprintf("Couldn't create group %s", name),
			"Check that groupadd is available and the name is valid.")
	}

	p.Status.Info("GROUP", "%s created.", name)
	return nil
}

// EnsureUser creates the service user with a home directory and bash
// shell, then adds it to group. An existing user is reported and left
// untouched; group membership is not verified or repaired on that path.
func (p *Provisioner) EnsureUser(ctx context.Context, name, group string) error {
	if err := p.LookupUser(name); err == nil {
		p.Status.Warn("USER", "%s already exists, proceeding...", name)
		return nil
	}

	if err := p.Runner.Run(ctx, "useradd", "-m", "-s", "/bin/bash", name); err != nil {
		return errors.WrapWithCode(err, errors.ErrUser,
			fmt.Sprintf("Couldn't create user %s", name),
			"Check that useradd is available and the name is valid.")
	}

	if err := p.Runner.Run(ctx, "usermod", "-aG", group, name); err != nil {
		return errors.WrapWithCode(err, errors.ErrUser,
			fmt.Sprintf("Couldn't add user %s to group %s", name, group),
			"The user was created; fix the group and re-run.")
	}

	p.Status.Info("USER", "%s created.", name)
	return nil
}
