package provision

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/hostprep/hostprep/internal/errors"
)

// ProvisionLayout ensures the canonical deployment directory under the
// system application root exists, is symlinked into the user's home
// directory, and that both paths are owned by the user.
func (p *Provisioner) ProvisionLayout(folder, username string) error {
	canonical := filepath.Join(p.OptRoot, folder)
	link := filepath.Join(p.HomeRoot, username, folder)

	if err := p.EnsureDirectory(canonical); err != nil {
		return err
	}
	if err := p.EnsureSymlink(canonical, link); err != nil {
		return err
	}
	if err := p.EnsureOwnership(canonical, username); err != nil {
		return err
	}
	return p.EnsureOwnership(link, username)
}

// EnsureDirectory creates path (and any missing parents) if absent.
func (p *Provisioner) EnsureDirectory(path string) error {
	if _, err := os.Stat(path); err == nil {
		p.Status.Warn("FOLDER", "%s already exists, proceeding...", path)
		return nil
	}

	if err := os.MkdirAll(path, 0755); err != nil {
		return errors.WrapWithCode(err, errors.ErrFolder,
			fmt.Sprintf("Couldn't create directory %s", path),
			"Check permissions on the parent directory.")
	}

	p.Status.Info("FOLDER", "%s created.", path)
	return nil
}

// EnsureSymlink creates a symlink at link pointing to target. An
// existing entry is verified: a symlink already pointing at target is
// reported and left alone, anything else is an inconsistency that
// aborts the run rather than being trusted or overwritten.
func (p *Provisioner) EnsureSymlink(target, link string) error {
	fi, err := os.Lstat(link)
	if err != nil {
		if err := os.Symlink(target, link); err != nil {
			return errors.WrapWithCode(err, errors.ErrFolder,
				fmt.Sprintf("Couldn't symlink %s to %s", target, link),
				"Check that the user's home directory exists.")
		}
		p.Status.Info("SYMLINK", "%s symlinked to %s", target, link)
		return nil
	}

	if fi.Mode()&os.ModeSymlink != 0 {
		dest, err := os.Readlink(link)
		if err == nil && dest == target {
			p.Status.Warn("SYMLINK", "%s already exists, proceeding...", link)
			return nil
		}
		p.Status.Error("SYMLINK", "%s points to %s, expected %s", link, dest, target)
		return errors.New(errors.ErrFolder,
			fmt.Sprintf("Symlink %s points to %s, expected %s", link, dest, target),
			"Remove or fix the link manually, then re-run.")
	}

	p.Status.Error("SYMLINK", "%s exists but is not a symlink", link)
	return errors.New(errors.ErrFolder,
		fmt.Sprintf("%s exists but is not a symlink", link),
		"Move the existing entry out of the way, then re-run.")
}

// EnsureOwnership sets owner and group of path to the user. Symlinks
// have the link itself changed, not the target.
func (p *Provisioner) EnsureOwnership(path, username string) error {
	uid, gid, err := p.LookupIDs(username)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrFolder,
			fmt.Sprintf("Couldn't resolve uid/gid for %s", username),
			"The user must exist before ownership can be set.")
	}

	if err := os.Lchown(path, uid, gid); err != nil {
		return errors.WrapWithCode(err, errors.ErrFolder,
			fmt.Sprintf("Couldn't change ownership of %s to %s", path, username),
			"Check that the path exists and the tool runs as root.")
	}

	p.Status.Info("FOLDER", "%s permissions set to %s", path, username)
	return nil
}
