package provision

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hostprep/hostprep/internal/errors"
	"golang.org/x/crypto/ssh"
)

// ProvisionKeys ensures the user has an RSA key pair and that its
// public key is present in authorized_keys: key pair first, then the
// authorized_keys file, then the append.
func (p *Provisioner) ProvisionKeys(ctx context.Context, username string, policy AppendPolicy) error {
	if err := p.EnsureKeyPair(ctx, username); err != nil {
		return err
	}
	if err := p.EnsureAuthorizedKeys(username); err != nil {
		return err
	}
	return p.AppendPublicKey(username, policy)
}

func (p *Provisioner) sshDir(username string) string {
	return filepath.Join(p.HomeRoot, username, ".ssh")
}

func (p *Provisioner) privateKeyPath(username string) string {
	return filepath.Join(p.sshDir(username), "id_rsa")
}

func (p *Provisioner) authorizedKeysPath(username string) string {
	return filepath.Join(p.sshDir(username), "authorized_keys")
}

// EnsureKeyPair generates a 4096-bit RSA key pair with an empty
// passphrase for the user, running ssh-keygen as that user. Existence
// is checked on the private key path only.
func (p *Provisioner) EnsureKeyPair(ctx context.Context, username string) error {
	keyPath := p.privateKeyPath(username)
	if _, err := os.Stat(keyPath); err == nil {
		p.Status.Warn("KEYS", "SSH key pair already exists, proceeding...")
		return nil
	}

	// useradd -m does not create ~/.ssh and ssh-keygen won't either.
	sshDir := p.sshDir(username)
	if err := os.MkdirAll(sshDir, 0700); err != nil {
		return errors.WrapWithCode(err, errors.ErrKeys,
			fmt.Sprintf("Couldn't create %s", sshDir),
			"Check that the user's home directory exists.")
	}
	uid, gid, err := p.LookupIDs(username)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrKeys,
			fmt.Sprintf("Couldn't resolve uid/gid for %s", username),
			"Create the user first.")
	}
	if err := os.Lchown(sshDir, uid, gid); err != nil {
		return errors.WrapWithCode(err, errors.ErrKeys,
			fmt.Sprintf("Couldn't change ownership of %s", sshDir),
			"Check that the tool runs as root.")
	}

	err = p.Runner.Run(ctx, "sudo", "-u", username,
		"ssh-keygen", "-t", "rsa", "-b", "4096", "-f", keyPath, "-N", "")
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrKeys,
			fmt.Sprintf("Couldn't generate SSH key pair for %s", username),
			"Ensure ssh-keygen is installed and accessible.")
	}

	p.Status.Info("KEYS", "SSH key pair generated.")
	return nil
}

// EnsureAuthorizedKeys creates an empty authorized_keys file with mode
// 600 owned by the user. An existing file is reported and left exactly
// as found, mode included.
func (p *Provisioner) EnsureAuthorizedKeys(username string) error {
	path := p.authorizedKeysPath(username)
	if _, err := os.Stat(path); err == nil {
		p.Status.Warn("KEYS", "authorized_keys file already exists, proceeding...")
		return nil
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrKeys,
			fmt.Sprintf("Couldn't create %s", path),
			"Check that the user's .ssh directory exists.")
	}
	if err := f.Close(); err != nil {
		return errors.WrapWithCode(err, errors.ErrKeys,
			fmt.Sprintf("Couldn't create %s", path), "")
	}

	// sshd rejects authorized_keys not owned by the user.
	uid, gid, err := p.LookupIDs(username)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrKeys,
			fmt.Sprintf("Couldn't resolve uid/gid for %s", username),
			"Create the user first.")
	}
	if err := os.Lchown(path, uid, gid); err != nil {
		return errors.WrapWithCode(err, errors.ErrKeys,
			fmt.Sprintf("Couldn't change ownership of %s", path),
			"Check that the tool runs as root.")
	}

	p.Status.Info("KEYS", "authorized_keys file created with mode 600.")
	return nil
}

// AppendPublicKey appends the user's public key to authorized_keys.
// Under AppendAlways the key is appended on every run; AppendIfAbsent
// skips the append when the key is already present by content.
func (p *Provisioner) AppendPublicKey(username string, policy AppendPolicy) error {
	pubPath := p.privateKeyPath(username) + ".pub"
	pubKey, err := os.ReadFile(pubPath)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrKeys,
			fmt.Sprintf("Couldn't read public key %s", pubPath),
			"Generate the key pair first.")
	}

	if _, _, _, _, err := ssh.ParseAuthorizedKey(pubKey); err != nil {
		return errors.WrapWithCode(err, errors.ErrKeys,
			fmt.Sprintf("Public key %s is not a valid SSH key", pubPath),
			"Regenerate the key pair and re-run.")
	}

	akPath := p.authorizedKeysPath(username)

	if policy == AppendIfAbsent {
		existing, err := os.ReadFile(akPath)
		if err != nil {
			return errors.WrapWithCode(err, errors.ErrKeys,
				fmt.Sprintf("Couldn't read %s", akPath),
				"Create the authorized_keys file first.")
		}
		if strings.Contains(string(existing), strings.TrimSpace(string(pubKey))) {
			p.Status.Warn("KEYS", "public key already authorized, skipping append.")
			return nil
		}
	}

	f, err := os.OpenFile(akPath, os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrKeys,
			fmt.Sprintf("Couldn't open %s for append", akPath),
			"Create the authorized_keys file first.")
	}
	defer f.Close()

	if _, err := f.Write(pubKey); err != nil {
		return errors.WrapWithCode(err, errors.ErrKeys,
			fmt.Sprintf("Couldn't append public key to %s", akPath), "")
	}

	p.Status.Info("KEYS", "public key appended to authorized_keys.")
	return nil
}
