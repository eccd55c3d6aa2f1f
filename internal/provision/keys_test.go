package provision

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hostprep/hostprep/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureKeyPair_GeneratesAsUser(t *testing.T) {
	h := newTestHost(t)
	h.addUser(t, "deploy")

	err := h.p.EnsureKeyPair(context.Background(), "deploy")

	require.NoError(t, err)
	keyPath := filepath.Join(h.p.HomeRoot, "deploy", ".ssh", "id_rsa")
	assert.Equal(t, []string{
		"sudo -u deploy ssh-keygen -t rsa -b 4096 -f " + keyPath + " -N ",
	}, h.runner.CommandLines())
	assert.DirExists(t, filepath.Join(h.p.HomeRoot, "deploy", ".ssh"))
}

func TestEnsureKeyPair_ExistingKeyIsNoOp(t *testing.T) {
	h := newTestHost(t)
	h.addUser(t, "deploy")
	h.writeKeyPair(t, "deploy")

	err := h.p.EnsureKeyPair(context.Background(), "deploy")

	require.NoError(t, err)
	assert.Empty(t, h.runner.Calls, "no keygen when the private key exists")
	assert.Contains(t, h.out.String(), "SSH key pair already exists")
}

func TestEnsureKeyPair_KeygenFailure(t *testing.T) {
	h := newTestHost(t)
	h.addUser(t, "deploy")
	h.runner.FailOn["sudo"] = errors.New(errors.ErrExec, "exit status 1", "")

	err := h.p.EnsureKeyPair(context.Background(), "deploy")

	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrKeys))
}

func TestEnsureKeyPair_UnknownUser(t *testing.T) {
	h := newTestHost(t)
	h.p.LookupIDs = func(string) (int, int, error) {
		return 0, 0, errors.New(errors.ErrUser, "no such user", "")
	}

	err := h.p.EnsureKeyPair(context.Background(), "deploy")

	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrKeys))
	assert.Empty(t, h.runner.Calls, "no keygen when the uid/gid lookup fails")
}

func TestEnsureAuthorizedKeys_CreatesWithMode600(t *testing.T) {
	h := newTestHost(t)
	h.addUser(t, "deploy")
	require.NoError(t, os.MkdirAll(filepath.Join(h.p.HomeRoot, "deploy", ".ssh"), 0700))

	err := h.p.EnsureAuthorizedKeys("deploy")

	require.NoError(t, err)
	fi, serr := os.Stat(filepath.Join(h.p.HomeRoot, "deploy", ".ssh", "authorized_keys"))
	require.NoError(t, serr)
	assert.Equal(t, os.FileMode(0600), fi.Mode().Perm())
	assert.Zero(t, fi.Size())
}

func TestEnsureAuthorizedKeys_ExistingFileModeUntouched(t *testing.T) {
	// Characterizes current behavior: a pre-existing file's mode is
	// never corrected.
	h := newTestHost(t)
	h.addUser(t, "deploy")
	akPath := filepath.Join(h.p.HomeRoot, "deploy", ".ssh", "authorized_keys")
	require.NoError(t, os.MkdirAll(filepath.Dir(akPath), 0700))
	require.NoError(t, os.WriteFile(akPath, []byte("existing\n"), 0644))

	err := h.p.EnsureAuthorizedKeys("deploy")

	require.NoError(t, err)
	fi, serr := os.Stat(akPath)
	require.NoError(t, serr)
	assert.Equal(t, os.FileMode(0644), fi.Mode().Perm())
	assert.Contains(t, h.out.String(), "authorized_keys file already exists")
}

func TestEnsureAuthorizedKeys_UnknownUser(t *testing.T) {
	h := newTestHost(t)
	require.NoError(t, os.MkdirAll(filepath.Join(h.p.HomeRoot, "deploy", ".ssh"), 0700))
	h.p.LookupIDs = func(string) (int, int, error) {
		return 0, 0, errors.New(errors.ErrUser, "no such user", "")
	}

	err := h.p.EnsureAuthorizedKeys("deploy")

	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrKeys))
}

func TestAppendPublicKey_AlwaysDuplicates(t *testing.T) {
	// Documented non-idempotent behavior of the default policy: the key
	// is appended on every run that reaches this step.
	h := newTestHost(t)
	h.addUser(t, "deploy")
	pub := h.writeKeyPair(t, "deploy")
	require.NoError(t, h.p.EnsureAuthorizedKeys("deploy"))

	require.NoError(t, h.p.AppendPublicKey("deploy", AppendAlways))
	require.NoError(t, h.p.AppendPublicKey("deploy", AppendAlways))

	ak, err := os.ReadFile(filepath.Join(h.p.HomeRoot, "deploy", ".ssh", "authorized_keys"))
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(ak), strings.TrimSpace(string(pub))))
}

func TestAppendPublicKey_IfAbsentDeduplicates(t *testing.T) {
	h := newTestHost(t)
	h.addUser(t, "deploy")
	pub := h.writeKeyPair(t, "deploy")
	require.NoError(t, h.p.EnsureAuthorizedKeys("deploy"))

	require.NoError(t, h.p.AppendPublicKey("deploy", AppendIfAbsent))
	require.NoError(t, h.p.AppendPublicKey("deploy", AppendIfAbsent))

	ak, err := os.ReadFile(filepath.Join(h.p.HomeRoot, "deploy", ".ssh", "authorized_keys"))
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(ak), strings.TrimSpace(string(pub))))
	assert.Contains(t, h.out.String(), "already authorized, skipping append")
}

func TestAppendPublicKey_InvalidPublicKey(t *testing.T) {
	h := newTestHost(t)
	h.addUser(t, "deploy")
	sshDir := filepath.Join(h.p.HomeRoot, "deploy", ".ssh")
	require.NoError(t, os.MkdirAll(sshDir, 0700))
	require.NoError(t, os.WriteFile(filepath.Join(sshDir, "id_rsa.pub"), []byte("not a key"), 0644))

	err := h.p.AppendPublicKey("deploy", AppendAlways)

	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrKeys))
}

func TestAppendPublicKey_MissingPublicKey(t *testing.T) {
	h := newTestHost(t)
	h.addUser(t, "deploy")

	err := h.p.AppendPublicKey("deploy", AppendAlways)

	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrKeys))
}

func TestProvisionKeys_Sequence(t *testing.T) {
	h := newTestHost(t)
	h.addUser(t, "deploy")

	// Key generation is recorded, not executed, so stage the key files
	// the way ssh-keygen would have left them.
	h.p.Runner = runnerFunc(func(ctx context.Context, name string, args ...string) error {
		if err := h.runner.Run(ctx, name, args...); err != nil {
			return err
		}
		if name == "sudo" {
			h.writeKeyPair(t, "deploy")
		}
		return nil
	})

	err := h.p.ProvisionKeys(context.Background(), "deploy", AppendAlways)

	require.NoError(t, err)
	assert.True(t, h.runner.Ran("sudo"))
	ak, rerr := os.ReadFile(filepath.Join(h.p.HomeRoot, "deploy", ".ssh", "authorized_keys"))
	require.NoError(t, rerr)
	assert.Contains(t, string(ak), "ssh-ed25519")
}
