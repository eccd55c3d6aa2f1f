package provision

import (
	"context"
	"testing"

	"github.com/hostprep/hostprep/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureGroup_CreatesWhenAbsent(t *testing.T) {
	h := newTestHost(t)

	err := h.p.EnsureGroup(context.Background(), "docker")

	require.NoError(t, err)
	assert.Equal(t, []string{"groupadd docker"}, h.runner.CommandLines())
	assert.Contains(t, h.out.String(), "[GROUP] docker created.")
}

func TestEnsureGroup_Idempotent(t *testing.T) {
	h := newTestHost(t)

	require.NoError(t, h.p.EnsureGroup(context.Background(), "docker"))
	h.applySideEffects(t)
	require.NoError(t, h.p.EnsureGroup(context.Background(), "docker"))

	// groupadd ran exactly once; the second call reported already-exists
	assert.Equal(t, []string{"groupadd docker"}, h.runner.CommandLines())
	assert.Contains(t, h.out.String(), "[GROUP] docker already exists, proceeding...")
}

func TestEnsureGroup_CommandFailure(t *testing.T) {
	h := newTestHost(t)
	h.runner.FailOn["groupadd"] = errors.New(errors.ErrExec, "exit status 10", "")

	err := h.p.EnsureGroup(context.Background(), "docker")

	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrGroup))
}

func TestEnsureUser_CreatesAndAddsToGroup(t *testing.T) {
	h := newTestHost(t)

	err := h.p.EnsureUser(context.Background(), "deploy", "docker")

	require.NoError(t, err)
	assert.Equal(t, []string{
		"useradd -m -s /bin/bash deploy",
		"usermod -aG docker deploy",
	}, h.runner.CommandLines())
	assert.Contains(t, h.out.String(), "[USER] deploy created.")
}

func TestEnsureUser_ExistingUserSkipsMembership(t *testing.T) {
	// Characterizes current behavior: group membership is only
	// established on the creation branch, never repaired afterwards.
	h := newTestHost(t)
	h.users["deploy"] = true

	err := h.p.EnsureUser(context.Background(), "deploy", "docker")

	require.NoError(t, err)
	assert.Empty(t, h.runner.Calls)
	assert.Contains(t, h.out.String(), "[USER] deploy already exists, proceeding...")
}

func TestEnsureUser_UseraddFailure(t *testing.T) {
	h := newTestHost(t)
	h.runner.FailOn["useradd"] = errors.New(errors.ErrExec, "exit status 1", "")

	err := h.p.EnsureUser(context.Background(), "deploy", "docker")

	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrUser))
	assert.False(t, h.runner.Ran("usermod"), "no membership attempt after failed useradd")
}

func TestEnsureUser_UsermodFailure(t *testing.T) {
	h := newTestHost(t)
	h.runner.FailOn["usermod"] = errors.New(errors.ErrExec, "exit status 6", "")

	err := h.p.EnsureUser(context.Background(), "deploy", "docker")

	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrUser))
}
