// Package exec runs privileged host commands with checked results.
//
// Every command that mutates host state (groupadd, useradd, usermod,
// ssh-keygen, systemctl) goes through a Runner so that a non-zero exit
// status surfaces as a structured error instead of being silently
// ignored. The Recorder implementation captures invocations for tests.
package exec

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/hostprep/hostprep/internal/errors"
)

// Runner executes host commands and reports their results.
type Runner interface {
	// Run executes the command and returns an error if it could not be
	// started or exited non-zero.
	Run(ctx context.Context, name string, args ...string) error

	// Output executes the command and returns its combined output.
	Output(ctx context.Context, name string, args ...string) (string, error)
}

// systemRunner executes commands via os/exec.
type systemRunner struct{}

// System returns a Runner that executes commands on the local host.
func System() Runner {
	return &systemRunner{}
}

func (r *systemRunner) Run(ctx context.Context, name string, args ...string) error {
	_, err := r.Output(ctx, name, args...)
	return err
}

func (r *systemRunner) Output(ctx context.Context, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return string(out), errors.WrapWithCode(err, errors.ErrExec,
				fmt.Sprintf("'%s' exited with code %d: %s",
					commandLine(name, args), exitErr.ExitCode(), strings.TrimSpace(string(out))),
				"Check the command output above for details.")
		}
		return string(out), errors.WrapWithCode(err, errors.ErrExec,
			fmt.Sprintf("Couldn't run '%s'", commandLine(name, args)),
			"Make sure the command exists and is executable.")
	}
	return string(out), nil
}

func commandLine(name string, args []string) string {
	if len(args) == 0 {
		return name
	}
	return name + " " + strings.Join(args, " ")
}

// Call records a single command invocation.
type Call struct {
	Name string
	Args []string
}

// String returns the full command line for assertion messages.
func (c Call) String() string {
	return commandLine(c.Name, c.Args)
}

// Recorder is a Runner that records invocations and returns scripted
// results. Exported for use in tests across packages.
type Recorder struct {
	Calls []Call

	// FailOn maps a command name to the error its invocation returns.
	FailOn map[string]error

	// Outputs maps a command name to the output Output returns.
	Outputs map[string]string
}

// NewRecorder creates a Recorder with no scripted failures.
func NewRecorder() *Recorder {
	return &Recorder{
		FailOn:  make(map[string]error),
		Outputs: make(map[string]string),
	}
}

func (r *Recorder) Run(ctx context.Context, name string, args ...string) error {
	r.Calls = append(r.Calls, Call{Name: name, Args: args})
	return r.FailOn[name]
}

func (r *Recorder) Output(ctx context.Context, name string, args ...string) (string, error) {
	r.Calls = append(r.Calls, Call{Name: name, Args: args})
	return r.Outputs[name], r.FailOn[name]
}

// Ran returns true if a command with the given name was invoked.
func (r *Recorder) Ran(name string) bool {
	for _, c := range r.Calls {
		if c.Name == name {
			return true
		}
	}
	return false
}

// CommandLines returns each recorded invocation as a full command line.
func (r *Recorder) CommandLines() []string {
	lines := make([]string, len(r.Calls))
	for i, c := range r.Calls {
		lines[i] = c.String()
	}
	return lines
}
