// Package exec provides an interface for running external commands.
package exec

import (
	"context"
)

// CommandRunner defines the interface for running external commands.
// Everything in cpdbkit that shells out to the Python interpreter goes
// through this abstraction so tests can substitute a mock.
type CommandRunner interface {
	// Run executes a command and returns combined stdout/stderr output.
	// The working directory is set to workDir if non-empty.
	Run(ctx context.Context, workDir string, name string, args ...string) (output []byte, err error)

	// RunStdin executes a command with the given bytes fed to stdin and
	// returns combined stdout/stderr output.
	RunStdin(ctx context.Context, workDir string, stdin []byte, name string, args ...string) (output []byte, err error)

	// Stream executes a command with stdin fed from the given bytes (nil
	// for no stdin) and invokes onLine for every line of combined
	// stdout/stderr as it is produced. It blocks until the command exits.
	Stream(ctx context.Context, workDir string, stdin []byte, onLine func(line string), name string, args ...string) error

	// LookPath reports whether the named binary is resolvable in PATH.
	LookPath(name string) (string, error)
}
