package exec

import (
	"context"
	"strings"
)

// MockCall records one invocation made against a MockRunner.
type MockCall struct {
	WorkDir string
	Name    string
	Args    []string
	Stdin   []byte
}

// MockRunner is a CommandRunner for tests. It records calls and returns
// canned output keyed by the command name.
type MockRunner struct {
	// Output maps command name to the bytes returned for it.
	Output map[string][]byte
	// Err is returned from every call when non-nil.
	Err error
	// MissingBinaries lists names LookPath should fail for.
	MissingBinaries []string
	// Calls records every invocation in order.
	Calls []MockCall
}

// NewMockRunner creates an empty MockRunner.
func NewMockRunner() *MockRunner {
	return &MockRunner{Output: map[string][]byte{}}
}

func (m *MockRunner) record(workDir, name string, stdin []byte, args []string) {
	m.Calls = append(m.Calls, MockCall{WorkDir: workDir, Name: name, Args: args, Stdin: stdin})
}

// Run records the call and returns the canned output for name.
func (m *MockRunner) Run(_ context.Context, workDir string, name string, args ...string) ([]byte, error) {
	m.record(workDir, name, nil, args)
	return m.Output[name], m.Err
}

// RunStdin records the call, including stdin, and returns canned output.
func (m *MockRunner) RunStdin(_ context.Context, workDir string, stdin []byte, name string, args ...string) ([]byte, error) {
	m.record(workDir, name, stdin, args)
	return m.Output[name], m.Err
}

// Stream records the call and emits the canned output line by line.
func (m *MockRunner) Stream(_ context.Context, workDir string, stdin []byte, onLine func(string), name string, args ...string) error {
	m.record(workDir, name, stdin, args)
	out := strings.TrimRight(string(m.Output[name]), "\n")
	if out != "" {
		for _, line := range strings.Split(out, "\n") {
			onLine(line)
		}
	}
	return m.Err
}

// LookPath fails for names listed in MissingBinaries, echoes the name back
// otherwise.
func (m *MockRunner) LookPath(name string) (string, error) {
	for _, missing := range m.MissingBinaries {
		if missing == name {
			return "", &lookPathError{name: name}
		}
	}
	return name, nil
}

type lookPathError struct{ name string }

func (e *lookPathError) Error() string { return "exec: " + e.name + ": executable file not found" }

// Verify MockRunner implements CommandRunner at compile time.
var _ CommandRunner = (*MockRunner)(nil)
