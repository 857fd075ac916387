package direct

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"
)

// waitDelay bounds how long Run waits for orphaned children holding the
// output pipes after the script itself was killed.
const waitDelay = time.Second

// RunResult is the captured outcome of one script run.
type RunResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// ScriptRunner runs bash scripts
type ScriptRunner struct {
	shell string
}

// NewScriptRunner creates a new script runner
func NewScriptRunner() *ScriptRunner {
	return &ScriptRunner{shell: "bash"}
}

// Run executes a script and waits for it. The process is killed when ctx is
// done; in that case the context error is returned.
func (r *ScriptRunner) Run(ctx context.Context, scriptPath string, args []string, env map[string]string) (*RunResult, error) {
	if _, err := os.Stat(scriptPath); err != nil {
		return nil, fmt.Errorf("script not found: %s", scriptPath)
	}

	cmd := exec.CommandContext(ctx, r.shell, append([]string{scriptPath}, args...)...)
	cmd.Dir = filepath.Dir(scriptPath)
	cmd.WaitDelay = waitDelay
	cmd.Env = os.Environ()
	for k, v := range env {
		cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, v))
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}

	result := &RunResult{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			return result, nil
		}
		return nil, fmt.Errorf("script execution error: %w", err)
	}
	return result, nil
}
