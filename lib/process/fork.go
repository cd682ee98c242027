// Package fork starts agent subprocesses and exposes their stdio as the
// byte streams a bridge conversation runs over.
package fork

import (
	"fmt"
	"io"
	"os"
	"os/exec"
)

// Process is a running agent subprocess. Its stdin and stdout carry bridge
// frames; stderr passes through to the parent so agent logs stay readable.
type Process struct {
	cmd          *exec.Cmd
	stdinWriter  *io.PipeWriter
	stdoutReader *io.PipeReader
}

// Agent starts command with args and wires its stdio for a bridge conn.
// Stderr is deliberately kept out of the frame stream.
func Agent(command string, args ...string) (*Process, error) {
	cmd := exec.Command(command, args...)
	stdinReader, stdinWriter := io.Pipe()
	stdoutReader, stdoutWriter := io.Pipe()
	cmd.Stdin = stdinReader
	cmd.Stdout = stdoutWriter
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start agent process: %w", err)
	}

	return &Process{
		cmd:          cmd,
		stdinWriter:  stdinWriter,
		stdoutReader: stdoutReader,
	}, nil
}

// Stdin returns the writer feeding the agent's standard input.
func (p *Process) Stdin() *io.PipeWriter {
	return p.stdinWriter
}

// Stdout returns the reader carrying the agent's standard output.
func (p *Process) Stdout() *io.PipeReader {
	return p.stdoutReader
}

// Wait blocks until the agent exits.
func (p *Process) Wait() error {
	if err := p.cmd.Wait(); err != nil {
		return fmt.Errorf("agent process exited with error: %w", err)
	}
	return nil
}

// Close tears the stdio pipes down and kills the agent. Prefer closing the
// bridge conn first so the agent can exit on its own.
func (p *Process) Close() error {
	if err := p.stdinWriter.Close(); err != nil {
		return fmt.Errorf("failed to close stdin writer: %w", err)
	}
	if err := p.stdoutReader.Close(); err != nil {
		return fmt.Errorf("failed to close stdout reader: %w", err)
	}
	if err := p.cmd.Process.Kill(); err != nil {
		return fmt.Errorf("failed to kill agent process: %w", err)
	}
	return nil
}
