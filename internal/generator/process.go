package generator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const stderrTail = 300

// Process runs a llama.cpp style command line binary once per request.
type Process struct {
	binary    string
	model     string
	gpuLayers int
	extraArgs []string
	waitDelay time.Duration
}

func NewProcess(binary, model string, gpuLayers int, extraArgs []string) *Process {
	return &Process{
		binary:    binary,
		model:     model,
		gpuLayers: gpuLayers,
		extraArgs: extraArgs,
		waitDelay: 5 * time.Second,
	}
}

// Generate runs the binary with the rendered prompt and returns its raw
// standard output. The process is killed when req.Timeout elapses.
func (p *Process) Generate(ctx context.Context, req Request) (string, error) {
	if err := p.check(); err != nil {
		return "", err
	}

	parent := ctx
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, p.binary, p.args(req)...)
	cmd.WaitDelay = p.waitDelay
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start)

	if ctx.Err() != nil {
		if parent.Err() != nil {
			return "", parent.Err()
		}
		return "", fmt.Errorf("%w after %s", ErrTimeout, req.Timeout)
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", &ExitError{Code: exitErr.ExitCode(), Stderr: tail(stderr.String(), stderrTail)}
		}
		return "", fmt.Errorf("generator: failed to run %s: %w", p.binary, err)
	}

	out := stdout.String()
	if strings.TrimSpace(out) == "" {
		return "", ErrEmptyOutput
	}

	log.Debug().Str("stage", "generate").Dur("elapsed", elapsed).Int("max_tokens", req.MaxTokens).Int("bytes", len(out)).Msg("generation finished")
	return out, nil
}

func (p *Process) check() error {
	if strings.ContainsRune(p.binary, os.PathSeparator) {
		if _, err := os.Stat(p.binary); err != nil {
			return fmt.Errorf("%w: %s", ErrBinaryNotFound, p.binary)
		}
	} else if _, err := exec.LookPath(p.binary); err != nil {
		return fmt.Errorf("%w: %s", ErrBinaryNotFound, p.binary)
	}
	if _, err := os.Stat(p.model); err != nil {
		return fmt.Errorf("%w: %s", ErrModelNotFound, p.model)
	}
	return nil
}

func (p *Process) args(req Request) []string {
	args := []string{
		"-m", p.model,
		"-p", ChatPrompt(req.System, req.Prompt),
	}
	if req.MaxTokens > 0 {
		args = append(args, "-n", strconv.Itoa(req.MaxTokens))
	}
	if req.ContextSize > 0 {
		args = append(args, "-c", strconv.Itoa(req.ContextSize))
	}
	args = append(args, "--seed", strconv.FormatInt(req.Seed, 10))
	args = append(args, "--temp", strconv.FormatFloat(req.Temperature, 'f', -1, 64))
	if req.RepeatPenalty > 0 {
		args = append(args, "--repeat-penalty", strconv.FormatFloat(req.RepeatPenalty, 'f', -1, 64))
	}
	args = append(args, "--no-display-prompt", "-ngl", strconv.Itoa(p.gpuLayers))
	return append(args, p.extraArgs...)
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return strings.ToValidUTF8(s[len(s)-n:], "")
}
