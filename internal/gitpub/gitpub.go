// Package gitpub commits updated result files and pushes them when running
// in CI.
package gitpub

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/Adda-Baaj/bazaar-sniper/internal/logger"
)

// Runner executes git with args and returns its stdout.
type Runner func(ctx context.Context, args ...string) (string, error)

// Publisher commits and pushes files with a fixed identity.
type Publisher struct {
	userName  string
	userEmail string
	run       Runner
	exists    func(path string) bool
	log       logger.Logger
}

// New builds a publisher that shells out to the git binary.
func New(userName, userEmail string, log logger.Logger) *Publisher {
	return NewWithRunner(userName, userEmail, execGit, log)
}

// NewWithRunner builds a publisher around run.
func NewWithRunner(userName, userEmail string, run Runner, log logger.Logger) *Publisher {
	return &Publisher{userName: userName, userEmail: userEmail, run: run, exists: pathExists, log: logger.Ensure(log)}
}

// Publish commits paths with message and pushes. Paths that were never
// written are skipped so git add does not reject the whole pathspec. It
// reports whether a push happened; "nothing to commit" is false without
// being an error.
func (p *Publisher) Publish(ctx context.Context, message string, paths ...string) bool {
	paths = p.present(paths)
	if len(paths) == 0 {
		p.log.InfoObj("no files to publish", "git", map[string]any{"message": message})
		return false
	}

	status, err := p.run(ctx, append([]string{"status", "--porcelain", "--"}, paths...)...)
	if err != nil {
		p.fail("status", err)
		return false
	}
	if strings.TrimSpace(status) == "" {
		p.log.InfoObj("no changes to commit", "git", map[string]any{"paths": paths})
		return false
	}

	steps := [][]string{
		{"config", "user.name", p.userName},
		{"config", "user.email", p.userEmail},
		append([]string{"add", "--"}, paths...),
		{"commit", "-m", message},
		{"push"},
	}
	for _, args := range steps {
		if _, err := p.run(ctx, args...); err != nil {
			p.fail(args[0], err)
			return false
		}
	}

	p.log.InfoObj("results pushed", "git", map[string]any{
		"message": message,
		"paths":   paths,
	})
	return true
}

func (p *Publisher) present(paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, path := range paths {
		if path == "" || !p.exists(path) {
			continue
		}
		out = append(out, path)
	}
	return out
}

func pathExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (p *Publisher) fail(step string, err error) {
	p.log.ErrorObj("git command failed", "git_error", map[string]any{
		"step":  step,
		"error": err.Error(),
	})
}

func execGit(ctx context.Context, args ...string) (string, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("git %s: %w: %s", strings.Join(args, " "), err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}
