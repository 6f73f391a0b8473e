// Package brew adapts Homebrew's command-line interface for the
// maintenance run.
//
// Every brew invocation goes through the runner boundary and blocks
// until the tool exits; the adapter interprets exit codes and output
// but holds no state of its own.
package brew

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/dshills/brewvault/pkg/runner"
)

// installerURL is the official Homebrew install script.
const installerURL = "https://raw.githubusercontent.com/Homebrew/install/HEAD/install.sh"

// Homebrew wraps the brew binary.
type Homebrew struct {
	runner runner.Runner
}

// New creates a Homebrew adapter on top of the given runner.
func New(r runner.Runner) *Homebrew {
	return &Homebrew{runner: r}
}

// Installed reports whether brew is runnable, returning its version
// line when it is. A missing binary is not an error; anything else that
// prevents running the check is.
func (h *Homebrew) Installed(ctx context.Context) (string, bool, error) {
	result, err := h.runner.Run(ctx, runner.Command{Name: "brew", Args: []string{"--version"}})
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return "", false, nil
		}
		return "", false, err
	}
	if !result.Success() {
		return "", false, fmt.Errorf("brew --version: %s", result.Output())
	}

	version := result.Stdout
	if idx := strings.IndexByte(version, '\n'); idx >= 0 {
		version = version[:idx]
	}
	return strings.TrimSpace(version), true, nil
}

// Install runs the official Homebrew installer non-interactively.
//
// The script is downloaded to a temp file and handed to bash directly;
// no shell string is ever assembled.
func (h *Homebrew) Install(ctx context.Context) error {
	script := filepath.Join(os.TempDir(), "brewvault-install-homebrew.sh")
	defer os.Remove(script)

	result, err := h.runner.Run(ctx, runner.Command{
		Name: "curl",
		Args: []string{"-fsSL", "-o", script, installerURL},
	})
	if err != nil {
		return err
	}
	if !result.Success() {
		return fmt.Errorf("download Homebrew installer: %s", result.Output())
	}

	result, err = h.runner.Run(ctx, runner.Command{
		Name: "/bin/bash",
		Args: []string{script},
		Env:  map[string]string{"NONINTERACTIVE": "1"},
	})
	if err != nil {
		return err
	}
	if !result.Success() {
		return fmt.Errorf("Homebrew installer: %s", result.Output())
	}
	return nil
}

// Update refreshes brew's package metadata (brew update).
func (h *Homebrew) Update(ctx context.Context) error {
	result, err := h.runner.Run(ctx, runner.Command{Name: "brew", Args: []string{"update"}})
	if err != nil {
		return err
	}
	if !result.Success() {
		return fmt.Errorf("brew update: %s", result.Output())
	}
	return nil
}

// UpgradeAll upgrades every outdated formula and cask (brew upgrade).
func (h *Homebrew) UpgradeAll(ctx context.Context) error {
	result, err := h.runner.Run(ctx, runner.Command{Name: "brew", Args: []string{"upgrade"}})
	if err != nil {
		return err
	}
	if !result.Success() {
		return fmt.Errorf("brew upgrade: %s", result.Output())
	}
	return nil
}

// Outdated returns the names of outdated formulae and casks, parsed
// from brew's JSON v2 report.
func (h *Homebrew) Outdated(ctx context.Context) ([]string, error) {
	result, err := h.runner.Run(ctx, runner.Command{
		Name: "brew",
		Args: []string{"outdated", "--json=v2"},
	})
	if err != nil {
		return nil, err
	}
	if !result.Success() {
		return nil, fmt.Errorf("brew outdated: %s", result.Output())
	}

	payload := strings.TrimSpace(result.Stdout)
	if payload == "" {
		return nil, nil
	}
	if !gjson.Valid(payload) {
		return nil, fmt.Errorf("brew outdated: unexpected non-JSON output")
	}

	var names []string
	for _, path := range []string{"formulae.#.name", "casks.#.name"} {
		for _, name := range gjson.Get(payload, path).Array() {
			names = append(names, name.String())
		}
	}
	return names, nil
}

// BundleDump exports the installed-package state to a Brewfile at path
// (brew bundle dump --force --file=<path>).
func (h *Homebrew) BundleDump(ctx context.Context, path string) error {
	result, err := h.runner.Run(ctx, runner.Command{
		Name: "brew",
		Args: []string{"bundle", "dump", "--force", "--file=" + path},
	})
	if err != nil {
		return err
	}
	if !result.Success() {
		return fmt.Errorf("brew bundle dump: %s", result.Output())
	}
	return nil
}
