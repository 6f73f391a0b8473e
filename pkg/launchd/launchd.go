// Package launchd manages the LaunchAgent that schedules daily runs.
//
// The agent descriptor is rendered from a template, written atomically
// to ~/Library/LaunchAgents, and loaded and unloaded with launchctl.
package launchd

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/dshills/brewvault/pkg/runner"
)

// Label identifies the LaunchAgent to launchd.
const Label = "com.dshills.brewvault"

// Job describes the scheduled invocation written into the plist.
type Job struct {
	// Program is the absolute path of the executable launchd runs.
	Program string
	// Args are the arguments after the program path.
	Args []string
	// Hour and Minute form the daily StartCalendarInterval.
	Hour   int
	Minute int
	// StdoutPath and StderrPath receive the process output captured
	// by launchd.
	StdoutPath string
	StderrPath string
}

const plistTemplateText = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
	<key>Label</key>
	<string>{{xml .Label}}</string>
	<key>ProgramArguments</key>
	<array>
		<string>{{xml .Program}}</string>
{{- range .Args}}
		<string>{{xml .}}</string>
{{- end}}
	</array>
	<key>StartCalendarInterval</key>
	<dict>
		<key>Hour</key>
		<integer>{{.Hour}}</integer>
		<key>Minute</key>
		<integer>{{.Minute}}</integer>
	</dict>
	<key>RunAtLoad</key>
	<false/>
	<key>StandardOutPath</key>
	<string>{{xml .StdoutPath}}</string>
	<key>StandardErrorPath</key>
	<string>{{xml .StderrPath}}</string>
</dict>
</plist>
`

var plistTemplate = template.Must(template.New("plist").Funcs(template.FuncMap{
	"xml": xmlEscape,
}).Parse(plistTemplateText))

func xmlEscape(s string) string {
	var buf bytes.Buffer
	_ = xml.EscapeText(&buf, []byte(s))
	return buf.String()
}

// plistData is the template's view of a Job plus the fixed label.
type plistData struct {
	Label string
	Job
}

// RenderPlist produces the plist document for a job.
func RenderPlist(job Job) (string, error) {
	if job.Program == "" {
		return "", fmt.Errorf("job program cannot be empty")
	}
	if job.Hour < 0 || job.Hour > 23 {
		return "", fmt.Errorf("hour must be between 0 and 23, got %d", job.Hour)
	}
	if job.Minute < 0 || job.Minute > 59 {
		return "", fmt.Errorf("minute must be between 0 and 59, got %d", job.Minute)
	}

	var out strings.Builder
	if err := plistTemplate.Execute(&out, plistData{Label: Label, Job: job}); err != nil {
		return "", fmt.Errorf("failed to render plist: %w", err)
	}
	return out.String(), nil
}

// PlistPath returns the agent descriptor location in the user's
// LaunchAgents directory.
func PlistPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(home, "Library", "LaunchAgents", Label+".plist"), nil
}

// Status reports whether the agent descriptor exists and whether
// launchd currently has the job loaded.
type Status struct {
	PlistPath string
	Installed bool
	Loaded    bool
}

// Manager installs, removes, and inspects the LaunchAgent.
type Manager struct {
	runner    runner.Runner
	plistPath string
}

// NewManager creates a manager for the default agent location.
func NewManager(r runner.Runner) (*Manager, error) {
	path, err := PlistPath()
	if err != nil {
		return nil, err
	}
	return NewManagerWithPath(r, path), nil
}

// NewManagerWithPath creates a manager with a custom plist path.
// Useful for testing.
func NewManagerWithPath(r runner.Runner, plistPath string) *Manager {
	return &Manager{runner: r, plistPath: plistPath}
}

// PlistPath returns the descriptor path this manager operates on.
func (m *Manager) PlistPath() string {
	return m.plistPath
}

// Install writes the agent descriptor and loads it. An already-loaded
// agent is unloaded first so launchd picks up the new schedule.
func (m *Manager) Install(ctx context.Context, job Job) error {
	content, err := RenderPlist(job)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(m.plistPath), 0755); err != nil {
		return fmt.Errorf("failed to create LaunchAgents directory: %w", err)
	}

	// Unload any previous version; a never-loaded agent makes this fail,
	// which is fine.
	_, _ = m.launchctl(ctx, "unload", m.plistPath)

	if err := writeFileAtomic(m.plistPath, []byte(content)); err != nil {
		return fmt.Errorf("failed to write plist: %w", err)
	}

	result, err := m.launchctl(ctx, "load", "-w", m.plistPath)
	if err != nil {
		return fmt.Errorf("failed to run launchctl: %w", err)
	}
	if !result.Success() {
		return fmt.Errorf("launchctl load: %s", result.Output())
	}
	return nil
}

// Uninstall unloads the agent and removes the descriptor. Uninstalling
// an agent that was never installed is not an error.
func (m *Manager) Uninstall(ctx context.Context) error {
	if _, err := os.Stat(m.plistPath); os.IsNotExist(err) {
		return nil
	}

	result, err := m.launchctl(ctx, "unload", "-w", m.plistPath)
	if err != nil {
		return fmt.Errorf("failed to run launchctl: %w", err)
	}
	if !result.Success() {
		return fmt.Errorf("launchctl unload: %s", result.Output())
	}

	if err := os.Remove(m.plistPath); err != nil {
		return fmt.Errorf("failed to remove plist: %w", err)
	}
	return nil
}

// Inspect reports the descriptor and launchd state of the agent.
func (m *Manager) Inspect(ctx context.Context) (Status, error) {
	status := Status{PlistPath: m.plistPath}

	if _, err := os.Stat(m.plistPath); err == nil {
		status.Installed = true
	} else if !os.IsNotExist(err) {
		return status, fmt.Errorf("failed to stat plist: %w", err)
	}

	result, err := m.launchctl(ctx, "list")
	if err != nil {
		return status, fmt.Errorf("failed to run launchctl: %w", err)
	}
	if !result.Success() {
		return status, fmt.Errorf("launchctl list: %s", result.Output())
	}
	for _, line := range strings.Split(result.Stdout, "\n") {
		if strings.HasSuffix(strings.TrimSpace(line), Label) {
			status.Loaded = true
			break
		}
	}

	return status, nil
}

func (m *Manager) launchctl(ctx context.Context, args ...string) (runner.Result, error) {
	return m.runner.Run(ctx, runner.Command{Name: "launchctl", Args: args})
}

// writeFileAtomic writes content to a temporary file in the target
// directory and renames it into place.
func writeFileAtomic(path string, content []byte) error {
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, content, 0644); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return nil
}
