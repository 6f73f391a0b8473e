// Package notify raises macOS desktop notifications via osascript.
package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/dshills/brewvault/pkg/runner"
)

// OSANotifier delivers notifications through the osascript binary.
type OSANotifier struct {
	runner runner.Runner
}

// New creates a notifier backed by osascript.
func New(r runner.Runner) *OSANotifier {
	return &OSANotifier{runner: r}
}

// Notify displays a notification with the default sound.
func (n *OSANotifier) Notify(ctx context.Context, title, message string) error {
	script := fmt.Sprintf(
		`display notification "%s" with title "%s" sound name "default"`,
		escapeAppleScript(message), escapeAppleScript(title),
	)

	result, err := n.runner.Run(ctx, runner.Command{
		Name: "osascript",
		Args: []string{"-e", script},
	})
	if err != nil {
		return fmt.Errorf("failed to run osascript: %w", err)
	}
	if !result.Success() {
		return fmt.Errorf("osascript: %s", result.Output())
	}
	return nil
}

func escapeAppleScript(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return s
}
