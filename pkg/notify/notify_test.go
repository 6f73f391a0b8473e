package notify

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/brewvault/internal/testutil"
)

func TestNotify(t *testing.T) {
	f := testutil.NewFakeRunner().StubOK("osascript", "")
	n := New(f)

	require.NoError(t, n.Notify(context.Background(), "brewvault", "Maintenance run failed (exit 1)"))

	calls := f.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "osascript", calls[0].Name)
	require.Len(t, calls[0].Args, 2)
	assert.Equal(t, "-e", calls[0].Args[0])
	assert.Equal(t,
		`display notification "Maintenance run failed (exit 1)" with title "brewvault" sound name "default"`,
		calls[0].Args[1])
}

func TestNotifyEscapesQuotes(t *testing.T) {
	f := testutil.NewFakeRunner().StubOK("osascript", "")
	n := New(f)

	require.NoError(t, n.Notify(context.Background(), `brew "vault"`, `path is C:\tmp`))

	calls := f.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t,
		`display notification "path is C:\\tmp" with title "brew \"vault\"" sound name "default"`,
		calls[0].Args[1])
}

func TestNotifyScriptFailure(t *testing.T) {
	f := testutil.NewFakeRunner().
		StubFail("osascript", 1, "execution error: No user interaction allowed. (-1713)\n")
	n := New(f)

	err := n.Notify(context.Background(), "brewvault", "message")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "osascript: execution error: No user interaction allowed. (-1713)")
}

func TestNotifyRunnerError(t *testing.T) {
	f := testutil.NewFakeRunner().
		StubError("osascript", testutil.NotFoundError("osascript"))
	n := New(f)

	err := n.Notify(context.Background(), "brewvault", "message")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to run osascript")
}

func TestEscapeAppleScript(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "plain", input: "hello", want: "hello"},
		{name: "quotes", input: `say "hi"`, want: `say \"hi\"`},
		{name: "backslash", input: `a\b`, want: `a\\b`},
		{name: "backslash before quote", input: `\"`, want: `\\\"`},
		{name: "empty", input: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, escapeAppleScript(tt.input))
		})
	}
}

func TestNotifyEmptyStrings(t *testing.T) {
	f := testutil.NewFakeRunner().StubOK("osascript", "")
	n := New(f)

	require.NoError(t, n.Notify(context.Background(), "", ""))
	calls := f.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t,
		`display notification "" with title "" sound name "default"`,
		calls[0].Args[1])
}
