package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func run(t *testing.T, stdin string, args ...string) (stdout string, err error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCmd(&out)
	cmd.SetArgs(args)

	if stdin != "" {
		r, w, perr := os.Pipe()
		require.NoError(t, perr)
		oldStdin := os.Stdin
		os.Stdin = r
		defer func() { os.Stdin = oldStdin }()
		go func() {
			_, _ = w.WriteString(stdin)
			_ = w.Close()
		}()
	}

	err = cmd.Execute()
	return out.String(), err
}

func TestScenarioS1_CLI(t *testing.T) {
	out, err := run(t, "192.168.1.1\n10.0.0.1\n172.16.1.1\n", "192.168.0.0/16")
	require.NoError(t, err)
	require.Equal(t, "192.168.1.1\n", out)
}

func TestScenarioS2_CLI(t *testing.T) {
	out, err := run(t, "10.1.1.1\n10.2.2.2\n11.0.0.1\n", "-c", "10.0.0.0/8")
	require.NoError(t, err)
	require.Equal(t, "2\n", out)
}

func TestScenarioS3_CLI(t *testing.T) {
	out, err := run(t, "noise\n192.168.1.1\n8.8.8.8\n", "-v", "-i", "192.168.0.0/16")
	require.NoError(t, err)
	require.Equal(t, "noise\n8.8.8.8\n", out)
}

func TestScenarioS5_CLI(t *testing.T) {
	_, err := run(t, "", "-s", "192.168.1.0/23")
	require.ErrorIs(t, err, ErrUsage)
}

func TestNoMatchYieldsErrNoMatches(t *testing.T) {
	_, err := run(t, "10.0.0.1\n", "192.168.0.0/16")
	require.ErrorIs(t, err, errNoMatches)
}

func TestPatternFileFlag(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "patterns.txt")
	require.NoError(t, os.WriteFile(path, []byte("# comment\n10.0.0.0/8\n"), 0o644))

	out, err := run(t, "10.1.1.1\n192.168.1.1\n", "-f", path)
	require.NoError(t, err)
	require.Equal(t, "10.1.1.1\n", out)
}

func TestMultiplePatternFlagsAreUnioned(t *testing.T) {
	out, err := run(t, "10.0.0.1\n192.168.1.1\n172.16.0.1\n", "-e", "10.0.0.0/8", "-e", "192.168.0.0/16")
	require.NoError(t, err)
	require.Equal(t, "10.0.0.1\n192.168.1.1\n", out)
}

func TestExactFlag(t *testing.T) {
	out, err := run(t, "10.0.0.1\nprefix 10.0.0.1 suffix\n", "-x", "10.0.0.0/8")
	require.NoError(t, err)
	require.Equal(t, "10.0.0.1\n", out)
}

func TestMissingPatternIsUsageError(t *testing.T) {
	_, err := run(t, "")
	require.ErrorIs(t, err, ErrUsage)
}

func TestUnreadablePatternFileIsUsageError(t *testing.T) {
	_, err := run(t, "", "-f", "/nonexistent/path/to/patterns.txt")
	require.ErrorIs(t, err, ErrUsage)
}

func TestStatsFormatJSON(t *testing.T) {
	var out bytes.Buffer
	var errBuf bytes.Buffer
	cmd := NewRootCmd(&out)
	cmd.SetErr(&errBuf)
	cmd.SetArgs([]string{"--stats-format", "json", "192.168.0.0/16"})

	r, w, perr := os.Pipe()
	require.NoError(t, perr)
	oldStdin := os.Stdin
	os.Stdin = r
	defer func() { os.Stdin = oldStdin }()
	go func() {
		_, _ = w.WriteString("192.168.1.1\n")
		_ = w.Close()
	}()

	err := cmd.Execute()
	require.NoError(t, err)
	require.Contains(t, errBuf.String(), "v4_ranges")
}
