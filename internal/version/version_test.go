package version

import (
	"bytes"
	"runtime/debug"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

// TestVersionStrings ensures Short and Full return non-empty consistent information.
func TestVersionStrings(t *testing.T) {
	require.NotEmpty(t, Short())
	require.Contains(t, Full(), Short())
	require.Contains(t, Full(), "go: go")
}

// TestFromBuildInfo keeps injected values and fills defaults from VCS settings.
func TestFromBuildInfo(t *testing.T) {
	oldVersion, oldCommit, oldBuildTime := Version, Commit, BuildTime

	t.Cleanup(func() {
		Version, Commit, BuildTime = oldVersion, oldCommit, oldBuildTime
	})

	Version, Commit, BuildTime = "dev", "none", "unknown"

	fromBuildInfo(&debug.BuildInfo{
		Main: debug.Module{Version: "v1.2.3"},
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "0123456789abcdef"},
			{Key: "vcs.time", Value: "2026-01-02T03:04:05Z"},
		},
	})

	require.Equal(t, "v1.2.3", Version)
	require.Equal(t, "0123456", Commit)
	require.Equal(t, "2026-01-02T03:04:05Z", BuildTime)

	Version = "2.0.0"

	fromBuildInfo(&debug.BuildInfo{Main: debug.Module{Version: "(devel)"}})
	require.Equal(t, "2.0.0", Version)
}

// TestAttachCobraVersionCommand runs the subcommand with and without --short.
func TestAttachCobraVersionCommand(t *testing.T) {
	root := &cobra.Command{Use: "alarm"}
	AttachCobraVersionCommand(root)

	var out bytes.Buffer

	root.SetOut(&out)
	root.SetArgs([]string{"version", "--short"})
	require.NoError(t, root.Execute())
	require.Equal(t, Short()+"\n", out.String())
}
