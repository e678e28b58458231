package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestValidate checks required fields and format validations for Config.
func TestValidate(t *testing.T) {
	t.Parallel()

	// Missing socket.
	err := Validate(new(Config))
	require.Error(t, err)

	// Bad socket.
	err = Validate(&Config{ServerAddress: "bad:address"})
	require.Error(t, err)

	// Bad metrics socket.
	err = Validate(&Config{ServerAddress: "127.0.0.1:0", MetricsAddress: "nope"})
	require.Error(t, err)

	// Okay with defaults filled in.
	settings := &Config{ServerAddress: "127.0.0.1:0"}

	err = Validate(settings)
	require.NoError(t, err)
	require.Equal(t, DefaultTimeout, settings.Timeout)
	require.Equal(t, StorageFile, settings.Storage.Driver)
	require.Equal(t, DefaultStateFilename, settings.Storage.Path)
	require.Equal(t, ClassifierRandom, settings.Classifier.Driver)
	require.InDelta(t, DefaultConfidenceThreshold, settings.Classifier.ConfidenceThreshold, 0.001)
	require.Equal(t, PolicyEscalate, settings.Policy.DisarmedActivation)
	require.Equal(t, PolicyIgnore, settings.Policy.AwayCat)
	require.Equal(t, PolicyEscalate, settings.Policy.RepeatedActivation)
}

// TestValidate_Drivers checks the per-driver defaults and rejection of unknown values.
func TestValidate_Drivers(t *testing.T) {
	t.Parallel()

	settings := &Config{
		ServerAddress: "127.0.0.1:0",
		Storage:       Storage{Driver: StorageBadger},
	}
	require.NoError(t, Validate(settings))
	require.Equal(t, DefaultBadgerDir, settings.Storage.Path)

	settings = &Config{
		ServerAddress: "127.0.0.1:0",
		Storage:       Storage{Driver: StorageMemory},
	}
	require.NoError(t, Validate(settings))
	require.Empty(t, settings.Storage.Path)

	cases := []*Config{
		{ServerAddress: "127.0.0.1:0", Storage: Storage{Driver: "redis"}},
		{ServerAddress: "127.0.0.1:0", Classifier: Classifier{Driver: "neural"}},
		{ServerAddress: "127.0.0.1:0", Classifier: Classifier{ConfidenceThreshold: 101}},
		{ServerAddress: "127.0.0.1:0", Policy: Policy{DisarmedActivation: "maybe"}},
		{ServerAddress: "127.0.0.1:0", Policy: Policy{AwayCat: "escalate"}},
		{ServerAddress: "127.0.0.1:0", Policy: Policy{RepeatedActivation: "alarm"}},
	}
	for _, c := range cases {
		require.Error(t, Validate(c))
	}
}

// TestSaveLoadRoundtrip ensures settings are persisted and loaded back correctly.
func TestSaveLoadRoundtrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "settings.yaml")

	policy := Policy{
		DisarmedActivation: PolicyIgnore,
		AwayCat:            PolicyAlarm,
		RepeatedActivation: PolicyIgnore,
	}

	settings := &Config{
		ServerAddress:  "127.0.0.1:50051",
		MetricsAddress: "127.0.0.1:9090",
		Timeout:        3 * time.Second,
		LogLevel:       "debug",
		Storage:        Storage{Driver: StorageMemory},
		Classifier:     Classifier{Driver: ClassifierStatic, ConfidenceThreshold: 75, Verdict: true},
		Policy:         policy,
	}

	require.NoError(t, Save(path, settings))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, settings, loaded)

	// File exists.
	_, err = os.Stat(path)
	require.NoError(t, err)
}

// TestSave_Nil verifies that a nil configuration is rejected.
func TestSave_Nil(t *testing.T) {
	t.Parallel()

	require.ErrorIs(t, Save(filepath.Join(t.TempDir(), "x.yaml"), nil), errConfigIsNotSet)
}
