package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandPath(t *testing.T) {
	t.Setenv("HOME", "/home/tester")
	t.Setenv("FLOW_DATA", "/srv/flow")

	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"~", "/home/tester"},
		{"~/flow.db", "/home/tester/flow.db"},
		{"$FLOW_DATA/flow.db", "/srv/flow/flow.db"},
		{"/abs/flow.db", "/abs/flow.db"},
		{"relative/~/flow.db", "relative/~/flow.db"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ExpandPath(tt.in))
		})
	}
}

func TestConfigDir(t *testing.T) {
	t.Setenv("HOME", "/home/tester")

	t.Setenv("XDG_CONFIG_HOME", "")
	dir, err := ConfigDir()
	require.NoError(t, err)
	assert.Equal(t, "/home/tester/.config/flow", dir)

	t.Setenv("XDG_CONFIG_HOME", "/etc/xdg")
	dir, err = ConfigDir()
	require.NoError(t, err)
	assert.Equal(t, "/etc/xdg/flow", dir)

	t.Setenv("XDG_CONFIG_HOME", "relative/config")
	dir, err = ConfigDir()
	require.NoError(t, err)
	assert.Equal(t, "/home/tester/.config/flow", dir)
}

func TestDefaultDatabasePath(t *testing.T) {
	t.Setenv("HOME", "/home/tester")

	t.Setenv("XDG_DATA_HOME", "")
	assert.Equal(t, "/home/tester/.local/share/flow/flow.db", DefaultDatabasePath())

	t.Setenv("XDG_DATA_HOME", "/srv/data")
	assert.Equal(t, "/srv/data/flow/flow.db", DefaultDatabasePath())
}
