package commands

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	RootCmd.SetOut(&out)
	RootCmd.SetArgs([]string{"version"})
	defer RootCmd.SetArgs(nil)

	require.NoError(t, RootCmd.Execute())
	assert.Equal(t, "locshare version unset\n", out.String())
}

func TestRunCommand_MissingConfig(t *testing.T) {
	RootCmd.SetArgs([]string{"run", "--config", filepath.Join(t.TempDir(), "missing.yaml")})
	defer RootCmd.SetArgs(nil)

	err := RootCmd.Execute()
	assert.ErrorContains(t, err, "failed to load configuration")
}

func TestRootFlags(t *testing.T) {
	f := RootCmd.PersistentFlags().Lookup("config")
	require.NotNil(t, f)
	assert.Equal(t, "configs/config.yaml", f.DefValue)
	assert.NotNil(t, RootCmd.PersistentFlags().Lookup("log-level"))
}
