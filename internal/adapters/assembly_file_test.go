package adapters

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Vector-Wangel/lerobot/internal/types"
)

func TestLoadAssemblyShared(t *testing.T) {
	adapter := NewAssemblyFileAdapter()
	cfg, err := adapter.LoadAssembly("../../fixtures/xlerobot.yaml")
	require.NoError(t, err)

	assert.Equal(t, types.BusModeShared, cfg.Mode)

	require.Len(t, cfg.Buses, 1)
	chassis := cfg.Buses["chassis"]
	assert.Equal(t, types.BusTypeFeetech, chassis.Type)
	assert.Equal(t, "/dev/ttyACM0", chassis.Port)
	assert.Equal(t, 0, chassis.ProtocolVersion)
	assert.True(t, chassis.HandshakeOnConnect)

	require.Len(t, cfg.Components, 4)
	right := cfg.Components[1]
	assert.Equal(t, "right_arm", right.Name)
	assert.Equal(t, "so101_follower", right.Type)
	assert.Equal(t, "arm", right.Role)
	assert.Equal(t, "chassis", right.Bus)
	assert.Equal(t, "right_", right.Prefix)
	assert.Equal(t, 6, right.IDOffset)
	assert.Equal(t, []string{"right"}, right.ActionAliases)

	head := cfg.Components[3]
	assert.Equal(t, map[string]any{"id": "head"}, head.Config)
}

func TestLoadAssemblySeparate(t *testing.T) {
	adapter := NewAssemblyFileAdapter()
	cfg, err := adapter.LoadAssembly("../../fixtures/so101-separate.yaml")
	require.NoError(t, err)

	assert.Equal(t, types.BusModeSeparate, cfg.Mode)
	assert.Empty(t, cfg.Buses)
	require.Len(t, cfg.Components, 2)
	assert.Equal(t, "/dev/ttyACM1", cfg.Components[1].Config["port"])
}

func TestLoadAssemblyDefaultsToSharedMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "assembly.yaml")
	content := "buses:\n  chassis:\n    type: feetech\n    port: /dev/ttyACM0\ncomponents:\n  - name: arm\n    type: so101_follower\n    bus: chassis\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := NewAssemblyFileAdapter().LoadAssembly(path)
	require.NoError(t, err)
	assert.Equal(t, types.BusModeShared, cfg.Mode)
}

func TestLoadAssemblyMissingFile(t *testing.T) {
	_, err := NewAssemblyFileAdapter().LoadAssembly("../../fixtures/no-such-assembly.yaml")
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeNotFound, errbuilder.CodeOf(err))
}

func TestLoadAssemblyBadYaml(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("components: {not: [a, list"), 0o644))

	_, err := NewAssemblyFileAdapter().LoadAssembly(path)
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeInvalidArgument, errbuilder.CodeOf(err))
}
