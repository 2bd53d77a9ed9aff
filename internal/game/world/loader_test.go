package world

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/skirmish/internal/game/geom"
)

const pitYAML = `
arena:
  id: pit
  name: The Pit
  domain: overworld
  bot_count: 4
  profile: medium
  min: [-10, 0, -10]
  max: [10, 8, 10]
  floor: 0
  blocks:
    - min: [3, 1, 5]
      max: [3, 2, -5]
`

func TestLoadArenaFromBytes(t *testing.T) {
	a, err := LoadArenaFromBytes([]byte(pitYAML))
	require.NoError(t, err)
	assert.Equal(t, "pit", a.ID)
	assert.Equal(t, "overworld", a.Domain())
	assert.True(t, a.Enabled, "enabled defaults to true")
	assert.Equal(t, 4, a.BotCount)
	assert.Equal(t, geom.V(-10, 0, -10), a.Bounds.Min)
	require.NotNil(t, a.Floor)
	assert.Equal(t, 0, *a.Floor)
	require.Len(t, a.Blocks, 1)
	assert.Equal(t, Box{Min: geom.C(3, 1, -5), Max: geom.C(3, 2, 5)}, a.Blocks[0])
}

func TestLoadArenaFromBytes_Disabled(t *testing.T) {
	a, err := LoadArenaFromBytes([]byte(`
arena:
  id: quiet
  name: Quiet
  domain: overworld
  enabled: false
  min: [0, 0, 0]
  max: [4, 4, 4]
`))
	require.NoError(t, err)
	assert.False(t, a.Enabled)
	assert.Nil(t, a.Floor)
}

func TestLoadArenaFromBytes_Errors(t *testing.T) {
	cases := map[string]string{
		"missing id":     "arena:\n  name: X\n  domain: d\n  min: [0,0,0]\n  max: [1,1,1]\n",
		"missing domain": "arena:\n  id: x\n  name: X\n  min: [0,0,0]\n  max: [1,1,1]\n",
		"short corner":   "arena:\n  id: x\n  name: X\n  domain: d\n  min: [0,0]\n  max: [1,1,1]\n",
		"negative count": "arena:\n  id: x\n  name: X\n  domain: d\n  bot_count: -1\n  min: [0,0,0]\n  max: [1,1,1]\n",
		"bad yaml":       "arena: [",
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadArenaFromBytes([]byte(data))
			assert.Error(t, err)
		})
	}
}

func TestLoadArenasFromDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pit.yaml"), []byte(pitYAML), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("# arenas"), 0o644))

	arenas, err := LoadArenasFromDir(dir)
	require.NoError(t, err)
	require.Len(t, arenas, 1)
	assert.Equal(t, "pit", arenas[0].ID)

	_, err = LoadArenasFromDir(t.TempDir())
	assert.ErrorContains(t, err, "no arena files")
}

func TestManager_IndexesArenas(t *testing.T) {
	a, err := LoadArenaFromBytes([]byte(pitYAML))
	require.NoError(t, err)
	b := &Arena{ID: "annex", Name: "Annex", Bounds: geom.NewBounds("overworld", geom.V(0, 0, 0), geom.V(5, 5, 5))}

	m, err := NewManager([]*Arena{a, b})
	require.NoError(t, err)
	assert.Equal(t, 2, m.Count())
	all := m.All()
	assert.Equal(t, "annex", all[0].ID)
	assert.Len(t, m.Enabled(), 1)

	require.NoError(t, m.SetEnabled("annex", true))
	assert.Len(t, m.Enabled(), 2)
	assert.Error(t, m.SetEnabled("nowhere", true))

	_, err = NewManager([]*Arena{a, a})
	assert.ErrorContains(t, err, "duplicate arena ID")
}

func TestLoadArenasFromDir_ShippedContent(t *testing.T) {
	arenas, err := LoadArenasFromDir(filepath.Join("..", "..", "..", "content", "arenas"))
	require.NoError(t, err)
	m, err := NewManager(arenas)
	require.NoError(t, err)
	assert.Equal(t, 3, m.Count())
	assert.False(t, m.IsEnabled("gauntlet"))
	assert.True(t, m.IsEnabled("pit"))
}
