package states

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadTable(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "states.yaml")
	const doc = `
states:
  - speedup: 0.1
    cost: 0.1
    idle_partner: 1
  - speedup: 1.0
    cost: 1.0
  - speedup: 2.0
    cost: 2.0
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	tbl, err := LoadTable(path)
	require.NoError(t, err)
	require.Len(t, tbl, 3)
	assert.Equal(t, 0.1, tbl[0].Speedup)
	assert.Equal(t, 1, tbl[0].IdlePartner)
	assert.True(t, tbl[0].IsIdle())
}

func TestLoadTable_MissingFile(t *testing.T) {
	_, err := LoadTable("/nonexistent/path/states.yaml")
	assert.Error(t, err)
}

func TestLoadTable_InvalidTableIsRejected(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "states.yaml")
	require.NoError(t, os.WriteFile(path, []byte("states: []\n"), 0o644))

	_, err := LoadTable(path)
	assert.Error(t, err)
}

func TestDefaultTable(t *testing.T) {
	tbl := DefaultTable()
	require.NoError(t, tbl.Validate())
}
