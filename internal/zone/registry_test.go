package zone

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/zone-explorer/internal/model"
)

func TestNewRegistry(t *testing.T) {
	r, err := NewRegistry([]model.Zone{
		{Code: "zoneA", Name: "Zone 1"},
		{Code: " zoneB ", Name: ""},
	})
	require.NoError(t, err)

	name, ok := r.Resolve("zoneA")
	assert.True(t, ok)
	assert.Equal(t, "Zone 1", name)

	name, ok = r.Resolve("zoneB")
	assert.True(t, ok)
	assert.Equal(t, "zoneB", name)

	_, ok = r.Resolve("zonea")
	assert.False(t, ok)
	assert.False(t, r.Contains(""))

	assert.Equal(t, []string{"zoneA", "zoneB"}, r.AllCodes())
	assert.Equal(t, 2, r.Size())
}

func TestNewRegistry_Invalid(t *testing.T) {
	_, err := NewRegistry(nil)
	assert.ErrorIs(t, err, ErrEmptyCatalog)

	_, err = NewRegistry([]model.Zone{{Code: "  ", Name: "x"}})
	assert.ErrorIs(t, err, ErrEmptyCode)

	_, err = NewRegistry([]model.Zone{{Code: "a"}, {Code: "a"}})
	assert.ErrorIs(t, err, ErrDuplicateCode)
}

func TestRegistry_ZonesIsCopy(t *testing.T) {
	r, err := NewRegistry(DefaultCatalog)
	require.NoError(t, err)

	zones := r.Zones()
	zones[0].Name = "changed"
	name, _ := r.Resolve(DefaultCatalog[0].Code)
	assert.Equal(t, "Zone 1", name)
	assert.Equal(t, 6, r.Size())
}

func TestParse(t *testing.T) {
	r, err := Parse(`
[[zone]]
code = "zone901stu"
name = "Whack a Mole Challenge"

[[zone]]
code = "zone234vwx"
name = "Cloud Mission"
`)
	require.NoError(t, err)
	assert.Equal(t, []string{"zone901stu", "zone234vwx"}, r.AllCodes())

	name, _ := r.Resolve("zone234vwx")
	assert.Equal(t, "Cloud Mission", name)
}

func TestLoad(t *testing.T) {
	r, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, len(DefaultCatalog), r.Size())

	path := filepath.Join(t.TempDir(), "zones.toml")
	require.NoError(t, os.WriteFile(path, []byte("[[zone]]\ncode = \"z1\"\nname = \"One\"\n"), 0o644))
	r, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"z1"}, r.AllCodes())

	_, err = Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}
