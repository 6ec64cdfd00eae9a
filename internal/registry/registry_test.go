package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister_RejectsEmptyName(t *testing.T) {
	r := New()
	err := r.Register(Descriptor{})
	require.ErrorIs(t, err, ErrEmptyName)
	assert.Equal(t, 0, r.Len())
}

func TestCatalog_PreservesOrder(t *testing.T) {
	r := New()
	require.NoError(t, r.RegisterAll(
		Descriptor{Name: "c"},
		Descriptor{Name: "a"},
		Descriptor{Name: "b"},
	))

	var names []string
	for _, d := range r.Catalog() {
		names = append(names, d.Name)
	}
	assert.Equal(t, []string{"c", "a", "b"}, names)
}

func TestRegister_AllowsDuplicates(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(Descriptor{Name: "cache.invalidate"}))
	require.NoError(t, r.Register(Descriptor{Name: "cache.invalidate"}))
	assert.Equal(t, 2, r.Len())
}

func TestRegisterAll_ReportsIndex(t *testing.T) {
	r := New()
	err := r.RegisterAll(Descriptor{Name: "a"}, Descriptor{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "descriptor 1")
	assert.Equal(t, 1, r.Len())
}

func TestRegister_CopiesSlices(t *testing.T) {
	aliases := []string{"x1", "x2"}
	deps := []string{"y"}

	r := New()
	require.NoError(t, r.Register(Descriptor{Name: "x", Aliases: aliases, Dependencies: deps}))

	aliases[0] = "mutated"
	deps[0] = "mutated"

	d := r.Catalog()[0]
	assert.Equal(t, []string{"x1", "x2"}, d.Aliases)
	assert.Equal(t, []string{"y"}, d.Dependencies)
}

func TestCatalog_ReturnsCopy(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(Descriptor{Name: "a"}))

	cat := r.Catalog()
	cat[0].Name = "changed"

	assert.Equal(t, "a", r.Catalog()[0].Name)
}

func TestDescriptor_HasTest(t *testing.T) {
	assert.False(t, Descriptor{Name: "a"}.HasTest())
	assert.True(t, Descriptor{Name: "a", Callback: func() (string, error) { return "", nil }}.HasTest())
}
