package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlugify(t *testing.T) {
	assert.Equal(t, "math-utils", Slugify("Math Utils"))
	assert.Equal(t, "hello-world", Slugify("  Hello   World "))
	assert.Equal(t, "one", Slugify("ONE"))
	assert.Equal(t, "", Slugify("   "))
}

func TestParamListValue(t *testing.T) {
	v, err := ParamList{"a", "b"}.Value()
	require.NoError(t, err)
	assert.Equal(t, "a,b", v)

	v, err = ParamList{}.Value()
	require.NoError(t, err)
	assert.Equal(t, "", v)
}

func TestParamListScan(t *testing.T) {
	var p ParamList
	require.NoError(t, p.Scan("a,b , c"))
	assert.Equal(t, ParamList{"a", "b", "c"}, p)

	require.NoError(t, p.Scan(""))
	assert.Empty(t, p)

	require.NoError(t, p.Scan(nil))
	assert.Empty(t, p)

	// Legacy JSON array tolerated.
	require.NoError(t, p.Scan(`["x","y"]`))
	assert.Equal(t, ParamList{"x", "y"}, p)

	require.NoError(t, p.Scan([]byte("one")))
	assert.Equal(t, ParamList{"one"}, p)
}
