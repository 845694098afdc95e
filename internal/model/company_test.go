package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryRecord_Key(t *testing.T) {
	assert.Equal(t, "999", RegistryRecord{RegistryID: "999", Name: "Acme AS"}.Key())
	assert.Equal(t, "Acme AS", RegistryRecord{Name: "Acme AS"}.Key())
}

func TestMatchMethod_Priority(t *testing.T) {
	assert.Equal(t, 1, MethodRegistryID.Priority())
	assert.Equal(t, 2, MethodNameExact.Priority())
	assert.Equal(t, 3, MethodNameNoLegal.Priority())
	assert.Equal(t, 4, MethodNameNoQualif.Priority())
	assert.Equal(t, 5, MatchMethod("bogus").Priority())
}

func TestMatchMethod_Label(t *testing.T) {
	assert.Equal(t, "Org.nr", MethodRegistryID.Label())
	assert.Equal(t, "Uten juridiske + ekstra", MethodNameNoQualif.Label())
	assert.Equal(t, "bogus", MatchMethod("bogus").Label())
}

func TestParseMatchMethod(t *testing.T) {
	m, err := ParseMatchMethod("name_eq")
	require.NoError(t, err)
	assert.Equal(t, MethodNameExact, m)

	m, err = ParseMatchMethod("  uten juridiske ")
	require.NoError(t, err)
	assert.Equal(t, MethodNameNoLegal, m)

	_, err = ParseMatchMethod("soundex")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown match method")
}

func TestMatchedPair_RegistryID(t *testing.T) {
	p := MatchedPair{
		Source:   SourceRecord{RegistryID: "111"},
		Registry: RegistryRecord{RegistryID: "999"},
	}
	assert.Equal(t, "999", p.RegistryID())

	p.Registry.RegistryID = ""
	assert.Equal(t, "111", p.RegistryID())
}
