package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRaw_Empty(t *testing.T) {
	assert.Equal(t, "", Raw(""))
	assert.Equal(t, "", Raw("   \t "))
}

func TestRaw_CollapsesAndFolds(t *testing.T) {
	assert.Equal(t, "acme holding as", Raw("  Acme   Holding\tAS "))
	assert.Equal(t, "ærlig øl å", Raw("ÆRLIG ØL Å"))
}

func TestRaw_KeepsPunctuation(t *testing.T) {
	assert.Equal(t, "smith & jones a/s", Raw("Smith & Jones A/S"))
}

func TestStripTokens_Ampersand(t *testing.T) {
	set := NewTokenSet()
	assert.Equal(t, "smith og jones", StripTokens("Smith & Jones", set))
	assert.Equal(t, "smith og jones", StripTokens("Smith&Jones", set))
}

func TestStripTokens_ReplacesDisallowedRunes(t *testing.T) {
	set := NewTokenSet()
	assert.Equal(t, "joe s bygg-service", StripTokens("Joe's Bygg-Service!", set))
	assert.Equal(t, "kaffe 1 2", StripTokens("Kaffe(1).2", set))
}

func TestStripTokens_TokenRemovalNotSubstring(t *testing.T) {
	set := NewTokenSet("as")
	// "as" inside "glass" and "asker" must survive.
	assert.Equal(t, "glass asker", StripTokens("Glass Asker AS", set))
}

func TestStripTokens_SetIsFolded(t *testing.T) {
	set := NewTokenSet(" GmbH ", "")
	assert.Len(t, set, 1)
	assert.Equal(t, "acme", StripTokens("Acme GMBH", set))
	// Letters outside the alphabet split the token instead of being folded away.
	assert.Equal(t, "m ller", StripTokens("Müller GMBH", set))
}

func TestStripTokens_Idempotent(t *testing.T) {
	sets := []TokenSet{
		NewTokenSet(),
		NewTokenSet(DefaultLegalWords...),
		NewTokenSet(DefaultQualifierWords...),
		NewTokenSet("og", "and"),
	}
	inputs := []string{
		"",
		"Acme Holding AS",
		"Smith & Jones A/S",
		"  ÆØÅ Bygg-Service   Norge ",
		"Co Co Co",
		"Müller & Söhne GmbH",
		"123 Data (Norway) Int.",
	}
	for _, s := range sets {
		for _, in := range inputs {
			once := StripTokens(in, s)
			assert.Equal(t, once, StripTokens(once, s), "input %q", in)
		}
	}
}

func TestForms_AcmeHoldingAS(t *testing.T) {
	n := New([]string{"as"}, []string{"holding"})
	f := n.Forms("Acme Holding AS")
	assert.Equal(t, "acme holding as", f.Raw)
	assert.Equal(t, "acme holding", f.NoLegal)
	assert.Equal(t, "acme", f.NoQualifiers)
}

func TestForms_Defaults(t *testing.T) {
	n := New(nil, nil)
	f := n.Forms("Nordic Technology Group ASA")
	assert.Equal(t, "nordic technology group asa", f.Raw)
	assert.Equal(t, "nordic technology group", f.NoLegal)
	assert.Equal(t, "nordic", f.NoQualifiers)
}

func TestForms_OnlyStopWords(t *testing.T) {
	n := New(nil, nil)
	f := n.Forms("Holding AS")
	assert.Equal(t, "holding as", f.Raw)
	assert.Equal(t, "holding", f.NoLegal)
	assert.Equal(t, "", f.NoQualifiers)
}

func TestForms_Empty(t *testing.T) {
	n := New(nil, nil)
	f := n.Forms("")
	assert.Empty(t, f.Raw)
	assert.Empty(t, f.NoLegal)
	assert.Empty(t, f.NoQualifiers)
}

func TestNew_EmptyListsDisableStripping(t *testing.T) {
	n := New([]string{}, []string{})
	f := n.Forms("Acme Holding AS")
	assert.Equal(t, "acme holding as", f.NoLegal)
	assert.Equal(t, "acme holding as", f.NoQualifiers)
}
