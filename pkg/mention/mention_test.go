package mention

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalize(t *testing.T) {
	cases := map[string]string{
		"  Hello,   World! ": "hello world",
		"O’Brien":           "o'brien",
		"Jean–Luc":          "jean-luc",
		"ＡＢＣ１２３":            "abc123",
		"探偵　花子":             "探偵 花子",
	}
	for in, want := range cases {
		assert.Equal(t, want, Canonicalize(in), in)
	}
}

func TestScanMapsOffsetsToOriginal(t *testing.T) {
	d, err := Compile([]Entry{{ID: "c1", Name: "Jean-Luc Picard"}})
	require.NoError(t, err)

	text := "Then JEAN-LUC  PICARD said hello."
	var texts []string
	for _, m := range d.Scan(text) {
		assert.Equal(t, []string{"c1"}, m.IDs)
		assert.Equal(t, text[m.Start:m.End], m.Text)
		texts = append(texts, m.Text)
	}
	assert.Contains(t, texts, "JEAN-LUC  PICARD")
}

func TestScanRespectsLatinWordBoundaries(t *testing.T) {
	d, err := Compile([]Entry{{ID: "c1", Name: "Ann"}})
	require.NoError(t, err)

	assert.Empty(t, d.Scan("The annex was empty."))
	assert.Len(t, d.Scan("Ann opened the door."), 1)
}

func TestScanFindsCJKInsideRunningText(t *testing.T) {
	d, err := Compile([]Entry{{ID: "c1", Name: "花子"}, {ID: "c2", Name: "太郎"}})
	require.NoError(t, err)

	counts := d.Count("花子は太郎に会い、花子が笑った。")
	assert.Equal(t, 2, counts["c1"])
	assert.Equal(t, 1, counts["c2"])
	assert.Equal(t, []string{"c1", "c2"}, Ranked(counts))
}

func TestAutoAliases(t *testing.T) {
	d, err := Compile([]Entry{{ID: "c1", Name: "Sherlock Holmes", Aliases: []string{"The Detective"}}})
	require.NoError(t, err)

	assert.Equal(t, []string{"c1"}, d.Lookup("holmes"))
	assert.Equal(t, []string{"c1"}, d.Lookup("Sherlock"))
	assert.Equal(t, []string{"c1"}, d.Lookup("the detective"))
	assert.Nil(t, d.Lookup("watson"))
}

func TestEmptyDictionary(t *testing.T) {
	d, err := Compile(nil)
	require.NoError(t, err)
	assert.Nil(t, d.Scan("anything"))
}

func TestKeywords(t *testing.T) {
	assert.Equal(t, []string{"secret", "key", "library"}, Keywords("The secret key of the Library, the KEY"))
	assert.Equal(t, []string{"鍵"}, Keywords("鍵"))
	assert.Empty(t, Keywords("a the of"))
}
