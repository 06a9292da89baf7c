package advice

import (
	"testing"

	"github.com/chriscow/eco-go/pkg/ai/classify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltinBooks(t *testing.T) {
	assert.Equal(t, []string{"en", "es"}, BuiltinLanguages())

	for _, lang := range BuiltinLanguages() {
		b, err := Builtin(lang)
		require.NoError(t, err, lang)
		assert.Equal(t, lang, b.Language)
		assert.NotEmpty(t, b.Fallback)
		assert.NotEmpty(t, b.Overrides)
		assert.NotEmpty(t, b.Keywords)
	}

	_, err := Builtin("fr")
	assert.Error(t, err)
}

func TestLookup_SpanishTable(t *testing.T) {
	b, err := Builtin("es")
	require.NoError(t, err)

	tests := []struct {
		question string
		contains string
	}{
		{"¿Cuánto tarda el VIDRIO?", "miles de años"},
		{"tengo una botella de plástico", "Lo mejor es reutilizarla"},    // override beats "plástico"
		{"¿y una bolsa de plástico?", "bolsas reutilizables"},           // override beats "plástico"
		{"cómo hago compostaje con cáscara", "compostaje casero"},       // override beats "cáscara"
		{"qué hago con una lata", "aluminio"},
		{"es inorgánico", "reciclarse o reutilizarse"},                  // not swallowed by "orgánico"
		{"qué es la fotosíntesis", "No tengo esa información todavía"},  // fallback
	}
	for _, tt := range tests {
		t.Run(tt.question, func(t *testing.T) {
			assert.Contains(t, b.Lookup(tt.question), tt.contains)
		})
	}
}

func TestLookup_KeywordOrderIsTableOrder(t *testing.T) {
	b, err := Parse([]byte(`
keywords:
  zeta: "last letter first"
  alpha: "first letter second"
fallback: "no idea"
`))
	require.NoError(t, err)

	require.Len(t, b.Keywords, 2)
	assert.Equal(t, "zeta", b.Keywords[0].Keys[0])
	assert.Equal(t, "last letter first", b.Lookup("alpha and zeta"))

	ans, ok := b.Match("   ")
	assert.False(t, ok)
	assert.Empty(t, ans)
	assert.Equal(t, "no idea", b.Lookup(""))
}

func TestParse_Validation(t *testing.T) {
	_, err := Parse([]byte(`keywords: [a, b]`))
	assert.Error(t, err, "keywords must be a mapping")

	_, err = Parse([]byte(`
keywords:
  plastic: "x"
`))
	assert.ErrorContains(t, err, "fallback")

	_, err = Parse([]byte(`
overrides:
  - keys: []
    answer: "x"
fallback: "y"
`))
	assert.Error(t, err)
}

func TestAnnouncement(t *testing.T) {
	b, err := Builtin("en")
	require.NoError(t, err)

	assert.Equal(t, "This is Organic. Organic. You can compost it to get natural fertilizer.", b.Announcement("Organic"))
	assert.Equal(t, "This is Metal.", b.Announcement("Metal"), "unknown labels still get the phrase")

	es, err := Builtin("es")
	require.NoError(t, err)
	assert.Equal(t, "Esto es Orgánico. Orgánico. Puedes compostarlo para obtener abono natural.", es.Announcement("Orgánico"))
}

func TestHint(t *testing.T) {
	for _, lang := range BuiltinLanguages() {
		b, err := Builtin(lang)
		require.NoError(t, err, lang)
		require.NotEmpty(t, b.LowConfidence, lang)

		weak := classify.Result{{Label: "Organic", Confidence: 0.4}, {Label: "Inorganic", Confidence: 0.3}}
		assert.Equal(t, b.LowConfidence, b.Hint(weak, 0.75), lang)
		assert.Empty(t, b.Hint(weak, 0.4), "at the threshold is confident")
		assert.Empty(t, b.Hint(classify.Result{{Label: "Organic", Confidence: 0.9}}, 0.75))
		assert.Empty(t, b.Hint(nil, 0.75), "nothing to advise without a prediction")
	}
}
