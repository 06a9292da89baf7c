package fake

import (
	"context"
	"testing"

	"github.com/matryer/is"

	"github.com/chriscow/eco-go/pkg/plugin"
	"github.com/chriscow/eco-go/pkg/rtc"
)

func TestFakePluginsRegistered(t *testing.T) {
	is := is.New(t)
	for _, kind := range []string{plugin.KindClassifier, plugin.KindSource, plugin.KindTTS, plugin.KindSTT, plugin.KindLLM} {
		_, ok := plugin.Lookup(kind, "fake")
		is.True(ok) // every kind has a fake
	}
}

func TestFakeClassifierScript(t *testing.T) {
	is := is.New(t)
	r := plugin.Default()

	c, err := r.Classifier("fake", map[string]any{
		"labels":     []any{"NoWaste", "Organic"},
		"confidence": 0.8,
	})
	is.NoErr(err)

	frame := rtc.VideoFrame{}
	first, err := c.Predict(context.Background(), frame)
	is.NoErr(err)
	is.Equal(first[0].Label, "NoWaste")

	for i := 0; i < 3; i++ {
		res, err := c.Predict(context.Background(), frame)
		is.NoErr(err)
		is.Equal(res[0].Label, "Organic") // last label repeats
		is.Equal(res[0].Confidence, 0.8)
	}
}

func TestFakeProvidersBuild(t *testing.T) {
	is := is.New(t)
	r := plugin.Default()

	_, err := r.Source("fake", nil)
	is.NoErr(err)
	_, err = r.TTS("fake", map[string]any{"realtime": true})
	is.NoErr(err)
	_, err = r.STT("fake", map[string]any{"transcript": "is glass recyclable"})
	is.NoErr(err)
	_, err = r.LLM("fake", map[string]any{"responses": []string{"yes"}})
	is.NoErr(err)
	_, err = r.Classifier("fake", nil)
	is.NoErr(err)
}

func TestStringList(t *testing.T) {
	is := is.New(t)
	is.Equal(stringList([]any{"a", 1, "b"}), []string{"a", "b"})
	is.Equal(stringList([]string{"x"}), []string{"x"})
	is.Equal(len(stringList(nil)), 0)
}
