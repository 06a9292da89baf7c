package fake

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/chriscow/eco-go/pkg/ai/stt"
	"github.com/chriscow/eco-go/pkg/rtc"
	"github.com/matryer/is"
)

func utterance(frames int) stt.Utterance {
	u := stt.Utterance{}
	for i := 0; i < frames; i++ {
		u.Frames = append(u.Frames, rtc.AudioFrame{
			Data:              make([]byte, 320),
			SampleRate:        16000,
			SamplesPerChannel: 160,
			NumChannels:       1,
		})
	}
	return u
}

func TestFakeSTT_Transcribe(t *testing.T) {
	is := is.New(t)
	f := NewFakeSTT("")

	u := utterance(20)
	is.Equal(u.Duration(), 200*time.Millisecond)

	tr, err := f.Transcribe(context.Background(), u)
	is.NoErr(err)
	is.Equal(tr.Text, DefaultTranscript)
	is.Equal(tr.Language, "en")
	is.Equal(f.Calls(), 1)
}

func TestFakeSTT_TooShort(t *testing.T) {
	is := is.New(t)

	_, err := NewFakeSTT("hi").Transcribe(context.Background(), utterance(5))
	is.True(errors.Is(err, stt.ErrFatal)) // 50ms is below the minimum
}
