package wav

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/chriscow/eco-go/pkg/rtc"
	"github.com/matryer/is"
)

func tone(n int) []rtc.AudioFrame {
	frames := make([]rtc.AudioFrame, n)
	for i := range frames {
		data := make([]byte, 320)
		for j := range data {
			data[j] = byte(i + j)
		}
		frames[i] = rtc.AudioFrame{Data: data, SampleRate: 16000, SamplesPerChannel: 160, NumChannels: 1}
	}
	return frames
}

func TestWriterThenReader(t *testing.T) {
	is := is.New(t)
	path := filepath.Join(t.TempDir(), "advice.wav")

	w, err := Create(path, 16000, 1)
	is.NoErr(err)
	for _, f := range tone(25) {
		is.NoErr(w.WriteFrame(f))
	}
	is.NoErr(w.Close())
	is.NoErr(w.Close()) // second close is a no-op

	r, err := Open(path)
	is.NoErr(err)
	defer r.Close()

	h := r.Header()
	is.Equal(h.SampleRate, uint32(16000))
	is.Equal(h.NumChannels, uint16(1))
	is.Equal(h.DataSize, uint32(25*320))
	is.Equal(h.Duration(), 250*time.Millisecond)

	frames, err := r.ReadFrames()
	is.NoErr(err)
	is.Equal(len(frames), 25)
	is.Equal(frames[3].Data, tone(25)[3].Data)
	is.Equal(frames[24].Timestamp, 240*time.Millisecond)
}

func TestWriter_RejectsMismatchedFrame(t *testing.T) {
	is := is.New(t)
	w, err := Create(filepath.Join(t.TempDir(), "x.wav"), 16000, 1)
	is.NoErr(err)
	defer w.Close()

	err = w.WriteFrame(rtc.AudioFrame{Data: make([]byte, 960), SampleRate: 48000, NumChannels: 1})
	is.True(err != nil)
}

func TestEncodeDecode(t *testing.T) {
	is := is.New(t)

	data, err := Encode(tone(3))
	is.NoErr(err)
	is.Equal(len(data), headerSize+3*320)

	r, err := NewReader(bytes.NewReader(data))
	is.NoErr(err)
	frames, err := r.ReadFrames()
	is.NoErr(err)
	is.Equal(len(frames), 3)

	_, err = Encode(nil)
	is.True(err != nil) // nothing to encode
}

func TestReader_PadsPartialFrame(t *testing.T) {
	is := is.New(t)
	frames := tone(1)
	frames[0].Data = frames[0].Data[:100]

	data, err := Encode(frames)
	is.NoErr(err)

	r, err := NewReader(bytes.NewReader(data))
	is.NoErr(err)
	out, err := r.ReadFrames()
	is.NoErr(err)
	is.Equal(len(out), 1)
	is.Equal(len(out[0].Data), 320) // zero padded to 10ms
	is.Equal(out[0].Data[100], byte(0))
}

func TestReader_RejectsGarbage(t *testing.T) {
	is := is.New(t)
	path := filepath.Join(t.TempDir(), "bad.wav")
	is.NoErr(os.WriteFile(path, []byte("definitely not audio"), 0o644))

	_, err := Open(path)
	is.True(err != nil)
}
