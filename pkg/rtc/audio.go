// Package rtc holds the media frame types exchanged between frame sources,
// classifiers and speech providers.
package rtc

import (
	"fmt"
	"time"
)

// AudioFrame is a chunk of 16-bit little-endian PCM audio.
// Len(Data) == SamplesPerChannel * NumChannels * 2.
// Providers usually emit 10 ms frames; synthesized speech may arrive in larger chunks.
type AudioFrame struct {
	Data              []byte        // 16-bit PCM, little-endian
	SampleRate        int           // e.g. 16 000, 24 000 or 48 000
	SamplesPerChannel int
	NumChannels       int           // 1 or 2
	Timestamp         time.Duration // offset from the start of the stream
}

// NewAudioFrame creates a 10 ms AudioFrame, validating the data length.
func NewAudioFrame(data []byte, sampleRate, numChannels int, timestamp time.Duration) (*AudioFrame, error) {
	samplesPerChannel := sampleRate / 100
	expectedLen := samplesPerChannel * numChannels * 2

	if len(data) != expectedLen {
		return nil, fmt.Errorf("AudioFrame data length mismatch: got %d bytes, expected %d bytes for %dHz %d-channel 10ms audio",
			len(data), expectedLen, sampleRate, numChannels)
	}

	return &AudioFrame{
		Data:              data,
		SampleRate:        sampleRate,
		SamplesPerChannel: samplesPerChannel,
		NumChannels:       numChannels,
		Timestamp:         timestamp,
	}, nil
}

// Duration returns the playback duration of the frame.
func (f *AudioFrame) Duration() time.Duration {
	if f.SampleRate <= 0 {
		return 0
	}
	return time.Duration(f.SamplesPerChannel) * time.Second / time.Duration(f.SampleRate)
}
