package rtc

import (
	"image"
	"testing"
	"time"
)

func TestNewAudioFrame(t *testing.T) {
	tests := []struct {
		name        string
		sampleRate  int
		numChannels int
		dataLen     int
		wantErr     bool
	}{
		{name: "valid 48kHz mono", sampleRate: 48000, numChannels: 1, dataLen: 960},
		{name: "valid 16kHz mono", sampleRate: 16000, numChannels: 1, dataLen: 320},
		{name: "valid 48kHz stereo", sampleRate: 48000, numChannels: 2, dataLen: 1920},
		{name: "invalid data length", sampleRate: 48000, numChannels: 1, dataLen: 100, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame, err := NewAudioFrame(make([]byte, tt.dataLen), tt.sampleRate, tt.numChannels, 0)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if frame.Duration() != 10*time.Millisecond {
				t.Errorf("expected 10ms frame, got %v", frame.Duration())
			}
		})
	}
}

func TestVideoFrameEmpty(t *testing.T) {
	var frame VideoFrame
	if !frame.Empty() {
		t.Error("zero VideoFrame should be empty")
	}

	frame.Image = image.NewRGBA(image.Rect(0, 0, 4, 4))
	if frame.Empty() {
		t.Error("frame with pixels should not be empty")
	}
}
