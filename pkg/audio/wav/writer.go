// Package wav reads and writes 16-bit PCM WAV data as rtc.AudioFrame sequences.
// It backs the spoken-question input and the file sink for synthesized advice.
package wav

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/chriscow/eco-go/pkg/rtc"
)

const headerSize = 44

// Writer streams audio frames into a WAV container. Sizes in the header are
// patched on Close, so the destination must be seekable.
type Writer struct {
	w           io.WriteSeeker
	closer      io.Closer
	sampleRate  uint32
	numChannels uint16
	dataBytes   uint32
}

// Create creates a WAV file at path.
func Create(path string, sampleRate, numChannels int) (*Writer, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create WAV file: %w", err)
	}
	w, err := NewWriter(file, sampleRate, numChannels)
	if err != nil {
		file.Close()
		return nil, err
	}
	w.closer = file
	return w, nil
}

// NewWriter writes a placeholder header to ws and returns a Writer.
func NewWriter(ws io.WriteSeeker, sampleRate, numChannels int) (*Writer, error) {
	if sampleRate <= 0 || numChannels < 1 || numChannels > 2 {
		return nil, fmt.Errorf("unsupported WAV format: %dHz %d channels", sampleRate, numChannels)
	}
	w := &Writer{
		w:           ws,
		sampleRate:  uint32(sampleRate),
		numChannels: uint16(numChannels),
	}
	if _, err := ws.Write(header(w.sampleRate, w.numChannels, 0)); err != nil {
		return nil, fmt.Errorf("failed to write WAV header: %w", err)
	}
	return w, nil
}

// WriteFrame appends a frame. The frame format must match the writer's.
func (w *Writer) WriteFrame(frame rtc.AudioFrame) error {
	if w.w == nil {
		return errors.New("wav writer is closed")
	}
	if uint32(frame.SampleRate) != w.sampleRate || uint16(frame.NumChannels) != w.numChannels {
		return fmt.Errorf("frame format %dHz/%dch does not match writer %dHz/%dch",
			frame.SampleRate, frame.NumChannels, w.sampleRate, w.numChannels)
	}
	n, err := w.w.Write(frame.Data)
	w.dataBytes += uint32(n)
	if err != nil {
		return fmt.Errorf("failed to write samples: %w", err)
	}
	return nil
}

// Close patches the RIFF and data sizes and closes the underlying file, if any.
func (w *Writer) Close() error {
	if w.w == nil {
		return nil
	}
	ws := w.w
	w.w = nil

	var sizes [4]byte
	binary.LittleEndian.PutUint32(sizes[:], w.dataBytes+headerSize-8)
	if _, err := ws.Seek(4, io.SeekStart); err != nil {
		return fmt.Errorf("failed to seek to chunk size: %w", err)
	}
	if _, err := ws.Write(sizes[:]); err != nil {
		return fmt.Errorf("failed to write chunk size: %w", err)
	}

	binary.LittleEndian.PutUint32(sizes[:], w.dataBytes)
	if _, err := ws.Seek(40, io.SeekStart); err != nil {
		return fmt.Errorf("failed to seek to data size: %w", err)
	}
	if _, err := ws.Write(sizes[:]); err != nil {
		return fmt.Errorf("failed to write data size: %w", err)
	}

	if w.closer != nil {
		return w.closer.Close()
	}
	return nil
}

// Encode renders frames as a complete in-memory WAV file. All frames must
// share the first frame's format.
func Encode(frames []rtc.AudioFrame) ([]byte, error) {
	if len(frames) == 0 {
		return nil, errors.New("no frames to encode")
	}
	sampleRate := uint32(frames[0].SampleRate)
	numChannels := uint16(frames[0].NumChannels)

	var data bytes.Buffer
	for i, f := range frames {
		if uint32(f.SampleRate) != sampleRate || uint16(f.NumChannels) != numChannels {
			return nil, fmt.Errorf("frame %d format %dHz/%dch differs from first frame", i, f.SampleRate, f.NumChannels)
		}
		data.Write(f.Data)
	}

	out := make([]byte, 0, headerSize+data.Len())
	out = append(out, header(sampleRate, numChannels, uint32(data.Len()))...)
	return append(out, data.Bytes()...), nil
}

func header(sampleRate uint32, numChannels uint16, dataBytes uint32) []byte {
	const bitsPerSample = 16
	h := make([]byte, headerSize)
	copy(h[0:4], "RIFF")
	binary.LittleEndian.PutUint32(h[4:8], dataBytes+headerSize-8)
	copy(h[8:12], "WAVE")
	copy(h[12:16], "fmt ")
	binary.LittleEndian.PutUint32(h[16:20], 16)
	binary.LittleEndian.PutUint16(h[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(h[22:24], numChannels)
	binary.LittleEndian.PutUint32(h[24:28], sampleRate)
	binary.LittleEndian.PutUint32(h[28:32], sampleRate*uint32(numChannels)*bitsPerSample/8)
	binary.LittleEndian.PutUint16(h[32:34], numChannels*bitsPerSample/8)
	binary.LittleEndian.PutUint16(h[34:36], bitsPerSample)
	copy(h[36:40], "data")
	binary.LittleEndian.PutUint32(h[40:44], dataBytes)
	return h
}
