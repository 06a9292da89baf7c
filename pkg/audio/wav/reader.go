package wav

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/chriscow/eco-go/pkg/rtc"
)

// Header represents a WAV file header.
type Header struct {
	SampleRate    uint32
	NumChannels   uint16
	BitsPerSample uint16
	DataSize      uint32
}

// Duration returns the length of the audio payload.
func (h Header) Duration() time.Duration {
	bytesPerSecond := int64(h.SampleRate) * int64(h.NumChannels) * int64(h.BitsPerSample) / 8
	if bytesPerSecond == 0 {
		return 0
	}
	return time.Duration(int64(h.DataSize) * int64(time.Second) / bytesPerSecond)
}

// Reader reads WAV data and splits it into 10ms AudioFrames.
type Reader struct {
	r      io.Reader
	closer io.Closer
	header Header
}

// Open opens a WAV file.
func Open(path string) (*Reader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open WAV file: %w", err)
	}
	r, err := NewReader(file)
	if err != nil {
		file.Close()
		return nil, err
	}
	r.closer = file
	return r, nil
}

// NewReader parses the header from r and positions it at the first sample.
func NewReader(r io.Reader) (*Reader, error) {
	reader := &Reader{r: r}
	if err := reader.readHeader(); err != nil {
		return nil, fmt.Errorf("failed to read WAV header: %w", err)
	}
	return reader, nil
}

// Header returns the WAV header information.
func (r *Reader) Header() Header {
	return r.header
}

// ReadFrames reads the remaining audio as 10ms frames. The last frame is zero padded.
func (r *Reader) ReadFrames() ([]rtc.AudioFrame, error) {
	samplesPerFrame := int(r.header.SampleRate) / 100
	bytesPerFrame := samplesPerFrame * int(r.header.NumChannels) * 2
	payload := io.LimitReader(r.r, int64(r.header.DataSize))

	var frames []rtc.AudioFrame
	for i := 0; ; i++ {
		buf := make([]byte, bytesPerFrame)
		n, err := io.ReadFull(payload, buf)
		if n > 0 {
			frame, ferr := rtc.NewAudioFrame(buf, int(r.header.SampleRate), int(r.header.NumChannels), time.Duration(i)*10*time.Millisecond)
			if ferr != nil {
				return nil, ferr
			}
			frames = append(frames, *frame)
		}
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return frames, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read audio data: %w", err)
		}
	}
}

// Close closes the underlying file, if the reader owns one.
func (r *Reader) Close() error {
	if r.closer != nil {
		return r.closer.Close()
	}
	return nil
}

func (r *Reader) readHeader() error {
	var riff [12]byte
	if _, err := io.ReadFull(r.r, riff[:]); err != nil {
		return fmt.Errorf("failed to read RIFF header: %w", err)
	}
	if string(riff[0:4]) != "RIFF" || string(riff[8:12]) != "WAVE" {
		return errors.New("not a RIFF/WAVE stream")
	}

	sawFmt := false
	for {
		var chunk [8]byte
		if _, err := io.ReadFull(r.r, chunk[:]); err != nil {
			return fmt.Errorf("failed to read chunk header: %w", err)
		}
		id := string(chunk[0:4])
		size := binary.LittleEndian.Uint32(chunk[4:8])

		switch id {
		case "fmt ":
			if size < 16 {
				return fmt.Errorf("fmt chunk too small: %d bytes", size)
			}
			body := make([]byte, size)
			if _, err := io.ReadFull(r.r, body); err != nil {
				return fmt.Errorf("failed to read fmt chunk: %w", err)
			}
			if format := binary.LittleEndian.Uint16(body[0:2]); format != 1 {
				return fmt.Errorf("only PCM format is supported, got format %d", format)
			}
			r.header.NumChannels = binary.LittleEndian.Uint16(body[2:4])
			r.header.SampleRate = binary.LittleEndian.Uint32(body[4:8])
			r.header.BitsPerSample = binary.LittleEndian.Uint16(body[14:16])
			sawFmt = true

		case "data":
			if !sawFmt {
				return errors.New("data chunk before fmt chunk")
			}
			r.header.DataSize = size
			return r.validate()

		default:
			if _, err := io.CopyN(io.Discard, r.r, int64(size)); err != nil {
				return fmt.Errorf("failed to skip %q chunk: %w", id, err)
			}
		}
	}
}

func (r *Reader) validate() error {
	if r.header.BitsPerSample != 16 {
		return fmt.Errorf("only 16-bit samples are supported, got %d-bit", r.header.BitsPerSample)
	}
	if r.header.NumChannels != 1 && r.header.NumChannels != 2 {
		return fmt.Errorf("only mono and stereo are supported, got %d channels", r.header.NumChannels)
	}
	if r.header.SampleRate < 8000 || r.header.SampleRate%100 != 0 {
		return fmt.Errorf("unsupported sample rate %dHz", r.header.SampleRate)
	}
	return nil
}
