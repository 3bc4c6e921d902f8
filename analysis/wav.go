package analysis

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Clip holds decoded mono audio, samples normalized to [-1, 1].
type Clip struct {
	Samples    []float64
	SampleRate int
}

func (c *Clip) Duration() float64 {
	if c.SampleRate == 0 {
		return 0
	}
	return float64(len(c.Samples)) / float64(c.SampleRate)
}

var ErrUnsupportedAudio = errors.New("unsupported audio format")

// maxChunkBytes bounds how large a single RIFF chunk may claim to be. The
// length field is untrusted input and must not size an allocation on its own.
const maxChunkBytes = 32 << 20

// DecodeWAV parses a RIFF/WAVE container with 16-bit PCM samples.
// Stereo input is mixed down to mono.
func DecodeWAV(r io.Reader) (*Clip, error) {
	var header [12]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, fmt.Errorf("read RIFF header: %w", err)
	}
	if string(header[0:4]) != "RIFF" || string(header[8:12]) != "WAVE" {
		return nil, fmt.Errorf("%w: not a RIFF/WAVE file", ErrUnsupportedAudio)
	}

	var (
		channels      int
		sampleRate    int
		bitsPerSample int
		haveFmt       bool
	)

	for {
		var chunkHeader [8]byte
		if _, err := io.ReadFull(r, chunkHeader[:]); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				return nil, fmt.Errorf("%w: missing data chunk", ErrUnsupportedAudio)
			}
			return nil, fmt.Errorf("read chunk header: %w", err)
		}

		chunkID := string(chunkHeader[0:4])
		chunkLen := binary.LittleEndian.Uint32(chunkHeader[4:8])
		if chunkLen > maxChunkBytes {
			return nil, fmt.Errorf("%w: %q chunk claims %d bytes", ErrUnsupportedAudio, chunkID, chunkLen)
		}
		// Odd-length chunks are followed by a pad byte.
		pad := int64(chunkLen % 2)

		switch chunkID {
		case "fmt ":
			body := make([]byte, chunkLen)
			if _, err := io.ReadFull(r, body); err != nil {
				return nil, fmt.Errorf("read fmt chunk: %w", err)
			}
			if len(body) < 16 {
				return nil, fmt.Errorf("%w: short fmt chunk", ErrUnsupportedAudio)
			}
			audioFormat := binary.LittleEndian.Uint16(body[0:2])
			if audioFormat != 1 { // PCM
				return nil, fmt.Errorf("%w: audio format %d", ErrUnsupportedAudio, audioFormat)
			}
			channels = int(binary.LittleEndian.Uint16(body[2:4]))
			sampleRate = int(binary.LittleEndian.Uint32(body[4:8]))
			bitsPerSample = int(binary.LittleEndian.Uint16(body[14:16]))
			haveFmt = true
			if pad > 0 {
				if _, err := io.CopyN(io.Discard, r, pad); err != nil {
					return nil, fmt.Errorf("skip fmt pad byte: %w", err)
				}
			}

		case "data":
			if !haveFmt {
				return nil, fmt.Errorf("%w: data chunk before fmt", ErrUnsupportedAudio)
			}
			if bitsPerSample != 16 {
				return nil, fmt.Errorf("%w: %d bits per sample", ErrUnsupportedAudio, bitsPerSample)
			}
			if channels < 1 || channels > 2 {
				return nil, fmt.Errorf("%w: %d channels", ErrUnsupportedAudio, channels)
			}
			raw := make([]byte, chunkLen)
			if _, err := io.ReadFull(r, raw); err != nil {
				return nil, fmt.Errorf("read data chunk: %w", err)
			}
			return decodePCM16(raw, channels, sampleRate), nil

		default:
			// LIST, fact, etc.
			if _, err := io.CopyN(io.Discard, r, int64(chunkLen)+pad); err != nil {
				return nil, fmt.Errorf("skip %q chunk: %w", chunkID, err)
			}
		}
	}
}

func decodePCM16(raw []byte, channels, sampleRate int) *Clip {
	frameBytes := 2 * channels
	frames := len(raw) / frameBytes
	samples := make([]float64, frames)

	for i := 0; i < frames; i++ {
		var sum float64
		for ch := 0; ch < channels; ch++ {
			off := i*frameBytes + ch*2
			s := int16(binary.LittleEndian.Uint16(raw[off : off+2]))
			sum += float64(s) / 32768.0
		}
		samples[i] = sum / float64(channels)
	}

	return &Clip{Samples: samples, SampleRate: sampleRate}
}
