// Package audiofile decodes WAV files into the 16-bit mono PCM the
// recognizers expect.
package audiofile

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-audio/wav"
)

// ErrInvalidWAV is returned for input that is not a PCM WAV file.
var ErrInvalidWAV = errors.New("invalid wav file")

// Audio is decoded little-endian 16-bit mono PCM.
type Audio struct {
	SampleRate int
	PCM        []byte
}

// Duration returns the playing time of the audio.
func (a *Audio) Duration() time.Duration {
	if a.SampleRate <= 0 {
		return 0
	}
	samples := int64(len(a.PCM) / 2)
	return time.Duration(samples) * time.Second / time.Duration(a.SampleRate)
}

// Frames splits the PCM into frames of the given duration. The last frame may be shorter.
func (a *Audio) Frames(frame time.Duration) [][]byte {
	size := int(int64(a.SampleRate)*int64(frame)/int64(time.Second)) * 2
	if size <= 0 {
		size = len(a.PCM)
	}
	var frames [][]byte
	for start := 0; start < len(a.PCM); start += size {
		end := min(start+size, len(a.PCM))
		frames = append(frames, a.PCM[start:end])
	}
	return frames
}

// ReadFile decodes a WAV file.
func ReadFile(path string) (*Audio, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(f)
}

// Decode reads a PCM WAV file. Multi-channel audio is mixed down to mono and
// samples are rescaled to 16 bits.
func Decode(r io.ReadSeeker) (*Audio, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, ErrInvalidWAV
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode wav: %w", err)
	}
	if buf == nil || buf.Format == nil {
		return nil, ErrInvalidWAV
	}

	channels := buf.Format.NumChannels
	if channels <= 0 {
		channels = 1
	}
	bitDepth := buf.SourceBitDepth
	if bitDepth <= 0 {
		bitDepth = int(dec.BitDepth)
	}
	if bitDepth <= 0 {
		bitDepth = 16
	}

	frames := len(buf.Data) / channels
	pcm := make([]byte, frames*2)
	for i := 0; i < frames; i++ {
		sum := 0
		for c := 0; c < channels; c++ {
			sum += buf.Data[i*channels+c]
		}
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(int16(to16(sum/channels, bitDepth))))
	}

	rate := int(dec.SampleRate)
	if rate == 0 {
		rate = buf.Format.SampleRate
	}
	return &Audio{SampleRate: rate, PCM: pcm}, nil
}

// to16 rescales a sample of the given bit depth to 16 bits.
// 8-bit WAV samples are unsigned.
func to16(v, bitDepth int) int {
	switch {
	case bitDepth == 8:
		return (v - 128) << 8
	case bitDepth > 16:
		return v >> (bitDepth - 16)
	case bitDepth < 16:
		return v << (16 - bitDepth)
	default:
		return v
	}
}
