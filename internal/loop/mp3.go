package loop

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/hajimehoshi/go-mp3"
)

// FromMP3 decodes an MP3 file. The decoder always yields 16-bit stereo.
func FromMP3(path string, offset int) (*Signal, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	dec, err := mp3.NewDecoder(f)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	raw, err := io.ReadAll(dec)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to decode %s: %w", path, err)
	}

	// 4 bytes per stereo frame
	raw = raw[:len(raw)/4*4]
	data := make([]int16, len(raw)/2)
	for i := range data {
		data[i] = int16(binary.LittleEndian.Uint16(raw[2*i:]))
	}

	sig, err := New(data, 2, offset)
	if err != nil {
		return nil, 0, err
	}
	return sig, dec.SampleRate(), nil
}

// FromFile picks a decoder by file extension.
func FromFile(path string, offset int) (*Signal, int, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".wav":
		return FromWAV(path, offset)
	case ".mp3":
		return FromMP3(path, offset)
	default:
		return nil, 0, fmt.Errorf("unsupported loop file type %q", ext)
	}
}
