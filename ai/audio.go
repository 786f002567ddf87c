package ai

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/poiesic/medscribe/core"
)

// AudioFormat is a recognised audio container.
type AudioFormat string

const (
	AudioWAV  AudioFormat = "wav"
	AudioMP3  AudioFormat = "mp3"
	AudioFLAC AudioFormat = "flac"
	AudioOGG  AudioFormat = "ogg"
	AudioM4A  AudioFormat = "m4a"
	AudioWebM AudioFormat = "webm"
)

// DetectAudioFormat identifies the container from its leading bytes.
// Returns core.ErrUnsupportedMedia for anything else.
func DetectAudioFormat(data []byte) (AudioFormat, error) {
	switch {
	case len(data) >= 12 && bytes.Equal(data[0:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WAVE")):
		return AudioWAV, nil
	case bytes.HasPrefix(data, []byte("fLaC")):
		return AudioFLAC, nil
	case bytes.HasPrefix(data, []byte("OggS")):
		return AudioOGG, nil
	case bytes.HasPrefix(data, []byte{0x1A, 0x45, 0xDF, 0xA3}):
		return AudioWebM, nil
	case len(data) >= 8 && bytes.Equal(data[4:8], []byte("ftyp")):
		return AudioM4A, nil
	case bytes.HasPrefix(data, []byte("ID3")):
		return AudioMP3, nil
	case len(data) >= 2 && data[0] == 0xFF && data[1]&0xE0 == 0xE0:
		return AudioMP3, nil
	}
	return "", fmt.Errorf("%w: unrecognised audio container", core.ErrUnsupportedMedia)
}

// WAVDuration reads the playback length from a WAV header.
// ok is false when the header lacks a usable fmt or data chunk.
func WAVDuration(data []byte) (d time.Duration, ok bool) {
	if len(data) < 12 {
		return 0, false
	}
	var byteRate uint32
	pos := 12
	for pos+8 <= len(data) {
		id := string(data[pos : pos+4])
		size := binary.LittleEndian.Uint32(data[pos+4 : pos+8])
		body := pos + 8
		switch id {
		case "fmt ":
			if body+12 > len(data) {
				return 0, false
			}
			byteRate = binary.LittleEndian.Uint32(data[body+8 : body+12])
		case "data":
			if byteRate == 0 {
				return 0, false
			}
			seconds := float64(size) / float64(byteRate)
			return time.Duration(seconds * float64(time.Second)), true
		}
		// Chunks are word aligned
		pos = body + int(size) + int(size&1)
	}
	return 0, false
}

// CheckAudio validates audio before it is sent for transcription.
// It rejects empty and unrecognised audio, and WAV recordings longer than maxDuration.
func CheckAudio(audio core.Audio, maxDuration time.Duration) (AudioFormat, error) {
	if len(audio.Data) == 0 {
		return "", fmt.Errorf("%w: audio is empty", core.ErrInvalidInput)
	}
	format, err := DetectAudioFormat(audio.Data)
	if err != nil {
		return "", err
	}
	if format == AudioWAV && maxDuration > 0 {
		if d, ok := WAVDuration(audio.Data); ok && d > maxDuration {
			return "", fmt.Errorf("%w: audio duration %s exceeds maximum %s",
				core.ErrInvalidInput, d.Round(time.Second), maxDuration)
		}
	}
	return format, nil
}
