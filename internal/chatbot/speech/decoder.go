// Package speech turns uploaded audio into text with a streaming recognizer.
package speech

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-audio/wav"

	"botforge/internal/common/config"
	apperrors "botforge/internal/common/errors"
	"botforge/internal/common/logger"
)

var (
	ErrUnsupportedContainer = errors.New("UNSUPPORTED_CONTAINER")
	ErrUndecodable          = errors.New("UNDECODABLE_AUDIO")
)

// PCM is mono signed 16-bit little-endian audio.
type PCM struct {
	Samples    []byte
	SampleRate int
}

func (p PCM) Duration() time.Duration {
	if p.SampleRate <= 0 {
		return 0
	}
	frames := len(p.Samples) / 2
	return time.Duration(frames) * time.Second / time.Duration(p.SampleRate)
}

// AudioDecoder normalizes an arbitrary container into PCM at the target rate.
type AudioDecoder interface {
	Decode(ctx context.Context, data []byte) (PCM, error)
}

// Decoder reads PCM WAV at the target rate natively and hands everything else to ffmpeg.
type Decoder struct {
	ffmpegPath string
	sampleRate int
	timeout    time.Duration
	logger     logger.Logger
}

func NewDecoder(cfg config.SpeechConfig, log logger.Logger) *Decoder {
	return &Decoder{
		ffmpegPath: cfg.FFmpegPath,
		sampleRate: cfg.SampleRate,
		timeout:    config.GetDuration(cfg.DecodeTimeout),
		logger:     log.WithFields(map[string]interface{}{"component": "audio-decoder"}),
	}
}

func (d *Decoder) Decode(ctx context.Context, data []byte) (PCM, error) {
	mt := mimetype.Detect(data)
	if !isAudioContainer(mt) {
		return PCM{}, apperrors.NewDecodeError(fmt.Errorf("%w: %s", ErrUnsupportedContainer, mt.String()))
	}

	if mt.Is("audio/wav") {
		pcm, ok, err := d.decodeWAV(data)
		if err != nil {
			return PCM{}, apperrors.NewDecodeError(err)
		}
		if ok {
			return pcm, nil
		}
	}

	d.logger.Debug("decoding with ffmpeg", map[string]interface{}{"mime": mt.String(), "bytes": len(data)})
	return d.decodeFFmpeg(ctx, data)
}

func isAudioContainer(mt *mimetype.MIME) bool {
	s := mt.String()
	return strings.HasPrefix(s, "audio/") || strings.HasPrefix(s, "video/") || mt.Is("application/ogg")
}

// decodeWAV returns ok=false when the file needs resampling or is not integer PCM.
func (d *Decoder) decodeWAV(data []byte) (PCM, bool, error) {
	dec := wav.NewDecoder(bytes.NewReader(data))
	if !dec.IsValidFile() {
		return PCM{}, false, fmt.Errorf("%w: invalid wav header", ErrUndecodable)
	}
	if dec.WavAudioFormat != 1 || int(dec.SampleRate) != d.sampleRate {
		return PCM{}, false, nil
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return PCM{}, false, fmt.Errorf("%w: %v", ErrUndecodable, err)
	}

	channels := buf.Format.NumChannels
	if channels < 1 {
		return PCM{}, false, fmt.Errorf("%w: no channels", ErrUndecodable)
	}
	depth := buf.SourceBitDepth

	frames := len(buf.Data) / channels
	out := make([]byte, frames*2)
	for i := 0; i < frames; i++ {
		sum := 0
		for c := 0; c < channels; c++ {
			sum += to16(buf.Data[i*channels+c], depth)
		}
		binary.LittleEndian.PutUint16(out[i*2:], uint16(int16(sum/channels)))
	}

	return PCM{Samples: out, SampleRate: d.sampleRate}, true, nil
}

func to16(sample, depth int) int {
	switch {
	case depth == 8:
		return (sample - 128) << 8
	case depth > 16:
		return sample >> (depth - 16)
	default:
		return sample
	}
}

func (d *Decoder) decodeFFmpeg(ctx context.Context, data []byte) (PCM, error) {
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, d.ffmpegPath,
		"-hide_banner", "-loglevel", "error",
		"-i", "pipe:0",
		"-ac", "1",
		"-ar", strconv.Itoa(d.sampleRate),
		"-acodec", "pcm_s16le",
		"-f", "s16le",
		"pipe:1",
	)
	var stdout, stderr bytes.Buffer
	cmd.Stdin = bytes.NewReader(data)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return PCM{}, ctx.Err()
		}
		return PCM{}, apperrors.NewDecodeError(fmt.Errorf("%w: ffmpeg: %v: %s", ErrUndecodable, err, strings.TrimSpace(stderr.String())))
	}
	if stdout.Len() == 0 {
		return PCM{}, apperrors.NewDecodeError(fmt.Errorf("%w: no audio stream", ErrUndecodable))
	}

	return PCM{Samples: stdout.Bytes(), SampleRate: d.sampleRate}, nil
}
