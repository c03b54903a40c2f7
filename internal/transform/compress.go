package transform

import (
	"fmt"
	"io"
	"strconv"

	kerrors "github.com/PolarWolf314/syncany/internal/errors"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// SettingLevel is the compression level setting of the gzip and zstd stages.
const SettingLevel = "level"

// GzipStage compresses with gzip.
type GzipStage struct {
	level       int
	initialized bool
}

// NewGzipStage returns a gzip stage with the given compression level.
func NewGzipStage(level int) (*GzipStage, error) {
	if level < gzip.HuffmanOnly || level > gzip.BestCompression {
		return nil, fmt.Errorf("gzip: invalid level %d", level)
	}
	return &GzipStage{level: level, initialized: true}, nil
}

func newGzipStage(settings map[string]string, _ Keys) (Stage, error) {
	level, err := parseLevel(settings, gzip.DefaultCompression)
	if err != nil {
		return nil, err
	}
	return NewGzipStage(level)
}

func (s *GzipStage) Type() string { return TypeGzip }

func (s *GzipStage) WrapWriter(w io.WriteCloser) (io.WriteCloser, error) {
	if !s.initialized {
		return nil, kerrors.ErrStageNotInitialized
	}
	gw, err := gzip.NewWriterLevel(w, s.level)
	if err != nil {
		return nil, err
	}
	return &writeCloser{Writer: gw, closeFn: gw.Close, next: w}, nil
}

func (s *GzipStage) WrapReader(r io.Reader) (io.ReadCloser, error) {
	if !s.initialized {
		return nil, kerrors.ErrStageNotInitialized
	}
	gr, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("gzip: %w", err)
	}
	return &readCloser{Reader: gr, closeFn: gr.Close, next: closerOf(r)}, nil
}

func (s *GzipStage) String() string { return "Gzip" }

// ZstdStage compresses with zstandard.
type ZstdStage struct {
	level       zstd.EncoderLevel
	initialized bool
}

// NewZstdStage returns a zstd stage. level follows the zstd command line
// scale (1-22) and is mapped to the closest encoder level.
func NewZstdStage(level int) (*ZstdStage, error) {
	if level < 1 || level > 22 {
		return nil, fmt.Errorf("zstd: invalid level %d", level)
	}
	return &ZstdStage{level: zstd.EncoderLevelFromZstd(level), initialized: true}, nil
}

func newZstdStage(settings map[string]string, _ Keys) (Stage, error) {
	level, err := parseLevel(settings, 3)
	if err != nil {
		return nil, err
	}
	return NewZstdStage(level)
}

func (s *ZstdStage) Type() string { return TypeZstd }

func (s *ZstdStage) WrapWriter(w io.WriteCloser) (io.WriteCloser, error) {
	if !s.initialized {
		return nil, kerrors.ErrStageNotInitialized
	}
	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(s.level), zstd.WithEncoderConcurrency(1))
	if err != nil {
		return nil, fmt.Errorf("zstd: %w", err)
	}
	return &writeCloser{Writer: enc, closeFn: enc.Close, next: w}, nil
}

func (s *ZstdStage) WrapReader(r io.Reader) (io.ReadCloser, error) {
	if !s.initialized {
		return nil, kerrors.ErrStageNotInitialized
	}
	dec, err := zstd.NewReader(r, zstd.WithDecoderConcurrency(1))
	if err != nil {
		return nil, fmt.Errorf("zstd: %w", err)
	}
	rc := dec.IOReadCloser()
	return &readCloser{Reader: rc, closeFn: rc.Close, next: closerOf(r)}, nil
}

func (s *ZstdStage) String() string { return "Zstd" }

func parseLevel(settings map[string]string, def int) (int, error) {
	raw, ok := settings[SettingLevel]
	if !ok || raw == "" {
		return def, nil
	}
	level, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid compression level %q: %w", raw, err)
	}
	return level, nil
}
