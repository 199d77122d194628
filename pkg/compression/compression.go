// Package compression wraps output streams in a compressing writer.
//
// Algorithms are picked by name or from an output file extension:
//
//	w, err := compression.NewWriter(file, compression.Zstd, compression.Default)
//	...
//	err = w.Close() // writes the frame trailer, leaves file open
package compression

import (
	"io"
	"path"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/s2"
	"github.com/klauspost/compress/snappy"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/ajitpratap0/sqlport/pkg/errors"
)

// Algorithm names an output compression codec.
type Algorithm string

const (
	None   Algorithm = "none"
	Gzip   Algorithm = "gzip"
	Zstd   Algorithm = "zstd"
	LZ4    Algorithm = "lz4"    // lz4 frame format
	Snappy Algorithm = "snappy" // framed snappy
	S2     Algorithm = "s2"     // snappy-compatible stream
)

// Level is a codec-neutral compression level in [1,9]; each codec maps it
// to its own scale.
type Level int

const (
	Fastest Level = 1
	Default Level = 5
	Best    Level = 9
)

var extensions = map[string]Algorithm{
	".gz":   Gzip,
	".gzip": Gzip,
	".zst":  Zstd,
	".zstd": Zstd,
	".lz4":  LZ4,
	".sz":   Snappy,
	".s2":   S2,
}

// Parse returns the algorithm for a name. The empty string means None.
func Parse(name string) (Algorithm, error) {
	switch a := Algorithm(strings.ToLower(strings.TrimSpace(name))); a {
	case "":
		return None, nil
	case None, Gzip, Zstd, LZ4, Snappy, S2:
		return a, nil
	case "gz":
		return Gzip, nil
	case "zst", "zstandard":
		return Zstd, nil
	default:
		return None, errors.Newf(errors.ErrorTypeConfig, "unsupported compression %q", name)
	}
}

// FromExtension returns the algorithm implied by the last extension of
// name, or None.
func FromExtension(name string) Algorithm {
	if a, ok := extensions[strings.ToLower(path.Ext(name))]; ok {
		return a
	}
	return None
}

// Extension returns the conventional file extension for an algorithm.
func Extension(a Algorithm) string {
	for ext, alg := range extensions {
		if alg == a && (ext == ".gz" || ext == ".zst" || ext == ".lz4" || ext == ".sz" || ext == ".s2") {
			return ext
		}
	}
	return ""
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }

// NewWriter returns a writer compressing into dst. Close flushes the
// compressor and writes any trailer; it never closes dst.
func NewWriter(dst io.Writer, a Algorithm, level Level) (io.WriteCloser, error) {
	switch a {
	case None, "":
		return nopWriteCloser{dst}, nil
	case Gzip:
		w, err := gzip.NewWriterLevel(dst, mapGzipLevel(level))
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeConfig, "invalid gzip level")
		}
		return w, nil
	case Zstd:
		w, err := zstd.NewWriter(dst, zstd.WithEncoderLevel(mapZstdLevel(level)))
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to create zstd encoder")
		}
		return w, nil
	case LZ4:
		w := lz4.NewWriter(dst)
		if err := w.Apply(lz4.CompressionLevelOption(mapLZ4Level(level))); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeConfig, "invalid lz4 level")
		}
		return w, nil
	case Snappy:
		return snappy.NewBufferedWriter(dst), nil
	case S2:
		opts := []s2.WriterOption{}
		if level >= Best {
			opts = append(opts, s2.WriterBestCompression())
		}
		return s2.NewWriter(dst, opts...), nil
	}
	return nil, errors.Newf(errors.ErrorTypeConfig, "unsupported compression %q", a)
}

// NewReader returns a reader decompressing src.
func NewReader(src io.Reader, a Algorithm) (io.ReadCloser, error) {
	switch a {
	case None, "":
		return io.NopCloser(src), nil
	case Gzip:
		r, err := gzip.NewReader(src)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeInternal, "invalid gzip stream")
		}
		return r, nil
	case Zstd:
		d, err := zstd.NewReader(src)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeInternal, "invalid zstd stream")
		}
		return d.IOReadCloser(), nil
	case LZ4:
		return io.NopCloser(lz4.NewReader(src)), nil
	case Snappy:
		return io.NopCloser(snappy.NewReader(src)), nil
	case S2:
		return io.NopCloser(s2.NewReader(src)), nil
	}
	return nil, errors.Newf(errors.ErrorTypeConfig, "unsupported compression %q", a)
}

func mapGzipLevel(level Level) int {
	switch {
	case level <= Fastest:
		return gzip.BestSpeed
	case level >= Best:
		return gzip.BestCompression
	default:
		return gzip.DefaultCompression
	}
}

func mapLZ4Level(level Level) lz4.CompressionLevel {
	switch {
	case level <= Fastest:
		return lz4.Fast
	case level >= Best:
		return lz4.Level9
	default:
		return lz4.Level5
	}
}

func mapZstdLevel(level Level) zstd.EncoderLevel {
	switch {
	case level <= Fastest:
		return zstd.SpeedFastest
	case level >= Best:
		return zstd.SpeedBestCompression
	default:
		return zstd.SpeedDefault
	}
}
