package downloader

import (
	"context"
	"io"
	"math"
)

// progressReader reports every read to a ProgressFunc and stops between chunks once ctx is done
type progressReader struct {
	ctx           context.Context
	source        io.Reader
	totalRead     int64
	contentLength int64
	onProgress    ProgressFunc
}

func newProgressReader(ctx context.Context, source io.Reader, contentLength int64, onProgress ProgressFunc) *progressReader {
	return &progressReader{
		ctx:           ctx,
		source:        source,
		contentLength: contentLength,
		onProgress:    onProgress,
	}
}

func (p *progressReader) Read(b []byte) (int, error) {
	if err := p.ctx.Err(); err != nil {
		return 0, err
	}

	n, err := p.source.Read(b)
	if n > 0 {
		p.totalRead += int64(n)
		if p.onProgress != nil {
			p.onProgress(p.totalRead, p.contentLength)
		}
	}
	return n, err
}

// Percent converts a byte count into a rounded 0-100 value. Unknown or empty totals yield 0.
func Percent(bytesRead, contentLength int64) int {
	if contentLength <= 0 {
		return 0
	}

	p := int(math.Round(float64(bytesRead) / float64(contentLength) * 100))
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	default:
		return p
	}
}
