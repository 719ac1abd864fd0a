package candidate

import (
	"bytes"
	"io"
)

// progressReader wraps an in-memory payload and reports read progress as a
// 0-100 percentage. The callback fires on whole-percent changes only.
type progressReader struct {
	reader     *bytes.Reader
	total      int
	read       int
	lastNotify int
	onProgress func(int)
}

func newProgressReader(data []byte, onProgress func(int)) io.Reader {
	return &progressReader{
		reader:     bytes.NewReader(data),
		total:      len(data),
		lastNotify: -1,
		onProgress: onProgress,
	}
}

func (r *progressReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	r.read += n
	if r.onProgress != nil && r.total > 0 {
		percent := r.read * 100 / r.total
		if percent != r.lastNotify {
			r.lastNotify = percent
			r.onProgress(percent)
		}
	}
	return n, err
}
