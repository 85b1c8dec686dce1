package core

// reader.go turns an uploaded file body into text the codec can parse.
//
// Uploaded files arrive from browsers and spreadsheet exports, so the body is:
//   - stripped of a UTF-8 BOM (0xEF 0xBB 0xBF) written by Windows programs
//   - capped at the configured size
//   - abandoned as soon as the request context is done
//   - sanitized so invalid UTF-8 sequences become '?'

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

var (
	// ErrFileTooLarge is returned when an upload exceeds the size limit.
	ErrFileTooLarge = errors.New("file too large")

	// ErrBinaryFile is returned for bodies that are clearly not text, such
	// as an .xlsx workbook renamed to .csv.
	ErrBinaryFile = errors.New("encoding error: file is not UTF-8 text")
)

// ReadError wraps a failure while reading an uploaded body.
type ReadError struct {
	Err error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("could not read file: %v", e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

// ReadUpload reads r to the end and returns its text. limit <= 0 disables
// the size check.
func ReadUpload(ctx context.Context, r io.Reader, limit int64) (string, error) {
	src := io.Reader(&contextReader{ctx: ctx, r: skipBOM(r)})
	if limit > 0 {
		// One extra byte tells "exactly limit" apart from "over limit".
		src = io.LimitReader(src, limit+1)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(src); err != nil {
		return "", &ReadError{Err: err}
	}
	if limit > 0 && int64(buf.Len()) > limit {
		return "", fmt.Errorf("%w: limit is %d bytes", ErrFileTooLarge, limit)
	}
	if bytes.IndexByte(buf.Bytes(), 0) >= 0 {
		return "", ErrBinaryFile
	}

	return strings.ToValidUTF8(buf.String(), "?"), nil
}

// skipBOM returns a reader positioned after a leading UTF-8 BOM, if any.
func skipBOM(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	if head, err := br.Peek(3); err == nil && head[0] == 0xEF && head[1] == 0xBB && head[2] == 0xBF {
		_, _ = br.Discard(3)
	}
	return br
}

// contextReader stops reading once ctx is done.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
