package core

// upload.go turns an uploaded file into the text the tokenizer consumes.
//
// Uploads are bounded by a byte limit, stripped of a UTF-8 byte-order mark
// and repaired so that invalid UTF-8 sequences become U+FFFD. Spreadsheet
// exports from Windows commonly carry both problems.

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

// DefaultMaxUploadSize bounds uploads when no limit is configured (10MB).
const DefaultMaxUploadSize int64 = 10 * 1024 * 1024

var bomBytes = []byte{0xEF, 0xBB, 0xBF}

// ReadUpload reads r completely and returns its text. maxBytes <= 0 uses
// DefaultMaxUploadSize. Files larger than the limit fail with ErrFileTooLarge
// and a zero-byte file fails with ErrEmptyFile.
func ReadUpload(r io.Reader, maxBytes int64) (string, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadSize
	}

	br := bufio.NewReader(io.LimitReader(r, maxBytes+1))
	if head, _ := br.Peek(len(bomBytes)); bytes.Equal(head, bomBytes) {
		if _, err := br.Discard(len(bomBytes)); err != nil {
			return "", fmt.Errorf("read upload: %w", err)
		}
		maxBytes -= int64(len(bomBytes))
	}

	data, err := io.ReadAll(br)
	if err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > maxBytes {
		return "", fmt.Errorf("%w: limit is %s", ErrFileTooLarge, formatBytes(maxBytes))
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return "", ErrEmptyFile
	}

	if utf8.Valid(data) {
		return string(data), nil
	}
	return strings.ToValidUTF8(string(data), "\uFFFD"), nil
}

func formatBytes(n int64) string {
	const unit = 1024
	switch {
	case n >= unit*unit:
		return fmt.Sprintf("%dMB", n/(unit*unit))
	case n >= unit:
		return fmt.Sprintf("%dKB", n/unit)
	default:
		return fmt.Sprintf("%dB", n)
	}
}
