package pipeline

import (
	"bufio"
	"errors"
	"io"
)

// minReadBuffer keeps small line limits from degrading read throughput.
const minReadBuffer = 64 * 1024

// EachLine calls fn for every non-empty line of r, newline included. A line
// longer than the read buffer (at least maxLen+1 bytes) is drained without
// being retained and passed to fn as an empty string with overflow set.
// Iteration stops at the first error from fn or from r; io.EOF is not
// reported.
func EachLine(r io.Reader, maxLen int, fn func(line string, overflow bool) error) error {
	br := bufio.NewReaderSize(r, max(maxLen+1, minReadBuffer))
	for {
		line, overflow, err := nextLine(br)
		if overflow || line != "" {
			if ferr := fn(line, overflow); ferr != nil {
				return ferr
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
}

func nextLine(br *bufio.Reader) (line string, overflow bool, err error) {
	chunk, err := br.ReadSlice('\n')
	if !errors.Is(err, bufio.ErrBufferFull) {
		return string(chunk), false, err
	}
	for errors.Is(err, bufio.ErrBufferFull) {
		_, err = br.ReadSlice('\n')
	}
	if errors.Is(err, io.EOF) {
		err = nil
	}
	return "", true, err
}
