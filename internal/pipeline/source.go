package pipeline

import (
	"io"
	"os"
)

// Source supplies one readable TDV stream.
type Source interface {
	Name() string
	Open() (io.ReadCloser, error)
}

// FileSource opens a file on disk.
type FileSource struct {
	Path string
}

func (f FileSource) Name() string { return f.Path }

func (f FileSource) Open() (io.ReadCloser, error) {
	return os.Open(f.Path)
}

// ReaderSource wraps an already-open stream such as stdin. Closing it is the
// caller's responsibility.
type ReaderSource struct {
	Label  string
	Reader io.Reader
}

func (r ReaderSource) Name() string { return r.Label }

func (r ReaderSource) Open() (io.ReadCloser, error) {
	return io.NopCloser(r.Reader), nil
}

// SourcesFromArgs maps command-line paths to sources, treating "-" as stdin.
func SourcesFromArgs(args []string, stdin io.Reader) []Source {
	sources := make([]Source, 0, len(args))
	for _, arg := range args {
		if arg == "-" {
			sources = append(sources, ReaderSource{Label: "<stdin>", Reader: stdin})
			continue
		}
		sources = append(sources, FileSource{Path: arg})
	}
	return sources
}
