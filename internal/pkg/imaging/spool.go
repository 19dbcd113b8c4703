package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
)

// Scratch is a single-use buffer for an intermediate encoding. Release must be
// called exactly once, on every exit path.
type Scratch interface {
	io.Writer
	Bytes() ([]byte, error)
	Release() error
}

// Spool hands out scratch buffers.
type Spool interface {
	Acquire() (Scratch, error)
}

// MemorySpool keeps scratch buffers in memory.
type MemorySpool struct{}

func (MemorySpool) Acquire() (Scratch, error) {
	return &memoryScratch{}, nil
}

type memoryScratch struct {
	buf      bytes.Buffer
	released bool
}

func (m *memoryScratch) Write(p []byte) (int, error) {
	if m.released {
		return 0, errors.New("scratch buffer already released")
	}
	return m.buf.Write(p)
}

func (m *memoryScratch) Bytes() ([]byte, error) {
	if m.released {
		return nil, errors.New("scratch buffer already released")
	}
	return m.buf.Bytes(), nil
}

func (m *memoryScratch) Release() error {
	m.released = true
	return nil
}

// DiskSpool writes scratch buffers to temporary files under Dir.
type DiskSpool struct {
	Dir string // empty means os.TempDir()
}

// NewDiskSpool creates a disk spool rooted at dir.
func NewDiskSpool(dir string) *DiskSpool {
	return &DiskSpool{Dir: dir}
}

func (d *DiskSpool) Acquire() (Scratch, error) {
	file, err := os.CreateTemp(d.Dir, "zeladoria-*.jpg")
	if err != nil {
		return nil, fmt.Errorf("failed to create scratch file: %w", err)
	}
	return &fileScratch{file: file}, nil
}

type fileScratch struct {
	file     *os.File
	released bool
}

func (f *fileScratch) Write(p []byte) (int, error) {
	return f.file.Write(p)
}

func (f *fileScratch) Bytes() ([]byte, error) {
	if _, err := f.file.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to rewind scratch file: %w", err)
	}
	return io.ReadAll(f.file)
}

func (f *fileScratch) Release() error {
	if f.released {
		return nil
	}
	f.released = true

	name := f.file.Name()
	closeErr := f.file.Close()
	if err := os.Remove(name); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove scratch file: %w", err)
	}
	if closeErr != nil {
		return fmt.Errorf("failed to close scratch file: %w", closeErr)
	}
	return nil
}
