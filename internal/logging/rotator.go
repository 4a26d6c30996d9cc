package logging

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// FileRotator is an io.Writer that rotates its file once it grows past
// Config.MaxSize megabytes.
type FileRotator struct {
	config *Config
	mu     sync.Mutex
	file   *os.File
	size   int64
	seq    int
}

// NewFileRotator opens (or creates) the log file named by cfg.FilePath.
func NewFileRotator(cfg *Config) (*FileRotator, error) {
	if cfg.FilePath == "" {
		return nil, fmt.Errorf("log file path is empty")
	}
	r := &FileRotator{config: cfg}

	if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0750); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	if err := r.openFile(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *FileRotator) openFile() error {
	file, err := os.OpenFile(r.config.FilePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0640)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return fmt.Errorf("stat log file: %w", err)
	}

	r.file = file
	r.size = info.Size()
	return nil
}

func (r *FileRotator) maxBytes() int64 {
	if r.config.MaxSize <= 0 {
		return 0
	}
	return r.config.MaxSize * 1024 * 1024
}

// Write implements io.Writer.
func (r *FileRotator) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.file == nil {
		if err := r.openFile(); err != nil {
			return 0, err
		}
	}

	if limit := r.maxBytes(); limit > 0 && r.size > 0 && r.size+int64(len(p)) > limit {
		if err := r.rotate(); err != nil {
			return 0, fmt.Errorf("rotate log: %w", err)
		}
	}

	n, err := r.file.Write(p)
	r.size += int64(n)
	return n, err
}

// Rotate forces a rotation of the current file.
func (r *FileRotator) Rotate() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rotate()
}

func (r *FileRotator) rotate() error {
	if r.file != nil {
		if err := r.file.Close(); err != nil {
			return fmt.Errorf("close current log: %w", err)
		}
		r.file = nil
	}

	dir, name, ext := r.parts()
	r.seq++
	stamp := time.Now().Format("20060102-150405.000000")
	rotated := filepath.Join(dir, fmt.Sprintf("%s-%s-%04d%s", name, stamp, r.seq, ext))

	if err := os.Rename(r.config.FilePath, rotated); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("rename log file: %w", err)
	}

	if r.config.Compress {
		if err := compressFile(rotated); err != nil {
			return fmt.Errorf("compress rotated log: %w", err)
		}
	}

	if err := r.openFile(); err != nil {
		return err
	}

	r.prune()
	return nil
}

func (r *FileRotator) parts() (dir, name, ext string) {
	base := filepath.Base(r.config.FilePath)
	ext = filepath.Ext(base)
	return filepath.Dir(r.config.FilePath), strings.TrimSuffix(base, ext), ext
}

func compressFile(path string) error {
	in, err := os.Open(path)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(path+".gz", os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0640)
	if err != nil {
		return err
	}

	gz := gzip.NewWriter(out)
	gz.Name = filepath.Base(path)
	if _, err := io.Copy(gz, in); err != nil {
		gz.Close()
		out.Close()
		os.Remove(path + ".gz")
		return err
	}
	if err := gz.Close(); err != nil {
		out.Close()
		os.Remove(path + ".gz")
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Remove(path)
}

// prune removes the oldest rotated files beyond MaxBackups.
func (r *FileRotator) prune() {
	if r.config.MaxBackups <= 0 {
		return
	}
	files, err := r.rotatedFiles()
	if err != nil || len(files) <= r.config.MaxBackups {
		return
	}
	for _, f := range files[:len(files)-r.config.MaxBackups] {
		os.Remove(f)
	}
}

// rotatedFiles lists rotated files oldest first. The timestamp in the name
// sorts lexically in creation order.
func (r *FileRotator) rotatedFiles() ([]string, error) {
	dir, name, ext := r.parts()
	matches, err := filepath.Glob(filepath.Join(dir, name+"-*"+ext+"*"))
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	return matches, nil
}

// Files returns the current log file followed by rotated files, oldest first.
func (r *FileRotator) Files() ([]string, error) {
	rotated, err := r.rotatedFiles()
	return append([]string{r.config.FilePath}, rotated...), err
}

// Close closes the underlying file.
func (r *FileRotator) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.file != nil {
		err := r.file.Close()
		r.file = nil
		return err
	}
	return nil
}

// Sync flushes the file to disk.
func (r *FileRotator) Sync() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.file != nil {
		return r.file.Sync()
	}
	return nil
}
