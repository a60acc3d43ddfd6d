package sinks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/kubesee/kubesee/pkg/kube"
)

// FileConfig writes events as JSON lines to a rotated file, per spec.md
// §6's numbered-backup rotation scheme: path.N -> path.(N+1) descending,
// then path -> path.1, trimming anything beyond MaxBackups and anything
// older than MaxAge days.
type FileConfig struct {
	Path       string         `yaml:"path"`
	MaxSize    int            `yaml:"maxsize"` // MB
	MaxAge     int            `yaml:"maxage"`  // days, 0 = off
	MaxBackups int            `yaml:"maxbackups"`
	Layout     map[string]any `yaml:"layout"`
	DeDot      bool           `yaml:"deDot,omitempty"`
}

const maxFileBackups = 999

type File struct {
	cfg  *FileConfig
	mu   sync.Mutex
	file *os.File
	size int64
}

func NewFileSink(cfg *FileConfig) (Sink, error) {
	f := &File{cfg: cfg}
	if err := f.open(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *File) open() error {
	if err := os.MkdirAll(filepath.Dir(f.cfg.Path), 0o755); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("creating directory for %s: %w", f.cfg.Path, err)
	}
	fh, err := os.OpenFile(f.cfg.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening %s: %w", f.cfg.Path, err)
	}
	info, err := fh.Stat()
	if err != nil {
		fh.Close()
		return fmt.Errorf("statting %s: %w", f.cfg.Path, err)
	}
	f.file = fh
	f.size = info.Size()
	return nil
}

func (f *File) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.file != nil {
		f.file.Close()
	}
}

func (f *File) Send(ctx context.Context, ev *kube.EnhancedEvent) error {
	out, err := serializeEventWithLayout(f.cfg.Layout, f.cfg.DeDot, ev)
	if err != nil {
		return err
	}
	out = append(out, '\n')

	f.mu.Lock()
	defer f.mu.Unlock()

	maxSize := int64(f.cfg.MaxSize) * 1024 * 1024
	if maxSize > 0 && f.size+int64(len(out)) > maxSize {
		if err := f.rotate(); err != nil {
			return err
		}
	}

	n, err := f.file.Write(out)
	f.size += int64(n)
	return err
}

// rotate implements spec.md §6's file rotation: path.N -> path.(N+1)
// descending (so the oldest backup is never silently overwritten),
// then path -> path.1. It trims anything beyond MaxBackups (0 = unlimited,
// capped at 999) and anything older than MaxAge days (0 = off).
func (f *File) rotate() error {
	if f.file != nil {
		f.file.Close()
		f.file = nil
	}

	maxBackups := f.cfg.MaxBackups
	if maxBackups <= 0 || maxBackups > maxFileBackups {
		maxBackups = maxFileBackups
	}

	existing := f.existingBackups()
	for i := len(existing) - 1; i >= 0; i-- {
		n := existing[i]
		oldPath := backupPath(f.cfg.Path, n)
		if n+1 > maxFileBackups {
			os.Remove(oldPath)
			continue
		}
		if err := os.Rename(oldPath, backupPath(f.cfg.Path, n+1)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("rotating %s: %w", oldPath, err)
		}
	}

	if _, err := os.Stat(f.cfg.Path); err == nil {
		if err := os.Rename(f.cfg.Path, backupPath(f.cfg.Path, 1)); err != nil {
			return fmt.Errorf("rotating %s: %w", f.cfg.Path, err)
		}
	}

	f.trimBackups(maxBackups)
	f.cleanupAged()

	return f.open()
}

// existingBackups returns the numeric suffixes of path.N files that exist,
// sorted ascending.
func (f *File) existingBackups() []int {
	dir := filepath.Dir(f.cfg.Path)
	base := filepath.Base(f.cfg.Path)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var nums []int
	prefix := base + "."
	for _, e := range entries {
		name := e.Name()
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		n, err := strconv.Atoi(strings.TrimPrefix(name, prefix))
		if err != nil {
			continue
		}
		nums = append(nums, n)
	}
	sort.Ints(nums)
	return nums
}

func (f *File) trimBackups(maxBackups int) {
	for _, n := range f.existingBackups() {
		if n > maxBackups {
			os.Remove(backupPath(f.cfg.Path, n))
		}
	}
}

func (f *File) cleanupAged() {
	if f.cfg.MaxAge <= 0 {
		return
	}
	cutoff := time.Now().AddDate(0, 0, -f.cfg.MaxAge)
	for _, n := range f.existingBackups() {
		p := backupPath(f.cfg.Path, n)
		info, err := os.Stat(p)
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			os.Remove(p)
		}
	}
}

func backupPath(path string, n int) string {
	return path + "." + strconv.Itoa(n)
}
