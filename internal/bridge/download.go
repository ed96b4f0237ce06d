package bridge

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Downloader writes exported captures into the downloads directory with
// collision-free timestamped names.
type Downloader struct {
	dir string
}

// NewDownloader ensures the directory exists.
func NewDownloader(dir string) (*Downloader, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("bridge: create downloads dir: %w", err)
	}
	return &Downloader{dir: dir}, nil
}

// Save writes one download and returns its path. write receives the
// destination file; on error the partial file is removed.
func (d *Downloader) Save(prefix, ext string, write func(*os.File) error) (string, error) {
	stamp := time.Now().Format("20060102-150405")
	path := filepath.Join(d.dir, fmt.Sprintf("%s-%s.%s", prefix, stamp, ext))
	for n := 1; ; n++ {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			break
		}
		path = filepath.Join(d.dir, fmt.Sprintf("%s-%s-%d.%s", prefix, stamp, n, ext))
	}
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("bridge: create download: %w", err)
	}
	if err := write(f); err != nil {
		f.Close()
		os.Remove(path)
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("bridge: finish download: %w", err)
	}
	return path, nil
}
