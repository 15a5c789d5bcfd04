package attachments

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrInvalidLocator is returned for locators that could escape the storage root.
	ErrInvalidLocator = errors.New("invalid attachment locator")
	// ErrMissing means no file is stored under the locator.
	ErrMissing = errors.New("attachment file missing")
)

// Stored describes a file just written by Save.
type Stored struct {
	Locator   string
	Size      int64
	MediaType string
}

// FileInfo is one stored file as seen by List.
type FileInfo struct {
	Locator string
	ModTime time.Time
}

// FileStore keeps attachment bytes under a single directory. A locator is the
// file's base name inside that directory.
type FileStore struct {
	root   string
	logger *zap.Logger
}

func NewFileStore(root string, logger *zap.Logger) (*FileStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir: %w", err)
	}
	return &FileStore{root: root, logger: logger.Named("attachments")}, nil
}

// Save writes r under a fresh locator that keeps the extension of name.
// The media type is sniffed from the content.
func (f *FileStore) Save(name string, r io.Reader) (Stored, error) {
	ext := strings.ToLower(filepath.Ext(filepath.Base(name)))
	locator := uuid.NewString() + ext

	path := filepath.Join(f.root, locator)
	out, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return Stored{}, fmt.Errorf("failed to create attachment file: %w", err)
	}

	br := bufio.NewReaderSize(r, 512)
	head, _ := br.Peek(512)
	mediaType := http.DetectContentType(head)

	n, err := io.Copy(out, br)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
		return Stored{}, fmt.Errorf("failed to write attachment: %w", err)
	}

	f.logger.Debug("attachment saved", zap.String("locator", locator), zap.Int64("size", n))
	return Stored{Locator: locator, Size: n, MediaType: mediaType}, nil
}

// ReadAttachment returns the bytes stored under locator.
func (f *FileStore) ReadAttachment(locator string) ([]byte, error) {
	path, err := f.path(locator)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrMissing, locator)
	}
	return data, err
}

// Remove deletes the file; a missing file is not an error.
func (f *FileStore) Remove(locator string) error {
	path, err := f.path(locator)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// RemoveAll deletes each locator, logging failures instead of returning them.
func (f *FileStore) RemoveAll(locators []string) {
	for _, loc := range locators {
		if err := f.Remove(loc); err != nil {
			f.logger.Warn("failed to remove attachment file", zap.String("locator", loc), zap.Error(err))
		}
	}
}

func (f *FileStore) List(ctx context.Context) ([]FileInfo, error) {
	entries, err := os.ReadDir(f.root)
	if err != nil {
		return nil, fmt.Errorf("failed to list upload dir: %w", err)
	}
	out := make([]FileInfo, 0, len(entries))
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, FileInfo{Locator: e.Name(), ModTime: info.ModTime()})
	}
	return out, nil
}

func (f *FileStore) path(locator string) (string, error) {
	if locator == "" || locator != filepath.Base(locator) || locator == "." || locator == ".." {
		return "", fmt.Errorf("%w: %q", ErrInvalidLocator, locator)
	}
	return filepath.Join(f.root, locator), nil
}
