package pipeline

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/claims-tracker/constants"
)

// Upload is a request-scoped copy of a submitted document on local disk.
// The processor owns its lifetime once handed over and removes it on every exit path.
type Upload struct {
	ID           uuid.UUID
	Path         string
	OriginalName string
	MimeType     string
	Size         int64

	once      sync.Once
	removeErr error
}

// StageUpload copies r into a fresh, uniquely named file under dir.
func StageUpload(dir, originalName, mime string, r io.Reader) (*Upload, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	id := uuid.New()
	name := id.String()
	if ext := constants.NormalizeExt(originalName); ext != "" {
		name += "." + ext
	}
	path := filepath.Join(dir, name)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("create upload file: %w", err)
	}
	n, copyErr := io.Copy(f, r)
	closeErr := f.Close()
	if err := errors.Join(copyErr, closeErr); err != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("write upload file: %w", err)
	}
	return &Upload{ID: id, Path: path, OriginalName: originalName, MimeType: mime, Size: n}, nil
}

// StageFile stages a copy of an existing file so the original is never removed.
func StageFile(dir, path, mime string) (*Upload, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open source file: %w", err)
	}
	defer f.Close()
	if mime == "" {
		mime = constants.MimeForPath(path)
	}
	return StageUpload(dir, filepath.Base(path), mime, f)
}

// Remove deletes the staged file. Safe to call more than once.
func (u *Upload) Remove() error {
	u.once.Do(func() {
		if err := os.Remove(u.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			u.removeErr = err
		}
	})
	return u.removeErr
}
