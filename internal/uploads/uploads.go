// Package uploads is the image ingestion service: it accepts image bytes
// over a direct file path or an inline base64 path, enforces the size
// ceiling, and writes them to the content directory under a generated
// filename. Stored assets are never updated or deleted.
package uploads

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// MaxBytes is the upload size ceiling. Payloads of exactly this size are
// accepted; one byte over is rejected.
const MaxBytes = 5 << 20

// defaultExt is used when no extension is recoverable from the supplied
// filename.
const defaultExt = ".jpg"

// Sentinel errors callers check with errors.Is.
var (
	ErrTooLarge     = errors.New("image exceeds size limit")
	ErrMissingField = errors.New("image payload and filename are required")
	ErrBadEncoding  = errors.New("image data is not valid base64")
)

// Service writes ingested images to a single content directory. References
// it returns are immediately retrievable: bytes land in a temp file first
// and are renamed into place only once fully written.
type Service struct {
	dir string
}

// New creates the content directory if needed and returns a Service over it.
func New(dir string) (*Service, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("uploads: create content dir %s: %w", dir, err)
	}
	return &Service{dir: dir}, nil
}

// Dir returns the content directory path.
func (s *Service) Dir() string {
	return s.dir
}

// SaveFile ingests raw file bytes from r with the caller's declared filename
// and size. A declared size over the ceiling is rejected before any read;
// the actual byte count is bounded during the copy as well, so an
// understated declaration still fails without leaving a partial file.
// Returns the reference path /uploads/{generated-filename}.
func (s *Service) SaveFile(name string, size int64, r io.Reader) (string, error) {
	if name == "" || r == nil {
		return "", fmt.Errorf("uploads: save file: %w", ErrMissingField)
	}
	if size > MaxBytes {
		return "", fmt.Errorf("uploads: save file %s (%d bytes): %w", name, size, ErrTooLarge)
	}

	tmp, err := os.CreateTemp(s.dir, ".ingest-*")
	if err != nil {
		return "", fmt.Errorf("uploads: create temp file: %w", err)
	}

	n, err := io.Copy(tmp, io.LimitReader(r, MaxBytes+1))
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("uploads: write %s: %w", name, err)
	}
	if n > MaxBytes {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("uploads: save file %s: %w", name, ErrTooLarge)
	}

	return s.publish(tmp.Name(), extensionOf(name))
}

// SaveDataURI ingests a base64-encoded image, optionally prefixed with a
// data:image/...;base64, header. The encoded length is checked against the
// ceiling before decoding so oversized payloads never materialize in memory
// decoded. fileName supplies the extension only.
func (s *Service) SaveDataURI(encoded, fileName string) (string, error) {
	if encoded == "" || fileName == "" {
		return "", fmt.Errorf("uploads: save data uri: %w", ErrMissingField)
	}

	payload := encoded
	if strings.HasPrefix(payload, "data:") {
		if i := strings.Index(payload, ","); i >= 0 {
			payload = payload[i+1:]
		}
	}
	if len(payload) > base64.StdEncoding.EncodedLen(MaxBytes) {
		return "", fmt.Errorf("uploads: save data uri %s: %w", fileName, ErrTooLarge)
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", fmt.Errorf("uploads: save data uri %s: %w", fileName, ErrBadEncoding)
	}
	if len(data) > MaxBytes {
		return "", fmt.Errorf("uploads: save data uri %s: %w", fileName, ErrTooLarge)
	}

	tmp, err := os.CreateTemp(s.dir, ".ingest-*")
	if err != nil {
		return "", fmt.Errorf("uploads: create temp file: %w", err)
	}
	_, err = tmp.Write(data)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("uploads: write %s: %w", fileName, err)
	}

	return s.publish(tmp.Name(), extensionOf(fileName))
}

// publish renames a fully written temp file to its final generated name and
// returns the reference path.
func (s *Service) publish(tmpPath, ext string) (string, error) {
	name := generateName(ext)
	final := filepath.Join(s.dir, name)
	if err := os.Chmod(tmpPath, 0644); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("uploads: publish %s: %w", name, err)
	}
	if err := os.Rename(tmpPath, final); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("uploads: publish %s: %w", name, err)
	}
	return "/uploads/" + name, nil
}

// generateName builds a collision-resistant filename from the millisecond
// timestamp and a wide-range random integer. Probabilistic uniqueness, not
// guaranteed.
func generateName(ext string) string {
	return fmt.Sprintf("%d-%d%s", time.Now().UnixMilli(), rand.Intn(1_000_000_000), ext)
}

// extensionOf derives the file extension from a client-supplied name,
// falling back to defaultExt when none is recoverable.
func extensionOf(name string) string {
	ext := filepath.Ext(name)
	if ext == "" || ext == "." {
		return defaultExt
	}
	return strings.ToLower(ext)
}
