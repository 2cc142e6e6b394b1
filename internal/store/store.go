// Package store persists generated images and staged logo uploads as flat
// files keyed by opaque hex identifiers, and sweeps both areas by age.
package store

import (
	"encoding/hex"
	"errors"
	"image"
	"image/png"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/qrforge/qrforge/internal/qrerrors"

	_ "image/jpeg"

	_ "golang.org/x/image/webp"
)

// allowedExtensions is the fixed upload allow-list; not configurable.
var allowedExtensions = map[string]bool{
	"png":  true,
	"jpg":  true,
	"jpeg": true,
	"webp": true,
}

// Identifiers are uuid hex (32 chars); retrieval tolerates anything hex of a
// sane length so the gate, not the filesystem, rejects malformed ids.
var validID = regexp.MustCompile(`^[0-9a-f]{8,64}$`)

// Artifact is one persisted output image.
type Artifact struct {
	ID        string
	Path      string
	CreatedAt time.Time
}

// Store owns the two flat artifact areas. Persist only ever creates files
// under fresh names and Sweep only deletes, so no locking is needed beyond
// the filesystem namespace.
type Store struct {
	uploadDir    string
	generatedDir string
	log          zerolog.Logger
}

// New creates both areas if needed.
func New(uploadDir, generatedDir string, log zerolog.Logger) (*Store, error) {
	for _, dir := range []string{uploadDir, generatedDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, qrerrors.Wrap(qrerrors.CodeInternal, err, "create artifact dir %s", dir)
		}
	}
	return &Store{uploadDir: uploadDir, generatedDir: generatedDir, log: log}, nil
}

// UploadDir returns the staging area for logo uploads.
func (s *Store) UploadDir() string { return s.uploadDir }

// GeneratedDir returns the generated-artifact area.
func (s *Store) GeneratedDir() string { return s.generatedDir }

// NewID returns a fresh 128-bit identifier as lowercase hex. Identifiers are
// never derived from content: duplicate renders get distinct artifacts.
func NewID() string {
	id := uuid.New()
	return hex.EncodeToString(id[:])
}

// Persist PNG-encodes img under a fresh identifier. Safe for concurrent use.
func (s *Store) Persist(img image.Image) (Artifact, error) {
	id := NewID()
	path := filepath.Join(s.generatedDir, id+".png")

	f, err := os.Create(path)
	if err != nil {
		return Artifact{}, qrerrors.Wrap(qrerrors.CodeInternal, err, "create artifact %s", id)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		os.Remove(path)
		return Artifact{}, qrerrors.Wrap(qrerrors.CodeInternal, err, "encode artifact %s", id)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return Artifact{}, qrerrors.Wrap(qrerrors.CodeInternal, err, "close artifact %s", id)
	}
	return Artifact{ID: id, Path: path, CreatedAt: time.Now()}, nil
}

// Retrieve returns the PNG bytes for id. Malformed ids and missing files
// both surface as NotFound; a file swept between check and read does too.
func (s *Store) Retrieve(id string) ([]byte, error) {
	if !validID.MatchString(id) {
		return nil, qrerrors.E(qrerrors.CodeNotFound, "artifact %q not found", id)
	}
	data, err := os.ReadFile(filepath.Join(s.generatedDir, id+".png"))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, qrerrors.E(qrerrors.CodeNotFound, "artifact %q not found", id)
	}
	if err != nil {
		return nil, qrerrors.Wrap(qrerrors.CodeInternal, err, "read artifact %s", id)
	}
	return data, nil
}

// StageUpload validates and stores a logo upload, returning the staged path.
// The client filename contributes only its extension; the stored name is a
// fresh identifier. Undecodable bytes remove the staged file before failing.
func (s *Store) StageUpload(filename string, r io.Reader) (string, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	if !allowedExtensions[ext] {
		return "", qrerrors.E(qrerrors.CodeInvalidUpload,
			"unsupported file type %q, allowed: png, jpg, jpeg, webp", ext)
	}

	path := filepath.Join(s.uploadDir, NewID()+"."+ext)
	f, err := os.Create(path)
	if err != nil {
		return "", qrerrors.Wrap(qrerrors.CodeInternal, err, "stage upload")
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(path)
		return "", qrerrors.Wrap(qrerrors.CodeInternal, err, "write upload")
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", qrerrors.Wrap(qrerrors.CodeInternal, err, "close upload")
	}

	if err := verifyImageFile(path); err != nil {
		os.Remove(path)
		return "", err
	}
	return path, nil
}

func verifyImageFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return qrerrors.Wrap(qrerrors.CodeInternal, err, "reopen upload")
	}
	defer f.Close()
	if _, _, err := image.Decode(f); err != nil {
		return qrerrors.Wrap(qrerrors.CodeInvalidUpload, err, "invalid image upload")
	}
	return nil
}

// Sweep removes files in both areas whose modification time is older than
// now-maxAge, returning how many were removed. Per-file errors are swallowed
// and a missing area means nothing to sweep. A negative maxAge behaves like
// zero (everything is old enough).
func (s *Store) Sweep(now time.Time, maxAge time.Duration) int {
	if maxAge < 0 {
		maxAge = 0
	}
	cutoff := now.Add(-maxAge)

	removed := 0
	for _, dir := range []string{s.uploadDir, s.generatedDir} {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			info, err := entry.Info()
			if err != nil {
				continue
			}
			if info.ModTime().Before(cutoff) {
				if err := os.Remove(filepath.Join(dir, entry.Name())); err == nil {
					removed++
				}
			}
		}
	}
	if removed > 0 {
		s.log.Debug().Int("removed", removed).Msg("retention sweep")
	}
	return removed
}
