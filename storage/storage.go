// Package storage keeps uploaded recordings on local disk, content-addressed
// by blake3 hash.
package storage

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"lukechampine.com/blake3"
)

type Store struct {
	dir string
}

func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Save writes audio under <user>/<unix>_<hash>.wav and returns the relative
// reference recorded on the session. The user ID becomes a single path
// element, so it must not carry separators or dot-dot.
func (s *Store) Save(userID string, data []byte) (string, error) {
	if userID == "" || userID == ".." ||
		strings.ContainsAny(userID, `/\`) {
		return "", fmt.Errorf("invalid user id %q", userID)
	}
	sum := blake3.Sum256(data)
	name := fmt.Sprintf("%d_%s.wav", time.Now().Unix(), hex.EncodeToString(sum[:16]))
	ref := filepath.Join(userID, name)

	full := filepath.Join(s.dir, ref)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("create user dir: %w", err)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return "", fmt.Errorf("write audio file: %w", err)
	}

	return ref, nil
}

// Open streams a stored recording back by its reference.
func (s *Store) Open(ref string) (io.ReadSeekCloser, error) {
	clean := filepath.Clean(ref)
	if strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return nil, fmt.Errorf("invalid audio reference %q", ref)
	}
	f, err := os.Open(filepath.Join(s.dir, clean))
	if err != nil {
		return nil, fmt.Errorf("open audio file: %w", err)
	}
	return f, nil
}
