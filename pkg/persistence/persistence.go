// Package persistence stores JSON documents as files, one per key, and
// adapts that to a degiro.SessionStore.
package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/betbot/degiro/pkg/logger"
	"github.com/betbot/degiro/pkg/sdk/degiro"
)

// ErrNotExists is returned by Load for a missing or empty document.
var ErrNotExists = errors.New("persistence: data does not exist")

var keySanitizer = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// JSONFileStore writes documents atomically (temp file then rename) with
// owner-only permissions, since they may hold session ids.
type JSONFileStore struct {
	baseDir string
}

func NewJSONFileStore(baseDir string) *JSONFileStore {
	return &JSONFileStore{baseDir: baseDir}
}

func (s *JSONFileStore) path(key string) string {
	return filepath.Join(s.baseDir, keySanitizer.ReplaceAllString(key, "_")+".json")
}

func (s *JSONFileStore) Save(key string, data interface{}) error {
	logger.Debugf("[persistence] save key=%s", key)
	if err := os.MkdirAll(s.baseDir, 0o700); err != nil {
		return err
	}
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}
	path := s.path(key)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func (s *JSONFileStore) Load(key string, data interface{}) error {
	b, err := os.ReadFile(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return ErrNotExists
		}
		return err
	}
	if len(b) == 0 {
		return ErrNotExists
	}
	return json.Unmarshal(b, data)
}

// Delete removes the document; a missing one is not an error.
func (s *JSONFileStore) Delete(key string) error {
	err := os.Remove(s.path(key))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

const sessionKey = "degiro-session"

// SessionStore keeps the bootstrapped session in a JSON file.
type SessionStore struct {
	files *JSONFileStore
}

func NewSessionStore(dir string) *SessionStore {
	return &SessionStore{files: NewJSONFileStore(dir)}
}

func (s *SessionStore) Load(ctx context.Context) (*degiro.Session, error) {
	var sess degiro.Session
	if err := s.files.Load(sessionKey, &sess); err != nil {
		if errors.Is(err, ErrNotExists) {
			return nil, nil
		}
		return nil, fmt.Errorf("load session: %w", err)
	}
	if sess.ID == "" {
		return nil, nil
	}
	return &sess, nil
}

func (s *SessionStore) Save(ctx context.Context, sess degiro.Session) error {
	return s.files.Save(sessionKey, sess)
}

func (s *SessionStore) Clear(ctx context.Context) error {
	return s.files.Delete(sessionKey)
}
