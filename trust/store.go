package trust

import (
	"crypto/sha1"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rotisserie/eris"
)

const (
	sentryExtension   = ".sentry"
	loginKeyExtension = ".loginkey"
)

// DeviceTrust is the device material persisted for an account between runs.
type DeviceTrust struct {
	SentryHash []byte
	LoginKey   string
}

// Store persists device trust per account. Load returns nil, nil when nothing
// has been stored yet.
type Store interface {
	Load(username string) (*DeviceTrust, error)
	SaveSentry(username string, offset int, data []byte, bytesToWrite int) (hash []byte, fileSize int, err error)
	SaveLoginKey(username string, key string) error
}

// FileStore keeps a raw sentry file and a login key file per account in one directory.
type FileStore struct {
	dir string
	now func() time.Time

	// per-account writes are serialized; accounts never contend with each other
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewFileStore(dir string) *FileStore {
	return &FileStore{
		dir:   dir,
		now:   time.Now,
		locks: make(map[string]*sync.Mutex),
	}
}

func (s *FileStore) accountLock(username string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := accountKey(username)
	lock, ok := s.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[key] = lock
	}
	return lock
}

func accountKey(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

func (s *FileStore) path(username, extension string) string {
	return filepath.Join(s.dir, accountKey(username)+extension)
}

func (s *FileStore) Load(username string) (*DeviceTrust, error) {
	lock := s.accountLock(username)
	lock.Lock()
	defer lock.Unlock()

	var trust DeviceTrust
	found := false

	sentry, err := os.ReadFile(s.path(username, sentryExtension))
	switch {
	case err == nil && len(sentry) > 0:
		hash := sha1.Sum(sentry)
		trust.SentryHash = hash[:]
		found = true
	case err != nil && !os.IsNotExist(err):
		return nil, eris.Wrapf(err, "reading sentry file for %s", username)
	}

	loginKey, err := os.ReadFile(s.path(username, loginKeyExtension))
	switch {
	case err == nil:
		key := strings.TrimSpace(string(loginKey))
		if LoginKeyUsable(key, s.now()) {
			trust.LoginKey = key
			found = true
		}
	case !os.IsNotExist(err):
		return nil, eris.Wrapf(err, "reading login key for %s", username)
	}

	if !found {
		return nil, nil
	}
	return &trust, nil
}

// SaveSentry merges a chunk pushed by the platform into the account's sentry file and
// returns the hash and size of the resulting file.
func (s *FileStore) SaveSentry(username string, offset int, data []byte, bytesToWrite int) ([]byte, int, error) {
	if offset < 0 || bytesToWrite < 0 || bytesToWrite > len(data) {
		return nil, 0, eris.Errorf("invalid sentry chunk: offset=%d bytesToWrite=%d len=%d", offset, bytesToWrite, len(data))
	}

	lock := s.accountLock(username)
	lock.Lock()
	defer lock.Unlock()

	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return nil, 0, eris.Wrapf(err, "creating trust directory %s", s.dir)
	}

	file, err := os.OpenFile(s.path(username, sentryExtension), os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		return nil, 0, eris.Wrapf(err, "opening sentry file for %s", username)
	}
	defer file.Close()

	if _, err := file.WriteAt(data[:bytesToWrite], int64(offset)); err != nil {
		return nil, 0, eris.Wrapf(err, "writing sentry file for %s", username)
	}

	if err := file.Sync(); err != nil {
		return nil, 0, eris.Wrapf(err, "syncing sentry file for %s", username)
	}

	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return nil, 0, eris.Wrap(err, "rewinding sentry file")
	}

	hasher := sha1.New()
	size, err := io.Copy(hasher, file)
	if err != nil {
		return nil, 0, eris.Wrapf(err, "hashing sentry file for %s", username)
	}

	return hasher.Sum(nil), int(size), nil
}

func (s *FileStore) SaveLoginKey(username string, key string) error {
	if key == "" {
		return eris.New("refusing to store an empty login key")
	}

	lock := s.accountLock(username)
	lock.Lock()
	defer lock.Unlock()

	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return eris.Wrapf(err, "creating trust directory %s", s.dir)
	}

	// write then rename so a crash never leaves a truncated key behind
	target := s.path(username, loginKeyExtension)
	temp := target + ".tmp"
	if err := os.WriteFile(temp, []byte(key), 0o600); err != nil {
		return eris.Wrapf(err, "writing login key for %s", username)
	}

	if err := os.Rename(temp, target); err != nil {
		return eris.Wrapf(err, "replacing login key for %s", username)
	}

	return nil
}

// LoginKeyUsable drops keys that can no longer log in. Legacy login keys are opaque and
// always usable; newer refresh-token style keys are JWTs and are rejected once expired.
func LoginKeyUsable(key string, now time.Time) bool {
	if key == "" {
		return false
	}

	if strings.Count(key, ".") != 2 {
		return true
	}

	token, _, err := jwt.NewParser().ParseUnverified(key, jwt.MapClaims{})
	if err != nil {
		return true
	}

	expiry, err := token.Claims.GetExpirationTime()
	if err != nil || expiry == nil {
		return true
	}

	return now.Before(expiry.Time)
}
