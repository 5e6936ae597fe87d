package store

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// fileState is the on-disk schema: one JSON document holding all three keys
// so that the whole credential set is replaced or removed in one rename.
type fileState struct {
	Token        string      `json:"token,omitempty"`
	RefreshToken string      `json:"refreshToken,omitempty"`
	User         *CachedUser `json:"user,omitempty"`
}

// File is a Store backed by a single JSON file in a profile directory, the
// localStorage analog: it survives restarts and is shared by every process
// ("tab") pointed at the same path. Writes go through a temp file + rename,
// so concurrent writers settle on last-write-wins without torn documents.
type File struct {
	path string
	mu   sync.Mutex
}

// NewFile creates a file store at dir/session.json, creating dir when
// missing. The file is chmod 0600: it holds live credentials.
func NewFile(dir string) (*File, error) {
	if dir == "" {
		return nil, errors.New("store: empty profile directory")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}
	return &File{path: filepath.Join(dir, "session.json")}, nil
}

// Save overwrites the token pair, preserving the cached user.
func (f *File) Save(_ context.Context, pair TokenPair) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	state := f.read()
	state.Token = pair.AccessToken
	state.RefreshToken = pair.RefreshToken
	return f.write(state)
}

// SaveUser overwrites the cached user projection, preserving the tokens.
func (f *File) SaveUser(_ context.Context, user CachedUser) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	state := f.read()
	state.User = &user
	return f.write(state)
}

// Clear removes the backing file. A missing file is not an error.
func (f *File) Clear(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	err := os.Remove(f.path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// AccessToken returns the persisted access token, or "" when absent.
func (f *File) AccessToken(_ context.Context) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.read().Token
}

// RefreshToken returns the persisted refresh token, or "" when absent.
func (f *File) RefreshToken(_ context.Context) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.read().RefreshToken
}

// CachedUser returns the cached user projection, if one was persisted.
func (f *File) CachedUser(_ context.Context) (CachedUser, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	state := f.read()
	if state.User == nil {
		return CachedUser{}, false
	}
	return *state.User, true
}

func (f *File) read() fileState {
	var state fileState
	data, err := os.ReadFile(f.path)
	if err != nil {
		return fileState{}
	}
	if err := json.Unmarshal(data, &state); err != nil {
		// A corrupt document reads as empty; the next write replaces it.
		return fileState{}
	}
	return state
}

func (f *File) write(state fileState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".session-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, f.path)
}
