package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"stoplist-telegram/logging"
	"stoplist-telegram/models"
)

// LocalStore keeps the two state blobs in JSON files on local disk.
type LocalStore struct {
	stopListPath string
	deliveryPath string
	log          logging.Logger
	mu           sync.RWMutex
}

func NewLocalStore(stopListPath, deliveryPath string, log logging.Logger) *LocalStore {
	if log == nil {
		log = logging.Discard()
	}
	return &LocalStore{stopListPath: stopListPath, deliveryPath: deliveryPath, log: log}
}

// Fetch reads both files. A missing or unparsable file yields that blob's
// default; the other blob is kept. Only a failed read is returned as an error.
func (s *LocalStore) Fetch(ctx context.Context) (models.State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := models.DefaultState()
	var list models.StopList
	ok, err := s.readBlob(ctx, s.stopListPath, &list)
	if err != nil {
		return models.DefaultState(), err
	}
	if ok && list != nil {
		st.StopList = list.Dedup()
	}
	var delivery models.DeliveryStatus
	ok, err = s.readBlob(ctx, s.deliveryPath, &delivery)
	if err != nil {
		return models.DefaultState(), err
	}
	if ok {
		st.Delivery = delivery
	}
	return st, nil
}

// readBlob decodes path into v and reports whether the content was valid.
// Invalid content is logged, not returned.
func (s *LocalStore) readBlob(ctx context.Context, path string, v any) (bool, error) {
	err := readJSONFile(path, v)
	var perr *parseError
	if errors.As(err, &perr) {
		s.log.Warn(ctx, "local file unparsable, using default", "path", path, "err", perr.err)
		return false, nil
	}
	return err == nil, err
}

// Store overwrites both files. The two writes are not atomic as a pair: a
// crash between them leaves the files from different saves.
func (s *LocalStore) Store(ctx context.Context, st models.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := st.StopList
	if list == nil {
		list = models.StopList{}
	}
	if err := writeJSONFile(s.stopListPath, list); err != nil {
		return err
	}
	return writeJSONFile(s.deliveryPath, st.Delivery)
}

type parseError struct {
	path string
	err  error
}

func (e *parseError) Error() string {
	return fmt.Sprintf("%v: parse %s: %v", ErrLocalIO, e.path, e.err)
}

func (e *parseError) Unwrap() error { return ErrLocalIO }

func readJSONFile(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("%w: read %s: %v", ErrLocalIO, path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return &parseError{path: path, err: err}
	}
	return nil
}

// marshalPretty encodes v indented by two spaces without escaping HTML or
// non-ASCII characters.
func marshalPretty(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// writeJSONFile replaces path through a temp file and rename so readers never
// see a half-written file.
func writeJSONFile(path string, v any) error {
	data, err := marshalPretty(v)
	if err != nil {
		return fmt.Errorf("%w: marshal %s: %v", ErrLocalIO, path, err)
	}
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLocalIO, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("%w: write %s: %v", ErrLocalIO, path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: write %s: %v", ErrLocalIO, path, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: chmod %s: %v", ErrLocalIO, path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: rename %s: %v", ErrLocalIO, path, err)
	}
	return nil
}
