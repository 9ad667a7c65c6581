package storage

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

const schemaVersion = "1.0"

// lockTimeout bounds how long NewJSONStore waits for another process.
var lockTimeout = 5 * time.Second

// JSONStore implements FieldStore using a single JSON file.
type JSONStore struct {
	path string
	lock *FileLock
	data *storeData
	mu   sync.RWMutex
	now  func() time.Time
}

// storeData is the top-level JSON structure.
type storeData struct {
	Version   string                 `json:"version"`
	UpdatedAt time.Time              `json:"updated_at"`
	Fields    map[string]*FieldValue `json:"fields"` // content_item_id/field_name -> value
}

// NewJSONStore opens the JSON store at path, creating it if needed. The
// file stays locked until Close.
func NewJSONStore(path string) (*JSONStore, error) {
	s := &JSONStore{
		path: path,
		lock: NewFileLock(path),
		now:  time.Now,
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, &StorageError{Op: "open", Entity: "store", Err: err}
	}
	if err := s.lock.Lock(lockTimeout); err != nil {
		return nil, err
	}

	if err := s.load(); err != nil {
		s.lock.Unlock()
		return nil, err
	}

	return s, nil
}

// load reads the JSON file into memory. Creates empty data if file doesn't exist.
func (s *JSONStore) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.data = newStoreData()
			// Save immediately to catch permission errors early
			return s.save()
		}
		return &StorageError{Op: "read", Entity: "store", Err: err}
	}

	s.data = &storeData{}
	if err := json.Unmarshal(data, s.data); err != nil {
		return &StorageError{Op: "read", Entity: "store", Err: ErrStorageCorrupt}
	}
	if s.data.Fields == nil {
		s.data.Fields = make(map[string]*FieldValue)
	}
	for key, fv := range s.data.Fields {
		if fv == nil || fv.Key() != key {
			return &StorageError{Op: "read", Entity: "field", ID: key, Err: ErrStorageCorrupt}
		}
	}

	return nil
}

// save persists the data to disk atomically.
func (s *JSONStore) save() error {
	s.data.UpdatedAt = s.now()

	err := replaceFile(s.path, func(w io.Writer) error {
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(s.data)
	})
	if err != nil {
		return &StorageError{Op: "write", Entity: "store", Err: err}
	}
	return nil
}

// Close releases the file lock.
func (s *JSONStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lock.Unlock()
}

func newStoreData() *storeData {
	return &storeData{
		Version: schemaVersion,
		Fields:  make(map[string]*FieldValue),
	}
}

func (s *JSONStore) GetField(ctx context.Context, contentItemID, fieldName string) (*FieldValue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	key := fieldKey(contentItemID, fieldName)
	fv, ok := s.data.Fields[key]
	if !ok {
		return nil, &StorageError{Op: "read", Entity: "field", ID: key, Err: ErrNotFound}
	}
	return fv.clone(), nil
}

func (s *JSONStore) PutField(ctx context.Context, fv *FieldValue) error {
	if err := fv.validate(); err != nil {
		return &StorageError{Op: "write", Entity: "field", Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := fv.Key()
	now := s.now()
	if existing, ok := s.data.Fields[key]; ok {
		fv.ID = existing.ID
		fv.CreatedAt = existing.CreatedAt
	} else {
		if fv.ID == "" {
			fv.ID = uuid.NewString()
		}
		fv.CreatedAt = now
	}
	fv.UpdatedAt = now

	prev := s.data.Fields[key]
	s.data.Fields[key] = fv.clone()
	if err := s.save(); err != nil {
		s.restore(key, prev)
		return err
	}
	return nil
}

func (s *JSONStore) DeleteField(ctx context.Context, contentItemID, fieldName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := fieldKey(contentItemID, fieldName)
	prev, ok := s.data.Fields[key]
	if !ok {
		return &StorageError{Op: "delete", Entity: "field", ID: key, Err: ErrNotFound}
	}
	delete(s.data.Fields, key)
	if err := s.save(); err != nil {
		s.restore(key, prev)
		return err
	}
	return nil
}

func (s *JSONStore) ListFields(ctx context.Context, contentItemID string) ([]*FieldValue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*FieldValue
	for _, fv := range s.data.Fields {
		if fv.ContentItemID == contentItemID {
			out = append(out, fv.clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FieldName < out[j].FieldName })
	return out, nil
}

// restore undoes an in-memory change whose save failed.
func (s *JSONStore) restore(key string, prev *FieldValue) {
	if prev == nil {
		delete(s.data.Fields, key)
		return
	}
	s.data.Fields[key] = prev
}
