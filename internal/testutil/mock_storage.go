// mock_storage.go - Mock storage implementation for testing
package testutil

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/medreport/viewer/internal/models"
	"github.com/medreport/viewer/internal/storage"
)

var _ storage.Store = (*MockStorage)(nil)

// MockStorage implements storage.Store in memory for testing
type MockStorage struct {
	files    map[string]*models.FileHandle
	fileData map[string][]byte
	mu       sync.RWMutex

	// SaveErr, when set, is returned by every Save call.
	SaveErr error
}

// NewMockStorage creates an empty mock storage
func NewMockStorage() *MockStorage {
	return &MockStorage{
		files:    make(map[string]*models.FileHandle),
		fileData: make(map[string][]byte),
	}
}

func (m *MockStorage) Save(name, contentType string, r io.Reader) (*models.FileHandle, error) {
	if m.SaveErr != nil {
		return nil, m.SaveErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return m.AddFile(name, contentType, data), nil
}

// AddFile stores data directly and returns its handle.
func (m *MockStorage) AddFile(name, contentType string, data []byte) *models.FileHandle {
	m.mu.Lock()
	defer m.mu.Unlock()

	file := &models.FileHandle{
		ID:          generateTestID(),
		Name:        name,
		Size:        int64(len(data)),
		ContentType: contentType,
		SelectedAt:  time.Now(),
	}
	m.files[file.ID] = file
	m.fileData[file.ID] = data
	return file
}

func (m *MockStorage) Open(id string) (io.ReadCloser, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.fileData[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *MockStorage) List(limit int) ([]*models.FileHandle, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	files := make([]*models.FileHandle, 0, len(m.files))
	for _, file := range m.files {
		files = append(files, file)
	}
	sort.Slice(files, func(i, j int) bool {
		return files[i].SelectedAt.After(files[j].SelectedAt)
	})
	if limit > 0 && len(files) > limit {
		files = files[:limit]
	}
	return files, nil
}

func (m *MockStorage) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.files[id]; !exists {
		return errors.New("file not found")
	}

	delete(m.files, id)
	delete(m.fileData, id)
	return nil
}

// Has reports whether id is still stored.
func (m *MockStorage) Has(id string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.files[id]
	return ok
}

// Count returns the number of stored files.
func (m *MockStorage) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.files)
}

var testIDCounter atomic.Int64

func generateTestID() string {
	return fmt.Sprintf("test-file-%d", testIDCounter.Add(1))
}
