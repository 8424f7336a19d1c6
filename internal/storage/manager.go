package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jd-analyzer/backend/internal/models"
)

// ErrNotFound is returned for unknown document IDs.
var ErrNotFound = errors.New("document not found")

// Store defines the interface for ingested document storage.
type Store interface {
	Save(name string, data []byte, doc *models.ParsedDocument) (*models.FileInfo, error)
	Get(id string) (*models.FileInfo, error)
	GetText(id string) (string, error)
	List(limit int) ([]*models.FileInfo, error)
	Delete(id string) error
	Rename(id string, newName string) (*models.FileInfo, error)
}

// LocalStore implements Store using the local filesystem. The original upload
// is kept as <id> and the extracted text as <id>.txt.
type LocalStore struct {
	mu        sync.RWMutex
	uploadDir string
	files     map[string]*models.FileInfo
}

// NewLocalStore creates a new LocalStore.
func NewLocalStore(uploadDir string) (*LocalStore, error) {
	if err := os.MkdirAll(uploadDir, 0755); err != nil {
		return nil, fmt.Errorf("creating upload directory: %w", err)
	}

	return &LocalStore{
		uploadDir: uploadDir,
		files:     make(map[string]*models.FileInfo),
	}, nil
}

// Save writes the upload and its extracted text to disk.
func (s *LocalStore) Save(name string, data []byte, doc *models.ParsedDocument) (*models.FileInfo, error) {
	id := uuid.New().String()
	rawPath := s.rawPath(id)
	textPath := s.textPath(id)

	if err := os.WriteFile(rawPath, data, 0644); err != nil {
		return nil, fmt.Errorf("writing file: %w", err)
	}
	if err := os.WriteFile(textPath, []byte(doc.Text), 0644); err != nil {
		os.Remove(rawPath)
		return nil, fmt.Errorf("writing extracted text: %w", err)
	}

	info := &models.FileInfo{
		ID:         id,
		Name:       name,
		Size:       int64(len(data)),
		Format:     doc.Format,
		Encoding:   doc.Encoding,
		Chars:      utf8.RuneCountInString(doc.Text),
		UploadedAt: time.Now(),
		Status:     "parsed",
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[id] = info

	return info.Clone(), nil
}

// Get retrieves document metadata by ID.
func (s *LocalStore) Get(id string) (*models.FileInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	info, ok := s.files[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	return info.Clone(), nil
}

// GetText returns the extracted text of a document.
func (s *LocalStore) GetText(id string) (string, error) {
	s.mu.RLock()
	_, ok := s.files[id]
	s.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	data, err := os.ReadFile(s.textPath(id))
	if err != nil {
		return "", fmt.Errorf("reading extracted text: %w", err)
	}
	return string(data), nil
}

// List returns the most recent documents.
func (s *LocalStore) List(limit int) ([]*models.FileInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]*models.FileInfo, 0, len(s.files))
	for _, info := range s.files {
		list = append(list, info.Clone())
	}

	// Sort by UploadedAt desc
	sort.Slice(list, func(i, j int) bool {
		return list[i].UploadedAt.After(list[j].UploadedAt)
	})

	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}

	return list, nil
}

// Delete removes a document and its extracted text.
func (s *LocalStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.files[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	for _, path := range []string{s.rawPath(id), s.textPath(id)} {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("deleting file: %w", err)
		}
	}

	delete(s.files, id)
	return nil
}

// Rename updates the display name of a document.
func (s *LocalStore) Rename(id string, newName string) (*models.FileInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	info, ok := s.files[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	info.Name = newName
	return info.Clone(), nil
}

func (s *LocalStore) rawPath(id string) string {
	return filepath.Join(s.uploadDir, id)
}

func (s *LocalStore) textPath(id string) string {
	return filepath.Join(s.uploadDir, id+".txt")
}
