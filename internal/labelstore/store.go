// Package labelstore provides label file handling and persistence.
package labelstore

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"labeltool/internal/labels"
	"labeltool/internal/logging"
)

// ErrNoLabels is returned by Load when an image has no labels file yet.
var ErrNoLabels = errors.New("labelstore: no labels file")

// Suffix is appended to the image file stem to name its labels file.
const Suffix = "__labels.json"

// File is the on-disk form of an image's labels.
type File struct {
	ImageFilename string         `json:"image_filename"`
	Labels        []labels.Model `json:"labels"`
	Complete      bool           `json:"complete"`
}

// Store reads and writes labels files next to their images, or in a
// separate labels directory.
type Store struct {
	dir string
}

// New creates a store. An empty dir keeps labels beside the images.
func New(dir string) *Store {
	return &Store{dir: dir}
}

// Path returns the labels file path for an image.
func (s *Store) Path(imagePath string) string {
	base := filepath.Base(imagePath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))

	dir := s.dir
	if dir == "" {
		dir = filepath.Dir(imagePath)
	}
	return filepath.Join(dir, stem+Suffix)
}

// Load reads the labels of an image into a header whose image id is the
// image file name. Files holding a bare label list are accepted.
func (s *Store) Load(imagePath string) (*labels.Header, error) {
	data, err := os.ReadFile(s.Path(imagePath))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoLabels
		}
		return nil, fmt.Errorf("failed to read labels: %w", err)
	}

	h, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", s.Path(imagePath), err)
	}
	h.ImageID = filepath.Base(imagePath)
	return h, nil
}

// Decode parses a labels file in either the wrapped or the bare list form.
func Decode(data []byte) (*labels.Header, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		models, err := labels.DecodeList(trimmed)
		if err != nil {
			return nil, err
		}
		return &labels.Header{Labels: models}, nil
	}

	var raw struct {
		ImageFilename string          `json:"image_filename"`
		Labels        json.RawMessage `json:"labels"`
		Complete      bool            `json:"complete"`
	}
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, err
	}

	models := []labels.Model{}
	if len(raw.Labels) > 0 && !bytes.Equal(raw.Labels, []byte("null")) {
		var err error
		if models, err = labels.DecodeList(raw.Labels); err != nil {
			return nil, err
		}
	}
	return &labels.Header{ImageID: raw.ImageFilename, Labels: models, Complete: raw.Complete}, nil
}

// Encode renders the labels file for h. It returns nil when h has no labels
// and is not marked complete; such a header is stored as no file at all.
func Encode(imagePath string, h *labels.Header) ([]byte, error) {
	if len(h.Labels) == 0 && !h.Complete {
		return nil, nil
	}
	f := File{
		ImageFilename: filepath.Base(imagePath),
		Labels:        h.Labels,
		Complete:      h.Complete,
	}
	if f.Labels == nil {
		f.Labels = []labels.Model{}
	}
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode labels: %w", err)
	}
	return data, nil
}

// Save writes the labels of an image. Saving an empty, incomplete header
// deletes the labels file.
func (s *Store) Save(imagePath string, h *labels.Header) error {
	data, err := Encode(imagePath, h)
	if err != nil {
		return err
	}
	return s.write(imagePath, data)
}

// write stores encoded labels, removing the file when data is nil.
func (s *Store) write(imagePath string, data []byte) error {
	path := s.Path(imagePath)
	log := logging.For("labelstore")

	if data == nil {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to remove labels: %w", err)
		}
		log.Info("labels cleared", "path", path)
		return nil
	}

	if s.dir != "" {
		if err := os.MkdirAll(s.dir, 0755); err != nil {
			return fmt.Errorf("failed to create labels directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write labels: %w", err)
	}
	log.Info("labels saved", "path", path)
	return nil
}
