package vectorindex

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/povarna/generative-ai-agents/api-discovery/internal/models"
)

const (
	IndexFile    = "api_faiss.index"
	MetadataFile = "metadata.json"
	ManifestFile = "manifest.json"
	lockFile     = ".index.lock"

	headerSize = 16
)

var (
	magic       = [4]byte{'A', 'P', 'I', 'X'}
	LockTimeout = 10 * time.Second
)

type header struct {
	Magic   [4]byte
	Version uint32
	Dim     uint32
	Count   uint32
}

// Save writes the index, metadata and manifest into dir. All three files are
// written to temporary names first and renamed while holding an exclusive
// lock, so readers never observe a mixed pair.
func (s *Store) Save(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cannot create index dir %s: %w", dir, err)
	}

	unlock, err := acquireLock(filepath.Join(dir, lockFile), true, LockTimeout)
	if err != nil {
		return err
	}
	defer unlock()

	var vectors bytes.Buffer
	if err := s.writeIndex(&vectors); err != nil {
		return err
	}

	metadata, err := json.MarshalIndent(s.documents, "", "  ")
	if err != nil {
		return fmt.Errorf("cannot encode metadata: %w", err)
	}

	manifest, err := json.MarshalIndent(s.manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("cannot encode manifest: %w", err)
	}

	files := []struct {
		name string
		data []byte
	}{
		{IndexFile, vectors.Bytes()},
		{MetadataFile, metadata},
		{ManifestFile, manifest},
	}

	temps := make([]string, 0, len(files))
	defer func() {
		for _, tmp := range temps {
			_ = os.Remove(tmp)
		}
	}()

	for _, f := range files {
		tmp, err := writeTemp(dir, f.name, f.data)
		if err != nil {
			return err
		}
		temps = append(temps, tmp)
	}

	for i, f := range files {
		if err := os.Rename(temps[i], filepath.Join(dir, f.name)); err != nil {
			return fmt.Errorf("cannot replace %s: %w", f.name, err)
		}
	}
	temps = nil

	return nil
}

func (s *Store) writeIndex(w io.Writer) error {
	h := header{
		Magic:   magic,
		Version: IndexVersion,
		Dim:     uint32(s.index.Dim()),
		Count:   uint32(s.index.Len()),
	}
	if err := binary.Write(w, binary.LittleEndian, h); err != nil {
		return fmt.Errorf("cannot write index header: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, s.index.data); err != nil {
		return fmt.Errorf("cannot write vectors: %w", err)
	}
	return nil
}

func writeTemp(dir, name string, data []byte) (string, error) {
	f, err := os.CreateTemp(dir, "."+name+"-*")
	if err != nil {
		return "", fmt.Errorf("cannot create temp file for %s: %w", name, err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("cannot write %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}

// Load reads a Store previously written by Save
func Load(dir string) (*Store, error) {
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("cannot open index dir %s: %w", dir, err)
	}

	unlock, err := acquireLock(filepath.Join(dir, lockFile), false, LockTimeout)
	if err != nil {
		return nil, err
	}
	defer unlock()

	var manifest Manifest
	if err := readJSON(filepath.Join(dir, ManifestFile), &manifest); err != nil {
		return nil, err
	}

	var documents []models.IndexedDocument
	if err := readJSON(filepath.Join(dir, MetadataFile), &documents); err != nil {
		return nil, err
	}

	index, err := loadIndex(filepath.Join(dir, IndexFile))
	if err != nil {
		return nil, err
	}

	if manifest.Dim != 0 && manifest.Dim != index.Dim() {
		return nil, fmt.Errorf("%w: manifest dim %d, index dim %d", ErrDimensionMismatch, manifest.Dim, index.Dim())
	}
	if index.Len() != len(documents) {
		return nil, fmt.Errorf("%w: %d vectors, %d documents", ErrCountMismatch, index.Len(), len(documents))
	}

	return &Store{index: index, documents: documents, manifest: manifest}, nil
}

func loadIndex(path string) (*FlatIndex, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open index file %s: %w", path, err)
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("cannot stat index file %s: %w", path, err)
	}

	r := bufio.NewReader(f)
	var h header
	if err := binary.Read(r, binary.LittleEndian, &h); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrBadIndexFile, path, err)
	}
	if h.Magic != magic {
		return nil, fmt.Errorf("%w: %s: bad magic", ErrBadIndexFile, path)
	}
	if h.Version != IndexVersion {
		return nil, fmt.Errorf("%w: %s: unsupported version %d", ErrBadIndexFile, path, h.Version)
	}

	index, err := NewFlatIndex(int(h.Dim))
	if err != nil {
		return nil, err
	}

	expected := int64(headerSize) + int64(h.Count)*int64(h.Dim)*4
	if st.Size() != expected {
		return nil, fmt.Errorf("%w: %s: size %d, want %d (count=%d dim=%d)", ErrBadIndexFile, path, st.Size(), expected, h.Count, h.Dim)
	}

	index.data = make([]float32, int(h.Count)*int(h.Dim))
	if err := binary.Read(r, binary.LittleEndian, index.data); err != nil {
		return nil, fmt.Errorf("cannot read vectors from %s: %w", path, err)
	}

	return index, nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("cannot read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("invalid JSON in %s: %w", path, err)
	}
	return nil
}

func acquireLock(path string, exclusive bool, timeout time.Duration) (func(), error) {
	l := flock.New(path)
	deadline := time.Now().Add(timeout)
	for {
		var locked bool
		var err error
		if exclusive {
			locked, err = l.TryLock()
		} else {
			locked, err = l.TryRLock()
		}
		if err != nil {
			return nil, fmt.Errorf("cannot acquire index lock: %w", err)
		}
		if locked {
			return func() { _ = l.Unlock() }, nil
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("%w (lock: %s)", ErrLockTimeout, path)
		}
		time.Sleep(100 * time.Millisecond)
	}
}
