// Package storage persists enrolled face templates. Records are encrypted
// at rest with NaCl secretbox using a machine-bound key, so an enrollment
// database copied to another host cannot be opened there.
package storage

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/crypto/nacl/secretbox"

	"github.com/faceguard/faceguard/pkg/logging"
	"github.com/faceguard/faceguard/pkg/recognition"
)

const (
	// NonceSize is the secretbox nonce length prefixed to each record.
	NonceSize = 24
	// KeySize is the secretbox key length.
	KeySize = 32
)

// Template is one enrolled embedding with capture metadata.
type Template struct {
	Vector     []float32 `json:"vector"`
	CapturedAt time.Time `json:"captured_at"`
	Label      string    `json:"label,omitempty"`
}

// NewTemplate wraps an embedding captured now.
func NewTemplate(vector []float32, label string) Template {
	return Template{
		Vector:     vector,
		CapturedAt: time.Now(),
		Label:      label,
	}
}

// Record holds every template enrolled for one subject.
type Record struct {
	Subject    string            `json:"subject"`
	Templates  []Template        `json:"templates"`
	EnrolledAt time.Time         `json:"enrolled_at"`
	LastUsed   time.Time         `json:"last_used"`
	Metadata   map[string]string `json:"metadata"`
}

// ErrSubjectNotFound is returned when the subject is not enrolled.
var ErrSubjectNotFound = errors.New("subject not found")

// ErrSubjectExists is returned when enrolling an already enrolled subject.
var ErrSubjectExists = errors.New("subject already enrolled")

// ErrEncryption is returned when a record cannot be sealed or opened.
var ErrEncryption = errors.New("encryption error")

// FileStore keeps one file per subject under dataDir/subjects.
type FileStore struct {
	dataDir           string
	encryptionEnabled bool
	encryptionKey     [KeySize]byte
}

// NewFileStore opens (creating if needed) a template store rooted at dataDir.
func NewFileStore(dataDir string, encryptionEnabled bool) (*FileStore, error) {
	s := &FileStore{
		dataDir:           dataDir,
		encryptionEnabled: encryptionEnabled,
	}

	if encryptionEnabled {
		key, err := deriveKey()
		if err != nil {
			return nil, fmt.Errorf("failed to derive encryption key: %w", err)
		}
		s.encryptionKey = key
	}

	subjectsDir := filepath.Join(dataDir, "subjects")
	if err := os.MkdirAll(subjectsDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create subjects directory: %w", err)
	}

	return s, nil
}

// deriveKey derives the encryption key from machine identity, tying the
// template database to this host.
func deriveKey() ([KeySize]byte, error) {
	var key [KeySize]byte

	var identity strings.Builder

	// Machine ID (Linux specific)
	if machineID, err := os.ReadFile("/etc/machine-id"); err == nil {
		identity.Write(machineID)
	}

	if hostname, err := os.Hostname(); err == nil {
		identity.WriteString(hostname)
	}

	identity.WriteString(fmt.Sprintf("%d", os.Getuid()))
	identity.WriteString("faceguard-v1-salt")

	hash := sha256.Sum256([]byte(identity.String()))
	copy(key[:], hash[:])

	return key, nil
}

func (s *FileStore) recordPath(subject string) string {
	filename := subject + ".json"
	if s.encryptionEnabled {
		filename = subject + ".enc"
	}
	return filepath.Join(s.dataDir, "subjects", filename)
}

// Save writes a record, replacing any previous one for the same subject.
func (s *FileStore) Save(rec Record) error {
	path := s.recordPath(rec.Subject)

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	if s.encryptionEnabled {
		data, err = s.encrypt(data)
		if err != nil {
			return fmt.Errorf("failed to encrypt record: %w", err)
		}
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write record: %w", err)
	}

	logging.Debugf("Saved templates for: %s", rec.Subject)
	return nil
}

// Load reads the record for one subject.
func (s *FileStore) Load(subject string) (*Record, error) {
	path := s.recordPath(subject)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrSubjectNotFound
		}
		return nil, fmt.Errorf("failed to read record: %w", err)
	}

	if s.encryptionEnabled {
		data, err = s.decrypt(data)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt record: %w", err)
		}
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal record: %w", err)
	}

	logging.Debugf("Loaded templates for: %s", subject)
	return &rec, nil
}

// Delete removes a subject's record.
func (s *FileStore) Delete(subject string) error {
	path := s.recordPath(subject)

	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return ErrSubjectNotFound
		}
		return fmt.Errorf("failed to delete record: %w", err)
	}

	logging.Infof("Deleted templates for: %s", subject)
	return nil
}

// List returns every enrolled subject name.
func (s *FileStore) List() ([]string, error) {
	subjectsDir := filepath.Join(s.dataDir, "subjects")

	entries, err := os.ReadDir(subjectsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list subjects: %w", err)
	}

	var subjects []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()

		// Handle both encrypted and plaintext records
		if strings.HasSuffix(name, ".json") {
			subjects = append(subjects, strings.TrimSuffix(name, ".json"))
		} else if strings.HasSuffix(name, ".enc") {
			subjects = append(subjects, strings.TrimSuffix(name, ".enc"))
		}
	}

	return subjects, nil
}

// Exists reports whether a subject is enrolled.
func (s *FileStore) Exists(subject string) bool {
	_, err := os.Stat(s.recordPath(subject))
	return err == nil
}

// Enroll creates a record for a new subject.
func (s *FileStore) Enroll(subject string, templates []Template, metadata map[string]string) error {
	if s.Exists(subject) {
		return ErrSubjectExists
	}

	if metadata == nil {
		metadata = make(map[string]string)
	}

	now := time.Now()
	return s.Save(Record{
		Subject:    subject,
		Templates:  templates,
		EnrolledAt: now,
		LastUsed:   now,
		Metadata:   metadata,
	})
}

// AddTemplate appends a template to an existing subject.
func (s *FileStore) AddTemplate(subject string, tpl Template) error {
	rec, err := s.Load(subject)
	if err != nil {
		return err
	}

	rec.Templates = append(rec.Templates, tpl)
	rec.LastUsed = time.Now()

	return s.Save(*rec)
}

// TouchLastUsed updates the last-used timestamp after a successful match.
func (s *FileStore) TouchLastUsed(subject string) error {
	rec, err := s.Load(subject)
	if err != nil {
		return err
	}

	rec.LastUsed = time.Now()
	return s.Save(*rec)
}

// BestMatch compares an embedding against every template of a subject and
// returns the highest similarity. A subject with no templates matches with
// similarity 0.
func (s *FileStore) BestMatch(subject string, embedding []float32) (float32, error) {
	rec, err := s.Load(subject)
	if err != nil {
		return 0, err
	}

	var best float32
	for _, tpl := range rec.Templates {
		sim, err := recognition.CosineSimilarity(embedding, tpl.Vector)
		if err != nil {
			return 0, err
		}
		if sim > best {
			best = sim
		}
	}
	return best, nil
}

func (s *FileStore) encrypt(plaintext []byte) ([]byte, error) {
	var nonce [NonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, err
	}

	return secretbox.Seal(nonce[:], plaintext, &nonce, &s.encryptionKey), nil
}

func (s *FileStore) decrypt(ciphertext []byte) ([]byte, error) {
	if len(ciphertext) < NonceSize {
		return nil, ErrEncryption
	}

	var nonce [NonceSize]byte
	copy(nonce[:], ciphertext[:NonceSize])

	plaintext, ok := secretbox.Open(nil, ciphertext[NonceSize:], &nonce, &s.encryptionKey)
	if !ok {
		return nil, ErrEncryption
	}

	return plaintext, nil
}
