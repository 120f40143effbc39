package logging

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/aescanero/fftdetect/pkg/domain"
)

const (
	// RequestsLogFile receives the raw body of every detection request
	RequestsLogFile = "requests.log"
	// DetectionsLogFile receives one block per recorded detection
	DetectionsLogFile = "detections.log"
)

// Journal appends plain text blocks to the unrotated journal files.
//
// Each append opens the file with O_APPEND, so a file moved away by an
// external rotation tool is recreated on the next write. Appends from
// concurrent requests are not serialised beyond what the kernel guarantees
// for a single write call.
type Journal struct {
	dir string
	now func() time.Time
}

// NewJournal creates dir if needed and returns a journal writing into it
func NewJournal(dir string) (*Journal, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	return &Journal{dir: dir, now: time.Now}, nil
}

// Dir returns the journal directory
func (j *Journal) Dir() string {
	return j.dir
}

// AppendRequest records the raw body of a detection request
func (j *Journal) AppendRequest(clientIP string, body []byte) error {
	block := fmt.Sprintf("%s - Request from %s:\nBody: %s\n",
		domain.FormatTimestamp(j.now()), clientIP, body)
	return appendFile(filepath.Join(j.dir, RequestsLogFile), block)
}

// AppendDetection records an accepted detection as a single JSON line
func (j *Journal) AppendDetection(d domain.Detection) error {
	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("failed to marshal detection: %w", err)
	}
	block := fmt.Sprintf("%s - Detection: %s\n", domain.FormatTimestamp(j.now()), data)
	return appendFile(filepath.Join(j.dir, DetectionsLogFile), block)
}

func appendFile(path, text string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", filepath.Base(path), err)
	}

	if _, err := f.WriteString(text); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to append to %s: %w", filepath.Base(path), err)
	}

	return f.Close()
}
