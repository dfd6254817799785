package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

// FileShim is a local gateway that keeps fqdn -> address in a JSON file.
type FileShim struct {
	filePath string
	zone     string
	logger   *logrus.Entry
	mu       sync.Mutex
}

// Ensure FileShim implements Gateway.
var _ Gateway = (*FileShim)(nil)

// NewFileShim creates a new file-based gateway for local runs and testing.
func NewFileShim(filePath, zone string, logger *logrus.Entry) *FileShim {
	return &FileShim{
		filePath: filePath,
		zone:     zone,
		logger:   logger.WithField("provider", "file"),
	}
}

// Records reads the current mappings from the file.
func (f *FileShim) Records() (map[string]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.read()
}

func (f *FileShim) read() (map[string]string, error) {
	records := make(map[string]string)

	data, err := os.ReadFile(f.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			// No pushes yet
			return records, nil
		}
		return nil, fmt.Errorf("reading records file: %w", err)
	}

	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parsing records file: %w", err)
	}
	return records, nil
}

// PushAddressChange writes the mapping to the file.
func (f *FileShim) PushAddressChange(ctx context.Context, hostname, address string) error {
	if _, err := RecordType(address); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	records, err := f.read()
	if err != nil {
		return err
	}

	fqdn := FQDN(hostname, f.zone)
	records[fqdn] = address

	// Marshal with indentation for readability
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling records: %w", err)
	}

	// Write beside the target and rename over it
	tmp := f.filePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("writing records file: %w", err)
	}
	if err := os.Rename(tmp, f.filePath); err != nil {
		return fmt.Errorf("replacing records file: %w", err)
	}

	f.logger.WithFields(logrus.Fields{"fqdn": fqdn, "address": address}).Info("record written")
	return nil
}
