package installer

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	resultFile = "result.json"
)

type Result struct {
	Success     bool
	Error       string
	AppName     string
	VersionCode int
	Path        string
	Fallback    bool
	ExecutedAt  time.Time
}

// ResultHandler handles reading and writing install results
type ResultHandler struct {
	resultFile string
}

// NewResultHandler stores results as "result.json" in the given directory
func NewResultHandler(stateDir string) *ResultHandler {
	return &ResultHandler{
		resultFile: filepath.Join(stateDir, resultFile),
	}
}

// Write writes the install result for the status command to read
func (rh *ResultHandler) Write(result Result) error {
	log.Debugf("write out installer result to: %s", rh.resultFile)
	dir := filepath.Dir(rh.resultFile)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Errorf("failed to create directory %s: %v", dir, err)
		return err
	}

	if result.ExecutedAt.IsZero() {
		result.ExecutedAt = time.Now()
	}

	data, err := json.Marshal(result)
	if err != nil {
		return err
	}

	// Write to a temporary file first, then rename for atomic operation
	tmpPath := rh.resultFile + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		log.Errorf("failed to create temp file: %s", err)
		return err
	}

	if err := os.Rename(tmpPath, rh.resultFile); err != nil {
		if cleanupErr := os.Remove(tmpPath); cleanupErr != nil {
			log.Warnf("Failed to remove temp result file: %v", cleanupErr)
		}
		return err
	}

	return nil
}

// Read returns the last written result
func (rh *ResultHandler) Read() (Result, error) {
	data, err := os.ReadFile(rh.resultFile)
	if err != nil {
		return Result{}, err
	}

	var result Result
	if err := json.Unmarshal(data, &result); err != nil {
		return Result{}, fmt.Errorf("invalid result format: %w", err)
	}

	return result, nil
}

// Cleanup removes the result file if it exists
func (rh *ResultHandler) Cleanup() error {
	err := os.Remove(rh.resultFile)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	log.Debugf("delete installer result file: %s", rh.resultFile)
	return nil
}
