package report

// Package report persists and reads back the per-run report record.

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/solverify/solverify/model"
)

// FileName is the report file written into the output directory.
const FileName = "report.json"

// Write serializes the run report into dir.
func Write(dir string, r model.RunReport) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize run report: %w", err)
	}
	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// Load parses the run report from dir.
func Load(dir string) (model.RunReport, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return model.RunReport{}, fmt.Errorf("no run report found at %s: %w", path, err)
	}
	var r model.RunReport
	if err := json.Unmarshal(data, &r); err != nil {
		return model.RunReport{}, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return r, nil
}
