package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"docextract/pkg/models"
)

// medicalLabels is the display order of the medical section.
var medicalLabels = []struct {
	label string
	value func(*models.StructuredData) *string
}{
	{"Name", func(s *models.StructuredData) *string { return s.Name }},
	{"Age", func(s *models.StructuredData) *string { return s.Age }},
	{"Allergies", func(s *models.StructuredData) *string { return s.Allergies }},
	{"Medications", func(s *models.StructuredData) *string { return s.Medications }},
	{"Surgeries", func(s *models.StructuredData) *string { return s.Surgeries }},
	{"History", func(s *models.StructuredData) *string { return s.History }},
	{"Notes", func(s *models.StructuredData) *string { return s.Notes }},
}

// writeReport prints one result the way the upload UI shows it.
func writeReport(w io.Writer, resp *models.ExtractResponse) {
	var b strings.Builder

	fmt.Fprintf(&b, "=== %s (%s) ===\n", resp.Filename, resp.Method)
	fmt.Fprintf(&b, "File type: %s\n", resp.FileType)
	if resp.NumPages != nil {
		fmt.Fprintf(&b, "Pages: %d\n", *resp.NumPages)
	}
	if resp.Status != "" && resp.Status != string(models.StatusSuccess) {
		fmt.Fprintf(&b, "Status: %s (%s)\n", resp.Status, resp.Reason)
	}
	for _, warning := range resp.Warnings {
		fmt.Fprintf(&b, "Warning: %s\n", warning)
	}

	if sd := resp.StructuredData; sd != nil && sd.IsMedicalDocument {
		b.WriteString("\n--- Medical Information ---\n")
		for _, field := range medicalLabels {
			if v := field.value(sd); v != nil && *v != "" {
				fmt.Fprintf(&b, "%s: %s\n", field.label, *v)
			}
		}
	}

	b.WriteString("\n--- Raw Text ---\n")
	b.WriteString(resp.Text)
	b.WriteString("\n\n")

	_, _ = io.WriteString(w, b.String())
}

// saveResult writes <base>.txt and <base>.json into dir.
func saveResult(dir string, resp *models.ExtractResponse) (string, string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", fmt.Errorf("failed to create %s: %w", dir, err)
	}

	base := resultBaseName(resp.Filename)
	txtPath := filepath.Join(dir, base+".txt")
	jsonPath := filepath.Join(dir, base+".json")

	if err := os.WriteFile(txtPath, []byte(resp.Text), 0o644); err != nil {
		return "", "", fmt.Errorf("failed to write %s: %w", txtPath, err)
	}

	data, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return "", "", fmt.Errorf("failed to encode result: %w", err)
	}
	if err := os.WriteFile(jsonPath, data, 0o644); err != nil {
		return "", "", fmt.Errorf("failed to write %s: %w", jsonPath, err)
	}
	return txtPath, jsonPath, nil
}

// resultBaseName drops the last extension. Empty names become "extracted".
func resultBaseName(filename string) string {
	name := filepath.Base(filename)
	if filename == "" || name == "." || name == string(filepath.Separator) {
		return "extracted"
	}
	if ext := filepath.Ext(name); ext != "" && ext != name {
		name = strings.TrimSuffix(name, ext)
	}
	return name
}
