package catalog

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

type document struct {
	Questions []Question `yaml:"questions"`
}

// LoadFile reads a YAML catalog file.
func LoadFile(path string) ([]Question, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	return Parse(bytes.NewReader(raw))
}

// Parse decodes a YAML catalog. Questions without an explicit sequence take
// their 1-based position in the file.
func Parse(r io.Reader) ([]Question, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var doc document
	if err := dec.Decode(&doc); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	for i := range doc.Questions {
		if doc.Questions[i].Sequence == 0 {
			doc.Questions[i].Sequence = i + 1
		}
	}
	return doc.Questions, nil
}
