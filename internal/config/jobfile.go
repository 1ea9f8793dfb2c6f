package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadJobFile overlays a YAML job file onto cfg. Keys absent from the file
// keep their current values; unknown keys are rejected.
//
//	migration:
//	  database: shop
//	  allTables: true
//	  batchSize: 500
//	sink:
//	  output: ./shop.db
func LoadJobFile(path string, cfg *Config) error {
	if path == "" {
		return errors.New("job file path is required")
	}

	_, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("job file not found: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read job file: %w", err)
	}

	return decodeJob(data, cfg)
}

func decodeJob(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse job file: %w", err)
	}
	return nil
}
