// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/anchorsync/anchorsync/internal/record"
	"github.com/anchorsync/anchorsync/internal/syncer"
)

const (
	TypeField = "type"
)

var (
	// ErrParsing reports failures that occur while decoding source definition files.
	ErrParsing = errors.New("error parsing")
)

// SourceConfig declares one synchronized source: the record type it covers,
// its delivery policy, and an optional explicit filter window.
type SourceConfig struct {
	Type   string       `json:"type" yaml:"type"`
	Policy PolicyConfig `json:"policy,omitempty" yaml:"policy,omitempty"`
	Filter FilterConfig `json:"filter,omitempty" yaml:"filter,omitempty"`
}

// PolicyConfig is the YAML shape of a delivery policy. A missing mode reads
// as manual, a missing start behavior as automatic.
type PolicyConfig struct {
	Mode       ModeValue  `json:"mode,omitempty" yaml:"mode,omitempty"`
	Start      StartValue `json:"start,omitempty" yaml:"start,omitempty"`
	SaveAnchor bool       `json:"saveAnchor,omitempty" yaml:"saveAnchor,omitempty"`
}

// FilterConfig bounds the records a source is interested in.
type FilterConfig struct {
	Since time.Time `json:"since,omitempty" yaml:"since,omitempty"`
}

// ModeValue decodes a delivery mode keyword.
type ModeValue syncer.Mode

// UnmarshalYAML decodes a delivery mode keyword and rejects unknown values.
func (m *ModeValue) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}

	switch strings.ToLower(raw) {
	case "manual":
		*m = ModeValue(syncer.ModeManual)
	case "stream":
		*m = ModeValue(syncer.ModeStream)
	case "push":
		*m = ModeValue(syncer.ModePush)
	default:
		return fmt.Errorf("unknown delivery mode %q", raw)
	}
	return nil
}

// StartValue decodes a start behavior keyword.
type StartValue syncer.StartBehavior

// UnmarshalYAML decodes a start behavior keyword and rejects unknown values.
func (s *StartValue) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}

	switch strings.ToLower(raw) {
	case "automatic":
		*s = StartValue(syncer.StartAutomatic)
	case "manual":
		*s = StartValue(syncer.StartManual)
	default:
		return fmt.Errorf("unknown start behavior %q", raw)
	}
	return nil
}

// RecordType returns the record type the source covers.
func (c *SourceConfig) RecordType() record.Type {
	return record.Type(c.Type)
}

// SyncerPolicy converts the declared policy to its runtime form.
func (c *SourceConfig) SyncerPolicy() syncer.Policy {
	return syncer.Policy{
		Mode:       syncer.Mode(c.Policy.Mode),
		Start:      syncer.StartBehavior(c.Policy.Start),
		SaveAnchor: c.Policy.SaveAnchor,
	}
}

// RecordFilter converts the declared filter to its runtime form. A zero
// filter asks the anchor store for the default start date on first use.
func (c *SourceConfig) RecordFilter() record.Filter {
	return record.Filter{Since: c.Filter.Since}
}

// NewSourceConfigsFromPath parses the file at path and returns the source
// definitions it contains. It reports failures encountered while reading or
// decoding the data.
func NewSourceConfigsFromPath(path string) ([]*SourceConfig, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	// Create a YAML decoder for the file.
	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)

	configs := make([]*SourceConfig, 0)

	// Continue parsing until the end of the file.
	for {
		config := new(SourceConfig)
		err := decoder.Decode(&config)
		if err != nil {
			// End of file reached, stop parsing.
			if errors.Is(err, io.EOF) {
				break
			}

			// A different parsing error occurred; return it.
			return nil, fmt.Errorf("%w %q: %w", ErrParsing, path, err)
		}

		// Skip empty configs.
		if config == nil {
			continue
		}

		if config.Type == "" {
			return nil, fmt.Errorf("%w %q: missing required fields: %v", ErrParsing, path, TypeField)
		}

		configs = append(configs, config)
	}

	return configs, nil
}
