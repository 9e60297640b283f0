// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

// Package config implements the self-describing configuration documents
// every backend engine is constructed from (§6), and the 128-bit database
// identifier addressing scheme.
package config

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/mitchellh/mapstructure"

	"storj.io/yokan/status"
)

// Validator is implemented by a backend's decoded Config struct to reject
// semantically invalid (as opposed to merely malformed) configuration at
// decode time, so status.InvalidConf is raised before engine construction
// ever begins.
type Validator interface {
	Validate() error
}

// Decode parses raw as a JSON object and strictly decodes it into out (which
// must be a pointer to a struct tagged with `mapstructure:"..."`). Unknown
// fields are rejected with status.InvalidConf, matching the original's
// requirement that a typo'd configuration field fail loudly rather than be
// silently ignored. An empty raw is decoded as "{}", which leaves out's
// fields as they were.
func Decode(raw []byte, out interface{}) error {
	if len(raw) == 0 {
		raw = []byte("{}")
	}
	var generic map[string]interface{}
	if err := json.Unmarshal(raw, &generic); err != nil {
		return status.Newf(status.InvalidConf, "malformed configuration: %v", err)
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		Result:           out,
	})
	if err != nil {
		return status.Newf(status.InvalidConf, "building configuration decoder: %v", err)
	}
	if err := dec.Decode(generic); err != nil {
		return status.Newf(status.InvalidConf, "decoding configuration: %v", err)
	}
	if v, ok := out.(Validator); ok {
		if err := v.Validate(); err != nil {
			return status.Newf(status.InvalidConf, "invalid configuration: %v", err)
		}
	}
	return nil
}

// Encode renders a Config struct back to the canonical JSON form Config()
// echoes to callers.
func Encode(in interface{}) string {
	b, err := json.Marshal(in)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// DatabaseID is the 128-bit identifier addressing a database within a
// provider (§6), rendered in its canonical 36-character 8-4-4-4-12 form.
type DatabaseID struct {
	uuid.UUID
}

// NewDatabaseID generates a fresh random database identifier.
func NewDatabaseID() DatabaseID {
	return DatabaseID{uuid.New()}
}

// ParseDatabaseID parses the canonical string form, rejecting anything else
// with status.InvalidArg.
func ParseDatabaseID(s string) (DatabaseID, error) {
	if len(s) != 36 {
		return DatabaseID{}, status.Newf(status.InvalidArg, "invalid database id %q: expected 36 characters", s)
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return DatabaseID{}, status.Newf(status.InvalidArg, "invalid database id %q: %v", s, err)
	}
	return DatabaseID{id}, nil
}

// String renders the canonical 8-4-4-4-12 form.
func (d DatabaseID) String() string { return d.UUID.String() }

// GoString supports %#v / debugging output.
func (d DatabaseID) GoString() string { return fmt.Sprintf("config.DatabaseID(%q)", d.String()) }
