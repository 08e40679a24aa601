// Package schema generates the JSON Schema for the guard settings document,
// for editor completion and documentation.
package schema

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"

	"github.com/armatrix/toolgate/internal/config"
)

// Generate returns the settings schema as indented JSON.
func Generate() (json.RawMessage, error) {
	r := &jsonschema.Reflector{
		ExpandedStruct: true,
		DoNotReference: true,
	}
	s := r.Reflect(&config.Settings{})
	s.Title = "toolgate guard settings"

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("schema: %w", err)
	}
	return data, nil
}
