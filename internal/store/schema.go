package store

import (
	"embed"
	"fmt"
	"sync"

	"github.com/kaptinlin/jsonschema"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// Validator checks JSON documents against a compiled schema
type Validator struct {
	name   string
	schema *jsonschema.Schema
}

// CompileValidator compiles a JSON Schema document
func CompileValidator(name string, schemaJSON []byte) (*Validator, error) {
	compiler := jsonschema.NewCompiler()
	compiler.AssertFormat = true
	schema, err := compiler.Compile(schemaJSON)
	if err != nil {
		return nil, fmt.Errorf("compile %s schema: %w", name, err)
	}
	return &Validator{name: name, schema: schema}, nil
}

// Validate returns an error describing every violation in data
func (v *Validator) Validate(data []byte) error {
	result := v.schema.ValidateJSON(data)
	if result.IsValid() {
		return nil
	}
	return fmt.Errorf("%s schema validation failed: %v", v.name, result.Errors)
}

var (
	theoremValidator = embedded("theorem")
	proofValidator   = embedded("proof")
	recordValidator  = embedded("record")

	calibrationValidator = embedded("calibration")
)

// TheoremValidator validates theorem input lines
func TheoremValidator() *Validator { return theoremValidator() }

// ProofValidator validates proofs.jsonl lines
func ProofValidator() *Validator { return proofValidator() }

// RecordValidator validates verification.jsonl lines
func RecordValidator() *Validator { return recordValidator() }

// CalibrationValidator validates ground-truth problem lines
func CalibrationValidator() *Validator { return calibrationValidator() }

func embedded(name string) func() *Validator {
	return sync.OnceValue(func() *Validator {
		data, err := schemaFS.ReadFile("schemas/" + name + ".schema.json")
		if err != nil {
			panic(fmt.Sprintf("embedded schema %s: %v", name, err))
		}
		v, err := CompileValidator(name, data)
		if err != nil {
			panic(err)
		}
		return v
	})
}
