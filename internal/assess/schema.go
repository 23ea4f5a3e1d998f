package assess

import (
	"bytes"
	_ "embed"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed assessment.schema.json
var assessmentSchema []byte

var (
	compileOnce sync.Once
	compiled    *jsonschema.Schema
	compileErr  error
)

func schema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("assessment.schema.json", bytes.NewReader(assessmentSchema)); err != nil {
			compileErr = err
			return
		}
		compiled, compileErr = compiler.Compile("assessment.schema.json")
	})
	return compiled, compileErr
}

// validateFields checks the value types of a parsed model object. Cardinality
// is handled by normalize, not here.
func validateFields(fields map[string]any) error {
	s, err := schema()
	if err != nil {
		return err
	}
	return s.Validate(fields)
}
