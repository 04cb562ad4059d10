package dto

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"
	"sync"

	"github.com/invopop/jsonschema"
	jschema "github.com/santhosh-tekuri/jsonschema/v6"
)

// ValidationError reports a request body that does not match its schema.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// schemas caches compiled schemas by request type.
var schemas sync.Map // reflect.Type -> *jschema.Schema

// Decode reads a JSON body, validates it against the schema reflected from
// T and decodes it into dst. Malformed JSON and schema violations are
// returned as *ValidationError.
func Decode[T any](r io.Reader, dst *T) error {
	body, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}

	instance, err := jschema.UnmarshalJSON(bytes.NewReader(body))
	if err != nil {
		return &ValidationError{Message: "request body must be valid JSON"}
	}

	sch, err := schemaFor(reflect.TypeFor[T]())
	if err != nil {
		return err
	}
	if err := sch.Validate(instance); err != nil {
		return &ValidationError{Message: formatSchemaError(err)}
	}

	if err := json.Unmarshal(body, dst); err != nil {
		return &ValidationError{Message: "request body does not match the expected shape"}
	}
	return nil
}

// Schema returns the JSON schema document for T, as served to clients.
func Schema[T any]() ([]byte, error) {
	return json.MarshalIndent(reflectSchema(reflect.TypeFor[T]()), "", "  ")
}

func reflectSchema(t reflect.Type) *jsonschema.Schema {
	r := jsonschema.Reflector{
		DoNotReference:            true,
		AllowAdditionalProperties: true,
	}
	return r.ReflectFromType(t)
}

func schemaFor(t reflect.Type) (*jschema.Schema, error) {
	if cached, ok := schemas.Load(t); ok {
		return cached.(*jschema.Schema), nil
	}

	raw, err := json.Marshal(reflectSchema(t))
	if err != nil {
		return nil, fmt.Errorf("marshal schema for %s: %w", t, err)
	}
	doc, err := jschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("parse schema for %s: %w", t, err)
	}

	url := t.Name() + ".json"
	c := jschema.NewCompiler()
	if err := c.AddResource(url, doc); err != nil {
		return nil, fmt.Errorf("add schema resource %s: %w", url, err)
	}
	sch, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile schema %s: %w", url, err)
	}

	actual, _ := schemas.LoadOrStore(t, sch)
	return actual.(*jschema.Schema), nil
}

// formatSchemaError keeps the per-field lines of a validation error and drops
// the schema location header.
func formatSchemaError(err error) string {
	var ve *jschema.ValidationError
	if !errors.As(err, &ve) {
		return "invalid request body"
	}

	var parts []string
	for _, line := range strings.Split(ve.Error(), "\n") {
		line = strings.TrimSpace(line)
		if rest, ok := strings.CutPrefix(line, "- "); ok {
			parts = append(parts, rest)
		}
	}
	if len(parts) == 0 {
		return "invalid request body"
	}
	return "invalid request body: " + strings.Join(parts, "; ")
}
