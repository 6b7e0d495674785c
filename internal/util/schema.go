package util

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// ValidationError represents payload validation errors with detailed information.
type ValidationError struct {
	Issues []string // One entry per failing location, e.g. "/days: minimum: got 0, want 1"
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	return "invalid payload: " + strings.Join(e.Issues, "; ")
}

// Schema is a compiled JSON schema used to validate message payloads.
type Schema struct {
	schema *jsonschema.Schema
}

// CompileSchema compiles a JSON schema document given as source text.
func CompileSchema(name, src string) (*Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("unmarshaling schema %s: %w", name, err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource(name, doc); err != nil {
		return nil, fmt.Errorf("adding schema resource %s: %w", name, err)
	}
	s, err := c.Compile(name)
	if err != nil {
		return nil, fmt.Errorf("compiling schema %s: %w", name, err)
	}
	return &Schema{schema: s}, nil
}

// MustCompileSchema is like CompileSchema but panics on error. Intended for
// package level schema variables.
func MustCompileSchema(name, src string) *Schema {
	s, err := CompileSchema(name, src)
	if err != nil {
		panic(err)
	}
	return s
}

// Validate checks payload against the schema. The payload is normalized
// through JSON first so Go native slices and numbers validate like decoded
// JSON would.
func (s *Schema) Validate(payload map[string]any) error {
	if payload == nil {
		payload = map[string]any{}
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("invalid payload: %w", err)
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("invalid payload: %w", err)
	}
	err = s.schema.Validate(inst)
	if err == nil {
		return nil
	}
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return fmt.Errorf("invalid payload: %w", err)
	}
	var issues []string
	collectIssues(ve, &issues)
	if len(issues) == 0 {
		issues = append(issues, ve.Error())
	}
	return &ValidationError{Issues: issues}
}

// collectIssues walks the error tree and records leaf errors.
func collectIssues(ve *jsonschema.ValidationError, issues *[]string) {
	if len(ve.Causes) == 0 {
		path := "/" + strings.Join(ve.InstanceLocation, "/")
		msg := ve.Error()
		if ve.ErrorKind != nil {
			msg = ve.ErrorKind.LocalizedString(printer)
		}
		*issues = append(*issues, path+": "+msg)
		return
	}
	for _, c := range ve.Causes {
		collectIssues(c, issues)
	}
}
