// Package validation checks graph and procedure documents before they are
// handed to the pipeline, so malformed input fails with a field-level
// message instead of a mid-preparation error.
package validation

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/go-playground/validator/v10"

	"github.com/labforge/synthrig/pkg/pipeline"
	"github.com/labforge/synthrig/pkg/rig"
)

var (
	// validate is a singleton validator instance
	validate *validator.Validate

	// idPattern constrains node and reagent identifiers.
	idPattern = regexp.MustCompile(`^[a-zA-Z0-9_.-]+$`)
)

// MaxIDLength is the longest accepted node or reagent identifier.
var MaxIDLength = 64

func init() {
	validate = validator.New()
}

// ValidateGraphDocument checks a parsed hardware graph document: struct
// tags, known device classes, unique node ids, link endpoints that exist,
// and ports legal for the endpoint's kind.
func ValidateGraphDocument(doc *rig.Document) error {
	if doc == nil {
		return errors.New("graph document cannot be nil")
	}
	if err := validate.Struct(doc); err != nil {
		return formatValidationError(err)
	}

	kinds := make(map[string]rig.NodeKind, len(doc.Nodes))
	for _, nd := range doc.Nodes {
		if err := ValidateID(nd.ID); err != nil {
			return fmt.Errorf("Nodes: %w", err)
		}
		if _, dup := kinds[nd.ID]; dup {
			return fmt.Errorf("Nodes: duplicate node id %q", nd.ID)
		}
		kind := rig.KindForClass(nd.Class)
		if kind == rig.KindUnknown {
			return fmt.Errorf("Nodes: node %q has unknown device class %q", nd.ID, nd.Class)
		}
		kinds[nd.ID] = kind
	}

	for i, ld := range doc.Links {
		fromKind, ok := kinds[ld.Source]
		if !ok {
			return fmt.Errorf("Links: link %d references unknown node %q", i, ld.Source)
		}
		toKind, ok := kinds[ld.Target]
		if !ok {
			return fmt.Errorf("Links: link %d references unknown node %q", i, ld.Target)
		}
		if !rig.ValidPort(fromKind, ld.Port.From) {
			return fmt.Errorf("Links: link %d: port %q is not valid on %q", i, ld.Port.From, ld.Source)
		}
		if !rig.ValidPort(toKind, ld.Port.To) {
			return fmt.Errorf("Links: link %d: port %q is not valid on %q", i, ld.Port.To, ld.Target)
		}
	}
	return nil
}

// ValidateProcedureDocument checks a parsed procedure document: struct
// tags, recognised step types, unique reagent ids and non-negative
// quantities.
func ValidateProcedureDocument(doc *pipeline.Document) error {
	if doc == nil {
		return errors.New("procedure document cannot be nil")
	}
	if err := validate.Struct(doc); err != nil {
		return formatValidationError(err)
	}

	seen := make(map[string]bool, len(doc.Reagents))
	for _, r := range doc.Reagents {
		if err := ValidateID(r.ID); err != nil {
			return fmt.Errorf("Reagents: %w", err)
		}
		if seen[r.ID] {
			return fmt.Errorf("Reagents: duplicate reagent id %q", r.ID)
		}
		seen[r.ID] = true
	}

	hardware := make(map[string]bool, len(doc.Hardware))
	for _, c := range doc.Hardware {
		if err := ValidateID(c.ID); err != nil {
			return fmt.Errorf("Hardware: %w", err)
		}
		if hardware[c.ID] {
			return fmt.Errorf("Hardware: duplicate component id %q", c.ID)
		}
		hardware[c.ID] = true
	}

	for i, sd := range doc.Steps {
		if !pipeline.KnownStepType(sd.Type) {
			return fmt.Errorf("Steps: step %d has unknown type %q", i, sd.Type)
		}
	}
	return nil
}

// ValidateID validates a node, component or reagent identifier.
func ValidateID(id string) error {
	if id == "" {
		return errors.New("id cannot be empty")
	}
	if len(id) > MaxIDLength {
		return fmt.Errorf("id %q exceeds maximum length of %d characters", id, MaxIDLength)
	}
	if !idPattern.MatchString(id) {
		return fmt.Errorf("id %q contains invalid characters (only alphanumeric, underscore, dot and dash allowed)", id)
	}
	return nil
}

// formatValidationError converts validator errors to a more user-friendly format
func formatValidationError(err error) error {
	if err == nil {
		return nil
	}

	validationErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}

	// Return the first validation error in a user-friendly format
	for _, e := range validationErrs {
		field := e.Field()
		tag := e.Tag()
		param := e.Param()

		switch tag {
		case "required":
			return fmt.Errorf("%s: field is required", field)
		case "min":
			return fmt.Errorf("%s: must be at least %s", field, param)
		case "max":
			return fmt.Errorf("%s: must not exceed %s", field, param)
		case "gte":
			return fmt.Errorf("%s: must be at least %s", field, param)
		case "oneof":
			return fmt.Errorf("%s: must be one of %s", field, param)
		case "dive":
			// For array elements
			return fmt.Errorf("%s: invalid element in array", field)
		default:
			return fmt.Errorf("%s: validation failed (%s)", field, tag)
		}
	}

	return err
}
