// Package tool defines the function-tool configuration model. A tool is a
// named function definition (parameters plus an execution binding) that can
// be attached to assistants; the agent runtime loads the attached tools when
// a session starts and exposes them to the model. Execution happens in the
// runtime, not in this service; here tools are pure configuration.
package tool

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when no tool matches a requested ID.
var ErrNotFound = errors.New("tool not found")

// ExecutionType selects how a tool call is fulfilled.
type ExecutionType string

const (
	// ExecWebhook POSTs the call arguments to a configured URL and returns
	// the response body.
	ExecWebhook ExecutionType = "webhook"

	// ExecStaticReturn returns a pre-configured value without any I/O.
	ExecStaticReturn ExecutionType = "static_return"
)

// IsValid reports whether t is a recognised execution type.
func (t ExecutionType) IsValid() bool {
	return t == ExecWebhook || t == ExecStaticReturn
}

// Parameter describes one argument of the tool's function signature, in
// JSON-schema terms.
type Parameter struct {
	Name        string   `json:"name"`
	Type        string   `json:"type"`
	Description string   `json:"description,omitempty"`
	Enum        []string `json:"enum,omitempty"`
	Required    bool     `json:"required,omitempty"`
}

// WebhookExecution carries the parameters of the webhook variant.
type WebhookExecution struct {
	URL            string            `json:"url"`
	Headers        map[string]string `json:"headers,omitempty"`
	TimeoutSeconds int               `json:"timeout_seconds,omitempty"`
}

// StaticReturnExecution carries the parameters of the static-return variant.
type StaticReturnExecution struct {
	Value json.RawMessage `json:"value"`
}

// Execution is a tagged two-variant selector. Exactly one of Webhook or
// Static is set, matching Type.
type Execution struct {
	Type    ExecutionType          `json:"type"`
	Webhook *WebhookExecution      `json:"webhook,omitempty"`
	Static  *StaticReturnExecution `json:"static_return,omitempty"`
}

// Validate checks that exactly the variant named by Type is populated.
func (e Execution) Validate() error {
	switch e.Type {
	case ExecWebhook:
		if e.Webhook == nil || e.Webhook.URL == "" {
			return errors.New("execution: webhook variant requires url")
		}
		if e.Static != nil {
			return errors.New("execution: webhook variant must not carry static_return parameters")
		}
	case ExecStaticReturn:
		if e.Static == nil || len(e.Static.Value) == 0 {
			return errors.New("execution: static_return variant requires value")
		}
		if e.Webhook != nil {
			return errors.New("execution: static_return variant must not carry webhook parameters")
		}
	default:
		return fmt.Errorf("execution: unknown type %q", e.Type)
	}
	return nil
}

// Definition is a stored tool.
type Definition struct {
	// ID is the unique tool identifier.
	ID string

	// Name is the function name exposed to the model.
	Name string

	// Description tells the model when to call the tool.
	Description string

	// Parameters describe the function's arguments.
	Parameters []Parameter

	// Execution binds the tool to its fulfilment.
	Execution Execution

	// OwnerEmail identifies who created the tool.
	OwnerEmail string

	// Active is false once the tool has been deleted. Inactive tools are
	// invisible to lookups and detached from every assistant.
	Active bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate checks that d is a usable tool definition.
func (d Definition) Validate() error {
	var errs []error
	if d.ID == "" {
		errs = append(errs, errors.New("tool: id must not be empty"))
	}
	if d.Name == "" {
		errs = append(errs, errors.New("tool: name must not be empty"))
	}
	if d.Description == "" {
		errs = append(errs, errors.New("tool: description must not be empty"))
	}
	for i, p := range d.Parameters {
		if p.Name == "" {
			errs = append(errs, fmt.Errorf("tool: parameter %d: name must not be empty", i))
		}
		if p.Type == "" {
			errs = append(errs, fmt.Errorf("tool: parameter %q: type must not be empty", p.Name))
		}
	}
	if err := d.Execution.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("tool: %w", err))
	}
	return errors.Join(errs...)
}
