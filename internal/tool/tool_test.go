package tool_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/shubhamINT/api-livekit/internal/tool"
)

func validDefinition() tool.Definition {
	return tool.Definition{
		ID:          "tool-1",
		Name:        "get_weather",
		Description: "Look up the current weather for a city.",
		Parameters: []tool.Parameter{
			{Name: "city", Type: "string", Description: "City name", Required: true},
			{Name: "unit", Type: "string", Enum: []string{"celsius", "fahrenheit"}},
		},
		Execution: tool.Execution{
			Type:    tool.ExecWebhook,
			Webhook: &tool.WebhookExecution{URL: "https://api.example.com/weather"},
		},
		Active: true,
	}
}

func TestDefinitionValidate(t *testing.T) {
	t.Parallel()

	t.Run("valid webhook tool", func(t *testing.T) {
		t.Parallel()
		if err := validDefinition().Validate(); err != nil {
			t.Errorf("Validate() = %v, want nil", err)
		}
	})

	t.Run("valid static tool", func(t *testing.T) {
		t.Parallel()
		d := validDefinition()
		d.Execution = tool.Execution{
			Type:   tool.ExecStaticReturn,
			Static: &tool.StaticReturnExecution{Value: json.RawMessage(`{"weather":"sunny"}`)},
		}
		if err := d.Validate(); err != nil {
			t.Errorf("Validate() = %v, want nil", err)
		}
	})

	t.Run("missing name and description", func(t *testing.T) {
		t.Parallel()
		d := validDefinition()
		d.Name = ""
		d.Description = ""
		err := d.Validate()
		if err == nil {
			t.Fatal("Validate() = nil, want error")
		}
		for _, want := range []string{"name", "description"} {
			if !strings.Contains(err.Error(), want) {
				t.Errorf("error missing %q, got: %v", want, err)
			}
		}
	})

	t.Run("parameter without type", func(t *testing.T) {
		t.Parallel()
		d := validDefinition()
		d.Parameters = append(d.Parameters, tool.Parameter{Name: "when"})
		err := d.Validate()
		if err == nil || !strings.Contains(err.Error(), `parameter "when"`) {
			t.Errorf("Validate() = %v, want parameter type error", err)
		}
	})
}

func TestExecutionValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		exec    tool.Execution
		wantErr bool
	}{
		{
			name: "webhook ok",
			exec: tool.Execution{
				Type:    tool.ExecWebhook,
				Webhook: &tool.WebhookExecution{URL: "https://example.com"},
			},
		},
		{
			name:    "webhook without url",
			exec:    tool.Execution{Type: tool.ExecWebhook, Webhook: &tool.WebhookExecution{}},
			wantErr: true,
		},
		{
			name: "webhook with static payload",
			exec: tool.Execution{
				Type:    tool.ExecWebhook,
				Webhook: &tool.WebhookExecution{URL: "https://example.com"},
				Static:  &tool.StaticReturnExecution{Value: json.RawMessage(`1`)},
			},
			wantErr: true,
		},
		{
			name:    "static without value",
			exec:    tool.Execution{Type: tool.ExecStaticReturn, Static: &tool.StaticReturnExecution{}},
			wantErr: true,
		},
		{
			name:    "unknown type",
			exec:    tool.Execution{Type: "grpc"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.exec.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
