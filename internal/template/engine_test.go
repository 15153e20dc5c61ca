package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderSubstitution(t *testing.T) {
	tests := []struct {
		name     string
		template string
		vars     map[string]interface{}
		want     string
	}{
		{
			name:     "simple substitution",
			template: "Hello {{name}}",
			vars:     map[string]interface{}{"name": "Ana"},
			want:     "Hello Ana",
		},
		{
			name:     "missing variable becomes empty",
			template: "Hello {{name}}",
			vars:     map[string]interface{}{},
			want:     "Hello ",
		},
		{
			name:     "nil variable becomes empty",
			template: "Hello {{name}}!",
			vars:     map[string]interface{}{"name": nil},
			want:     "Hello !",
		},
		{
			name:     "multiple occurrences",
			template: "{{code}} and again {{code}}",
			vars:     map[string]interface{}{"code": "NG-ABC12345"},
			want:     "NG-ABC12345 and again NG-ABC12345",
		},
		{
			name:     "non-string values",
			template: "{{days}} dias, pago: {{paid}}",
			vars:     map[string]interface{}{"days": 3, "paid": true},
			want:     "3 dias, pago: true",
		},
		{
			name:     "whitespace inside delimiters",
			template: "Hello {{ name }}",
			vars:     map[string]interface{}{"name": "Ana"},
			want:     "Hello Ana",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Render(tt.template, tt.vars)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRenderConditionals(t *testing.T) {
	tests := []struct {
		name     string
		template string
		vars     map[string]interface{}
		want     string
	}{
		{
			name:     "true branch kept",
			template: "A{{#if x}}B{{/if}}C",
			vars:     map[string]interface{}{"x": "yes"},
			want:     "ABC",
		},
		{
			name:     "string false removed",
			template: "A{{#if x}}B{{/if}}C",
			vars:     map[string]interface{}{"x": "false"},
			want:     "AC",
		},
		{
			name:     "absent removed",
			template: "A{{#if x}}B{{/if}}C",
			vars:     map[string]interface{}{},
			want:     "AC",
		},
		{
			name:     "empty string removed",
			template: "A{{#if x}}B{{/if}}C",
			vars:     map[string]interface{}{"x": ""},
			want:     "AC",
		},
		{
			name:     "string zero removed",
			template: "A{{#if x}}B{{/if}}C",
			vars:     map[string]interface{}{"x": "0"},
			want:     "AC",
		},
		{
			name:     "bool false removed",
			template: "A{{#if x}}B{{/if}}C",
			vars:     map[string]interface{}{"x": false},
			want:     "AC",
		},
		{
			name:     "bool true kept",
			template: "A{{#if x}}B{{/if}}C",
			vars:     map[string]interface{}{"x": true},
			want:     "ABC",
		},
		{
			name:     "placeholders expand inside block",
			template: "{{#if nome}}Olá {{nome}}{{/if}}",
			vars:     map[string]interface{}{"nome": "Ana"},
			want:     "Olá Ana",
		},
		{
			name:     "two independent blocks",
			template: "{{#if a}}A{{/if}}{{#if b}}B{{/if}}",
			vars:     map[string]interface{}{"a": "1", "b": ""},
			want:     "A",
		},
		{
			name:     "multiline block removed",
			template: "start\n{{#if x}}\nline\n{{/if}}\nend",
			vars:     map[string]interface{}{},
			want:     "start\n\nend",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Render(tt.template, tt.vars)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRenderFailsClosedOnNesting(t *testing.T) {
	_, err := Render("{{#if a}}x{{#if b}}y{{/if}}z{{/if}}", map[string]interface{}{"a": "1"})
	assert.ErrorIs(t, err, ErrNestedConditional)
}

func TestRenderFailsOnUnclosedBlock(t *testing.T) {
	_, err := Render("{{#if a}}never closed", map[string]interface{}{"a": "1"})
	assert.ErrorIs(t, err, ErrUnclosedConditional)
}

func TestRenderCollapsesBlankRuns(t *testing.T) {
	got, err := Render("a\n\n\n\n\nb", nil)
	require.NoError(t, err)
	assert.Equal(t, "a\n\nb", got)

	// Two newlines stay untouched.
	got, err = Render("a\n\nb", nil)
	require.NoError(t, err)
	assert.Equal(t, "a\n\nb", got)
}
