package parse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStringAs_Primitives(t *testing.T) {
	s, err := ParseStringAs[string]("hello\nworld")
	require.NoError(t, err)
	assert.Equal(t, "hello\nworld", s)

	b, err := ParseStringAs[bool]("true")
	require.NoError(t, err)
	assert.True(t, b)

	n, err := ParseStringAs[int]("42")
	require.NoError(t, err)
	assert.Equal(t, 42, n)

	u, err := ParseStringAs[uint8]("255")
	require.NoError(t, err)
	assert.Equal(t, uint8(255), u)

	f, err := ParseStringAs[float64]("3.5")
	require.NoError(t, err)
	assert.InDelta(t, 3.5, f, 0.0001)

	_, err = ParseStringAs[int]("forty-two")
	assert.Error(t, err)

	_, err = ParseStringAs[uint8]("256")
	assert.Error(t, err)
}

func TestParseStringAs_Struct(t *testing.T) {
	type product struct {
		Name  string  `json:"name"`
		Price float64 `json:"price"`
	}

	tests := []struct {
		name    string
		input   string
		want    product
		wantErr bool
	}{
		{
			name:  "valid json",
			input: `{"name":"Widget","price":9.99}`,
			want:  product{Name: "Widget", Price: 9.99},
		},
		{
			name:  "single quotes and bare keys",
			input: `{name: 'Widget', price: 9.99}`,
			want:  product{Name: "Widget", Price: 9.99},
		},
		{
			name:  "trailing comma",
			input: `{"name":"Widget","price":9.99,}`,
			want:  product{Name: "Widget", Price: 9.99},
		},
		{
			name:    "type mismatch",
			input:   `{"name":"Widget","price":"cheap"}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseStringAs[product](tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseStringAs() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseStringAs() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestExtractCodeBlock(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "plain text",
			input: "  package main\n",
			want:  "package main",
		},
		{
			name:  "fenced with language",
			input: "Here you go:\n```go\npackage main\n\nfunc main() {}\n```\nEnjoy.",
			want:  "package main\n\nfunc main() {}",
		},
		{
			name:  "fenced without language",
			input: "```\nprint('hi')\n```",
			want:  "print('hi')",
		},
		{
			name:  "unclosed fence",
			input: "```python\nimport requests\n",
			want:  "import requests",
		},
		{
			name:  "first block wins",
			input: "```go\nfirst\n```\n```go\nsecond\n```",
			want:  "first",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractCodeBlock(tt.input))
		})
	}
}

func TestExtractScript(t *testing.T) {
	assert.Equal(t, "print(1)", ExtractScript(`{"script": "print(1)"}`))
	assert.Equal(t, "print(2)", ExtractScript(`{"code": "`+"```python\\nprint(2)\\n```"+`"}`))
	assert.Equal(t, "print(3)", ExtractScript("```python\nprint(3)\n```"))
	assert.Equal(t, `{"title": "not a script"}`, ExtractScript(`{"title": "not a script"}`))
	assert.Empty(t, ExtractScript("   \n  "))
	assert.Empty(t, ExtractScript("```\n```"))
}
