package graphs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leofalp/scriptgraph/nodes"
)

func TestConfig_Validate(t *testing.T) {
	require.NoError(t, testConfig().Validate())

	tests := []struct {
		name    string
		mutate  func(*Config)
		message string
	}{
		{"missing model", func(config *Config) { config.LLM.Model = "" }, "llm.model: is required"},
		{"unknown provider", func(config *Config) { config.LLM.Provider = "acme" }, "llm.provider: must be one of"},
		{"bad base url", func(config *Config) { config.LLM.BaseURL = "not a url" }, "llm.base_url: must be a valid URL"},
		{"temperature", func(config *Config) { config.LLM.Temperature = 3 }, "llm.temperature: must be at most 2"},
		{"failure policy", func(config *Config) { config.FailurePolicy = "ignore" }, "failure_policy: must be one of"},
		{"negative concurrency", func(config *Config) { config.MaxConcurrency = -1 }, "max_concurrency: must be at least 0"},
		{"negative chunk", func(config *Config) { config.ChunkSize = -5 }, "chunk_size"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			config := testConfig()
			test.mutate(&config)

			err := config.Validate()
			require.ErrorIs(t, err, ErrInvalidConfig)
			assert.Contains(t, err.Error(), test.message)
		})
	}
}

func TestConfig_CloneIsDeep(t *testing.T) {
	config := testConfig()
	config.LLM.Headers = map[string]string{"X-Team": "scraping"}
	config.Fetch.Headers = map[string]string{"Accept-Language": "en"}

	clone := config.Clone()
	config.LLM.Headers["X-Team"] = "changed"
	config.Fetch.Headers["Accept-Language"] = "it"
	config.Library = "colly"

	assert.Equal(t, "scraping", clone.LLM.Headers["X-Team"])
	assert.Equal(t, "en", clone.Fetch.Headers["Accept-Language"])
	assert.Equal(t, nodes.DefaultLibrary, clone.Library)
}

func TestConfig_WithDefaults(t *testing.T) {
	config := Config{LLM: LLMConfig{Model: "m"}}.withDefaults()

	assert.Equal(t, "openai", config.LLM.Provider)
	assert.Equal(t, nodes.DefaultLibrary, config.Library)
	assert.Equal(t, nodes.FailurePartial, config.FailurePolicy)
}

func TestSchemaFor(t *testing.T) {
	type plan struct {
		Name  string  `json:"name"`
		Price float64 `json:"price"`
	}

	schema, err := SchemaFor[plan]()
	require.NoError(t, err)
	assert.Equal(t, "object", schema.Type)
	assert.Contains(t, schema.Properties, "name")
	assert.Contains(t, schema.Properties, "price")

	clone, err := cloneSchema(schema)
	require.NoError(t, err)
	clone.Properties["name"].Description = "changed"
	assert.Empty(t, schema.Properties["name"].Description)

	nilClone, err := cloneSchema(nil)
	require.NoError(t, err)
	assert.Nil(t, nilClone)
}
