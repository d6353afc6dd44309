package graphs

import (
	"errors"
	"fmt"
	"maps"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/leofalp/scriptgraph/core/cost"
	"github.com/leofalp/scriptgraph/nodes"
)

// ErrInvalidConfig wraps every configuration error.
var ErrInvalidConfig = errors.New("invalid configuration")

// FailedScript is returned in place of a merged script when none was produced.
const FailedScript = nodes.FailedScript

// LLMConfig selects and tunes the model behind every node.
type LLMConfig struct {
	Provider    string            `json:"provider" yaml:"provider" mapstructure:"provider" validate:"omitempty,oneof=openai"`
	Model       string            `json:"model" yaml:"model" mapstructure:"model" validate:"required"`
	APIKey      string            `json:"api_key" yaml:"api_key" mapstructure:"api_key"`
	BaseURL     string            `json:"base_url" yaml:"base_url" mapstructure:"base_url" validate:"omitempty,url"`
	Temperature float32           `json:"temperature" yaml:"temperature" mapstructure:"temperature" validate:"gte=0,lte=2"`
	MaxTokens   int               `json:"max_tokens" yaml:"max_tokens" mapstructure:"max_tokens" validate:"gte=0"`
	Headers     map[string]string `json:"headers" yaml:"headers" mapstructure:"headers"`

	// RequestsPerSecond caps model calls across one run; zero disables it.
	RequestsPerSecond float64 `json:"requests_per_second" yaml:"requests_per_second" mapstructure:"requests_per_second" validate:"gte=0"`
	Burst             int     `json:"burst" yaml:"burst" mapstructure:"burst" validate:"gte=0"`

	// MaxRetries applies to script generation only; the merge call is never retried.
	MaxRetries     int           `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries" validate:"gte=0,lte=10"`
	RequestTimeout time.Duration `json:"request_timeout" yaml:"request_timeout" mapstructure:"request_timeout" validate:"gte=0"`

	// Pricing, when set, adds a cost estimate to every Result.
	Pricing cost.ModelCost `json:"pricing" yaml:"pricing" mapstructure:"pricing"`
}

// FetchConfig tunes page downloads.
type FetchConfig struct {
	Timeout           time.Duration     `json:"timeout" yaml:"timeout" mapstructure:"timeout" validate:"gte=0"`
	UserAgent         string            `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes      int64             `json:"max_body_bytes" yaml:"max_body_bytes" mapstructure:"max_body_bytes" validate:"gte=0"`
	Headers           map[string]string `json:"headers" yaml:"headers" mapstructure:"headers"`
	ConvertToMarkdown bool              `json:"convert_to_markdown" yaml:"convert_to_markdown" mapstructure:"convert_to_markdown"`
}

// Config configures both script creator graphs.
type Config struct {
	LLM   LLMConfig   `json:"llm" yaml:"llm" mapstructure:"llm"`
	Fetch FetchConfig `json:"fetch" yaml:"fetch" mapstructure:"fetch"`

	// Library is the scraping library generated scripts use.
	Library string `json:"library" yaml:"library" mapstructure:"library"`
	// ChunkSize caps the page content sent to the model, in bytes; zero
	// sends it whole.
	ChunkSize int `json:"chunk_size" yaml:"chunk_size" mapstructure:"chunk_size" validate:"gte=0"`
	// MaxConcurrency bounds the per-URL pipelines running at once; zero
	// means no bound.
	MaxConcurrency int                 `json:"max_concurrency" yaml:"max_concurrency" mapstructure:"max_concurrency" validate:"gte=0"`
	FailurePolicy  nodes.FailurePolicy `json:"failure_policy" yaml:"failure_policy" mapstructure:"failure_policy" validate:"omitempty,oneof=partial abort"`
	// Timeout bounds a whole run; zero means no bound.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout" validate:"gte=0"`
	Verbose bool          `json:"verbose" yaml:"verbose" mapstructure:"verbose"`
}

// DefaultConfig returns the configuration used when a field is left unset.
func DefaultConfig() Config {
	return Config{
		LLM: LLMConfig{
			Provider:    "openai",
			Temperature: 0,
		},
		Fetch: FetchConfig{
			Timeout:           nodes.DefaultFetchTimeout,
			UserAgent:         nodes.DefaultUserAgent,
			MaxBodyBytes:      nodes.DefaultMaxBodyBytes,
			ConvertToMarkdown: true,
		},
		Library:        nodes.DefaultLibrary,
		ChunkSize:      16 * 1024,
		MaxConcurrency: 4,
		FailurePolicy:  nodes.FailurePartial,
	}
}

// Clone returns a deep copy of config.
func (config Config) Clone() Config {
	clone := config
	clone.LLM.Headers = maps.Clone(config.LLM.Headers)
	clone.Fetch.Headers = maps.Clone(config.Fetch.Headers)
	return clone
}

// Validate checks the struct tags and reports every violation wrapped in
// [ErrInvalidConfig].
func (config Config) Validate() error {
	err := getValidator().Struct(config)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	messages := make([]string, 0, len(validationErrors))
	for _, fieldError := range validationErrors {
		messages = append(messages, fieldPath(fieldError.Namespace())+": "+formatValidationError(fieldError))
	}
	return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(messages, "; "))
}

// withDefaults fills the fields whose zero value is not meaningful.
func (config Config) withDefaults() Config {
	if config.LLM.Provider == "" {
		config.LLM.Provider = "openai"
	}
	if config.Library == "" {
		config.Library = nodes.DefaultLibrary
	}
	if config.FailurePolicy == "" {
		config.FailurePolicy = nodes.FailurePartial
	}
	return config
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())

		// report fields by their json names
		validate.RegisterTagNameFunc(func(field reflect.StructField) string {
			name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// fieldPath drops the root type name from a validator namespace.
func fieldPath(namespace string) string {
	if _, path, found := strings.Cut(namespace, "."); found {
		return path
	}
	return namespace
}

func formatValidationError(fieldError validator.FieldError) string {
	switch fieldError.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return "must be one of: " + fieldError.Param()
	case "url":
		return "must be a valid URL"
	case "gte":
		return "must be at least " + fieldError.Param()
	case "lte":
		return "must be at most " + fieldError.Param()
	default:
		return "is invalid"
	}
}
