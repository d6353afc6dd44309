package observability

// Semantic conventions for observability attributes.
// These constants define standard attribute names to ensure consistency
// across the client, the graph engine and the scraping nodes.

// --- LLM Provider Attributes ---

const (
	// AttrLLMProvider is the name of the LLM provider (e.g., "openai")
	AttrLLMProvider = "llm.provider"

	// AttrLLMModel is the model identifier
	AttrLLMModel = "llm.model"

	// AttrLLMResponseID is the unique response identifier from the provider
	AttrLLMResponseID = "llm.response.id"

	// AttrLLMFinishReason is the reason the generation finished
	AttrLLMFinishReason = "llm.finish_reason"
)

// --- Token Usage Attributes ---

const (
	// AttrLLMTokensPrompt is the number of prompt tokens
	AttrLLMTokensPrompt = "llm.tokens.prompt" // #nosec G101 -- Not a credential, token refers to LLM tokens

	// AttrLLMTokensCompletion is the number of completion tokens
	AttrLLMTokensCompletion = "llm.tokens.completion" // #nosec G101 -- Not a credential, token refers to LLM tokens

	// AttrLLMTokensTotal is the total number of tokens
	AttrLLMTokensTotal = "llm.tokens.total" // #nosec G101 -- Not a credential, token refers to LLM tokens
)

// --- HTTP Attributes ---

const (
	// AttrHTTPMethod is the HTTP method (GET, POST, etc.)
	AttrHTTPMethod = "http.method"

	// AttrHTTPStatusCode is the HTTP response status code
	AttrHTTPStatusCode = "http.status_code"

	// AttrHTTPURL is the full request URL
	AttrHTTPURL = "http.url"

	// AttrHTTPRequestBodySize is the request body size in bytes
	AttrHTTPRequestBodySize = "http.request.body.size"

	// AttrHTTPResponseBodySize is the response body size in bytes
	AttrHTTPResponseBodySize = "http.response.body.size"

	// AttrHTTPDuration is the round-trip duration of the request
	AttrHTTPDuration = "http.request.duration"
)

// --- Scraping Attributes ---

const (
	// AttrSourceURL is the source URL a sub-pipeline works on
	AttrSourceURL = "source.url"

	// AttrSourceIndex is the position of the URL in the input list
	AttrSourceIndex = "source.index"

	// AttrSourceCount is the number of URLs handed to the iterator
	AttrSourceCount = "source.count"

	// AttrScriptLength is the length of a generated script in bytes
	AttrScriptLength = "script.length"

	// AttrScriptCount is the number of scripts produced by the fan-out
	AttrScriptCount = "script.count"

	// AttrFailureCount is the number of sources whose sub-pipeline failed
	AttrFailureCount = "failure.count"

	// AttrFailurePolicy is the configured fan-out failure policy
	AttrFailurePolicy = "failure.policy"

	// AttrRunID identifies one workflow execution
	AttrRunID = "run.id"
)

// --- Client Attributes ---

const (
	// AttrClientPrompt is the user prompt/input
	AttrClientPrompt = "client.prompt"

	// AttrRequestMessagesCount is the number of messages sent in a request
	AttrRequestMessagesCount = "request.messages.count"

	// AttrRetryAttempt is the 1-based retry attempt number
	AttrRetryAttempt = "retry.attempt"
)

// --- General Attributes ---

const (
	// AttrError is the error message
	AttrError = "error"

	// AttrDuration is the operation duration
	AttrDuration = "duration"

	// AttrStatus is the operation status
	AttrStatus = "status"

	// AttrStatusDescription is the status description
	AttrStatusDescription = "status_description"
)

// --- Span Names ---

const (
	// SpanClientSendMessage is the span name for client message sending
	SpanClientSendMessage = "client.send_message"

	// SpanSourceScript is the span name for one sub-pipeline run in the fan-out
	SpanSourceScript = "iterator.source"

	// SpanMergeScripts is the span name for the merge model call
	SpanMergeScripts = "merge.scripts"
)

// --- Metric Names ---

const (
	// MetricClientRequestCount is the counter for client requests
	MetricClientRequestCount = "scriptgraph.client.request.count"

	// MetricClientRequestDuration is the histogram for request duration
	MetricClientRequestDuration = "scriptgraph.client.request.duration"

	// MetricClientTokensTotal is the counter for total tokens
	MetricClientTokensTotal = "scriptgraph.client.tokens.total"

	// MetricSourceCount is the counter for fan-out sources by outcome
	MetricSourceCount = "scriptgraph.iterator.source.count"
)
