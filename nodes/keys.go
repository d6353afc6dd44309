package nodes

// Shared state keys.
const (
	KeyUserPrompt = "user_prompt"
	KeyURL        = "url"
	KeyURLs       = "urls"
)

// FailedScript is the merged script reported when no script could be produced.
const FailedScript = "Failed to generate the script."

// Metadata keys set on node results.
const (
	MetaError       = "error"
	MetaScriptCount = "scripts.count"
	MetaFailures    = "failures.count"
	MetaTitle       = "page.title"
	MetaStatusCode  = "http.status_code"
)
