package nodes

import (
	"fmt"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/leofalp/scriptgraph/internal/utils"
)

const generateSystemPrompt = `You are a web scraping expert. You write complete, runnable scraping scripts.
Reply with the script only, inside a single fenced code block. Do not explain it.`

const mergeSystemPrompt = `You are a web scraping expert. You merge several scraping scripts, each written
for a different website, into one script that covers every website.
Reply with the merged script only, inside a single fenced code block. Do not explain it.`

// buildGeneratePrompt asks for a script answering prompt on document.
func buildGeneratePrompt(prompt, library string, document *Document, schema *jsonschema.Schema) string {
	var builder strings.Builder

	fmt.Fprintf(&builder, "Write a script that uses the %s library to answer the question below for the page at %s.\n", library, document.URL)
	builder.WriteString("The script must fetch the page itself and print its result.\n\n")
	fmt.Fprintf(&builder, "QUESTION:\n%s\n\n", prompt)

	if schema != nil {
		fmt.Fprintf(&builder, "The result must follow this JSON schema:\n%s\n\n", utils.JSONToString(schema, true))
	}

	if document.Title != "" {
		fmt.Fprintf(&builder, "PAGE TITLE: %s\n", document.Title)
	}
	fmt.Fprintf(&builder, "PAGE CONTENT:\n%s\n", document.Content)

	return builder.String()
}

// buildMergePrompt asks for one script merging scripts, in source order.
func buildMergePrompt(prompt string, scripts []SourceScript, schema *jsonschema.Schema) string {
	var builder strings.Builder

	builder.WriteString("Merge the scripts below into a single script that answers the question for every website.\n\n")
	fmt.Fprintf(&builder, "QUESTION:\n%s\n\n", prompt)

	if schema != nil {
		fmt.Fprintf(&builder, "The result must follow this JSON schema:\n%s\n\n", utils.JSONToString(schema, true))
	}

	for _, script := range scripts {
		fmt.Fprintf(&builder, "SCRIPT %d (%s):\n%s\n\n", script.Index+1, script.URL, script.Script)
	}

	return builder.String()
}
