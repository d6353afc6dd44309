package nodes

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/PuerkitoBio/goquery"

	"github.com/leofalp/scriptgraph/internal/utils"
	"github.com/leofalp/scriptgraph/patterns/graph"
)

// noiseSelectors are removed before the page reaches the model.
var noiseSelectors = []string{"script", "style", "noscript", "iframe", "svg"}

var whitespaceRun = regexp.MustCompile(`[ \t]+`)
var blankLines = regexp.MustCompile(`\n{3,}`)

// Document is the cleaned page produced by [Parse].
type Document struct {
	URL     string
	Title   string
	Content string
	// Truncated reports whether Content was cut to the chunk size.
	Truncated bool
}

// Parse cleans the upstream [Page]: noise elements are dropped, the title is
// read from <title> or og:title, and the body is kept as markdown (or plain
// text) cut to ChunkSize bytes.
type Parse struct {
	ChunkSize         int
	ConvertToMarkdown bool
}

var _ graph.NodeExecutor = (*Parse)(nil)

// Execute implements graph.NodeExecutor.
func (parse *Parse) Execute(_ context.Context, input *graph.NodeInput) (*graph.NodeResult, error) {
	page, ok := upstreamOutput[*Page](input)
	if !ok {
		return nil, fmt.Errorf("%w: fetched page", ErrMissingInput)
	}

	document, err := parse.Document(page)
	if err != nil {
		return nil, err
	}

	return &graph.NodeResult{
		Output:   document,
		Metadata: map[string]any{MetaTitle: document.Title},
	}, nil
}

// Document cleans page.
func (parse *Parse) Document(page *Page) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page.HTML))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())
	if title == "" {
		if ogTitle, exists := doc.Find("meta[property='og:title']").First().Attr("content"); exists {
			title = strings.TrimSpace(ogTitle)
		}
	}

	doc.Find(strings.Join(noiseSelectors, ", ")).Remove()

	var content string
	if parse.ConvertToMarkdown {
		cleanedHTML, err := doc.Html()
		if err != nil {
			return nil, fmt.Errorf("failed to render cleaned HTML: %w", err)
		}
		content, err = htmltomarkdown.ConvertString(cleanedHTML)
		if err != nil {
			return nil, fmt.Errorf("failed to convert HTML to Markdown: %w", err)
		}
	} else {
		content = collapseWhitespace(doc.Find("body").Text())
	}
	content = strings.TrimSpace(content)

	clipped := utils.Clip(content, parse.ChunkSize)

	return &Document{
		URL:       page.URL,
		Title:     title,
		Content:   clipped,
		Truncated: len(clipped) < len(content),
	}, nil
}

func collapseWhitespace(text string) string {
	lines := strings.Split(whitespaceRun.ReplaceAllString(text, " "), "\n")
	for index, line := range lines {
		lines[index] = strings.TrimSpace(line)
	}
	return blankLines.ReplaceAllString(strings.Join(lines, "\n"), "\n\n")
}
