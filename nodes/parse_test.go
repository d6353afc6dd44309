package nodes

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pricingPage = `<html>
<head>
  <title>Pricing</title>
  <style>body { color: red; }</style>
  <script>window.track = true;</script>
</head>
<body>
  <h1>Plans</h1>
  <noscript>enable javascript</noscript>
  <p>Basic costs <b>10 EUR</b> per month.</p>
  <iframe src="https://ads.example.com"></iframe>
</body>
</html>`

func TestParse_CleansAndConverts(t *testing.T) {
	document, err := (&Parse{ConvertToMarkdown: true}).Document(&Page{URL: "https://example.com/pricing", HTML: pricingPage})
	require.NoError(t, err)

	assert.Equal(t, "Pricing", document.Title)
	assert.Equal(t, "https://example.com/pricing", document.URL)
	assert.Contains(t, document.Content, "# Plans")
	assert.Contains(t, document.Content, "**10 EUR**")
	assert.NotContains(t, document.Content, "window.track")
	assert.NotContains(t, document.Content, "color: red")
	assert.NotContains(t, document.Content, "enable javascript")
	assert.False(t, document.Truncated)
}

func TestParse_PlainText(t *testing.T) {
	document, err := (&Parse{}).Document(&Page{HTML: pricingPage})
	require.NoError(t, err)

	assert.Contains(t, document.Content, "Basic costs 10 EUR per month.")
	assert.NotContains(t, document.Content, "<p>")
	assert.NotContains(t, document.Content, "window.track")
}

func TestParse_OpenGraphTitleFallback(t *testing.T) {
	html := `<html><head><meta property="og:title" content="Shop Home"></head><body>x</body></html>`

	document, err := (&Parse{}).Document(&Page{HTML: html})
	require.NoError(t, err)
	assert.Equal(t, "Shop Home", document.Title)
}

func TestParse_ChunkSize(t *testing.T) {
	document, err := (&Parse{ChunkSize: 5}).Document(&Page{HTML: "<body>abcdefghij</body>"})
	require.NoError(t, err)

	assert.Equal(t, "abcde", document.Content)
	assert.True(t, document.Truncated)
}

func TestParse_Execute(t *testing.T) {
	result, err := (&Parse{}).Execute(context.Background(), nodeInput(nil, &Page{URL: "u", HTML: pricingPage}, nil))
	require.NoError(t, err)

	document, ok := result.Output.(*Document)
	require.True(t, ok)
	assert.Equal(t, "Pricing", result.Metadata[MetaTitle])
	assert.Equal(t, "u", document.URL)

	_, err = (&Parse{}).Execute(context.Background(), nodeInput(nil, nil, nil))
	assert.ErrorIs(t, err, ErrMissingInput)
}
