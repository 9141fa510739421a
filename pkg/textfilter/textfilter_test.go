package textfilter_test

import (
	"strings"
	"testing"

	"github.com/microcosm-cc/bluemonday"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/flagon/pkg/textfilter"
)

func TestSanitize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		contains []string
		excludes []string
	}{
		{
			name:     "keeps formatting",
			input:    "<p><strong>bold</strong> and <em>em</em></p>",
			contains: []string{"<strong>bold</strong>", "<em>em</em>"},
		},
		{
			name:     "drops scripts",
			input:    `<p>hi</p><script>alert(1)</script>`,
			contains: []string{"<p>hi</p>"},
			excludes: []string{"script", "alert"},
		},
		{
			name:     "drops event handlers",
			input:    `<b onclick="evil()">x</b>`,
			excludes: []string{"onclick"},
		},
		{
			name:     "nofollow on links",
			input:    `<a href="https://example.com">x</a>`,
			contains: []string{`rel="nofollow"`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := string(textfilter.Sanitize(tt.input))
			for _, s := range tt.contains {
				require.Contains(t, got, s)
			}
			for _, s := range tt.excludes {
				require.NotContains(t, got, s)
			}
		})
	}
}

func TestStripTags(t *testing.T) {
	t.Parallel()

	require.Equal(t, "hello world", textfilter.StripTags("<p>hello <b>world</b></p>"))
}

func TestMarkdown(t *testing.T) {
	t.Parallel()

	got, err := textfilter.Markdown("# Title\n\n**bold** <script>x</script>")
	require.NoError(t, err)
	require.Contains(t, string(got), "<h1")
	require.Contains(t, string(got), "<strong>bold</strong>")
	require.NotContains(t, string(got), "<script>")
}

func TestWithPolicy(t *testing.T) {
	t.Parallel()

	require.Equal(t, "<b>x</b>", textfilter.WithPolicy("<b>x</b>", nil))
	require.Equal(t, "x", strings.TrimSpace(textfilter.WithPolicy("<b>x</b>", bluemonday.StrictPolicy())))
}

func TestFuncs(t *testing.T) {
	t.Parallel()

	funcs := textfilter.Funcs()
	require.Contains(t, funcs, "sanitize")
	require.Contains(t, funcs, "striptags")
	require.Contains(t, funcs, "markdown")
}
