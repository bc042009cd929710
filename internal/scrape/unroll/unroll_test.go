package unroll

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtractThreadIDs(t *testing.T) {
	t.Parallel()

	html := `
<div class="tweet" data-tweet-id="123456789012345678">
  <a href="/sue/status/123456789012345678">1/3</a>
</div>
<div class="tweet">
  <a href="/sue/status/123456789012345679">2/3</a>
</div>
<div class="quote-tweet-container">
  <a href="/sue/status/123456789012345999">quoted</a>
</div>
<div class="tweet">
  <a href="/SUE/status/123456789012345680">3/3</a>
</div>`

	ids := ExtractThreadIDs(html, "sue")
	require.Equal(t, []string{
		"123456789012345678",
		"123456789012345679",
		"123456789012345680",
	}, ids)
}

func TestExtractThreadIDsIgnoresOtherAuthors(t *testing.T) {
	t.Parallel()

	html := `
<a href="/sue/status/123456789012345678">mine</a>
<a href="/bob/status/123456789012345700">reply</a>`

	require.Equal(t, []string{"123456789012345678"}, ExtractThreadIDs(html, "sue"))
}

func TestExtractThreadIDsFallsBackToDataAttributes(t *testing.T) {
	t.Parallel()

	html := `
<div data-tweet-id="123456789012345678"></div>
<div data-tweet-id="123456789012345679"></div>
<div data-tweet-id="123456789012345678"></div>`

	ids := ExtractThreadIDs(html, "sue")
	require.Equal(t, []string{"123456789012345678", "123456789012345679"}, ids)
}

func TestExtractThreadIDsCapsLength(t *testing.T) {
	t.Parallel()

	html := ""
	for i := 0; i < 40; i++ {
		html += `<div data-tweet-id="12345678901234` + pad(i) + `"></div>`
	}
	require.Len(t, ExtractThreadIDs(html, ""), maxThreadLength)
}

func TestExtractThreadIDsEmptyPage(t *testing.T) {
	t.Parallel()

	require.Empty(t, ExtractThreadIDs("", "sue"))
	require.Empty(t, ExtractThreadIDs("<html><body>not found</body></html>", "sue"))
}

func pad(i int) string {
	return string([]byte{'0' + byte(i/10%10), '0' + byte(i%10), '0', '0'})
}
