package locate

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaurav-prasanna/newsfold/core"
)

func TestHeadings_FindsNumberedTitles(t *testing.T) {
	html := "1.Opening line\n<p>2.Second Topic</p><div> 3. Third one<br></div>"
	sections := NewHeadingLocator(0).Locate(html)
	require.Len(t, sections, 3)

	assert.Equal(t, 1, sections[0].Ordinal)
	assert.Equal(t, "Opening line", sections[0].Title)
	assert.Equal(t, 0, sections[0].Start)

	assert.Equal(t, 2, sections[1].Ordinal)
	assert.Equal(t, "Second Topic", sections[1].Title)
	assert.Equal(t, "02_Second_Topic", sections[1].Folder)
	assert.Equal(t, "<", html[sections[1].End:sections[1].End+1])

	assert.Equal(t, 3, sections[2].Ordinal)
	assert.Equal(t, "Third one", sections[2].Title)
}

func TestHeadings_OrdinalBounds(t *testing.T) {
	html := "<p>0.Zero title</p><p>18.Too far</p><p>17.Last item</p><p>123.Nope</p>"

	sections := NewHeadingLocator(0).Locate(html)
	require.Len(t, sections, 1)
	assert.Equal(t, 17, sections[0].Ordinal)

	sections = NewHeadingLocator(20).Locate(html)
	require.Len(t, sections, 2)
	assert.Equal(t, 18, sections[0].Ordinal)
	assert.Equal(t, 17, sections[1].Ordinal)
}

func TestHeadings_RequiresBoundary(t *testing.T) {
	// Mid-text numbers and titles without a terminator are not headings.
	html := "<p>version 1.5 released</p><p>1.X</p><p>4.unterminated"
	assert.Empty(t, NewHeadingLocator(0).Locate(html))
}

func TestHeadings_DecodesTitleEntities(t *testing.T) {
	sections := NewHeadingLocator(0).Locate("<p>1.Q&amp;A session</p><p>2.&lt;速報&gt; Launch</p>")
	require.Len(t, sections, 2)

	assert.Equal(t, "Q&A session", sections[0].Title)
	assert.Equal(t, "01_Q&A_session", sections[0].Folder)
	assert.Equal(t, "<速報> Launch", sections[1].Title)
	assert.Equal(t, "02__速報__Launch", sections[1].Folder)
}

func TestSanitizeTitle(t *testing.T) {
	tests := []struct {
		title string
		want  string
	}{
		{"First Topic", "First_Topic"},
		{`a/b:c*d?e"f<g>h|i\j`, "a_b_c_d_e_f_g_h_i_j"},
		{"  ..dotted..  ", "dotted"},
		{"...", FallbackTitle},
		{"", FallbackTitle},
		{"オープンソースのAIエージェントが企業のワークフローを大きく変える理由", "オープンソースのAIエージェントが企業のワークフローを大"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SanitizeTitle(tt.title), "title=%q", tt.title)
	}
	assert.Equal(t, MaxFolderTitle, len([]rune(SanitizeTitle(strings.Repeat("あ", 40)))))
}

func TestFolderName(t *testing.T) {
	assert.Equal(t, "01_First_Topic", FolderName(1, "First Topic"))
	assert.Equal(t, "12_未分類", FolderName(12, ""))
}

func TestImages_BothKindsSortedByOffset(t *testing.T) {
	html := `<img src="https://cdn.example.com/a/photo.JPG?w=600&amp;h=400" alt="x">` +
		`<p>text</p>` +
		`<IMG class="i" SRC='data:image/jpeg;base64,AAAA'>` +
		`<img src="https://cdn.example.com/b.webp">` +
		`<img src="data:image/gif;base64,R0lG">`

	refs := Images(html)
	require.Len(t, refs, 4)

	assert.Equal(t, core.Remote, refs[0].Kind)
	assert.Equal(t, "https://cdn.example.com/a/photo.JPG?w=600&h=400", refs[0].URL)
	assert.Equal(t, ".jpg", refs[0].Ext)

	assert.Equal(t, core.Embedded, refs[1].Kind)
	assert.Equal(t, "jpeg", refs[1].Subtype)
	assert.Equal(t, "AAAA", refs[1].Payload)
	assert.Equal(t, ".jpg", refs[1].Ext)

	assert.Equal(t, ".webp", refs[2].Ext)
	assert.Equal(t, ".gif", refs[3].Ext)

	for i := 1; i < len(refs); i++ {
		assert.Less(t, refs[i-1].Start, refs[i].Start)
		assert.Equal(t, ">", html[refs[i].End-1:refs[i].End])
	}
}

func TestImages_IgnoresUnsupported(t *testing.T) {
	html := `<img src="http://insecure.example.com/a.png">` +
		`<img src="https://example.com/pixel">` +
		`<img src="data:image/svg+xml;base64,PHN2Zz4=">` +
		`<img src="cid:part1">`
	assert.Empty(t, Images(html))
}

func TestExtensions(t *testing.T) {
	assert.Equal(t, ".png", EmbeddedExt("png"))
	assert.Equal(t, ".jpg", EmbeddedExt("jpg"))
	assert.Equal(t, ".webp", EmbeddedExt("webp"))
	assert.Equal(t, ".jpeg", RemoteExt("https://x.example/a.jpeg?x=1"))
	assert.Equal(t, ".png", RemoteExt("https://x.example/a.bmp"))
}
