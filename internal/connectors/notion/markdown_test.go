package notion

import (
	"context"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderMarkdown(t *testing.T) {
	bold := []RichText{
		{PlainText: "Read "},
		{PlainText: "this", Annotations: &Annotations{Bold: true}},
		{PlainText: " and ", Href: ""},
		{PlainText: "docs", Href: "https://example.com"},
	}

	nested := NewTextBlock(BlockBulletedListItem, "parent")
	nested.Children = []*Block{NewTextBlock(BlockBulletedListItem, "child")}

	table := &Block{Type: BlockTable, Data: &TableBlock{TableWidth: 2, HasColumnHeader: true}, Children: []*Block{
		{Type: BlockTableRow, Data: &TableRowBlock{Cells: [][]RichText{Text("Key"), Text("Value")}}},
		{Type: BlockTableRow, Data: &TableRowBlock{Cells: [][]RichText{Text("a|b"), Text("1")}}},
	}}

	blocks := []*Block{
		NewHeading(1, "Title"),
		{Type: BlockParagraph, Data: &TextBlock{RichText: bold}},
		nested,
		NewTextBlock(BlockBulletedListItem, "sibling"),
		NewTextBlock(BlockNumberedListItem, "one"),
		NewTextBlock(BlockNumberedListItem, "two"),
		NewToDo("done", true),
		NewToDo("open", false),
		NewCode("go", "fmt.Println(1)"),
		NewDivider(),
		{Type: BlockCallout, Data: &CalloutBlock{RichText: Text("Note"), Icon: EmojiIcon("💡")}},
		{Type: BlockImage, Data: &FileBlock{FileObject: *ExternalFileObject("https://x/y.png"), Caption: Text("pic")}},
		{Type: BlockBookmark, Data: &LinkBlock{URL: "https://example.com"}},
		{Type: BlockEquation, Data: &EquationBlock{Expression: "e=mc^2"}},
		{ID: "aaaa-bbbb", Type: BlockChildPage, Data: &ChildBlock{Title: "Sub page"}},
		table,
		{Type: "breadcrumb", Data: &RawBlock{}},
	}

	expected := "# Title\n" +
		"\n" +
		"Read **this** and [docs](https://example.com)\n" +
		"\n" +
		"- parent\n" +
		"  - child\n" +
		"- sibling\n" +
		"\n" +
		"1. one\n" +
		"2. two\n" +
		"\n" +
		"- [x] done\n" +
		"- [ ] open\n" +
		"\n" +
		"```go\n" +
		"fmt.Println(1)\n" +
		"```\n" +
		"\n" +
		"---\n" +
		"\n" +
		"> 💡 Note\n" +
		"\n" +
		"![pic](https://x/y.png)\n" +
		"\n" +
		"[https://example.com](https://example.com)\n" +
		"\n" +
		"$$\n" +
		"e=mc^2\n" +
		"$$\n" +
		"\n" +
		"[Sub page](https://www.notion.so/aaaabbbb)\n" +
		"\n" +
		"| Key | Value |\n" +
		"| --- | --- |\n" +
		"| a\\|b | 1 |\n" +
		"\n" +
		"<!-- unsupported block: breadcrumb -->\n"

	assert.Equal(t, expected, RenderMarkdown(blocks))
}

func TestRenderMarkdown_Toggle(t *testing.T) {
	toggle := NewTextBlock(BlockToggle, "More")
	toggle.Children = []*Block{NewParagraph("hidden")}

	got := RenderMarkdown([]*Block{toggle})

	assert.Equal(t, "<details>\n<summary>More</summary>\n\nhidden\n\n</details>\n", got)
}

func TestExportMarkdown(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/pages/page-1":
			_, _ = io.WriteString(w, pageJSON)
		case "/blocks/page-1/children":
			_, _ = io.WriteString(w, `{"object":"list","has_more":false,"results":[
				{"id":"b1","type":"paragraph","paragraph":{"rich_text":[{"plain_text":"Hello"}]}}
			]}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))

	md, err := c.ExportMarkdown(context.Background(), "page-1")
	require.NoError(t, err)

	assert.Equal(t, "# Launch\n\nHello\n", md)
}
