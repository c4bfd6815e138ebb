package notion

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// ExportMarkdown renders a page and all of its content as Markdown.
func (c *Client) ExportMarkdown(ctx context.Context, pageID string) (string, error) {
	page, err := c.Pages.Get(ctx, pageID)
	if err != nil {
		return "", err
	}
	blocks, err := c.Blocks.Tree(ctx, pageID)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	if title := page.Title(); title != "" {
		b.WriteString("# " + title + "\n\n")
	}
	b.WriteString(RenderMarkdown(blocks))
	return b.String(), nil
}

// RenderMarkdown renders a block tree as Markdown. Children of list items,
// to-dos and toggles are indented under their parent.
func RenderMarkdown(blocks []*Block) string {
	var b strings.Builder
	renderBlocks(&b, blocks, "")
	return strings.TrimRight(b.String(), "\n") + "\n"
}

func renderBlocks(b *strings.Builder, blocks []*Block, indent string) {
	number := 0
	for i, blk := range blocks {
		if blk.Type == BlockNumberedListItem {
			number++
		} else {
			number = 0
		}
		renderBlock(b, blk, indent, number)

		// Consecutive list items stay in one list.
		if i+1 < len(blocks) && isListItem(blk.Type) && blocks[i+1].Type == blk.Type {
			continue
		}
		b.WriteString("\n")
	}
}

func isListItem(t BlockType) bool {
	return t == BlockBulletedListItem || t == BlockNumberedListItem || t == BlockToDo
}

func renderBlock(b *strings.Builder, blk *Block, indent string, number int) {
	line := func(s string) {
		for _, l := range strings.Split(s, "\n") {
			b.WriteString(indent + l + "\n")
		}
	}
	text := renderRichText(blk.RichText())

	switch blk.Type {
	case BlockParagraph:
		line(text)
		renderNested(b, blk.Children, indent)
	case BlockHeading1:
		line("# " + text)
	case BlockHeading2:
		line("## " + text)
	case BlockHeading3:
		line("### " + text)
	case BlockBulletedListItem:
		line("- " + text)
		renderNested(b, blk.Children, indent+"  ")
	case BlockNumberedListItem:
		line(strconv.Itoa(number) + ". " + text)
		renderNested(b, blk.Children, indent+"   ")
	case BlockToDo:
		mark := " "
		if d, ok := blk.Data.(*ToDoBlock); ok && d.Checked {
			mark = "x"
		}
		line("- [" + mark + "] " + text)
		renderNested(b, blk.Children, indent+"  ")
	case BlockToggle:
		line("<details>")
		line("<summary>" + text + "</summary>")
		b.WriteString("\n")
		renderBlocks(b, blk.Children, indent)
		line("</details>")
	case BlockQuote:
		line("> " + strings.ReplaceAll(text, "\n", "\n> "))
	case BlockCallout:
		prefix := ""
		if d, ok := blk.Data.(*CalloutBlock); ok && d.Icon != nil && d.Icon.Emoji != "" {
			prefix = d.Icon.Emoji + " "
		}
		line("> " + prefix + strings.ReplaceAll(text, "\n", "\n> "))
	case BlockCode:
		lang := ""
		if d, ok := blk.Data.(*CodeBlock); ok {
			lang = d.Language
			text = PlainText(d.RichText)
		}
		line("```" + lang)
		line(text)
		line("```")
	case BlockDivider:
		line("---")
	case BlockEquation:
		if d, ok := blk.Data.(*EquationBlock); ok {
			line("$$")
			line(d.Expression)
			line("$$")
		}
	case BlockImage:
		if d, ok := blk.Data.(*FileBlock); ok {
			line("![" + PlainText(d.Caption) + "](" + d.URL() + ")")
		}
	case BlockFile, BlockVideo, BlockPDF, BlockAudio:
		if d, ok := blk.Data.(*FileBlock); ok {
			label := d.Name
			if label == "" {
				label = PlainText(d.Caption)
			}
			if label == "" {
				label = string(blk.Type)
			}
			line("[" + label + "](" + d.URL() + ")")
		}
	case BlockBookmark, BlockEmbed, BlockLinkPreview:
		if d, ok := blk.Data.(*LinkBlock); ok {
			label := PlainText(d.Caption)
			if label == "" {
				label = d.URL
			}
			line("[" + label + "](" + d.URL + ")")
		}
	case BlockChildPage, BlockChildDatabase:
		if d, ok := blk.Data.(*ChildBlock); ok {
			line("[" + d.Title + "](" + pageURL(blk.ID) + ")")
		}
	case BlockTable:
		renderTable(b, blk, indent)
	case BlockColumnList, BlockColumn, BlockSyncedBlock:
		renderBlocks(b, blk.Children, indent)
	default:
		line(fmt.Sprintf("<!-- unsupported block: %s -->", blk.Type))
	}
}

// renderNested renders children under a list item without blank lines
// between siblings of the same list.
func renderNested(b *strings.Builder, children []*Block, indent string) {
	if len(children) == 0 {
		return
	}
	var nested strings.Builder
	renderBlocks(&nested, children, indent)
	b.WriteString(strings.TrimRight(nested.String(), "\n") + "\n")
}

func renderTable(b *strings.Builder, blk *Block, indent string) {
	header := true
	if d, ok := blk.Data.(*TableBlock); ok {
		header = d.HasColumnHeader
	}

	var rows [][]string
	width := 0
	for _, child := range blk.Children {
		row, ok := child.Data.(*TableRowBlock)
		if !ok {
			continue
		}
		cells := make([]string, len(row.Cells))
		for i, cell := range row.Cells {
			cells[i] = strings.ReplaceAll(renderRichText(cell), "|", `\|`)
		}
		width = max(width, len(cells))
		rows = append(rows, cells)
	}
	if len(rows) == 0 {
		return
	}

	writeRow := func(cells []string) {
		for len(cells) < width {
			cells = append(cells, "")
		}
		b.WriteString(indent + "| " + strings.Join(cells, " | ") + " |\n")
	}
	separator := func() {
		seps := make([]string, width)
		for i := range seps {
			seps[i] = "---"
		}
		writeRow(seps)
	}

	if !header {
		writeRow(make([]string, width))
		separator()
	}
	for i, row := range rows {
		writeRow(row)
		if i == 0 && header {
			separator()
		}
	}
}

// renderRichText renders annotated rich text runs as inline Markdown.
func renderRichText(rt []RichText) string {
	var b strings.Builder
	for _, r := range rt {
		if r.Type == "equation" && r.Equation != nil {
			b.WriteString("$" + r.Equation.Expression + "$")
			continue
		}
		text := r.PlainText
		if text == "" && r.Text != nil {
			text = r.Text.Content
		}
		if text == "" {
			continue
		}
		if a := r.Annotations; a != nil {
			if a.Code {
				text = "`" + text + "`"
			}
			if a.Bold {
				text = "**" + text + "**"
			}
			if a.Italic {
				text = "_" + text + "_"
			}
			if a.Strikethrough {
				text = "~~" + text + "~~"
			}
		}
		href := r.Href
		if href == "" && r.Text != nil && r.Text.Link != nil {
			href = r.Text.Link.URL
		}
		if href != "" {
			text = "[" + text + "](" + href + ")"
		}
		b.WriteString(text)
	}
	return b.String()
}

func pageURL(id string) string {
	return "https://www.notion.so/" + strings.ReplaceAll(id, "-", "")
}
