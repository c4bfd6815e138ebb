package notion

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/custodia-labs/connect-cli/internal/connectors/rest"
)

// BlockType names a Notion block type.
type BlockType string

// Block types.
const (
	BlockParagraph        BlockType = "paragraph"
	BlockHeading1         BlockType = "heading_1"
	BlockHeading2         BlockType = "heading_2"
	BlockHeading3         BlockType = "heading_3"
	BlockBulletedListItem BlockType = "bulleted_list_item"
	BlockNumberedListItem BlockType = "numbered_list_item"
	BlockToDo             BlockType = "to_do"
	BlockToggle           BlockType = "toggle"
	BlockQuote            BlockType = "quote"
	BlockCallout          BlockType = "callout"
	BlockCode             BlockType = "code"
	BlockDivider          BlockType = "divider"
	BlockImage            BlockType = "image"
	BlockFile             BlockType = "file"
	BlockVideo            BlockType = "video"
	BlockPDF              BlockType = "pdf"
	BlockAudio            BlockType = "audio"
	BlockBookmark         BlockType = "bookmark"
	BlockEmbed            BlockType = "embed"
	BlockLinkPreview      BlockType = "link_preview"
	BlockEquation         BlockType = "equation"
	BlockTable            BlockType = "table"
	BlockTableRow         BlockType = "table_row"
	BlockChildPage        BlockType = "child_page"
	BlockChildDatabase    BlockType = "child_database"
	BlockColumnList       BlockType = "column_list"
	BlockColumn           BlockType = "column"
	BlockSyncedBlock      BlockType = "synced_block"
)

// BlockData is the type-specific payload of a block.
type BlockData interface {
	isBlockData()
}

// TextBlock is the payload of paragraph, list item, toggle and quote blocks.
type TextBlock struct {
	RichText []RichText `json:"rich_text"`
	Color    string     `json:"color,omitempty"`
	Children []*Block   `json:"children,omitempty"`
}

// HeadingBlock is the payload of heading_1, heading_2 and heading_3 blocks.
type HeadingBlock struct {
	RichText     []RichText `json:"rich_text"`
	Color        string     `json:"color,omitempty"`
	IsToggleable bool       `json:"is_toggleable,omitempty"`
}

// ToDoBlock is the payload of a to_do block.
type ToDoBlock struct {
	RichText []RichText `json:"rich_text"`
	Checked  bool       `json:"checked"`
	Color    string     `json:"color,omitempty"`
	Children []*Block   `json:"children,omitempty"`
}

// CalloutBlock is the payload of a callout block.
type CalloutBlock struct {
	RichText []RichText `json:"rich_text"`
	Icon     *Icon      `json:"icon,omitempty"`
	Color    string     `json:"color,omitempty"`
}

// CodeBlock is the payload of a code block.
type CodeBlock struct {
	RichText []RichText `json:"rich_text"`
	Caption  []RichText `json:"caption,omitempty"`
	Language string     `json:"language"`
}

// FileBlock is the payload of image, file, video, pdf and audio blocks.
type FileBlock struct {
	FileObject
	Caption []RichText `json:"caption,omitempty"`
}

// LinkBlock is the payload of bookmark, embed and link_preview blocks.
type LinkBlock struct {
	URL     string     `json:"url"`
	Caption []RichText `json:"caption,omitempty"`
}

// EquationBlock is the payload of an equation block.
type EquationBlock struct {
	Expression string `json:"expression"`
}

// TableBlock is the payload of a table block. Rows are its children.
type TableBlock struct {
	TableWidth      int      `json:"table_width"`
	HasColumnHeader bool     `json:"has_column_header"`
	HasRowHeader    bool     `json:"has_row_header"`
	Children        []*Block `json:"children,omitempty"`
}

// TableRowBlock is the payload of a table_row block.
type TableRowBlock struct {
	Cells [][]RichText `json:"cells"`
}

// ChildBlock is the payload of child_page and child_database blocks.
type ChildBlock struct {
	Title string `json:"title"`
}

// ContainerBlock is the payload of divider, column_list and column blocks.
type ContainerBlock struct {
	Children []*Block `json:"children,omitempty"`
}

// SyncedBlock is the payload of a synced_block.
type SyncedBlock struct {
	SyncedFrom *SyncedFrom `json:"synced_from"`
	Children   []*Block    `json:"children,omitempty"`
}

// SyncedFrom points at the original of a synced block copy.
type SyncedFrom struct {
	Type    string `json:"type"`
	BlockID string `json:"block_id"`
}

// RawBlock keeps the payload of block types this package does not model.
type RawBlock struct {
	json.RawMessage
}

func (*TextBlock) isBlockData()      {}
func (*HeadingBlock) isBlockData()   {}
func (*ToDoBlock) isBlockData()      {}
func (*CalloutBlock) isBlockData()   {}
func (*CodeBlock) isBlockData()      {}
func (*FileBlock) isBlockData()      {}
func (*LinkBlock) isBlockData()      {}
func (*EquationBlock) isBlockData()  {}
func (*TableBlock) isBlockData()     {}
func (*TableRowBlock) isBlockData()  {}
func (*ChildBlock) isBlockData()     {}
func (*ContainerBlock) isBlockData() {}
func (*SyncedBlock) isBlockData()    {}
func (*RawBlock) isBlockData()       {}

// newBlockData returns an empty payload for t, or nil for unknown types.
func newBlockData(t BlockType) BlockData {
	switch t {
	case BlockParagraph, BlockBulletedListItem, BlockNumberedListItem, BlockToggle, BlockQuote:
		return &TextBlock{}
	case BlockHeading1, BlockHeading2, BlockHeading3:
		return &HeadingBlock{}
	case BlockToDo:
		return &ToDoBlock{}
	case BlockCallout:
		return &CalloutBlock{}
	case BlockCode:
		return &CodeBlock{}
	case BlockImage, BlockFile, BlockVideo, BlockPDF, BlockAudio:
		return &FileBlock{}
	case BlockBookmark, BlockEmbed, BlockLinkPreview:
		return &LinkBlock{}
	case BlockEquation:
		return &EquationBlock{}
	case BlockTable:
		return &TableBlock{}
	case BlockTableRow:
		return &TableRowBlock{}
	case BlockChildPage, BlockChildDatabase:
		return &ChildBlock{}
	case BlockDivider, BlockColumnList, BlockColumn:
		return &ContainerBlock{}
	case BlockSyncedBlock:
		return &SyncedBlock{}
	default:
		return nil
	}
}

// Block is a Notion content block.
type Block struct {
	Object         string    `json:"object,omitempty"`
	ID             string    `json:"id,omitempty"`
	Parent         *Parent   `json:"parent,omitempty"`
	Type           BlockType `json:"type"`
	CreatedTime    time.Time `json:"created_time,omitempty"`
	LastEditedTime time.Time `json:"last_edited_time,omitempty"`
	HasChildren    bool      `json:"has_children,omitempty"`
	Archived       bool      `json:"archived,omitempty"`
	InTrash        bool      `json:"in_trash,omitempty"`

	// Data is the payload stored under the key named by Type.
	Data BlockData `json:"-"`

	// Children is filled by BlocksService.Tree; the API never returns it inline.
	Children []*Block `json:"-"`
}

type blockHeader Block

// UnmarshalJSON decodes the common block fields and the typed payload.
func (b *Block) UnmarshalJSON(data []byte) error {
	var h blockHeader
	if err := json.Unmarshal(data, &h); err != nil {
		return rest.NewDecodeError(b, data, err)
	}
	*b = Block(h)

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return rest.NewDecodeError(b, data, err)
	}
	payload := fields[string(b.Type)]

	d := newBlockData(b.Type)
	if d == nil {
		b.Data = &RawBlock{RawMessage: payload}
		return nil
	}
	if len(payload) > 0 && string(payload) != "null" {
		if err := json.Unmarshal(payload, d); err != nil {
			return rest.NewDecodeError(d, payload, fmt.Errorf("%s block %s: %w", b.Type, b.ID, err))
		}
	}
	b.Data = d
	return nil
}

// MarshalJSON encodes the block with its payload under the type key.
// Read-only fields are omitted so the result can be sent to the API.
func (b Block) MarshalJSON() ([]byte, error) {
	out := map[string]any{
		"object": "block",
		"type":   b.Type,
	}
	switch d := b.Data.(type) {
	case nil:
		out[string(b.Type)] = struct{}{}
	case *RawBlock:
		if len(d.RawMessage) == 0 {
			out[string(b.Type)] = struct{}{}
		} else {
			out[string(b.Type)] = d.RawMessage
		}
	default:
		out[string(b.Type)] = d
	}
	return json.Marshal(out)
}

// RichText returns the block's main text, or nil for blocks without text.
func (b *Block) RichText() []RichText {
	switch d := b.Data.(type) {
	case *TextBlock:
		return d.RichText
	case *HeadingBlock:
		return d.RichText
	case *ToDoBlock:
		return d.RichText
	case *CalloutBlock:
		return d.RichText
	case *CodeBlock:
		return d.RichText
	default:
		return nil
	}
}

// NewTextBlock builds a paragraph-like block (paragraph, list items, toggle, quote).
func NewTextBlock(t BlockType, text string) *Block {
	return &Block{Type: t, Data: &TextBlock{RichText: Text(text)}}
}

// NewParagraph builds a paragraph block.
func NewParagraph(text string) *Block {
	return NewTextBlock(BlockParagraph, text)
}

// NewHeading builds a heading block of the given level (1-3).
func NewHeading(level int, text string) *Block {
	t := BlockHeading1
	switch level {
	case 2:
		t = BlockHeading2
	case 3:
		t = BlockHeading3
	}
	return &Block{Type: t, Data: &HeadingBlock{RichText: Text(text)}}
}

// NewToDo builds a to_do block.
func NewToDo(text string, checked bool) *Block {
	return &Block{Type: BlockToDo, Data: &ToDoBlock{RichText: Text(text), Checked: checked}}
}

// NewCode builds a code block.
func NewCode(language, code string) *Block {
	return &Block{Type: BlockCode, Data: &CodeBlock{RichText: Text(code), Language: language}}
}

// NewDivider builds a divider block.
func NewDivider() *Block {
	return &Block{Type: BlockDivider, Data: &ContainerBlock{}}
}
