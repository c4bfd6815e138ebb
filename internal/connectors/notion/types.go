package notion

import (
	"strings"
	"time"
)

// Parent identifies the container of a page, database, block or comment.
type Parent struct {
	Type       string `json:"type,omitempty"`
	PageID     string `json:"page_id,omitempty"`
	DatabaseID string `json:"database_id,omitempty"`
	BlockID    string `json:"block_id,omitempty"`
	Workspace  bool   `json:"workspace,omitempty"`
}

// PageParent returns a parent pointing at a page.
func PageParent(id string) Parent {
	return Parent{Type: "page_id", PageID: id}
}

// DatabaseParent returns a parent pointing at a database.
func DatabaseParent(id string) Parent {
	return Parent{Type: "database_id", DatabaseID: id}
}

// RichText is one run of formatted text.
type RichText struct {
	Type        string       `json:"type,omitempty"`
	Text        *TextContent `json:"text,omitempty"`
	Equation    *Equation    `json:"equation,omitempty"`
	Annotations *Annotations `json:"annotations,omitempty"`
	PlainText   string       `json:"plain_text,omitempty"`
	Href        string       `json:"href,omitempty"`
}

// TextContent is the payload of a text rich text run.
type TextContent struct {
	Content string `json:"content"`
	Link    *Link  `json:"link,omitempty"`
}

// Link is a hyperlink inside rich text.
type Link struct {
	URL string `json:"url"`
}

// Equation is an inline or block KaTeX expression.
type Equation struct {
	Expression string `json:"expression"`
}

// Annotations holds rich text styling.
type Annotations struct {
	Bold          bool   `json:"bold"`
	Italic        bool   `json:"italic"`
	Strikethrough bool   `json:"strikethrough"`
	Underline     bool   `json:"underline"`
	Code          bool   `json:"code"`
	Color         string `json:"color,omitempty"`
}

// Text returns a single plain rich text run.
func Text(s string) []RichText {
	return []RichText{{Type: "text", Text: &TextContent{Content: s}}}
}

// PlainText concatenates the plain text of rich text runs.
func PlainText(rt []RichText) string {
	var b strings.Builder
	for _, r := range rt {
		switch {
		case r.PlainText != "":
			b.WriteString(r.PlainText)
		case r.Text != nil:
			b.WriteString(r.Text.Content)
		case r.Equation != nil:
			b.WriteString(r.Equation.Expression)
		}
	}
	return b.String()
}

// Icon is a page or callout icon.
type Icon struct {
	Type     string        `json:"type"`
	Emoji    string        `json:"emoji,omitempty"`
	External *ExternalFile `json:"external,omitempty"`
	File     *HostedFile   `json:"file,omitempty"`
}

// EmojiIcon returns an emoji icon.
func EmojiIcon(emoji string) *Icon {
	return &Icon{Type: "emoji", Emoji: emoji}
}

// FileObject is a file reference: uploaded to Notion or hosted externally.
type FileObject struct {
	Type     string        `json:"type"`
	Name     string        `json:"name,omitempty"`
	External *ExternalFile `json:"external,omitempty"`
	File     *HostedFile   `json:"file,omitempty"`
}

// ExternalFileObject returns a file object for an external URL.
func ExternalFileObject(url string) *FileObject {
	return &FileObject{Type: "external", External: &ExternalFile{URL: url}}
}

// URL returns the file's URL regardless of hosting.
func (f *FileObject) URL() string {
	if f == nil {
		return ""
	}
	if f.External != nil {
		return f.External.URL
	}
	if f.File != nil {
		return f.File.URL
	}
	return ""
}

// ExternalFile is an externally hosted file.
type ExternalFile struct {
	URL string `json:"url"`
}

// HostedFile is a Notion-hosted file with a temporary URL.
type HostedFile struct {
	URL        string     `json:"url"`
	ExpiryTime *time.Time `json:"expiry_time,omitempty"`
}

// User is a workspace member or bot.
type User struct {
	Object    string  `json:"object,omitempty"`
	ID        string  `json:"id"`
	Type      string  `json:"type,omitempty"`
	Name      string  `json:"name,omitempty"`
	AvatarURL string  `json:"avatar_url,omitempty"`
	Person    *Person `json:"person,omitempty"`
	Bot       *Bot    `json:"bot,omitempty"`
}

// Person holds person-specific user fields.
type Person struct {
	Email string `json:"email,omitempty"`
}

// Bot holds bot-specific user fields.
type Bot struct {
	Owner         *BotOwner `json:"owner,omitempty"`
	WorkspaceName string    `json:"workspace_name,omitempty"`
}

// BotOwner describes who owns a bot integration.
type BotOwner struct {
	Type      string `json:"type"`
	Workspace bool   `json:"workspace,omitempty"`
}

// SelectOption is a select, multi-select or status option.
type SelectOption struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name,omitempty"`
	Color string `json:"color,omitempty"`
}

// DateRange is a date property value.
type DateRange struct {
	Start    string  `json:"start"`
	End      *string `json:"end,omitempty"`
	TimeZone *string `json:"time_zone,omitempty"`
}

// PageRef references a page by ID (relations).
type PageRef struct {
	ID string `json:"id"`
}

// List is a paginated list response.
type List[T any] struct {
	Object     string  `json:"object"`
	Results    []T     `json:"results"`
	NextCursor *string `json:"next_cursor"`
	HasMore    bool    `json:"has_more"`
	Type       string  `json:"type,omitempty"`
}

// Next returns the cursor of the following page, or "" on the last page.
func (l *List[T]) Next() string {
	if l == nil || !l.HasMore || l.NextCursor == nil {
		return ""
	}
	return *l.NextCursor
}

// ListOptions controls pagination of list endpoints.
type ListOptions struct {
	StartCursor string
	PageSize    int
}
