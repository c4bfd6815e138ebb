package notion

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/connect-cli/internal/connectors/rest"
)

// PropertyType names a database property type.
type PropertyType string

// Property types.
const (
	PropTitle          PropertyType = "title"
	PropRichText       PropertyType = "rich_text"
	PropNumber         PropertyType = "number"
	PropSelect         PropertyType = "select"
	PropMultiSelect    PropertyType = "multi_select"
	PropStatus         PropertyType = "status"
	PropDate           PropertyType = "date"
	PropCheckbox       PropertyType = "checkbox"
	PropURL            PropertyType = "url"
	PropEmail          PropertyType = "email"
	PropPhoneNumber    PropertyType = "phone_number"
	PropPeople         PropertyType = "people"
	PropRelation       PropertyType = "relation"
	PropFormula        PropertyType = "formula"
	PropCreatedTime    PropertyType = "created_time"
	PropLastEditedTime PropertyType = "last_edited_time"
	PropCreatedBy      PropertyType = "created_by"
	PropLastEditedBy   PropertyType = "last_edited_by"
	PropUniqueID       PropertyType = "unique_id"
	PropFiles          PropertyType = "files"
)

// PropertyData is the type-specific value of a page property.
type PropertyData interface {
	// payload returns the value stored under the property type key.
	payload() any
}

// TitleValue is a title property.
type TitleValue struct{ RichText []RichText }

// RichTextValue is a rich_text property.
type RichTextValue struct{ RichText []RichText }

// NumberValue is a number property; nil means empty.
type NumberValue struct{ Number *float64 }

// SelectValue is a select or status property; nil means empty.
type SelectValue struct{ Option *SelectOption }

// MultiSelectValue is a multi_select property.
type MultiSelectValue struct{ Options []SelectOption }

// DateValue is a date property; nil means empty.
type DateValue struct{ Date *DateRange }

// CheckboxValue is a checkbox property.
type CheckboxValue struct{ Checked bool }

// StringValue is a url, email or phone_number property; nil means empty.
type StringValue struct{ Value *string }

// PeopleValue is a people property.
type PeopleValue struct{ People []User }

// RelationValue is a relation property.
type RelationValue struct{ Pages []PageRef }

// FormulaValue is a computed formula property.
type FormulaValue struct {
	Type    string     `json:"type"`
	String  *string    `json:"string,omitempty"`
	Number  *float64   `json:"number,omitempty"`
	Boolean *bool      `json:"boolean,omitempty"`
	Date    *DateRange `json:"date,omitempty"`
}

// TimestampValue is a created_time or last_edited_time property.
type TimestampValue struct{ Time time.Time }

// UserValue is a created_by or last_edited_by property.
type UserValue struct{ User User }

// UniqueIDValue is a unique_id property.
type UniqueIDValue struct {
	Prefix *string `json:"prefix"`
	Number int     `json:"number"`
}

// FilesValue is a files property.
type FilesValue struct{ Files []FileObject }

// RawValue keeps the payload of property types this package does not model.
type RawValue struct{ Raw json.RawMessage }

func (v *TitleValue) payload() any       { return nonNilText(v.RichText) }
func (v *RichTextValue) payload() any    { return nonNilText(v.RichText) }
func (v *NumberValue) payload() any      { return v.Number }
func (v *SelectValue) payload() any      { return v.Option }
func (v *MultiSelectValue) payload() any { return nonNil(v.Options) }
func (v *DateValue) payload() any        { return v.Date }
func (v *CheckboxValue) payload() any    { return v.Checked }
func (v *StringValue) payload() any      { return v.Value }
func (v *PeopleValue) payload() any      { return nonNil(v.People) }
func (v *RelationValue) payload() any    { return nonNil(v.Pages) }
func (v *FormulaValue) payload() any     { return *v }
func (v *TimestampValue) payload() any   { return v.Time }
func (v *UserValue) payload() any        { return v.User }
func (v *UniqueIDValue) payload() any    { return *v }
func (v *FilesValue) payload() any       { return nonNil(v.Files) }
func (v *RawValue) payload() any         { return v.Raw }

func nonNilText(rt []RichText) []RichText {
	if rt == nil {
		return []RichText{}
	}
	return rt
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// PropertyValue is one property of a page.
type PropertyValue struct {
	ID   string       `json:"id,omitempty"`
	Type PropertyType `json:"type"`
	Data PropertyData `json:"-"`
}

// decodeTarget returns the value to unmarshal the payload into, and the
// data holding it.
func decodeTarget(t PropertyType) (any, PropertyData) {
	switch t {
	case PropTitle:
		v := &TitleValue{}
		return &v.RichText, v
	case PropRichText:
		v := &RichTextValue{}
		return &v.RichText, v
	case PropNumber:
		v := &NumberValue{}
		return &v.Number, v
	case PropSelect, PropStatus:
		v := &SelectValue{}
		return &v.Option, v
	case PropMultiSelect:
		v := &MultiSelectValue{}
		return &v.Options, v
	case PropDate:
		v := &DateValue{}
		return &v.Date, v
	case PropCheckbox:
		v := &CheckboxValue{}
		return &v.Checked, v
	case PropURL, PropEmail, PropPhoneNumber:
		v := &StringValue{}
		return &v.Value, v
	case PropPeople:
		v := &PeopleValue{}
		return &v.People, v
	case PropRelation:
		v := &RelationValue{}
		return &v.Pages, v
	case PropFormula:
		v := &FormulaValue{}
		return v, v
	case PropCreatedTime, PropLastEditedTime:
		v := &TimestampValue{}
		return &v.Time, v
	case PropCreatedBy, PropLastEditedBy:
		v := &UserValue{}
		return &v.User, v
	case PropUniqueID:
		v := &UniqueIDValue{}
		return v, v
	case PropFiles:
		v := &FilesValue{}
		return &v.Files, v
	default:
		return nil, nil
	}
}

type propertyHeader struct {
	ID   string       `json:"id,omitempty"`
	Type PropertyType `json:"type"`
}

// UnmarshalJSON decodes the property header and its typed value.
func (p *PropertyValue) UnmarshalJSON(data []byte) error {
	var h propertyHeader
	if err := json.Unmarshal(data, &h); err != nil {
		return rest.NewDecodeError(p, data, err)
	}
	p.ID, p.Type = h.ID, h.Type

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return rest.NewDecodeError(p, data, err)
	}
	payload := fields[string(h.Type)]

	target, d := decodeTarget(h.Type)
	if d == nil {
		p.Data = &RawValue{Raw: payload}
		return nil
	}
	if len(payload) > 0 && string(payload) != "null" {
		if err := json.Unmarshal(payload, target); err != nil {
			return rest.NewDecodeError(d, payload, fmt.Errorf("%s property: %w", h.Type, err))
		}
	}
	p.Data = d
	return nil
}

// MarshalJSON encodes the value under its type key, as page updates expect.
func (p PropertyValue) MarshalJSON() ([]byte, error) {
	out := map[string]any{"type": p.Type}
	if p.Data != nil {
		out[string(p.Type)] = p.Data.payload()
	} else {
		out[string(p.Type)] = nil
	}
	return json.Marshal(out)
}

// String renders the value as plain text for display.
func (p PropertyValue) String() string {
	switch d := p.Data.(type) {
	case *TitleValue:
		return PlainText(d.RichText)
	case *RichTextValue:
		return PlainText(d.RichText)
	case *NumberValue:
		if d.Number == nil {
			return ""
		}
		return strconv.FormatFloat(*d.Number, 'f', -1, 64)
	case *SelectValue:
		if d.Option == nil {
			return ""
		}
		return d.Option.Name
	case *MultiSelectValue:
		names := make([]string, len(d.Options))
		for i, o := range d.Options {
			names[i] = o.Name
		}
		return strings.Join(names, ", ")
	case *DateValue:
		if d.Date == nil {
			return ""
		}
		if d.Date.End != nil {
			return d.Date.Start + " → " + *d.Date.End
		}
		return d.Date.Start
	case *CheckboxValue:
		return strconv.FormatBool(d.Checked)
	case *StringValue:
		if d.Value == nil {
			return ""
		}
		return *d.Value
	case *PeopleValue:
		names := make([]string, len(d.People))
		for i, u := range d.People {
			names[i] = u.Name
		}
		return strings.Join(names, ", ")
	case *RelationValue:
		ids := make([]string, len(d.Pages))
		for i, r := range d.Pages {
			ids[i] = r.ID
		}
		return strings.Join(ids, ", ")
	case *FormulaValue:
		switch {
		case d.String != nil:
			return *d.String
		case d.Number != nil:
			return strconv.FormatFloat(*d.Number, 'f', -1, 64)
		case d.Boolean != nil:
			return strconv.FormatBool(*d.Boolean)
		case d.Date != nil:
			return d.Date.Start
		}
		return ""
	case *TimestampValue:
		return d.Time.Format(time.RFC3339)
	case *UserValue:
		return d.User.Name
	case *UniqueIDValue:
		if d.Prefix != nil && *d.Prefix != "" {
			return *d.Prefix + "-" + strconv.Itoa(d.Number)
		}
		return strconv.Itoa(d.Number)
	case *FilesValue:
		names := make([]string, len(d.Files))
		for i, f := range d.Files {
			names[i] = f.Name
		}
		return strings.Join(names, ", ")
	default:
		return ""
	}
}

// PropertySchema describes one database property.
type PropertySchema struct {
	ID   string       `json:"id"`
	Name string       `json:"name"`
	Type PropertyType `json:"type"`
	// Options lists select, multi_select and status options.
	Options []SelectOption `json:"-"`
}

// UnmarshalJSON decodes the schema and the options of select-like types.
func (s *PropertySchema) UnmarshalJSON(data []byte) error {
	type schema PropertySchema
	var h schema
	if err := json.Unmarshal(data, &h); err != nil {
		return rest.NewDecodeError(s, data, err)
	}
	*s = PropertySchema(h)

	switch s.Type {
	case PropSelect, PropMultiSelect, PropStatus:
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(data, &fields); err != nil {
			return rest.NewDecodeError(s, data, err)
		}
		var cfg struct {
			Options []SelectOption `json:"options"`
		}
		if raw := fields[string(s.Type)]; len(raw) > 0 {
			if err := json.Unmarshal(raw, &cfg); err != nil {
				return rest.NewDecodeError(s, raw, err)
			}
		}
		s.Options = cfg.Options
	}
	return nil
}

// Schema maps property names to their definitions.
type Schema map[string]PropertySchema

// BuildValue converts text to a typed value for the named property.
// Supported types: title, rich_text, number, select, multi_select
// (comma separated), status, checkbox, date, url, email and phone_number.
func (s Schema) BuildValue(name, text string) (PropertyValue, error) {
	prop, ok := s[name]
	if !ok {
		return PropertyValue{}, fmt.Errorf("%w: %q", ErrUnknownProperty, name)
	}
	return BuildPropertyValue(prop.Type, text)
}

// BuildPropertyValue converts text to a typed value of type t.
func BuildPropertyValue(t PropertyType, text string) (PropertyValue, error) {
	pv := PropertyValue{Type: t}
	switch t {
	case PropTitle:
		pv.Data = &TitleValue{RichText: Text(text)}
	case PropRichText:
		pv.Data = &RichTextValue{RichText: Text(text)}
	case PropNumber:
		if text == "" {
			pv.Data = &NumberValue{}
			break
		}
		n, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return pv, fmt.Errorf("notion: number value %q: %w", text, err)
		}
		pv.Data = &NumberValue{Number: &n}
	case PropSelect, PropStatus:
		if text == "" {
			pv.Data = &SelectValue{}
			break
		}
		pv.Data = &SelectValue{Option: &SelectOption{Name: text}}
	case PropMultiSelect:
		var opts []SelectOption
		for _, part := range strings.Split(text, ",") {
			if name := strings.TrimSpace(part); name != "" {
				opts = append(opts, SelectOption{Name: name})
			}
		}
		pv.Data = &MultiSelectValue{Options: opts}
	case PropCheckbox:
		b, err := strconv.ParseBool(text)
		if err != nil {
			return pv, fmt.Errorf("notion: checkbox value %q: %w", text, err)
		}
		pv.Data = &CheckboxValue{Checked: b}
	case PropDate:
		if text == "" {
			pv.Data = &DateValue{}
			break
		}
		pv.Data = &DateValue{Date: &DateRange{Start: text}}
	case PropURL, PropEmail, PropPhoneNumber:
		if text == "" {
			pv.Data = &StringValue{}
			break
		}
		s := text
		pv.Data = &StringValue{Value: &s}
	default:
		return pv, fmt.Errorf("%w: %s", ErrUnsupportedProperty, t)
	}
	return pv, nil
}
