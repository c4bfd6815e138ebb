package notion

import (
	"fmt"
	"strconv"
	"strings"
)

// Filter expressions
//
//	expr := and ( OR and )*
//	and  := term ( AND term )*
//	term := "(" expr ")" | cond
//	cond := prop op value | prop "is empty" | prop "is not empty"
//	op   := "=" | "!=" | ">" | ">=" | "<" | "<=" | "~" | "!~"
//
// Keywords are case-insensitive; "&&" and "||" may be used for AND and OR.
// Property names and values are either double-quoted strings or runs of
// bare words (a value ends at AND, OR, ")" or the end of input). "~" means
// contains and "!~" does not contain.

// filterNode is a parsed filter expression.
type filterNode interface {
	pos() int
}

type boolNode struct {
	op    string // "and" or "or"
	terms []filterNode
	at    int
}

type condNode struct {
	prop  string
	op    string // one of the operators, "empty" or "not_empty"
	value string
	at    int // offset of the property name
	valAt int // offset of the value
}

func (n *boolNode) pos() int { return n.at }
func (n *condNode) pos() int { return n.at }

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokWord
	tokString
	tokOp
	tokLParen
	tokRParen
	tokAnd
	tokOr
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

// keyword reports whether a bare word equals kw, ignoring case.
func (t token) keyword(kw string) bool {
	return t.kind == tokWord && strings.EqualFold(t.text, kw)
}

func lexFilter(input string) ([]token, error) {
	var toks []token
	i := 0
	for i < len(input) {
		c := input[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == '(':
			toks = append(toks, token{tokLParen, "(", i})
			i++
		case c == ')':
			toks = append(toks, token{tokRParen, ")", i})
			i++
		case c == '"':
			start := i
			var b strings.Builder
			i++
			closed := false
			for i < len(input) {
				if input[i] == '\\' && i+1 < len(input) {
					b.WriteByte(input[i+1])
					i += 2
					continue
				}
				if input[i] == '"' {
					closed = true
					i++
					break
				}
				b.WriteByte(input[i])
				i++
			}
			if !closed {
				return nil, &FilterError{Pos: start, Msg: "unterminated quoted string"}
			}
			toks = append(toks, token{tokString, b.String(), start})
		case strings.HasPrefix(input[i:], "&&"):
			toks = append(toks, token{tokAnd, "&&", i})
			i += 2
		case strings.HasPrefix(input[i:], "||"):
			toks = append(toks, token{tokOr, "||", i})
			i += 2
		case isOpStart(c):
			op := string(c)
			if i+1 < len(input) {
				two := input[i : i+2]
				if two == "!=" || two == ">=" || two == "<=" || two == "!~" {
					op = two
				}
			}
			if op == "!" {
				return nil, &FilterError{Pos: i, Msg: `unexpected "!"`}
			}
			toks = append(toks, token{tokOp, op, i})
			i += len(op)
		default:
			start := i
			for i < len(input) && !isWordBreak(input[i]) {
				i++
			}
			if i == start {
				return nil, &FilterError{Pos: start, Msg: fmt.Sprintf("unexpected %q", input[start])}
			}
			word := input[start:i]
			kind := tokWord
			switch strings.ToUpper(word) {
			case "AND":
				kind = tokAnd
			case "OR":
				kind = tokOr
			}
			toks = append(toks, token{kind, word, start})
		}
	}
	toks = append(toks, token{tokEOF, "", len(input)})
	return toks, nil
}

func isOpStart(c byte) bool {
	return c == '=' || c == '!' || c == '>' || c == '<' || c == '~'
}

func isWordBreak(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '(' || c == ')' || c == '"' || isOpStart(c) ||
		c == '&' || c == '|'
}

type filterParser struct {
	toks []token
	i    int
}

func (p *filterParser) peek() token { return p.toks[p.i] }

func (p *filterParser) next() token {
	t := p.toks[p.i]
	if t.kind != tokEOF {
		p.i++
	}
	return t
}

func (p *filterParser) parseExpr() (filterNode, error) {
	first, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	terms := []filterNode{first}
	for p.peek().kind == tokOr {
		p.next()
		t, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		terms = append(terms, t)
	}
	if len(terms) == 1 {
		return first, nil
	}
	return &boolNode{op: "or", terms: terms, at: first.pos()}, nil
}

func (p *filterParser) parseAnd() (filterNode, error) {
	first, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	terms := []filterNode{first}
	for p.peek().kind == tokAnd {
		p.next()
		t, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		terms = append(terms, t)
	}
	if len(terms) == 1 {
		return first, nil
	}
	return &boolNode{op: "and", terms: terms, at: first.pos()}, nil
}

func (p *filterParser) parseTerm() (filterNode, error) {
	t := p.peek()
	if t.kind == tokLParen {
		p.next()
		n, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if closing := p.next(); closing.kind != tokRParen {
			return nil, &FilterError{Pos: closing.pos, Msg: `expected ")"`}
		}
		return n, nil
	}
	return p.parseCond()
}

func (p *filterParser) parseCond() (filterNode, error) {
	start := p.peek()
	name, err := p.parseName()
	if err != nil {
		return nil, err
	}
	cond := &condNode{prop: name, at: start.pos}

	t := p.peek()
	switch {
	case t.kind == tokOp:
		p.next()
		cond.op = t.text
		valTok := p.peek()
		value, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		cond.value, cond.valAt = value, valTok.pos
		return cond, nil

	case t.keyword("is"):
		p.next()
		cond.op = "empty"
		if p.peek().keyword("not") {
			p.next()
			cond.op = "not_empty"
		}
		if e := p.next(); !e.keyword("empty") {
			return nil, &FilterError{Pos: e.pos, Msg: `expected "empty" after "is"`}
		}
		return cond, nil

	default:
		return nil, &FilterError{Pos: t.pos, Msg: fmt.Sprintf("expected an operator after %q", name)}
	}
}

// parseName reads a quoted name or bare words up to an operator or "is".
func (p *filterParser) parseName() (string, error) {
	t := p.peek()
	if t.kind == tokString {
		p.next()
		return t.text, nil
	}
	var words []string
	for {
		t = p.peek()
		if t.kind != tokWord || t.keyword("is") && len(words) > 0 {
			break
		}
		words = append(words, p.next().text)
	}
	if len(words) == 0 {
		return "", &FilterError{Pos: t.pos, Msg: "expected a property name"}
	}
	return strings.Join(words, " "), nil
}

// parseValue reads a quoted value or bare words up to AND, OR, ")" or EOF.
func (p *filterParser) parseValue() (string, error) {
	t := p.peek()
	if t.kind == tokString {
		p.next()
		return t.text, nil
	}
	var words []string
	for p.peek().kind == tokWord {
		words = append(words, p.next().text)
	}
	if len(words) == 0 {
		return "", &FilterError{Pos: t.pos, Msg: "expected a value"}
	}
	return strings.Join(words, " "), nil
}

// ParseFilter parses a filter expression and translates it into a Notion
// filter object using the property types in schema.
func ParseFilter(expr string, schema Schema) (map[string]any, error) {
	if strings.TrimSpace(expr) == "" {
		return nil, ErrEmptyFilter
	}
	toks, err := lexFilter(expr)
	if err != nil {
		return nil, err
	}
	p := &filterParser{toks: toks}
	node, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.kind != tokEOF {
		return nil, &FilterError{Pos: t.pos, Msg: fmt.Sprintf("unexpected %q", t.text)}
	}
	return translate(node, schema)
}

func translate(n filterNode, schema Schema) (map[string]any, error) {
	switch n := n.(type) {
	case *boolNode:
		parts := make([]any, 0, len(n.terms))
		for _, t := range n.terms {
			f, err := translate(t, schema)
			if err != nil {
				return nil, err
			}
			parts = append(parts, f)
		}
		return map[string]any{n.op: parts}, nil
	case *condNode:
		return translateCond(n, schema)
	default:
		return nil, fmt.Errorf("notion: unknown filter node %T", n)
	}
}

// Condition names per operator and property family.
var (
	textConditions = map[string]string{
		"=": "equals", "!=": "does_not_equal", "~": "contains", "!~": "does_not_contain",
	}
	numberConditions = map[string]string{
		"=": "equals", "!=": "does_not_equal",
		">": "greater_than", ">=": "greater_than_or_equal_to",
		"<": "less_than", "<=": "less_than_or_equal_to",
	}
	selectConditions = map[string]string{
		"=": "equals", "!=": "does_not_equal",
	}
	listConditions = map[string]string{
		"=": "contains", "~": "contains", "!=": "does_not_contain", "!~": "does_not_contain",
	}
	dateConditions = map[string]string{
		"=": "equals", ">": "after", ">=": "on_or_after", "<": "before", "<=": "on_or_before",
	}
	checkboxConditions = map[string]string{
		"=": "equals", "!=": "does_not_equal",
	}
)

func translateCond(c *condNode, schema Schema) (map[string]any, error) {
	prop, ok := schema[c.prop]
	if !ok {
		return nil, &FilterError{Pos: c.at, Msg: fmt.Sprintf("unknown property %q", c.prop), Err: ErrUnknownProperty}
	}

	var conditions map[string]string
	emptyAllowed := true
	switch prop.Type {
	case PropTitle, PropRichText, PropURL, PropEmail, PropPhoneNumber:
		conditions = textConditions
	case PropNumber, PropUniqueID:
		conditions = numberConditions
		emptyAllowed = prop.Type == PropNumber
	case PropSelect, PropStatus:
		conditions = selectConditions
	case PropMultiSelect, PropPeople, PropRelation:
		conditions = listConditions
	case PropDate, PropCreatedTime, PropLastEditedTime:
		conditions = dateConditions
		emptyAllowed = prop.Type == PropDate
	case PropCheckbox:
		conditions = checkboxConditions
		emptyAllowed = false
	default:
		return nil, &FilterError{
			Pos: c.at,
			Msg: fmt.Sprintf("property %q has unsupported type %s", c.prop, prop.Type),
			Err: ErrUnsupportedProperty,
		}
	}

	var condition string
	var value any = true
	switch c.op {
	case "empty", "not_empty":
		if !emptyAllowed {
			return nil, &FilterError{Pos: c.at, Msg: fmt.Sprintf("%s property %q cannot be tested for emptiness", prop.Type, c.prop)}
		}
		condition = map[string]string{"empty": "is_empty", "not_empty": "is_not_empty"}[c.op]
	default:
		name, ok := conditions[c.op]
		if !ok {
			return nil, &FilterError{Pos: c.at, Msg: fmt.Sprintf("operator %q is not supported for %s property %q", c.op, prop.Type, c.prop)}
		}
		condition = name
		v, err := filterValue(prop.Type, c.value)
		if err != nil {
			return nil, &FilterError{Pos: c.valAt, Msg: err.Error()}
		}
		value = v
	}

	return map[string]any{
		"property":        c.prop,
		string(prop.Type): map[string]any{condition: value},
	}, nil
}

func filterValue(t PropertyType, raw string) (any, error) {
	switch t {
	case PropNumber, PropUniqueID:
		n, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("%q is not a number", raw)
		}
		return n, nil
	case PropCheckbox:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("%q is not a boolean", raw)
		}
		return b, nil
	default:
		return raw, nil
	}
}
