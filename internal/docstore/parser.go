// Copyright (c) 2025 chatdb
// Licensed under the MIT License. See LICENSE file in the project root for details.

package docstore

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	apperr "chatdb/cli/internal/errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SyntaxError locates a problem in a document expression. Its text is what the
// model sees when it is asked to repair the expression.
type SyntaxError struct {
	Line   int
	Column int
	Msg    string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("line %d, column %d: %s", e.Line, e.Column, e.Msg)
}

// Parse turns model output into a Script. Only the closed grammar below is
// accepted; nothing is ever evaluated.
//
//	script     := batch | sequence
//	batch      := '[' operation (',' operation)* ','? ']'
//	sequence   := operation ((';' | newline) operation)*
//	operation  := 'db' collection '.' method '(' args? ')' modifier*
//	collection := '.' ident | '[' string ']' | '.getCollection(' string ')'
//	modifier   := '.' ('sort' | 'limit' | 'skip') '(' args ')'
//
// Values are JSON-like objects and arrays, quoted strings, numbers,
// true/false/null (and True/False/None), ObjectId("hex"), ISODate("...") and
// new Date("..."). '#' and '//' start comments.
func Parse(text string) (Script, error) {
	p := &parser{src: text}
	script, err := p.script()
	if err != nil {
		return Script{}, apperr.Wrap(apperr.ParseFailed, "invalid document expression", err)
	}
	return script, nil
}

type parser struct {
	src string
	pos int
}

func (p *parser) script() (Script, error) {
	p.skipSpace()
	if p.eof() {
		return Script{}, p.errorf("empty expression")
	}

	if p.peek() == '[' {
		ops, err := p.batch()
		if err != nil {
			return Script{}, err
		}
		p.skipSpace()
		if !p.eof() {
			return Script{}, p.errorf("unexpected %s after the closing ']'", p.describe())
		}
		return Script{Batch: true, Ops: ops}, nil
	}

	ops, err := p.sequence()
	if err != nil {
		return Script{}, err
	}
	return Script{Ops: ops}, nil
}

func (p *parser) batch() ([]Operation, error) {
	p.pos++ // '['
	var ops []Operation
	for {
		p.skipSpace()
		if p.peek() == ']' {
			if len(ops) == 0 {
				return nil, p.errorf("empty operation list")
			}
			p.pos++
			return ops, nil
		}
		op, err := p.operation()
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)

		p.skipSpace()
		switch p.peek() {
		case ',':
			p.pos++
		case ']':
		default:
			return nil, p.errorf("expected ',' or ']' between operations, found %s", p.describe())
		}
	}
}

func (p *parser) sequence() ([]Operation, error) {
	var ops []Operation
	for {
		op, err := p.operation()
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)

		sawNewline := p.skipSpace()
		if p.eof() {
			return ops, nil
		}
		if p.peek() == ';' {
			p.pos++
			p.skipSpace()
			if p.eof() {
				return ops, nil
			}
			continue
		}
		if !sawNewline {
			return nil, p.errorf("expected ';' or a new line after the operation, found %s", p.describe())
		}
	}
}

func (p *parser) operation() (Operation, error) {
	p.skipSpace()
	start := p.pos
	if word := p.ident(); word != "db" {
		p.pos = start
		return Operation{}, p.errorf("expected an operation starting with 'db', found %s", p.describe())
	}

	var op Operation
	name, err := p.collection()
	if err != nil {
		return Operation{}, err
	}
	op.Collection = name

	p.skipSpace()
	if err := p.expect('.'); err != nil {
		return Operation{}, err
	}
	p.skipSpace()
	methodPos := p.pos
	methodName := p.ident()
	method, ok := methodNames[methodName]
	if !ok {
		p.pos = methodPos
		if methodName == "" {
			return Operation{}, p.errorf("expected a method name, found %s", p.describe())
		}
		return Operation{}, p.errorf("unsupported method %q", methodName)
	}
	op.Method = method

	p.skipSpace()
	if err := p.expect('('); err != nil {
		return Operation{}, err
	}
	op.Args, op.Options, err = p.args(')')
	if err != nil {
		return Operation{}, err
	}

	if err := p.modifiers(&op); err != nil {
		return Operation{}, err
	}
	if err := checkArgs(&op); err != nil {
		p.pos = methodPos
		return Operation{}, p.errorf("%s", err)
	}
	return op, nil
}

func (p *parser) collection() (string, error) {
	p.skipSpace()
	switch p.peek() {
	case '[':
		p.pos++
		p.skipSpace()
		name, err := p.string()
		if err != nil {
			return "", err
		}
		p.skipSpace()
		if err := p.expect(']'); err != nil {
			return "", err
		}
		return name, p.checkCollectionName(name)
	case '.':
		p.pos++
		p.skipSpace()
		namePos := p.pos
		name := p.ident()
		if name == "" {
			return "", p.errorf("expected a collection name, found %s", p.describe())
		}
		if name != "getCollection" && name != "get_collection" {
			return name, nil
		}
		p.skipSpace()
		if err := p.expect('('); err != nil {
			return "", err
		}
		p.skipSpace()
		name, err := p.string()
		if err != nil {
			return "", err
		}
		p.skipSpace()
		if err := p.expect(')'); err != nil {
			return "", err
		}
		if name == "" {
			p.pos = namePos
		}
		return name, p.checkCollectionName(name)
	default:
		return "", p.errorf("expected '.' or '[' after 'db', found %s", p.describe())
	}
}

func (p *parser) checkCollectionName(name string) error {
	if strings.TrimSpace(name) == "" {
		return p.errorf("empty collection name")
	}
	return nil
}

func (p *parser) modifiers(op *Operation) error {
	for {
		save := p.pos
		p.skipSpace()
		if p.peek() != '.' {
			p.pos = save
			return nil
		}
		p.pos++
		p.skipSpace()
		namePos := p.pos
		name := p.ident()
		switch name {
		case "sort", "limit", "skip":
		default:
			p.pos = namePos
			return p.errorf("unsupported cursor method %q (use sort, limit or skip)", name)
		}
		if op.Method != MethodFind {
			p.pos = namePos
			return p.errorf("%s() can only follow find(), not %s()", name, op.Method)
		}
		p.skipSpace()
		if err := p.expect('('); err != nil {
			return err
		}
		args, _, err := p.args(')')
		if err != nil {
			return err
		}
		if err := applyModifier(op, name, args); err != nil {
			p.pos = namePos
			return p.errorf("%s", err)
		}
	}
}

// args parses a comma separated argument list up to close. Python-style
// keyword arguments (upsert=True) go into the options map.
func (p *parser) args(closing byte) ([]any, map[string]any, error) {
	var vals []any
	var opts map[string]any
	p.skipSpace()
	if p.peek() == closing {
		p.pos++
		return vals, opts, nil
	}
	for {
		p.skipSpace()
		if isIdentStart(p.peek()) {
			save := p.pos
			name := p.ident()
			p.skipSpace()
			if p.peek() == '=' && p.peekAt(1) != '=' {
				p.pos++
				v, err := p.value()
				if err != nil {
					return nil, nil, err
				}
				if opts == nil {
					opts = make(map[string]any)
				}
				opts[name] = v
				goto next
			}
			p.pos = save
		}
		{
			v, err := p.value()
			if err != nil {
				return nil, nil, err
			}
			vals = append(vals, v)
		}
	next:
		p.skipSpace()
		switch p.peek() {
		case ',':
			p.pos++
			p.skipSpace()
			if p.peek() == closing {
				p.pos++
				return vals, opts, nil
			}
		case closing:
			p.pos++
			return vals, opts, nil
		default:
			return nil, nil, p.errorf("expected ',' or '%c', found %s", closing, p.describe())
		}
	}
}

func (p *parser) value() (any, error) {
	p.skipSpace()
	c := p.peek()
	switch {
	case c == '{':
		return p.object()
	case c == '[':
		return p.array()
	case c == '"' || c == '\'':
		return p.string()
	case c == '-' || c == '+' || c == '.' || isDigit(c):
		return p.number()
	case isIdentStart(c):
		start := p.pos
		word := p.ident()
		switch word {
		case "true", "True":
			return true, nil
		case "false", "False":
			return false, nil
		case "null", "None", "undefined":
			return nil, nil
		case "new":
			p.skipSpace()
			ctorPos := p.pos
			ctor := p.ident()
			if !isConstructor(ctor) {
				p.pos = ctorPos
				return nil, p.errorf("unsupported constructor %q", ctor)
			}
			return p.construct(ctor, ctorPos)
		}
		if isConstructor(word) {
			return p.construct(word, start)
		}
		p.pos = start
		return nil, p.errorf("unexpected identifier %q (strings must be quoted)", word)
	case p.eof():
		return nil, p.errorf("unexpected end of expression, expected a value")
	default:
		return nil, p.errorf("unexpected %s, expected a value", p.describe())
	}
}

func (p *parser) object() (bson.D, error) {
	p.pos++ // '{'
	doc := bson.D{}
	p.skipSpace()
	if p.peek() == '}' {
		p.pos++
		return doc, nil
	}
	for {
		p.skipSpace()
		var key string
		switch c := p.peek(); {
		case c == '"' || c == '\'':
			k, err := p.string()
			if err != nil {
				return nil, err
			}
			key = k
		case isIdentStart(c):
			key = p.ident()
		default:
			return nil, p.errorf("expected a field name, found %s", p.describe())
		}

		p.skipSpace()
		if err := p.expect(':'); err != nil {
			return nil, err
		}
		v, err := p.value()
		if err != nil {
			return nil, err
		}
		doc = append(doc, bson.E{Key: key, Value: v})

		p.skipSpace()
		switch p.peek() {
		case ',':
			p.pos++
			p.skipSpace()
			if p.peek() == '}' {
				p.pos++
				return doc, nil
			}
		case '}':
			p.pos++
			return doc, nil
		default:
			return nil, p.errorf("expected ',' or '}' in object, found %s", p.describe())
		}
	}
}

func (p *parser) array() (bson.A, error) {
	p.pos++ // '['
	arr := bson.A{}
	p.skipSpace()
	if p.peek() == ']' {
		p.pos++
		return arr, nil
	}
	for {
		v, err := p.value()
		if err != nil {
			return nil, err
		}
		arr = append(arr, v)

		p.skipSpace()
		switch p.peek() {
		case ',':
			p.pos++
			p.skipSpace()
			if p.peek() == ']' {
				p.pos++
				return arr, nil
			}
		case ']':
			p.pos++
			return arr, nil
		default:
			return nil, p.errorf("expected ',' or ']' in list, found %s", p.describe())
		}
	}
}

func (p *parser) string() (string, error) {
	quote := p.peek()
	if quote != '"' && quote != '\'' {
		return "", p.errorf("expected a quoted string, found %s", p.describe())
	}
	start := p.pos
	p.pos++
	var b strings.Builder
	for {
		if p.eof() {
			p.pos = start
			return "", p.errorf("unterminated string")
		}
		c := p.src[p.pos]
		switch {
		case c == quote:
			p.pos++
			return b.String(), nil
		case c == '\\':
			p.pos++
			if p.eof() {
				p.pos = start
				return "", p.errorf("unterminated string")
			}
			e := p.src[p.pos]
			switch e {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case 'r':
				b.WriteByte('\r')
			case 'b':
				b.WriteByte('\b')
			case 'f':
				b.WriteByte('\f')
			case 'u':
				if p.pos+4 >= len(p.src) {
					return "", p.errorf("invalid \\u escape")
				}
				r, err := strconv.ParseUint(p.src[p.pos+1:p.pos+5], 16, 32)
				if err != nil {
					return "", p.errorf("invalid \\u escape")
				}
				b.WriteRune(rune(r))
				p.pos += 4
			default:
				b.WriteByte(e)
			}
			p.pos++
		default:
			b.WriteByte(c)
			p.pos++
		}
	}
}

func (p *parser) number() (any, error) {
	start := p.pos
	if c := p.peek(); c == '-' || c == '+' {
		p.pos++
	}
	digits := 0
	isFloat := false
	for !p.eof() {
		c := p.src[p.pos]
		switch {
		case isDigit(c):
			digits++
		case c == '.' && !isFloat:
			isFloat = true
		case (c == 'e' || c == 'E') && digits > 0:
			isFloat = true
			if n := p.peekAt(1); n == '-' || n == '+' {
				p.pos++
			}
		default:
			goto done
		}
		p.pos++
	}
done:
	text := p.src[start:p.pos]
	if digits == 0 {
		p.pos = start
		return nil, p.errorf("invalid number %q", text)
	}
	if !isFloat {
		if n, err := strconv.ParseInt(text, 10, 64); err == nil {
			if n >= -1<<31 && n < 1<<31 {
				return int32(n), nil
			}
			return n, nil
		}
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		p.pos = start
		return nil, p.errorf("invalid number %q", text)
	}
	return f, nil
}

func isConstructor(name string) bool {
	switch name {
	case "ObjectId", "ObjectID", "ISODate", "Date", "NumberLong", "NumberInt", "NumberDouble":
		return true
	}
	return false
}

func (p *parser) construct(name string, at int) (any, error) {
	p.skipSpace()
	if err := p.expect('('); err != nil {
		return nil, err
	}
	args, _, err := p.args(')')
	if err != nil {
		return nil, err
	}
	v, cerr := construct(name, args)
	if cerr != nil {
		p.pos = at
		return nil, p.errorf("%s", cerr)
	}
	return v, nil
}

func construct(name string, args []any) (any, error) {
	if len(args) > 1 {
		return nil, fmt.Errorf("%s() takes at most one argument", name)
	}
	switch name {
	case "ObjectId", "ObjectID":
		if len(args) == 0 {
			return primitive.NewObjectID(), nil
		}
		hex, ok := args[0].(string)
		if !ok {
			return nil, fmt.Errorf("ObjectId() expects a hex string")
		}
		id, err := primitive.ObjectIDFromHex(hex)
		if err != nil {
			return nil, fmt.Errorf("invalid ObjectId %q: %v", hex, err)
		}
		return id, nil
	case "ISODate", "Date":
		if len(args) == 0 {
			return primitive.NewDateTimeFromTime(time.Now()), nil
		}
		switch v := args[0].(type) {
		case string:
			t, err := parseTime(v)
			if err != nil {
				return nil, err
			}
			return primitive.NewDateTimeFromTime(t), nil
		case int32:
			return primitive.DateTime(v), nil
		case int64:
			return primitive.DateTime(v), nil
		}
		return nil, fmt.Errorf("%s() expects a date string", name)
	case "NumberLong", "NumberInt", "NumberDouble":
		if len(args) == 0 {
			return nil, fmt.Errorf("%s() expects a number", name)
		}
		f, ok := toFloat(args[0])
		if !ok {
			return nil, fmt.Errorf("%s() expects a number", name)
		}
		switch name {
		case "NumberLong":
			return int64(f), nil
		case "NumberInt":
			return int32(f), nil
		}
		return f, nil
	}
	return nil, fmt.Errorf("unsupported constructor %q", name)
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

func parseTime(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q (use ISO 8601, e.g. 2024-01-31T00:00:00Z)", s)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	}
	return 0, false
}

// skipSpace skips whitespace and comments and reports whether a newline was
// crossed.
func (p *parser) skipSpace() bool {
	sawNewline := false
	for !p.eof() {
		c := p.src[p.pos]
		switch {
		case c == '\n':
			sawNewline = true
			p.pos++
		case c == ' ' || c == '\t' || c == '\r':
			p.pos++
		case c == '#' || (c == '/' && p.peekAt(1) == '/'):
			for !p.eof() && p.src[p.pos] != '\n' {
				p.pos++
			}
		default:
			return sawNewline
		}
	}
	return sawNewline
}

func (p *parser) ident() string {
	start := p.pos
	if p.eof() || !isIdentStart(p.src[p.pos]) {
		return ""
	}
	for !p.eof() && isIdentPart(p.src[p.pos]) {
		p.pos++
	}
	return p.src[start:p.pos]
}

func (p *parser) expect(c byte) error {
	if p.peek() != c {
		return p.errorf("expected '%c', found %s", c, p.describe())
	}
	p.pos++
	return nil
}

func (p *parser) eof() bool { return p.pos >= len(p.src) }

func (p *parser) peek() byte {
	if p.eof() {
		return 0
	}
	return p.src[p.pos]
}

func (p *parser) peekAt(offset int) byte {
	if p.pos+offset >= len(p.src) {
		return 0
	}
	return p.src[p.pos+offset]
}

// describe names the token at the current position for error messages.
func (p *parser) describe() string {
	if p.eof() {
		return "end of expression"
	}
	r, _ := utf8.DecodeRuneInString(p.src[p.pos:])
	if r == '\n' {
		return "new line"
	}
	return strconv.QuoteRune(r)
}

func (p *parser) errorf(format string, args ...any) error {
	line, col := 1, 1
	for i := 0; i < p.pos && i < len(p.src); i++ {
		if p.src[i] == '\n' {
			line++
			col = 1
		} else {
			col++
		}
	}
	return &SyntaxError{Line: line, Column: col, Msg: fmt.Sprintf(format, args...)}
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isIdentStart(c byte) bool {
	return c == '_' || c == '$' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool { return isIdentStart(c) || isDigit(c) }
