// Package notation reads and prints trees as S-expressions, e.g. (mult 2 (add 3 4)).
//
// Leaves are written as:
//   - integers 42, -7 and rationals 3/4,
//   - floats containing '.' or exponent, 1.5, 2e+30, and #nan, #inf, #-inf,
//   - symbols x, velocity or quoted "x+1" if name is not an identifier,
//   - constants #pi, #e, #i and #undef,
//   - placeholders A..H, absorbing ones suffixed with '+' or '*',
//   - code points 'a'.
//
// Other nodes are written as (name child...), vertical offset stores its flags after colon, (voffset:1 x).
package notation

import (
	"math"
	"math/big"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/pkg/errors"

	"github.com/outofforest/sigma/arena"
	"github.com/outofforest/sigma/tree"
	"github.com/outofforest/sigma/types"
)

var typesByName = func() map[string]types.Type {
	m := map[string]types.Type{}
	for t, l := range types.Layouts {
		m[l.Name] = types.Type(t)
	}
	return m
}()

var constantNames = map[types.Constant]string{
	types.ConstantPi: "#pi",
	types.ConstantE:  "#e",
	types.ConstantI:  "#i",
}

// Parse parses the expression and pushes it to the arena.
func Parse(a *arena.Arena, s string) (tree.Tree, error) {
	b, err := Append(nil, s)
	if err != nil {
		return tree.Tree{}, err
	}
	offset, err := a.Push(b)
	if err != nil {
		return tree.Tree{}, err
	}
	return tree.In(a, offset), nil
}

// Literal parses the expression into immutable tree.
func Literal(s string) (tree.Tree, error) {
	b, err := Append(nil, s)
	if err != nil {
		return tree.Tree{}, err
	}
	return tree.Literal(b), nil
}

// MustLiteral parses the expression into immutable tree and panics on error.
func MustLiteral(s string) tree.Tree {
	t, err := Literal(s)
	if err != nil {
		panic(err)
	}
	return t
}

// Append parses the expression and appends its blocks to b.
func Append(b []byte, s string) ([]byte, error) {
	p := parser{input: s}
	b, err := p.parseTree(b)
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos != len(p.input) {
		return nil, p.errorf("unexpected trailing input")
	}
	return b, nil
}

type parser struct {
	input string
	pos   int
}

func (p *parser) parseTree(b []byte) ([]byte, error) {
	p.skipSpace()
	if p.pos == len(p.input) {
		return nil, p.errorf("unexpected end of input")
	}

	switch p.input[p.pos] {
	case '(':
		p.pos++
		return p.parseNode(b)
	case ')':
		return nil, p.errorf("unexpected ')'")
	case '"':
		token, err := p.quoted('"')
		if err != nil {
			return nil, err
		}
		name, err := strconv.Unquote(token)
		if err != nil {
			return nil, p.errorf("invalid symbol %s", token)
		}
		return tree.AppendSymbol(b, name)
	case '\'':
		token, err := p.quoted('\'')
		if err != nil {
			return nil, err
		}
		s, err := strconv.Unquote(token)
		if err != nil || utf8.RuneCountInString(s) != 1 {
			return nil, p.errorf("invalid code point %s", token)
		}
		r, _ := utf8.DecodeRuneInString(s)
		return tree.AppendCodePoint(b, r), nil
	default:
		return p.parseAtom(b, p.token())
	}
}

func (p *parser) parseNode(b []byte) ([]byte, error) {
	p.skipSpace()
	token := p.token()
	name, arg, hasArg := strings.Cut(token, ":")
	t, ok := typesByName[name]
	if !ok {
		return nil, p.errorf("unknown operator %q", name)
	}
	layout := types.Layouts[t]
	if !t.IsNAry() && layout.Arity == 0 {
		return nil, p.errorf("%s takes no children", name)
	}

	start := len(b)
	header := make([]byte, layout.HeaderSize)
	if hasArg {
		if t.IsNAry() || layout.HeaderSize != 1 {
			return nil, p.errorf("%s takes no argument", name)
		}
		v, err := strconv.ParseUint(arg, 10, 8)
		if err != nil {
			return nil, p.errorf("invalid argument %q of %s", arg, name)
		}
		header[0] = byte(v)
	}
	b = tree.AppendNode(b, t, header...)

	var n int
	for {
		p.skipSpace()
		if p.pos == len(p.input) {
			return nil, p.errorf("missing ')'")
		}
		if p.input[p.pos] == ')' {
			p.pos++
			break
		}
		var err error
		if b, err = p.parseTree(b); err != nil {
			return nil, err
		}
		n++
	}

	if !t.IsNAry() {
		if n != layout.Arity {
			return nil, p.errorf("%s takes %d children, %d given", name, layout.Arity, n)
		}
		return b, nil
	}
	if n > types.MaxChildren(t) {
		return nil, errors.Wrapf(types.ErrCapacityExceeded, "%d children exceed limit of %s", n, t)
	}
	encoded, size := types.EncodeNumberOfChildren(t, n)
	copy(b[start+1:], encoded[:size])
	return b, nil
}

func (p *parser) parseAtom(b []byte, token string) ([]byte, error) {
	switch {
	case token == "":
		return nil, p.errorf("unexpected %q", p.input[p.pos])
	case token[0] == '#':
		return p.parseHash(b, token)
	case isPlaceholder(token):
		filter := types.FilterOne
		if len(token) == 2 {
			filter = types.FilterOneOrMore
			if token[1] == '*' {
				filter = types.FilterZeroOrMore
			}
		}
		return tree.AppendPlaceholder(b, types.Tag(token[0]-'A'), filter), nil
	case isNumber(token):
		return p.parseNumber(b, token)
	case isIdentifier(token):
		return tree.AppendSymbol(b, token)
	default:
		return nil, p.errorf("invalid token %q", token)
	}
}

func (p *parser) parseHash(b []byte, token string) ([]byte, error) {
	for c, name := range constantNames {
		if name == token {
			return tree.AppendConstant(b, c), nil
		}
	}
	switch token {
	case "#undef":
		return tree.AppendNode(b, types.TypeUndefined), nil
	case "#nan":
		return tree.AppendFloat(b, math.NaN()), nil
	case "#inf":
		return tree.AppendFloat(b, math.Inf(1)), nil
	case "#-inf":
		return tree.AppendFloat(b, math.Inf(-1)), nil
	default:
		return nil, p.errorf("unknown constant %q", token)
	}
}

func (p *parser) parseNumber(b []byte, token string) ([]byte, error) {
	switch {
	case strings.ContainsAny(token, ".eE"):
		v, err := strconv.ParseFloat(token, 64)
		if err != nil {
			return nil, p.errorf("invalid float %q", token)
		}
		return tree.AppendFloat(b, v), nil
	case strings.Contains(token, "/"):
		v, ok := new(big.Rat).SetString(token)
		if !ok {
			return nil, p.errorf("invalid rational %q", token)
		}
		return tree.AppendRational(b, v)
	default:
		v, ok := new(big.Int).SetString(token, 10)
		if !ok {
			return nil, p.errorf("invalid integer %q", token)
		}
		return tree.AppendInteger(b, v)
	}
}

func (p *parser) skipSpace() {
	for p.pos < len(p.input) {
		r, size := utf8.DecodeRuneInString(p.input[p.pos:])
		if !unicode.IsSpace(r) {
			return
		}
		p.pos += size
	}
}

func (p *parser) token() string {
	start := p.pos
	for p.pos < len(p.input) {
		r, size := utf8.DecodeRuneInString(p.input[p.pos:])
		if unicode.IsSpace(r) || r == '(' || r == ')' {
			break
		}
		p.pos += size
	}
	return p.input[start:p.pos]
}

// quoted returns the token enclosed in quote characters, quotes included.
func (p *parser) quoted(quote byte) (string, error) {
	start := p.pos
	for i := start + 1; i < len(p.input); i++ {
		switch p.input[i] {
		case '\\':
			i++
		case quote:
			p.pos = i + 1
			return p.input[start:p.pos], nil
		}
	}
	return "", p.errorf("unterminated quote")
}

func (p *parser) errorf(format string, args ...any) error {
	return errors.Wrapf(types.ErrGeneric, "notation: at %d: "+format, append([]any{p.pos}, args...)...)
}

func isPlaceholder(token string) bool {
	if len(token) == 0 || len(token) > 2 || token[0] < 'A' || token[0] >= 'A'+byte(types.NumberOfTags) {
		return false
	}
	return len(token) == 1 || token[1] == '+' || token[1] == '*'
}

func isNumber(token string) bool {
	if token[0] == '-' {
		token = token[1:]
	}
	return token != "" && (token[0] >= '0' && token[0] <= '9' || token[0] == '.')
}

func isIdentifier(token string) bool {
	if token == "" {
		return false
	}
	for i, r := range token {
		if r != '_' && !unicode.IsLetter(r) && (i == 0 || !unicode.IsDigit(r)) {
			return false
		}
	}
	return true
}

// Format prints the tree.
func Format(t tree.Tree) string {
	var sb strings.Builder
	write(&sb, t)
	return sb.String()
}

func write(sb *strings.Builder, t tree.Tree) {
	typ := t.Type()
	switch {
	case typ.IsRational():
		v, _ := t.Rational()
		sb.WriteString(v.RatString())
	case typ == types.TypeFloat:
		sb.WriteString(formatFloat(t.Float()))
	case typ == types.TypeUserSymbol:
		name := t.Name()
		if isIdentifier(name) && !isPlaceholder(name) {
			sb.WriteString(name)
		} else {
			sb.WriteString(strconv.Quote(name))
		}
	case typ == types.TypeConstant:
		name, ok := constantNames[t.Constant()]
		if !ok {
			name = "#undef"
		}
		sb.WriteString(name)
	case typ == types.TypeUndefined:
		sb.WriteString("#undef")
	case typ == types.TypePlaceholder:
		tag, filter := t.Placeholder()
		sb.WriteString(tag.String())
		switch filter {
		case types.FilterOneOrMore:
			sb.WriteByte('+')
		case types.FilterZeroOrMore:
			sb.WriteByte('*')
		}
	case typ == types.TypeCodePointLayout:
		sb.WriteString(strconv.QuoteRune(t.CodePoint()))
	default:
		sb.WriteByte('(')
		sb.WriteString(typ.String())
		if !typ.IsNAry() && types.Layouts[typ].HeaderSize == 1 {
			sb.WriteByte(':')
			sb.WriteString(strconv.Itoa(int(t.Value(0))))
		}
		for _, child := range t.Children() {
			sb.WriteByte(' ')
			write(sb, child)
		}
		sb.WriteByte(')')
	}
}

func formatFloat(v float64) string {
	switch {
	case math.IsNaN(v):
		return "#nan"
	case math.IsInf(v, 1):
		return "#inf"
	case math.IsInf(v, -1):
		return "#-inf"
	}
	s := strconv.FormatFloat(v, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}
