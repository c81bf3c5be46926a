package rules

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Env supplies field values and the clock to a condition.
type Env struct {
	Fields map[string]Value
	Now    time.Time
}

// Node is a typed condition tree node.
type Node interface {
	Eval(env *Env) (Value, error)
}

// Condition is a parsed rule condition.
type Condition struct {
	root   Node
	fields []string
	source string
}

// Fields lists the record fields the condition reads, sorted.
func (c *Condition) Fields() []string { return c.fields }

func (c *Condition) String() string { return c.source }

// Match evaluates the condition against one record.
func (c *Condition) Match(env *Env) (bool, error) {
	v, err := c.root.Eval(env)
	if err != nil {
		return false, err
	}
	return truthy(v)
}

type (
	orNode  struct{ left, right Node }
	andNode struct{ left, right Node }
	notNode struct{ operand Node }
	cmpNode struct {
		op          string
		left, right Node
	}
	literalNode struct{ value Value }
	fieldNode   struct{ name string }
	callNode    struct {
		name string
		args []Node
	}
)

func (n orNode) Eval(env *Env) (Value, error) {
	l, err := evalBool(n.left, env)
	if err != nil || l {
		return Bool(l), err
	}
	r, err := evalBool(n.right, env)
	return Bool(r), err
}

func (n andNode) Eval(env *Env) (Value, error) {
	l, err := evalBool(n.left, env)
	if err != nil || !l {
		return Bool(false), err
	}
	r, err := evalBool(n.right, env)
	return Bool(r), err
}

func (n notNode) Eval(env *Env) (Value, error) {
	v, err := evalBool(n.operand, env)
	return Bool(!v), err
}

func evalBool(n Node, env *Env) (bool, error) {
	v, err := n.Eval(env)
	if err != nil {
		return false, err
	}
	b, err := truthy(v)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrTypeMismatch, err)
	}
	return b, nil
}

func (n cmpNode) Eval(env *Env) (Value, error) {
	l, err := n.left.Eval(env)
	if err != nil {
		return Null(), err
	}
	r, err := n.right.Eval(env)
	if err != nil {
		return Null(), err
	}

	if l.IsNull() || r.IsNull() {
		switch n.op {
		case "==":
			return Bool(l.IsNull() && r.IsNull()), nil
		case "!=":
			return Bool(l.IsNull() != r.IsNull()), nil
		default:
			return Bool(false), nil
		}
	}

	l, r, err = coerce(l, r)
	if err != nil {
		return Null(), fmt.Errorf("%w: %v", ErrTypeMismatch, err)
	}

	if n.op == "==" || n.op == "!=" {
		eq := equal(l, r)
		return Bool(eq == (n.op == "==")), nil
	}

	c, err := compare(l, r)
	if err != nil {
		return Null(), fmt.Errorf("%w: %s does not support %s", ErrTypeMismatch, l.Kind, n.op)
	}
	switch n.op {
	case "<":
		return Bool(c < 0), nil
	case "<=":
		return Bool(c <= 0), nil
	case ">":
		return Bool(c > 0), nil
	default:
		return Bool(c >= 0), nil
	}
}

func equal(a, b Value) bool {
	switch a.Kind {
	case KindBool:
		return a.b == b.b
	case KindNumber:
		return a.n == b.n
	case KindString:
		return a.s == b.s
	case KindTime:
		return a.t.Equal(b.t)
	default:
		return true
	}
}

func (n literalNode) Eval(*Env) (Value, error) { return n.value, nil }

func (n fieldNode) Eval(env *Env) (Value, error) {
	v, ok := env.Fields[n.name]
	if !ok {
		return Null(), fmt.Errorf("%w: %s", ErrUnknownField, n.name)
	}
	return v, nil
}

func (n callNode) Eval(env *Env) (Value, error) {
	switch n.name {
	case "today":
		y, m, d := env.Now.Date()
		return Time(time.Date(y, m, d, 0, 0, 0, 0, env.Now.Location())), nil
	case "now":
		return Time(env.Now), nil
	case "add_days":
		base, err := n.args[0].Eval(env)
		if err != nil {
			return Null(), err
		}
		days, err := n.args[1].Eval(env)
		if err != nil {
			return Null(), err
		}
		if base.IsNull() {
			return Null(), nil
		}
		if base.Kind == KindString {
			if t, ok := parseTime(base.s); ok {
				base = Time(t)
			}
		}
		if base.Kind != KindTime || days.Kind != KindNumber {
			return Null(), fmt.Errorf("%w: add_days(%s, %s)", ErrTypeMismatch, base.Kind, days.Kind)
		}
		return Time(base.t.AddDate(0, 0, int(days.n))), nil
	default:
		return Null(), fmt.Errorf("%w: %s", ErrUnknownFunction, n.name)
	}
}

// functionArity whitelists the callable functions.
var functionArity = map[string]int{
	"today":    0,
	"now":      0,
	"add_days": 2,
}

// Parse compiles a condition. Grammar:
//
//	or      := and ("or" and)*
//	and     := not ("and" not)*
//	not     := "not" not | cmp
//	cmp     := operand [op operand]
//	operand := number | string | true | false | null | ident | ident "(" args ")" | "(" or ")"
func Parse(src string) (*Condition, error) {
	if strings.TrimSpace(src) == "" {
		return nil, fmt.Errorf("%w: empty condition", ErrSyntax)
	}
	toks, err := lex(src)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks, fields: map[string]struct{}{}}
	root, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.peek().kind != tokEOF {
		return nil, fmt.Errorf("%w: unexpected %s", ErrSyntax, p.peek())
	}

	fields := make([]string, 0, len(p.fields))
	for f := range p.fields {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return &Condition{root: root, fields: fields, source: src}, nil
}

type parser struct {
	toks   []token
	pos    int
	fields map[string]struct{}
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) keyword(word string) bool {
	t := p.peek()
	if t.kind == tokIdent && strings.EqualFold(t.text, word) {
		p.pos++
		return true
	}
	return false
}

func (p *parser) parseOr() (Node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.keyword("or") {
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = orNode{left, right}
	}
	return left, nil
}

func (p *parser) parseAnd() (Node, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.keyword("and") {
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = andNode{left, right}
	}
	return left, nil
}

func (p *parser) parseNot() (Node, error) {
	if p.keyword("not") {
		operand, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return notNode{operand}, nil
	}
	return p.parseCmp()
}

func (p *parser) parseCmp() (Node, error) {
	left, err := p.parseOperand()
	if err != nil {
		return nil, err
	}
	if p.peek().kind != tokOp {
		return left, nil
	}
	op := p.next().text
	right, err := p.parseOperand()
	if err != nil {
		return nil, err
	}
	return cmpNode{op: op, left: left, right: right}, nil
}

func (p *parser) parseOperand() (Node, error) {
	t := p.next()
	switch t.kind {
	case tokNumber:
		n, err := strconv.ParseFloat(t.text, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: bad number %s", ErrSyntax, t)
		}
		return literalNode{Number(n)}, nil
	case tokString:
		return literalNode{String(t.text)}, nil
	case tokLParen:
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.next().kind != tokRParen {
			return nil, fmt.Errorf("%w: missing ')' for %s", ErrSyntax, t)
		}
		return inner, nil
	case tokIdent:
		return p.parseIdent(t)
	default:
		return nil, fmt.Errorf("%w: unexpected %s", ErrSyntax, t)
	}
}

func (p *parser) parseIdent(t token) (Node, error) {
	lower := strings.ToLower(t.text)
	switch lower {
	case "true", "false":
		return literalNode{Bool(lower == "true")}, nil
	case "null", "none":
		return literalNode{Null()}, nil
	case "and", "or", "not":
		return nil, fmt.Errorf("%w: unexpected %s", ErrSyntax, t)
	}

	if p.peek().kind != tokLParen {
		p.fields[t.text] = struct{}{}
		return fieldNode{name: t.text}, nil
	}

	arity, ok := functionArity[lower]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFunction, t.text)
	}
	p.next() // (
	var args []Node
	if p.peek().kind != tokRParen {
		for {
			arg, err := p.parseOr()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if p.peek().kind != tokComma {
				break
			}
			p.next()
		}
	}
	if p.next().kind != tokRParen {
		return nil, fmt.Errorf("%w: missing ')' after arguments of %s", ErrSyntax, t.text)
	}
	if len(args) != arity {
		return nil, fmt.Errorf("%w: %s takes %d arguments, got %d", ErrSyntax, t.text, arity, len(args))
	}
	return callNode{name: lower, args: args}, nil
}
