package flow

import (
	"fmt"
	"strconv"
	"strings"
)

type Parser struct {
	tokens []Token
	pos    int
}

// Compile tokenizes and parses a whole module.
func Compile(source string) (*Program, error) {
	tokens, err := Tokenize(source)
	if err != nil {
		return nil, err
	}
	return NewParser(tokens).Parse()
}

func NewParser(tokens []Token) *Parser {
	return &Parser{tokens: tokens}
}

func (p *Parser) Parse() (*Program, error) {
	prog := &Program{index: make(map[string]*Func)}

	for p.peek().Type != EOF {
		f, err := p.parseFunc()
		if err != nil {
			return nil, err
		}
		if _, dup := prog.index[f.Name]; dup {
			return nil, fmt.Errorf("line %d: duplicate function %s", f.Line, f.Name)
		}
		prog.index[f.Name] = f
		prog.Funcs = append(prog.Funcs, f)
	}

	return prog, nil
}

func (p *Parser) peek() *Token {
	if p.pos >= len(p.tokens) {
		return &p.tokens[len(p.tokens)-1]
	}
	return &p.tokens[p.pos]
}

func (p *Parser) next() *Token {
	t := p.peek()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	return t
}

func (p *Parser) is(value string) bool {
	t := p.peek()
	return (t.Type == Punct || t.Type == Ident) && t.Value == value
}

func (p *Parser) accept(value string) bool {
	if p.is(value) {
		p.pos++
		return true
	}
	return false
}

func (p *Parser) expect(value string) error {
	t := p.next()
	if (t.Type != Punct && t.Type != Ident) || t.Value != value {
		return fmt.Errorf("line %d: expected %q, got %s", t.Line, value, describe(t))
	}
	return nil
}

func (p *Parser) ident() (*Token, error) {
	t := p.next()
	if t.Type != Ident {
		return nil, fmt.Errorf("line %d: expected identifier, got %s", t.Line, describe(t))
	}
	return t, nil
}

func describe(t *Token) string {
	if t.Type == EOF {
		return "end of input"
	}
	return strconv.Quote(t.Value)
}

func (p *Parser) parseFunc() (*Func, error) {
	if err := p.expect("func"); err != nil {
		return nil, err
	}
	name, err := p.ident()
	if err != nil {
		return nil, err
	}
	f := &Func{Name: name.Value, Line: name.Line, Return: "void"}

	if err := p.expect("("); err != nil {
		return nil, err
	}
	for !p.is(")") {
		if len(f.Params) > 0 {
			if err := p.expect(","); err != nil {
				return nil, err
			}
		}
		pname, err := p.ident()
		if err != nil {
			return nil, err
		}
		if err := p.expect(":"); err != nil {
			return nil, err
		}
		ptype, err := p.parseType()
		if err != nil {
			return nil, err
		}
		f.Params = append(f.Params, Param{Name: pname.Value, Type: ptype})
	}
	p.next()

	if p.accept("->") {
		ret, err := p.parseType()
		if err != nil {
			return nil, err
		}
		f.Return = ret
	}

	f.Body, err = p.parseBlock()
	if err != nil {
		return nil, err
	}
	return f, nil
}

// parseType accepts a named type or an array type written [T].
func (p *Parser) parseType() (string, error) {
	if p.accept("[") {
		elem, err := p.parseType()
		if err != nil {
			return "", err
		}
		if err := p.expect("]"); err != nil {
			return "", err
		}
		return "[" + elem + "]", nil
	}
	t, err := p.ident()
	if err != nil {
		return "", err
	}
	return t.Value, nil
}

func (p *Parser) parseBlock() ([]Stmt, error) {
	if err := p.expect("{"); err != nil {
		return nil, err
	}
	var body []Stmt
	for !p.accept("}") {
		if p.peek().Type == EOF {
			return nil, fmt.Errorf("line %d: unterminated block", p.peek().Line)
		}
		s, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		body = append(body, s)
	}
	return body, nil
}

func (p *Parser) parseStmt() (Stmt, error) {
	switch {
	case p.accept("let"):
		p.accept("mut")
		name, err := p.ident()
		if err != nil {
			return nil, err
		}
		if p.accept(":") {
			if _, err := p.parseType(); err != nil {
				return nil, err
			}
		}
		if err := p.expect("="); err != nil {
			return nil, err
		}
		value, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		return &LetStmt{Name: name.Value, Value: value}, p.expect(";")

	case p.accept("return"):
		if p.accept(";") {
			return &ReturnStmt{}, nil
		}
		value, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		return &ReturnStmt{Value: value}, p.expect(";")

	case p.accept("if"):
		return p.parseIf()

	case p.accept("while"):
		cond, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		body, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		return &WhileStmt{Cond: cond, Body: body}, nil
	}

	t := p.peek()
	if t.Type == Ident && p.pos+1 < len(p.tokens) && p.tokens[p.pos+1].Value == "=" {
		p.pos += 2
		value, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		return &AssignStmt{Name: t.Value, Value: value, Line: t.Line}, p.expect(";")
	}

	x, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	return &ExprStmt{X: x}, p.expect(";")
}

func (p *Parser) parseIf() (Stmt, error) {
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	then, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	s := &IfStmt{Cond: cond, Then: then}
	if p.accept("else") {
		if p.accept("if") {
			nested, err := p.parseIf()
			if err != nil {
				return nil, err
			}
			s.Else = []Stmt{nested}
		} else if s.Else, err = p.parseBlock(); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// binary operator precedence, loosest first
var precedence = [][]string{
	{"||"},
	{"&&"},
	{"==", "!="},
	{"<", "<=", ">", ">="},
	{"+", "-"},
	{"*", "/", "%"},
}

func (p *Parser) parseExpr() (Expr, error) {
	return p.parseBinary(0)
}

func (p *Parser) parseBinary(level int) (Expr, error) {
	if level == len(precedence) {
		return p.parseUnary()
	}
	left, err := p.parseBinary(level + 1)
	if err != nil {
		return nil, err
	}
	for {
		op, ok := p.matchOp(precedence[level])
		if !ok {
			return left, nil
		}
		right, err := p.parseBinary(level + 1)
		if err != nil {
			return nil, err
		}
		left = &Binary{Op: op, L: left, R: right}
	}
}

func (p *Parser) matchOp(ops []string) (string, bool) {
	t := p.peek()
	if t.Type != Punct {
		return "", false
	}
	for _, op := range ops {
		if t.Value == op {
			p.pos++
			return op, true
		}
	}
	return "", false
}

func (p *Parser) parseUnary() (Expr, error) {
	if op, ok := p.matchOp([]string{"-", "!"}); ok {
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &Unary{Op: op, X: x}, nil
	}
	return p.parsePrimary()
}

func (p *Parser) parsePrimary() (Expr, error) {
	t := p.next()
	switch t.Type {
	case Int:
		n, err := strconv.ParseInt(strings.ReplaceAll(t.Value, "_", ""), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid integer %s", t.Line, t.Value)
		}
		return &Literal{Value: IntValue(n)}, nil

	case Float:
		f, err := strconv.ParseFloat(strings.ReplaceAll(t.Value, "_", ""), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid float %s", t.Line, t.Value)
		}
		return &Literal{Value: FloatValue(f)}, nil

	case String:
		return &Literal{Value: StringValue(t.Value)}, nil

	case Ident:
		switch t.Value {
		case "true":
			return &Literal{Value: BoolValue(true)}, nil
		case "false":
			return &Literal{Value: BoolValue(false)}, nil
		case "null":
			return &Literal{Value: NullValue()}, nil
		}
		if p.accept("(") {
			call := &CallExpr{Callee: t.Value, Line: t.Line}
			args, err := p.parseList(")")
			if err != nil {
				return nil, err
			}
			call.Args = args
			return call, nil
		}
		return &Name{Ident: t.Value, Line: t.Line}, nil

	case Punct:
		switch t.Value {
		case "(":
			x, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			return x, p.expect(")")
		case "[":
			elems, err := p.parseList("]")
			if err != nil {
				return nil, err
			}
			return &ArrayLit{Elems: elems}, nil
		}
	}
	return nil, fmt.Errorf("line %d: unexpected %s", t.Line, describe(t))
}

func (p *Parser) parseList(closer string) ([]Expr, error) {
	var list []Expr
	for !p.accept(closer) {
		if len(list) > 0 {
			if err := p.expect(","); err != nil {
				return nil, err
			}
		}
		x, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		list = append(list, x)
	}
	return list, nil
}
