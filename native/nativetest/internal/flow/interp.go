package flow

import (
	"errors"
	"fmt"
)

const (
	maxDepth      = 512
	maxIterations = 1_000_000
)

var (
	ErrNotFound     = errors.New("function not found")
	ErrArity        = errors.New("wrong argument count")
	ErrTypeMismatch = errors.New("type mismatch")
)

// CallError carries the message the runtime reports for a failed call.
type CallError struct {
	Kind error // ErrNotFound, ErrArity, ErrTypeMismatch or nil for a runtime fault
	Msg  string
}

func (e *CallError) Error() string { return e.Msg }

func (e *CallError) Unwrap() error { return e.Kind }

func fault(format string, args ...any) *CallError {
	return &CallError{Msg: fmt.Sprintf(format, args...)}
}

// Call runs a declared function with already-evaluated arguments.
func (p *Program) Call(name string, args []Value) (Value, error) {
	f, ok := p.Lookup(name)
	if !ok {
		return Value{}, &CallError{Kind: ErrNotFound, Msg: "Function not found: " + name}
	}
	return p.invoke(f, args, 0)
}

func (p *Program) invoke(f *Func, args []Value, depth int) (Value, error) {
	if depth >= maxDepth {
		return Value{}, fault("Stack overflow in %s", f.Name)
	}
	if len(args) != len(f.Params) {
		return Value{}, &CallError{
			Kind: ErrArity,
			Msg:  fmt.Sprintf("Function %s expects %d argument(s), got %d", f.Name, len(f.Params), len(args)),
		}
	}

	fr := &frame{prog: p, vars: make(map[string]Value, len(args)), depth: depth}
	for i, param := range f.Params {
		v, err := coerce(args[i], param.Type)
		if err != nil {
			return Value{}, &CallError{
				Kind: ErrTypeMismatch,
				Msg:  fmt.Sprintf("Type mismatch for parameter %s of %s: %v", param.Name, f.Name, err),
			}
		}
		fr.vars[param.Name] = v
	}

	ret, returned, err := fr.block(f.Body)
	if err != nil {
		return Value{}, err
	}
	if !returned || f.Return == "void" {
		return NullValue(), nil
	}
	v, err := coerce(ret, f.Return)
	if err != nil {
		return Value{}, fault("Bad return value from %s: %v", f.Name, err)
	}
	return v, nil
}

// coerce checks a value against a declared type, widening int to float.
func coerce(v Value, typ string) (Value, error) {
	switch typ {
	case "int", "string", "bool":
		if v.Kind.String() != typ {
			return Value{}, fmt.Errorf("expected %s, got %s", typ, v.Kind)
		}
	case "float":
		switch v.Kind {
		case KindFloat:
		case KindInt:
			return FloatValue(float64(v.I)), nil
		default:
			return Value{}, fmt.Errorf("expected float, got %s", v.Kind)
		}
	}
	return v, nil
}

type frame struct {
	prog  *Program
	vars  map[string]Value
	depth int
}

func (fr *frame) block(stmts []Stmt) (Value, bool, error) {
	for _, s := range stmts {
		v, returned, err := fr.stmt(s)
		if err != nil || returned {
			return v, returned, err
		}
	}
	return Value{}, false, nil
}

func (fr *frame) stmt(s Stmt) (Value, bool, error) {
	switch s := s.(type) {
	case *LetStmt:
		v, err := fr.eval(s.Value)
		if err != nil {
			return Value{}, false, err
		}
		fr.vars[s.Name] = v

	case *AssignStmt:
		if _, ok := fr.vars[s.Name]; !ok {
			return Value{}, false, fault("line %d: assignment to undeclared variable %s", s.Line, s.Name)
		}
		v, err := fr.eval(s.Value)
		if err != nil {
			return Value{}, false, err
		}
		fr.vars[s.Name] = v

	case *ReturnStmt:
		if s.Value == nil {
			return NullValue(), true, nil
		}
		v, err := fr.eval(s.Value)
		return v, err == nil, err

	case *IfStmt:
		cond, err := fr.cond(s.Cond)
		if err != nil {
			return Value{}, false, err
		}
		if cond {
			return fr.block(s.Then)
		}
		return fr.block(s.Else)

	case *WhileStmt:
		for i := 0; ; i++ {
			if i >= maxIterations {
				return Value{}, false, fault("Iteration limit exceeded")
			}
			cond, err := fr.cond(s.Cond)
			if err != nil || !cond {
				return Value{}, false, err
			}
			v, returned, err := fr.block(s.Body)
			if err != nil || returned {
				return v, returned, err
			}
		}

	case *ExprStmt:
		_, err := fr.eval(s.X)
		return Value{}, false, err
	}
	return Value{}, false, nil
}

func (fr *frame) cond(x Expr) (bool, error) {
	v, err := fr.eval(x)
	if err != nil {
		return false, err
	}
	if v.Kind != KindBool {
		return false, fault("Condition must be bool, got %s", v.Kind)
	}
	return v.B, nil
}

func (fr *frame) eval(x Expr) (Value, error) {
	switch x := x.(type) {
	case *Literal:
		return x.Value, nil

	case *Name:
		v, ok := fr.vars[x.Ident]
		if !ok {
			return Value{}, fault("line %d: undefined variable %s", x.Line, x.Ident)
		}
		return v, nil

	case *ArrayLit:
		elems := make([]Value, len(x.Elems))
		for i, e := range x.Elems {
			v, err := fr.eval(e)
			if err != nil {
				return Value{}, err
			}
			elems[i] = v
		}
		return ArrayValue(elems), nil

	case *CallExpr:
		f, ok := fr.prog.Lookup(x.Callee)
		if !ok {
			return Value{}, fault("line %d: Function not found: %s", x.Line, x.Callee)
		}
		args := make([]Value, len(x.Args))
		for i, a := range x.Args {
			v, err := fr.eval(a)
			if err != nil {
				return Value{}, err
			}
			args[i] = v
		}
		return fr.prog.invoke(f, args, fr.depth+1)

	case *Unary:
		v, err := fr.eval(x.X)
		if err != nil {
			return Value{}, err
		}
		return unary(x.Op, v)

	case *Binary:
		if x.Op == "&&" || x.Op == "||" {
			return fr.logical(x)
		}
		l, err := fr.eval(x.L)
		if err != nil {
			return Value{}, err
		}
		r, err := fr.eval(x.R)
		if err != nil {
			return Value{}, err
		}
		return binary(x.Op, l, r)
	}
	return Value{}, fault("unsupported expression %T", x)
}

func (fr *frame) logical(x *Binary) (Value, error) {
	l, err := fr.cond(x.L)
	if err != nil {
		return Value{}, err
	}
	if x.Op == "&&" && !l {
		return BoolValue(false), nil
	}
	if x.Op == "||" && l {
		return BoolValue(true), nil
	}
	r, err := fr.cond(x.R)
	if err != nil {
		return Value{}, err
	}
	return BoolValue(r), nil
}

func unary(op string, v Value) (Value, error) {
	switch {
	case op == "-" && v.Kind == KindInt:
		return IntValue(-v.I), nil
	case op == "-" && v.Kind == KindFloat:
		return FloatValue(-v.F), nil
	case op == "!" && v.Kind == KindBool:
		return BoolValue(!v.B), nil
	}
	return Value{}, fault("Invalid operand for %s: %s", op, v.Kind)
}

func binary(op string, l, r Value) (Value, error) {
	switch op {
	case "==":
		return BoolValue(l.Equal(r)), nil
	case "!=":
		return BoolValue(!l.Equal(r)), nil
	case "+":
		if l.Kind == KindString || r.Kind == KindString {
			return StringValue(l.Format() + r.Format()), nil
		}
	case "<", "<=", ">", ">=":
		return compare(op, l, r)
	}

	if !l.numeric() || !r.numeric() {
		return Value{}, fault("Invalid operands for %s: %s and %s", op, l.Kind, r.Kind)
	}

	if l.Kind == KindInt && r.Kind == KindInt {
		a, b := l.I, r.I
		switch op {
		case "+":
			return IntValue(a + b), nil
		case "-":
			return IntValue(a - b), nil
		case "*":
			return IntValue(a * b), nil
		case "/", "%":
			if b == 0 {
				return Value{}, fault("Division by zero")
			}
			if op == "/" {
				return IntValue(a / b), nil
			}
			return IntValue(a % b), nil
		}
	}

	a, b := l.float(), r.float()
	switch op {
	case "+":
		return FloatValue(a + b), nil
	case "-":
		return FloatValue(a - b), nil
	case "*":
		return FloatValue(a * b), nil
	case "/":
		if b == 0 {
			return Value{}, fault("Division by zero")
		}
		return FloatValue(a / b), nil
	}
	return Value{}, fault("Invalid operator %s for floats", op)
}

func compare(op string, l, r Value) (Value, error) {
	var c int
	switch {
	case l.Kind == KindInt && r.Kind == KindInt:
		switch {
		case l.I < r.I:
			c = -1
		case l.I > r.I:
			c = 1
		}
	case l.numeric() && r.numeric():
		a, b := l.float(), r.float()
		switch {
		case a < b:
			c = -1
		case a > b:
			c = 1
		}
	case l.Kind == KindString && r.Kind == KindString:
		switch {
		case l.S < r.S:
			c = -1
		case l.S > r.S:
			c = 1
		}
	default:
		return Value{}, fault("Cannot compare %s and %s", l.Kind, r.Kind)
	}

	switch op {
	case "<":
		return BoolValue(c < 0), nil
	case "<=":
		return BoolValue(c <= 0), nil
	case ">":
		return BoolValue(c > 0), nil
	}
	return BoolValue(c >= 0), nil
}
