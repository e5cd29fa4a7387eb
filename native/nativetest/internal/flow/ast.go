package flow

// Program is a compiled module: functions in declaration order.
type Program struct {
	index map[string]*Func
	Funcs []*Func
}

// Lookup returns a declared function.
func (p *Program) Lookup(name string) (*Func, bool) {
	f, ok := p.index[name]
	return f, ok
}

type Param struct {
	Name string
	Type string
}

type Func struct {
	Name   string
	Return string
	Params []Param
	Body   []Stmt
	Line   int
}

type Stmt interface{ stmt() }

type (
	LetStmt struct {
		Name  string
		Value Expr
	}
	AssignStmt struct {
		Name  string
		Value Expr
		Line  int
	}
	ReturnStmt struct {
		Value Expr // nil for a bare return
	}
	IfStmt struct {
		Cond Expr
		Then []Stmt
		Else []Stmt
	}
	WhileStmt struct {
		Cond Expr
		Body []Stmt
	}
	ExprStmt struct {
		X Expr
	}
)

func (*LetStmt) stmt()    {}
func (*AssignStmt) stmt() {}
func (*ReturnStmt) stmt() {}
func (*IfStmt) stmt()     {}
func (*WhileStmt) stmt()  {}
func (*ExprStmt) stmt()   {}

type Expr interface{ expr() }

type (
	Literal struct {
		Value Value
	}
	Name struct {
		Ident string
		Line  int
	}
	Unary struct {
		Op string
		X  Expr
	}
	Binary struct {
		Op   string
		L, R Expr
	}
	CallExpr struct {
		Callee string
		Args   []Expr
		Line   int
	}
	ArrayLit struct {
		Elems []Expr
	}
)

func (*Literal) expr()  {}
func (*Name) expr()     {}
func (*Unary) expr()    {}
func (*Binary) expr()   {}
func (*CallExpr) expr() {}
func (*ArrayLit) expr() {}
