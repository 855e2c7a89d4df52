package talc

import (
	"github.com/pontaoski/talc/types"
)

type Node interface {
	is_Node()
	Span() types.Span
	Owner() *Scope
	String() string
}

// Meta is embedded in every node. Scope is written by Bind.
type Meta struct {
	Pos   types.Span
	Scope *Scope
}

func (m *Meta) Span() types.Span       { return m.Pos }
func (m *Meta) Owner() *Scope          { return m.Scope }
func (m *Meta) setScope(scope *Scope)  { m.Scope = scope }
func (m *Meta) setPos(span types.Span) { m.Pos = span }

// Constant holds a literal. Value is one of *numeric.Integer, float64,
// string, bool, or nil for null.
type Constant struct {
	Meta
	Value interface{}
	Type  *Type
}

func (v *Constant) is_Node() {}

// BinaryOperator covers binary, unary, prefix, postfix and assignment
// forms. Rhs is nil for the unary ones.
type BinaryOperator struct {
	Meta
	Op   types.Op
	Lhs  Node
	Rhs  Node
	Type *Type
}

func (v *BinaryOperator) is_Node() {}

type VariableDefinition struct {
	Meta
	Name string
	// TypeName is nil when the type is inferred from Init.
	TypeName *TypeName
	Type     *Type
	Init     Node
	Final    bool
	Field    bool
	Builtin  bool
	ID       VarID
}

func (v *VariableDefinition) is_Node() {}

type VariableName struct {
	Meta
	Name        string
	FieldAccess bool
	Decl        VarID
}

func (v *VariableName) is_Node() {}

type FunctionDefinition struct {
	Meta
	Name           string
	ParamNames     []string
	ParamTypeNames []*TypeName
	ParamTypes     []*Type
	ReturnTypeName *TypeName
	ReturnType     *Type
	// Body is nil for built-ins.
	Body        Node
	Constructor bool
	ClassMethod bool
	Variadic    bool
	Builtin     bool
	// Class is the containing type of a method.
	Class  *Type
	Params []*VariableDefinition
	ID     FuncID
}

func (v *FunctionDefinition) is_Node() {}

// IsMethod reports whether calls pass a receiver.
func (v *FunctionDefinition) IsMethod() bool {
	return v.Class != nil && !v.ClassMethod
}

type FunctionCall struct {
	Meta
	Name     string
	Instance Node
	// Class qualifies constructor and class method calls.
	Class    *TypeName
	Args     []Node
	Target   FuncID
	ArgTypes []*Type
	Type     *Type
}

func (v *FunctionCall) is_Node() {}

type ClassDefinition struct {
	Meta
	Name    string
	Super   string
	Fields  []*VariableDefinition
	Methods []*FunctionDefinition
	Type    *Type
}

func (v *ClassDefinition) is_Node() {}

type Block struct {
	Meta
	Statements []Node
}

func (v *Block) is_Node() {}

// EmptyBlock is the canonical block with no statements. Compare against it
// by identity.
var EmptyBlock = &Block{}

type IfStatement struct {
	Meta
	Conds  []Node
	Bodies []Node
	Else   Node
}

func (v *IfStatement) is_Node() {}

type WhileStatement struct {
	Meta
	Cond Node
	Body Node
}

func (v *WhileStatement) is_Node() {}

type DoStatement struct {
	Meta
	Body Node
	Cond Node
}

func (v *DoStatement) is_Node() {}

type ForStatement struct {
	Meta
	Init   Node
	Cond   Node
	Update Node
	Body   Node
}

func (v *ForStatement) is_Node() {}

// ForEachStatement binds either a value, or a key and a value.
type ForEachStatement struct {
	Meta
	Vars     []*VariableDefinition
	Expr     Node
	Body     Node
	ExprType *Type
}

func (v *ForEachStatement) is_Node() {}

type ReturnStatement struct {
	Meta
	Expr Node
	Type *Type
}

func (v *ReturnStatement) is_Node() {}

type BreakStatement struct {
	Meta
}

func (v *BreakStatement) is_Node() {}

type ContinueStatement struct {
	Meta
}

func (v *ContinueStatement) is_Node() {}

type AssertStatement struct {
	Meta
	Test        Node
	Explanation Node
}

func (v *AssertStatement) is_Node() {}

type ListLiteral struct {
	Meta
	Elems []Node
	Type  *Type
}

func (v *ListLiteral) is_Node() {}

type MapLiteral struct {
	Meta
	Keys   []Node
	Values []Node
	Type   *Type
}

func (v *MapLiteral) is_Node() {}
