package ir

import (
	"fmt"

	"github.com/veldlang/veld/internal/typesystem"
)

// Constant is an operand known at compile time.
type Constant interface {
	Type() typesystem.Type
	String() string
}

// WordConstant is an integer constant of the built-in word type.
type WordConstant struct {
	Value int64
}

func (c WordConstant) Type() typesystem.Type {
	return typesystem.TBuiltin{Kind: typesystem.BuiltinWord}
}

func (c WordConstant) String() string { return fmt.Sprintf("word(%d)", c.Value) }

// FloatConstant is a floating-point constant.
type FloatConstant struct {
	Value float64
}

func (c FloatConstant) Type() typesystem.Type {
	return typesystem.TBuiltin{Kind: typesystem.BuiltinFloat64}
}

func (c FloatConstant) String() string { return fmt.Sprintf("float64(%g)", c.Value) }

// UnitConstant is the empty tuple value.
type UnitConstant struct{}

func (c UnitConstant) Type() typesystem.Type { return typesystem.TTuple{} }
func (c UnitConstant) String() string        { return "unit" }

// Operand is the value an instruction consumes: the register produced by
// another instruction, a block parameter, or a constant.
type Operand struct {
	Inst  *Instruction // register
	Block *Block       // parameter owner
	Index int          // parameter index
	Const Constant
}

// RegisterOperand wraps the result of inst.
func RegisterOperand(inst *Instruction) Operand {
	return Operand{Inst: inst}
}

// ParameterOperand names the index-th parameter of block.
func ParameterOperand(block *Block, index int) Operand {
	return Operand{Block: block, Index: index}
}

// ConstantOperand wraps a constant.
func ConstantOperand(c Constant) Operand {
	return Operand{Const: c}
}

// IsRegister reports whether o is an instruction result.
func (o Operand) IsRegister() bool { return o.Inst != nil }

// IsParameter reports whether o is a block parameter.
func (o Operand) IsParameter() bool { return o.Block != nil }

// IsConstant reports whether o is a constant.
func (o Operand) IsConstant() bool { return o.Const != nil }

// Type returns the type of the value o denotes.
func (o Operand) Type() typesystem.Type {
	switch {
	case o.Inst != nil:
		return o.Inst.Result
	case o.Block != nil:
		return o.Block.Params[o.Index]
	case o.Const != nil:
		return o.Const.Type()
	default:
		return nil
	}
}

func (o Operand) String() string {
	switch {
	case o.Inst != nil:
		return fmt.Sprintf("%%(%s)", o.Inst.Op)
	case o.Block != nil:
		return fmt.Sprintf("%%%d.%d", o.Block.Index, o.Index)
	case o.Const != nil:
		return o.Const.String()
	default:
		return "<none>"
	}
}

// Use records that an instruction consumes an operand at a given index.
type Use struct {
	User  *Instruction
	Index int
}
