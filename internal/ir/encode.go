package ir

import (
	"fmt"
	"math"

	"github.com/funvibe/funbit/pkg/funbit"
)

// rawIRMagic starts every raw-ir artifact.
var rawIRMagic = []byte("VIR1")

// Encode serializes the module into the raw-ir binary artifact: a
// bitstring with a fixed header, per-function sections, and
// length-prefixed operand streams.
func Encode(m *Module) ([]byte, error) {
	b := funbit.NewBuilder()
	funbit.AddBinary(b, rawIRMagic)
	addString(b, m.Name)
	funbit.AddInteger(b, uint32(len(m.Functions)), funbit.WithSize(32))

	for _, f := range m.Functions {
		if err := encodeFunction(b, f); err != nil {
			return nil, err
		}
	}

	bits, err := b.Build()
	if err != nil {
		return nil, fmt.Errorf("encoding raw-ir: %w", err)
	}
	return bits.ToBytes(), nil
}

func encodeFunction(b *funbit.Builder, f *Function) error {
	addString(b, f.Name)
	funbit.AddInteger(b, uint8(f.Linkage), funbit.WithSize(8))
	subscript := uint8(0)
	if f.IsSubscript {
		subscript = 1
	}
	funbit.AddInteger(b, subscript, funbit.WithSize(8))
	funbit.AddInteger(b, uint16(len(f.Inputs)), funbit.WithSize(16))
	for _, p := range f.Inputs {
		addString(b, p.Label)
		funbit.AddInteger(b, uint8(p.Type.Access), funbit.WithSize(8))
		addString(b, p.Type.Bare.String())
	}
	addString(b, typeString(f.Output))

	// Instructions are numbered per function, in block order.
	numbers := make(map[*Instruction]uint32)
	n := uint32(0)
	for _, blk := range f.Blocks {
		for _, inst := range blk.Instrs {
			numbers[inst] = n
			n++
		}
	}

	funbit.AddInteger(b, uint16(len(f.Blocks)), funbit.WithSize(16))
	for _, blk := range f.Blocks {
		funbit.AddInteger(b, uint16(len(blk.Params)), funbit.WithSize(16))
		for _, p := range blk.Params {
			addString(b, typeString(p))
		}
		funbit.AddInteger(b, uint32(len(blk.Instrs)), funbit.WithSize(32))
		for _, inst := range blk.Instrs {
			if err := encodeInstruction(b, inst, numbers); err != nil {
				return err
			}
		}
	}
	return nil
}

func encodeInstruction(b *funbit.Builder, inst *Instruction, numbers map[*Instruction]uint32) error {
	funbit.AddInteger(b, uint8(inst.Op), funbit.WithSize(8))
	funbit.AddInteger(b, uint8(inst.Request), funbit.WithSize(8))
	funbit.AddInteger(b, uint16(inst.Field), funbit.WithSize(16))
	funbit.AddInteger(b, uint64(inst.Offset), funbit.WithSize(64))
	funbit.AddInteger(b, uint32(inst.Callee), funbit.WithSize(32))
	hasResult := uint8(0)
	if inst.Result != nil {
		hasResult = 1
	}
	funbit.AddInteger(b, hasResult, funbit.WithSize(8))
	if inst.Result != nil {
		addString(b, inst.Result.String())
	}

	funbit.AddInteger(b, uint16(len(inst.Operands)), funbit.WithSize(16))
	for _, o := range inst.Operands {
		if err := encodeOperand(b, o, numbers); err != nil {
			return err
		}
	}

	funbit.AddInteger(b, uint8(len(inst.Successors)), funbit.WithSize(8))
	for _, succ := range inst.Successors {
		funbit.AddInteger(b, uint16(succ.Index), funbit.WithSize(16))
	}
	return nil
}

func encodeOperand(b *funbit.Builder, o Operand, numbers map[*Instruction]uint32) error {
	switch {
	case o.Inst != nil:
		funbit.AddInteger(b, uint8(0), funbit.WithSize(8))
		funbit.AddInteger(b, numbers[o.Inst], funbit.WithSize(32))
	case o.Block != nil:
		funbit.AddInteger(b, uint8(1), funbit.WithSize(8))
		funbit.AddInteger(b, uint16(o.Block.Index), funbit.WithSize(16))
		funbit.AddInteger(b, uint16(o.Index), funbit.WithSize(16))
	case o.Const != nil:
		funbit.AddInteger(b, uint8(2), funbit.WithSize(8))
		switch c := o.Const.(type) {
		case WordConstant:
			funbit.AddInteger(b, uint8(0), funbit.WithSize(8))
			funbit.AddInteger(b, uint64(c.Value), funbit.WithSize(64))
		case FloatConstant:
			funbit.AddInteger(b, uint8(1), funbit.WithSize(8))
			funbit.AddInteger(b, math.Float64bits(c.Value), funbit.WithSize(64))
		case UnitConstant:
			funbit.AddInteger(b, uint8(2), funbit.WithSize(8))
		default:
			return fmt.Errorf("cannot encode constant %s", c)
		}
	default:
		return fmt.Errorf("cannot encode empty operand")
	}
	return nil
}

func addString(b *funbit.Builder, s string) {
	funbit.AddInteger(b, uint16(len(s)), funbit.WithSize(16))
	funbit.AddBinary(b, []byte(s))
}

func typeString(t fmt.Stringer) string {
	if t == nil {
		return ""
	}
	return t.String()
}
