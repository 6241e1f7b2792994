package native

import (
	"encoding/binary"
	"fmt"
	"math"
)

const (
	// Everything is mapped in a single read+execute segment at a fixed
	// address, headers included. Code starts right after the headers.
	ImageBase  = 0x400000
	headerSize = elfHeaderSize + progHeaderSize
)

// Image is a fully encoded program: machine code, the string literal data
// that follows it, and the virtual address of the entry point.
type Image struct {
	Code   []byte
	Rodata []byte
	Entry  uint64
}

// Encode assembles a program in two passes. The first pass computes every
// instruction's length and therefore every label's code offset; the second
// emits final bytes with branch displacements and string addresses filled in.
// Instruction lengths never depend on operand values, so the passes agree.
func Encode(p *Program) (*Image, error) {
	sizer := &encoder{}

	labels := make(map[string]int)
	offset := 0
	for i := range p.Instructions {
		for _, label := range p.Instructions[i].Labels {
			if _, dup := labels[label]; dup {
				return nil, fmt.Errorf("%w: duplicate label %q", ErrEncoding, label)
			}
			labels[label] = offset
		}

		encoded, err := sizer.instruction(&p.Instructions[i], offset)
		if err != nil {
			return nil, err
		}
		offset += len(encoded)
	}
	codeSize := offset

	stringOffsets := make([]int, len(p.Strings))
	var rodata []byte
	for i, s := range p.Strings {
		stringOffsets[i] = len(rodata)
		rodata = append(rodata, s...)
	}

	final := &encoder{
		resolved:      true,
		labels:        labels,
		stringOffsets: stringOffsets,
		codeSize:      codeSize,
	}

	code := make([]byte, 0, codeSize)
	offset = 0
	for i := range p.Instructions {
		encoded, err := final.instruction(&p.Instructions[i], offset)
		if err != nil {
			return nil, err
		}
		code = append(code, encoded...)
		offset += len(encoded)
	}

	entry, ok := labels["_start"]
	if !ok {
		return nil, fmt.Errorf("%w: no _start label", ErrEncoding)
	}

	return &Image{
		Code:   code,
		Rodata: rodata,
		Entry:  ImageBase + headerSize + uint64(entry),
	}, nil
}

type encoder struct {
	resolved      bool
	labels        map[string]int
	stringOffsets []int
	codeSize      int
}

func (e *encoder) labelOffset(name string) (int, error) {
	if !e.resolved {
		return 0, nil
	}

	offset, ok := e.labels[name]
	if !ok {
		return 0, fmt.Errorf("%w: undefined label %q", ErrEncoding, name)
	}
	return offset, nil
}

func (e *encoder) stringAddress(index int) int64 {
	if !e.resolved {
		return 0
	}

	return ImageBase + headerSize + int64(e.codeSize) + int64(e.stringOffsets[index])
}

// rex builds a REX prefix. reg extends the ModRM reg field, rm the ModRM
// r/m (or opcode register) field.
func rex(w bool, reg, rm Register) byte {
	b := byte(0x40)
	if w {
		b |= 0x08
	}
	if reg >= R8 {
		b |= 0x04
	}
	if rm >= R8 {
		b |= 0x01
	}
	return b
}

func modrm(mod, reg, rm byte) byte {
	return mod<<6 | (reg&7)<<3 | rm&7
}

func appendImm32(out []byte, v int32) []byte {
	return binary.LittleEndian.AppendUint32(out, uint32(v))
}

func appendImm64(out []byte, v int64) []byte {
	return binary.LittleEndian.AppendUint64(out, uint64(v))
}

// appendMemory emits the ModRM byte and displacement for a [base+disp32]
// reference. rsp (and r12) as a base needs a SIB byte because their r/m
// slot selects SIB addressing instead.
func appendMemory(out []byte, reg Register, base Register, disp int32) []byte {
	out = append(out, modrm(2, byte(reg), byte(base)))
	if base&7 == Rsp {
		out = append(out, 0x24)
	}
	return appendImm32(out, disp)
}

var arithmeticOpcodes = map[Opcode]byte{
	Add: 0x01,
	Sub: 0x29,
	And: 0x21,
	Or:  0x09,
	Xor: 0x31,
	Cmp: 0x39,
}

// ModRM reg-field extensions for the 0x81 immediate arithmetic group.
var arithmeticImmExtensions = map[Opcode]byte{
	Add: 0,
	Sub: 5,
	And: 4,
	Or:  1,
	Xor: 6,
	Cmp: 7,
}

var conditionCodes = map[Opcode]byte{
	Je:    0x4,
	Jne:   0x5,
	Jl:    0xC,
	Jge:   0xD,
	Jle:   0xE,
	Jg:    0xF,
	Sete:  0x4,
	Setne: 0x5,
	Setl:  0xC,
	Setge: 0xD,
	Setle: 0xE,
	Setg:  0xF,
}

func (e *encoder) instruction(in *Instruction, at int) ([]byte, error) {
	var out []byte

	switch in.Op {
	case Mov:
		switch {
		case in.Dst.Kind == OperandRegister && in.Src.Kind == OperandImmediate:
			out = append(out, rex(true, 0, in.Dst.Reg), 0xB8|byte(in.Dst.Reg&7))
			out = appendImm64(out, in.Src.Imm)
		case in.Dst.Kind == OperandRegister && in.Src.Kind == OperandString:
			out = append(out, rex(true, 0, in.Dst.Reg), 0xB8|byte(in.Dst.Reg&7))
			out = appendImm64(out, e.stringAddress(in.Src.Str))
		case in.Dst.Kind == OperandRegister && in.Src.Kind == OperandRegister:
			out = append(out, rex(true, in.Src.Reg, in.Dst.Reg), 0x89,
				modrm(3, byte(in.Src.Reg), byte(in.Dst.Reg)))
		case in.Dst.Kind == OperandRegister && in.Src.Kind == OperandMemory:
			out = append(out, rex(true, in.Dst.Reg, in.Src.Base), 0x8B)
			out = appendMemory(out, in.Dst.Reg, in.Src.Base, in.Src.Disp)
		case in.Dst.Kind == OperandMemory && in.Src.Kind == OperandRegister:
			out = append(out, rex(true, in.Src.Reg, in.Dst.Base), 0x89)
			out = appendMemory(out, in.Src.Reg, in.Dst.Base, in.Dst.Disp)
		default:
			return nil, fmt.Errorf("%w: mov operand combination", ErrEncoding)
		}
	case Lea:
		if in.Dst.Kind != OperandRegister || in.Src.Kind != OperandMemory {
			return nil, fmt.Errorf("%w: lea operand combination", ErrEncoding)
		}
		out = append(out, rex(true, in.Dst.Reg, in.Src.Base), 0x8D)
		out = appendMemory(out, in.Dst.Reg, in.Src.Base, in.Src.Disp)
	case Push:
		if in.Dst.Reg >= R8 {
			out = append(out, 0x41)
		}
		out = append(out, 0x50|byte(in.Dst.Reg&7))
	case Pop:
		if in.Dst.Reg >= R8 {
			out = append(out, 0x41)
		}
		out = append(out, 0x58|byte(in.Dst.Reg&7))
	case Add, Sub, And, Or, Xor, Cmp:
		switch {
		case in.Dst.Kind == OperandRegister && in.Src.Kind == OperandRegister:
			out = append(out, rex(true, in.Src.Reg, in.Dst.Reg), arithmeticOpcodes[in.Op],
				modrm(3, byte(in.Src.Reg), byte(in.Dst.Reg)))
		case in.Dst.Kind == OperandRegister && in.Src.Kind == OperandImmediate:
			// The 0x81 group only takes an imm32.
			if in.Src.Imm < math.MinInt32 || in.Src.Imm > math.MaxInt32 {
				return nil, fmt.Errorf("%w: immediate %d does not fit in 32 bits", ErrEncoding, in.Src.Imm)
			}
			out = append(out, rex(true, 0, in.Dst.Reg), 0x81,
				modrm(3, arithmeticImmExtensions[in.Op], byte(in.Dst.Reg)))
			out = appendImm32(out, int32(in.Src.Imm))
		default:
			return nil, fmt.Errorf("%w: arithmetic operand combination", ErrEncoding)
		}
	case Imul:
		out = append(out, rex(true, in.Dst.Reg, in.Src.Reg), 0x0F, 0xAF,
			modrm(3, byte(in.Dst.Reg), byte(in.Src.Reg)))
	case Neg:
		out = append(out, rex(true, 0, in.Dst.Reg), 0xF7, modrm(3, 3, byte(in.Dst.Reg)))
	case Cqo:
		out = append(out, 0x48, 0x99)
	case Idiv:
		out = append(out, rex(true, 0, in.Dst.Reg), 0xF7, modrm(3, 7, byte(in.Dst.Reg)))
	case Sete, Setne, Setl, Setle, Setg, Setge:
		// Always targets al. The 64-bit value is rebuilt with movzx.
		out = append(out, 0x0F, 0x90|conditionCodes[in.Op], modrm(3, 0, 0))
	case Movzx:
		out = append(out, rex(true, in.Dst.Reg, 0), 0x0F, 0xB6,
			modrm(3, byte(in.Dst.Reg), 0))
	case Jmp:
		target, err := e.labelOffset(in.Dst.Label)
		if err != nil {
			return nil, err
		}
		out = append(out, 0xE9)
		out = appendImm32(out, int32(target-(at+5)))
	case Je, Jne, Jl, Jle, Jg, Jge:
		target, err := e.labelOffset(in.Dst.Label)
		if err != nil {
			return nil, err
		}
		out = append(out, 0x0F, 0x80|conditionCodes[in.Op])
		out = appendImm32(out, int32(target-(at+6)))
	case Call:
		target, err := e.labelOffset(in.Dst.Label)
		if err != nil {
			return nil, err
		}
		out = append(out, 0xE8)
		out = appendImm32(out, int32(target-(at+5)))
	case Ret:
		out = append(out, 0xC3)
	case Syscall:
		out = append(out, 0x0F, 0x05)
	case Nop:
		out = append(out, 0x90)
	case Int3:
		out = append(out, 0xCC)
	default:
		return nil, fmt.Errorf("%w: unknown opcode %d", ErrEncoding, in.Op)
	}

	return out, nil
}
