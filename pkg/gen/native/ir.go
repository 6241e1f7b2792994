package native

// Register values match the x86-64 encoding numbers, so the low three bits go
// straight into ModRM/opcode bytes and bit 3 selects the REX extension.
type Register int

const (
	Rax Register = iota
	Rcx
	Rdx
	Rbx
	Rsp
	Rbp
	Rsi
	Rdi
	R8
	R9
	R10
	R11
	R12
	R13
	R14
	R15
)

type Opcode int

const (
	Mov Opcode = iota
	Lea
	Push
	Pop

	Add
	Sub
	Imul
	Neg
	Cqo
	Idiv

	And
	Or
	Xor
	Cmp

	Sete
	Setne
	Setl
	Setle
	Setg
	Setge
	Movzx

	Jmp
	Je
	Jne
	Jl
	Jle
	Jg
	Jge

	Call
	Ret
	Syscall
	Nop
	Int3
)

type OperandKind int

const (
	OperandNone OperandKind = iota
	OperandRegister
	OperandImmediate
	OperandMemory
	OperandString
	OperandLabel
)

// Operand is a tagged union. Only the fields relevant to Kind are set:
// Reg for registers, Imm for immediates, Base/Disp for memory references,
// Str for interned string literals (resolved to an absolute address during
// encoding) and Label for branch and call targets.
type Operand struct {
	Kind  OperandKind
	Reg   Register
	Imm   int64
	Base  Register
	Disp  int32
	Str   int
	Label string
}

func regOp(r Register) Operand {
	return Operand{Kind: OperandRegister, Reg: r}
}

func immOp(v int64) Operand {
	return Operand{Kind: OperandImmediate, Imm: v}
}

func memOp(base Register, disp int32) Operand {
	return Operand{Kind: OperandMemory, Base: base, Disp: disp}
}

func strOp(index int) Operand {
	return Operand{Kind: OperandString, Str: index}
}

func labelOp(name string) Operand {
	return Operand{Kind: OperandLabel, Label: name}
}

// Instructions live in a flat append-only slice. Labels attach to the
// instruction they precede rather than being instructions themselves, so the
// encoder never has to skip marker entries.
type Instruction struct {
	Op     Opcode
	Dst    Operand
	Src    Operand
	Labels []string
}

type Program struct {
	Instructions []Instruction

	// Interned string literal data, laid out after the code in the final
	// image. Indices here match Operand.Str.
	Strings []string
}
