package native

import (
	"testing"
)

// machine is a tiny interpreter for lowered programs. It runs the linear
// instruction form directly, which lets codegen tests check observable
// behavior (exit status, writes, stack discipline) without executing real
// machine code.
type machine struct {
	prog    *Program
	labelAt map[string]int

	regs    [16]int64
	mem     map[int64]int64
	cmpDiff int64

	strBase    int64
	strOffsets []int
	rodata     []byte

	output   []byte
	exitCode int64
	halted   bool
}

const stackTop = int64(0x7FF000)

func newMachine(t *testing.T, p *Program) *machine {
	t.Helper()

	m := &machine{
		prog:    p,
		labelAt: make(map[string]int),
		mem:     make(map[int64]int64),
		strBase: 0x500000,
	}

	for i := range p.Instructions {
		for _, label := range p.Instructions[i].Labels {
			if _, dup := m.labelAt[label]; dup {
				t.Fatalf("duplicate label %q", label)
			}
			m.labelAt[label] = i
		}
	}

	for _, s := range p.Strings {
		m.strOffsets = append(m.strOffsets, len(m.rodata))
		m.rodata = append(m.rodata, s...)
	}

	m.regs[Rsp] = stackTop
	return m
}

func (m *machine) read(op Operand) int64 {
	switch op.Kind {
	case OperandRegister:
		return m.regs[op.Reg]
	case OperandImmediate:
		return op.Imm
	case OperandMemory:
		return m.mem[m.regs[op.Base]+int64(op.Disp)]
	case OperandString:
		return m.strBase + int64(m.strOffsets[op.Str])
	}

	panic("unreadable operand")
}

func (m *machine) store(op Operand, v int64) {
	switch op.Kind {
	case OperandRegister:
		m.regs[op.Reg] = v
	case OperandMemory:
		m.mem[m.regs[op.Base]+int64(op.Disp)] = v
	default:
		panic("unwritable operand")
	}
}

func (m *machine) push(v int64) {
	m.regs[Rsp] -= 8
	m.mem[m.regs[Rsp]] = v
}

func (m *machine) pop() int64 {
	v := m.mem[m.regs[Rsp]]
	m.regs[Rsp] += 8
	return v
}

func (m *machine) condition(op Opcode) bool {
	switch op {
	case Je, Sete:
		return m.cmpDiff == 0
	case Jne, Setne:
		return m.cmpDiff != 0
	case Jl, Setl:
		return m.cmpDiff < 0
	case Jle, Setle:
		return m.cmpDiff <= 0
	case Jg, Setg:
		return m.cmpDiff > 0
	case Jge, Setge:
		return m.cmpDiff >= 0
	}

	panic("not a condition")
}

func (m *machine) syscall(t *testing.T) {
	switch m.regs[Rax] {
	case 1: // write
		offset := m.regs[Rsi] - m.strBase
		length := m.regs[Rdx]
		m.output = append(m.output, m.rodata[offset:offset+length]...)
		m.regs[Rax] = length
	case 60: // exit
		m.exitCode = m.regs[Rdi]
		m.halted = true
	default:
		t.Fatalf("unexpected syscall %d", m.regs[Rax])
	}
}

func (m *machine) run(t *testing.T) {
	t.Helper()

	pc, ok := m.labelAt["_start"]
	if !ok {
		t.Fatal("program has no _start label")
	}

	for steps := 0; !m.halted; steps++ {
		if steps > 1_000_000 {
			t.Fatal("interpreter did not terminate")
		}

		in := &m.prog.Instructions[pc]
		next := pc + 1

		switch in.Op {
		case Mov:
			m.store(in.Dst, m.read(in.Src))
		case Push:
			m.push(m.read(in.Dst))
		case Pop:
			m.store(in.Dst, m.pop())
		case Add:
			m.store(in.Dst, m.read(in.Dst)+m.read(in.Src))
		case Sub:
			m.store(in.Dst, m.read(in.Dst)-m.read(in.Src))
		case Imul:
			m.store(in.Dst, m.read(in.Dst)*m.read(in.Src))
		case Neg:
			m.store(in.Dst, -m.read(in.Dst))
		case Cqo:
			m.regs[Rdx] = m.regs[Rax] >> 63
		case Idiv:
			divisor := m.read(in.Dst)
			quotient := m.regs[Rax] / divisor
			m.regs[Rdx] = m.regs[Rax] % divisor
			m.regs[Rax] = quotient
		case And:
			m.store(in.Dst, m.read(in.Dst)&m.read(in.Src))
		case Or:
			m.store(in.Dst, m.read(in.Dst)|m.read(in.Src))
		case Xor:
			m.store(in.Dst, m.read(in.Dst)^m.read(in.Src))
		case Cmp:
			m.cmpDiff = m.read(in.Dst) - m.read(in.Src)
		case Sete, Setne, Setl, Setle, Setg, Setge:
			low := int64(0)
			if m.condition(in.Op) {
				low = 1
			}
			m.regs[Rax] = m.regs[Rax]&^0xFF | low
		case Movzx:
			m.store(in.Dst, m.regs[Rax]&0xFF)
		case Jmp:
			next = m.labelAt[in.Dst.Label]
		case Je, Jne, Jl, Jle, Jg, Jge:
			if m.condition(in.Op) {
				next = m.labelAt[in.Dst.Label]
			}
		case Call:
			m.push(int64(pc + 1))
			next = m.labelAt[in.Dst.Label]
		case Ret:
			next = int(m.pop())
		case Syscall:
			m.syscall(t)
		case Nop, Int3:
		default:
			t.Fatalf("interpreter cannot execute opcode %d", in.Op)
		}

		pc = next
	}
}
