package vm

import (
	"math"

	"github.com/pkg/errors"

	"github.com/lookbusy1344/cvma-interpreter/parser"
)

// call executes one procedure activation. The activation owns stack
// slots [bottom, len); ZMIENNA.K/U address bottom+i. Nested WYWOŁAJ
// recurses, so the host call stack doubles as the frame stack and no
// explicit return-address slot exists.
func (m *Machine) call(proc *parser.Procedure, bottom uint64, depth int) error {
	if depth > m.MaxCallDepth {
		return errors.Errorf("call depth limit exceeded (%d)", m.MaxCallDepth)
	}

	var pc uint64

	for {
		if pc >= uint64(len(proc.Code)) {
			return errors.Errorf("program counter %d out of range in procedure %#x", pc, proc.Index)
		}
		if m.MaxSteps > 0 {
			m.steps++
			if m.steps > m.MaxSteps {
				return errors.Errorf("step limit exceeded (%d)", m.MaxSteps)
			}
		}

		inst := proc.Code[pc]
		pc++

		switch inst.Op {
		// Stack
		case parser.Pchnij:
			m.Stack.Push(inst.Operand)

		case parser.Usun:
			if _, err := m.Stack.Pop(); err != nil {
				return err
			}

		case parser.ZmiennaK:
			w, err := m.Stack.At(bottom + inst.Operand)
			if err != nil {
				return err
			}
			m.Stack.Push(w)

		case parser.ZmiennaU:
			w, err := m.Stack.Pop()
			if err != nil {
				return err
			}
			if err := m.Stack.SetAt(bottom+inst.Operand, w); err != nil {
				return err
			}

		// Arithmetic, integer view
		case parser.DodajC:
			x, y, err := m.Stack.Pop2()
			if err != nil {
				return err
			}
			m.Stack.Push(fromInt(asInt(x) + asInt(y)))

		case parser.OdejmC:
			x, y, err := m.Stack.Pop2()
			if err != nil {
				return err
			}
			m.Stack.Push(fromInt(asInt(x) - asInt(y)))

		case parser.MnozC:
			x, y, err := m.Stack.Pop2()
			if err != nil {
				return err
			}
			m.Stack.Push(fromInt(asInt(x) * asInt(y)))

		case parser.DzielC:
			x, y, err := m.Stack.Pop2()
			if err != nil {
				return err
			}
			if asInt(y) == 0 {
				return errors.New("integer division by zero")
			}
			m.Stack.Push(fromInt(asInt(x) / asInt(y)))

		case parser.ResztaC:
			x, y, err := m.Stack.Pop2()
			if err != nil {
				return err
			}
			if asInt(y) == 0 {
				return errors.New("integer remainder by zero")
			}
			m.Stack.Push(fromInt(asInt(x) % asInt(y)))

		// Arithmetic, float view
		case parser.DodajZ:
			x, y, err := m.Stack.Pop2()
			if err != nil {
				return err
			}
			m.Stack.Push(fromFloat(asFloat(x) + asFloat(y)))

		case parser.OdejmZ:
			x, y, err := m.Stack.Pop2()
			if err != nil {
				return err
			}
			m.Stack.Push(fromFloat(asFloat(x) - asFloat(y)))

		case parser.MnozZ:
			x, y, err := m.Stack.Pop2()
			if err != nil {
				return err
			}
			m.Stack.Push(fromFloat(asFloat(x) * asFloat(y)))

		case parser.DzielZ:
			x, y, err := m.Stack.Pop2()
			if err != nil {
				return err
			}
			m.Stack.Push(fromFloat(asFloat(x) / asFloat(y)))

		case parser.ResztaZ:
			x, y, err := m.Stack.Pop2()
			if err != nil {
				return err
			}
			m.Stack.Push(fromFloat(math.Mod(asFloat(x), asFloat(y))))

		// Conversions: value conversions, unlike every other float
		// instruction which only reinterprets bits
		case parser.JakoCZ:
			w, err := m.Stack.Pop()
			if err != nil {
				return err
			}
			m.Stack.Push(fromFloat(float64(asInt(w))))

		case parser.JakoZC:
			w, err := m.Stack.Pop()
			if err != nil {
				return err
			}
			m.Stack.Push(fromInt(int64(math.Floor(asFloat(w)))))

		// Comparisons
		case parser.NieL:
			w, err := m.Stack.Pop()
			if err != nil {
				return err
			}
			m.Stack.Push(boolWord(w == 0))

		case parser.Rowne:
			x, y, err := m.Stack.Pop2()
			if err != nil {
				return err
			}
			m.Stack.Push(boolWord(x == y))

		case parser.RowneZ:
			x, y, err := m.Stack.Pop2()
			if err != nil {
				return err
			}
			m.Stack.Push(boolWord(asFloat(x) == asFloat(y)))

		case parser.MniejC:
			x, y, err := m.Stack.Pop2()
			if err != nil {
				return err
			}
			m.Stack.Push(boolWord(asInt(x) < asInt(y)))

		case parser.MniejZ:
			x, y, err := m.Stack.Pop2()
			if err != nil {
				return err
			}
			m.Stack.Push(boolWord(asFloat(x) < asFloat(y)))

		case parser.MNrowC:
			x, y, err := m.Stack.Pop2()
			if err != nil {
				return err
			}
			m.Stack.Push(boolWord(asInt(x) <= asInt(y)))

		case parser.MNrowZ:
			x, y, err := m.Stack.Pop2()
			if err != nil {
				return err
			}
			m.Stack.Push(boolWord(asFloat(x) <= asFloat(y)))

		// Bitwise, on the raw word
		case parser.NieB:
			w, err := m.Stack.Pop()
			if err != nil {
				return err
			}
			m.Stack.Push(^w)

		case parser.I:
			x, y, err := m.Stack.Pop2()
			if err != nil {
				return err
			}
			m.Stack.Push(x & y)

		case parser.Lub:
			x, y, err := m.Stack.Pop2()
			if err != nil {
				return err
			}
			m.Stack.Push(x | y)

		case parser.XLub:
			x, y, err := m.Stack.Pop2()
			if err != nil {
				return err
			}
			m.Stack.Push(x ^ y)

		case parser.PrzesunL:
			x, y, err := m.Stack.Pop2()
			if err != nil {
				return err
			}
			m.Stack.Push(x << y)

		case parser.PrzesunR:
			x, y, err := m.Stack.Pop2()
			if err != nil {
				return err
			}
			m.Stack.Push(x >> y)

		// Control flow
		case parser.IdzDo:
			pc = inst.Operand

		case parser.IdzDoZe:
			w, err := m.Stack.Pop()
			if err != nil {
				return err
			}
			if w == 0 {
				pc = inst.Operand
			}

		case parser.IdzDoNz:
			w, err := m.Stack.Pop()
			if err != nil {
				return err
			}
			if w != 0 {
				pc = inst.Operand
			}

		case parser.Wywolaj:
			if err := m.invoke(inst.Operand, depth); err != nil {
				return err
			}

		case parser.Wroc, parser.Stop:
			// Both terminate the activation; only WRÓĆ also closes a
			// procedure at assembly time. A non-entry activation keeps
			// its top as the single return value and drops every other
			// callee local, leaving the stack at bottom+1.
			if depth > 0 && m.Stack.Len() > int(bottom) {
				ret, err := m.Stack.Pop()
				if err != nil {
					return err
				}
				m.Stack.TrimTo(int(bottom))
				m.Stack.Push(ret)
			}
			return nil

		// Native bridge
		case parser.Nat:
			fn := m.Natives.Lookup(inst.Operand)
			if fn == nil {
				return errors.Errorf("native procedure %#X does not exist", inst.Operand)
			}
			if err := fn(m); err != nil {
				return err
			}

		case parser.BrakOperacji:
			return errors.New("no-op sentinel reached execution; program should have been rejected at parse time")

		default:
			return errors.Errorf("unhandled opcode %v", inst.Op)
		}
	}
}

// invoke resolves a WYWOŁAJ target and runs the nested activation. The
// callee's frame bottom starts at the caller's parameter window, so the
// last ParamCount pushed values become local slots 0..ParamCount-1.
func (m *Machine) invoke(index uint64, depth int) error {
	target := m.Program.Lookup(index)
	if target == nil {
		return errors.Errorf("procedure with index %d does not exist", index)
	}
	if len(target.Code) == 0 {
		return nil
	}

	if target.ParamCount > uint64(m.Stack.Len()) {
		return errors.Errorf("procedure %#x needs %d parameters but the stack holds %d values",
			index, target.ParamCount, m.Stack.Len())
	}
	bottom := uint64(m.Stack.Len()) - target.ParamCount

	return m.call(target, bottom, depth+1)
}
