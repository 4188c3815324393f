package vm

import (
	"encoding/binary"
	"strings"
	"testing"

	"github.com/lookbusy1344/cvma-interpreter/parser"
)

func TestNativePutC(t *testing.T) {
	m, out := buildMachine(entry(
		inst(parser.Pchnij, 42),
		inst(parser.Nat, NatPutC),
		inst(parser.Wroc),
	))
	if err := m.Run(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.String() != "42" {
		t.Errorf("output = %q, expected \"42\"", out.String())
	}
	// Peek, not pop: the argument stays on the stack
	if m.Stack.Len() != 1 {
		t.Errorf("stack depth = %d, expected 1", m.Stack.Len())
	}
}

func TestNativePutCPrintsUnsigned(t *testing.T) {
	m, out := buildMachine(entry(
		inst(parser.Pchnij, fromInt(-1)),
		inst(parser.Nat, NatPutC),
		inst(parser.Wroc),
	))
	if err := m.Run(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.String() != "18446744073709551615" {
		t.Errorf("output = %q", out.String())
	}
}

func TestNativePutZ(t *testing.T) {
	m, out := buildMachine(entry(
		inst(parser.Pchnij, fromFloat(1.5)),
		inst(parser.Nat, NatPutZ),
		inst(parser.Wroc),
	))
	if err := m.Run(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.String() != "1.5" {
		t.Errorf("output = %q, expected \"1.5\"", out.String())
	}
}

func TestNativePutU(t *testing.T) {
	m, out := buildMachine(entry(
		inst(parser.Pchnij, 0x017C), // ż
		inst(parser.Nat, NatPutU),
		inst(parser.Wroc),
	))
	if err := m.Run(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.String() != "ż" {
		t.Errorf("output = %q, expected \"ż\"", out.String())
	}
}

func TestNativeGetC(t *testing.T) {
	m, _ := buildMachine(entry(
		inst(parser.Nat, NatGetC),
		inst(parser.Wroc),
	))
	m.SetInput(strings.NewReader("123\n"))
	if err := m.Run(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cells := m.Stack.Cells(); len(cells) != 1 || cells[0] != 123 {
		t.Errorf("stack = %v", cells)
	}
}

func TestNativeGetCInvalidInputIsFatal(t *testing.T) {
	m, _ := buildMachine(entry(
		inst(parser.Nat, NatGetC),
		inst(parser.Wroc),
	))
	m.SetInput(strings.NewReader("banana\n"))
	if err := m.Run(); err == nil {
		t.Error("invalid stdin should be fatal")
	}
}

func TestNativeGetZ(t *testing.T) {
	m, _ := buildMachine(entry(
		inst(parser.Nat, NatGetZ),
		inst(parser.Wroc),
	))
	m.SetInput(strings.NewReader("2.5\n"))
	if err := m.Run(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cells := m.Stack.Cells(); len(cells) != 1 || asFloat(cells[0]) != 2.5 {
		t.Errorf("stack = %v", cells)
	}
}

func TestNativeGetU(t *testing.T) {
	m, _ := buildMachine(entry(
		inst(parser.Nat, NatGetU),
		inst(parser.Wroc),
	))
	// Empty lines are skipped until a character shows up
	m.SetInput(strings.NewReader("\n\nżółw\n"))
	if err := m.Run(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cells := m.Stack.Cells(); len(cells) != 1 || cells[0] != uint64('ż') {
		t.Errorf("stack = %v", cells)
	}
}

func TestNativeAlloc(t *testing.T) {
	m, _ := buildMachine(entry(
		inst(parser.Pchnij, 4),
		inst(parser.Nat, NatAlloc),
		inst(parser.Wroc),
	))
	if err := m.Run(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Alloc peeks the length and pushes the address on top of it
	cells := m.Stack.Cells()
	if len(cells) != 2 || cells[0] != 4 || cells[1] != 0 {
		t.Errorf("stack = %v, expected [4 0]", cells)
	}
	if m.Heap.Live() != 1 {
		t.Errorf("Live() = %d, expected 1", m.Heap.Live())
	}
}

func TestNativeHeapRoundTrip(t *testing.T) {
	// Alloc 4 cells, write 42 at index 2, read it back, print it
	m, out := buildMachine(entry(
		inst(parser.Pchnij, 4),
		inst(parser.Nat, NatAlloc), // [4 addr]
		inst(parser.ZmiennaU, 0),   // [addr]
		inst(parser.Pchnij, 2),
		inst(parser.Pchnij, 42),
		inst(parser.Nat, NatWrite), // write peeks (addr, idx, value)
		inst(parser.Usun),
		inst(parser.Usun),          // [addr]
		inst(parser.Pchnij, 2),     // [addr 2]
		inst(parser.Nat, NatRead),  // [addr 2 42]
		inst(parser.Nat, NatPutC),
		inst(parser.Wroc),
	))
	if err := m.Run(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.String() != "42" {
		t.Errorf("output = %q, expected \"42\"", out.String())
	}
}

func TestNativeReadFreedBlockIsFatal(t *testing.T) {
	m, _ := buildMachine(entry(
		inst(parser.Pchnij, 1),
		inst(parser.Nat, NatAlloc), // [1 addr]
		inst(parser.Nat, NatFree),  // frees addr, stack untouched
		inst(parser.Pchnij, 0),     // [1 addr 0]
		inst(parser.Nat, NatRead),
		inst(parser.Wroc),
	))
	if err := m.Run(); err == nil {
		t.Error("read of a freed block should be fatal")
	}
}

func TestNativePrint(t *testing.T) {
	// Pack "Hej!" plus NUL into one little-endian cell
	var cell [8]byte
	copy(cell[:], "Hej!")
	word := binary.LittleEndian.Uint64(cell[:])

	m, out := buildMachine(entry(
		inst(parser.Pchnij, 1),
		inst(parser.Nat, NatAlloc), // [1 addr]
		inst(parser.ZmiennaU, 0),   // [addr]
		inst(parser.Pchnij, 0),
		inst(parser.Pchnij, word),
		inst(parser.Nat, NatWrite),
		inst(parser.Usun),
		inst(parser.Usun),          // [addr]
		inst(parser.Nat, NatPrint),
		inst(parser.Wroc),
	))
	if err := m.Run(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.String() != "Hej!" {
		t.Errorf("output = %q, expected \"Hej!\"", out.String())
	}
}

func TestNativePrintStopsAtFirstNul(t *testing.T) {
	var first, second [8]byte
	copy(first[:], "AB") // NUL right after B
	copy(second[:], "CDEFGHIJ")

	m, out := buildMachine(entry(
		inst(parser.Pchnij, 2),
		inst(parser.Nat, NatAlloc),
		inst(parser.ZmiennaU, 0), // [addr]
		inst(parser.Pchnij, 0),
		inst(parser.Pchnij, binary.LittleEndian.Uint64(first[:])),
		inst(parser.Nat, NatWrite),
		inst(parser.Usun),
		inst(parser.Usun),
		inst(parser.Pchnij, 1),
		inst(parser.Pchnij, binary.LittleEndian.Uint64(second[:])),
		inst(parser.Nat, NatWrite),
		inst(parser.Usun),
		inst(parser.Usun),
		inst(parser.Nat, NatPrint),
		inst(parser.Wroc),
	))
	if err := m.Run(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.String() != "AB" {
		t.Errorf("output = %q, expected \"AB\"", out.String())
	}
}

func TestNativeRegistryCustomProcedure(t *testing.T) {
	m, out := buildMachine(entry(
		inst(parser.Nat, 0x30),
		inst(parser.Wroc),
	))
	m.Natives.Register(0x30, func(m *Machine) error {
		m.Stack.Push(99)
		_, err := m.Output.Write([]byte("custom"))
		return err
	})
	if err := m.Run(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.String() != "custom" {
		t.Errorf("output = %q", out.String())
	}
	if cells := m.Stack.Cells(); len(cells) != 1 || cells[0] != 99 {
		t.Errorf("stack = %v", cells)
	}
}
