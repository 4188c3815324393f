package vm

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"

	"github.com/lookbusy1344/cvma-interpreter/parser"
)

// Default execution limits, overridable via config or flags. Both are
// backstops against runaway programs, high enough to stay invisible.
const (
	DefaultMaxSteps     = 100_000_000
	DefaultMaxCallDepth = 100_000
)

// Machine is the CVMA interpreter: one value stack, one heap table,
// one native registry, shared by the whole activation chain. Execution
// is single-threaded and synchronous; natives run inline.
type Machine struct {
	Program *parser.Program
	Stack   *Stack
	Heap    *Heap
	Natives *NativeRegistry

	// Execution limits
	MaxSteps     uint64
	MaxCallDepth int

	// I/O redirection (defaults to the process streams)
	Output io.Writer

	stdin *bufio.Reader
	steps uint64
}

// NewMachine creates a machine for the given program with the reserved
// natives installed
func NewMachine(program *parser.Program) *Machine {
	m := &Machine{
		Program:      program,
		Stack:        NewStack(),
		Heap:         NewHeap(),
		Natives:      NewNativeRegistry(),
		MaxSteps:     DefaultMaxSteps,
		MaxCallDepth: DefaultMaxCallDepth,
		Output:       os.Stdout,
		stdin:        bufio.NewReader(os.Stdin),
	}
	RegisterReserved(m.Natives)
	return m
}

// SetInput redirects the Get* natives to read from r instead of the
// process stdin. Useful for tests and embedding.
func (m *Machine) SetInput(r io.Reader) {
	if br, ok := r.(*bufio.Reader); ok {
		m.stdin = br
	} else {
		m.stdin = bufio.NewReader(r)
	}
}

// readLine reads one line from the machine's input, newline included
func (m *Machine) readLine() (string, error) {
	line, err := m.stdin.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return line, nil
}

// Run executes the entry procedure (index 0). The entry activation
// owns the whole stack and is never trimmed, so its final state stays
// visible to the debug dump.
func (m *Machine) Run() error {
	entry := m.Program.Entry()
	if entry == nil {
		return errors.New("main procedure is not defined")
	}
	m.steps = 0
	return m.call(entry, 0, 0)
}

// DumpState writes the final value stack and heap table. Radix is
// "hex" or "dec" and comes from the display config.
func (m *Machine) DumpState(w io.Writer, radix string) {
	format := func(v uint64) string {
		if radix == "dec" {
			return fmt.Sprintf("%d", v)
		}
		return fmt.Sprintf("%#x", v)
	}

	fmt.Fprintln(w, "============")

	var sb strings.Builder
	for i, v := range m.Stack.Cells() {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(format(v))
	}
	fmt.Fprintf(w, "Value stack: [%s]\n", sb.String())

	fmt.Fprintf(w, "Allocation table (%d live):\n", m.Heap.Live())
	for addr, block := range m.Heap.Blocks() {
		if block == nil {
			fmt.Fprintf(w, "  %#x: freed\n", addr)
			continue
		}
		sb.Reset()
		for i, v := range block {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(format(v))
		}
		fmt.Fprintf(w, "  %#x: [%s]\n", addr, sb.String())
	}
}
