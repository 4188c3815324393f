package vm

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Reserved native procedure identifiers
const (
	// 0x - I/O
	NatPutC = 0x00
	NatPutZ = 0x01
	NatPutU = 0x02
	NatGetC = 0x03
	NatGetZ = 0x04
	NatGetU = 0x05

	// 1x - memory
	NatAlloc = 0x10
	NatFree  = 0x11
	NatRead  = 0x12
	NatWrite = 0x13

	// 2x - strings
	NatPrint = 0x20
)

// NativeFunc is a host-provided callback invoked by NAT. It gets the
// whole machine for the duration of the call: full read/write access to
// the value stack and the heap table, plus the machine's I/O streams.
type NativeFunc func(m *Machine) error

// NativeRegistry maps small integers to native procedures. It is
// populated once at interpreter start-up and immutable afterwards.
type NativeRegistry struct {
	procs map[uint64]NativeFunc
}

// NewNativeRegistry creates an empty registry
func NewNativeRegistry() *NativeRegistry {
	return &NativeRegistry{procs: make(map[uint64]NativeFunc)}
}

// Register binds id to fn, replacing any previous binding
func (r *NativeRegistry) Register(id uint64, fn NativeFunc) {
	r.procs[id] = fn
}

// Lookup returns the native procedure bound to id, or nil
func (r *NativeRegistry) Lookup(id uint64) NativeFunc {
	return r.procs[id]
}

// RegisterReserved installs the reserved native procedures.
//
// All of them peek their arguments rather than pop: consumption is the
// calling program's responsibility via USUŃ. Programs rely on this to
// chain Read with a Write that still sees the same address.
func RegisterReserved(r *NativeRegistry) {
	r.Register(NatPutC, natPutC)
	r.Register(NatPutZ, natPutZ)
	r.Register(NatPutU, natPutU)
	r.Register(NatGetC, natGetC)
	r.Register(NatGetZ, natGetZ)
	r.Register(NatGetU, natGetU)
	r.Register(NatAlloc, natAlloc)
	r.Register(NatFree, natFree)
	r.Register(NatRead, natRead)
	r.Register(NatWrite, natWrite)
	r.Register(NatPrint, natPrint)
}

// I/O natives

func natPutC(m *Machine) error {
	w, err := m.Stack.Peek(0)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(m.Output, "%d", w)
	return err
}

func natPutZ(m *Machine) error {
	w, err := m.Stack.Peek(0)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(m.Output, "%v", asFloat(w))
	return err
}

func natPutU(m *Machine) error {
	w, err := m.Stack.Peek(0)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(m.Output, "%c", rune(uint32(w)))
	return err
}

func natGetC(m *Machine) error {
	line, err := m.readLine()
	if err != nil {
		return errors.Wrap(err, "stdin failed")
	}
	n, err := strconv.ParseUint(strings.TrimSpace(line), 10, 64)
	if err != nil {
		return errors.New("got invalid input, expected integer")
	}
	m.Stack.Push(n)
	return nil
}

func natGetZ(m *Machine) error {
	line, err := m.readLine()
	if err != nil {
		return errors.Wrap(err, "stdin failed")
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(line), 64)
	if err != nil {
		return errors.New("got invalid input, expected float")
	}
	m.Stack.Push(fromFloat(f))
	return nil
}

func natGetU(m *Machine) error {
	for {
		line, err := m.readLine()
		if err != nil {
			return errors.Wrap(err, "stdin failed")
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			continue
		}
		m.Stack.Push(uint64([]rune(line)[0]))
		return nil
	}
}

// Memory natives

func natAlloc(m *Machine) error {
	n, err := m.Stack.Peek(0)
	if err != nil {
		return err
	}
	m.Stack.Push(m.Heap.Alloc(n))
	return nil
}

func natFree(m *Machine) error {
	addr, err := m.Stack.Peek(0)
	if err != nil {
		return err
	}
	return m.Heap.Free(addr)
}

func natRead(m *Machine) error {
	idx, err := m.Stack.Peek(0)
	if err != nil {
		return err
	}
	addr, err := m.Stack.Peek(1)
	if err != nil {
		return err
	}
	w, err := m.Heap.Read(addr, idx)
	if err != nil {
		return err
	}
	m.Stack.Push(w)
	return nil
}

func natWrite(m *Machine) error {
	value, err := m.Stack.Peek(0)
	if err != nil {
		return err
	}
	idx, err := m.Stack.Peek(1)
	if err != nil {
		return err
	}
	addr, err := m.Stack.Peek(2)
	if err != nil {
		return err
	}
	return m.Heap.Write(addr, idx, value)
}

// String natives

// natPrint treats the block at the peeked address as a packed string:
// each cell holds 8 little-endian bytes, terminated by the first NUL
// anywhere in the block. The bytes decode as UTF-8.
func natPrint(m *Machine) error {
	addr, err := m.Stack.Peek(0)
	if err != nil {
		return err
	}
	block, err := m.Heap.block(addr)
	if err != nil {
		return err
	}

	var buf []byte
	var cell [8]byte
loop:
	for _, w := range block {
		binary.LittleEndian.PutUint64(cell[:], w)
		for _, b := range cell {
			if b == 0 {
				break loop
			}
			buf = append(buf, b)
		}
	}

	_, err = fmt.Fprint(m.Output, string(buf))
	return err
}
