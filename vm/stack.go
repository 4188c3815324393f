package vm

import "github.com/pkg/errors"

// Stack is the shared value stack. It grows and shrinks at the top and
// supports O(1) indexed access for the ZMIENNA.K/U local-variable
// window. Only the currently executing activation mutates it.
type Stack struct {
	cells []uint64
}

// NewStack creates an empty value stack
func NewStack() *Stack {
	return &Stack{}
}

// Len returns the current stack depth
func (s *Stack) Len() int {
	return len(s.cells)
}

// Push appends a word at the top
func (s *Stack) Push(w uint64) {
	s.cells = append(s.cells, w)
}

// Pop removes and returns the top word. Popping an empty stack is a
// fatal runtime condition and surfaces as an error.
func (s *Stack) Pop() (uint64, error) {
	if len(s.cells) == 0 {
		return 0, errors.New("value stack is empty")
	}
	w := s.cells[len(s.cells)-1]
	s.cells = s.cells[:len(s.cells)-1]
	return w, nil
}

// Pop2 removes the top two words and returns them as (deeper, top)
func (s *Stack) Pop2() (x, y uint64, err error) {
	if y, err = s.Pop(); err != nil {
		return 0, 0, err
	}
	if x, err = s.Pop(); err != nil {
		return 0, 0, err
	}
	return x, y, nil
}

// Peek returns the word n slots below the top without removing it
func (s *Stack) Peek(n int) (uint64, error) {
	i := len(s.cells) - 1 - n
	if i < 0 {
		return 0, errors.Errorf("value stack too shallow to peek %d below top", n)
	}
	return s.cells[i], nil
}

// At returns the word at absolute index i
func (s *Stack) At(i uint64) (uint64, error) {
	if i >= uint64(len(s.cells)) {
		return 0, errors.Errorf("stack index %d out of range", i)
	}
	return s.cells[i], nil
}

// SetAt overwrites the word at absolute index i
func (s *Stack) SetAt(i uint64, w uint64) error {
	if i >= uint64(len(s.cells)) {
		return errors.Errorf("stack index %d out of range", i)
	}
	s.cells[i] = w
	return nil
}

// TrimTo pops words until at most n remain
func (s *Stack) TrimTo(n int) {
	if n < 0 {
		n = 0
	}
	if len(s.cells) > n {
		s.cells = s.cells[:n]
	}
}

// Cells returns the underlying slice, bottom first. Callers must treat
// it as read-only; it is exposed for the debug dump and the inspector.
func (s *Stack) Cells() []uint64 {
	return s.cells
}
