package vm

import "github.com/pkg/errors"

// Heap is the allocation table of fixed-length blocks of value cells.
// Addresses are slot indices into the table. Freeing tombstones the
// slot instead of removing it, so addresses held by the program stay
// stable; Alloc reuses the lowest tombstoned slot before growing the
// table. Touching a freed or never-allocated slot is fatal.
type Heap struct {
	blocks [][]uint64 // nil entry = freed slot
}

// NewHeap creates an empty heap table
func NewHeap() *Heap {
	return &Heap{}
}

// Alloc places a block of n zero cells in the lowest freed slot, or
// appends it when no slot is free, and returns its address
func (h *Heap) Alloc(n uint64) uint64 {
	block := make([]uint64, n)

	for addr, b := range h.blocks {
		if b == nil {
			h.blocks[addr] = block
			return uint64(addr)
		}
	}

	h.blocks = append(h.blocks, block)
	return uint64(len(h.blocks) - 1)
}

// block resolves an address to a live block
func (h *Heap) block(addr uint64) ([]uint64, error) {
	if addr >= uint64(len(h.blocks)) || h.blocks[addr] == nil {
		return nil, errors.Errorf("heap block %#x does not exist", addr)
	}
	return h.blocks[addr], nil
}

// Free tombstones the slot at addr; later addresses do not shift
func (h *Heap) Free(addr uint64) error {
	if _, err := h.block(addr); err != nil {
		return err
	}
	h.blocks[addr] = nil
	return nil
}

// Read returns cell idx of the block at addr
func (h *Heap) Read(addr, idx uint64) (uint64, error) {
	b, err := h.block(addr)
	if err != nil {
		return 0, err
	}
	if idx >= uint64(len(b)) {
		return 0, errors.Errorf("heap index %d out of range for block %#x of length %d", idx, addr, len(b))
	}
	return b[idx], nil
}

// Write sets cell idx of the block at addr
func (h *Heap) Write(addr, idx, value uint64) error {
	b, err := h.block(addr)
	if err != nil {
		return err
	}
	if idx >= uint64(len(b)) {
		return errors.Errorf("heap index %d out of range for block %#x of length %d", idx, addr, len(b))
	}
	b[idx] = value
	return nil
}

// Blocks returns the raw table, freed slots included as nil. Exposed
// for the debug dump and the inspector; callers must not mutate it.
func (h *Heap) Blocks() [][]uint64 {
	return h.blocks
}

// Live returns the number of allocated (non-freed) blocks
func (h *Heap) Live() int {
	n := 0
	for _, b := range h.blocks {
		if b != nil {
			n++
		}
	}
	return n
}
