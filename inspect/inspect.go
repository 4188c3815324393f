// Package inspect shows the final machine state in a read-only
// terminal UI: the value stack, the heap-block table and the parsed
// procedures, each in its own panel. It runs strictly after execution
// has finished; there is no stepping.
package inspect

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/lookbusy1344/cvma-interpreter/vm"
)

// Inspector holds the tview application and its panels
type Inspector struct {
	machine *vm.Machine

	app        *tview.Application
	layout     *tview.Flex
	stackView  *tview.TextView
	heapView   *tview.TextView
	procedures *tview.TextView
}

// New creates an inspector over a finished machine
func New(machine *vm.Machine) *Inspector {
	ins := &Inspector{
		machine: machine,
		app:     tview.NewApplication(),
	}

	ins.initializeViews()
	ins.buildLayout()
	ins.setupKeyBindings()

	return ins
}

func (ins *Inspector) initializeViews() {
	ins.stackView = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetWrap(false)
	ins.stackView.SetBorder(true).SetTitle(" Value Stack ")

	ins.heapView = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetWrap(false)
	ins.heapView.SetBorder(true).SetTitle(" Heap Blocks ")

	ins.procedures = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetWrap(false)
	ins.procedures.SetBorder(true).SetTitle(" Procedures ")
}

func (ins *Inspector) buildLayout() {
	left := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(ins.stackView, 0, 1, true).
		AddItem(ins.heapView, 0, 1, false)

	ins.layout = tview.NewFlex().
		AddItem(left, 0, 1, true).
		AddItem(ins.procedures, 0, 1, false)
}

func (ins *Inspector) setupKeyBindings() {
	ins.app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyEscape, tcell.KeyCtrlC:
			ins.app.Stop()
			return nil
		case tcell.KeyRune:
			if event.Rune() == 'q' {
				ins.app.Stop()
				return nil
			}
		}
		return event
	})
}

func (ins *Inspector) renderStack() {
	var sb strings.Builder
	cells := ins.machine.Stack.Cells()
	if len(cells) == 0 {
		sb.WriteString("[gray](empty)[-]\n")
	}
	for i := len(cells) - 1; i >= 0; i-- {
		marker := "  "
		if i == len(cells)-1 {
			marker = "[yellow]>[-] "
		}
		fmt.Fprintf(&sb, "%s[blue]%4d[-]  %#016x  %d\n", marker, i, cells[i], cells[i])
	}
	ins.stackView.SetText(sb.String())
}

func (ins *Inspector) renderHeap() {
	var sb strings.Builder
	blocks := ins.machine.Heap.Blocks()
	if len(blocks) == 0 {
		sb.WriteString("[gray](no allocations)[-]\n")
	}
	for addr, block := range blocks {
		if block == nil {
			fmt.Fprintf(&sb, "[blue]%#04x[-]  [gray]freed[-]\n", addr)
			continue
		}
		fmt.Fprintf(&sb, "[blue]%#04x[-]  %d cells\n", addr, len(block))
		for i, v := range block {
			fmt.Fprintf(&sb, "      [%d] %#016x\n", i, v)
		}
	}
	ins.heapView.SetText(sb.String())
}

func (ins *Inspector) renderProcedures() {
	var sb strings.Builder
	for _, proc := range ins.machine.Program.Procedures {
		fmt.Fprintf(&sb, "[yellow]%#x[-] %q (%d params)\n", proc.Index, proc.Name, proc.ParamCount)
		for i, inst := range proc.Code {
			fmt.Fprintf(&sb, "  [blue]%3d[-]  %s\n", i, inst)
		}
		sb.WriteString("\n")
	}
	ins.procedures.SetText(sb.String())
}

// Run renders the panels and blocks until the user quits
func (ins *Inspector) Run() error {
	ins.renderStack()
	ins.renderHeap()
	ins.renderProcedures()

	ins.app.SetRoot(ins.layout, true)
	return ins.app.Run()
}
