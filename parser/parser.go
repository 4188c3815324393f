package parser

import (
	"fmt"
	"os"
	"strings"
)

// directiveKind discriminates decoded directives
type directiveKind int

const (
	directiveVersion directiveKind = iota
	directiveProcedure
	directiveInvalid
)

// directive is a decoded @-line
type directive struct {
	kind       directiveKind
	version    uint64
	index      uint64
	name       string
	paramCount uint64
}

// Parser assembles decoded lines into a Program
type Parser struct {
	lexer  *Lexer
	errors *ErrorList
}

// NewParser creates a new parser for the given source text
func NewParser(input, filename string) *Parser {
	return &Parser{
		lexer:  NewLexer(input, filename),
		errors: &ErrorList{},
	}
}

// ParseFile reads and parses a CVMA source file. The raw source text is
// returned alongside the program so diagnostics can quote it.
func ParseFile(path string) (*Program, string, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- user-supplied source path
	if err != nil {
		return nil, "", fmt.Errorf("failed to read source file: %w", err)
	}
	source := string(data)
	program := NewParser(source, path).Parse()
	return program, source, nil
}

// decodeInstruction maps a mnemonic and its parameter string to a typed
// instruction. Unknown mnemonics decode to the BrakOperacji sentinel
// and record an error; the sentinel must never survive to execution.
func (p *Parser) decodeInstruction(ln Line) Instruction {
	num := func(defaultDec bool) uint64 {
		return ParseNumber(ln.Params, defaultDec, ln.Pos, p.errors)
	}

	switch ln.Mnemonic {
	// Stack
	case "PCHNIJ":
		return Instruction{Op: Pchnij, Operand: num(false)}
	case "USUŃ":
		return Instruction{Op: Usun}
	case "ZMIENNA.K":
		return Instruction{Op: ZmiennaK, Operand: num(true)}
	case "ZMIENNA.U":
		return Instruction{Op: ZmiennaU, Operand: num(true)}

	// Arithmetic
	case "DODAJ.C":
		return Instruction{Op: DodajC}
	case "DODAJ.Z":
		return Instruction{Op: DodajZ}
	case "ODEJM.C":
		return Instruction{Op: OdejmC}
	case "ODEJM.Z":
		return Instruction{Op: OdejmZ}
	case "MNÓŻ.C":
		return Instruction{Op: MnozC}
	case "MNÓŻ.Z":
		return Instruction{Op: MnozZ}
	case "DZIEL.C":
		return Instruction{Op: DzielC}
	case "DZIEL.Z":
		return Instruction{Op: DzielZ}
	case "RESZTA.C":
		return Instruction{Op: ResztaC}
	case "RESZTA.Z":
		return Instruction{Op: ResztaZ}

	// Conversions
	case "JAKO.CZ":
		return Instruction{Op: JakoCZ}
	case "JAKO.ZC":
		return Instruction{Op: JakoZC}

	// Comparisons
	case "NIE.L":
		return Instruction{Op: NieL}
	case "RÓWNE":
		return Instruction{Op: Rowne}
	case "RÓWNE.Z":
		return Instruction{Op: RowneZ}
	case "MNIEJ.C":
		return Instruction{Op: MniejC}
	case "MNIEJ.Z":
		return Instruction{Op: MniejZ}
	case "MNRÓW.C":
		return Instruction{Op: MNrowC}
	case "MNRÓW.Z":
		return Instruction{Op: MNrowZ}

	// Bitwise
	case "NIE.B":
		return Instruction{Op: NieB}
	case "I":
		return Instruction{Op: I}
	case "LUB":
		return Instruction{Op: Lub}
	case "XLUB":
		return Instruction{Op: XLub}
	case "PRZESUŃ.L":
		return Instruction{Op: PrzesunL}
	case "PRZESUŃ.R":
		return Instruction{Op: PrzesunR}

	// PC register manipulation
	case "IDŹDO":
		return Instruction{Op: IdzDo, Operand: num(false)}
	case "IDŹDO.ZE":
		return Instruction{Op: IdzDoZe, Operand: num(false)}
	case "IDŹDO.NZ":
		return Instruction{Op: IdzDoNz, Operand: num(false)}
	case "WYWOŁAJ":
		return Instruction{Op: Wywolaj, Operand: num(false)}
	case "WRÓĆ":
		return Instruction{Op: Wroc}
	case "STOP":
		return Instruction{Op: Stop}

	// Interpreter communication
	case "NAT":
		return Instruction{Op: Nat, Operand: num(false)}
	}

	p.errors.Add(ln.Pos, ErrInstructionUnknown)
	return Instruction{Op: BrakOperacji}
}

// decodeDirective maps an @-line to a typed directive. The @Procedura
// parameter string splits on the string fence into {index, name,
// parameter count}; index is hex by default, parameter count decimal.
func (p *Parser) decodeDirective(ln Line) directive {
	switch ln.Mnemonic {
	case "@CVMA":
		return directive{
			kind:    directiveVersion,
			version: ParseNumber(ln.Params, true, ln.Pos, p.errors),
		}

	case "@Procedura":
		parts := strings.Split(ln.Params, StringFence)
		if len(parts) < 3 {
			p.errors.Add(ln.Pos, ErrDirectiveNotEnoughParameters)
			return directive{kind: directiveProcedure}
		}
		return directive{
			kind:       directiveProcedure,
			index:      ParseNumber(parts[0], false, ln.Pos, p.errors),
			name:       parts[1],
			paramCount: ParseNumber(parts[2], true, ln.Pos, p.errors),
		}
	}

	p.errors.Add(ln.Pos, ErrDirectiveUnknown)
	return directive{kind: directiveInvalid}
}

// Parse runs the lexer over the whole input and assembles procedures.
// Parsing never stops at the first problem: every error lands in the
// program's error list and the caller decides whether to execute.
func (p *Parser) Parse() *Program {
	program := &Program{Errors: p.errors}

	var open *Procedure
	var lastPos Position

	for _, ln := range p.lexer.Lines() {
		lastPos = ln.Pos

		if strings.HasPrefix(ln.Mnemonic, "@") {
			dir := p.decodeDirective(ln)
			switch dir.kind {
			case directiveVersion:
				program.Version = dir.version
			case directiveProcedure:
				if open != nil {
					// The previous procedure never saw WRÓĆ.
					p.errors.Add(ln.Pos, ErrProcedureUnterminated)
				}
				if program.Lookup(dir.index) != nil {
					p.errors.Add(ln.Pos, ErrProcedureDuplicateIndex)
				}
				open = &Procedure{
					Index:      dir.index,
					Name:       dir.name,
					ParamCount: dir.paramCount,
				}
			}
			continue
		}

		inst := p.decodeInstruction(ln)

		if open == nil {
			pos := ln.Pos
			pos.Column = 1
			p.errors.Add(pos, ErrInstructionOutsideOfProcedure)
			continue
		}

		open.Code = append(open.Code, inst)

		if inst.Op == Wroc {
			program.Procedures = append(program.Procedures, open)
			open = nil
		}
	}

	if open != nil {
		p.errors.Add(lastPos, ErrProcedureUnterminated)
	}

	return program
}
