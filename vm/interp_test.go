package vm

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lookbusy1344/cvma-interpreter/parser"
)

// runSource parses and executes CVMA source text, returning the
// machine, its captured output and the run error
func runSource(t *testing.T, source, input string) (*Machine, *bytes.Buffer, error) {
	t.Helper()

	program := parser.NewParser(source, "test.cvma").Parse()
	require.False(t, program.Errors.HasErrors(), "unexpected parse errors: %v", program.Errors)

	m := NewMachine(program)
	out := &bytes.Buffer{}
	m.Output = out
	if input != "" {
		m.SetInput(strings.NewReader(input))
	}
	return m, out, m.Run()
}

func TestScenarioArithmetic(t *testing.T) {
	source := `@CVMA 1
@Procedura 0 "main" 0
PCHNIJ 2
PCHNIJ 3
DODAJ.C
NAT 0
USUŃ
STOP
WRÓĆ
`
	_, out, err := runSource(t, source, "")
	require.NoError(t, err)
	assert.Equal(t, "5", out.String())
}

func TestScenarioConditionalJump(t *testing.T) {
	source := `@CVMA 1
@Procedura 0 "main" 0
PCHNIJ 0
IDŹDO.ZE 5
PCHNIJ 1
NAT 0
USUŃ
WRÓĆ
`
	_, out, err := runSource(t, source, "")
	require.NoError(t, err)
	assert.Empty(t, out.String(), "the jump should have skipped the print")
}

func TestScenarioProcedureCall(t *testing.T) {
	source := `@CVMA 1
@Procedura 1 "suma" 2
ZMIENNA.K 0
ZMIENNA.K 1
DODAJ.C
WRÓĆ
@Procedura 0 "main" 0
PCHNIJ 7
PCHNIJ 8
WYWOŁAJ 1
NAT 0
USUŃ
WRÓĆ
`
	_, out, err := runSource(t, source, "")
	require.NoError(t, err)
	assert.Equal(t, "15", out.String())
}

func TestScenarioHeapRoundTrip(t *testing.T) {
	source := `@CVMA 1
@Procedura 0 "main" 0
PCHNIJ 4
NAT 10      ; allocate, address lands on top
ZMIENNA.U 0 ; keep just the address in slot 0
PCHNIJ 2
PCHNIJ d42
NAT 13      ; write heap[addr][2] = 42
USUŃ
USUŃ
PCHNIJ 2
NAT 12      ; read it back
NAT 0
WRÓĆ
`
	_, out, err := runSource(t, source, "")
	require.NoError(t, err)
	assert.Equal(t, "42", out.String())
}

func TestScenarioParseError(t *testing.T) {
	source := `@CVMA 1
@Procedura 0 "main" 0
FOO
WRÓĆ
`
	program := parser.NewParser(source, "test.cvma").Parse()
	require.True(t, program.Errors.HasErrors())

	e := program.Errors.Errors[0]
	assert.Equal(t, parser.ErrInstructionUnknown, e.Kind)
	assert.Equal(t, 3, e.Pos.Line)
}

func TestScenarioMissingMain(t *testing.T) {
	source := `@CVMA 1
@Procedura x1 "pomocnik" 0
STOP
WRÓĆ
`
	program := parser.NewParser(source, "test.cvma").Parse()
	require.False(t, program.Errors.HasErrors(), "unexpected parse errors: %v", program.Errors)

	m := NewMachine(program)
	m.Output = &bytes.Buffer{}
	err := m.Run()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "main procedure is not defined")
}

func TestScenarioInputEcho(t *testing.T) {
	source := `@CVMA 1
@Procedura 0 "main" 0
NAT 3
NAT 0
USUŃ
WRÓĆ
`
	_, out, err := runSource(t, source, "777\n")
	require.NoError(t, err)
	assert.Equal(t, "777", out.String())
}

func TestScenarioFibonacci(t *testing.T) {
	// fib(n) computed recursively; prints fib(10) = 55. The early
	// return for n < 2 uses STOP, which terminates the activation
	// without sealing the procedure at assembly time.
	source := `@CVMA 1
@Procedura 1 "fib" 1
ZMIENNA.K 0
PCHNIJ 2
MNIEJ.C
IDŹDO.ZE 6
ZMIENNA.K 0
STOP
ZMIENNA.K 0
PCHNIJ 1
ODEJM.C
WYWOŁAJ 1
ZMIENNA.K 0
PCHNIJ 2
ODEJM.C
WYWOŁAJ 1
DODAJ.C
WRÓĆ
@Procedura 0 "main" 0
PCHNIJ d10
WYWOŁAJ 1
NAT 0
USUŃ
WRÓĆ
`
	_, out, err := runSource(t, source, "")
	require.NoError(t, err)
	assert.Equal(t, "55", out.String())
}

func TestScenarioDumpState(t *testing.T) {
	source := `@CVMA 1
@Procedura 0 "main" 0
PCHNIJ 1
PCHNIJ 2
PCHNIJ 4
NAT 10
WRÓĆ
`
	m, _, err := runSource(t, source, "")
	require.NoError(t, err)

	var dump bytes.Buffer
	m.DumpState(&dump, "hex")
	assert.Contains(t, dump.String(), "Value stack:")
	assert.Contains(t, dump.String(), "0x1, 0x2, 0x4, 0x0")
	assert.Contains(t, dump.String(), "Allocation table (1 live)")

	dump.Reset()
	m.DumpState(&dump, "dec")
	assert.Contains(t, dump.String(), "1, 2, 4, 0")
}
