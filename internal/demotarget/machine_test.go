package demotarget

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMachineRegisterRoundTrip(t *testing.T) {
	m := NewMachine(64)

	in := make([]byte, NumRegisters*8)
	for i := range in {
		in[i] = byte(i)
	}

	m.WriteRegisters(in)
	require.Equal(t, in, m.ReadRegisters())
}

func TestMachineSingleRegisterAccessors(t *testing.T) {
	m := NewMachine(64)

	ok := m.WriteRegister(2, []byte{1, 2, 3, 4, 5, 6, 7, 8})
	require.True(t, ok)

	got, ok := m.ReadRegister(2)
	require.True(t, ok)
	require.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7, 8}, got)

	_, ok = m.ReadRegister(NumRegisters)
	require.False(t, ok, "out-of-range register id should fail")

	ok = m.WriteRegister(0, []byte{1, 2, 3})
	require.False(t, ok, "short source buffer should fail")
}

func TestMachineMemoryReadWrite(t *testing.T) {
	m := NewMachine(16)

	ok := m.WriteMemory(4, []byte{0xde, 0xad, 0xbe, 0xef})
	require.True(t, ok)

	dst := make([]byte, 4)
	n := m.ReadMemory(4, dst)
	require.Equal(t, 4, n)
	require.Equal(t, []byte{0xde, 0xad, 0xbe, 0xef}, dst)

	ok = m.WriteMemory(15, []byte{1, 2, 3})
	require.False(t, ok, "write past the end of memory should fail")
}

func TestMachineReadMemoryPastEnd(t *testing.T) {
	m := NewMachine(8)

	n := m.ReadMemory(8, make([]byte, 4))
	require.Zero(t, n, "reading at/past the memory size should copy nothing")
}

func TestMachineStepAdvancesPC(t *testing.T) {
	m := NewMachine(8)
	m.LoadProgram(0, []byte{0x90})

	require.Equal(t, uint64(0), m.PC())
	m.Step()
	require.Equal(t, uint64(1), m.PC())
}

func TestMachineBreakpointLifecycle(t *testing.T) {
	m := NewMachine(8)

	require.True(t, m.AddSwBreakpoint(4))
	require.False(t, m.AddSwBreakpoint(4), "duplicate add should report false")
	require.False(t, m.AtBreakpoint(), "pc is 0, breakpoint is at 4")

	m.LoadProgram(4, nil)
	require.True(t, m.AtBreakpoint())

	require.True(t, m.RemoveSwBreakpoint(4))
	require.False(t, m.RemoveSwBreakpoint(4), "removing twice should report false")
	require.False(t, m.AtBreakpoint())
}

func TestMachineWatchpointLifecycle(t *testing.T) {
	m := NewMachine(8)

	require.True(t, m.AddWatchpoint(0, 4, 1))
	require.False(t, m.AddWatchpoint(0, 4, 1), "duplicate watch should report false")
	require.True(t, m.RemoveWatchpoint(0, 4, 1))
	require.False(t, m.RemoveWatchpoint(0, 4, 1), "removing twice should report false")
}

func TestMachineHaltContinue(t *testing.T) {
	m := NewMachine(8)
	require.True(t, m.Halted())

	m.Continue()
	require.False(t, m.Halted())

	m.Halt()
	require.True(t, m.Halted())
}
