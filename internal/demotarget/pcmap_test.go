package demotarget

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func sampleDebugInfo() ProgramDebugInfo {
	return ProgramDebugInfo{
		Modules: []ModuleDebugInfo{
			{
				ModuleName: "main",
				Functions: []FunctionInfo{
					{
						Name: "add",
						Lines: []LineEntry{
							{File: "main.src", Line: 10},
							{File: "main.src", Line: 11},
						},
					},
					{
						Name:  "main",
						Lines: []LineEntry{{File: "main.src", Line: 1}},
					},
				},
			},
		},
	}
}

func TestBuildPCMapOrdersFunctionsByName(t *testing.T) {
	m := BuildPCMap(sampleDebugInfo())
	require.Len(t, m.Ranges, 2)

	// "add" sorts before "main", so it owns the low range.
	require.Equal(t, uint64(0), m.Ranges[0].Low)
	require.Equal(t, uint64(8), m.Ranges[0].High) // 2 lines * 4 bytes
	require.Equal(t, uint64(8), m.Ranges[1].Low)
	require.Equal(t, uint64(12), m.Ranges[1].High) // 1 line * 4 bytes
}

func TestPCMapAddrToLine(t *testing.T) {
	m := BuildPCMap(sampleDebugInfo())

	file, line, ok := m.AddrToLine(0)
	require.True(t, ok)
	require.Equal(t, "main.src", file)
	require.Equal(t, 10, line)

	file, line, ok = m.AddrToLine(4)
	require.True(t, ok)
	require.Equal(t, 11, line)

	_, _, ok = m.AddrToLine(12)
	require.False(t, ok, "address beyond every range should fail")
}

func TestPCMapAddrToLineEmptyFunction(t *testing.T) {
	info := ProgramDebugInfo{
		Modules: []ModuleDebugInfo{
			{ModuleName: "m", Functions: []FunctionInfo{{Name: "noop"}}},
		},
	}

	m := BuildPCMap(info)
	require.Len(t, m.Ranges, 1)
	require.Equal(t, uint64(4), m.Ranges[0].High, "a function with no lines still claims one 4-byte slot")

	_, _, ok := m.AddrToLine(0)
	require.True(t, ok, "a range with no FileLines still resolves, just without file/line")
}

func TestDebugInfoSerializeRoundTrip(t *testing.T) {
	info := sampleDebugInfo()

	raw, err := Serialize(info)
	require.NoError(t, err)

	got, err := Deserialize(raw)
	require.NoError(t, err)
	require.Equal(t, info.Modules[0].ModuleName, got.Modules[0].ModuleName)
	require.Equal(t, info.Modules[0].Functions[0].Name, got.Modules[0].Functions[0].Name)
}
