package demotarget

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildStackTraceCurrentFrame(t *testing.T) {
	info := sampleDebugInfo()
	m := BuildPCMap(info)

	st := BuildStackTrace(m, info, 0)
	require.NotEmpty(t, st.Frames)
	require.Equal(t, uint64(0), st.Frames[0].PC)
	require.Equal(t, "add", st.Frames[0].Function)
	require.Equal(t, 10, st.Frames[0].Line)
}

func TestBuildStackTraceIncludesNeighborFrames(t *testing.T) {
	info := sampleDebugInfo()
	m := BuildPCMap(info)

	// pc 8 is the start of the "main" range, which has both a previous
	// ("add") and no next range.
	st := BuildStackTrace(m, info, 8)
	require.Equal(t, "main", st.Frames[0].Function)
	require.Len(t, st.Frames, 2, "expected current frame plus one previous neighbor")
}

func TestEncodeStackTraceJSON(t *testing.T) {
	st := StackTrace{Frames: []Frame{{Function: "add", PC: 4, Line: 11, File: "main.src"}}}

	raw := EncodeStackTraceJSON(st)

	var got StackTrace
	require.NoError(t, json.Unmarshal(raw, &got))
	require.Equal(t, st, got)
}
