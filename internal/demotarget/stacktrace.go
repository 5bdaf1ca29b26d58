package demotarget

import (
	"encoding/json"
	"sort"
)

// Frame is a single stack frame in the demo target's pseudo call stack.
type Frame struct {
	Function string `json:"function"`
	File     string `json:"file"`
	PC       uint64 `json:"pc"`
	Line     int    `json:"line"`
}

// StackTrace is a sequence of frames, top (current) first.
type StackTrace struct {
	Frames []Frame `json:"frames"`
}

// BuildStackTrace produces the current frame plus, when available, one
// neighboring frame on either side of it in pseudo-address order. The demo
// machine has no real call stack to unwind, so this is a best-effort
// approximation, used by the qRcmd "backtrace" monitor command.
func BuildStackTrace(pcmap *PCMap, info ProgramDebugInfo, pc uint64) StackTrace {
	mods := make([]ModuleDebugInfo, len(info.Modules))
	copy(mods, info.Modules)
	sort.Slice(mods, func(i, j int) bool { return mods[i].ModuleName < mods[j].ModuleName })

	var curFn, curFile string

	var curLine int

	for _, r := range pcmap.Ranges {
		if pc < r.Low || pc >= r.High {
			continue
		}

		if len(r.FileLines) > 0 {
			off := int((pc - r.Low) / 4)
			if off >= len(r.FileLines) {
				off = len(r.FileLines) - 1
			}

			curFile = r.FileLines[off].File
			curLine = r.FileLines[off].Line
		}

		var pcCursor uint64

	findFn:
		for _, md := range mods {
			fns := make([]FunctionInfo, len(md.Functions))
			copy(fns, md.Functions)
			sort.Slice(fns, func(i, j int) bool { return fns[i].Name < fns[j].Name })

			for _, fn := range fns {
				sz := len(fn.Lines)
				if sz == 0 {
					sz = 1
				}

				low, high := pcCursor, pcCursor+uint64(sz*4)
				if pc >= low && pc < high {
					curFn = fn.Name

					break findFn
				}

				pcCursor = high
			}
		}

		break
	}

	frames := make([]Frame, 0, 3)
	frames = append(frames, Frame{PC: pc, Function: curFn, File: curFile, Line: curLine})

	var prev, next *PCRange

	for i := range pcmap.Ranges {
		r := pcmap.Ranges[i]
		if pc < r.Low || pc >= r.High {
			continue
		}

		if i > 0 {
			prev = &pcmap.Ranges[i-1]
		}

		if i+1 < len(pcmap.Ranges) {
			next = &pcmap.Ranges[i+1]
		}

		break
	}

	if prev != nil {
		file, line := "", 0
		if len(prev.FileLines) > 0 {
			file = prev.FileLines[len(prev.FileLines)-1].File
			line = prev.FileLines[len(prev.FileLines)-1].Line
		}

		frames = append(frames, Frame{PC: prev.High - 4, File: file, Line: line})
	}

	if next != nil {
		file, line := "", 0
		if len(next.FileLines) > 0 {
			file = next.FileLines[0].File
			line = next.FileLines[0].Line
		}

		frames = append(frames, Frame{PC: next.Low, File: file, Line: line})
	}

	return StackTrace{Frames: frames}
}

// EncodeStackTraceJSON encodes the stack trace into JSON bytes.
func EncodeStackTraceJSON(st StackTrace) []byte {
	b, _ := json.Marshal(st)
	return b
}
