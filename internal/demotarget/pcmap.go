package demotarget

import (
	"fmt"
	"sort"
	"strings"
)

// PCRange is a contiguous pseudo-PC range owned by a single function.
type PCRange struct {
	Low       uint64
	High      uint64
	Module    string
	FileLines []LineEntry
}

// PCMap maps pseudo addresses back to source lines for ProgramDebugInfo.
type PCMap struct {
	Ranges []PCRange
}

// BuildPCMap assigns each function a contiguous pseudo-address range, four
// bytes per recorded line (minimum one line), in (module, function) name
// order so the mapping is reproducible across runs of the same image.
func BuildPCMap(info ProgramDebugInfo) *PCMap {
	m := &PCMap{}

	mods := make([]ModuleDebugInfo, len(info.Modules))
	copy(mods, info.Modules)
	sort.Slice(mods, func(i, j int) bool { return mods[i].ModuleName < mods[j].ModuleName })

	pc := uint64(0)

	for _, md := range mods {
		fns := make([]FunctionInfo, len(md.Functions))
		copy(fns, md.Functions)
		sort.Slice(fns, func(i, j int) bool { return fns[i].Name < fns[j].Name })

		for _, fn := range fns {
			lines := make([]LineEntry, len(fn.Lines))
			copy(lines, fn.Lines)

			szLines := len(lines)
			if szLines == 0 {
				szLines = 1
			}

			size := uint64(szLines * 4)
			m.Ranges = append(m.Ranges, PCRange{Low: pc, High: pc + size, Module: md.ModuleName, FileLines: lines})
			pc += size
		}
	}

	return m
}

// AddrToLine resolves a pseudo address to a file/line pair using a constant
// 4-byte step per line entry within the owning function's range.
func (m *PCMap) AddrToLine(addr uint64) (file string, line int, ok bool) {
	for _, r := range m.Ranges {
		if addr < r.Low || addr >= r.High {
			continue
		}

		if len(r.FileLines) == 0 {
			return "", 0, true
		}

		idx := int((addr - r.Low) / 4)
		if idx >= len(r.FileLines) {
			idx = len(r.FileLines) - 1
		}

		le := r.FileLines[idx]

		return le.File, le.Line, true
	}

	return "", 0, false
}

// LibraryListSVR4XML renders pcmap's modules as an SVR4 library list, one
// <library> entry per module at the pseudo-address its lowest-addressed
// function occupies.
func LibraryListSVR4XML(pcmap *PCMap) []byte {
	bases := make(map[string]uint64)

	for _, r := range pcmap.Ranges {
		if r.Module == "" {
			continue
		}

		if cur, ok := bases[r.Module]; !ok || r.Low < cur {
			bases[r.Module] = r.Low
		}
	}

	names := make([]string, 0, len(bases))
	for name := range bases {
		names = append(names, name)
	}

	sort.Strings(names)

	var b strings.Builder

	b.WriteString(`<?xml version="1.0"?>`)
	b.WriteString(`<library-list-svr4 version="1.0">`)

	for _, name := range names {
		fmt.Fprintf(&b, `<library name=%q lm="0x0" l_addr="0x%x" l_ld="0x0"/>`, name, bases[name])
	}

	b.WriteString(`</library-list-svr4>`)

	return []byte(b.String())
}
