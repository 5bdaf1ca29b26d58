package transport

import (
	"fmt"

	"github.com/Masterminds/semver/v3"
)

// MinGDBProtocolVersion is the lowest client version CheckClientVersion
// accepts.
var MinGDBProtocolVersion = semver.MustParse("1.0.0")

// CheckClientVersion parses raw and reports whether it satisfies >=
// MinGDBProtocolVersion. No qSupported or qRcmd handler calls it; nothing
// in the daemon feeds it a client version.
func CheckClientVersion(raw string) (bool, error) {
	v, err := semver.NewVersion(raw)
	if err != nil {
		return false, fmt.Errorf("parse client version %q: %w", raw, err)
	}

	return v.Compare(MinGDBProtocolVersion) >= 0, nil
}
