package commands

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nervctl/rspstub/internal/adminapi"
)

func TestPrintSessionsTableIncludesEachRow(t *testing.T) {
	var buf bytes.Buffer

	sessions := []adminapi.SessionInfo{
		{ID: "a", RemoteAddr: "127.0.0.1:1", State: "Idle", StartedAt: time.Unix(0, 0).UTC()},
		{ID: "b", RemoteAddr: "127.0.0.1:2", State: "Running", StartedAt: time.Unix(0, 0).UTC()},
	}

	printSessionsTable(&buf, sessions)

	out := buf.String()
	require.Contains(t, out, "127.0.0.1:1")
	require.Contains(t, out, "Idle")
	require.Contains(t, out, "127.0.0.1:2")
	require.Contains(t, out, "Running")
}

func TestPrintSessionsTableEmptyStillRendersHeader(t *testing.T) {
	var buf bytes.Buffer

	printSessionsTable(&buf, nil)

	require.Contains(t, buf.String(), "ID")
	require.Contains(t, buf.String(), "STATE")
}
