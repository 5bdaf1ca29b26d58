package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/nervctl/rspstub/internal/adminapi"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List sessions currently connected to a running rspstubd",
	Long: `Queries a running daemon's admin HTTP surface and prints the
currently connected RSP sessions as a table.

Examples:
  rspstubd sessions
  rspstubd sessions --admin-addr localhost:9001`,
	RunE: runSessions,
}

func init() {
	sessionsCmd.Flags().String("admin-addr", "", "admin HTTP address to query (overrides config)")
	_ = viper.BindPFlag("admin_addr", sessionsCmd.Flags().Lookup("admin-addr"))
}

func runSessions(cmd *cobra.Command, args []string) error {
	addr := viper.GetString("admin_addr")
	if addr == "" {
		return fmt.Errorf("no admin_addr configured")
	}

	client := &http.Client{Timeout: 5 * time.Second}

	url := "http://" + addr + "/sessions"

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("query admin api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("admin api returned %s", resp.Status)
	}

	var sessions []adminapi.SessionInfo
	if err := json.NewDecoder(resp.Body).Decode(&sessions); err != nil {
		return fmt.Errorf("decode sessions: %w", err)
	}

	printSessionsTable(os.Stdout, sessions)

	return nil
}

func printSessionsTable(w io.Writer, sessions []adminapi.SessionInfo) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"ID", "REMOTE ADDR", "STATE", "STARTED"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("  ")
	table.SetNoWhiteSpace(true)

	for _, s := range sessions {
		table.Append([]string{s.ID, s.RemoteAddr, s.State, s.StartedAt.Format(time.RFC3339)})
	}

	table.Render()
}
