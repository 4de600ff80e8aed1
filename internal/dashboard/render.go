package dashboard

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/authintegrate/authintegrate/internal/store"
)

// Render writes a plain-text dashboard: status line, counters and the
// merged access log table. Highlighted rows are prefixed with '*'.
func Render(w io.Writer, s Snapshot) error {
	hw := "disconnected"
	if s.Connected {
		hw = "connected"
	}
	if _, err := fmt.Fprintf(w, "hardware: %s  users: %d  logs: %d  granted today: %d  denied today: %d  success: %d%%\n\n",
		hw, s.Stats.TotalUsers, s.Stats.TotalAccessLogs,
		s.Stats.AccessGrantedToday, s.Stats.AccessDeniedToday, s.SuccessRate,
	); err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, " \tID\tTIME\tUSER\tNAME\tRESULT\tNOTE")
	for _, e := range s.Entries {
		mark := " "
		if s.Highlighted[e.ID] {
			mark = "*"
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\t%s\t%s\n",
			mark, e.ID, e.CreatedAt.Local().Format(time.DateTime),
			userColumn(e), deref(e.Name, UnknownName), e.Outcome, e.Note,
		)
	}
	return tw.Flush()
}

func userColumn(e store.AccessLogView) string {
	if e.UserID == nil {
		return "-"
	}
	return fmt.Sprint(*e.UserID)
}

func deref(s *string, fallback string) string {
	if s == nil || *s == "" {
		return fallback
	}
	return *s
}
