package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/agriai/agrisync/internal/client/models"
	"github.com/charmbracelet/glamour"
)

const displayTime = "2006-01-02 15:04"

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func syncLabel(r models.DiagnosisRecord) string {
	if r.Synced {
		return "synced"
	}
	return "local"
}

// RenderHistory writes records as a fixed-width table, newest first as given.
func RenderHistory(w io.Writer, records []models.DiagnosisRecord) error {
	if len(records) == 0 {
		_, err := fmt.Fprintln(w, "No diagnoses yet.")
		return err
	}
	if _, err := fmt.Fprintf(w, "%-5s %-10s %-34s %6s  %-7s %s\n", "ID", "CROP", "DISEASE", "CONF", "STATE", "CREATED (UTC)"); err != nil {
		return err
	}
	for _, r := range records {
		if _, err := fmt.Fprintf(w, "%-5d %-10s %-34s %5.1f%%  %-7s %s\n",
			r.LocalID,
			truncate(r.Crop, 10),
			truncate(r.Disease, 34),
			r.Confidence*100,
			syncLabel(r),
			r.CreatedAt.UTC().Format(displayTime),
		); err != nil {
			return err
		}
	}
	return nil
}

// RecordMarkdown renders one record as a markdown document.
func RecordMarkdown(r models.DiagnosisRecord) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", r.Disease)
	fmt.Fprintf(&sb, "- **Crop:** %s\n", r.Crop)
	fmt.Fprintf(&sb, "- **Confidence:** %.1f%%\n", r.Confidence*100)
	fmt.Fprintf(&sb, "- **Recorded:** %s UTC\n", r.CreatedAt.UTC().Format(displayTime))
	if r.Synced {
		fmt.Fprintf(&sb, "- **Status:** synced (remote id `%s`)\n", r.RemoteIDOrEmpty())
	} else {
		sb.WriteString("- **Status:** local only, never uploaded\n")
	}
	if r.ImageLocation != "" {
		fmt.Fprintf(&sb, "- **Image:** %s\n", r.ImageLocation)
	}
	sb.WriteString("\n## Advice\n\n")
	advice := strings.TrimSpace(r.Advice.Markdown())
	if advice == "" {
		advice = "_No advice recorded._"
	}
	sb.WriteString(advice)
	sb.WriteString("\n")
	return sb.String()
}

// StatusView is what the status command reports.
type StatusView struct {
	Connected         bool
	InternetReachable bool
	ForcedOffline     bool
	APIBaseURL        string
	Identity          string
	Authenticated     bool
	ExpiresAt         time.Time
	Records           int
	LocalOnly         int
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// RenderStatus writes the connectivity, session and store summary.
func RenderStatus(w io.Writer, s StatusView) error {
	mode := "offline"
	if s.Connected {
		mode = "online"
	}
	if s.ForcedOffline {
		mode += " (forced)"
	}

	session := "signed out"
	switch {
	case s.Authenticated && !s.ExpiresAt.IsZero():
		session = fmt.Sprintf("signed in as %s (expires %s UTC)", s.Identity, s.ExpiresAt.UTC().Format(displayTime))
	case s.Authenticated:
		session = "signed in as " + s.Identity
	case s.Identity != "":
		session = "token expired, sign in again"
	}

	lines := []struct{ label, value string }{
		{"Connectivity", fmt.Sprintf("%s (internet reachable: %s)", mode, yesNo(s.InternetReachable))},
		{"API", s.APIBaseURL},
		{"Session", session},
		{"Records", fmt.Sprintf("%d (%d local-only, never uploaded)", s.Records, s.LocalOnly)},
	}
	for _, l := range lines {
		if _, err := fmt.Fprintf(w, "%-15s %s\n", l.label+":", l.value); err != nil {
			return err
		}
	}
	return nil
}

// newMarkdownRenderer returns a glamour-backed renderer with a style that
// does not depend on terminal detection.
func newMarkdownRenderer() func(string) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("notty"),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		return func(md string) (string, error) { return md, nil }
	}
	return r.Render
}
