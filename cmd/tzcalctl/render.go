package main

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"tzcal/internal/calendar"
	"tzcal/internal/model"
)

func printEvents(w io.Writer, events []model.Event, loc *time.Location) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTART\tEND\tTITLE")
	for _, ev := range events {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			ev.ID,
			ev.Start.In(loc).Format("2006-01-02 15:04"),
			ev.End.In(loc).Format("2006-01-02 15:04"),
			ev.Title,
		)
	}
	return tw.Flush()
}

// printLayout writes a text rendering of l: a section per day column with
// its positioned events, or a week-by-week table in month mode.
func printLayout(w io.Writer, l calendar.Layout, ref *time.Location) error {
	fmt.Fprintf(w, "%s (%s)\n", l.Grid.Title, l.Reference)
	for _, r := range l.Readouts {
		fmt.Fprintf(w, "  %s  %s %s\n", r.Zone, r.Date, r.Time)
	}

	if !l.Grid.Mode.HasHourGrid() {
		return printMonth(w, l.Grid)
	}

	byColumn := make(map[int][]calendar.PositionedEvent)
	for _, pe := range l.Events {
		byColumn[pe.Column] = append(byColumn[pe.Column], pe)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for i, col := range l.Grid.Columns {
		marker := ""
		if col.Today {
			marker = fmt.Sprintf("  [now at %.0fpx]", l.Indicator.OffsetPx)
		}
		fmt.Fprintf(tw, "\n%s %s%s\n", col.Date.Weekday().String()[:3], col.Date, marker)

		events := byColumn[i]
		sort.SliceStable(events, func(a, b int) bool { return events[a].TopOffsetPx < events[b].TopOffsetPx })
		if len(events) == 0 {
			fmt.Fprintln(tw, "  (no events)")
			continue
		}
		for _, pe := range events {
			fmt.Fprintf(tw, "  %s-%s\t%s\ttop=%.0fpx h=%.0fpx\t%s\n",
				pe.Event.Start.In(ref).Format("15:04"),
				pe.Event.End.In(ref).Format("15:04"),
				pe.Event.Title,
				pe.TopOffsetPx,
				pe.HeightPx,
				pe.Color,
			)
			for _, zl := range pe.ZoneLabels {
				fmt.Fprintf(tw, "    %s\t\t\t\n", zl)
			}
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	for _, s := range l.Skipped {
		fmt.Fprintf(w, "skipped %s: %s\n", s.ID, s.Reason)
	}
	return nil
}

func printMonth(w io.Writer, g calendar.Grid) error {
	tw := tabwriter.NewWriter(w, 0, 4, 1, ' ', tabwriter.AlignRight)
	if len(g.Weeks) > 0 {
		for _, cell := range g.Weeks[0] {
			fmt.Fprintf(tw, "%s\t", cell.Date.Weekday().String()[:3])
		}
		fmt.Fprintln(tw)
	}
	for _, week := range g.Weeks {
		for _, cell := range week {
			var b strings.Builder
			fmt.Fprintf(&b, "%d", cell.Date.Day)
			if !cell.InMonth {
				b.Reset()
				b.WriteString(".")
			}
			if cell.Today {
				b.WriteString("*")
			}
			if n := len(cell.EventIDs); n > 0 {
				fmt.Fprintf(&b, "(%d)", n)
			}
			fmt.Fprintf(tw, "%s\t", b.String())
		}
		fmt.Fprintln(tw)
	}
	return tw.Flush()
}
