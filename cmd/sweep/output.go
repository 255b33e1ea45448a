package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/tigerroll/sweep/pkg/batch/core/application/usecase"
	model "github.com/tigerroll/sweep/pkg/batch/core/domain/model"
	"github.com/tigerroll/sweep/pkg/batch/support/util/logger"
)

const displayLayout = "2006-01-02 15:04:05"

func displayLocation(name string) *time.Location {
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		logger.Warnf("Unknown timezone '%s', showing UTC: %v", name, err)
		return time.UTC
	}
	return loc
}

func printTable(w io.Writer, table *model.ConfigTable) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(table.Columns, "\t"))
	for _, row := range table.Rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}

func printSessionReport(w io.Writer, report *usecase.SessionReport, loc *time.Location) error {
	s := report.Session
	fmt.Fprintf(w, "Session %d on '%s' (%s)\n", s.ID, s.ConfigGroup, s.Date.In(loc).Format(displayLayout))
	if s.Name != "" {
		fmt.Fprintf(w, "Name:   %s\n", s.Name)
	}
	if s.Filter != "" {
		fmt.Fprintf(w, "Filter: %s\n", s.Filter)
	}
	fmt.Fprintf(w, "Jobs:   %d\n\n", report.Total)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "STATUS\tJOBS\tPERCENT")
	for _, share := range report.Shares {
		fmt.Fprintf(tw, "%s\t%d\t%d%%\n", share.Status, share.Count, share.Percent)
	}
	return tw.Flush()
}

func printOverview(w io.Writer, overview []usecase.SessionOverview, loc *time.Location) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SESSION\tTABLE\tDATE\tJOBS\tQUEUED\tRUNNING\tDONE\tOTHER")
	for _, o := range overview {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%d%%\t%d%%\t%d%%\t%d%%\n",
			o.Session.ID, o.Session.ConfigGroup, o.Session.Date.In(loc).Format(displayLayout),
			o.Total, o.Queued, o.Running, o.Done, o.Other)
	}
	return tw.Flush()
}
