// Package export writes capture-log records to a stream.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/san-kum/lavarand/internal/history"
)

type Format string

const (
	Table Format = "table"
	JSON  Format = "json"
	CSV   Format = "csv"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case Table, JSON, CSV:
		return f, nil
	}
	return "", fmt.Errorf("export: unknown format %q (want table, json or csv)", s)
}

const timeLayout = "2006-01-02 15:04:05.000"

func Write(w io.Writer, f Format, records []history.Record) error {
	switch f {
	case JSON:
		return WriteJSON(w, records)
	case CSV:
		return WriteCSV(w, records)
	case Table:
		return WriteTable(w, records)
	}
	return fmt.Errorf("export: unknown format %q", f)
}

func WriteJSON(w io.Writer, records []history.Record) error {
	if records == nil {
		records = []history.Record{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(records)
}

var csvHeader = []string{"id", "timestamp", "kind", "key", "seed_preview"}

func WriteCSV(w io.Writer, records []history.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, r := range records {
		row := []string{
			r.ID,
			r.Timestamp.UTC().Format(time.RFC3339Nano),
			r.Kind.String(),
			r.Key,
			r.SeedPreview,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func WriteTable(w io.Writer, records []history.Record) error {
	if len(records) == 0 {
		_, err := fmt.Fprintln(w, "no derivations")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tKIND\tKEY\tSEED")
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			r.Timestamp.Format(timeLayout),
			r.Kind,
			r.Key,
			r.SeedPreview,
		)
	}
	return tw.Flush()
}
