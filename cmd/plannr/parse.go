package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/richard-uk1/plannr/internal/icalendar"
)

var parseJSON bool

var parseCmd = &cobra.Command{
	Use:   "parse FILE...",
	Short: "Parse calendar files and print what they contain",
	Long: `Parse one or more .ics files ("-" reads stdin). The first error in a
file is reported with its line number and the command exits non-zero.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runParse,
}

func init() {
	parseCmd.Flags().BoolVar(&parseJSON, "json", false, "Print the parsed calendars as JSON")
	rootCmd.AddCommand(parseCmd)
}

type parsedFile struct {
	File      string               `json:"file"`
	Calendars []icalendar.Calendar `json:"calendars"`
}

func runParse(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	var files []parsedFile
	for _, name := range args {
		cals, err := parseFile(cmd.InOrStdin(), name)
		if err != nil {
			return err
		}
		files = append(files, parsedFile{File: name, Calendars: cals})
	}

	if parseJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(files)
	}
	for _, f := range files {
		printCalendars(out, f)
	}
	return nil
}

// parseFile reads name, or stdin for "-", and parses it.
func parseFile(stdin io.Reader, name string) ([]icalendar.Calendar, error) {
	var (
		data []byte
		err  error
	)
	if name == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(name)
	}
	if err != nil {
		return nil, err
	}
	cals, err := icalendar.ParseWithOptions(icalendar.NormalizeLineEndings(string(data)), parseOptions())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return cals, nil
}

func printCalendars(w io.Writer, f parsedFile) {
	fmt.Fprintf(w, "%s: %d calendar(s)\n", f.File, len(f.Calendars))
	for _, cal := range f.Calendars {
		fmt.Fprintf(w, "  %s (version %s", cal.ProdID, cal.Version)
		if cal.Method != "" {
			fmt.Fprintf(w, ", method %s", cal.Method)
		}
		fmt.Fprintf(w, ") %d event(s)\n", len(cal.Events))
		for _, ev := range cal.Events {
			start := "-"
			if ev.Start != nil {
				start = ev.Start.Value.String()
				if !ev.Start.TZID.IsZero() {
					start += " " + ev.Start.TZID.String()
				}
			}
			summary := ""
			if ev.Summary != nil {
				summary = ev.Summary.Text
			}
			fmt.Fprintf(w, "    %-28s %s  <%s>\n", start, summary, ev.UID)
			if ev.RRule != nil {
				fmt.Fprintf(w, "      RRULE %s\n", ev.RRule)
			}
		}
	}
}
