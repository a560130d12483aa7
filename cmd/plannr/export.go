package main

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/richard-uk1/plannr/internal/ics"
)

var exportOutput string

var exportCmd = &cobra.Command{
	Use:   "export FILE",
	Short: "Parse a calendar file and write it back out",
	Long: `Parse FILE ("-" reads stdin) and serialize the modelled properties
again. Extension properties, alarms and time zone definitions are dropped.`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Write to this file instead of stdout")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	cals, err := parseFile(cmd.InOrStdin(), args[0])
	if err != nil {
		return err
	}
	text := ics.ExportString(cals)

	if exportOutput == "" {
		_, err := io.WriteString(cmd.OutOrStdout(), text)
		return err
	}
	return os.WriteFile(exportOutput, []byte(text), 0o644)
}
