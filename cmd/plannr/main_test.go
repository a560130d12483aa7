package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleICS = "BEGIN:VCALENDAR\n" +
	"PRODID:-//plannr//cli test//EN\n" +
	"VERSION:2.0\n" +
	"BEGIN:VEVENT\n" +
	"UID:review@example.com\n" +
	"DTSTAMP:20240101T000000Z\n" +
	"DTSTART;TZID=Europe/Berlin:20240108T093000\n" +
	"DURATION:PT1H\n" +
	"RRULE:FREQ=WEEKLY;BYDAY=MO\n" +
	"SUMMARY:Weekly review\n" +
	"END:VEVENT\n" +
	"END:VCALENDAR\n"

// run executes the root command with fresh flag values.
func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cfgFile, logLevel, lenient = "./plannr.yaml", "", false
	parseJSON, exportOutput = false, ""
	occDays, occBackfill, occJSON = 0, -1, false

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeSample(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sample.ics")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestParseCommand(t *testing.T) {
	path := writeSample(t, sampleICS)

	out, err := run(t, "", "parse", path)
	require.NoError(t, err)
	assert.Contains(t, out, "1 calendar(s)")
	assert.Contains(t, out, "-//plannr//cli test//EN")
	assert.Contains(t, out, "20240108T093000 Europe/Berlin")
	assert.Contains(t, out, "Weekly review")
	assert.Contains(t, out, "RRULE FREQ=WEEKLY;BYDAY=MO")
}

func TestParseCommandJSONFromStdin(t *testing.T) {
	out, err := run(t, sampleICS, "parse", "--json", "-")
	require.NoError(t, err)

	var files []struct {
		File      string `json:"file"`
		Calendars []struct {
			ProdID string
			Events []struct{ UID string }
		} `json:"calendars"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &files))
	require.Len(t, files, 1)
	assert.Equal(t, "-", files[0].File)
	require.Len(t, files[0].Calendars, 1)
	assert.Equal(t, "review@example.com", files[0].Calendars[0].Events[0].UID)
}

func TestParseCommandReportsLine(t *testing.T) {
	bad := strings.Replace(sampleICS, "DURATION:PT1H", "DURATION:1H", 1)
	path := writeSample(t, bad)

	_, err := run(t, "", "parse", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 8")
}

func TestParseCommandLenient(t *testing.T) {
	bad := strings.Replace(sampleICS, "END:VEVENT\n", "END:VTODO\nEND:VEVENT\n", 1)
	path := writeSample(t, bad)

	_, err := run(t, "", "parse", path)
	assert.Error(t, err)

	_, err = run(t, "", "--lenient", "parse", path)
	assert.NoError(t, err)
}

func TestExportCommand(t *testing.T) {
	path := writeSample(t, sampleICS)

	out, err := run(t, "", "export", path)
	require.NoError(t, err)
	assert.Contains(t, out, "BEGIN:VCALENDAR\r\n")
	assert.Contains(t, out, "DTSTART;TZID=Europe/Berlin:20240108T093000")
	assert.Contains(t, out, "RRULE:FREQ=WEEKLY;BYDAY=MO")

	target := filepath.Join(t.TempDir(), "out.ics")
	_, err = run(t, "", "export", "-o", target, path)
	require.NoError(t, err)
	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, out, string(data))
}

func TestFetchCommand(t *testing.T) {
	dir := t.TempDir()
	ics := writeSample(t, sampleICS)
	cfgPath := filepath.Join(dir, "plannr.yaml")
	cfg := "timezone: Europe/Berlin\n" +
		"cache_dir: " + filepath.Join(dir, "cache") + "\n" +
		"sources:\n" +
		"  - id: team\n" +
		"    path: " + ics + "\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o600))

	out, err := run(t, "", "--config", cfgPath, "fetch")
	require.NoError(t, err)
	assert.Contains(t, out, "SOURCE")
	assert.Regexp(t, `team\s+1\s+1\s+false`, out)
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "", "version")
	require.NoError(t, err)
	assert.Equal(t, "plannr dev\n", out)
}

func TestBadLogLevel(t *testing.T) {
	_, err := run(t, "", "--log-level", "loud", "version")
	assert.Error(t, err)
}
