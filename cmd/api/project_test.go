package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const loopSnapshot = `{
  "id": "trip-1",
  "name": "  Rhone   Loop ",
  "cities": [
    {"id": "c1", "name": "Paris, France", "countryCode": "FR", "latitude": 48.8566, "longitude": 2.3522, "days": 3},
    {"id": "c2", "name": "Lyon", "days": 4}
  ],
  "startDate": "2024-06-01T00:00:00Z",
  "totalDays": 5,
  "updatedAt": "2024-05-20T10:00:00Z"
}`

func TestProjectCommand_PrintsTimeline(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trip.json")
	require.NoError(t, os.WriteFile(path, []byte(loopSnapshot), 0o600))

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"project", path})
	t.Cleanup(func() { rootCmd.SetArgs(nil); rootCmd.SetOut(nil) })

	require.NoError(t, rootCmd.Execute())

	got := out.String()
	require.True(t, strings.HasPrefix(got, "Rhone Loop\n"), got)
	require.Contains(t, got, "Total: 7 days")
	require.Contains(t, got, "Trip ends: 2024-06-08")
	require.Contains(t, got, "Over budget by 2 days")

	var rows [][]string
	for _, line := range strings.Split(got, "\n") {
		if f := strings.Fields(line); len(f) > 0 && (f[0] == "1" || f[0] == "2") {
			rows = append(rows, f)
		}
	}
	require.Equal(t, [][]string{
		{"1", "Paris,", "France", "3", "Jun", "1", "Jun", "3"},
		{"2", "Lyon", "4", "Jun", "4", "Jun", "7"},
	}, rows)
}

func TestPrintTimeline_UndatedWithinBudget(t *testing.T) {
	trip := strings.NewReader(`{"id":"t","name":"","cities":[{"id":"a","name":"Oslo","days":1}],"startDate":null,"totalDays":3}`)

	var out bytes.Buffer
	projectCmd.SetIn(trip)
	projectCmd.SetOut(&out)
	t.Cleanup(func() { projectCmd.SetIn(nil); projectCmd.SetOut(nil) })

	require.NoError(t, projectCmd.RunE(projectCmd, []string{"-"}))

	got := out.String()
	require.True(t, strings.HasPrefix(got, "New Trip\n"), got)
	require.Contains(t, got, "Day 1")
	require.Contains(t, got, "Total: 1 day")
	require.Contains(t, got, "Remaining: 2 days")
	require.NotContains(t, got, "Trip ends")
}
