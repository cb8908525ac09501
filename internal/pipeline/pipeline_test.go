package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/hvdc-project/warehouse-flow/internal/location"
)

func writeFixture(t *testing.T, dir, name string, rows [][]string) string {
	t.Helper()

	f := excelize.NewFile()
	require.NoError(t, f.SetSheetName("Sheet1", "Case List"))
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Case List", cell, &row))
	}

	path := filepath.Join(dir, name)
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())
	return path
}

func TestRunEndToEnd(t *testing.T) {
	dir := t.TempDir()
	reportDir := t.TempDir()

	good := writeFixture(t, dir, "warehouse.xlsx", [][]string{
		{"Case No.", "Q'TY", "DSV Indoor Date", "MOSB Date", "DAS Date"},
		{"C1", "10", "2024-01-05", "2024-01-12", "2024-01-20"},
		{"C2", "4", "2024-01-06", "", ""},
	})
	bad := writeFixture(t, dir, "notes.xlsx", [][]string{
		{"Remarks", "Weight"},
		{"n/a", "12"},
	})

	o := NewOrchestrator(Options{
		Ontology:   location.DefaultOntology(),
		Synthesize: true,
		ReportDir:  reportDir,
		Now:        func() time.Time { return time.Date(2024, 2, 1, 8, 0, 0, 0, time.UTC) },
	})

	result, err := o.Run(context.Background(), []string{good, bad})
	require.NoError(t, err)

	assert.Equal(t, 1, result.FilesLoaded)
	assert.Equal(t, 1, result.FilesSkipped)

	// C1 journeys Indoor -> MOSB -> DAS; C2 stays in Indoor.
	assert.NotEmpty(t, result.Daily)
	for _, rec := range result.Daily {
		assert.NotEqual(t, "DAS", rec.Location)
	}

	require.Len(t, result.Sites, 1)
	assert.Equal(t, "DAS", result.Sites[0].Site)
	assert.Equal(t, 10, result.Sites[0].Quantity)

	assert.Empty(t, result.Reconcile.Imbalances)

	require.NotEmpty(t, result.ReportPath)
	_, err = os.Stat(result.ReportPath)
	require.NoError(t, err)
}

func TestRunFilesDashboard(t *testing.T) {
	dir := t.TempDir()
	path := writeFixture(t, dir, "warehouse.xlsx", [][]string{
		{"Case No.", "Q'TY", "DSV Indoor Date"},
		{"C1", "10", "2024-01-05"},
	})

	o := NewOrchestrator(Options{
		Ontology:   location.DefaultOntology(),
		Synthesize: true,
	})

	dash, err := o.RunFiles(context.Background(), []string{path})
	require.NoError(t, err)
	require.Len(t, dash.Latest, 1)
	assert.Equal(t, "DSV Indoor", dash.Latest[0].Location)
	assert.Equal(t, 10, dash.Latest[0].ClosingStock)
}

func TestRunDirEmpty(t *testing.T) {
	o := NewOrchestrator(Options{Ontology: location.DefaultOntology()})

	result, err := o.RunDir(context.Background(), t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, result.Daily)
	assert.Zero(t, result.FilesLoaded)
}
