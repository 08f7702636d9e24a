package approval

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/jonathan/jobtriage/internal/types"
)

func TestExportXLSX(t *testing.T) {
	sent := time.Date(2026, 3, 5, 9, 30, 0, 0, time.UTC)
	subs := []types.Submission{
		{
			ID:           "id-1",
			CreatedAt:    time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC),
			Status:       types.StatusApproved,
			Source:       types.SourceEmail,
			Parsed:       types.ParsedSummary{Role: "ML Engineer", Cloud: types.CloudAWS, Location: "Austin, TX"},
			EmailTo:      "sam@acme.io",
			EmailSubject: "Application for ML Engineer",
			Validation:   types.ValidationResult{OK: true},
			SentAt:       &sent,
		},
		{
			ID:         "id-2",
			Status:     types.StatusPending,
			Source:     types.SourceChat,
			Validation: types.ValidationResult{OK: false, Errors: []string{"bad"}, Warnings: []string{"long"}},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, ExportXLSX(subs, &buf))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows(exportSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "ID", rows[0][0])
	assert.Equal(t, len(exportColumns), len(rows[0]))

	assert.Equal(t, "id-1", rows[1][0])
	assert.Equal(t, "2026-03-04 10:00:00", rows[1][1])
	assert.Equal(t, "approved", rows[1][2])
	assert.Equal(t, "ML Engineer", rows[1][4])
	assert.Equal(t, "AWS", rows[1][5])
	assert.Equal(t, "yes", rows[1][10])
	assert.Equal(t, "2026-03-05 09:30:00", rows[1][12])

	assert.Equal(t, "no", rows[2][10])
	assert.Equal(t, "bad; long", rows[2][11])
}

func TestExportXLSX_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, ExportXLSX(nil, &buf))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows(exportSheet)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
