package export

import (
	"bytes"
	"encoding/csv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleDataset() Dataset {
	return Dataset{
		Title:   "Maintenance requests",
		Headers: []string{"id", "description", "status"},
		Rows: []map[string]string{
			{"id": "1", "description": "Leaking tap, \"urgent\"", "status": "Submitted"},
			{"id": "2", "description": "Broken fan", "status": "Closed"},
		},
	}
}

func TestCSVExporterRender(t *testing.T) {
	out, err := NewCSVExporter().Render(sampleDataset())
	require.NoError(t, err)

	rows, err := csv.NewReader(bytes.NewReader(out)).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"id", "description", "status"}, rows[0])
	assert.Equal(t, "Leaking tap, \"urgent\"", rows[1][1])
}

func TestPDFExporterRender(t *testing.T) {
	out, err := NewPDFExporter().Render(sampleDataset())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestXLSXExporterRender(t *testing.T) {
	out, err := NewXLSXExporter().Render(sampleDataset())
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer f.Close() //nolint:errcheck

	rows, err := f.GetRows(xlsxSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "status", rows[0][2])
	assert.Equal(t, "Broken fan", rows[2][1])
}

func TestExportersRequireHeaders(t *testing.T) {
	for _, exp := range []Exporter{NewCSVExporter(), NewPDFExporter(), NewXLSXExporter()} {
		_, err := exp.Render(Dataset{})
		assert.Error(t, err, exp.Extension())
	}
}
