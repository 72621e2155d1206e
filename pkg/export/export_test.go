package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDataset() Dataset {
	return Dataset{
		Title:       "Reporte de cumplimiento",
		GeneratedAt: time.Date(2025, 1, 16, 9, 0, 0, 0, time.UTC),
		Headers:     []string{"Código", "Nombre", "Estado"},
		Rows: []map[string]string{
			{"Código": "SST-01", "Nombre": "Plan anual", "Estado": "approved"},
			{"Código": "SST-02", "Nombre": "Política, \"v2\"", "Estado": "expired"},
		},
		Highlight: map[int]bool{1: true},
	}
}

func TestCSVExporterRender(t *testing.T) {
	out, err := NewCSVExporter().Render(sampleDataset())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, utf8BOM))
	body := string(out[len(utf8BOM):])
	assert.Equal(t, "Código,Nombre,Estado\nSST-01,Plan anual,approved\nSST-02,\"Política, \"\"v2\"\"\",expired\n", body)
}

func TestCSVExporterSemicolon(t *testing.T) {
	exp := &CSVExporter{Comma: ';'}
	out, err := exp.Render(Dataset{Headers: []string{"a", "b"}, Rows: []map[string]string{{"a": "1", "b": "2"}}})
	require.NoError(t, err)
	assert.Equal(t, "a;b\n1;2\n", string(out))
}

func TestRenderRequiresHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	assert.Error(t, err)
	_, err = NewPDFExporter().Render(Dataset{})
	assert.Error(t, err)
}

func TestPDFExporterRender(t *testing.T) {
	out, err := NewPDFExporter().Render(sampleDataset())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 50))
	assert.Equal(t, "abcdefghi...", truncate("abcdefghijklmnop", 20))
}
