package export

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDataset() Dataset {
	return Dataset{
		Headers: []string{"ID", "Name", "Course"},
		Rows: [][]string{
			{"1", "Ada Lovelace", "Mathematics"},
			{"2", "Alan Turing", "Computing"},
		},
	}
}

func TestCSVExporterRender(t *testing.T) {
	content, err := NewCSVExporter().Render(sampleDataset())
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "ID,Name,Course", strings.TrimSpace(lines[0]))
	assert.Contains(t, lines[1], "Ada Lovelace")
}

func TestCSVExporterShortRowsArePadded(t *testing.T) {
	data := sampleDataset()
	data.Rows = append(data.Rows, []string{"3"})

	content, err := NewCSVExporter().Render(data)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	assert.Equal(t, "3,,", strings.TrimSpace(lines[3]))
}

func TestCSVExporterRequiresHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	assert.Error(t, err)
}

func TestPDFExporterRender(t *testing.T) {
	content, err := NewPDFExporter().Render(sampleDataset(), "Student Roster")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(content), "%PDF"))
}

func TestPDFExporterRequiresHeaders(t *testing.T) {
	_, err := NewPDFExporter().Render(Dataset{}, "")
	assert.Error(t, err)
}
