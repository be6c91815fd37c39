package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVExporterRender(t *testing.T) {
	out, err := NewCSVExporter().Render(Table{
		Headers: []string{"Date", "Block", "Subject"},
		Rows:    [][]string{{"2024-03-10", "Block 3", "Math"}, {"2024-03-11", "Lunch", "Science, Bio"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Date,Block,Subject\n2024-03-10,Block 3,Math\n2024-03-11,Lunch,\"Science, Bio\"\n", string(out))
}

func TestCSVExporterRejectsRaggedRows(t *testing.T) {
	_, err := NewCSVExporter().Render(Table{Headers: []string{"a", "b"}, Rows: [][]string{{"1"}}})
	assert.Error(t, err)

	_, err = NewCSVExporter().Render(Table{})
	assert.Error(t, err)
}

func TestPDFExporterRender(t *testing.T) {
	out, err := NewPDFExporter().Render(Table{
		Title:   "Tutoring hours",
		Headers: []string{"Date", "Block"},
		Rows:    [][]string{{"2024-03-10", "Block 3"}},
		Footer:  "Total sessions: 1",
	})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}
