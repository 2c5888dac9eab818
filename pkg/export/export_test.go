package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEscapeCell(t *testing.T) {
	assert.Equal(t, "plain", EscapeCell("plain"))
	assert.Equal(t, `"Smith, J."`, EscapeCell("Smith, J."))
	assert.Equal(t, `"He said ""hi"""`, EscapeCell(`He said "hi"`))
	assert.Equal(t, "\"two\nlines\"", EscapeCell("two\nlines"))
	assert.Equal(t, " leading space", EscapeCell(" leading space"))
	assert.Equal(t, "\"carriage\rreturn\"", EscapeCell("carriage\rreturn"))
}

func TestCSVExporterRender(t *testing.T) {
	data := Dataset{
		Headers: []string{"School Name", "On-Time %", `Report "A"`},
		Rows: [][]string{
			{"Smith, J. Academy", "75", "Submitted On Time"},
			{"North", "0", "Overdue"},
		},
	}

	out, err := NewCSVExporter().Render(data)
	require.NoError(t, err)
	want := "School Name,On-Time %,\"Report \"\"A\"\"\"\r\n" +
		"\"Smith, J. Academy\",75,Submitted On Time\r\n" +
		"North,0,Overdue"
	assert.Equal(t, want, string(out))
}

func TestCSVExporterRejectsRaggedRows(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{Headers: []string{"a", "b"}, Rows: [][]string{{"1"}}})
	assert.Error(t, err)

	_, err = NewCSVExporter().Render(Dataset{})
	assert.Error(t, err)
}

func TestPDFExporterRender(t *testing.T) {
	data := Dataset{
		Headers: []string{"School Name", "On-Time %", "Enrollment"},
		Rows:    [][]string{{"North", "100", "Submitted On Time"}},
	}
	out, err := NewPDFExporter().Render(data, "Compliance overview")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}
