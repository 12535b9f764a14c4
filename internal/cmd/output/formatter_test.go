package output

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type score struct {
	Name  string  `json:"name" yaml:"name"`
	Value float64 `json:"value" yaml:"value"`
}

func (s score) Table() Data {
	return Data{Headers: []string{"Name", "Value"}, Rows: [][]string{{s.Name, "0.5"}}}
}

func TestFormatters(t *testing.T) {
	data := score{Name: "quality", Value: 0.5}
	tests := []struct {
		format Format
		want   []string
	}{
		{FormatJSON, []string{`"name": "quality"`, `"value": 0.5`}},
		{FormatYAML, []string{"name: quality", "value: 0.5"}},
		{FormatTable, []string{"quality", "0.5"}},
	}
	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, NewFormatter(tt.format).Format(&buf, data))
			for _, want := range tt.want {
				assert.Contains(t, buf.String(), want)
			}
		})
	}
}

func TestTableFallsBackToYAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewFormatter(FormatTable).Format(&buf, map[string]int{"editions": 2}))
	assert.Equal(t, "editions: 2\n", buf.String())
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("YAML")
	require.NoError(t, err)
	assert.Equal(t, FormatYAML, f)

	_, err = ParseFormat("wide")
	assert.Error(t, err)

	assert.Equal(t, FormatJSON, DetectFormat("json"))
}
