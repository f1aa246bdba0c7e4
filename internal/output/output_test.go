package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

type sample struct {
	Name  string `json:"name" yaml:"name"`
	Count int    `json:"count" yaml:"count"`
}

type sampleTable struct{}

func (sampleTable) Headers() []string { return []string{"MODEL", "SIZE"} }
func (sampleTable) Rows() [][]string {
	return [][]string{{"gemma3:4b", "3.3 GB"}, {"llama3.2"}}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatText, false},
		{"yaml", FormatYAML, false},
		{"JSON", FormatJSON, false},
		{"table", FormatText, false},
		{"xml", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseFormat(%q) error = %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseFormat(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestWrite(t *testing.T) {
	data := sample{Name: "run", Count: 3}

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		if err := Write(&buf, FormatJSON, data); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
		var back sample
		if err := json.Unmarshal(buf.Bytes(), &back); err != nil {
			t.Fatalf("output is not JSON: %v", err)
		}
		if back != data {
			t.Errorf("got %+v", back)
		}
	})

	t.Run("yaml", func(t *testing.T) {
		var buf bytes.Buffer
		if err := Write(&buf, FormatYAML, data); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
		if !strings.Contains(buf.String(), "name: run") || !strings.Contains(buf.String(), "count: 3") {
			t.Errorf("unexpected yaml: %s", buf.String())
		}
	})

	t.Run("text falls back to yaml", func(t *testing.T) {
		var buf bytes.Buffer
		if err := Write(&buf, FormatText, data); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
		if !strings.Contains(buf.String(), "name: run") {
			t.Errorf("unexpected text: %s", buf.String())
		}
	})

	t.Run("text renders tables", func(t *testing.T) {
		var buf bytes.Buffer
		if err := Write(&buf, FormatText, sampleTable{}); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
		out := buf.String()
		for _, want := range []string{"MODEL", "gemma3:4b", "3.3 GB", "llama3.2"} {
			if !strings.Contains(out, want) {
				t.Errorf("table missing %q:\n%s", want, out)
			}
		}
	})

	t.Run("unknown format", func(t *testing.T) {
		if err := Write(&bytes.Buffer{}, Format("xml"), data); err == nil {
			t.Error("expected error")
		}
	})
}

func TestRenderTable_Empty(t *testing.T) {
	if RenderTable(nil, nil, nil) != "" {
		t.Error("expected empty render without headers")
	}
}

func TestIsStructured(t *testing.T) {
	if !IsStructured(FormatJSON) || !IsStructured(FormatYAML) || IsStructured(FormatText) {
		t.Error("unexpected IsStructured results")
	}
}
