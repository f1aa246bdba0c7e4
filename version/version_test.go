package version

import (
	"strings"
	"testing"
)

func TestInfo_String(t *testing.T) {
	out := Info{Release: "v1.2.3", Go: "go1.24 linux/amd64"}.String()
	for _, want := range []string{"folio v1.2.3", "go1.24 linux/amd64", "Commit: unknown"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in %q", want, out)
		}
	}
}

func TestGet(t *testing.T) {
	info := Get()
	if info.Release == "" || info.Go == "" {
		t.Errorf("incomplete info: %+v", info)
	}
}
