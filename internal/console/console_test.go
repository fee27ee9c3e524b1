package console

import (
	"bytes"
	"strings"
	"testing"

	"github.com/pterm/pterm"
)

func TestQuietSuppressesInfo(t *testing.T) {
	pterm.DisableStyling()
	defer pterm.EnableStyling()

	var buf bytes.Buffer
	c := NewWithWriter(&buf, true)
	c.LogInfo("fetching %s", "1000")
	c.LogSuccess("done")
	if buf.Len() != 0 {
		t.Fatalf("quiet console wrote %q", buf.String())
	}

	c.LogWarning("served from cache")
	c.LogError("No token found")
	out := buf.String()
	if !strings.Contains(out, "served from cache") || !strings.Contains(out, "No token found") {
		t.Fatalf("warnings/errors missing from quiet output: %q", out)
	}
}

func TestLogInfo(t *testing.T) {
	pterm.DisableStyling()
	defer pterm.EnableStyling()

	var buf bytes.Buffer
	NewWithWriter(&buf, false).LogInfo("plant %s", "1000")
	if !strings.Contains(buf.String(), "plant 1000") {
		t.Fatalf("output = %q", buf.String())
	}
}

func TestQuietHandlesAreNoops(t *testing.T) {
	var buf bytes.Buffer
	c := NewWithWriter(&buf, true)
	s := c.Status("loading")
	s.Update("still loading")
	s.Success("loaded")
	s.Stop()
	p := c.Progress("plants", 3)
	p.Increment()
	p.Stop()
	if buf.Len() != 0 {
		t.Fatalf("quiet handles wrote %q", buf.String())
	}
}

func TestField(t *testing.T) {
	if got := Field("Plant", 8, "1000"); got != "    Plant:   1000" {
		t.Fatalf("Field = %q", got)
	}
}
