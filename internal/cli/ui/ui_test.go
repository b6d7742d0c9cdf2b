package ui

import (
	"bytes"
	"os"
	"strings"
	"testing"
)

func TestFormatError(t *testing.T) {
	out := FormatError("settings store unreachable")
	if !strings.Contains(out, "Error:") || !strings.Contains(out, "settings store unreachable") {
		t.Errorf("unexpected output %q", out)
	}
	if strings.Contains(out, "Try:") {
		t.Error("should not contain 'Try:' without suggestions")
	}
}

func TestFormatErrorWithSuggestions(t *testing.T) {
	out := FormatError("port 8787 in use", "tripnest start --port 8788", "tripnest stop")
	for _, want := range []string{"Try:", "tripnest start --port 8788", "tripnest stop", SymbolArrow} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q missing %q", out, want)
		}
	}
}

func TestStepSpinnerNoSpin(t *testing.T) {
	var buf bytes.Buffer
	ss := NewStepSpinner(&buf, true)

	ss.Start("Opening settings store...")
	ss.Done()
	ss.Start("Binding port...")
	ss.Fail()

	out := buf.String()
	if !strings.Contains(out, "Opening settings store...") || !strings.Contains(out, SymbolCheck) {
		t.Errorf("missing first step in %q", out)
	}
	if !strings.Contains(out, "Binding port...") || !strings.Contains(out, SymbolCross) {
		t.Errorf("missing second step in %q", out)
	}
	if strings.Count(out, "\n") != 2 {
		t.Errorf("expected one line per step, got %q", out)
	}
}

func TestStepSpinnerStopWithoutStart(t *testing.T) {
	var buf bytes.Buffer
	ss := NewStepSpinner(&buf, false)
	ss.Stop()
	if buf.Len() != 0 {
		t.Errorf("Stop without Start wrote %q", buf.String())
	}
}

func TestColorEnabledRespectsNO_COLOR(t *testing.T) {
	t.Setenv("NO_COLOR", "")
	if ColorEnabled() {
		t.Error("ColorEnabled should be false when NO_COLOR is set")
	}
	if ColorEnabledFd(os.Stdout.Fd()) {
		t.Error("ColorEnabledFd should be false when NO_COLOR is set")
	}
}

func TestForcedRendererProducesANSI(t *testing.T) {
	r := ForcedRenderer()
	if r != ForcedRenderer() {
		t.Error("ForcedRenderer should return the same instance")
	}
	out := r.NewStyle().Bold(true).Render("tripnest")
	if !strings.Contains(out, "tripnest") || !strings.Contains(out, "\x1b[") {
		t.Errorf("expected ANSI-wrapped text, got %q", out)
	}
}

func TestStylesKeepText(t *testing.T) {
	for _, style := range []func(...string) string{
		StyleBold.Render, StyleDim.Render, StyleBoldCyan.Render, StyleBoldRed.Render,
		StyleSuccess.Render, StyleWarning.Render, StyleError.Render, StyleCode.Render, StyleHint.Render,
	} {
		if out := style("hello"); !strings.Contains(out, "hello") {
			t.Errorf("style dropped text: %q", out)
		}
	}
}
