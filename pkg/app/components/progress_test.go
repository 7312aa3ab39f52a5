package components

import (
	"strings"
	"testing"

	"github.com/kerbaras/webtoons/pkg/download"
)

func TestNewProgressPanel(t *testing.T) {
	panel := NewProgressPanel(80)

	if panel == nil {
		t.Fatal("Expected panel to be created")
	}

	if panel.Percent() != 0 {
		t.Errorf("Expected 0 percent before updates, got %v", panel.Percent())
	}

	if panel.Done() {
		t.Error("Fresh panel should not be done")
	}
}

func TestProgressPanelPercent(t *testing.T) {
	panel := NewProgressPanel(80)

	panel.Update(download.Snapshot{Succeeded: 4, Failed: 1, Total: 10})

	if got := panel.Percent(); got != 0.5 {
		t.Errorf("Expected 0.5, got %v", got)
	}

	panel.Update(download.Snapshot{Succeeded: 10, Total: 10})
	if !panel.Done() {
		t.Error("Expected panel done when all items accounted for")
	}
}

func TestProgressPanelView(t *testing.T) {
	panel := NewProgressPanel(80)
	panel.Update(download.Snapshot{
		Succeeded: 3,
		Failed:    1,
		Total:     10,
		Current:   "Episode 2 #004",
	})

	view := panel.View()

	if !strings.Contains(view, "4/10 images") {
		t.Error("Expected counters in view")
	}
	if !strings.Contains(view, "1 failed") {
		t.Error("Expected failure count in view")
	}
	if !strings.Contains(view, "Episode 2 #004") {
		t.Error("Expected current item label in view")
	}
}

func TestProgressPanelViewWithError(t *testing.T) {
	panel := NewProgressPanel(80)
	panel.Update(download.Snapshot{
		Succeeded: 1,
		Failed:    1,
		Total:     4,
		Err:       &testError{"giving up after 3 attempts"},
	})

	view := panel.View()

	if !strings.Contains(view, "Error:") {
		t.Error("Expected error line in view")
	}
	if !strings.Contains(view, "giving up after 3 attempts") {
		t.Error("Expected error details in view")
	}
}

func TestProgressPanelZeroTotal(t *testing.T) {
	panel := NewProgressPanel(80)
	panel.Update(download.Snapshot{})

	if panel.Percent() != 0 {
		t.Errorf("Expected 0 percent for empty run, got %v", panel.Percent())
	}
	if panel.Done() {
		t.Error("Empty run should not read as done")
	}
}

type testError struct {
	msg string
}

func (e *testError) Error() string {
	return e.msg
}
