package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"

	"github.com/kerbaras/webtoons/pkg/app/styles"
	"github.com/kerbaras/webtoons/pkg/download"
)

// ProgressPanel renders download tracker snapshots: a bar over the
// whole run, counters, and the most recent item label.
type ProgressPanel struct {
	bar     progress.Model
	current download.Snapshot
	width   int
}

func NewProgressPanel(width int) *ProgressPanel {
	bar := progress.New(progress.WithDefaultGradient())
	bar.Width = width - 4
	return &ProgressPanel{bar: bar, width: width}
}

func (p *ProgressPanel) SetWidth(width int) {
	p.width = width
	p.bar.Width = width - 4
}

func (p *ProgressPanel) Update(snap download.Snapshot) {
	p.current = snap
}

func (p *ProgressPanel) Percent() float64 {
	if p.current.Total == 0 {
		return 0
	}
	return float64(p.current.Succeeded+p.current.Failed) / float64(p.current.Total)
}

func (p *ProgressPanel) Done() bool {
	return p.current.Done()
}

func (p *ProgressPanel) View() string {
	snap := p.current

	var b strings.Builder
	b.WriteString(p.bar.ViewAs(p.Percent()))
	b.WriteString("\n")

	counts := fmt.Sprintf("%d/%d images", snap.Succeeded+snap.Failed, snap.Total)
	if snap.Failed > 0 {
		counts += styles.StatusError.Render(fmt.Sprintf(" (%d failed)", snap.Failed))
	}
	b.WriteString(styles.TextStyle.Render(counts))
	b.WriteString("\n")

	if snap.Current != "" {
		b.WriteString(styles.MutedStyle.Render(snap.Current))
		b.WriteString("\n")
	}
	if snap.Err != nil {
		b.WriteString(styles.StatusError.Render(fmt.Sprintf("Error: %s", snap.Err)))
		b.WriteString("\n")
	}

	return b.String()
}
