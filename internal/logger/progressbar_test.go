package logger

import (
	"strings"
	"testing"
)

func TestProgressBarRender(t *testing.T) {
	tests := []struct {
		name    string
		current int
		total   int
		width   int
		want    string
	}{
		{"empty", 0, 10, 10, "[          ] 0/10 (0%)"},
		{"half", 5, 10, 10, "[=====     ] 5/10 (50%)"},
		{"full", 4, 4, 8, "[========] 4/4 (100%)"},
		{"zero total", 0, 0, 4, "[    ] 0/0 (0%)"},
		{"overflow clamps", 12, 10, 10, "[==========] 12/10 (100%)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pb := NewProgressBar(tt.total, tt.width, false)
			pb.Update(tt.current)
			if got := pb.Render(); got != tt.want {
				t.Errorf("Render() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestProgressBarPrefixAndColor(t *testing.T) {
	pb := NewProgressBar(2, 4, true)
	pb.SetPrefix("selected ")
	pb.Update(1)

	out := pb.Render()
	if !strings.HasPrefix(out, "\033[36mselected [") {
		t.Errorf("expected cyan in-progress bar with prefix, got %q", out)
	}

	pb.Update(2)
	if !strings.HasPrefix(pb.Render(), "\033[32m") {
		t.Errorf("expected green complete bar, got %q", pb.Render())
	}
}

func TestProgressBarDefaultWidth(t *testing.T) {
	pb := NewProgressBar(10, 0, false)
	if got := pb.Render(); got != "[          ] 0/10 (0%)" {
		t.Errorf("default width render = %q", got)
	}
	if pb.Percentage() != 0 {
		t.Errorf("Percentage() = %d", pb.Percentage())
	}
}
