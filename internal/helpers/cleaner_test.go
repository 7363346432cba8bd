package helpers

import "testing"

func TestUnwrapFence(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   string
		want string
	}{
		{in: "```markdown\n## Clean\nbody\n```", want: "## Clean\nbody"},
		{in: "~~~\nplain\n~~~", want: "plain"},
		{in: "\uFEFF```text\nbom\n```\ntrailing note", want: "bom"},
		{in: "  no fence  ", want: "no fence"},
		{in: "intro\n```\ncode\n```", want: "intro\n```\ncode\n```"},
		{in: "```\nunterminated", want: "```\nunterminated"},
		{in: "```", want: "```"},
	}
	for _, tt := range tests {
		if got := UnwrapFence(tt.in); got != tt.want {
			t.Fatalf("UnwrapFence(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
