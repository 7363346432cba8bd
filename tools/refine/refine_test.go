package refine

import (
	"context"
	"errors"
	"testing"
)

type fakeCompleter struct {
	out    string
	err    error
	system string
	user   string
}

func (f *fakeCompleter) Complete(_ context.Context, system, user string) (string, error) {
	f.system, f.user = system, user
	return f.out, f.err
}

func TestNewWithoutCompleterIsNoop(t *testing.T) {
	t.Parallel()
	r := New(nil)
	if r.Enabled() {
		t.Fatalf("nil completer should give a disabled refiner")
	}
	out, err := r.Refine(context.Background(), "text")
	if err != nil || out != "text" {
		t.Fatalf("Refine() = %q, %v", out, err)
	}
}

func TestLLMRefine(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		out     string
		err     error
		want    string
		wantErr error
	}{
		{name: "plain", out: "  clean text \n", want: "clean text"},
		{name: "fenced", out: "```markdown\nclean text\n```", want: "clean text"},
		{name: "empty", out: "   ", wantErr: ErrEmptyOutput},
		{name: "failure", err: errors.New("quota"), wantErr: errors.New("quota")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fc := &fakeCompleter{out: tt.out, err: tt.err}
			r := New(fc)
			if !r.Enabled() {
				t.Fatalf("expected enabled refiner")
			}
			got, err := r.Refine(context.Background(), "raw page")
			if tt.wantErr != nil {
				if err == nil || err.Error() != tt.wantErr.Error() {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Fatalf("Refine() = %q, %v; want %q", got, err, tt.want)
			}
			if fc.user != "INPUT TEXT:\nraw page" || fc.system == "" {
				t.Fatalf("unexpected prompt: system=%q user=%q", fc.system, fc.user)
			}
		})
	}
}
