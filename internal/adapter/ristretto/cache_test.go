package ristretto

import (
	"testing"

	"github.com/appforge-ai/AppForge/internal/domain/state"
	"github.com/appforge-ai/AppForge/internal/domain/template"
)

func TestCompileCachesPrograms(t *testing.T) {
	tc, err := NewTemplateCache(1 << 20)
	if err != nil {
		t.Fatal(err)
	}
	defer tc.Close()

	first, err := tc.Compile("hello {{state.name}}")
	if err != nil {
		t.Fatal(err)
	}
	ctx := template.Context{State: state.Document{"name": "world"}}
	if got := first.RenderString(ctx); got != "hello world" {
		t.Errorf("render = %q", got)
	}

	// Re-compiling must at minimum return an equivalent program; a warm
	// cache returns the same one.
	second, err := tc.Compile("hello {{state.name}}")
	if err != nil {
		t.Fatal(err)
	}
	if got := second.RenderString(ctx); got != "hello world" {
		t.Errorf("render = %q", got)
	}
}

func TestCompilePropagatesParseErrors(t *testing.T) {
	tc, err := NewTemplateCache(1 << 20)
	if err != nil {
		t.Fatal(err)
	}
	defer tc.Close()

	if _, err := tc.Compile("{{state.broken"); err == nil {
		t.Fatal("expected parse error")
	}
}
