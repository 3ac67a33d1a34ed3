package services

import (
	"context"
	"fmt"
	"testing"
)

type fakeDirectory struct {
	slugs map[string]int
	err   error
}

func (d *fakeDirectory) LookupProviderIDBySlug(_ context.Context, slug string) (int, error) {
	if d.err != nil {
		return 0, d.err
	}
	return d.slugs[slug], nil
}

func TestProviderResolver(t *testing.T) {
	dir := &fakeDirectory{slugs: map[string]int{"voyage": 7}}
	r := NewProviderResolver(dir, DefaultProviderID)
	ctx := context.Background()

	cases := []struct {
		name  string
		value any
		want  int
	}{
		{"nil", nil, 1},
		{"empty string", "", 1},
		{"known slug openai", "openai", 1},
		{"known slug anthropic", "anthropic", 2},
		{"known slug mistral", "mistral", 3},
		{"slug case insensitive", "  Mistral ", 3},
		{"numeric string", "2", 2},
		{"int", 3, 3},
		{"int32", int32(2), 2},
		{"int64", int64(5), 5},
		{"float", float64(2), 2},
		{"zero clamps to default", 0, 1},
		{"negative clamps to default", -5, 1},
		{"zero string clamps to default", "0", 1},
		{"directory slug", "voyage", 7},
		{"unknown slug", "no-such-provider", 1},
		{"unsupported type", []string{"x"}, 1},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := r.Resolve(ctx, tc.value); got != tc.want {
				t.Fatalf("Resolve(%v) = %d, want %d", tc.value, got, tc.want)
			}
		})
	}
}

func TestProviderResolverDirectoryFailure(t *testing.T) {
	r := NewProviderResolver(&fakeDirectory{err: fmt.Errorf("db down")}, DefaultProviderID)
	if got := r.Resolve(context.Background(), "voyage"); got != 1 {
		t.Fatalf("expected default on directory failure, got %d", got)
	}
}

func TestProviderResolverNoDirectory(t *testing.T) {
	r := NewProviderResolver(nil, DefaultProviderID)
	if got := r.Resolve(context.Background(), "voyage"); got != 1 {
		t.Fatalf("expected default without directory, got %d", got)
	}
}

func TestProviderResolverConfiguredFallback(t *testing.T) {
	r := NewProviderResolver(nil, 9)
	if got := r.Resolve(context.Background(), "no-such-provider"); got != 9 {
		t.Fatalf("expected configured fallback, got %d", got)
	}
	if got := r.Resolve(context.Background(), -3); got != 9 {
		t.Fatalf("expected clamp to configured fallback, got %d", got)
	}

	r = NewProviderResolver(nil, 0)
	if got := r.Resolve(context.Background(), nil); got != DefaultProviderID {
		t.Fatalf("unset fallback should mean the default, got %d", got)
	}
}
