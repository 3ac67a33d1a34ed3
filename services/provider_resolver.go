package services

import (
	"context"
	"math"
	"strconv"
	"strings"
)

// DefaultProviderID is the embedding provider used when a knowledge base
// carries no usable provider setting.
const DefaultProviderID = 1

// Well-known provider slugs. Anything else goes through the directory.
var providerSlugs = map[string]int{
	"openai":    1,
	"anthropic": 2,
	"mistral":   3,
}

// ProviderResolver turns whatever a knowledge base stored as its embedding
// provider setting into a usable positive provider id. Resolution is total:
// it never returns an error, every input maps to some id.
type ProviderResolver struct {
	directory ProviderDirectory
	fallback  int
}

// NewProviderResolver builds a resolver that falls back to the given id for
// unusable inputs. A fallback below 1 means DefaultProviderID.
func NewProviderResolver(directory ProviderDirectory, fallback int) *ProviderResolver {
	if fallback < 1 {
		fallback = DefaultProviderID
	}
	return &ProviderResolver{directory: directory, fallback: fallback}
}

// Resolve accepts the raw setting value. Numbers (and numeric strings) are
// used directly, known slugs map through the static table, unknown slugs
// are looked up in the directory, and anything unusable falls back to the
// configured default. The result is clamped to be at least 1.
func (r *ProviderResolver) Resolve(ctx context.Context, value any) int {
	id := r.resolve(ctx, value)
	if id < 1 {
		return r.fallback
	}
	return id
}

func (r *ProviderResolver) resolve(ctx context.Context, value any) int {
	switch v := value.(type) {
	case nil:
		return r.fallback
	case int:
		return v
	case int32:
		return int(v)
	case int64:
		return int(v)
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return r.fallback
		}
		return int(v)
	case string:
		return r.resolveString(ctx, v)
	default:
		return r.fallback
	}
}

func (r *ProviderResolver) resolveString(ctx context.Context, raw string) int {
	slug := strings.ToLower(strings.TrimSpace(raw))
	if slug == "" {
		return r.fallback
	}
	if n, err := strconv.Atoi(slug); err == nil {
		return n
	}
	if id, ok := providerSlugs[slug]; ok {
		return id
	}
	if r.directory != nil {
		if id, err := r.directory.LookupProviderIDBySlug(ctx, slug); err == nil && id > 0 {
			return id
		}
	}
	return r.fallback
}
