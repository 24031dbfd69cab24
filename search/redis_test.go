package search

import (
	"context"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/compliance-oracle/sdk/framework"
)

// stubEmbedder maps texts onto axis-aligned vectors so ranking is exact:
// anything mentioning encryption lands on one axis, access on the other.
type stubEmbedder struct{}

func (stubEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "encryption"):
		return []float32{1, 0}, nil
	case strings.Contains(lower, "access"):
		return []float32{0, 1}, nil
	default:
		return []float32{0.5, 0.5}, nil
	}
}

type indexCatalogs struct {
	controls map[string][]framework.Control
}

func (c *indexCatalogs) ListControls(_ context.Context, frameworkID string, _ framework.ListOptions) ([]framework.Control, error) {
	return c.controls[frameworkID], nil
}

func newRedisIndex(t *testing.T) *RedisIndex {
	t.Helper()

	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { client.Close() })

	catalogs := &indexCatalogs{controls: map[string][]framework.Control{
		"nist-csf-2.0": {
			{
				ID:          "PR.DS-01",
				Name:        "Data-at-rest protection",
				Description: "Data at rest is protected with encryption.",
				FrameworkID: "nist-csf-2.0",
			},
			{
				ID:          "PR.AC-01",
				Name:        "Identity management",
				Description: "Access to assets is limited to authorized users.",
				FrameworkID: "nist-csf-2.0",
			},
		},
		"nist-800-53-r5": {
			{
				ID:          "SC-28",
				Name:        "Protection of Information at Rest",
				Description: "Protect information at rest with encryption.",
				FrameworkID: "nist-800-53-r5",
			},
		},
	}}

	return NewRedisIndex(client, "test", stubEmbedder{}, catalogs, nil)
}

func TestRedisIndex_IndexAndSearch(t *testing.T) {
	idx := newRedisIndex(t)
	ctx := context.Background()

	count, err := idx.Index(ctx, "nist-csf-2.0")
	if err != nil {
		t.Fatalf("Index() error = %v", err)
	}
	if count != 2 {
		t.Errorf("Index() = %d, want 2", count)
	}

	indexed, err := idx.IsIndexed(ctx, "nist-csf-2.0")
	if err != nil || !indexed {
		t.Fatalf("IsIndexed() = %v, %v, want true", indexed, err)
	}

	results, err := idx.Search(ctx, "encryption at rest", "nist-csf-2.0", 10)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("Search() returned %d results, want 2", len(results))
	}
	if results[0].ControlID != "PR.DS-01" {
		t.Errorf("top result = %s, want PR.DS-01", results[0].ControlID)
	}
	if results[0].RelevanceScore <= results[1].RelevanceScore {
		t.Errorf("results not ordered: %v", results)
	}
	if results[0].RelevanceScore < 0 || results[0].RelevanceScore > 1 {
		t.Errorf("relevance out of range: %f", results[0].RelevanceScore)
	}
}

func TestRedisIndex_SearchAcrossFrameworks(t *testing.T) {
	idx := newRedisIndex(t)
	ctx := context.Background()

	if _, err := idx.Index(ctx, "nist-csf-2.0"); err != nil {
		t.Fatal(err)
	}
	if _, err := idx.Index(ctx, "nist-800-53-r5"); err != nil {
		t.Fatal(err)
	}

	results, err := idx.Search(ctx, "encryption", "", 2)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("Search() returned %d results, want 2 (limit)", len(results))
	}
	frameworks := map[string]bool{}
	for _, r := range results {
		frameworks[r.FrameworkID] = true
	}
	if len(frameworks) != 2 {
		t.Errorf("top hits should span both frameworks, got %v", results)
	}
}

func TestRedisIndex_IndexEmptyFramework(t *testing.T) {
	idx := newRedisIndex(t)
	ctx := context.Background()

	count, err := idx.Index(ctx, "unknown-framework")
	if err != nil {
		t.Fatalf("Index() error = %v", err)
	}
	if count != 0 {
		t.Errorf("Index() = %d, want 0", count)
	}

	indexed, err := idx.IsIndexed(ctx, "unknown-framework")
	if err != nil || indexed {
		t.Errorf("IsIndexed() = %v, %v, want false", indexed, err)
	}
}

func TestRedisIndex_Clear(t *testing.T) {
	idx := newRedisIndex(t)
	ctx := context.Background()

	if _, err := idx.Index(ctx, "nist-csf-2.0"); err != nil {
		t.Fatal(err)
	}
	if _, err := idx.Index(ctx, "nist-800-53-r5"); err != nil {
		t.Fatal(err)
	}

	removed, err := idx.Clear(ctx, "nist-csf-2.0")
	if err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if removed != 2 {
		t.Errorf("Clear() = %d, want 2", removed)
	}

	indexed, err := idx.IsIndexed(ctx, "nist-csf-2.0")
	if err != nil || indexed {
		t.Errorf("IsIndexed() after clear = %v, %v, want false", indexed, err)
	}

	// Clearing everything removes the remaining framework too.
	removed, err = idx.Clear(ctx, "")
	if err != nil {
		t.Fatalf("Clear(all) error = %v", err)
	}
	if removed != 1 {
		t.Errorf("Clear(all) = %d, want 1", removed)
	}
}

func TestConnect_BadURL(t *testing.T) {
	if _, err := Connect(context.Background(), "not a url"); err == nil {
		t.Error("Connect() should fail on an unparseable url")
	}
}
