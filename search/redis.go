package search

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"

	"github.com/redis/go-redis/v9"

	sdk "github.com/compliance-oracle/sdk"
	"github.com/compliance-oracle/sdk/framework"
)

// IndexCatalogSource lists a framework's controls for indexing.
type IndexCatalogSource interface {
	ListControls(ctx context.Context, frameworkID string, opts framework.ListOptions) ([]framework.Control, error)
}

// RedisIndex is a Provider backed by redis. Each control is stored as a hash
// under "<prefix>:ctrl:<framework>:<control>" carrying its metadata and
// embedding; per-framework sets under "<prefix>:fwidx:<framework>" track
// membership, and "<prefix>:frameworks" tracks indexed frameworks.
type RedisIndex struct {
	client   *redis.Client
	prefix   string
	embedder Embedder
	catalogs IndexCatalogSource
	logger   *slog.Logger
}

// Connect opens a redis client from a URL and verifies the connection.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, sdk.NewConfigurationError("search.Connect",
			fmt.Errorf("parsing redis url: %w", err))
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, sdk.NewUnavailableError("search.Connect",
			fmt.Errorf("pinging redis: %w", err))
	}
	return client, nil
}

// NewRedisIndex creates a redis-backed search provider. If logger is nil,
// slog.Default() is used.
func NewRedisIndex(client *redis.Client, prefix string, embedder Embedder, catalogs IndexCatalogSource, logger *slog.Logger) *RedisIndex {
	if prefix == "" {
		prefix = "oracle"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisIndex{
		client:   client,
		prefix:   prefix,
		embedder: embedder,
		catalogs: catalogs,
		logger:   logger,
	}
}

func (r *RedisIndex) controlKey(frameworkID, controlID string) string {
	return fmt.Sprintf("%s:ctrl:%s:%s", r.prefix, frameworkID, controlID)
}

func (r *RedisIndex) frameworkSetKey(frameworkID string) string {
	return fmt.Sprintf("%s:fwidx:%s", r.prefix, frameworkID)
}

func (r *RedisIndex) frameworksKey() string {
	return r.prefix + ":frameworks"
}

// Index implements Provider.
func (r *RedisIndex) Index(ctx context.Context, frameworkID string) (int, error) {
	controls, err := r.catalogs.ListControls(ctx, frameworkID, framework.ListOptions{})
	if err != nil {
		return 0, err
	}
	if len(controls) == 0 {
		return 0, nil
	}

	pipe := r.client.Pipeline()
	for _, ctrl := range controls {
		vector, err := r.embedder.Embed(ctx, DocumentText(ctrl))
		if err != nil {
			return 0, fmt.Errorf("embedding control %s: %w", ctrl.ID, err)
		}
		encoded, err := json.Marshal(vector)
		if err != nil {
			return 0, fmt.Errorf("encoding embedding for %s: %w", ctrl.ID, err)
		}

		key := r.controlKey(frameworkID, ctrl.ID)
		pipe.HSet(ctx, key, map[string]any{
			"control_id":    ctrl.ID,
			"control_name":  ctrl.Name,
			"framework_id":  frameworkID,
			"function_id":   ctrl.FunctionID,
			"function_name": ctrl.FunctionName,
			"category_id":   ctrl.CategoryID,
			"category_name": ctrl.CategoryName,
			"description":   ctrl.Description,
			"embedding":     string(encoded),
		})
		pipe.SAdd(ctx, r.frameworkSetKey(frameworkID), key)
	}
	pipe.SAdd(ctx, r.frameworksKey(), frameworkID)

	if _, err := pipe.Exec(ctx); err != nil {
		return 0, sdk.NewUnavailableError("search.Index", err).
			WithContext(map[string]any{"framework_id": frameworkID})
	}

	r.logger.Info("framework indexed", "framework_id", frameworkID, "controls", len(controls))
	return len(controls), nil
}

// Search implements Provider. Candidates are ranked by cosine similarity of
// their stored embeddings against the query embedding.
func (r *RedisIndex) Search(ctx context.Context, query, frameworkID string, limit int) ([]Result, error) {
	if limit <= 0 {
		limit = 10
	}

	queryVector, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	keys, err := r.candidateKeys(ctx, frameworkID)
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(keys))
	for _, key := range keys {
		fields, err := r.client.HGetAll(ctx, key).Result()
		if err != nil {
			return nil, sdk.NewUnavailableError("search.Search", err)
		}
		if len(fields) == 0 {
			continue
		}

		var vector []float32
		if err := json.Unmarshal([]byte(fields["embedding"]), &vector); err != nil {
			r.logger.Warn("skipping entry with undecodable embedding", "key", key)
			continue
		}

		results = append(results, Result{
			ControlID:      fields["control_id"],
			ControlName:    fields["control_name"],
			Description:    fields["description"],
			FrameworkID:    fields["framework_id"],
			RelevanceScore: clampScore(cosine(queryVector, vector)),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].RelevanceScore > results[j].RelevanceScore
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// candidateKeys resolves the hash keys to score for a query.
func (r *RedisIndex) candidateKeys(ctx context.Context, frameworkID string) ([]string, error) {
	if frameworkID != "" {
		keys, err := r.client.SMembers(ctx, r.frameworkSetKey(frameworkID)).Result()
		if err != nil {
			return nil, sdk.NewUnavailableError("search.candidateKeys", err)
		}
		return keys, nil
	}

	frameworks, err := r.client.SMembers(ctx, r.frameworksKey()).Result()
	if err != nil {
		return nil, sdk.NewUnavailableError("search.candidateKeys", err)
	}

	var keys []string
	for _, fw := range frameworks {
		members, err := r.client.SMembers(ctx, r.frameworkSetKey(fw)).Result()
		if err != nil {
			return nil, sdk.NewUnavailableError("search.candidateKeys", err)
		}
		keys = append(keys, members...)
	}
	return keys, nil
}

// IsIndexed implements Provider.
func (r *RedisIndex) IsIndexed(ctx context.Context, frameworkID string) (bool, error) {
	count, err := r.client.SCard(ctx, r.frameworkSetKey(frameworkID)).Result()
	if err != nil {
		return false, sdk.NewUnavailableError("search.IsIndexed", err)
	}
	return count > 0, nil
}

// Clear implements Provider.
func (r *RedisIndex) Clear(ctx context.Context, frameworkID string) (int, error) {
	if frameworkID == "" {
		frameworks, err := r.client.SMembers(ctx, r.frameworksKey()).Result()
		if err != nil {
			return 0, sdk.NewUnavailableError("search.Clear", err)
		}

		total := 0
		for _, fw := range frameworks {
			n, err := r.Clear(ctx, fw)
			if err != nil {
				return total, err
			}
			total += n
		}
		return total, nil
	}

	setKey := r.frameworkSetKey(frameworkID)
	keys, err := r.client.SMembers(ctx, setKey).Result()
	if err != nil {
		return 0, sdk.NewUnavailableError("search.Clear", err)
	}

	pipe := r.client.Pipeline()
	if len(keys) > 0 {
		pipe.Del(ctx, keys...)
	}
	pipe.Del(ctx, setKey)
	pipe.SRem(ctx, r.frameworksKey(), frameworkID)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, sdk.NewUnavailableError("search.Clear", err)
	}

	r.logger.Info("index cleared", "framework_id", frameworkID, "removed", len(keys))
	return len(keys), nil
}
