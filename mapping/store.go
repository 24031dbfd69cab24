package mapping

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	sdk "github.com/compliance-oracle/sdk"
	"github.com/compliance-oracle/sdk/framework"
)

// CatalogSource is the slice of the framework manager the store needs:
// enumerating registered frameworks, walking a framework's controls during
// synthesis, and resolving a framework's publication tokens.
type CatalogSource interface {
	ListFrameworks(ctx context.Context) ([]framework.Info, error)
	ListControls(ctx context.Context, frameworkID string, opts framework.ListOptions) ([]framework.Control, error)
	ReferenceTokens(frameworkID string) []string
}

// mappingDocument is the on-disk shape of an explicit mapping file.
type mappingDocument struct {
	Mappings []struct {
		SourceControlID string `json:"source_control_id"`
		TargetControlID string `json:"target_control_id"`
		Relationship    string `json:"relationship"`
	} `json:"mappings"`
}

// Store resolves directed control mappings between framework pairs.
//
// Resolution order for a (source, target) pair: an explicit document named
// "<source>_to_<target>.json" in the mappings directory wins; otherwise
// mappings are synthesized from reference text. Results are cached per
// ordered pair; direction matters, a pair and its reverse are distinct
// entries. The cache is populated lazily and idempotently, concurrent first
// loads converge to equivalent content.
type Store struct {
	dir      string
	catalogs CatalogSource
	logger   *slog.Logger

	mu    sync.RWMutex
	cache map[string][]Mapping
}

// NewStore creates a mapping store over the given mappings directory.
// If logger is nil, slog.Default() is used.
func NewStore(dir string, catalogs CatalogSource, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		dir:      dir,
		catalogs: catalogs,
		logger:   logger,
		cache:    make(map[string][]Mapping),
	}
}

// Mappings returns every directed mapping from source to target framework.
// Unknown framework ids yield an empty slice, not an error; a present but
// unparseable mapping document fails loudly.
func (s *Store) Mappings(ctx context.Context, sourceFw, targetFw string) ([]Mapping, error) {
	key := sourceFw + ":" + targetFw

	s.mu.RLock()
	cached, ok := s.cache[key]
	s.mu.RUnlock()
	if ok {
		return cached, nil
	}

	mappings, err := s.loadExplicit(sourceFw, targetFw)
	if err != nil {
		return nil, err
	}
	if mappings == nil {
		mappings, err = s.synthesize(ctx, sourceFw, targetFw)
		if err != nil {
			return nil, err
		}
	}
	if mappings == nil {
		mappings = []Mapping{}
	}

	s.mu.Lock()
	if existing, ok := s.cache[key]; ok {
		mappings = existing
	} else {
		s.cache[key] = mappings
	}
	s.mu.Unlock()

	return mappings, nil
}

// loadExplicit parses the pair's mapping document if one exists. Returns
// (nil, nil) when the document is absent so the caller falls through to
// synthesis.
func (s *Store) loadExplicit(sourceFw, targetFw string) ([]Mapping, error) {
	path := filepath.Join(s.dir, fmt.Sprintf("%s_to_%s.json", sourceFw, targetFw))

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading mapping document %s: %w", path, err)
	}

	var doc mappingDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, sdk.NewMalformedError("mapping.loadExplicit",
			fmt.Errorf("%w: %v", sdk.ErrMalformedDocument, err)).
			WithContext(map[string]any{"path": path})
	}

	mappings := make([]Mapping, 0, len(doc.Mappings))
	for _, m := range doc.Mappings {
		mapped := Mapping{
			SourceFrameworkID: sourceFw,
			SourceControlID:   m.SourceControlID,
			TargetFrameworkID: targetFw,
			TargetControlID:   m.TargetControlID,
			Relationship:      ParseRelationship(m.Relationship),
		}
		if err := mapped.Validate(); err != nil {
			return nil, sdk.NewMalformedError("mapping.loadExplicit",
				fmt.Errorf("%w: %v", sdk.ErrMalformedDocument, err)).
				WithContext(map[string]any{"path": path})
		}
		mappings = append(mappings, mapped)
	}

	s.logger.Debug("explicit mappings loaded",
		"source", sourceFw, "target", targetFw, "count", len(mappings))

	return mappings, nil
}

// synthesize derives mappings by scanning the source framework's
// informative-reference strings for embedded target control identifiers.
// Only references that cite one of the target framework's publication tokens
// are scanned, and every synthesized mapping carries the related tier since
// free-text extraction has no relationship-strength signal.
func (s *Store) synthesize(ctx context.Context, sourceFw, targetFw string) ([]Mapping, error) {
	tokens := s.catalogs.ReferenceTokens(targetFw)
	if len(tokens) == 0 {
		return []Mapping{}, nil
	}

	controls, err := s.catalogs.ListControls(ctx, sourceFw, framework.ListOptions{})
	if err != nil {
		return nil, err
	}

	var mappings []Mapping
	seen := make(map[string]bool)
	for _, ctrl := range controls {
		for _, ref := range ctrl.InformativeReferences {
			if !mentionsAny(ref, tokens) {
				continue
			}
			for _, targetID := range extractControlIDs(ref) {
				pair := ctrl.ID + ">" + targetID
				if seen[pair] {
					continue
				}
				seen[pair] = true
				mappings = append(mappings, Mapping{
					SourceFrameworkID: sourceFw,
					SourceControlID:   ctrl.ID,
					TargetFrameworkID: targetFw,
					TargetControlID:   targetID,
					Relationship:      RelationshipRelated,
				})
			}
		}
	}

	s.logger.Debug("mappings synthesized from references",
		"source", sourceFw, "target", targetFw, "count", len(mappings))

	return mappings, nil
}

// MappingsFor returns the mappings whose source is the given control. When
// targetFw is empty, every other registered framework is consulted.
func (s *Store) MappingsFor(ctx context.Context, sourceFw, controlID, targetFw string) ([]Mapping, error) {
	targets, err := s.targetFrameworks(ctx, sourceFw, targetFw)
	if err != nil {
		return nil, err
	}

	results := []Mapping{}
	for _, target := range targets {
		mappings, err := s.Mappings(ctx, sourceFw, target)
		if err != nil {
			return nil, err
		}
		for _, m := range mappings {
			if m.SourceControlID == controlID {
				results = append(results, m)
			}
		}
	}
	return results, nil
}

// ReverseMappings returns the mappings from other frameworks whose target is
// the given control.
func (s *Store) ReverseMappings(ctx context.Context, targetFw, controlID string) ([]Mapping, error) {
	sources, err := s.targetFrameworks(ctx, targetFw, "")
	if err != nil {
		return nil, err
	}

	results := []Mapping{}
	for _, source := range sources {
		mappings, err := s.Mappings(ctx, source, targetFw)
		if err != nil {
			return nil, err
		}
		for _, m := range mappings {
			if m.TargetControlID == controlID {
				results = append(results, m)
			}
		}
	}
	return results, nil
}

// targetFrameworks resolves the framework set to consult: the explicit
// target if given, otherwise every registered framework except the one being
// mapped from.
func (s *Store) targetFrameworks(ctx context.Context, excludeFw, targetFw string) ([]string, error) {
	if targetFw != "" {
		return []string{targetFw}, nil
	}

	infos, err := s.catalogs.ListFrameworks(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(infos))
	for _, info := range infos {
		if info.ID != excludeFw {
			ids = append(ids, info.ID)
		}
	}
	return ids, nil
}
