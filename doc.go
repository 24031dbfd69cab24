// Package sdk provides the Compliance Oracle SDK: a toolkit for building
// agent-facing compliance knowledge services over structured control catalogs
// such as NIST CSF 2.0 and NIST SP 800-53.
//
// The SDK loads framework catalogs, resolves typed cross-framework control
// mappings, persists per-project implementation state with linked evidence,
// and projects coverage verdicts onto target frameworks through the gap
// analysis engine. It is consumed through a tool-call surface intended for
// LLM agents and orchestration layers rather than a human UI.
//
// # Core Concepts
//
//   - Frameworks: versioned catalogs of controls organized into
//     functions/categories or families (package framework)
//   - Mappings: directional, relationship-typed links between controls of
//     two frameworks (package mapping)
//   - Compliance state: a project's documented control statuses and
//     evidence, persisted as a single JSON document (package state)
//   - Gap analysis: relationship-aware projection of documented coverage
//     onto a target framework (package gap)
//   - Search: semantic discovery over control text behind a narrow
//     provider interface (package search)
//   - Tools: schema-validated, registry-managed operations exposed to the
//     agent layer (packages tool and toolset)
//
// # Getting Started
//
// Load configuration, build the managers, and register the tool surface:
//
//	cfg, err := config.LoadFromDir(".")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	frameworks := framework.NewManager(cfg.FrameworksDir, nil)
//	mappings := mapping.NewStore(cfg.MappingsDir, frameworks, nil)
//	states := state.NewManager(frameworks, nil)
//
//	registry := tool.NewRegistry(nil)
//	if err := toolset.Register(registry, toolset.Deps{
//		Frameworks: frameworks,
//		Mappings:   mappings,
//		States:     states,
//	}); err != nil {
//		log.Fatal(err)
//	}
//
// # Error Handling
//
// The SDK uses structured errors via the Error type, which wraps underlying
// errors with operation and kind context. Read paths (catalog listing,
// mapping resolution, gap analysis) degrade to empty results on missing
// data; state mutation paths validate strictly and surface hard failures
// such as ErrNotDocumented.
package sdk
