// Package extract walks completed response output arrays and produces
// normalized annotation and tool result records. Tool families are
// registered per mapper, so supporting a new family never touches the
// extraction loop.
package extract

import (
	"relay-server/services/response-orchestrator/internal/domain/llm"
)

// Annotation is a normalized side-channel record derived from one
// annotation output entry.
type Annotation struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data"`
}

// ToolResult groups the normalized result records of one tool invocation.
type ToolResult struct {
	Type    string           `json:"type"`
	Results []map[string]any `json:"results"`
}

// Extraction is the combined outcome of walking one completed response.
type Extraction struct {
	Annotations []Annotation `json:"annotations"`
	ToolResults []ToolResult `json:"tool_results"`
}

// FamilyMapper normalizes the wire records of one tool family.
type FamilyMapper interface {
	// Family returns the wire identifier this mapper handles. It matches
	// both the annotation source field and the tool_result tool_name field.
	Family() string
	// MapAnnotation converts one raw annotation payload. The second return
	// is false when the payload cannot be normalized and must be skipped.
	MapAnnotation(raw map[string]any) (Annotation, bool)
	// MapResult converts one raw result record, renaming wire fields to
	// their normalized names. The input map is never mutated.
	MapResult(raw map[string]any) map[string]any
}

// Registry holds the known family mappers.
type Registry struct {
	mappers map[string]FamilyMapper
}

// NewRegistry creates a registry with the given mappers.
func NewRegistry(mappers ...FamilyMapper) *Registry {
	r := &Registry{mappers: make(map[string]FamilyMapper, len(mappers))}
	for _, m := range mappers {
		r.Register(m)
	}
	return r
}

// DefaultRegistry returns a registry with every built-in family.
func DefaultRegistry() *Registry {
	return NewRegistry(NewFileSearchMapper(), NewWebSearchMapper())
}

// Register adds or replaces the mapper for a family.
func (r *Registry) Register(m FamilyMapper) {
	r.mappers[m.Family()] = m
}

// Parse walks the output array in order. Annotation entries from unknown
// families are skipped; tool_result entries from unknown families pass
// through with their records unchanged. Entries of any other type are
// ignored.
func (r *Registry) Parse(output []llm.OutputItem) Extraction {
	extraction := Extraction{
		Annotations: []Annotation{},
		ToolResults: []ToolResult{},
	}

	for _, item := range output {
		switch item.Type {
		case llm.OutputTypeAnnotation:
			source, _ := item.Annotation["source"].(string)
			mapper, known := r.mappers[source]
			if !known {
				continue
			}
			if annotation, ok := mapper.MapAnnotation(item.Annotation); ok {
				extraction.Annotations = append(extraction.Annotations, annotation)
			}
		case llm.OutputTypeToolResult:
			results := item.Results
			if mapper, known := r.mappers[item.ToolName]; known {
				mapped := make([]map[string]any, 0, len(results))
				for _, raw := range results {
					mapped = append(mapped, mapper.MapResult(raw))
				}
				results = mapped
			}
			extraction.ToolResults = append(extraction.ToolResults, ToolResult{
				Type:    item.ToolName,
				Results: results,
			})
		}
	}

	return extraction
}

// cloneWithRename copies a record, renaming one wire field when present.
func cloneWithRename(raw map[string]any, from, to string) map[string]any {
	out := make(map[string]any, len(raw))
	for k, v := range raw {
		if k == from {
			out[to] = v
			continue
		}
		out[k] = v
	}
	return out
}
