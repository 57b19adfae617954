package extract

// WebSearchMapper normalizes web search hits into web source records.
type WebSearchMapper struct{}

// NewWebSearchMapper creates the web search family mapper.
func NewWebSearchMapper() *WebSearchMapper {
	return &WebSearchMapper{}
}

var _ FamilyMapper = (*WebSearchMapper)(nil)

func (m *WebSearchMapper) Family() string {
	return "web_search"
}

func (m *WebSearchMapper) MapAnnotation(raw map[string]any) (Annotation, bool) {
	if raw == nil {
		return Annotation{}, false
	}
	return Annotation{
		Type: "web_source",
		Data: map[string]any{
			"url":      raw["url"],
			"title":    raw["title"],
			"snippet":  raw["snippet"],
			"score":    raw["score"],
			"engine":   raw["engine"],
			"metadata": raw["metadata"],
		},
	}, true
}

func (m *WebSearchMapper) MapResult(raw map[string]any) map[string]any {
	out := make(map[string]any, len(raw))
	for k, v := range raw {
		out[k] = v
	}
	return out
}
