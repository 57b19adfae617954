package extract

// FileSearchMapper normalizes document search hits into citation records.
type FileSearchMapper struct{}

// NewFileSearchMapper creates the document search family mapper.
func NewFileSearchMapper() *FileSearchMapper {
	return &FileSearchMapper{}
}

var _ FamilyMapper = (*FileSearchMapper)(nil)

func (m *FileSearchMapper) Family() string {
	return "file_search"
}

func (m *FileSearchMapper) MapAnnotation(raw map[string]any) (Annotation, bool) {
	if raw == nil {
		return Annotation{}, false
	}
	return Annotation{
		Type: "citation",
		Data: map[string]any{
			"documentId": raw["document_id"],
			"filename":   raw["filename"],
			"passage":    raw["passage"],
			"score":      raw["score"],
			"metadata":   raw["metadata"],
		},
	}, true
}

func (m *FileSearchMapper) MapResult(raw map[string]any) map[string]any {
	return cloneWithRename(raw, "document_id", "documentId")
}
