package response

import (
	"fmt"

	orcherrors "relay-server/services/response-orchestrator/internal/domain/errors"
	"relay-server/services/response-orchestrator/internal/domain/llm"
)

// BuildPayload maps a request onto the provider wire shape. Each input item
// maps to exactly one wire item, in input order. previous_response_id and
// metadata are omitted from the payload entirely when absent, never sent as
// null.
func BuildPayload(req Request) (llm.Payload, error) {
	if req.Model == "" {
		return llm.Payload{}, orcherrors.NewInvalidRequest("model is required")
	}

	items, err := buildInputItems(req)
	if err != nil {
		return llm.Payload{}, err
	}

	return llm.Payload{
		Model:              req.Model,
		Input:              items,
		Instructions:       req.Instructions,
		Tools:              req.Tools,
		PreviousResponseID: req.PreviousResponseID,
		Store:              req.Store,
		Metadata:           req.Metadata,
	}, nil
}

func buildInputItems(req Request) ([]llm.PayloadItem, error) {
	switch input := req.Input.(type) {
	case string:
		if input == "" {
			return nil, orcherrors.NewInvalidRequest("input must not be empty")
		}
		// Shorthand form: one user message. Request-level metadata rides on
		// the single item; there is no per-item metadata to apply.
		return []llm.PayloadItem{{
			Type:     "message",
			Role:     "user",
			Text:     input,
			Metadata: req.Metadata,
		}}, nil
	case []InputItem:
		if len(input) == 0 {
			return nil, orcherrors.NewInvalidRequest("input must not be empty")
		}
		items := make([]llm.PayloadItem, 0, len(input))
		for _, item := range input {
			wire, err := buildInputItem(item)
			if err != nil {
				return nil, err
			}
			items = append(items, wire)
		}
		return items, nil
	default:
		return nil, orcherrors.NewInvalidRequest("input must be a string or a sequence of input items")
	}
}

func buildInputItem(item InputItem) (llm.PayloadItem, error) {
	switch item.Type {
	case InputTypeText:
		return llm.PayloadItem{
			Type:     "message",
			Role:     "user",
			Text:     item.Content,
			Metadata: item.Metadata,
		}, nil
	case InputTypeImage:
		return llm.PayloadItem{
			Type:  "input_image",
			Image: &llm.MediaPayload{Data: item.Content, Metadata: item.Metadata},
		}, nil
	case InputTypeAudio:
		return llm.PayloadItem{
			Type:  "input_audio",
			Audio: &llm.MediaPayload{Data: item.Content, Metadata: item.Metadata},
		}, nil
	default:
		return llm.PayloadItem{}, orcherrors.NewInvalidRequest(
			fmt.Sprintf("unsupported input item type %q", item.Type))
	}
}
