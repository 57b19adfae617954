package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"relay-server/services/response-orchestrator/internal/domain/llm"
	"relay-server/services/response-orchestrator/internal/interfaces/httpserver/handlers"
)

// fakeModelInfoProvider serves fixed model metadata.
type fakeModelInfoProvider struct {
	info *llm.ModelInfo
	err  error
}

func (f *fakeModelInfoProvider) GetModelInfo(ctx context.Context, modelID string) (*llm.ModelInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.info, nil
}

func setupModelTestRouter(handler *handlers.ModelHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/v1/models/:model_id", handler.Get)
	return r
}

func TestModelHandler_Get(t *testing.T) {
	contextLength := 8192
	provider := &fakeModelInfoProvider{
		info: &llm.ModelInfo{ID: "test-model", ContextLength: &contextLength},
	}

	handler := handlers.NewModelHandler(provider, zerolog.Nop())
	router := setupModelTestRouter(handler)

	req, _ := http.NewRequest("GET", "/v1/models/test-model", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	var resp map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if resp["id"] != "test-model" {
		t.Errorf("Expected model id 'test-model', got %v", resp["id"])
	}
	if resp["context_length"] != 8192.0 {
		t.Errorf("Expected context length 8192, got %v", resp["context_length"])
	}
}

func TestModelHandler_Get_NotFound(t *testing.T) {
	handler := handlers.NewModelHandler(&fakeModelInfoProvider{}, zerolog.Nop())
	router := setupModelTestRouter(handler)

	req, _ := http.NewRequest("GET", "/v1/models/unknown-model", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}

	var resp map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	errObj := resp["error"].(map[string]interface{})
	if errObj["code"] != "MODEL_NOT_FOUND" {
		t.Errorf("Expected code MODEL_NOT_FOUND, got %v", errObj["code"])
	}
}
