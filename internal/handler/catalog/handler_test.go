package catalog

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	model "github.com/2207231/chatbot/internal/model/catalog"
	"github.com/2207231/chatbot/internal/service/ai"
)

type staticLister []ai.ModelStatus

func (s staticLister) Models() []ai.ModelStatus { return s }

func TestListModels(t *testing.T) {
	seed := model.Seed()
	statuses := make(staticLister, 0, len(seed))
	for _, m := range seed {
		statuses = append(statuses, ai.ModelStatus{Model: m, Available: m.Provider == model.ProviderAnthropic})
	}

	r := chi.NewRouter()
	New(statuses).RegisterRoutes(r)

	req := httptest.NewRequest(http.MethodGet, "/models", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	var got []map[string]any
	if err := json.Unmarshal(resp.Body.Bytes(), &got); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if len(got) != len(seed) {
		t.Fatalf("expected %d models, got %d", len(seed), len(got))
	}
	first := got[0]
	if first["id"] != seed[0].ID || first["available"] != true || first["provider"] != model.ProviderAnthropic {
		t.Fatalf("unexpected first entry %+v", first)
	}
}
