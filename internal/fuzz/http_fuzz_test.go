package fuzz

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Billy-Davies-2/fantasy-draft-assistant/internal/dal"
	"github.com/Billy-Davies-2/fantasy-draft-assistant/internal/draft"
	"github.com/Billy-Davies-2/fantasy-draft-assistant/internal/handlers"
	"github.com/Billy-Davies-2/fantasy-draft-assistant/internal/logger"
	"github.com/Billy-Davies-2/fantasy-draft-assistant/internal/models"
	"github.com/Billy-Davies-2/fantasy-draft-assistant/internal/pubsub"
)

func init() {
	// Initialize logger for tests
	logger.Init()
}

func newRouter() (http.Handler, *draft.Service) {
	ps := pubsub.New()
	svc := draft.NewService(draft.ServiceOptions{Store: dal.NewMemoryDAL(), Publisher: ps})
	return handlers.NewRouter(handlers.NewAPIHandlers(svc, ps), &handlers.Health{}), svc
}

func serve(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

// FuzzHTTPCreateDraft fuzzes the HTTP create draft endpoint
func FuzzHTTPCreateDraft(f *testing.F) {
	// Seed corpus with valid examples
	f.Add(`{"mode":"mock","settings":{"leagueSize":10,"pickPosition":4}}`)
	f.Add(`{"mode":"assistant","settings":{"rounds":9,"draftFormat":"Linear"}}`)
	f.Add(`{"settings":{"leagueSize":-3,"pickPosition":99,"rounds":2}}`)
	f.Add(`{"rankings":[{"rank":1,"name":"A","team":"B","position":"K","tier":0}]}`)

	f.Fuzz(func(t *testing.T, data string) {
		router, _ := newRouter()
		w := serve(router, http.MethodPost, "/api/drafts", data)

		// Should not panic, and never answer with a server error
		if w.Code >= 500 {
			t.Errorf("status %d for %q: %s", w.Code, data, w.Body.String())
		}
	})
}

// FuzzHTTPDraftPick fuzzes the HTTP pick, taken and block endpoints
func FuzzHTTPDraftPick(f *testing.F) {
	f.Add(`{"playerId":"1"}`)
	f.Add(`{"player":"K 1"}`)
	f.Add(`{"playerId":"","player":""}`)
	f.Add(`[]`)

	f.Fuzz(func(t *testing.T, data string) {
		router, svc := newRouter()
		state, err := svc.CreateDraft(context.Background(), models.ModeAssistant, models.DraftSettings{LeagueSize: 4}, nil)
		if err != nil {
			t.Fatalf("create draft: %v", err)
		}
		base := "/api/drafts/" + state.ID
		for _, path := range []string{base + "/pick", base + "/taken", base + "/block"} {
			if w := serve(router, http.MethodPost, path, data); w.Code >= 500 {
				t.Errorf("%s: status %d for %q", path, w.Code, data)
			}
		}
	})
}

// FuzzHTTPEngineScore fuzzes the HTTP needs and score endpoints
func FuzzHTTPEngineScore(f *testing.F) {
	f.Add(`{"roster":[{"name":"Q","position":"QB"}],"capacity":12}`)
	f.Add(`{"available":[{"id":"x","name":"X","position":"DST","tier":3}],"blocked":["X"]}`)
	f.Add(`{"capacity":-5}`)
	f.Add(`{"roster":[{"position":"XX"}],"capacity":1}`)

	f.Fuzz(func(t *testing.T, data string) {
		router, _ := newRouter()
		for _, path := range []string{"/api/engine/needs", "/api/engine/score"} {
			w := serve(router, http.MethodPost, path, data)
			if w.Code >= 500 {
				t.Errorf("%s: status %d for %q", path, w.Code, data)
			}
		}
	})
}

// FuzzJSONParsing fuzzes general JSON parsing
func FuzzJSONParsing(f *testing.F) {
	// Seed various JSON structures
	f.Add(`{"key":"value"}`)
	f.Add(`[1,2,3]`)
	f.Add(`null`)
	f.Add(`"string"`)
	f.Add(`123`)
	f.Add(`true`)

	f.Fuzz(func(t *testing.T, data string) {
		var result interface{}
		// Should not panic on any input
		json.Unmarshal([]byte(data), &result)
	})
}
