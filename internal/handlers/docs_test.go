package handlers_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/tphummel/logsheet/internal/handlers"
	"gopkg.in/yaml.v3"
)

func TestDocsEndpoints(t *testing.T) {
	tests := []struct {
		name     string
		handler  http.HandlerFunc
		path     string
		wantCT   string
		contains []string
	}{
		{
			name:     "openapi",
			handler:  handlers.OpenAPISpec,
			path:     "/openapi.yaml",
			wantCT:   "application/yaml",
			contains: []string{"openapi:", "title: logsheet"},
		},
		{
			name:     "swagger ui",
			handler:  handlers.Docs,
			path:     "/docs",
			wantCT:   "text/html; charset=utf-8",
			contains: []string{"<!DOCTYPE html>", "</html>", "swagger-ui", `data-spec="/openapi.yaml"`, "<title>logsheet API Docs</title>"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.handler(w, httptest.NewRequest(http.MethodGet, tt.path, nil))

			if w.Code != http.StatusOK {
				t.Errorf("status: got %d, want 200", w.Code)
			}
			if ct := w.Header().Get("Content-Type"); ct != tt.wantCT {
				t.Errorf("Content-Type: got %q, want %q", ct, tt.wantCT)
			}
			body := w.Body.String()
			for _, s := range tt.contains {
				if !strings.Contains(body, s) {
					t.Errorf("body should contain %q", s)
				}
			}
		})
	}
}

// The document must parse and describe every route main.go registers.
func TestOpenAPISpec_DocumentsRoutes(t *testing.T) {
	w := httptest.NewRecorder()
	handlers.OpenAPISpec(w, httptest.NewRequest(http.MethodGet, "/openapi.yaml", nil))

	var doc struct {
		OpenAPI string                    `yaml:"openapi"`
		Paths   map[string]map[string]any `yaml:"paths"`
	}
	if err := yaml.Unmarshal(w.Body.Bytes(), &doc); err != nil {
		t.Fatalf("openapi.yaml does not parse: %v", err)
	}
	if !strings.HasPrefix(doc.OpenAPI, "3.") {
		t.Errorf("openapi version: got %q", doc.OpenAPI)
	}

	routes := map[string][]string{
		"/healthz":                                {"get"},
		"/metrics":                                {"get"},
		"/api/v1/groups":                          {"get"},
		"/api/v1/groups/{group}":                  {"get"},
		"/api/v1/equipment/{id}":                  {"get"},
		"/api/v1/registry":                        {"get"},
		"/api/v1/registry/{id}":                   {"put", "delete"},
		"/api/v1/readings":                        {"get", "post", "delete"},
		"/api/v1/readings/{id}":                   {"delete"},
		"/api/v1/sheets/{group}/{date}":           {"get"},
		"/api/v1/reports/{group}/{date}/{format}": {"get"},
		"/api/v1/exports/{group}/{date}/{format}": {"post"},
	}
	for path, methods := range routes {
		ops, ok := doc.Paths[path]
		if !ok {
			t.Errorf("openapi.yaml should document %s", path)
			continue
		}
		for _, m := range methods {
			if _, ok := ops[m]; !ok {
				t.Errorf("openapi.yaml should document %s %s", strings.ToUpper(m), path)
			}
		}
	}
}

// The docs routes are mounted beside the API routes the same way main.go does.
func TestDocsAndSpec_ViaFullMux(t *testing.T) {
	env := newTestMux(t)

	docsMux := http.NewServeMux()
	docsMux.Handle("/", env.mux)
	docsMux.HandleFunc("GET /openapi.yaml", handlers.OpenAPISpec)
	docsMux.HandleFunc("GET /docs", handlers.Docs)

	for path, prefix := range map[string]string{"/openapi.yaml": "application/yaml", "/docs": "text/html"} {
		w := serve(docsMux, httptest.NewRequest(http.MethodGet, path, nil))
		if w.Code != http.StatusOK {
			t.Errorf("%s status: got %d, want 200", path, w.Code)
		}
		if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, prefix) {
			t.Errorf("%s Content-Type: got %q, want prefix %q", path, ct, prefix)
		}
	}
}
