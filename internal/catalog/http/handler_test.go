package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"catalog-service/internal/catalog"

	"github.com/gin-gonic/gin"
)

type stubService struct {
	createFn func(ctx context.Context, rec catalog.Record) (catalog.Item, error)
	getFn    func(ctx context.Context, id string) (catalog.Item, error)
	listFn   func(ctx context.Context, page, limit int) ([]catalog.Item, int64, error)
}

func (s *stubService) Create(ctx context.Context, rec catalog.Record) (catalog.Item, error) {
	return s.createFn(ctx, rec)
}
func (s *stubService) Get(ctx context.Context, id string) (catalog.Item, error) {
	return s.getFn(ctx, id)
}
func (s *stubService) List(ctx context.Context, page, limit int) ([]catalog.Item, int64, error) {
	return s.listFn(ctx, page, limit)
}

type stubStager struct {
	url   string
	err   error
	calls []string
}

func (s *stubStager) PresignUpload(_ context.Context, key string) (string, error) {
	s.calls = append(s.calls, key)
	return s.url, s.err
}

func setupRouter(svc CatalogService, stager UploadStager) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewHandler(svc, stager)
	r.GET("/products", h.ListProducts)
	r.GET("/products/:id", h.GetProduct)
	r.POST("/products", h.CreateProduct)
	r.GET("/import", h.StageUpload)
	return r
}

func TestHandler_CreateProduct(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		svcErr     error
		wantStatus int
		wantCreate bool
	}{
		{
			name:       "success",
			body:       `{"title":"Laptop","description":"Thin","price":99900,"count":3}`,
			wantStatus: http.StatusCreated,
			wantCreate: true,
		},
		{
			name:       "invalid json",
			body:       `not json`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "empty title rejected before write",
			body:       `{"title":"","price":100}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "non-positive price rejected before write",
			body:       `{"title":"x","price":0}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "non-string description rejected before write",
			body:       `{"title":"x","description":5,"price":100}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "service failure",
			body:       `{"title":"x","price":100}`,
			svcErr:     context.DeadlineExceeded,
			wantStatus: http.StatusInternalServerError,
			wantCreate: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			created := false
			svc := &stubService{
				createFn: func(_ context.Context, rec catalog.Record) (catalog.Item, error) {
					created = true
					if tt.svcErr != nil {
						return catalog.Item{}, tt.svcErr
					}
					return catalog.Item{Product: catalog.Product{ID: "id-1", Title: rec.Title, Description: rec.Description, Price: rec.Price}, Count: rec.Count}, nil
				},
			}

			r := setupRouter(svc, &stubStager{})
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/products", bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("want status %d, got %d, body: %s", tt.wantStatus, w.Code, w.Body.String())
			}
			if created != tt.wantCreate {
				t.Fatalf("create called = %v, want %v", created, tt.wantCreate)
			}
		})
	}
}

func TestHandler_GetProduct(t *testing.T) {
	tests := []struct {
		name       string
		url        string
		svcErr     error
		wantStatus int
	}{
		{
			name:       "success",
			url:        "/products/abc",
			wantStatus: http.StatusOK,
		},
		{
			name:       "not found",
			url:        "/products/missing",
			svcErr:     catalog.ErrNotFound,
			wantStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &stubService{
				getFn: func(_ context.Context, id string) (catalog.Item, error) {
					if tt.svcErr != nil {
						return catalog.Item{}, tt.svcErr
					}
					return catalog.Item{Product: catalog.Product{ID: id, Title: "Thing", Price: 100}, Count: 2}, nil
				},
			}

			r := setupRouter(svc, &stubStager{})
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.url, nil))

			if w.Code != tt.wantStatus {
				t.Fatalf("want status %d, got %d, body: %s", tt.wantStatus, w.Code, w.Body.String())
			}
		})
	}
}

func TestHandler_ListProducts(t *testing.T) {
	svc := &stubService{
		listFn: func(_ context.Context, page, limit int) ([]catalog.Item, int64, error) {
			if page != 1 || limit != 0 {
				t.Fatalf("want defaults page=1 limit=0, got page=%d limit=%d", page, limit)
			}
			return []catalog.Item{
				{Product: catalog.Product{ID: "a", Title: "A", Price: 1}, Count: 5},
			}, 1, nil
		},
	}

	r := setupRouter(svc, &stubStager{})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/products", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("want 200, got %d", w.Code)
	}

	var resp listProductsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if len(resp.Items) != 1 || resp.Items[0].Count != 5 {
		t.Fatalf("unexpected items: %+v", resp.Items)
	}
	if resp.Pagination.Total != 1 {
		t.Fatalf("want total 1, got %d", resp.Pagination.Total)
	}
}

func TestHandler_StageUpload(t *testing.T) {
	tests := []struct {
		name       string
		url        string
		wantStatus int
		wantKey    string
		wantCalls  int
	}{
		{
			name:       "valid csv name",
			url:        "/import?name=products.csv",
			wantStatus: http.StatusOK,
			wantKey:    "uploaded/products.csv",
			wantCalls:  1,
		},
		{
			name:       "uppercase extension accepted",
			url:        "/import?name=products.CSV",
			wantStatus: http.StatusOK,
			wantKey:    "uploaded/products.CSV",
			wantCalls:  1,
		},
		{
			name:       "missing name",
			url:        "/import",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "unsupported extension makes no storage call",
			url:        "/import?name=products.xlsx",
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stager := &stubStager{url: "https://storage.local/signed"}
			r := setupRouter(&stubService{}, stager)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.url, nil))

			if w.Code != tt.wantStatus {
				t.Fatalf("want status %d, got %d, body: %s", tt.wantStatus, w.Code, w.Body.String())
			}
			if len(stager.calls) != tt.wantCalls {
				t.Fatalf("want %d storage calls, got %v", tt.wantCalls, stager.calls)
			}
			if tt.wantKey == "" {
				return
			}

			var resp stageUploadResponse
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("unmarshal response: %v", err)
			}
			if resp.Key != tt.wantKey {
				t.Fatalf("want key %q, got %q", tt.wantKey, resp.Key)
			}
			if resp.UploadURL != "https://storage.local/signed" {
				t.Fatalf("unexpected upload url %q", resp.UploadURL)
			}
			if stager.calls[0] != tt.wantKey {
				t.Fatalf("presigned key %q, want %q", stager.calls[0], tt.wantKey)
			}
		})
	}
}
