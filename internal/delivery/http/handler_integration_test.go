package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/carniceria-aranda/backend/config"
	"github.com/carniceria-aranda/backend/internal/domain"
	"github.com/carniceria-aranda/backend/internal/infrastructure/metrics"
	"github.com/carniceria-aranda/backend/internal/infrastructure/session"
	"github.com/carniceria-aranda/backend/internal/usecase"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// TestMain sets up test environment before running tests
func TestMain(m *testing.M) {
	// Set Gin to test mode once for all tests
	gin.SetMode(gin.TestMode)

	os.Exit(m.Run())
}

// fakeSource serves a fixed catalog until failWith is set.
type fakeSource struct {
	mu       sync.Mutex
	products []domain.Product
	failWith error
}

func (s *fakeSource) LoadCatalog(ctx context.Context) (*domain.Catalog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return nil, s.failWith
	}
	return domain.NewCatalog(s.products)
}

func (s *fakeSource) LoadSynonyms(ctx context.Context) (map[string]string, error) {
	return map[string]string{"pollito": "Pollo entero"}, nil
}

func (s *fakeSource) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failWith = err
}

// fakeArchive keeps orders in memory.
type fakeArchive struct {
	mu     sync.Mutex
	orders map[string]*domain.Order
}

func newFakeArchive() *fakeArchive {
	return &fakeArchive{orders: make(map[string]*domain.Order)}
}

func (a *fakeArchive) Save(ctx context.Context, order *domain.Order) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.orders[order.ID] = order
	return nil
}

func (a *fakeArchive) Get(ctx context.Context, id string) (*domain.Order, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	order, ok := a.orders[id]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	return order, nil
}

func testProducts() []domain.Product {
	return []domain.Product{
		{Name: "Pollo entero", Price: decimal.RequireFromString("4.50"), PriceUnit: domain.UnitKilograms},
		{Name: "Chorizo", Price: decimal.RequireFromString("9.90"), PriceUnit: domain.UnitKilograms},
		{Name: "Hamburguesa", Price: decimal.RequireFromString("1.20"), PriceUnit: domain.UnitPieces},
		{Name: "Pechuga de pollo", Price: decimal.RequireFromString("7.95"), PriceUnit: domain.UnitKilograms},
	}
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Port:           "8080",
			Environment:    "test",
			AllowedOrigins: []string{"http://localhost:*"},
		},
		RateLimit: config.RateLimitConfig{PerIP: 0},
	}
}

type testServer struct {
	router  *gin.Engine
	source  *fakeSource
	archive *fakeArchive
	metrics *metrics.Metrics
}

// setupTestServer wires the real engine over a fake catalog source. With
// loadCatalog false the catalog is never published.
func setupTestServer(t *testing.T, cfg *config.Config, loadCatalog bool) *testServer {
	t.Helper()

	m := metrics.New()
	source := &fakeSource{products: testProducts()}
	catalogs := usecase.NewCatalogService(source, nil, usecase.EngineConfig{
		Resolver:    usecase.DefaultResolverConfig(),
		StripPlural: true,
	}, zap.NewNop(), m)
	if loadCatalog {
		_, err := catalogs.Reload(context.Background())
		require.NoError(t, err)
	}

	sessions := session.NewMemoryStore(time.Minute)
	t.Cleanup(func() { _ = sessions.Close() })

	archive := newFakeArchive()
	dialogue := usecase.NewDialogueService(sessions, archive, catalogs, usecase.DialogueConfig{},
		usecase.WithDialogueRecorder(m))

	handler := NewHandler(dialogue, catalogs, archive, zap.NewNop())
	return &testServer{
		router:  SetupRouter(cfg, handler, zap.NewNop(), m),
		source:  source,
		archive: archive,
		metrics: m,
	}
}

func (s *testServer) do(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestHealthCheckEndpoint(t *testing.T) {
	t.Run("returns healthy status", func(t *testing.T) {
		srv := setupTestServer(t, testConfig(), true)

		w := srv.do(http.MethodGet, "/health", "")

		assert.Equal(t, http.StatusOK, w.Code)
		resp := decode(t, w)
		assert.Equal(t, "healthy", resp["status"])
		assert.Equal(t, "aranda-pedidos", resp["service"])
		assert.EqualValues(t, 4, resp["products"])
	})

	t.Run("degraded without catalog", func(t *testing.T) {
		srv := setupTestServer(t, testConfig(), false)

		resp := decode(t, srv.do(http.MethodGet, "/health", ""))
		assert.Equal(t, "degraded", resp["status"])
	})

	t.Run("accepts GET requests only", func(t *testing.T) {
		srv := setupTestServer(t, testConfig(), true)

		for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch} {
			w := srv.do(method, "/health", "")
			assert.Equal(t, http.StatusNotFound, w.Code, "method %s", method)
		}
	})
}

func TestWebhookEndpoint(t *testing.T) {
	srv := setupTestServer(t, testConfig(), true)

	post := func(from, body string) *httptest.ResponseRecorder {
		form := url.Values{}
		if from != "" {
			form.Set("From", from)
		}
		form.Set("Body", body)
		req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		w := httptest.NewRecorder()
		srv.router.ServeHTTP(w, req)
		return w
	}

	t.Run("replies with TwiML", func(t *testing.T) {
		w := post("whatsapp:+34600000001", "hola")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Header().Get("Content-Type"), "xml")
		assert.Contains(t, w.Body.String(), "<Response><Message>")
		assert.Contains(t, w.Body.String(), "Bienvenido")
	})

	t.Run("keeps the conversation per sender", func(t *testing.T) {
		from := "whatsapp:+34600000002"
		assert.Contains(t, post(from, "iniciar pedido").Body.String(), "¿Cuál es tu nombre?")
		assert.Contains(t, post(from, "me llamo Lucía").Body.String(), "Perfecto, Lucía")
	})

	t.Run("missing sender", func(t *testing.T) {
		w := post("", "hola")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestExtractEndpoint(t *testing.T) {
	t.Run("extracts items and diagnostics", func(t *testing.T) {
		srv := setupTestServer(t, testConfig(), true)

		w := srv.do(http.MethodPost, "/api/v1/extract", `{"message":"2 kg de pollo entero y 3 hamburguesas, 1 kg de caviar"}`)

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var resp struct {
			GrammarVersion string              `json:"grammar_version"`
			Items          []domain.LineItem   `json:"items"`
			Diagnostics    []domain.Diagnostic `json:"diagnostics"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

		assert.Equal(t, usecase.GrammarVersion, resp.GrammarVersion)
		require.Len(t, resp.Items, 2)
		assert.Equal(t, "Pollo entero", resp.Items[0].Product)
		assert.Equal(t, domain.UnitKilograms, resp.Items[0].Quantity.Unit)
		assert.Equal(t, "Hamburguesa", resp.Items[1].Product)
		assert.Equal(t, domain.UnitPieces, resp.Items[1].Quantity.Unit)
		require.Len(t, resp.Diagnostics, 1)
		assert.Equal(t, domain.DiagnosticNotFound, resp.Diagnostics[0].Kind)
	})

	t.Run("rejects missing message", func(t *testing.T) {
		srv := setupTestServer(t, testConfig(), true)

		w := srv.do(http.MethodPost, "/api/v1/extract", `{}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unavailable before the catalog loads", func(t *testing.T) {
		srv := setupTestServer(t, testConfig(), false)

		w := srv.do(http.MethodPost, "/api/v1/extract", `{"message":"1 kg de chorizo"}`)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}

func TestResolveEndpoint(t *testing.T) {
	srv := setupTestServer(t, testConfig(), true)

	tests := []struct {
		name        string
		phrase      string
		wantKind    string
		wantProduct string
	}{
		{name: "exact", phrase: "chorizo", wantKind: "exact", wantProduct: "Chorizo"},
		{name: "synonym from source", phrase: "pollito", wantKind: "exact", wantProduct: "Pollo entero"},
		{name: "ambiguous", phrase: "pollo", wantKind: "ambiguous"},
		{name: "unknown", phrase: "caviar", wantKind: "not_found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := srv.do(http.MethodPost, "/api/v1/resolve", `{"phrase":"`+tt.phrase+`"}`)
			require.Equal(t, http.StatusOK, w.Code)

			var resp struct {
				Kind       string            `json:"kind"`
				Resolution domain.Resolution `json:"resolution"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantKind, resp.Kind)
			assert.Equal(t, tt.wantProduct, resp.Resolution.Product)
		})
	}
}

func TestNormalizeTimeEndpoint(t *testing.T) {
	srv := setupTestServer(t, testConfig(), true)

	t.Run("parses a future pickup", func(t *testing.T) {
		w := srv.do(http.MethodPost, "/api/v1/time/normalize", `{"text":"mañana a las 5 de la tarde"}`)
		require.Equal(t, http.StatusOK, w.Code)

		var resp timeResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "mañana a las 17:00", resp.Normalized)
		require.NotNil(t, resp.PickupAt)
		assert.Equal(t, 17, resp.PickupAt.Hour())
		assert.Empty(t, resp.Error)
	})

	t.Run("reports unparsable text", func(t *testing.T) {
		w := srv.do(http.MethodPost, "/api/v1/time/normalize", `{"text":"cuando pueda"}`)
		require.Equal(t, http.StatusOK, w.Code)

		var resp timeResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Nil(t, resp.PickupAt)
		assert.NotEmpty(t, resp.Error)
	})
}

func TestCatalogEndpoints(t *testing.T) {
	t.Run("lists products", func(t *testing.T) {
		srv := setupTestServer(t, testConfig(), true)

		w := srv.do(http.MethodGet, "/api/v1/catalog", "")
		require.Equal(t, http.StatusOK, w.Code)

		var resp catalogResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, 4, resp.Count)
		assert.Equal(t, "Chorizo", resp.Products[0].Name)
	})

	t.Run("reload publishes the new catalog", func(t *testing.T) {
		srv := setupTestServer(t, testConfig(), true)
		srv.source.mu.Lock()
		srv.source.products = append(srv.source.products, domain.Product{
			Name: "Morcilla", Price: decimal.RequireFromString("6.00"),
		})
		srv.source.mu.Unlock()

		w := srv.do(http.MethodPost, "/api/v1/catalog/reload", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.EqualValues(t, 5, decode(t, w)["products"])
	})

	t.Run("failed reload keeps serving the previous catalog", func(t *testing.T) {
		srv := setupTestServer(t, testConfig(), true)
		srv.source.fail(domain.ErrCatalogEmpty)

		w := srv.do(http.MethodPost, "/api/v1/catalog/reload", "")
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

		w = srv.do(http.MethodGet, "/api/v1/catalog", "")
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestGetOrderEndpoint(t *testing.T) {
	srv := setupTestServer(t, testConfig(), true)
	require.NoError(t, srv.archive.Save(context.Background(), &domain.Order{
		ID:           "pedido-1",
		UserID:       "whatsapp:+34600000003",
		CustomerName: "Ana",
		Receipt:      domain.Receipt{Total: decimal.RequireFromString("9.90")},
	}))

	t.Run("found", func(t *testing.T) {
		w := srv.do(http.MethodGet, "/api/v1/orders/pedido-1", "")
		require.Equal(t, http.StatusOK, w.Code)

		var order domain.Order
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &order))
		assert.Equal(t, "Ana", order.CustomerName)
	})

	t.Run("missing", func(t *testing.T) {
		w := srv.do(http.MethodGet, "/api/v1/orders/nope", "")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestMetricsEndpoint(t *testing.T) {
	srv := setupTestServer(t, testConfig(), true)
	srv.do(http.MethodPost, "/api/v1/resolve", `{"phrase":"chorizo"}`)

	w := srv.do(http.MethodGet, "/metrics", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `aranda_http_requests_total{method="POST",route="/api/v1/resolve",status="200"} 1`)
	assert.Contains(t, w.Body.String(), `aranda_resolutions_total{kind="exact",stage="exact"} 1`)
}

func TestRateLimitedRoutes(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit.PerIP = 1
	srv := setupTestServer(t, cfg, true)

	first := srv.do(http.MethodPost, "/api/v1/resolve", `{"phrase":"chorizo"}`)
	second := srv.do(http.MethodPost, "/api/v1/resolve", `{"phrase":"chorizo"}`)
	health := srv.do(http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, http.StatusOK, health.Code, "health is never limited")
}
