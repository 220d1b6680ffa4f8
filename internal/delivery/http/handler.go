package http

import (
	"encoding/xml"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/carniceria-aranda/backend/internal/domain"
	"github.com/carniceria-aranda/backend/internal/usecase"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	serviceName    = "aranda-pedidos"
	serviceVersion = "1.0.0"

	replyTemporaryFailure = "Lo sentimos, ahora mismo no podemos atenderte. Inténtalo de nuevo en unos minutos."
)

// Handler holds dependencies for HTTP handlers
type Handler struct {
	dialogue *usecase.DialogueService
	catalogs *usecase.CatalogService
	orders   domain.OrderArchive
	logger   *zap.Logger
	now      func() time.Time
}

// NewHandler creates a new HTTP handler. Any dependency may be nil; the
// endpoints that need it then answer 503.
func NewHandler(dialogue *usecase.DialogueService, catalogs *usecase.CatalogService, orders domain.OrderArchive, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		dialogue: dialogue,
		catalogs: catalogs,
		orders:   orders,
		logger:   logger,
		now:      time.Now,
	}
}

// twimlResponse is the messaging reply understood by the WhatsApp gateway.
type twimlResponse struct {
	XMLName xml.Name `xml:"Response"`
	Message string   `xml:"Message,omitempty"`
}

type extractRequest struct {
	Message string `json:"message" binding:"required"`
}

type resolveRequest struct {
	Phrase string `json:"phrase" binding:"required"`
}

type timeRequest struct {
	Text string `json:"text" binding:"required"`
}

type timeResponse struct {
	Input      string     `json:"input"`
	Normalized string     `json:"normalized"`
	PickupAt   *time.Time `json:"pickup_at,omitempty"`
	Formatted  string     `json:"formatted,omitempty"`
	Error      string     `json:"error,omitempty"`
}

type catalogResponse struct {
	Count    int              `json:"count"`
	Products []domain.Product `json:"products"`
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	status := "healthy"
	products := 0
	if snapshot := h.snapshot(); snapshot != nil {
		products = snapshot.Catalog.Len()
	} else {
		status = "degraded"
	}

	c.JSON(http.StatusOK, gin.H{
		"status":          status,
		"service":         serviceName,
		"version":         serviceVersion,
		"products":        products,
		"grammar_version": usecase.GrammarVersion,
		"grammar_rules":   usecase.GrammarRules(),
	})
}

// Webhook handles an incoming chat message (form fields From and Body) and
// answers with the reply as TwiML.
func (h *Handler) Webhook(c *gin.Context) {
	from := strings.TrimSpace(c.PostForm("From"))
	body := c.PostForm("Body")
	if from == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing From"})
		return
	}
	if h.dialogue == nil {
		c.XML(http.StatusServiceUnavailable, twimlResponse{Message: replyTemporaryFailure})
		return
	}

	reply, err := h.dialogue.HandleMessage(c.Request.Context(), from, body)
	if err != nil {
		h.logger.Error("message handling failed", zap.String("from", from), zap.Error(err))
		_ = c.Error(err)
		// The customer still gets an answer; the gateway must not retry.
		c.XML(http.StatusOK, twimlResponse{Message: replyTemporaryFailure})
		return
	}

	c.XML(http.StatusOK, twimlResponse{Message: reply})
}

// Extract returns the line items and diagnostics of a message.
func (h *Handler) Extract(c *gin.Context) {
	var req extractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}
	snapshot := h.snapshot()
	if snapshot == nil {
		h.catalogUnavailable(c)
		return
	}

	result := snapshot.Extractor.Extract(c.Request.Context(), req.Message)
	c.JSON(http.StatusOK, gin.H{
		"grammar_version": usecase.GrammarVersion,
		"items":           result.Items,
		"diagnostics":     result.Diagnostics,
	})
}

// Resolve maps a product phrase onto the catalog.
func (h *Handler) Resolve(c *gin.Context) {
	var req resolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}
	snapshot := h.snapshot()
	if snapshot == nil {
		h.catalogUnavailable(c)
		return
	}

	res := snapshot.Resolver.Resolve(c.Request.Context(), req.Phrase)
	c.JSON(http.StatusOK, gin.H{
		"phrase":     req.Phrase,
		"kind":       res.Kind.String(),
		"resolution": res,
	})
}

// NormalizeTime rewrites a colloquial time expression and, when possible,
// parses it as a pickup time.
func (h *Handler) NormalizeTime(c *gin.Context) {
	var req timeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	resp := timeResponse{
		Input:      req.Text,
		Normalized: usecase.NormalizeTemporalText(req.Text),
	}
	pickup, err := usecase.ParsePickupTime(req.Text, h.now())
	if err != nil {
		resp.Error = err.Error()
	} else {
		resp.PickupAt = &pickup
		resp.Formatted = usecase.FormatPickupTime(pickup)
	}
	c.JSON(http.StatusOK, resp)
}

// Catalog lists the published products.
func (h *Handler) Catalog(c *gin.Context) {
	snapshot := h.snapshot()
	if snapshot == nil {
		h.catalogUnavailable(c)
		return
	}

	products := snapshot.Catalog.Products()
	c.JSON(http.StatusOK, catalogResponse{Count: len(products), Products: products})
}

// ReloadCatalog reads the catalog files again and publishes the result.
// On failure the previous catalog keeps serving.
func (h *Handler) ReloadCatalog(c *gin.Context) {
	if h.catalogs == nil {
		h.catalogUnavailable(c)
		return
	}

	snapshot, err := h.catalogs.Reload(c.Request.Context())
	if err != nil {
		h.logger.Warn("catalog reload failed", zap.Error(err))
		status := http.StatusInternalServerError
		if errors.Is(err, domain.ErrCatalogEmpty) || errors.Is(err, domain.ErrInvalidProduct) ||
			errors.Is(err, domain.ErrUnsupportedCatalogFormat) {
			status = http.StatusUnprocessableEntity
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":     "reloaded",
		"products":   snapshot.Catalog.Len(),
		"collisions": snapshot.Index.Collisions(),
	})
}

// GetOrder returns an archived order.
func (h *Handler) GetOrder(c *gin.Context) {
	if h.orders == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "order archive unavailable"})
		return
	}

	order, err := h.orders.Get(c.Request.Context(), c.Param("id"))
	if errors.Is(err, domain.ErrOrderNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		h.logger.Error("order lookup failed", zap.String("id", c.Param("id")), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "order lookup failed"})
		return
	}

	c.JSON(http.StatusOK, order)
}

func (h *Handler) snapshot() *usecase.CatalogSnapshot {
	if h.catalogs == nil {
		return nil
	}
	return h.catalogs.Snapshot()
}

func (h *Handler) catalogUnavailable(c *gin.Context) {
	c.JSON(http.StatusServiceUnavailable, gin.H{"error": "catalog not loaded"})
}
