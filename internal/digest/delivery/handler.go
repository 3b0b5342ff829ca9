package delivery

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	digestdomain "github.com/inboxsherpa/inboxsherpa/internal/digest/domain"
	digestdto "github.com/inboxsherpa/inboxsherpa/internal/digest/dto"
	"github.com/inboxsherpa/inboxsherpa/internal/digest/usecase"
	"github.com/inboxsherpa/inboxsherpa/pkg/config"
)

// DigestHandler handles import, digest and action HTTP requests
type DigestHandler struct {
	importer    usecase.ImporterUsecase
	clusters    usecase.ClusterUsecase
	suggestions usecase.SuggestionUsecase
	config      *config.Config
}

// NewDigestHandler creates a new DigestHandler
func NewDigestHandler(importer usecase.ImporterUsecase, clusters usecase.ClusterUsecase, suggestions usecase.SuggestionUsecase, cfg *config.Config) *DigestHandler {
	return &DigestHandler{
		importer:    importer,
		clusters:    clusters,
		suggestions: suggestions,
		config:      cfg,
	}
}

// ImportMessages ingests a batch of normalized messages for the
// authenticated user. Each record succeeds or fails on its own.
// POST /api/import/messages
func (h *DigestHandler) ImportMessages(c *gin.Context) {
	userID := c.GetString("userID")

	var req digestdto.ImportBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	records := make([]*digestdomain.MessageRecord, 0, len(req.Messages))
	for i := range req.Messages {
		records = append(records, req.Messages[i].ToRecord(userID))
	}

	results := h.importer.ImportBatch(records)

	resp := digestdto.ImportBatchResponse{Results: results}
	for _, r := range results {
		switch {
		case r.Error != "":
			resp.Failed++
		case r.Outcome == digestdomain.ImportCreated:
			resp.Created++
		case r.Outcome == digestdomain.ImportUpdated:
			resp.Updated++
		default:
			resp.Unchanged++
		}
	}

	status := http.StatusOK
	if resp.Failed > 0 {
		status = http.StatusMultiStatus
	}
	c.JSON(status, resp)
}

// GetMessages lists the authenticated user's messages
// GET /api/messages?status=inbox&limit=50&offset=0
func (h *DigestHandler) GetMessages(c *gin.Context) {
	userID := c.GetString("userID")

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	var statusPtr *digestdomain.MessageStatus
	if s := c.Query("status"); s != "" {
		status := digestdomain.MessageStatus(s)
		if !status.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown status filter"})
			return
		}
		statusPtr = &status
	}

	messages, total, err := h.importer.GetMessages(userID, statusPtr, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"messages": messages,
		"total":    total,
	})
}

// BuildDigest runs a clustering pass for one digest day
// POST /api/digest/:date/build
func (h *DigestHandler) BuildDigest(c *gin.Context) {
	userID := c.GetString("userID")
	digestDate := c.Param("date")

	if _, err := time.Parse("2006-01-02", digestDate); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "digest date must be YYYY-MM-DD"})
		return
	}

	report, err := h.clusters.BuildDailyClusters(c.Request.Context(), userID, digestDate, h.config.AlgoVersion)
	if err != nil {
		switch {
		case errors.Is(err, digestdomain.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			c.JSON(http.StatusRequestTimeout, gin.H{"error": "digest build interrupted"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, report)
}

// GetDigest returns the clusters of a digest day
// GET /api/digest/:date
func (h *DigestHandler) GetDigest(c *gin.Context) {
	userID := c.GetString("userID")
	digestDate := c.Param("date")

	if _, err := time.Parse("2006-01-02", digestDate); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "digest date must be YYYY-MM-DD"})
		return
	}

	clusters, err := h.clusters.GetClusters(userID, digestDate)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"digest_date": digestDate,
		"clusters":    clusters,
	})
}

// GetClusterMessages returns the messages of one cluster
// GET /api/clusters/:id/messages
func (h *DigestHandler) GetClusterMessages(c *gin.Context) {
	userID := c.GetString("userID")
	clusterID := c.Param("id")

	messages, err := h.clusters.GetClusterMessages(userID, clusterID)
	if err != nil {
		if errors.Is(err, digestdomain.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "cluster not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

// ProposeActions runs scoring over a cluster and stores the proposals
// POST /api/clusters/:id/actions?regenerate=true
func (h *DigestHandler) ProposeActions(c *gin.Context) {
	userID := c.GetString("userID")
	clusterID := c.Param("id")
	regenerate := c.Query("regenerate") == "true"

	actions, err := h.suggestions.ProposeActions(c.Request.Context(), userID, clusterID, regenerate)
	if err != nil {
		switch {
		case errors.Is(err, digestdomain.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "cluster not found"})
		case errors.Is(err, digestdomain.ErrInconsistentState):
			c.JSON(http.StatusConflict, gin.H{"error": "cluster owner is missing"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{"actions": actions})
}

// ListActions returns all actions of a cluster
// GET /api/clusters/:id/actions
func (h *DigestHandler) ListActions(c *gin.Context) {
	userID := c.GetString("userID")
	clusterID := c.Param("id")

	actions, err := h.suggestions.ListActions(userID, clusterID)
	if err != nil {
		if errors.Is(err, digestdomain.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "cluster not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"actions": actions})
}

// DecideAction resolves one proposed action
// POST /api/actions/:id/decide
func (h *DigestHandler) DecideAction(c *gin.Context) {
	userID := c.GetString("userID")
	actionID := c.Param("id")

	var req digestdto.DecideActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	action, err := h.suggestions.Decide(userID, actionID, digestdomain.SuggestionStatus(req.Outcome))
	if err != nil {
		var verr *digestdomain.ValidationError
		switch {
		case errors.Is(err, digestdomain.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "action not found"})
		case errors.Is(err, digestdomain.ErrInvalidTransition):
			c.JSON(http.StatusConflict, gin.H{"error": "action is already decided"})
		case errors.As(err, &verr):
			c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, action)
}
