// Package handler mounts the operational HTTP surface: health probe, consumer
// stats, and the contact query endpoints backed by the discovery store.
package handler

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/corpus-self/ingest-fabric/internal/consumer"
	"github.com/corpus-self/ingest-fabric/internal/contacts"
	"github.com/corpus-self/ingest-fabric/internal/contacts/db"
)

const defaultContactLimit = 20

// RegisterRoutes mounts all endpoints onto the Echo instance. The contacts
// service is nil for services that do not own the contact store; its routes
// are skipped then.
func RegisterRoutes(e *echo.Echo, stats *consumer.Stats, svc *contacts.Service, logger *zap.Logger) {
	// Health probe – used by Kubernetes liveness/readiness checks.
	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	e.GET("/stats", func(c echo.Context) error {
		return c.JSON(http.StatusOK, stats.Snapshot())
	})

	if svc == nil {
		return
	}
	cg := e.Group("/contacts")
	cg.GET("", listContactsHandler(svc, logger))
	cg.GET("/search", searchContactsHandler(svc, logger))
}

// contactResponse flattens the store row for the wire; nullable columns
// become plain strings.
type contactResponse struct {
	ID              string   `json:"id"`
	Email           string   `json:"email"`
	DisplayName     string   `json:"display_name"`
	GivenName       string   `json:"given_name,omitempty"`
	FamilyName      string   `json:"family_name,omitempty"`
	SourceServices  []string `json:"source_services"`
	TotalEventCount int32    `json:"total_event_count"`
	RelevanceScore  float64  `json:"relevance_score"`
	LastSeen        string   `json:"last_seen,omitempty"`
}

func listContactsHandler(svc *contacts.Service, logger *zap.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID := c.QueryParam("user_id")
		if userID == "" {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "user_id is required"})
		}
		rows, err := svc.TopContacts(c.Request().Context(), userID, limitParam(c))
		if err != nil {
			logger.Error("TopContacts failed", zap.Error(err))
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
		}
		return c.JSON(http.StatusOK, toResponses(rows))
	}
}

func searchContactsHandler(svc *contacts.Service, logger *zap.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID := c.QueryParam("user_id")
		query := c.QueryParam("q")
		if userID == "" || query == "" {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "user_id and q are required"})
		}
		rows, err := svc.Search(c.Request().Context(), userID, query, limitParam(c))
		if err != nil {
			logger.Error("SearchContacts failed", zap.Error(err))
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
		}
		return c.JSON(http.StatusOK, toResponses(rows))
	}
}

func limitParam(c echo.Context) int32 {
	if raw := c.QueryParam("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 200 {
			return int32(n)
		}
	}
	return defaultContactLimit
}

func toResponses(rows []db.Contact) []contactResponse {
	out := make([]contactResponse, 0, len(rows))
	for _, r := range rows {
		resp := contactResponse{
			ID:              uuid.UUID(r.ID.Bytes).String(),
			Email:           r.Email,
			DisplayName:     r.DisplayName.String,
			GivenName:       r.GivenName.String,
			FamilyName:      r.FamilyName.String,
			SourceServices:  r.SourceServices,
			TotalEventCount: r.TotalEventCount,
			RelevanceScore:  r.RelevanceScore,
		}
		if r.LastSeen.Valid {
			resp.LastSeen = r.LastSeen.Time.UTC().Format("2006-01-02T15:04:05Z07:00")
		}
		out = append(out, resp)
	}
	return out
}
