package httpadapter

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// GET /api/v1/incidents?limit=N
func (s *Server) handleListIncidents(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			respondError(c, http.StatusBadRequest, "invalid_limit", errTypeValidation, "limit must be a non-negative integer", err)
			return
		}
		limit = n
	}

	recs, err := s.incidents.Recent(c.Request.Context(), limit)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondOK(c, "Incidents retrieved", incidentsData{Incidents: recs, Count: len(recs)})
}

// GET /api/v1/incidents/:id
func (s *Server) handleGetIncident(c *gin.Context) {
	id, ok := sessionIDParam(c, "id")
	if !ok {
		return
	}
	rec, err := s.incidents.Get(c.Request.Context(), id)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondOK(c, "Incident retrieved", rec)
}
