package api

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"accelerator-admin/internal/common/auth"
	"accelerator-admin/internal/common/errors"
	"accelerator-admin/internal/engine/aggregator"
	"accelerator-admin/internal/engine/transition"
	"accelerator-admin/internal/models"
)

const maxBodyBytes = 64 << 10

type updateStatusBody struct {
	ID         string  `json:"id"`
	Type       string  `json:"type"`
	Status     string  `json:"status"`
	AdminNotes *string `json:"adminNotes"`
	SendEmail  bool    `json:"sendEmail"`
}

func (s *Server) listApplications(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	criteria, err := parseCriteria(q.Get("search"), q.Get("status"), q.Get("type"))
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	page, err := intParam(q.Get("page"), "page", 1)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	limit, err := intParam(q.Get("limit"), "limit", aggregator.DefaultLimit)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}

	listing, err := s.analytics.Applications(r.Context(), criteria, page, limit)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{
		Success:    true,
		Data:       listing.Items,
		Pagination: &listing.Pagination,
	})
}

func (s *Server) applicationStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.analytics.ApplicationStats(r.Context())
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeData(w, stats)
}

func (s *Server) updateApplicationStatus(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, s.logger, errors.NewInvalidArgumentError("body", err.Error()))
		return
	}
	if err := s.schema.Validate(raw).Err(); err != nil {
		writeError(w, s.logger, err)
		return
	}

	var body updateStatusBody
	if err := json.Unmarshal(raw, &body); err != nil {
		writeError(w, s.logger, errors.NewInvalidArgumentError("body", err.Error()))
		return
	}

	var adminID string
	if actor := auth.ActorFrom(r.Context()); actor != nil {
		adminID = actor.ID
	}

	rec, err := s.transitions.Transition(r.Context(), transition.Request{
		RecordID:   body.ID,
		SourceType: body.Type,
		NewStatus:  body.Status,
		AdminID:    adminID,
		Notes:      body.AdminNotes,
		SendEmail:  body.SendEmail,
	})
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeData(w, rec)
}

func (s *Server) growthMetrics(w http.ResponseWriter, r *http.Request) {
	m, err := s.analytics.GrowthMetrics(r.Context())
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeData(w, m)
}

func (s *Server) sectorDistribution(w http.ResponseWriter, r *http.Request) {
	d, err := s.analytics.SectorDistribution(r.Context())
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeData(w, d)
}

func (s *Server) investmentStages(w http.ResponseWriter, r *http.Request) {
	d, err := s.analytics.InvestmentStages(r.Context())
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeData(w, d)
}

func (s *Server) monthlyStats(w http.ResponseWriter, r *http.Request) {
	m, err := s.analytics.MonthlyStats(r.Context())
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeData(w, m)
}

// parseCriteria validates the listing filters. Empty values and "all" do not
// filter.
func parseCriteria(search, status, sourceType string) (aggregator.Criteria, error) {
	c := aggregator.Criteria{Search: strings.TrimSpace(search)}

	if !isAll(status) {
		st, ok := models.ParseStatus(status)
		if !ok {
			return c, errors.NewInvalidArgumentError("status", "unknown status \""+status+"\"")
		}
		c.Status = string(st)
	}
	if !isAll(sourceType) {
		st, ok := models.ParseSourceType(sourceType)
		if !ok {
			return c, errors.NewInvalidArgumentError("type", "unknown application type \""+sourceType+"\"")
		}
		c.SourceType = string(st)
	}
	return c, nil
}

func isAll(v string) bool {
	v = strings.TrimSpace(v)
	return v == "" || strings.EqualFold(v, aggregator.FilterAll)
}

func intParam(v, name string, def int) (int, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, errors.NewInvalidArgumentError(name, "must be an integer")
	}
	return n, nil
}
