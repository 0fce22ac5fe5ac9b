package http

import (
	"bytes"
	"context"
	"encoding/json"
	"html/template"
	"net/http"
	"time"

	"housetrend/internal/chart"
	"housetrend/internal/csvio"
	applog "housetrend/internal/log"
	"housetrend/internal/report"
	"housetrend/internal/stats"
)

const msgNoMatch = "没有符合条件的记录"

func (s *Server) routeViewer(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /ui/stats", s.handleStats)
	mux.HandleFunc("GET /api/chart", s.handleChart)
	mux.HandleFunc("GET /api/chart/range", s.handleChartRange)
	mux.HandleFunc("GET /export.csv", s.handleExport)
}

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	})
}

// handleReady reports templates, data source and dependency checks.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status, code := "ready", http.StatusOK
	checks := map[string]any{
		"source":  string(s.Source()),
		"records": len(s.store.Records()),
		"rate_limiter": map[string]any{
			"active_clients": s.limiter.ActiveClients(),
			"limited":        s.limiter.Hits(),
		},
		"cache": map[string]any{
			"summary_entries": s.summaries.Size(),
			"chart_entries":   s.groups.Size(),
		},
	}
	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status, code = "not_ready", http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}
	if s.ready != nil {
		if err := s.ready(ctx); err != nil {
			checks["dependencies"] = "failed: " + err.Error()
			status, code = "not_ready", http.StatusServiceUnavailable
		} else {
			checks["dependencies"] = "ok"
		}
	}
	writeJSON(w, code, map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

type indexData struct {
	Title       string
	Description template.HTML
	Communities []string
	HouseTypes  []string
	Filter      stats.Filter
	Summary     stats.Summary
	Source      string
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	site := s.store.Site()
	desc, err := report.DescriptionHTML(site.Description())
	if err != nil {
		s.logger.WarnContext(r.Context(), "Description rendering failed", applog.FieldError, err)
		desc = template.HTML(template.HTMLEscapeString(site.Description()))
	}
	communities, houseTypes := stats.Options(s.store.Records())
	filter := ParseFilter(r.URL.Query())
	s.render(w, r, http.StatusOK, "index.html", indexData{
		Title:       site.Title(),
		Description: desc,
		Communities: communities,
		HouseTypes:  houseTypes,
		Filter:      filter,
		Summary:     s.summary(filter),
		Source:      string(s.Source()),
	})
}

// handleStats renders the statistics panel for the selection and tells the
// page to reload the chart.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	filter := ParseFilter(r.URL.Query())
	summary := s.summary(filter)
	body, err := s.execute("stats", struct {
		Filter  stats.Filter
		Summary stats.Summary
	}{filter, summary})
	if err != nil {
		s.templateError(w, r, "stats", err)
		return
	}
	resp := NewHTMXResponse().BodyHTML(body).TriggerFilterChanged(filter)
	if summary.Empty {
		resp.TriggerNotification(NotificationInfo, msgNoMatch, 3000)
	}
	resp.Write(w)
}

type chartResponse struct {
	Labels   []string       `json:"labels"`
	Datasets []chart.Series `json:"datasets"`
	Bound    chart.Bound    `json:"bound"`
}

func (s *Server) buildChart(r *http.Request) *chart.Chart {
	q := r.URL.Query()
	c := chart.New(s.chartGroups(ParseFilter(q)))
	c.Hide(ParseHidden(q)...)
	return c
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	c := s.buildChart(r)
	writeJSON(w, http.StatusOK, chartResponse{Labels: c.Labels(), Datasets: c.Series, Bound: c.Bound()})
}

// handleChartRange answers the legend: the y-axis bound once the hidden
// series are left out.
func (s *Server) handleChartRange(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.buildChart(r).Bound())
}

// handleExport writes the records matching the filter query as CSV.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	records := ParseFilter(r.URL.Query()).Apply(s.store.Records())
	var buf bytes.Buffer
	if err := csvio.Export(&buf, records); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	name := csvio.FileName(time.Now())
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", contentDisposition("housetrend.csv", name))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
	applog.FromContext(r.Context()).InfoContext(r.Context(), "Records exported",
		applog.FieldOperation, applog.OpExport, applog.FieldRecords, len(records))
}

// execute renders a template into memory so a failure never leaves a
// half-written page.
func (s *Server) execute(name string, data any) ([]byte, error) {
	if s.templates == nil {
		return nil, errTemplatesMissing
	}
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	body, err := s.execute(name, data)
	if err != nil {
		s.templateError(w, r, name, err)
		return
	}
	NewHTMXResponse().Status(status).BodyHTML(body).Write(w)
}

func (s *Server) templateError(w http.ResponseWriter, r *http.Request, name string, err error) {
	s.logger.ErrorContext(r.Context(), "Template execution failed",
		applog.FieldError, err, "template", name, applog.FieldOperation, applog.OpRender)
	InternalServerError("页面渲染失败").Write(w)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
