// Package http provides the viewer and admin HTTP servers.
//
// This file implements utilities for parsing and validating request data:
// filters, record forms, and path ids.

package http

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"housetrend/internal/core"
	"housetrend/internal/stats"
)

// MsgIncompleteRecord is shown when a record form misses a field or has a
// non-numeric price or area.
const MsgIncompleteRecord = "请填写完整的记录信息"

var errInvalidID = errors.New("invalid record id")

// ParseFilter reads the community and house type selectors.
func ParseFilter(values url.Values) stats.Filter {
	return stats.Filter{
		Community: sanitizeInput(values.Get("community")),
		HouseType: sanitizeInput(values.Get("houseType")),
	}
}

// ParseHidden reads the labels of the chart series the legend has hidden.
func ParseHidden(values url.Values) []string {
	var out []string
	for _, v := range values["hidden"] {
		if v = sanitizeInput(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// ParseRecordForm builds a record from the admin form and validates it.
// Price and area must parse as finite numbers.
func ParseRecordForm(form url.Values) (core.Record, error) {
	r := core.Record{
		Community: sanitizeInput(form.Get("community")),
		HouseType: sanitizeInput(form.Get("houseType")),
		Date:      sanitizeInput(form.Get("date")),
		Price:     core.ParseMeasure(form.Get("price")),
		Area:      core.ParseMeasure(form.Get("area")),
	}
	if err := r.Validate(); err != nil {
		return core.Record{}, err
	}
	if t, err := core.ParseDate(r.Date); err == nil {
		r.Date = t.Format(core.DateLayout)
	}
	return r, nil
}

// ParseSiteForm reads the settings form. Blank fields leave the current
// values untouched when merged.
func ParseSiteForm(form url.Values) core.SiteConfig {
	return core.SiteConfig{
		SiteTitle:       sanitizeInput(form.Get("siteTitle")),
		SiteDescription: sanitizeInput(form.Get("siteDescription")),
		AdminPassword:   form.Get("newPassword"),
	}
}

// PathID parses the {id} path segment.
func PathID(r *http.Request) (int, error) {
	raw := strings.TrimSpace(r.PathValue("id"))
	id, err := strconv.Atoi(raw)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("%w: %q", errInvalidID, raw)
	}
	return id, nil
}

// ParseLimit reads a positive limit query parameter, falling back to def and
// capping at max.
func ParseLimit(values url.Values, def, max int) int {
	n, err := strconv.Atoi(strings.TrimSpace(values.Get("limit")))
	if err != nil || n < 1 {
		return def
	}
	if n > max {
		return max
	}
	return n
}
