package core

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode"
)

const (
	DefaultSiteTitle       = "二手房成交走势图"
	DefaultSiteDescription = "展示各小区户型成交价格走势"
	DefaultAdminPassword   = "admin123"

	// DateLayout is the persisted calendar date format.
	DateLayout = "2006-01-02"
)

type (
	// Measure is a price (万元/㎡) or an area (㎡). Unparsable input is kept as
	// NaN and persisted as JSON null.
	Measure float64

	// Record is one observed second-hand housing transaction.
	Record struct {
		ID        int     `json:"id"`
		Community string  `json:"community"`
		HouseType string  `json:"houseType"`
		Date      string  `json:"date"`
		Price     Measure `json:"price"`
		Area      Measure `json:"area"`
	}

	SiteConfig struct {
		SiteTitle       string `json:"siteTitle"`
		SiteDescription string `json:"siteDescription"`
		AdminPassword   string `json:"adminPassword"`
	}

	// Document is the persisted shape shared by the local and remote files.
	Document struct {
		SiteConfig      *SiteConfig `json:"siteConfig"`
		TransactionData []Record    `json:"transactionData"`
	}
)

var (
	ErrEmptyCommunity = errors.New("empty community")
	ErrEmptyHouseType = errors.New("empty house type")
	ErrEmptyDate      = errors.New("empty date")
	ErrInvalidPrice   = errors.New("invalid price")
	ErrInvalidArea    = errors.New("invalid area")
	ErrNotFound       = errors.New("record not found")
)

// DefaultSiteConfig returns the configuration used when none was persisted.
func DefaultSiteConfig() SiteConfig {
	return SiteConfig{
		SiteTitle:       DefaultSiteTitle,
		SiteDescription: DefaultSiteDescription,
		AdminPassword:   DefaultAdminPassword,
	}
}

// Title returns the site title, or the default one when blank.
func (c SiteConfig) Title() string {
	if c.SiteTitle == "" {
		return DefaultSiteTitle
	}
	return c.SiteTitle
}

// Description returns the site description, or the default one when blank.
func (c SiteConfig) Description() string {
	if c.SiteDescription == "" {
		return DefaultSiteDescription
	}
	return c.SiteDescription
}

// Merge overwrites only the non-empty fields of update onto c.
func (c SiteConfig) Merge(update SiteConfig) SiteConfig {
	if v := strings.TrimSpace(update.SiteTitle); v != "" {
		c.SiteTitle = v
	}
	if v := strings.TrimSpace(update.SiteDescription); v != "" {
		c.SiteDescription = v
	}
	if update.AdminPassword != "" {
		c.AdminPassword = update.AdminPassword
	}
	return c
}

// ParseMeasure parses the longest leading number in s the way a browser's
// parseFloat does, so "12.5万" is 12.5. Input with no leading number is NaN.
func ParseMeasure(s string) Measure {
	s = strings.TrimLeftFunc(s, unicode.IsSpace)
	unsigned, sign := s, 1
	if unsigned != "" && (unsigned[0] == '+' || unsigned[0] == '-') {
		if unsigned[0] == '-' {
			sign = -1
		}
		unsigned = unsigned[1:]
	}
	if strings.HasPrefix(unsigned, "Infinity") {
		return Measure(math.Inf(sign))
	}
	f, err := strconv.ParseFloat(numericPrefix(s), 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return Measure(math.NaN())
	}
	return Measure(f)
}

// numericPrefix returns the leading [sign]digits[.digits][e[sign]digits] of s.
func numericPrefix(s string) string {
	i := 0
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	digits := 0
	for i < len(s) && isDigit(s[i]) {
		i++
		digits++
	}
	if i < len(s) && s[i] == '.' {
		i++
		for i < len(s) && isDigit(s[i]) {
			i++
			digits++
		}
	}
	if digits == 0 {
		return ""
	}
	end := i
	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		j := i + 1
		if j < len(s) && (s[j] == '+' || s[j] == '-') {
			j++
		}
		k := j
		for k < len(s) && isDigit(s[k]) {
			k++
		}
		if k > j {
			end = k
		}
	}
	return s[:end]
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

// Valid reports whether m is a finite number.
func (m Measure) Valid() bool {
	f := float64(m)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func (m Measure) Float() float64 { return float64(m) }

// String formats like a JavaScript number: shortest representation, NaN as "NaN".
func (m Measure) String() string {
	if math.IsNaN(float64(m)) {
		return "NaN"
	}
	return strconv.FormatFloat(float64(m), 'f', -1, 64)
}

func (m Measure) MarshalJSON() ([]byte, error) {
	if !m.Valid() {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatFloat(float64(m), 'f', -1, 64)), nil
}

func (m *Measure) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*m = Measure(math.NaN())
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*m = Measure(f)
	return nil
}

// Validate applies the admin form rules: every field present, numbers numeric.
func (r Record) Validate() error {
	if strings.TrimSpace(r.Community) == "" {
		return ErrEmptyCommunity
	}
	if strings.TrimSpace(r.HouseType) == "" {
		return ErrEmptyHouseType
	}
	if strings.TrimSpace(r.Date) == "" {
		return ErrEmptyDate
	}
	if !r.Price.Valid() {
		return ErrInvalidPrice
	}
	if !r.Area.Valid() {
		return ErrInvalidArea
	}
	return nil
}

// Time returns the calendar date of the record. Unparsable dates yield the
// zero time, so they sort before every valid date.
func (r Record) Time() time.Time {
	t, _ := ParseDate(r.Date)
	return t
}

var dateLayouts = []string{DateLayout, "2006/01/02", "2006-1-2", "2006/1/2", time.RFC3339}

// ParseDate parses the calendar date formats accepted on import.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	var lastErr error
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

// Site returns the document's site config with defaults applied when absent.
func (d Document) Site() SiteConfig {
	if d.SiteConfig == nil {
		return DefaultSiteConfig()
	}
	return *d.SiteConfig
}

// Encode renders the document the way it is persisted: indented JSON.
func (d Document) Encode() ([]byte, error) {
	if d.TransactionData == nil {
		d.TransactionData = []Record{}
	}
	return json.MarshalIndent(d, "", "  ")
}

// DecodeDocument parses a persisted document.
func DecodeDocument(b []byte) (Document, error) {
	var d Document
	if err := json.Unmarshal(b, &d); err != nil {
		return Document{}, err
	}
	return d, nil
}
