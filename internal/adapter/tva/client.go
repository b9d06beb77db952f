package tva

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/hydrolink/hydrolink-core/internal/infrastructure/config"
	"github.com/hydrolink/hydrolink-core/internal/infrastructure/logging"
	"github.com/hydrolink/hydrolink-core/internal/reading"
	"github.com/hydrolink/hydrolink-core/internal/snapshot"
)

// Browser-like headers; the portal serves a cut-down page to unknown agents.
const (
	userAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
	acceptHTML     = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"
	acceptLanguage = "vi-VN,vi;q=0.9,en;q=0.8"
)

// Measurement is one row of a station's current-values table, kept in the
// portal's own text form.
type Measurement struct {
	STT   string `json:"stt"`
	Name  string `json:"name"`
	Time  string `json:"time"`
	Value string `json:"value"`
	Unit  string `json:"unit"`
	Limit string `json:"limit"`
}

// Station is one monitoring station scraped from the portal dashboard.
type Station struct {
	Name         string        `json:"station"`
	UpdateTime   string        `json:"updateTime"`
	Measurements []Measurement `json:"data"`
}

// artifact is the snapshot file layout.
type artifact struct {
	Timestamp     string    `json:"timestamp"`
	TotalStations int       `json:"totalStations"`
	Stations      []Station `json:"stations"`
}

// Client fetches readings from the monitoring portal.
type Client struct {
	cfg  config.TVAConfig
	http *http.Client
	log  *logging.Logger
}

// New builds a portal client from config.
func New(cfg config.TVAConfig, log *logging.Logger) *Client {
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		cfg: cfg,
		// Cookies are carried manually: the portal issues session
		// cookies incrementally across the token GET and the login
		// POST, and both sets must ride on the final data request.
		http: &http.Client{Timeout: timeout},
		log:  log.With("component", "tva"),
	}
}

// Fetch logs into the portal and scrapes the current station readings.
//
// Any failure in the sequence fails the whole fetch; partial station
// lists are never returned. A successful fetch also refreshes the
// snapshot artifact (best effort).
func (c *Client) Fetch(ctx context.Context) ([]Station, error) {
	cookies := map[string]string{}

	// Step 1: login page, for session cookies and the form token.
	page, err := c.get(ctx, c.cfg.URL, cookies)
	if err != nil {
		return nil, fmt.Errorf("tva: login page: %w", err)
	}
	token, exists := page.Find(`input[name="is_dtool_form"]`).Attr("value")
	if !exists {
		return nil, fmt.Errorf("%w: form token not found", ErrParse)
	}

	// Step 2: credential POST.
	form := url.Values{
		"fields[email]":    {c.cfg.Username},
		"fields[password]": {c.cfg.Password},
		"remember_account": {"on"},
		"is_dtool_form":    {token},
	}
	if err := c.postLogin(ctx, strings.TrimRight(c.cfg.URL, "/")+"/dang-nhap/", form, cookies); err != nil {
		return nil, err
	}

	// Step 3: re-fetch the dashboard with the full session.
	doc, err := c.get(ctx, c.cfg.URL, cookies)
	if err != nil {
		return nil, fmt.Errorf("tva: dashboard: %w", err)
	}

	stations := parseStations(doc)
	c.log.Info("fetched portal data", "stations", len(stations))

	if c.cfg.SnapshotPath != "" && len(stations) > 0 {
		art := artifact{
			Timestamp:     time.Now().UTC().Format(time.RFC3339),
			TotalStations: len(stations),
			Stations:      stations,
		}
		if err := snapshot.Save(c.cfg.SnapshotPath, art); err != nil {
			c.log.Warn("snapshot write failed", "error", err)
		}
	}

	return stations, nil
}

// get issues a GET with the accumulated session cookies, merges any
// Set-Cookie values from the response into cookies, and parses the body.
func (c *Client) get(ctx context.Context, rawURL string, cookies map[string]string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	c.setHeaders(req, cookies)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	mergeCookies(cookies, resp)

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("GET %s: status %d", rawURL, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	return doc, nil
}

func (c *Client) postLogin(ctx context.Context, loginURL string, form url.Values, cookies map[string]string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, loginURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("tva: login request: %w", err)
	}
	c.setHeaders(req, cookies)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Referer", c.cfg.URL)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAuth, err)
	}
	defer resp.Body.Close()

	mergeCookies(cookies, resp)

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("%w: login status %d", ErrAuth, resp.StatusCode)
	}
	return nil
}

func (c *Client) setHeaders(req *http.Request, cookies map[string]string) {
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", acceptHTML)
	req.Header.Set("Accept-Language", acceptLanguage)
	if header := cookieHeader(cookies); header != "" {
		req.Header.Set("Cookie", header)
	}
}

// mergeCookies folds a response's Set-Cookie values into the session map.
// Later responses win on name collisions.
func mergeCookies(cookies map[string]string, resp *http.Response) {
	for _, c := range resp.Cookies() {
		if c.Name != "" && c.Value != "" {
			cookies[c.Name] = c.Value
		}
	}
}

func cookieHeader(cookies map[string]string) string {
	if len(cookies) == 0 {
		return ""
	}
	pairs := make([]string, 0, len(cookies))
	for name, value := range cookies {
		pairs = append(pairs, name+"="+value)
	}
	return strings.Join(pairs, "; ")
}

// parseStations extracts the station segments from the dashboard page.
//
// Each .segmentData block is one station: .headerChart carries the name,
// .headerNow the observation time, and the left table the current values.
// Rows need at least 5 columns and a non-empty name and value to count.
func parseStations(doc *goquery.Document) []Station {
	var stations []Station

	doc.Find(".segmentData").Each(func(_ int, segment *goquery.Selection) {
		name := strings.TrimSpace(segment.Find(".headerChart").First().Text())
		updateTime := strings.TrimSpace(segment.Find(".headerNow").First().Text())
		updateTime = strings.TrimPrefix(updateTime, "Thời điểm: ")

		var measurements []Measurement
		segment.Find(".left .table .row").Each(func(_ int, row *goquery.Selection) {
			if row.HasClass("header") {
				return
			}
			cols := row.Find(".col")
			if cols.Length() < 5 {
				return
			}

			m := Measurement{
				STT:   strings.TrimSpace(cols.Eq(0).Text()),
				Name:  strings.TrimSpace(cols.Eq(1).Text()),
				Time:  strings.TrimSpace(cols.Eq(2).Text()),
				Value: strings.TrimSpace(cols.Eq(3).Text()),
				Unit:  strings.TrimSpace(cols.Eq(4).Text()),
				Limit: strings.TrimSpace(cols.Eq(5).Text()),
			}
			if m.Name != "" && m.Value != "" {
				measurements = append(measurements, m)
			}
		})

		if len(measurements) > 0 {
			stations = append(stations, Station{
				Name:         name,
				UpdateTime:   updateTime,
				Measurements: measurements,
			})
		}
	})

	return stations
}

// Readings converts scraped stations into normalized readings. Values
// that do not parse as numbers are kept with a nil Value; the store
// records them as NULL.
func Readings(stations []Station) []reading.Reading {
	var out []reading.Reading
	for _, st := range stations {
		id := reading.SlugID(reading.SourceTVA, st.Name)
		for _, m := range st.Measurements {
			out = append(out, reading.Reading{
				Station:    st.Name,
				StationID:  id,
				Parameter:  m.Name,
				Value:      reading.ParseNumeric(m.Value),
				Unit:       m.Unit,
				ObservedAt: st.UpdateTime,
			})
		}
	}
	return out
}
