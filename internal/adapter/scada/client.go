package scada

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/hydrolink/hydrolink-core/internal/infrastructure/config"
	"github.com/hydrolink/hydrolink-core/internal/infrastructure/logging"
	"github.com/hydrolink/hydrolink-core/internal/stationmap"
)

// Rapid SCADA URL layout.
const (
	loginPath = "/Scada/Login.aspx"
	viewPath  = "/Scada/View.aspx"
	apiPath   = "/Scada/ClientApiSvc.svc/GetCurCnlDataExt"

	userAgent  = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
	acceptHTML = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"
)

// ChannelValue is one channel's current value as the JSON API reports it.
type ChannelValue struct {
	CnlNum       int     `json:"CnlNum"`
	Val          float64 `json:"Val"`
	Text         string  `json:"Text"`
	TextWithUnit string  `json:"TextWithUnit"`
	Stat         int     `json:"Stat"`
	Color        string  `json:"Color"`
}

// apiEnvelope is the WCF wrapper: the payload is a JSON string inside
// the "d" member, decoded in a second pass.
type apiEnvelope struct {
	D string `json:"d"`
}

type apiResponse struct {
	Success      bool
	Data         []ChannelValue
	ErrorMessage string
}

// Client fetches realtime channel data from the SCADA server.
type Client struct {
	cfg  config.SCADAConfig
	http *http.Client
	log  *logging.Logger
}

// New builds a SCADA client from config.
func New(cfg config.SCADAConfig, log *logging.Logger) *Client {
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: timeout},
		log:  log.With("component", "scada"),
	}
}

// Fetch logs into the SCADA server and retrieves current channel values.
//
// Fetch strategies run in order: the view-based query first, then the
// explicit channel list from the station tables. The first strategy that
// yields data wins; only when all fail does the fetch error. A successful
// fetch refreshes the snapshot artifact (best effort).
func (c *Client) Fetch(ctx context.Context) ([]ChannelValue, error) {
	cookie, err := c.login(ctx)
	if err != nil {
		return nil, err
	}

	// Warm the server's view cache; the API answers empty for views the
	// session has never opened. Failure is logged and ignored.
	viewID := c.cfg.ViewID
	if viewID <= 0 {
		viewID = 16
	}
	if err := c.warmUpView(ctx, cookie, viewID); err != nil {
		c.log.Warn("view warm-up failed", "view_id", viewID, "error", err)
	}

	strategies := []struct {
		name string
		run  func(context.Context, string) ([]ChannelValue, error)
	}{
		{"view", func(ctx context.Context, cookie string) ([]ChannelValue, error) {
			return c.fetchByView(ctx, cookie, viewID)
		}},
		{"channels", c.fetchByChannels},
	}

	var lastErr error
	for _, s := range strategies {
		values, err := s.run(ctx, cookie)
		if err != nil {
			c.log.Warn("fetch strategy failed", "strategy", s.name, "error", err)
			lastErr = err
			continue
		}
		if len(values) == 0 {
			c.log.Warn("fetch strategy returned no data", "strategy", s.name)
			continue
		}

		c.log.Info("fetched channel data", "strategy", s.name, "channels", len(values))
		c.writeSnapshot(values)
		return values, nil
	}

	if lastErr != nil {
		return nil, lastErr
	}
	return nil, fmt.Errorf("%w: no strategy returned data", ErrAPI)
}

// login performs the WebForms login and returns the session cookie
// header for subsequent requests.
func (c *Client) login(ctx context.Context) (string, error) {
	loginURL := strings.TrimRight(c.cfg.URL, "/") + loginPath

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, loginURL, nil)
	if err != nil {
		return "", fmt.Errorf("scada: login request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", acceptHTML)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("scada: login page: %w", err)
	}
	defer resp.Body.Close()

	cookies := map[string]string{}
	mergeCookies(cookies, resp)

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrParse, err)
	}

	viewState, ok := doc.Find(`input[name="__VIEWSTATE"]`).Attr("value")
	if !ok {
		return "", fmt.Errorf("%w: __VIEWSTATE not found", ErrParse)
	}
	viewStateGen, _ := doc.Find(`input[name="__VIEWSTATEGENERATOR"]`).Attr("value")
	eventValidation, _ := doc.Find(`input[name="__EVENTVALIDATION"]`).Attr("value")

	form := url.Values{
		"__VIEWSTATE":          {viewState},
		"__VIEWSTATEGENERATOR": {viewStateGen},
		"__EVENTVALIDATION":    {eventValidation},
		"txtUsername":          {c.cfg.Username},
		"txtPassword":          {c.cfg.Password},
		"btnLogin":             {"Login"},
	}

	post, err := http.NewRequestWithContext(ctx, http.MethodPost, loginURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("scada: login post: %w", err)
	}
	post.Header.Set("User-Agent", userAgent)
	post.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	post.Header.Set("Referer", loginURL)
	post.Header.Set("Cookie", cookieHeader(cookies))

	loginResp, err := c.http.Do(post)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrAuth, err)
	}
	defer loginResp.Body.Close()

	mergeCookies(cookies, loginResp)

	if loginResp.StatusCode >= http.StatusBadRequest {
		return "", fmt.Errorf("%w: login status %d", ErrAuth, loginResp.StatusCode)
	}

	return cookieHeader(cookies), nil
}

func (c *Client) warmUpView(ctx context.Context, cookie string, viewID int) error {
	warmURL := fmt.Sprintf("%s%s?viewID=%d", strings.TrimRight(c.cfg.URL, "/"), viewPath, viewID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, warmURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Cookie", cookie)
	req.Header.Set("Referer", strings.TrimRight(c.cfg.URL, "/")+viewPath)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return nil
}

// fetchByView queries current data for every channel of a server view.
func (c *Client) fetchByView(ctx context.Context, cookie string, viewID int) ([]ChannelValue, error) {
	params := url.Values{
		"cnlNums": {""},
		"viewIDs": {""},
		"viewID":  {strconv.Itoa(viewID)},
		"_":       {strconv.FormatInt(time.Now().UnixMilli(), 10)},
	}
	return c.callAPI(ctx, cookie, params)
}

// fetchByChannels queries the explicit channel list from the station
// tables. Fallback for servers that reject view-based queries.
func (c *Client) fetchByChannels(ctx context.Context, cookie string) ([]ChannelValue, error) {
	nums := stationmap.ChannelNums()
	encoded, err := json.Marshal(nums)
	if err != nil {
		return nil, fmt.Errorf("scada: encode channel list: %w", err)
	}

	params := url.Values{
		"cnlNums": {string(encoded)},
		"viewIDs": {"[]"},
		"_":       {strconv.FormatInt(time.Now().UnixMilli(), 10)},
	}
	return c.callAPI(ctx, cookie, params)
}

func (c *Client) callAPI(ctx context.Context, cookie string, params url.Values) ([]ChannelValue, error) {
	apiURL := strings.TrimRight(c.cfg.URL, "/") + apiPath + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, fmt.Errorf("scada: api request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Cookie", cookie)
	req.Header.Set("Referer", strings.TrimRight(c.cfg.URL, "/")+viewPath)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("scada: api call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrAPI, resp.StatusCode)
	}

	var envelope apiEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("%w: envelope decode: %v", ErrAPI, err)
	}

	var body apiResponse
	if err := json.Unmarshal([]byte(envelope.D), &body); err != nil {
		return nil, fmt.Errorf("%w: payload decode: %v", ErrAPI, err)
	}
	if !body.Success {
		return nil, fmt.Errorf("%w: %s", ErrAPI, body.ErrorMessage)
	}

	return body.Data, nil
}

func mergeCookies(cookies map[string]string, resp *http.Response) {
	for _, c := range resp.Cookies() {
		if c.Name != "" && c.Value != "" {
			cookies[c.Name] = c.Value
		}
	}
}

func cookieHeader(cookies map[string]string) string {
	pairs := make([]string, 0, len(cookies))
	for name, value := range cookies {
		pairs = append(pairs, name+"="+value)
	}
	return strings.Join(pairs, "; ")
}
