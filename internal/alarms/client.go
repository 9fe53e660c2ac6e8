// Package alarms implements the client for the NMC weather-alarm portal:
// the paginated findAlarm JSON endpoint and the per-alarm detail pages.
package alarms

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/sethvargo/go-retry"

	"weatherbot/internal/model"
)

// DefaultBaseURL is the canonical host of the alarm portal. Relative detail
// and icon URLs resolve against it.
const DefaultBaseURL = "https://www.nmc.cn"

const (
	maxPageSize        = 30
	placeholderContent = "暂无详情"
	userAgent          = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"
)

// HTTPClient is the interface for performing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client fetches alarm listings and detail pages from the portal.
type Client struct {
	client  HTTPClient
	baseURL string
	backoff time.Duration
}

// New creates a Client with the given HTTP client and the canonical host.
func New(client HTTPClient) *Client {
	return NewWithBaseURL(client, DefaultBaseURL)
}

// NewWithBaseURL creates a Client against a non-default host (useful for
// testing).
func NewWithBaseURL(client HTTPClient, baseURL string) *Client {
	return &Client{
		client:  client,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		backoff: 500 * time.Millisecond,
	}
}

// BaseURL returns the host relative URLs resolve against.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Resolve turns a possibly-relative portal URL into an absolute one.
func (c *Client) Resolve(raw string) string {
	if strings.HasPrefix(raw, "/") {
		return c.baseURL + raw
	}
	return raw
}

type listResponse struct {
	Data struct {
		Page struct {
			List []struct {
				AlertID   string `json:"alertid"`
				Title     string `json:"title"`
				IssueTime string `json:"issuetime"`
				URL       string `json:"url"`
				Pic       string `json:"pic"`
			} `json:"list"`
			TotalPage int `json:"totalPage"`
		} `json:"page"`
	} `json:"data"`
}

// FetchLatest returns up to count alarms, most recent first, paging through
// the findAlarm endpoint until count is reached or pages run out.
func (c *Client) FetchLatest(ctx context.Context, count int) ([]model.Alarm, error) {
	pageSize := count
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	var alarms []model.Alarm
	for pageNo := 1; len(alarms) < count; pageNo++ {
		page, err := c.fetchPage(ctx, pageNo, pageSize)
		if err != nil {
			return nil, err
		}

		for _, a := range page.Data.Page.List {
			if len(alarms) >= count {
				break
			}
			alarms = append(alarms, model.Alarm{
				AlertID:   a.AlertID,
				Title:     a.Title,
				IssueTime: a.IssueTime,
				URL:       a.URL,
				Pic:       a.Pic,
			})
		}

		if pageNo >= page.Data.Page.TotalPage || len(page.Data.Page.List) == 0 {
			break
		}
	}
	return alarms, nil
}

func (c *Client) fetchPage(ctx context.Context, pageNo, pageSize int) (*listResponse, error) {
	url := fmt.Sprintf("%s/rest/findAlarm?pageNo=%d&pageSize=%d", c.baseURL, pageNo, pageSize)

	var page listResponse
	b := retry.WithMaxRetries(2, retry.NewExponential(c.backoff))
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		body, err := c.get(ctx, url, "application/json, text/plain, */*")
		if err != nil {
			return retry.RetryableError(err)
		}
		if err := json.Unmarshal(body, &page); err != nil {
			return fmt.Errorf("decode alarm list: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("fetch alarm page %d: %w", pageNo, err)
	}
	return &page, nil
}

// FetchDetail scrapes an alarm's detail page. The content lives in the
// div#alarmtext element; when that is missing, the first paragraph that
// reads like warning text is used. Missing fields fall back to a
// placeholder so the caller can always render a message.
func (c *Client) FetchDetail(ctx context.Context, alarmURL string) (model.AlarmDetail, error) {
	detail := model.AlarmDetail{Content: placeholderContent}

	body, err := c.get(ctx, c.Resolve(alarmURL), "text/html,application/xhtml+xml")
	if err != nil {
		return detail, fmt.Errorf("fetch alarm detail: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return detail, fmt.Errorf("parse alarm detail: %w", err)
	}

	detail.Title = strings.TrimSpace(doc.Find("title").First().Text())

	if text := strings.TrimSpace(doc.Find("div#alarmtext").Text()); text != "" {
		detail.Content = text
		return detail, nil
	}

	doc.Find("p").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		text := strings.TrimSpace(sel.Text())
		if strings.Contains(text, "防御") || strings.Contains(text, "预警") || strings.Contains(text, "影响") {
			detail.Content = text
			return false
		}
		return true
	})
	return detail, nil
}

func (c *Client) get(ctx context.Context, url, accept string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", accept)
	req.Header.Set("Referer", c.baseURL+"/publish/alarm.html")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 5*1024*1024))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}
