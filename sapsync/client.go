package sapsync

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"

	"github.com/mmdatafocus/portal_backend/config"
	"golang.org/x/time/rate"
)

// APIError is a non-2xx answer from the Service Layer.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("sap service layer error %d: %s", e.StatusCode, e.Body)
}

// Client talks to the SAP Business One Service Layer. It logs in lazily and
// keeps the session cookie in its jar.
type Client struct {
	cfg     config.SAPConfig
	http    *http.Client
	limiter *rate.Limiter

	mu       sync.Mutex
	loggedIn bool
}

func NewClient(cfg config.SAPConfig) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, errors.New("sap base url is empty")
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.InsecureSkipVerify {
		// Service Layer installs commonly ship a self-signed certificate.
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 5
	}
	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout, Transport: transport, Jar: jar},
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
	}, nil
}

type listEnvelope struct {
	Value      []json.RawMessage `json:"value"`
	NextLink   string            `json:"odata.nextLink"`
	NextLinkV4 string            `json:"@odata.nextLink"`
}

func (e listEnvelope) next() string {
	if e.NextLink != "" {
		return e.NextLink
	}
	return e.NextLinkV4
}

// Query runs a stored SQL query and returns every record across all pages.
func (c *Client) Query(ctx context.Context, queryID string, filter string) ([]json.RawMessage, error) {

	endpoint := fmt.Sprintf("%s/SQLQueries('%s')/List", c.cfg.BaseURL, url.PathEscape(queryID))
	if filter != "" {
		endpoint += "?$filter=" + strings.ReplaceAll(url.QueryEscape(filter), "+", "%20")
	}

	var records []json.RawMessage
	for endpoint != "" {
		var env listEnvelope
		if err := c.getJSON(ctx, endpoint, c.cfg.PageSize, &env); err != nil {
			return nil, err
		}
		records = append(records, env.Value...)
		endpoint = c.resolveLink(env.next())
	}
	return records, nil
}

func (c *Client) resolveLink(link string) string {
	switch {
	case link == "":
		return ""
	case strings.HasPrefix(link, "http://"), strings.HasPrefix(link, "https://"):
		return link
	case strings.HasPrefix(link, "/"):
		u, err := url.Parse(c.cfg.BaseURL)
		if err != nil {
			return ""
		}
		return u.Scheme + "://" + u.Host + link
	default:
		return c.cfg.BaseURL + "/" + link
	}
}

func (c *Client) getJSON(ctx context.Context, endpoint string, pageSize int, out interface{}) error {
	if err := c.ensureSession(ctx); err != nil {
		return err
	}
	body, status, err := c.do(ctx, endpoint, pageSize)
	if err != nil {
		return err
	}
	if status == http.StatusUnauthorized {
		// Session expired; log in again and retry once.
		c.mu.Lock()
		c.loggedIn = false
		c.mu.Unlock()
		if err := c.ensureSession(ctx); err != nil {
			return err
		}
		body, status, err = c.do(ctx, endpoint, pageSize)
		if err != nil {
			return err
		}
	}
	if status < 200 || status >= 300 {
		return &APIError{StatusCode: status, Body: strings.TrimSpace(string(body))}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode sap response: %w", err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, endpoint string, pageSize int) ([]byte, int, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, 0, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Accept", "application/json")
	if pageSize > 0 {
		req.Header.Set("Prefer", fmt.Sprintf("odata.maxpagesize=%d", pageSize))
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return body, resp.StatusCode, nil
}

func (c *Client) ensureSession(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loggedIn {
		return nil
	}

	payload, err := json.Marshal(map[string]string{
		"CompanyDB": c.cfg.CompanyDB,
		"UserName":  c.cfg.Username,
		"Password":  c.cfg.Password,
	})
	if err != nil {
		return err
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/Login", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("sap login: %w", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	c.loggedIn = true
	return nil
}
