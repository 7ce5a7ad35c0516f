package node

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/0xPuncker/jobspec-watcher/pkg/types"
	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
)

const (
	jobSpecCacheKey = "job_spec:%s"
	jobCacheKey     = "job:%s"

	jobSpecsPath = "/v2/specs/"
	jobsPath     = "/v2/jobs/"

	maxResponseSize = 4 << 20
)

// Client reads job records from a node's JSON:API.
type Client struct {
	cache   *cache.Cache
	logger  *logrus.Logger
	client  *http.Client
	baseURL string
	token   string
	ttl     time.Duration
}

func NewClient(logger *logrus.Logger, baseURL, token string, ttl time.Duration) *Client {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	baseURL = strings.TrimRight(baseURL, "/")
	logger.Debugf("Node URL: %s", baseURL)

	client := &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 100,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 5 * time.Second,
		},
	}

	return &Client{
		cache:   cache.New(ttl, 10*time.Second),
		logger:  logger,
		client:  client,
		baseURL: baseURL,
		token:   token,
		ttl:     ttl,
	}
}

// GetJobSpec returns the legacy spec with the given ID.
func (c *Client) GetJobSpec(ctx context.Context, id string, forceRefresh bool) (*types.JobSpec, error) {
	if id == "" {
		return nil, fmt.Errorf("job spec id cannot be empty")
	}

	key := fmt.Sprintf(jobSpecCacheKey, id)
	if !forceRefresh {
		if cached, found := c.cache.Get(key); found {
			c.logger.Debugf("Found cached job spec %s", id)
			return cached.(*types.JobSpec), nil
		}
	}

	body, err := c.fetch(ctx, jobSpecsPath+url.PathEscape(id))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch job spec %s: %w", id, err)
	}

	spec, err := types.DecodeJobSpec(body)
	if err != nil {
		return nil, err
	}
	if spec.ID == "" {
		spec.ID = id
	}

	c.cache.Set(key, spec, c.ttl)
	return spec, nil
}

// GetJob returns the typed job with the given ID.
func (c *Client) GetJob(ctx context.Context, id string, forceRefresh bool) (*types.Job, error) {
	if id == "" {
		return nil, fmt.Errorf("job id cannot be empty")
	}

	key := fmt.Sprintf(jobCacheKey, id)
	if !forceRefresh {
		if cached, found := c.cache.Get(key); found {
			c.logger.Debugf("Found cached job %s", id)
			return cached.(*types.Job), nil
		}
	}

	body, err := c.fetch(ctx, jobsPath+url.PathEscape(id))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch job %s: %w", id, err)
	}

	job, err := types.DecodeJob(body)
	if err != nil {
		return nil, err
	}
	if job.ID == "" {
		job.ID = id
	}

	c.cache.Set(key, job, c.ttl)
	return job, nil
}

// isCached reports whether a record of the given kind is cached.
func (c *Client) isCached(kind types.JobKind, id string) bool {
	key := fmt.Sprintf(jobCacheKey, id)
	if kind == types.KindLegacy {
		key = fmt.Sprintf(jobSpecCacheKey, id)
	}
	_, found := c.cache.Get(key)
	return found
}

func (c *Client) flush() {
	c.cache.Flush()
}

func (c *Client) fetch(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.api+json, application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	c.logger.WithFields(logrus.Fields{
		"method": req.Method,
		"url":    req.URL.String(),
	}).Debug("Requesting node API")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, types.ErrJobNotFound
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("node API returned non-200 status code: %d", resp.StatusCode)
	}

	// Some proxies answer with an HTML error page and a 200.
	if strings.HasPrefix(strings.TrimSpace(string(body)), "<") {
		return nil, fmt.Errorf("received HTML response instead of JSON")
	}

	return body, nil
}
