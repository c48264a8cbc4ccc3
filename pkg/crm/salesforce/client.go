package salesforce

import (
	"ai-salesops-be/internal/pkg/logger"
	"ai-salesops-be/pkg/crm"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"golang.org/x/oauth2"
)

const (
	leadQuery        = "SELECT Id, Name, Email, Company, Status, LeadSource, Rating FROM Lead WHERE IsConverted = false LIMIT %d"
	opportunityQuery = "SELECT Id, Name, Amount, StageName, Probability, CloseDate, AccountId FROM Opportunity WHERE IsClosed = false LIMIT %d"
)

var errUnauthorized = errors.New("salesforce session expired")

type Config struct {
	Username      string
	Password      string
	SecurityToken string
	ClientID      string
	ClientSecret  string
	LoginURL      string
	APIVersion    string
	Limit         int
}

// Client is a RecordStore backed by the Salesforce REST query API.
// It authenticates with the OAuth2 username-password flow.
type Client struct {
	cfg    Config
	oauth  *oauth2.Config
	logger logger.ILogger

	mu          sync.Mutex
	http        *http.Client
	instanceURL string
}

var _ crm.RecordStore = (*Client)(nil)

type queryResponse struct {
	TotalSize      int          `json:"totalSize"`
	Done           bool         `json:"done"`
	Records        []crm.Record `json:"records"`
	NextRecordsURL string       `json:"nextRecordsUrl"`
}

func NewClient(cfg Config, log logger.ILogger) *Client {
	if cfg.APIVersion == "" {
		cfg.APIVersion = "v59.0"
	}
	if cfg.Limit <= 0 {
		cfg.Limit = 50
	}
	loginURL := strings.TrimRight(cfg.LoginURL, "/")

	return &Client{
		cfg: cfg,
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint: oauth2.Endpoint{
				TokenURL:  loginURL + "/services/oauth2/token",
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		logger: log,
	}
}

func (c *Client) GetLeads(ctx context.Context) ([]crm.Record, error) {
	records, err := c.query(ctx, fmt.Sprintf(leadQuery, c.cfg.Limit))
	if err != nil {
		return nil, fmt.Errorf("fetching leads: %w", err)
	}
	return records, nil
}

func (c *Client) GetOpportunities(ctx context.Context) ([]crm.Record, error) {
	records, err := c.query(ctx, fmt.Sprintf(opportunityQuery, c.cfg.Limit))
	if err != nil {
		return nil, fmt.Errorf("fetching opportunities: %w", err)
	}
	return records, nil
}

// query runs a SOQL statement, re-authenticating once if the session expired.
func (c *Client) query(ctx context.Context, soql string) ([]crm.Record, error) {
	records, err := c.queryOnce(ctx, soql)
	if errors.Is(err, errUnauthorized) {
		c.logger.Warn("CRM", "Salesforce session expired, logging in again", nil)
		c.reset()
		records, err = c.queryOnce(ctx, soql)
	}
	return records, err
}

func (c *Client) queryOnce(ctx context.Context, soql string) ([]crm.Record, error) {
	httpClient, instanceURL, err := c.session(ctx)
	if err != nil {
		return nil, err
	}

	next := fmt.Sprintf("%s/services/data/%s/query?q=%s", instanceURL, c.cfg.APIVersion, url.QueryEscape(soql))
	var records []crm.Record

	for next != "" && len(records) < c.cfg.Limit {
		page, err := c.fetchPage(ctx, httpClient, next)
		if err != nil {
			return nil, err
		}
		for _, r := range page.Records {
			delete(r, "attributes")
			records = append(records, r)
		}
		next = ""
		if !page.Done && page.NextRecordsURL != "" {
			next = instanceURL + page.NextRecordsURL
		}
	}

	if len(records) > c.cfg.Limit {
		records = records[:c.cfg.Limit]
	}

	c.logger.Debug("CRM", "Salesforce query completed", map[string]interface{}{
		"records": len(records),
	})
	return records, nil
}

func (c *Client) fetchPage(ctx context.Context, httpClient *http.Client, pageURL string) (*queryResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("salesforce request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, errUnauthorized
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("salesforce error: status %d, body: %s", resp.StatusCode, string(body))
	}

	var page queryResponse
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	return &page, nil
}

// session lazily performs the password grant. Salesforce expects the
// security token appended to the password.
func (c *Client) session(ctx context.Context) (*http.Client, string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.http != nil {
		return c.http, c.instanceURL, nil
	}

	tok, err := c.oauth.PasswordCredentialsToken(ctx, c.cfg.Username, c.cfg.Password+c.cfg.SecurityToken)
	if err != nil {
		return nil, "", fmt.Errorf("salesforce login: %w", err)
	}

	instanceURL, _ := tok.Extra("instance_url").(string)
	if instanceURL == "" {
		return nil, "", errors.New("salesforce login: token response has no instance_url")
	}

	c.http = c.oauth.Client(context.Background(), tok)
	c.instanceURL = strings.TrimRight(instanceURL, "/")

	c.logger.Info("CRM", "Salesforce session established", map[string]interface{}{
		"instance_url": c.instanceURL,
	})
	return c.http, c.instanceURL, nil
}

func (c *Client) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.http = nil
	c.instanceURL = ""
}
