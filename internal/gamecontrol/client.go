package gamecontrol

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"gameserverctl/internal/models"
	"gameserverctl/internal/probe"
	"gameserverctl/pkg/logging"
)

const (
	stopPath       = "/stop"
	defaultTimeout = 10 * time.Second
)

// Stopper asks the game process to shut down gracefully
//
//go:generate mockery --name=Stopper --output=./mocks
type Stopper interface {
	Stop(ctx context.Context) error
}

// Client talks to the control endpoint exposed by the game process
type Client struct {
	stopURL  string
	username string
	password string
	http     *http.Client
	logger   logging.Logger
}

// NewClient creates a control client for endpoint.Host:endpoint.ControlPort
func NewClient(endpoint models.GameServerEndpoint, logger logging.Logger) *Client {
	return NewClientWithHTTP(endpoint, &http.Client{Timeout: defaultTimeout}, logger)
}

// NewClientWithHTTP creates a control client with a provided HTTP client
func NewClientWithHTTP(endpoint models.GameServerEndpoint, httpClient *http.Client, logger logging.Logger) *Client {
	host := net.JoinHostPort(endpoint.Host, strconv.Itoa(endpoint.ControlPort))
	return &Client{
		stopURL:  "http://" + host + stopPath,
		username: endpoint.StopUsername,
		password: endpoint.StopPassword,
		http:     httpClient,
		logger:   logger,
	}
}

// StopURL returns the URL used for graceful shutdown
func (c *Client) StopURL() string {
	return c.stopURL
}

// Stop issues GET /stop with basic credentials. Only a 2xx answer counts as success.
func (c *Client) Stop(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.stopURL, nil)
	if err != nil {
		return fmt.Errorf("building stop request: %w", err)
	}
	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}

	c.logger.Debug("Requesting graceful game shutdown at %s", c.stopURL)
	resp, err := c.http.Do(req)
	if err != nil {
		category := ErrControlUnreachable
		if probe.IsConnectionRefused(err) {
			category = ErrControlRefused
		}
		return &Error{Category: category, URL: c.stopURL, Underlying: err}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &Error{Category: ErrControlRejected, URL: c.stopURL, StatusCode: resp.StatusCode}
	}

	c.logger.Info("Game server accepted the stop request")
	return nil
}
