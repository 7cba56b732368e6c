package authsdk

import (
	"context"
	"net/http"
	"strings"
)

// GetLiveness checks if the service is alive.
func (c *SDKClient) GetLiveness(ctx context.Context) (*HealthResponse, error) {
	return c.getHealth(ctx, "/livez")
}

// GetReadiness checks if the service is ready.
func (c *SDKClient) GetReadiness(ctx context.Context) (*HealthResponse, error) {
	return c.getHealth(ctx, "/readyz")
}

func (c *SDKClient) getHealth(ctx context.Context, path string) (*HealthResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return nil, err
	}

	var health HealthResponse
	if err := decodeJSON(resp, &health, http.StatusOK); err != nil {
		return nil, err
	}

	return &health, nil
}

// Ping calls the load balancer health check and returns its body ("OK").
func (c *SDKClient) Ping(ctx context.Context) (string, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/elb-health", nil, nil)
	if err != nil {
		return "", err
	}
	return readText(resp)
}

// GetVersion returns the build version of the service.
func (c *SDKClient) GetVersion(ctx context.Context) (string, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/version", nil, nil)
	if err != nil {
		return "", err
	}
	body, err := readText(resp)
	return strings.TrimSpace(body), err
}
