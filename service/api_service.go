// Package service wraps the long-running pieces of the election server with
// a uniform Start/Stop lifecycle.
package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/quantegrity/quantegrity/api"
	"github.com/quantegrity/quantegrity/authority"
)

// APIService represents a service that manages the HTTP API server.
type APIService struct {
	authority *authority.Authority
	api       *api.API
	mu        sync.Mutex
	cancel    context.CancelFunc
	host      string
	port      int
}

// NewAPI creates a new APIService instance around an election authority.
func NewAPI(auth *authority.Authority, host string, port int) *APIService {
	return &APIService{
		authority: auth,
		host:      host,
		port:      port,
	}
}

// Start begins the API server. It returns an error if the service
// is already running or if it fails to start.
func (as *APIService) Start(ctx context.Context) error {
	as.mu.Lock()
	defer as.mu.Unlock()

	if as.cancel != nil {
		return fmt.Errorf("service already running")
	}

	_, as.cancel = context.WithCancel(ctx)

	var err error
	as.api, err = api.New(&api.APIConfig{
		Host:      as.host,
		Port:      as.port,
		Authority: as.authority,
	})
	if err != nil {
		as.cancel = nil
		return fmt.Errorf("failed to start API server: %w", err)
	}

	return nil
}

// Stop halts the API server.
func (as *APIService) Stop() {
	as.mu.Lock()
	defer as.mu.Unlock()

	if as.cancel != nil {
		as.cancel()
		as.cancel = nil
	}
}

// HostPort returns the host and port of the API server.
func (as *APIService) HostPort() (string, int) {
	return as.host, as.port
}
