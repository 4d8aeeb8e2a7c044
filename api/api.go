// Package api exposes the election authority over HTTP. The surface splits
// in two: authority operations (setup, lifecycle, registration, issuance,
// casting) and the public bulletin board, which anyone may read to verify
// the election.
package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.vocdoni.io/dvote/log"

	"github.com/quantegrity/quantegrity/authority"
)

// APIConfig type represents the configuration for the API HTTP server.
type APIConfig struct {
	Host      string
	Port      int
	Authority *authority.Authority
}

// API type represents the API HTTP server around a single election authority.
type API struct {
	router    *chi.Mux
	authority *authority.Authority
}

// New creates a new API instance with the given configuration and starts the
// HTTP server.
func New(conf *APIConfig) (*API, error) {
	if conf == nil {
		return nil, fmt.Errorf("missing API configuration")
	}
	if conf.Authority == nil {
		return nil, fmt.Errorf("missing election authority instance")
	}
	a := &API{
		authority: conf.Authority,
	}

	// Initialize router
	a.initRouter()
	go func() {
		log.Infow("Starting API server", "host", conf.Host, "port", conf.Port)
		if err := http.ListenAndServe(fmt.Sprintf("%s:%d", conf.Host, conf.Port), a.router); err != nil {
			log.Fatalf("failed to start the API server: %v", err)
		}
	}()
	return a, nil
}

// Router returns the chi router for testing purposes
func (a *API) Router() *chi.Mux {
	return a.router
}

// NewRouterFor returns a router wired to the authority without starting an
// HTTP server. Used by tests and by embedders providing their own server.
func NewRouterFor(auth *authority.Authority) *chi.Mux {
	a := &API{authority: auth}
	a.initRouter()
	return a.router
}

// registerHandlers registers all the API handlers.
func (a *API) registerHandlers() {
	log.Infow("register handler", "endpoint", PingEndpoint, "method", "GET")
	a.router.Get(PingEndpoint, func(w http.ResponseWriter, r *http.Request) {
		httpWriteOK(w)
	})
	log.Infow("register handler", "endpoint", ElectionEndpoint, "method", "GET")
	a.router.Get(ElectionEndpoint, a.electionInfo)
	log.Infow("register handler", "endpoint", ElectionSetupEndpoint, "method", "POST")
	a.router.Post(ElectionSetupEndpoint, a.electionSetup)
	log.Infow("register handler", "endpoint", ElectionOpenEndpoint, "method", "POST")
	a.router.Post(ElectionOpenEndpoint, a.electionOpen)
	log.Infow("register handler", "endpoint", ElectionCloseEndpoint, "method", "POST")
	a.router.Post(ElectionCloseEndpoint, a.electionClose)
	log.Infow("register handler", "endpoint", ElectionSealEndpoint, "method", "POST")
	a.router.Post(ElectionSealEndpoint, a.electionSeal)
	log.Infow("register handler", "endpoint", ElectionTallyEndpoint, "method", "GET")
	a.router.Get(ElectionTallyEndpoint, a.electionTally)
	log.Infow("register handler", "endpoint", VotersEndpoint, "method", "POST")
	a.router.Post(VotersEndpoint, a.registerVoter)
	log.Infow("register handler", "endpoint", VoterEndpoint, "method", "GET")
	a.router.Get(VoterEndpoint, a.voterStatus)
	log.Infow("register handler", "endpoint", VoterDeviceEndpoint, "method", "POST")
	a.router.Post(VoterDeviceEndpoint, a.deviceChallenge)
	log.Infow("register handler", "endpoint", VoterDeviceVerifyEndpoint, "method", "POST")
	a.router.Post(VoterDeviceVerifyEndpoint, a.deviceVerify)
	log.Infow("register handler", "endpoint", VoterAuthEndpoint, "method", "POST")
	a.router.Post(VoterAuthEndpoint, a.authenticateVoter)
	log.Infow("register handler", "endpoint", VoterBallotEndpoint, "method", "POST")
	a.router.Post(VoterBallotEndpoint, a.issueBallot)
	log.Infow("register handler", "endpoint", VotesEndpoint, "method", "POST")
	a.router.Post(VotesEndpoint, a.castVote)
	log.Infow("register handler", "endpoint", BallotAuditEndpoint, "method", "POST")
	a.router.Post(BallotAuditEndpoint, a.auditBallot)
	log.Infow("register handler", "endpoint", BoardEndpoint, "method", "GET")
	a.router.Get(BoardEndpoint, a.boardList)
	log.Infow("register handler", "endpoint", BoardEntryEndpoint, "method", "GET")
	a.router.Get(BoardEntryEndpoint, a.boardEntry)
}

// initRouter creates the router with all the routes and middleware.
func (a *API) initRouter() {
	// Create the router with a basic middleware stack
	a.router = chi.NewRouter()
	a.router.Use(cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		AllowCredentials: true,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	}).Handler)
	a.router.Use(middleware.Logger)
	a.router.Use(middleware.Recoverer)
	a.router.Use(middleware.Throttle(100))
	a.router.Use(middleware.ThrottleBacklog(5000, 40000, 60*time.Second))
	a.router.Use(middleware.Timeout(45 * time.Second))

	// Register the API handlers
	a.registerHandlers()
}
