package service

import (
	"context"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	"go.vocdoni.io/dvote/db/metadb"
	"go.vocdoni.io/dvote/log"

	"github.com/quantegrity/quantegrity/authority"
)

func TestMain(m *testing.M) {
	log.Init("error", "stdout", nil)
	m.Run()
}

func TestAPIService(t *testing.T) {
	c := qt.New(t)

	auth, err := authority.New(authority.Options{DB: metadb.NewTest(t)})
	c.Assert(err, qt.IsNil)

	// Port 0 lets the OS choose an available port
	apiService := NewAPI(auth, "127.0.0.1", 0)

	ctx := context.Background()
	c.Assert(apiService.Start(ctx), qt.IsNil)
	defer apiService.Stop()

	// Give the service time to start
	time.Sleep(time.Second)

	// Starting an already running service fails.
	err = apiService.Start(ctx)
	c.Assert(err, qt.ErrorMatches, "service already running")

	host, port := apiService.HostPort()
	c.Assert(host, qt.Equals, "127.0.0.1")
	c.Assert(port, qt.Equals, 0)
}
