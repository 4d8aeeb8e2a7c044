package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	flag "github.com/spf13/pflag"
	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/metadb"
	"go.vocdoni.io/dvote/log"

	"github.com/quantegrity/quantegrity/authority"
	"github.com/quantegrity/quantegrity/service"
	"github.com/quantegrity/quantegrity/types"
)

func main() {
	host := flag.String("host", "0.0.0.0", "API host to bind")
	port := flag.Int("port", 9090, "API port to bind")
	dataDir := flag.String("dataDir", filepath.Join(os.TempDir(), "quantegrity"), "data directory")
	logLevel := flag.String("logLevel", "info", "log level (debug, info, warn, error)")
	ballots := flag.Int("ballots", 0, "pre-generate a ballot pool of this size and open the election")
	candidates := flag.StringSlice("candidates", nil, "candidate list as id:name pairs, e.g. alice:Alice")
	flag.Parse()
	log.Init(*logLevel, "stdout", nil)

	database, err := metadb.New(db.TypePebble, *dataDir)
	if err != nil {
		log.Fatal(err)
	}

	auth, err := authority.New(authority.Options{DB: database})
	if err != nil {
		log.Fatal(err)
	}

	// With --ballots and --candidates set, configure and open the election
	// right away; otherwise it is driven over the API.
	if *ballots > 0 {
		list := make([]types.Candidate, 0, len(*candidates))
		for _, c := range *candidates {
			id, name, _ := strings.Cut(c, ":")
			list = append(list, types.Candidate{ID: id, Name: name})
		}
		if err := auth.Setup(list, *ballots); err != nil {
			log.Fatal(err)
		}
		if err := auth.OpenElection(); err != nil {
			log.Fatal(err)
		}
	}

	apiService := service.NewAPI(auth, *host, *port)
	if err := apiService.Start(context.Background()); err != nil {
		log.Fatal(err)
	}
	log.Infow("election server running", "host", *host, "port", *port, "phase", auth.Phase().String())

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	apiService.Stop()
	log.Infow("shutting down")
}
