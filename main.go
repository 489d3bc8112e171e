// Command htsget-server serves genomic data over the htsget protocol:
// a client requests a record by ID, receives a JSON ticket naming the
// byte ranges to fetch, and performs the data fetches itself.
package main

import (
	"fmt"
	"os"

	"github.com/jdidion/htsget-server/internal/htsconfig"
	log "github.com/jdidion/htsget-server/internal/htslog"
	"github.com/jdidion/htsget-server/internal/htsserver"
	"github.com/jdidion/htsget-server/internal/htsstore"
)

func main() {
	config, err := htsconfig.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	log.SetLevel(config.LogLevel)

	var store htsstore.DataStore
	if config.S3Bucket != "" {
		log.Info("serving records from s3://%s", config.S3Bucket)
		store = htsstore.NewS3DataStore(config.S3Bucket, nil)
	} else {
		log.Info("serving records from %s", config.RootDirectory)
		store = htsstore.NewLocalDataStore(config.RootDirectory, config.TicketBaseURL())
	}

	server := htsserver.New(config, store)
	os.Exit(htsserver.RunInterruptible(server, config.ErrorOnInterrupt))
}
