package main

import (
	"log"
	"net/http"
	"os"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"

	"github.com/flowpilot/flowpilot/internal/stub"
	"github.com/flowpilot/flowpilot/internal/utils"
)

var CLI struct {
	Addr string `long:"addr" env:"ADDR" description:"Address to bind to" default:"localhost:8000"`

	Tick time.Duration `long:"tick" env:"TICK" description:"How often simulated jobs advance" default:"250ms"`

	Cert string `long:"cert" env:"CERT" description:"Path to TLS certificate; plain HTTP when unset"`

	Key string `long:"key" env:"KEY" description:"Path to TLS key; plain HTTP when unset"`

	Debug bool `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

func main() {
	// This main runs the in-memory stub runner over HTTP. It speaks the
	// runner's wire contract with scripted job lifecycles, so the client
	// and CLI can be exercised without a real backend.
	_ = godotenv.Load()

	var parser = flags.NewParser(&CLI, flags.Default)
	if _, err := parser.Parse(); err != nil {
		switch flagsErr := err.(type) {
		case flags.ErrorType:
			if flagsErr == flags.ErrHelp {
				os.Exit(0)
			}
			os.Exit(1)
		default:
			os.Exit(1)
		}
	}

	tlsCfg, err := utils.TLSConfig("", CLI.Cert, CLI.Key)
	if err != nil {
		log.Fatalln(err)
	}

	srv := &http.Server{
		Addr:      CLI.Addr,
		Handler:   stub.New(CLI.Tick).Router(CLI.Debug),
		TLSConfig: tlsCfg,
	}

	log.Println("stub runner listening on", CLI.Addr)
	if tlsCfg != nil {
		err = srv.ListenAndServeTLS("", "")
	} else {
		err = srv.ListenAndServe()
	}
	if err != nil {
		log.Fatalln(err)
	}
}
