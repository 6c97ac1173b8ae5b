package main

import (
	"github.com/flowpilot/flowpilot/internal/utils"
	"github.com/flowpilot/flowpilot/pkg/api"
	"github.com/flowpilot/flowpilot/pkg/store"
)

type optsGeneral struct {
	Addr string `long:"addr" env:"RUNNER_ADDR" default:"http://localhost:8000" description:"Runner address"`

	StateDir string `long:"state-dir" env:"STATE_DIR" description:"Directory session state is persisted under"`

	StoreURL string `long:"store-url" env:"STORE_URL" description:"Snapshot store connection string (redis:// or postgres://); file store when empty"`

	CACert string `long:"cacert" env:"CACERT" description:"Path to CA certificate to trust for the runner connection"`

	Debug bool `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

// session builds the api facade from the general options: the snapshot
// store backend, the TLS trust and the runner connection.
func (c *optsGeneral) session() (*api.Session, error) {
	kv, err := c.store()
	if err != nil {
		return nil, err
	}

	tlsCfg, err := utils.TLSConfig(c.CACert, "", "")
	if err != nil {
		return nil, err
	}

	return api.New(c.Addr, kv, &api.Options{TLSConfig: tlsCfg})
}

func (c *optsGeneral) store() (store.Store, error) {
	opts := &store.Options{URL: c.StoreURL, Dir: c.StateDir}
	switch {
	case len(c.StoreURL) >= 8 && c.StoreURL[:8] == "redis://":
		return store.NewRedis(opts)
	case len(c.StoreURL) >= 11 && c.StoreURL[:11] == "postgres://":
		return store.NewPostgres(opts)
	default:
		return store.NewFile(opts)
	}
}
