package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/parking-cli/internal/config"
	"github.com/sells-group/parking-cli/internal/store"
)

func initStore(ctx context.Context, c *config.Config) (store.Store, error) {
	if c.Store.Disabled() {
		return nil, eris.New("store: archive disabled, set store.driver to sqlite or postgres")
	}
	return store.Open(ctx, store.Config{
		Driver:      c.Store.Driver,
		DatabaseURL: c.Store.DatabaseURL,
	})
}

// initOptionalStore is initStore for commands that work without an archive.
// A disabled store yields nil.
func initOptionalStore(ctx context.Context, c *config.Config) (store.Store, error) {
	if c.Store.Disabled() {
		return nil, nil
	}
	return initStore(ctx, c)
}
