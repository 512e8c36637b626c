package middleware

import "github.com/aretw0/simgym/pkg/ports"

// Middleware allows wrapping an ExperienceStore to add behavior.
type Middleware func(ports.ExperienceStore) ports.ExperienceStore

// Chain applies middlewares so that the first one is the outermost.
func Chain(store ports.ExperienceStore, mws ...Middleware) ports.ExperienceStore {
	for i := len(mws) - 1; i >= 0; i-- {
		store = mws[i](store)
	}
	return store
}
