package scheduler

import "context"

// Scheduler drives the simulated clock of a cluster.
type Scheduler interface {
	// Start begins the tick loop. Blocks until ctx is cancelled or Stop is called.
	Start(ctx context.Context) error

	// Stop gracefully shuts down the loop.
	Stop() error

	// Tick advances the simulation by one time step.
	Tick(ctx context.Context) error
}
