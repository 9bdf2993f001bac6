package cmd

import (
	"context"
)

// HubService defines what cmd.run drives: something that starts the hub's
// control loop and stops every worker on the way out.
type HubService interface {
	Start(ctx context.Context) error
	Stop()
}
