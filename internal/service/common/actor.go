//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"fmt"
	"os"
	"os/user"

	api "github.com/oshokin/home-alarm/internal/api/grpc/security"
)

// DetectActor gathers host and user information for audit trail.
// Returns the transport type because callers pass it directly to the client.
func DetectActor() (*api.Actor, error) {
	hostname, err := os.Hostname()
	if err != nil {
		return nil, fmt.Errorf("hostname: %w", err)
	}

	currentUser, err := user.Current()
	if err != nil {
		return nil, fmt.Errorf("current user: %w", err)
	}

	return &api.Actor{
		Hostname: hostname,
		Username: currentUser.Username,
	}, nil
}
