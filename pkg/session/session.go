// Package session runs code inside an isolated container and brings back its
// output together with the memory profile collected next to the child.
// Container creation, image selection and network isolation belong to the
// container engine; this package only drives the narrow "execute a command
// inside an isolated environment" contract.
package session

import (
	"context"

	"github.com/crucible-sandbox/crucible/pkg/domain"
)

// Sandbox is one isolated execution environment's lifecycle. The gateway
// depends on this and does not care which engine backs it.
type Sandbox interface {
	// Open provisions the environment (image, container, language setup).
	Open(ctx context.Context) error
	// Setup installs the requested libraries.
	Setup(ctx context.Context, libraries []string) error
	// Run writes the code into the environment, executes it (under the
	// in-container profiler when profile is true) and returns the result.
	Run(ctx context.Context, code string, profile bool) (*domain.ExecutionResult, error)
	// Close tears the environment down.
	Close(ctx context.Context) error
}
