// Package docker checks that a container runtime is reachable.
package docker

import (
	"context"
	"errors"
	"fmt"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/client"
)

// ErrUnavailable is returned when the daemon does not answer.
var ErrUnavailable = errors.New("container runtime unavailable")

// apiClient is the subset of the Docker API used here.
type apiClient interface {
	Ping(ctx context.Context) (types.Ping, error)
	ServerVersion(ctx context.Context) (types.Version, error)
}

// Info describes the reachable daemon.
type Info struct {
	Version    string
	APIVersion string
	OS         string
	Arch       string
}

// Runtime talks to the Docker daemon configured by the environment
// (DOCKER_HOST, DOCKER_CERT_PATH, ...).
type Runtime struct {
	client apiClient
}

// New creates a Runtime using environment configuration.
func New() (*Runtime, error) {
	c, err := client.NewClientWithOpts(
		client.FromEnv,
		client.WithAPIVersionNegotiation(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Docker client: %w", err)
	}
	return &Runtime{client: c}, nil
}

// Available pings the daemon.
func (r *Runtime) Available(ctx context.Context) error {
	if _, err := r.client.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return nil
}

// Info returns the daemon version details.
func (r *Runtime) Info(ctx context.Context) (Info, error) {
	v, err := r.client.ServerVersion(ctx)
	if err != nil {
		return Info{}, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return Info{Version: v.Version, APIVersion: v.APIVersion, OS: v.Os, Arch: v.Arch}, nil
}
