// Package engine wraps the container engine's API client for the control
// operations the orchestrator needs out-of-band: liveness, force-removal by
// container name, and listing the containers we own. Launching runs goes
// through the engine CLI subprocess (see internal/launcher); this client is
// the independent kill path and the janitor's view of the engine.
package engine

import (
	"context"
	"fmt"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/client"
)

const labelPrefix = "runbox."

// ManagedLabel marks containers owned by this service.
const ManagedLabel = labelPrefix + "managed"

// RunIDLabel carries the run identifier on a container.
const RunIDLabel = labelPrefix + "run_id"

type Client struct {
	docker *client.Client
}

func New() (*Client, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("engine client: %w", err)
	}
	return &Client{docker: cli}, nil
}

func (c *Client) Close() error {
	return c.docker.Close()
}

// Ping verifies the engine daemon is reachable.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.docker.Ping(ctx)
	return err
}

// RemoveByName force-removes a container by its generated name. A missing
// container is success: the kill path must be idempotent with process exit.
func (c *Client) RemoveByName(ctx context.Context, name string) error {
	err := c.docker.ContainerRemove(ctx, name, container.RemoveOptions{Force: true})
	if err != nil && !client.IsErrNotFound(err) {
		return fmt.Errorf("container remove %s: %w", name, err)
	}
	return nil
}

// ContainerInfo describes one managed container known to the engine.
type ContainerInfo struct {
	Name  string
	RunID string
}

// ListManaged returns every container carrying our managed label,
// including stopped ones.
func (c *Client) ListManaged(ctx context.Context) ([]ContainerInfo, error) {
	f := filters.NewArgs()
	f.Add("label", ManagedLabel+"=true")

	containers, err := c.docker.ContainerList(ctx, container.ListOptions{
		All:     true,
		Filters: f,
	})
	if err != nil {
		return nil, fmt.Errorf("container list: %w", err)
	}

	var result []ContainerInfo
	for _, ctr := range containers {
		name := ""
		if len(ctr.Names) > 0 {
			name = trimNamePrefix(ctr.Names[0])
		}
		result = append(result, ContainerInfo{
			Name:  name,
			RunID: ctr.Labels[RunIDLabel],
		})
	}
	return result, nil
}

// IsRunning reports whether a container with the given name is currently
// running. Not found means not running.
func (c *Client) IsRunning(ctx context.Context, name string) (bool, error) {
	info, err := c.docker.ContainerInspect(ctx, name)
	if err != nil {
		if client.IsErrNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return info.State.Running, nil
}

// trimNamePrefix strips the leading slash the engine API puts on names.
func trimNamePrefix(name string) string {
	if len(name) > 0 && name[0] == '/' {
		return name[1:]
	}
	return name
}
