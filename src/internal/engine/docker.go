// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package engine

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"maps"
	"path"
	"strconv"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/client"
	"github.com/docker/docker/errdefs"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/docker/go-connections/nat"

	"github.com/H0llyW00dzZ/mcp-dev-sandbox/src/internal/apperr"
	"github.com/H0llyW00dzZ/mcp-dev-sandbox/src/internal/helper/gc"
)

// Docker implements [Engine] against a Docker daemon.
type Docker struct {
	cli *client.Client
}

// NewDocker connects to host, or to the daemon named by DOCKER_HOST and
// related environment variables when host is empty. No request is made
// until the first call.
func NewDocker(host string, opts ...client.Opt) (*Docker, error) {
	base := []client.Opt{client.FromEnv, client.WithAPIVersionNegotiation()}
	if host != "" {
		base = append(base, client.WithHost(host))
	}
	cli, err := client.NewClientWithOpts(append(base, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}
	return &Docker{cli: cli}, nil
}

// classify maps an engine error onto the apperr taxonomy.
func classify(op, id string, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errdefs.IsNotFound(err):
		return fmt.Errorf("%s %s: %w: %w", op, id, apperr.ErrNotFound, err)
	case client.IsErrConnectionFailed(err), errdefs.IsUnavailable(err):
		return apperr.Unavailable("docker "+op, err)
	case errdefs.IsConflict(err), errdefs.IsInvalidParameter(err):
		return fmt.Errorf("%s %s: %w: %w", op, id, apperr.ErrInvalidInput, err)
	default:
		return fmt.Errorf("docker %s %s: %w", op, id, err)
	}
}

// Ping checks that the daemon answers.
func (d *Docker) Ping(ctx context.Context) error {
	_, err := d.cli.Ping(ctx)
	return classify("ping", "", err)
}

// Create creates (but does not start) a container, pulling the image when it
// is missing locally.
func (d *Docker) Create(ctx context.Context, spec Spec) (string, error) {
	cfg, hostCfg, err := buildConfig(spec)
	if err != nil {
		return "", err
	}
	var netCfg *network.NetworkingConfig
	if spec.Network != "" {
		netCfg = &network.NetworkingConfig{
			EndpointsConfig: map[string]*network.EndpointSettings{spec.Network: {}},
		}
	}

	resp, err := d.cli.ContainerCreate(ctx, cfg, hostCfg, netCfg, nil, spec.Name)
	if errdefs.IsNotFound(err) {
		if perr := d.pull(ctx, spec.Image); perr != nil {
			return "", perr
		}
		resp, err = d.cli.ContainerCreate(ctx, cfg, hostCfg, netCfg, nil, spec.Name)
	}
	if err != nil {
		return "", classify("create", spec.Image, err)
	}
	return resp.ID, nil
}

func (d *Docker) pull(ctx context.Context, ref string) error {
	rc, err := d.cli.ImagePull(ctx, ref, image.PullOptions{})
	if err != nil {
		return classify("pull", ref, err)
	}
	defer rc.Close()
	// Progress messages must be drained for the pull to complete.
	if _, err := io.Copy(io.Discard, rc); err != nil {
		return classify("pull", ref, err)
	}
	return nil
}

func buildConfig(spec Spec) (*container.Config, *container.HostConfig, error) {
	cmd := spec.Cmd
	if len(cmd) == 0 {
		cmd = DefaultCommand(spec.Image)
	}
	env := make([]string, 0, len(spec.Env))
	for k, v := range spec.Env {
		env = append(env, k+"="+v)
	}

	labels := maps.Clone(spec.Labels)
	if labels == nil {
		labels = make(map[string]string, 1)
	}
	labels[ManagedLabel] = "true"

	cfg := &container.Config{
		Image:      spec.Image,
		Cmd:        cmd,
		Env:        env,
		Tty:        true,
		OpenStdin:  true,
		WorkingDir: spec.WorkingDir,
		Labels:     labels,
	}
	hostCfg := &container.HostConfig{Binds: spec.Binds}

	if len(spec.Ports) > 0 {
		cfg.ExposedPorts = nat.PortSet{}
		hostCfg.PortBindings = nat.PortMap{}
		for cport, hport := range spec.Ports {
			p, err := nat.NewPort("tcp", strconv.Itoa(cport))
			if err != nil {
				return nil, nil, apperr.InvalidInput("container port %d: %v", cport, err)
			}
			cfg.ExposedPorts[p] = struct{}{}
			hostCfg.PortBindings[p] = []nat.PortBinding{{HostIP: "0.0.0.0", HostPort: strconv.Itoa(hport)}}
		}
	}
	if spec.GPU {
		hostCfg.DeviceRequests = []container.DeviceRequest{{
			Count:        -1,
			Capabilities: [][]string{{"gpu"}},
		}}
	}
	if spec.Network != "" {
		hostCfg.NetworkMode = container.NetworkMode(spec.Network)
	}
	return cfg, hostCfg, nil
}

// Start starts a created or stopped container.
func (d *Docker) Start(ctx context.Context, id string) error {
	return classify("start", id, d.cli.ContainerStart(ctx, id, container.StartOptions{}))
}

func stopOptions(timeout time.Duration) container.StopOptions {
	if timeout <= 0 {
		return container.StopOptions{}
	}
	secs := int(timeout / time.Second)
	return container.StopOptions{Timeout: &secs}
}

// Stop stops a running container, killing it after timeout.
func (d *Docker) Stop(ctx context.Context, id string, timeout time.Duration) error {
	return classify("stop", id, d.cli.ContainerStop(ctx, id, stopOptions(timeout)))
}

// Restart restarts a container.
func (d *Docker) Restart(ctx context.Context, id string, timeout time.Duration) error {
	return classify("restart", id, d.cli.ContainerRestart(ctx, id, stopOptions(timeout)))
}

// Remove force-removes a container. A container that is already gone is not an error.
func (d *Docker) Remove(ctx context.Context, id string) error {
	err := d.cli.ContainerRemove(ctx, id, container.RemoveOptions{Force: true, RemoveVolumes: true})
	if errdefs.IsNotFound(err) {
		return nil
	}
	return classify("remove", id, err)
}

// Inspect returns the live status of a container.
func (d *Docker) Inspect(ctx context.Context, id string) (Info, error) {
	resp, err := d.cli.ContainerInspect(ctx, id)
	if err != nil {
		return Info{}, classify("inspect", id, err)
	}

	info := Info{ID: resp.ID, Name: trimSlash(resp.Name)}
	if resp.Config != nil {
		info.Image = resp.Config.Image
	}
	if resp.State != nil {
		info.Status = resp.State.Status
		info.Running = resp.State.Running
		if t, err := time.Parse(time.RFC3339Nano, resp.State.StartedAt); err == nil && !t.IsZero() && t.Year() > 1 {
			info.StartedAt = t
		}
	}
	if ns := resp.NetworkSettings; ns != nil {
		info.IPAddress = ns.IPAddress
		if info.IPAddress == "" {
			for _, ep := range ns.Networks {
				if ep != nil && ep.IPAddress != "" {
					info.IPAddress = ep.IPAddress
					break
				}
			}
		}
	}
	return info, nil
}

func trimSlash(name string) string {
	if len(name) > 0 && name[0] == '/' {
		return name[1:]
	}
	return name
}

// Exec runs cmd in the container and returns its exit code with stdout and
// stderr interleaved. Cancelling ctx abandons the attached stream; the
// process inside the container is not killed.
func (d *Docker) Exec(ctx context.Context, id string, cmd []string) (ExecResult, error) {
	created, err := d.cli.ContainerExecCreate(ctx, id, container.ExecOptions{
		Cmd:          cmd,
		AttachStdout: true,
		AttachStderr: true,
	})
	if err != nil {
		return ExecResult{}, classify("exec", id, err)
	}

	attach, err := d.cli.ContainerExecAttach(ctx, created.ID, container.ExecAttachOptions{})
	if err != nil {
		return ExecResult{}, classify("exec attach", id, err)
	}
	defer attach.Close()

	buf := gc.Default.Get()
	defer func() {
		buf.Reset()
		gc.Default.Put(buf)
	}()

	done := make(chan error, 1)
	go func() {
		_, err := stdcopy.StdCopy(buf, buf, attach.Reader)
		done <- err
	}()

	select {
	case <-ctx.Done():
		attach.Close()
		<-done
		return ExecResult{Output: buf.String()}, fmt.Errorf("exec in %s: %w", ShortID(id), ctx.Err())
	case err := <-done:
		if err != nil {
			return ExecResult{}, fmt.Errorf("read exec output: %w", err)
		}
	}

	inspect, err := d.cli.ContainerExecInspect(ctx, created.ID)
	if err != nil {
		return ExecResult{}, classify("exec inspect", id, err)
	}
	return ExecResult{ExitCode: inspect.ExitCode, Output: buf.String()}, nil
}

// Logs returns the last tail lines of combined output, with timestamps.
// Containers started with a TTY produce a raw stream; others are demultiplexed.
func (d *Docker) Logs(ctx context.Context, id string, tail int) (string, error) {
	tailOpt := "all"
	if tail > 0 {
		tailOpt = strconv.Itoa(tail)
	}
	rc, err := d.cli.ContainerLogs(ctx, id, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Timestamps: true,
		Tail:       tailOpt,
	})
	if err != nil {
		return "", classify("logs", id, err)
	}
	defer rc.Close()

	raw, err := gc.ReadAll(rc, 0)
	if err != nil {
		return "", fmt.Errorf("read logs: %w", err)
	}
	return demux(raw), nil
}

// demux strips stdcopy frame headers when present.
func demux(raw []byte) string {
	if len(raw) < 8 || raw[0] > 2 || raw[1] != 0 || raw[2] != 0 || raw[3] != 0 {
		return string(raw)
	}
	out, err := gc.Capture(func(w io.Writer) error {
		_, err := stdcopy.StdCopy(w, w, bytes.NewReader(raw))
		return err
	})
	if err != nil {
		return string(raw)
	}
	return out
}

// CopyTo writes content to the absolute path p inside the container.
// The parent directory must exist.
func (d *Docker) CopyTo(ctx context.Context, id, p string, content []byte) error {
	dir, name := path.Split(path.Clean(p))
	if name == "" || name == "/" {
		return apperr.InvalidInput("invalid file path %q", p)
	}
	if dir == "" {
		dir = "/"
	}
	archive, err := tarFile(name, content, time.Now())
	if err != nil {
		return err
	}
	err = d.cli.CopyToContainer(ctx, id, dir, bytes.NewReader(archive), container.CopyToContainerOptions{})
	return classify("copy to", id, err)
}

// CopyFrom reads the regular file at p inside the container.
func (d *Docker) CopyFrom(ctx context.Context, id, p string, limit int64) ([]byte, error) {
	rc, _, err := d.cli.CopyFromContainer(ctx, id, p)
	if err != nil {
		return nil, classify("copy from", id, err)
	}
	defer rc.Close()
	return firstFile(rc, limit)
}

// Close releases the client's idle connections.
func (d *Docker) Close() error { return d.cli.Close() }

var _ Engine = (*Docker)(nil)
