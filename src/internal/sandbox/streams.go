// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package sandbox

import (
	"context"
	"errors"
	"net"
	"strconv"

	"github.com/H0llyW00dzZ/mcp-dev-sandbox/src/internal/apperr"
	"github.com/H0llyW00dzZ/mcp-dev-sandbox/src/internal/engine"
	"github.com/H0llyW00dzZ/mcp-dev-sandbox/src/internal/portstream"
	"github.com/H0llyW00dzZ/mcp-dev-sandbox/src/internal/registry"
)

// Stream is a port stream with the registry entry that owns it.
type Stream struct {
	portstream.Info
	ResourceID  string `json:"resourceId"`
	ContainerID string `json:"containerId"`
}

func validPort(name string, port int) error {
	if port < 1 || port > 65535 {
		return apperr.InvalidInput("%s %d is out of range", name, port)
	}
	return nil
}

// StartPortStream forwards hostPort on the local interface to containerPort
// inside the container. hostPort 0 reuses containerPort.
func (s *Sandbox) StartPortStream(ctx context.Context, ref string, containerPort, hostPort int) (Stream, error) {
	eng, err := s.needEngine()
	if err != nil {
		return Stream{}, err
	}
	if err := validPort("container_port", containerPort); err != nil {
		return Stream{}, err
	}
	if hostPort == 0 {
		hostPort = containerPort
	}
	if err := s.policy.Approve(registry.KindPortStream, strconv.Itoa(hostPort)); err != nil {
		return Stream{}, err
	}
	parent, engineID, err := s.runningContainer(ref)
	if err != nil {
		return Stream{}, err
	}

	key := portstream.Key(engine.ShortID(engineID), containerPort)
	res, err := s.reg.Create(registry.CreateRequest{
		Kind:     registry.KindPortStream,
		Label:    key,
		Target:   strconv.Itoa(hostPort),
		ParentID: parent.ID,
		Meta:     map[string]string{MetaPort: strconv.Itoa(containerPort)},
	})
	if err != nil {
		return Stream{}, err
	}

	resolve := func(ctx context.Context) (string, error) {
		info, err := eng.Inspect(ctx, engineID)
		if err != nil {
			return "", err
		}
		if info.IPAddress == "" {
			return "", apperr.Unavailable("container address", errors.New("container has no IP address"))
		}
		return net.JoinHostPort(info.IPAddress, strconv.Itoa(containerPort)), nil
	}
	info, err := s.stream.Start(s.root, key, containerPort, hostPort, resolve)
	if err != nil {
		return Stream{}, s.abandon(ctx, res, err)
	}
	if _, err := s.reg.Annotate(res.ID, map[string]string{MetaListen: info.ListenAddr}); err != nil {
		s.stopOrphanStream(res)
		return Stream{}, vanished(res, err)
	}
	running, err := s.reg.Transition(ctx, res.ID, registry.StateRunning)
	if err != nil {
		s.stopOrphanStream(res)
		return Stream{}, vanished(res, err)
	}
	res = running
	s.logger.Info("port stream running", append(resourceAttrs(res), "listen", info.ListenAddr)...)
	return Stream{Info: info, ResourceID: res.ID, ContainerID: parent.ID}, nil
}

// releaseStream is the port stream cleanup strategy.
func (s *Sandbox) releaseStream(_ context.Context, res registry.Resource) error {
	err := s.stream.Stop(res.Label)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil
	}
	return err
}

// stopOrphanStream closes the listener of a reservation that vanished while
// it was starting.
func (s *Sandbox) stopOrphanStream(res registry.Resource) {
	if err := s.releaseStream(s.root, res); err != nil {
		s.logger.Warn("port stream not stopped", append(resourceAttrs(res), "error", err)...)
	}
}

// StopPortStream stops the stream for containerPort on the referenced container.
func (s *Sandbox) StopPortStream(ctx context.Context, ref string, containerPort int) (registry.Resource, error) {
	parent, err := s.ResolveContainer(ref)
	if err != nil {
		return registry.Resource{}, err
	}
	key := portstream.Key(parent.Meta[MetaShortID], containerPort)
	for _, child := range s.reg.Children(parent.ID) {
		if child.Kind == registry.KindPortStream && child.Label == key {
			err := s.reg.Delete(ctx, child.ID)
			child.State = registry.StateDeleted
			return child, err
		}
	}
	return registry.Resource{}, apperr.NotFound("port stream %s", key)
}

// Streams lists active port streams in key order.
func (s *Sandbox) Streams() []Stream {
	owners := make(map[string]registry.Resource)
	for _, res := range s.reg.List(registry.KindPortStream) {
		owners[res.Label] = res
	}
	infos := s.stream.List()
	out := make([]Stream, 0, len(infos))
	for _, info := range infos {
		st := Stream{Info: info}
		if res, ok := owners[info.Key]; ok {
			st.ResourceID = res.ID
			st.ContainerID = res.ParentID
		}
		out = append(out, st)
	}
	return out
}
