// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package mcpserver

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/H0llyW00dzZ/mcp-dev-sandbox/src/version"
)

// offlineConfig disables every collaborator that needs a daemon or network.
func offlineConfig(t *testing.T) *Config {
	t.Helper()
	config := defaultConfig()
	config.Workspace.Dir = t.TempDir()
	config.Features.Docker = false
	config.Features.Browser = false
	config.Features.Docs = false
	config.Features.AutoCleanup = false
	config.Logging.Level = "error"
	return config
}

func TestGetVersion(t *testing.T) {
	assert.Equal(t, version.Version, GetVersion())
}

func TestServeEndOfInput(t *testing.T) {
	var out bytes.Buffer
	err := serve(context.Background(), offlineConfig(t), strings.NewReader(""), &out)
	assert.NoError(t, err)
}

func TestServeCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	reader, writer := io.Pipe()
	t.Cleanup(func() { _ = writer.Close() })

	errCh := make(chan error, 1)
	go func() { errCh <- serve(ctx, offlineConfig(t), reader, io.Discard) }()

	cancel()
	select {
	case err := <-errCh:
		assert.NoError(t, err, "cancellation is a normal exit")
	case <-time.After(10 * time.Second):
		t.Fatal("serve did not return after cancellation")
	}
}

func TestServeRejectsBadLogLevel(t *testing.T) {
	config := offlineConfig(t)
	config.Logging.Level = "chatty"
	err := serve(context.Background(), config, strings.NewReader(""), io.Discard)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create logger")
}

func TestBuildServerWithOfflineSandbox(t *testing.T) {
	config := offlineConfig(t)
	sb, err := newSandbox(context.Background(), config, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sb.Shutdown(context.Background()) })

	s, err := buildServer(config, sb)
	require.NoError(t, err)
	assert.NotNil(t, s)
}
