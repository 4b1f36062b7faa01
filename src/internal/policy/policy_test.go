// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/H0llyW00dzZ/mcp-dev-sandbox/src/internal/apperr"
	"github.com/H0llyW00dzZ/mcp-dev-sandbox/src/internal/registry"
)

func TestStrictExactMatchScenario(t *testing.T) {
	p := New(LevelStrict, []string{"python:3.11-slim"}, nil)

	err := p.Approve(registry.KindContainer, "python:3.11")
	require.ErrorIs(t, err, apperr.ErrPolicyViolation)
	assert.Equal(t, apperr.CodePolicyViolation, apperr.Code(err))

	assert.NoError(t, p.Approve(registry.KindContainer, "python:3.11-slim"))
}

func TestImageMatching(t *testing.T) {
	images := []string{"python:3.11-slim", "node:*", "golang:"}

	tests := []struct {
		name  string
		level Level
		image string
		ok    bool
	}{
		{"exact low", LevelLow, "python:3.11-slim", true},
		{"star prefix low", LevelLow, "node:20-alpine", true},
		{"bare prefix low", LevelLow, "golang:1.22", true},
		{"entry as prefix low", LevelLow, "python:3.11-slim-bookworm", true},
		{"no match low", LevelLow, "ruby:3.2", false},
		{"prefix rejected medium", LevelMedium, "node:20-alpine", false},
		{"exact medium", LevelMedium, "python:3.11-slim", true},
		{"prefix rejected high", LevelHigh, "golang:1.22", false},
		{"shorter rejected strict", LevelStrict, "python:3.11", false},
		{"pattern literal strict", LevelStrict, "node:*", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.level, images, nil).Approve(registry.KindContainer, tt.image)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, apperr.ErrPolicyViolation)
			}
		})
	}
}

func TestEmptyImage(t *testing.T) {
	err := New(LevelLow, []string{"*"}, nil).Approve(registry.KindContainer, " ")
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
}

func TestBrowserApproval(t *testing.T) {
	tests := []struct {
		name    string
		level   Level
		allowed []string
		engine  string
		want    error
	}{
		{"any at medium", LevelMedium, nil, "firefox", nil},
		{"case folded", LevelLow, nil, "Chromium", nil},
		{"unsupported", LevelLow, nil, "lynx", apperr.ErrInvalidInput},
		{"listed at high", LevelHigh, []string{"chromium"}, "chromium", nil},
		{"unlisted at strict", LevelStrict, []string{"chromium"}, "firefox", apperr.ErrPolicyViolation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.level, nil, tt.allowed).Approve(registry.KindBrowserInstance, tt.engine)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestPortApproval(t *testing.T) {
	assert.NoError(t, New(LevelMedium, nil, nil).Approve(registry.KindPortStream, "80"))
	assert.ErrorIs(t, New(LevelHigh, nil, nil).Approve(registry.KindPortStream, "80"), apperr.ErrPolicyViolation)
	assert.NoError(t, New(LevelStrict, nil, nil).Approve(registry.KindPortStream, "8080"))
	assert.ErrorIs(t, New(LevelLow, nil, nil).Approve(registry.KindPortStream, "70000"), apperr.ErrInvalidInput)
	assert.ErrorIs(t, New(LevelLow, nil, nil).Approve(registry.KindPortStream, "http"), apperr.ErrInvalidInput)
}

func TestURLAndGPU(t *testing.T) {
	strict := New(LevelStrict, nil, nil)
	assert.NoError(t, strict.ApproveURL("https://example.com"))
	assert.NoError(t, strict.Approve(registry.KindBrowserPage, ""))
	assert.ErrorIs(t, strict.ApproveURL("file:///etc/passwd"), apperr.ErrPolicyViolation)
	assert.ErrorIs(t, strict.ApproveGPU(), apperr.ErrPolicyViolation)

	high := New(LevelHigh, nil, nil)
	assert.NoError(t, high.ApproveURL("file:///tmp/index.html"))
	assert.NoError(t, high.ApproveGPU())
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"low", LevelLow},
		{"", LevelMedium},
		{"MEDIUM", LevelMedium},
		{" high ", LevelHigh},
		{"Strict", LevelStrict},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
		if tt.in != "" {
			assert.Equal(t, tt.want.String(), got.String())
		}
	}
	_, err := ParseLevel("paranoid")
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
}

func TestListsAreSortedAndDeduplicated(t *testing.T) {
	p := New(LevelMedium, []string{"b", "a", "b", " "}, []string{"firefox", "chromium"})
	assert.Equal(t, []string{"a", "b"}, p.Images())
	assert.Equal(t, []string{"chromium", "firefox"}, p.Browsers())
	assert.Equal(t, LevelMedium, p.Level())
}
