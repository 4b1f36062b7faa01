// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package mcpserver

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/H0llyW00dzZ/mcp-dev-sandbox/src/internal/apperr"
)

// requireString returns a non-blank string argument.
func requireString(request mcp.CallToolRequest, key string) (string, error) {
	v, err := request.RequireString(key)
	if err != nil {
		return "", apperr.InvalidInput("%s", err.Error())
	}
	if strings.TrimSpace(v) == "" {
		return "", apperr.InvalidInput("%s is required", key)
	}
	return v, nil
}

// requireInt returns a numeric argument as an int.
func requireInt(request mcp.CallToolRequest, key string) (int, error) {
	v, err := request.RequireInt(key)
	if err != nil {
		return 0, apperr.InvalidInput("%s", err.Error())
	}
	return v, nil
}

// optionalBool returns a pointer to a boolean argument, or nil when absent.
func optionalBool(request mcp.CallToolRequest, key string) *bool {
	raw, ok := request.GetArguments()[key]
	if !ok {
		return nil
	}
	switch v := raw.(type) {
	case bool:
		return &v
	case string:
		if b, err := strconv.ParseBool(v); err == nil {
			return &b
		}
	}
	return nil
}

// secondsArg converts a number of seconds into a duration. Absent or
// non-positive values yield zero so the sandbox default applies.
func secondsArg(request mcp.CallToolRequest, key string) time.Duration {
	n := request.GetFloat(key, 0)
	if n <= 0 {
		return 0
	}
	return time.Duration(n * float64(time.Second))
}

// stringMap reads an object argument whose values are scalars.
func stringMap(request mcp.CallToolRequest, key string) (map[string]string, error) {
	raw, ok := request.GetArguments()[key]
	if !ok || raw == nil {
		return nil, nil
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, apperr.InvalidInput("%s must be an object", key)
	}
	out := make(map[string]string, len(obj))
	for k, v := range obj {
		switch v := v.(type) {
		case string:
			out[k] = v
		case float64:
			out[k] = strconv.FormatFloat(v, 'f', -1, 64)
		case bool:
			out[k] = strconv.FormatBool(v)
		default:
			return nil, apperr.InvalidInput("%s.%s must be a string, number or boolean", key, k)
		}
	}
	return out, nil
}

// portMap reads an object mapping container ports to host ports. Keys may
// carry a protocol suffix such as "8080/tcp".
func portMap(request mcp.CallToolRequest, key string) (map[int]int, error) {
	raw, err := stringMap(request, key)
	if err != nil || raw == nil {
		return nil, err
	}
	out := make(map[int]int, len(raw))
	for k, v := range raw {
		containerPort, err := parsePort(strings.TrimSuffix(strings.TrimSuffix(k, "/tcp"), "/udp"))
		if err != nil {
			return nil, apperr.InvalidInput("%s: container port %q: %v", key, k, err)
		}
		hostPort, err := parsePort(v)
		if err != nil {
			return nil, apperr.InvalidInput("%s: host port %q: %v", key, v, err)
		}
		out[containerPort] = hostPort
	}
	return out, nil
}

func parsePort(s string) (int, error) {
	port, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	if port < 1 || port > 65535 {
		return 0, fmt.Errorf("out of range")
	}
	return port, nil
}
