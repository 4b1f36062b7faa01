// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

// Package portstream forwards a local TCP port to a port inside a container.
//
// Each stream owns one listener. Every accepted connection resolves the
// upstream address afresh, since a restarted container may come back with a
// new IP, and is then copied in both directions until either side closes.
// Stopping a stream closes the listener and every connection it accepted.
package portstream
