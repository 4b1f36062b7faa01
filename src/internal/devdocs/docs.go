// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

// Package devdocs is a client for a self-hosted [DevDocs] instance.
//
// Documentation indexes are large and rarely change, so they are kept in a
// size-bounded LRU [Cache] with a time-to-live. Page content is fetched on
// demand and reduced to plain text.
//
// [DevDocs]: https://github.com/freeCodeCamp/devdocs
package devdocs
