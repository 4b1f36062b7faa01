// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

// Package browser drives web browsers through two backends:
//
//   - CDP ([Rod]): launches a local Chromium and talks the DevTools
//     protocol. A [Browser] hands out any number of [Page] values.
//   - WebDriver ([Selenium]): opens a session on a Selenium endpoint.
//     A [Driver] is a browser with exactly one implicit page.
//
// Handles are owned by a [Pool], keyed by the registry id that tracks them,
// so a registry cleanup callback can release a handle by id alone.
package browser
