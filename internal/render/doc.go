// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package render turns conversation items into styled display lines.
//
// Message content is parsed with the markup package and written into a
// text.Styled, with mentions resolved against the entity cache. Users that
// cannot be resolved yet are rendered as placeholders and their ids are
// collected so the caller can fetch them and redraw.
//
// # Key Types
//
//   - Renderer: renders items; owns the display options
//   - Line: prefix, body, display tags and timestamp of one item
//   - IDSet: ordered set of unresolved user ids
//   - Options: formatting characters, unknown-id policy, nick affixes, code theme
//
// # Usage
//
//	r := render.New(cache, render.DefaultOptions())
//	unknown := render.NewIDSet()
//	lines := r.RenderAll(conv.Items(), unknown)
//	if unknown.Len() > 0 {
//	    // request the members, then redraw when they arrive
//	}
package render
