// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package replay runs the message pipeline offline from a YAML script.
//
// A script seeds the entity cache with a READY payload, supplies canned
// history and pins for the REST side, and lists steps: gateway events,
// open/close/send commands and clock advances. The dispatcher is driven
// synchronously; after every step the outbound tasks are allowed to finish
// and their results are applied before the next step runs.
//
// # Key Types
//
//   - Script, Step: the YAML format
//   - Result: the final sink view of every open conversation
//
// # Usage
//
//	s, err := replay.Load("session.yaml")
//	res, err := replay.Run(ctx, s, replay.Options{Config: dispatch.DefaultConfig()})
//	replay.Write(os.Stdout, res, "15:04")
package replay
