// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package gateway is the network side of the client.
//
// Client holds the websocket session: it answers hello with identify, keeps
// the heartbeat going, decodes dispatch frames into discord events, folds
// them into the entity cache and hands them to the dispatcher in arrival
// order. Member requests (op 8) and guild subscriptions (op 14) are written
// under a write lock and paced by a token bucket.
//
// REST covers sends, history and pins over fasthttp. Outbox joins both into
// the dispatch.Outbox the dispatcher submits work to.
//
// # Key Types
//
//   - Client: websocket session and event source
//   - REST: HTTP client for sends and fetches
//   - Outbox: Client plus REST as a dispatch.Outbox
//   - HTTPError: non-2xx REST response
//
// # Usage
//
//	mem := cache.NewMemory()
//	cl, err := gateway.Dial(ctx, gateway.DefaultConfig(token), mem, log)
//	if err != nil {
//	    return err
//	}
//	defer cl.Close()
//
//	outbox := gateway.Outbox{Client: cl, REST: gateway.NewREST(apiURL, token)}
//	d := dispatch.New(dispatch.Deps{Cache: mem, Outbox: outbox, ...})
//	d.Run(ctx, cl.Events())
package gateway
