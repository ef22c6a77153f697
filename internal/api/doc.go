// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api is the HTTP client for the customer-service backend.
//
// Every endpoint answers with the same envelope:
//
//	{"success": bool, "message": string, "data": T, "error": string}
//
// Calls return the decoded *Envelope[T] whenever the body is an envelope,
// including on non-2xx statuses, and a Go error only when no envelope could
// be obtained (transport failure, FastAPI {"detail": ...} error, malformed
// body). ErrorText reduces either outcome to one display string.
//
// # Key Types
//
//   - Client: base URL, bearer token source, rate limiter, GET retries
//   - Envelope: the generic response wrapper
//   - HTTPError: non-envelope error response
//
// # Usage
//
//	c := api.NewClient("http://localhost:8000").WithTokenSource(session)
//	env, err := c.Query(ctx, api.QueryRequest{Query: "订单状态", ThreadID: id})
//	if err != nil || !env.Success {
//	    fmt.Println(api.ErrorText(env, err, "查询失败"))
//	}
package api
