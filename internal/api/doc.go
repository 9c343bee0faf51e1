// Package api implements the HTTP and WebSocket front end of powerd.
//
// This package provides:
//   - POST /update to submit an on/off command for a device
//   - GET /state returning the current device table
//   - GET /ws streaming the device table on connect and after every change
//   - /api/v1 endpoints for health, metrics, devices and transition history
//   - The browser dashboard for every other path
//   - Middleware stack (request ID, logging, recovery, CORS, body limit, rate limit)
//
// # Architecture
//
// The server never holds device state. Commands are handed to the power
// actor without waiting for them to be applied, and reads come from the
// actor's latest published snapshot. Each WebSocket connection owns one
// observer on the snapshot distributor, so a slow browser only ever skips
// intermediate snapshots and never delays the actor or other clients.
//
// # Response Codes for /update
//
//   - 202 Accepted: the command was queued
//   - 400 Bad Request: malformed body, empty id or unknown cmd
//   - 404 Not Found: the device is not in the current snapshot
//   - 429 Too Many Requests: the rate limit was exceeded
//   - 503 Service Unavailable: the actor queue is full or the actor has stopped
//
// A 202 only means the command was queued. The device shows Pending once the
// actor has applied it, and On or Off once the device reports back.
package api
