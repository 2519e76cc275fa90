// Package api exposes the retools control surface over HTTP.
//
// # Endpoints
//
//	POST   /api/v1/start          start the engine
//	POST   /api/v1/stop           stop the engine
//	POST   /api/v1/clear          reset statistics and the session clock
//	GET    /api/v1/records        list records, ?filter= restricts by key substring
//	GET    /api/v1/keys           list key extensions
//	PUT    /api/v1/keys/{id}      set the key extension for a hex id, body {"bytes":[1,3]}
//	DELETE /api/v1/keys/{id}      remove the key extension for a hex id
//	POST   /api/v1/keys/save      write key extensions to the config file
//	GET    /metrics               Prometheus metrics
//
// Errors are returned as {"error": "..."}. Commands that are invalid in the
// current engine state answer 409 Conflict, clearing a key that is not set
// answers 404 Not Found and malformed request bodies answer 400 Bad Request.
//
// # TLS
//
// When Config carries a certificate and key the server speaks HTTPS only,
// TLS 1.2 or newer.
package api
