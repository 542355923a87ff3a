package api

import "net/http"

// Health handles GET /health: a pure liveness probe, no dependency
// checks. Readiness (broker/store reachability) is out of scope (§1).
func Health(w http.ResponseWriter, r *http.Request) {
	Ok(w, envelope{"status": "ok"})
}
