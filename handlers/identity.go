// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"

	"github.com/danielhkuo/quickly-elect/middleware"
)

// requireAdmin writes 401 and returns false unless the request carries a
// valid admin key.
func requireAdmin(w http.ResponseWriter, r *http.Request, salt string) (string, bool) {
	adminID, err := middleware.AdminID(r, salt)
	if err != nil {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Invalid admin key")
		return "", false
	}
	return adminID, true
}

// requireVoter writes 401 and returns false when no voter identity is present.
func requireVoter(w http.ResponseWriter, r *http.Request) (string, bool) {
	voterID, err := middleware.VoterID(r)
	if err != nil {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "X-Voter-ID header required")
		return "", false
	}
	return voterID, true
}
