// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/danielhkuo/quickly-elect/cliparse"
	"github.com/danielhkuo/quickly-elect/ledger"
	"github.com/danielhkuo/quickly-elect/phase"
	"github.com/danielhkuo/quickly-elect/testutil"
)

type testEnv struct {
	db    *sql.DB
	cfg   cliparse.Config
	chain *ledger.Memory
	svc   *Services
}

// setupEnv builds services over a fresh database with the clock pinned at now
// and an in-memory ledger. The anchor worker is not started.
func setupEnv(t *testing.T, now time.Time) *testEnv {
	t.Helper()

	conn := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	chain := ledger.NewMemory()

	return &testEnv{
		db:    conn,
		cfg:   cfg,
		chain: chain,
		svc:   NewServices(conn, cfg, chain, phase.FixedClock(now)),
	}
}

// at returns services over the same database with a different clock.
func (e *testEnv) at(now time.Time) *Services {
	return NewServices(e.db, e.cfg, e.chain, phase.FixedClock(now))
}

// call runs h on req after setting the given path values (name, value, ...).
func call(h http.HandlerFunc, req *http.Request, pathValues ...string) *httptest.ResponseRecorder {
	for i := 0; i+1 < len(pathValues); i += 2 {
		req.SetPathValue(pathValues[i], pathValues[i+1])
	}
	w := httptest.NewRecorder()
	h(w, req)
	return w
}
