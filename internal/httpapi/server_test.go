package httpapi_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/dogebooch/extractvault/internal/httpapi"
)

// testContext returns a context cancelled at test cleanup, used to shut
// down a Server started in a background goroutine for the duration of one
// test.
func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return ctx
}

// waitForAddr polls until Start has bound its listener and the server
// answers GET /status, since Start dials net.Listen asynchronously from the
// goroutine the test launches it in.
func waitForAddr(t *testing.T, srv *httpapi.Server) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		addr := srv.Addr()
		if addr != "" && addr != ":0" {
			client := &http.Client{Timeout: 50 * time.Millisecond}
			if resp, err := client.Get("http://" + addr + "/status"); err == nil {
				_ = resp.Body.Close()
				return
			}
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("server never became reachable")
}
