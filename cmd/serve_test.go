package main

import (
	"fmt"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestShutdownServer_DrainsInFlightRequests verifies shutdown waits for a
// slow in-flight request instead of cutting it off, even though the signal
// context that triggered shutdown is long gone.
func TestShutdownServer_DrainsInFlightRequests(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	started := make(chan struct{})
	httpSrv := &http.Server{
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			close(started)
			time.Sleep(200 * time.Millisecond)
			w.WriteHeader(http.StatusOK)
		}),
	}
	go httpSrv.Serve(ln)

	type result struct {
		code int
		err  error
	}
	done := make(chan result, 1)
	go func() {
		resp, err := http.Get(fmt.Sprintf("http://%s/", ln.Addr()))
		if err != nil {
			done <- result{err: err}
			return
		}
		resp.Body.Close()
		done <- result{code: resp.StatusCode}
	}()

	<-started
	shutdownServer(httpSrv)

	select {
	case res := <-done:
		require.NoError(t, res.err)
		assert.Equal(t, http.StatusOK, res.code)
	case <-time.After(5 * time.Second):
		t.Fatal("request never completed")
	}
}

func TestShutdownServer_IdleServer(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	httpSrv := &http.Server{Handler: http.NotFoundHandler()}
	go httpSrv.Serve(ln)

	shutdownServer(httpSrv)

	_, err = net.DialTimeout("tcp", ln.Addr().String(), 100*time.Millisecond)
	assert.Error(t, err)
}
