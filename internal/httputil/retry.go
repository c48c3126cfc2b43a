// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides HTTP helpers shared by all scrapers.
package httputil

import (
	"context"
	"io"
	"net/http"
	"time"
)

// RetryBaseDelay and RetryMaxDelay control the exponential backoff window
// for transient failures. The delay doubles each attempt starting at
// RetryBaseDelay and never exceeds RetryMaxDelay. Tests override these to
// avoid real sleeps.
var (
	RetryBaseDelay = 1 * time.Second
	RetryMaxDelay  = 60 * time.Second
)

const defaultMaxAttempts = 5

// retryableStatus reports whether an HTTP status signals a transient fault
// worth retrying: rate limiting (429) or a server-side error (5xx). Other
// statuses are returned to the caller untouched.
func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}

// DoWithRetry executes an HTTP request, retrying transient failures
// (transport errors, timeouts, HTTP 429/5xx) with exponential backoff.
//
// When maxAttempts is 0 the default (5) is used. If wait is non-nil it is
// invoked before every attempt, including retries, so a rate limiter keeps
// its quota across the whole retry sequence. On a retryable status the
// response body is drained and closed before sleeping. If the context is
// cancelled during a backoff wait the function returns ctx.Err(). After
// exhausting attempts the last transport error (or the last retryable
// response) is returned so the caller can inspect it.
func DoWithRetry(ctx context.Context, client *http.Client, req *http.Request, maxAttempts int, wait func()) (*http.Response, error) {
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if wait != nil {
			wait()
		}

		attemptReq := req.Clone(ctx)
		if req.GetBody != nil {
			body, bodyErr := req.GetBody()
			if bodyErr != nil {
				return nil, bodyErr
			}
			attemptReq.Body = body
		}

		resp, err := client.Do(attemptReq)
		if err == nil && !retryableStatus(resp.StatusCode) {
			return resp, nil
		}

		// Exhausted attempts: surface whatever we last saw.
		if attempt == maxAttempts-1 {
			if err != nil {
				return nil, err
			}
			return resp, nil
		}

		if err != nil {
			lastErr = err
		} else {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
		}

		backoff := RetryBaseDelay << attempt
		if backoff > RetryMaxDelay {
			backoff = RetryMaxDelay
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}

	// Unreachable: the loop always returns on its final attempt.
	return nil, lastErr
}
