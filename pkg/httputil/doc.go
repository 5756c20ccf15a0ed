// Package httputil provides the HTTP client used to fetch graph records from
// a backend.
//
// # Overview
//
//   - [Client]: JSON GET with default headers, retry and observability hooks
//   - [Retry]: Automatic retry with exponential backoff
//
// # Retry
//
// [Retry] re-runs an operation while it fails with a [RetryableError].
// [Client] marks network failures and 5xx responses as retryable; 4xx
// responses fail immediately:
//
//	err := httputil.Retry(ctx, 3, time.Second, func() error {
//	    return client.Get(ctx, url, &records)
//	})
//
// # Configuration
//
// Default settings are suitable for most use cases:
//
//   - Request timeout: 30 seconds
//   - Max attempts: 3
//   - Base backoff: 1 second, doubling after each attempt
package httputil
