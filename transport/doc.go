// Package transport defines the HTTP boundary for outbound Amazon API calls.
//
// It provides three things:
//
//   - Normalized Request and Response types that keep the rest of the module
//     independent of any particular HTTP client library.
//
//   - The Transport interface and an HTTPTransport implementation backed by
//     net/http. Nothing outside this package performs network I/O.
//
//   - A closed error taxonomy (rate limited, server error, client error,
//     network error) and the Classifier that maps raw HTTP and connection
//     failures onto it. The classifier is the single source of truth for
//     retryability: retry logic never inspects raw errors itself.
//
// # Usage
//
//	tr := transport.NewHTTPTransport(transport.HTTPConfig{})
//	resp, err := tr.RoundTrip(ctx, &transport.Request{
//	    Method: "GET",
//	    URL:    "https://advertising-api.amazon.com/v2/campaigns",
//	})
//
//	classifier := transport.NewClassifier(nil)
//	if err := classifier.Classify(resp, err); err != nil {
//	    var terr *transport.Error
//	    if errors.As(err, &terr) && terr.Retryable() {
//	        // retry
//	    }
//	}
package transport
