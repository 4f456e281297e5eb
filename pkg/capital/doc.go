// Package capital implements the authenticated core of the Capital.com
// gateway: environment selection, session lifecycle management, and the
// generic request dispatcher every route is built on.
//
// # Overview
//
// The platform issues an opaque session token pair (CST and
// X-SECURITY-TOKEN) on login. Both tokens must accompany every
// authenticated call, their validity window is controlled entirely by
// the platform, and expiry is only ever discovered reactively through a
// 401. The package caches the pair, renews it transparently with
// exactly one retry per call, and classifies every failure into a typed
// taxonomy callers can branch on.
//
// # Basic Usage
//
//	client := capital.NewClient(map[capital.Environment]capital.Credentials{
//	    capital.Demo: {
//	        BaseURL:    "https://demo-api-capital.backend-capital.com/api/v1",
//	        APIKey:     os.Getenv("CAPITAL_DEMO_API_KEY"),
//	        Identifier: os.Getenv("CAPITAL_IDENTIFIER"),
//	        Password:   os.Getenv("CAPITAL_PASSWORD"),
//	    },
//	}, capital.DefaultClientConfig())
//	defer client.Close()
//
//	if err := client.SelectEnvironment("demo"); err != nil {
//	    log.Fatal(err)
//	}
//
//	result, err := client.Request(ctx, "GET", "/positions", nil, nil)
//
// # Error Handling
//
// Failures are reported as typed errors:
//
//   - ConfigError: required credential missing, detected at first use
//   - InvalidEnvironmentError: unknown environment value, state unchanged
//   - AuthError: session could not be (re-)established; Reason narrows
//     the cause to NotSelected, UpstreamReject, MissingTokens, or
//     Unauthorized
//   - UpstreamError: the platform rejected an authenticated call for a
//     reason other than expired credentials
//   - TransportError: network failure, wrapping the underlying cause
//
// # Session Lifecycle
//
// Per-session state machine: UNAUTHENTICATED transitions to
// AUTHENTICATED on a successful login; a 401 drops the pair back to
// UNAUTHENTICATED and triggers exactly one re-login and retry. A second
// consecutive 401 is terminal for that call, and the next call starts
// fresh. Tokens are additionally cleared on explicit logout and on
// environment switch; a pair obtained under one environment is never
// presented under another.
//
// # Thread Safety
//
// Client and Session are safe for concurrent use. The authenticate and
// invalidate transitions run under one mutex, so concurrent 401s
// coalesce into a single re-login and no caller observes a partially
// replaced token pair.
package capital
