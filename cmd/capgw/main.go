// Capgw is a local HTTP gateway for the Capital.com trading API.
//
// It owns the platform session lifecycle so callers never handle
// credentials or session tokens:
//   - Lazy login and reactive session renewal on expiry
//   - Demo/live environment switching with token isolation
//   - A generic relay for every supported endpoint family
//   - Audit trail, metrics, and tracing around each upstream call
//
// Usage:
//
//	# Start the gateway with the default configuration
//	capgw run
//
//	# Start with a custom configuration file
//	capgw run --config /path/to/config.yaml
//
//	# Start directly in the live environment
//	capgw run --env live
//
//	# Validate the configuration without starting
//	capgw validate
//
//	# Show version information
//	capgw version
package main

func main() {
	Execute()
}
