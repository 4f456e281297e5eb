package capital

// Environment selects one of the two isolated upstream platforms.
// Each environment has its own base URL, API key, and login identity;
// session tokens issued under one environment are never valid under
// the other.
type Environment string

const (
	// Demo is the paper-trading environment.
	Demo Environment = "demo"

	// Live is the real-money environment.
	Live Environment = "live"
)

// ParseEnvironment validates an environment value.
// Only "demo" and "live" are accepted; "real" is kept as a legacy alias
// for the live environment.
func ParseEnvironment(value string) (Environment, error) {
	switch value {
	case string(Demo):
		return Demo, nil
	case string(Live), "real":
		return Live, nil
	default:
		return "", &InvalidEnvironmentError{Value: value}
	}
}

// Credentials is the immutable login identity for one environment.
// It is loaded once at process start and never mutated afterwards.
type Credentials struct {
	// BaseURL is the versioned API root, e.g.
	// "https://demo-api-capital.backend-capital.com/api/v1".
	BaseURL string

	// APIKey is the static X-CAP-API-KEY header value.
	APIKey string

	// Identifier is the account login identifier (email).
	Identifier string

	// Password is the account password.
	Password string
}

// validate reports the first missing field needed to authenticate.
// Missing credentials are not fatal at startup; the first call that
// needs them fails with a ConfigError instead.
func (c Credentials) validate(env Environment) error {
	switch {
	case c.BaseURL == "":
		return &ConfigError{Environment: env, Field: "base_url"}
	case c.APIKey == "":
		return &ConfigError{Environment: env, Field: "api_key"}
	case c.Identifier == "":
		return &ConfigError{Environment: env, Field: "identifier"}
	case c.Password == "":
		return &ConfigError{Environment: env, Field: "password"}
	}
	return nil
}
