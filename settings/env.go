package settings

import (
	"fmt"
	"net/netip"
	"time"

	"github.com/caarlos0/env/v11"
)

// EnvPrefix is prepended to every variable name.
const EnvPrefix = "GITLINK_"

// Env holds process-level options read from the
// environment.
type Env struct {
	LogLevel       string        `env:"LOG_LEVEL"       envDefault:"info"`
	LogFormat      string        `env:"LOG_FORMAT"      envDefault:"text"`
	ConfigFile     string        `env:"CONFIG_FILE"`
	NoKeyring      bool          `env:"NO_KEYRING"`
	APInterface    string        `env:"AP_INTERFACE"    envDefault:"wlan0"`
	APAddress      string        `env:"AP_ADDRESS"      envDefault:"10.42.0.1"`
	APPassword     string        `env:"AP_PASSWORD"`
	HTTPAddr       string        `env:"HTTP_ADDR"       envDefault:":80"`
	DNSAddr        string        `env:"DNS_ADDR"        envDefault:":53"`
	OAuthSimulate  bool          `env:"OAUTH_SIMULATE"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"10s"`
}

// LoadEnv parses GITLINK_ variables from environ, or from
// the process environment when environ is nil.
func LoadEnv(environ map[string]string) (Env, error) {
	const errCtx = "parsing environment"

	var cfg Env

	if err := env.ParseWithOptions(&cfg, env.Options{
		Prefix:      EnvPrefix,
		Environment: environ,
	}); err != nil {
		return Env{}, fmt.Errorf("%s: %w", errCtx, err)
	}

	if err := cfg.Validate(); err != nil {
		return Env{}, fmt.Errorf("%s: %w", errCtx, err)
	}

	return cfg, nil
}

// Validate checks the values that the parser cannot.
func (e Env) Validate() error {
	addr, err := netip.ParseAddr(e.APAddress)
	if err != nil || !addr.Is4() {
		return fmt.Errorf(
			"%sAP_ADDRESS %q is not an IPv4 address",
			EnvPrefix, e.APAddress,
		)
	}

	switch e.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf(
			"%sLOG_FORMAT %q must be text or json",
			EnvPrefix, e.LogFormat,
		)
	}

	if e.RequestTimeout <= 0 {
		return fmt.Errorf(
			"%sREQUEST_TIMEOUT must be positive",
			EnvPrefix,
		)
	}

	return nil
}

// AccessPointIP returns the parsed AP address. Call
// Validate first.
func (e Env) AccessPointIP() netip.Addr {
	addr, _ := netip.ParseAddr(e.APAddress)

	return addr
}

// Open builds the store described by e: the YAML file
// alone when NoKeyring is set, otherwise the file with
// secrets routed to the keyring.
func (e Env) Open() Store {
	file := NewFileStore(e.ConfigFile)

	if e.NoKeyring {
		return file
	}

	return Layered{
		Secrets: NewKeyringStore(""),
		Plain:   file,
	}
}
