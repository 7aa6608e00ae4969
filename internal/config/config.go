package config

import (
	"context"
	"fmt"
	"strings"

	"github.com/sethvargo/go-envconfig"
)

// Config holds the settings that come only from the process environment.
// Credentials are resolved separately by Resolve, as they may also come from
// a configuration file.
type Config struct {
	Cache   CacheConfig
	Observe ObserveConfig
}

// CacheConfig specifies where tokens are kept between runs.
type CacheConfig struct {
	// Type selects the cache implementation: "file" (default) or "memory".
	// The memory cache does not survive the process.
	Type string `env:"PDND_CACHE_TYPE, default=file"`

	// Dir overrides the directory of the token file. Defaults to the system
	// temporary directory.
	Dir string `env:"PDND_CACHE_DIR"`
}

type ObserveConfig struct {
	Enabled                    bool `env:"PDND_OBSERVE_ENABLED, default=false"`
	HTTPConnectionTraceEnabled bool `env:"PDND_OBSERVE_CONNECTION_TRACE_ENABLED, default=false"`
}

func Load(ctx context.Context) (Config, error) {
	return load(ctx, nil) // load from OS environment
}

func load(ctx context.Context, lookup envconfig.Lookuper) (Config, error) {
	var cfg Config
	err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookup, // nil defaults to OS environment
	})
	if err != nil {
		return cfg, err
	}

	err = cfg.Cache.Validate()
	if err != nil {
		return cfg, fmt.Errorf("invalid cache configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the cache configuration is valid.
func (c *CacheConfig) Validate() error {
	switch c.Type {
	case "file", "memory":
		return nil
	default:
		return fmt.Errorf("PDND_CACHE_TYPE must be \"file\" or \"memory\", got %q", c.Type)
	}
}

// Credentials identify the client to the PDND authorization server. All
// fields are required; use Resolve to obtain a validated value.
type Credentials struct {
	Kid            string `json:"kid"`
	Issuer         string `json:"issuer"`
	ClientID       string `json:"clientId"`
	PurposeID      string `json:"purposeId"`
	PrivateKeyPath string `json:"privKeyPath"`
}

// Field names a credential by its configuration file key.
type Field string

const (
	FieldKid            Field = "kid"
	FieldIssuer         Field = "issuer"
	FieldClientID       Field = "clientId"
	FieldPurposeID      Field = "purposeId"
	FieldPrivateKeyPath Field = "privKeyPath"
)

// RequiredFields lists the credential fields in validation order.
var RequiredFields = []Field{
	FieldKid,
	FieldIssuer,
	FieldClientID,
	FieldPurposeID,
	FieldPrivateKeyPath,
}

// Get returns the value of the named field.
func (c Credentials) Get(f Field) string {
	switch f {
	case FieldKid:
		return c.Kid
	case FieldIssuer:
		return c.Issuer
	case FieldClientID:
		return c.ClientID
	case FieldPurposeID:
		return c.PurposeID
	case FieldPrivateKeyPath:
		return c.PrivateKeyPath
	}
	return ""
}

func (c *Credentials) set(f Field, value string) {
	switch f {
	case FieldKid:
		c.Kid = value
	case FieldIssuer:
		c.Issuer = value
	case FieldClientID:
		c.ClientID = value
	case FieldPurposeID:
		c.PurposeID = value
	case FieldPrivateKeyPath:
		c.PrivateKeyPath = value
	}
}

const (
	EnvironmentProduction = "production"
	EnvironmentStaging    = "staging"
)

// Profile is the authorization server selected by an environment name.
type Profile struct {
	Name          string
	TokenEndpoint string
	Audience      string
}

var (
	productionProfile = Profile{
		Name:          EnvironmentProduction,
		TokenEndpoint: "https://auth.interop.pagopa.it/token.oauth2",
		Audience:      "auth.interop.pagopa.it/client-assertion",
	}
	stagingProfile = Profile{
		Name:          EnvironmentStaging,
		TokenEndpoint: "https://auth.uat.interop.pagopa.it/token.oauth2",
		Audience:      "auth.uat.interop.pagopa.it/client-assertion",
	}
)

// ProfileFor returns the endpoint and audience for the named environment.
// "produzione" and "collaudo" are accepted as aliases. Any other name uses the
// production pair but keeps its own name, as the name also selects the
// configuration file section.
func ProfileFor(name string) Profile {
	if name == "" {
		return productionProfile
	}

	var p Profile
	switch strings.ToLower(name) {
	case EnvironmentStaging, "collaudo", "uat":
		p = stagingProfile
	default:
		p = productionProfile
	}
	p.Name = name

	return p
}

// WithOverrides replaces the endpoint and audience with any non-empty value
// supplied.
func (p Profile) WithOverrides(endpoint, audience string) Profile {
	if endpoint != "" {
		p.TokenEndpoint = endpoint
	}
	if audience != "" {
		p.Audience = audience
	}
	return p
}

// CacheKey is the identifier of the cached token for this profile.
func (p Profile) CacheKey() string {
	return p.Name
}
