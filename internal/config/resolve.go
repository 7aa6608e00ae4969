package config

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/isprambiente/pdnd-client/internal/pdnderr"
	"github.com/rs/zerolog/log"
	"github.com/sethvargo/go-envconfig"
)

// ValueProvider supplies a value for a credential field that is still empty.
// Returning an empty string passes the field on to the next provider.
type ValueProvider interface {
	Lookup(ctx context.Context, field Field) (string, error)
}

// ProviderFunc adapts a function to the ValueProvider interface.
type ProviderFunc func(ctx context.Context, field Field) (string, error)

func (f ProviderFunc) Lookup(ctx context.Context, field Field) (string, error) {
	return f(ctx, field)
}

// ResolveOptions select where credentials come from. The configuration file
// section is consulted first, then the environment, then each of Fallbacks in
// order.
type ResolveOptions struct {
	// Path of the JSON configuration file. Empty, or a file that does not
	// exist, skips the file.
	Path string

	// Environment selects the file section and the authorization server.
	Environment string

	// Lookuper reads environment variables. Nil uses the OS environment.
	Lookuper envconfig.Lookuper

	// Fallbacks are consulted for fields still empty after the file and the
	// environment, e.g. an interactive prompt.
	Fallbacks []ValueProvider
}

// Resolved is the outcome of a successful Resolve.
type Resolved struct {
	Credentials Credentials
	Profile     Profile
}

// section is one environment entry of the configuration file.
type section struct {
	Credentials
	Endpoint string `json:"endpoint"`
	Audience string `json:"aud"`
}

// credentialsEnv is the environment variable fallback for Credentials.
type credentialsEnv struct {
	Kid            string `env:"PDND_KID"`
	Issuer         string `env:"PDND_ISSUER"`
	ClientID       string `env:"PDND_CLIENT_ID"`
	PurposeID      string `env:"PDND_PURPOSE_ID"`
	PrivateKeyPath string `env:"PDND_PRIVKEY_PATH"`
}

// Resolve merges the configuration file, environment variables and any
// fallback providers into validated credentials for the selected environment.
func Resolve(ctx context.Context, opts ResolveOptions) (Resolved, error) {
	profile := ProfileFor(opts.Environment)

	sec, err := readSection(ctx, opts.Path, profile.Name)
	if err != nil {
		return Resolved{}, err
	}

	envProvider, err := FromEnvironment(ctx, opts.Lookuper)
	if err != nil {
		return Resolved{}, err
	}

	providers := make([]ValueProvider, 0, len(opts.Fallbacks)+2)
	providers = append(providers, FromCredentials(sec.Credentials), envProvider)
	providers = append(providers, opts.Fallbacks...)

	creds, err := resolveCredentials(ctx, providers)
	if err != nil {
		return Resolved{}, err
	}

	return Resolved{
		Credentials: creds,
		Profile:     profile.WithOverrides(sec.Endpoint, sec.Audience),
	}, nil
}

func resolveCredentials(ctx context.Context, providers []ValueProvider) (Credentials, error) {
	var creds Credentials

	for _, field := range RequiredFields {
		for i, p := range providers {
			value, err := p.Lookup(ctx, field)
			if err != nil {
				return Credentials{}, fmt.Errorf("reading %s: %w", field, err)
			}
			if value != "" {
				log.Ctx(ctx).Debug().Str("field", string(field)).Int("provider", i).Msg("credential resolved")
				creds.set(field, value)
				break
			}
		}
	}

	if err := Validate(creds); err != nil {
		return Credentials{}, err
	}

	return creds, nil
}

// Validate fails with pdnderr.ConfigurationMissing naming the first empty
// required field.
func Validate(c Credentials) error {
	for _, field := range RequiredFields {
		if c.Get(field) == "" {
			return pdnderr.New(pdnderr.ConfigurationMissing, "missing configuration: '%s' is required", field)
		}
	}
	return nil
}

func readSection(ctx context.Context, path string, environment string) (section, error) {
	if path == "" {
		return section{}, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		log.Ctx(ctx).Debug().Str("path", path).Msg("configuration file not found, using environment")
		return section{}, nil
	}
	if err != nil {
		return section{}, pdnderr.Wrap(err, pdnderr.ConfigurationNotFound, "configuration file %s could not be read", path)
	}

	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return section{}, pdnderr.Wrap(err, pdnderr.ConfigurationNotFound, "configuration file %s is not a JSON object", path)
	}

	raw, ok := all[environment]
	if !ok {
		return section{}, pdnderr.New(pdnderr.ConfigurationNotFound, "environment '%s' not found in configuration file", environment)
	}

	var sec section
	if err := json.Unmarshal(raw, &sec); err != nil {
		return section{}, pdnderr.Wrap(err, pdnderr.ConfigurationNotFound, "environment '%s' in configuration file is malformed", environment)
	}

	return sec, nil
}

// FromCredentials provides the non-empty fields of c.
func FromCredentials(c Credentials) ValueProvider {
	return ProviderFunc(func(_ context.Context, field Field) (string, error) {
		return c.Get(field), nil
	})
}

// FromEnvironment provides values from the PDND_* environment variables. A
// nil lookuper reads the OS environment.
func FromEnvironment(ctx context.Context, lookup envconfig.Lookuper) (ValueProvider, error) {
	var env credentialsEnv
	err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &env,
		Lookuper: lookup,
	})
	if err != nil {
		return nil, fmt.Errorf("reading credential environment: %w", err)
	}

	return FromCredentials(Credentials(env)), nil
}

var prompts = map[Field]string{
	FieldKid:            "Enter the kid",
	FieldIssuer:         "Enter the issuer",
	FieldClientID:       "Enter the clientId",
	FieldPurposeID:      "Enter the purposeId",
	FieldPrivateKeyPath: "Enter the private key path",
}

// FromPrompt asks for each missing field on out and reads one line from in.
// An empty line leaves the field empty, so validation still fails.
func FromPrompt(in io.Reader, out io.Writer) ValueProvider {
	reader := bufio.NewReader(in)

	return ProviderFunc(func(_ context.Context, field Field) (string, error) {
		msg, ok := prompts[field]
		if !ok {
			msg = "Enter " + string(field)
		}
		fmt.Fprintf(out, "%s: ", msg)

		line, err := reader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", err
		}

		return strings.TrimSpace(line), nil
	})
}
