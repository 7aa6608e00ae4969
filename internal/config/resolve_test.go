package config

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/isprambiente/pdnd-client/internal/pdnderr"
	"github.com/rs/zerolog"
	"github.com/sethvargo/go-envconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const stagingConfig = `{"staging": {"kid":"k1","issuer":"i1","clientId":"c1","purposeId":"p1","privKeyPath":"/tmp/key.pem"}}`

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.json")
	err := os.WriteFile(path, []byte(content), 0o600)
	require.NoError(t, err)

	return path
}

func emptyEnv() envconfig.Lookuper {
	return envconfig.MapLookuper(map[string]string{})
}

func TestResolve_FromFile(t *testing.T) {
	path := writeConfig(t, stagingConfig)

	resolved, err := Resolve(context.Background(), ResolveOptions{
		Path:        path,
		Environment: "staging",
		Lookuper:    emptyEnv(),
	})
	require.NoError(t, err)

	assert.Equal(t, Credentials{
		Kid:            "k1",
		Issuer:         "i1",
		ClientID:       "c1",
		PurposeID:      "p1",
		PrivateKeyPath: "/tmp/key.pem",
	}, resolved.Credentials)
	assert.Equal(t, "k1", resolved.Credentials.Kid)
	assert.Equal(t, stagingProfile, resolved.Profile)
}

func TestResolve_EnvironmentNotInFile(t *testing.T) {
	path := writeConfig(t, stagingConfig)

	for _, env := range []string{"production", "collaudo", "dev"} {
		t.Run(env, func(t *testing.T) {
			_, err := Resolve(context.Background(), ResolveOptions{
				Path:        path,
				Environment: env,
				Lookuper:    emptyEnv(),
			})

			require.Error(t, err)
			assert.True(t, pdnderr.Is(err, pdnderr.ConfigurationNotFound))
			assert.ErrorContains(t, err, env)
		})
	}
}

func TestResolve_MalformedFile(t *testing.T) {
	path := writeConfig(t, `["staging"]`)

	_, err := Resolve(context.Background(), ResolveOptions{
		Path:        path,
		Environment: "staging",
		Lookuper:    emptyEnv(),
	})

	require.Error(t, err)
	assert.True(t, pdnderr.Is(err, pdnderr.ConfigurationNotFound))
}

func TestResolve_MissingField(t *testing.T) {
	complete := map[string]string{
		"kid":         `"k1"`,
		"issuer":      `"i1"`,
		"clientId":    `"c1"`,
		"purposeId":   `"p1"`,
		"privKeyPath": `"/tmp/key.pem"`,
	}

	for _, missing := range RequiredFields {
		t.Run(string(missing), func(t *testing.T) {
			var entries []string
			for _, f := range RequiredFields {
				if f == missing {
					continue
				}
				entries = append(entries, `"`+string(f)+`":`+complete[string(f)])
			}
			path := writeConfig(t, `{"staging": {`+strings.Join(entries, ",")+`}}`)

			_, err := Resolve(context.Background(), ResolveOptions{
				Path:        path,
				Environment: "staging",
				Lookuper:    emptyEnv(),
			})

			require.Error(t, err)
			assert.True(t, pdnderr.Is(err, pdnderr.ConfigurationMissing))
			assert.Equal(t, pdnderr.CodeConfigurationMissing, pdnderr.CodeOf(err))
			assert.ErrorContains(t, err, "'"+string(missing)+"'")
		})
	}
}

func TestResolve_EnvironmentFallback(t *testing.T) {
	path := writeConfig(t, `{"production": {"kid":"file-kid","issuer":"file-issuer"}}`)

	lookup := envconfig.MapLookuper(map[string]string{
		"PDND_KID":          "env-kid",
		"PDND_CLIENT_ID":    "env-client",
		"PDND_PURPOSE_ID":   "env-purpose",
		"PDND_PRIVKEY_PATH": "/env/key.pem",
	})

	resolved, err := Resolve(context.Background(), ResolveOptions{
		Path:        path,
		Environment: "production",
		Lookuper:    lookup,
	})
	require.NoError(t, err)

	// file values win over the environment
	assert.Equal(t, "file-kid", resolved.Credentials.Kid)
	assert.Equal(t, "file-issuer", resolved.Credentials.Issuer)
	assert.Equal(t, "env-client", resolved.Credentials.ClientID)
	assert.Equal(t, "env-purpose", resolved.Credentials.PurposeID)
	assert.Equal(t, "/env/key.pem", resolved.Credentials.PrivateKeyPath)
}

func TestResolve_NoFileUsesEnvironment(t *testing.T) {
	lookup := envconfig.MapLookuper(map[string]string{
		"PDND_KID":          "k",
		"PDND_ISSUER":       "i",
		"PDND_CLIENT_ID":    "c",
		"PDND_PURPOSE_ID":   "p",
		"PDND_PRIVKEY_PATH": "/key.pem",
	})

	var logs bytes.Buffer
	ctx := zerolog.New(&logs).WithContext(context.Background())

	resolved, err := Resolve(ctx, ResolveOptions{
		Path:        filepath.Join(t.TempDir(), "does-not-exist.json"),
		Environment: "staging",
		Lookuper:    lookup,
	})
	require.NoError(t, err)

	assert.Equal(t, "p", resolved.Credentials.PurposeID)
	assert.Equal(t, stagingProfile, resolved.Profile)
	assert.Contains(t, logs.String(), "configuration file not found, using environment")
}

func TestResolve_NothingConfigured(t *testing.T) {
	_, err := Resolve(context.Background(), ResolveOptions{
		Lookuper: emptyEnv(),
	})

	require.Error(t, err)
	assert.True(t, pdnderr.Is(err, pdnderr.ConfigurationMissing))
	assert.ErrorContains(t, err, "'kid'")
}

func TestResolve_ProfileOverrides(t *testing.T) {
	path := writeConfig(t, `{"staging": {"kid":"k1","issuer":"i1","clientId":"c1","purposeId":"p1","privKeyPath":"/tmp/key.pem",
		"endpoint":"https://auth.example.test/token.oauth2","aud":"auth.example.test/client-assertion"}}`)

	resolved, err := Resolve(context.Background(), ResolveOptions{
		Path:        path,
		Environment: "staging",
		Lookuper:    emptyEnv(),
	})
	require.NoError(t, err)

	assert.Equal(t, Profile{
		Name:          "staging",
		TokenEndpoint: "https://auth.example.test/token.oauth2",
		Audience:      "auth.example.test/client-assertion",
	}, resolved.Profile)
}

func TestResolve_FallbackProvider(t *testing.T) {
	lookup := envconfig.MapLookuper(map[string]string{
		"PDND_KID":        "k",
		"PDND_ISSUER":     "i",
		"PDND_CLIENT_ID":  "c",
		"PDND_PURPOSE_ID": "p",
	})

	var asked []Field
	fixed := ProviderFunc(func(_ context.Context, field Field) (string, error) {
		asked = append(asked, field)
		return "/fixed/key.pem", nil
	})

	resolved, err := Resolve(context.Background(), ResolveOptions{
		Lookuper:  lookup,
		Fallbacks: []ValueProvider{fixed},
	})
	require.NoError(t, err)

	assert.Equal(t, []Field{FieldPrivateKeyPath}, asked)
	assert.Equal(t, "/fixed/key.pem", resolved.Credentials.PrivateKeyPath)
}

func TestResolve_FallbackProviderError(t *testing.T) {
	failing := ProviderFunc(func(_ context.Context, field Field) (string, error) {
		return "", assert.AnError
	})

	_, err := Resolve(context.Background(), ResolveOptions{
		Lookuper:  emptyEnv(),
		Fallbacks: []ValueProvider{failing},
	})

	assert.ErrorIs(t, err, assert.AnError)
}

func TestFromPrompt(t *testing.T) {
	in := strings.NewReader("prompted-kid\n\n")
	out := &bytes.Buffer{}

	prompt := FromPrompt(in, out)

	value, err := prompt.Lookup(context.Background(), FieldKid)
	require.NoError(t, err)
	assert.Equal(t, "prompted-kid", value)

	// an empty line leaves the field empty
	value, err = prompt.Lookup(context.Background(), FieldIssuer)
	require.NoError(t, err)
	assert.Empty(t, value)

	// input exhausted
	value, err = prompt.Lookup(context.Background(), FieldClientID)
	require.NoError(t, err)
	assert.Empty(t, value)

	assert.Equal(t, "Enter the kid: Enter the issuer: Enter the clientId: ", out.String())
}

func TestResolve_EmptyPromptStillFails(t *testing.T) {
	_, err := Resolve(context.Background(), ResolveOptions{
		Lookuper:  emptyEnv(),
		Fallbacks: []ValueProvider{FromPrompt(strings.NewReader("\n\n\n\n\n"), &bytes.Buffer{})},
	})

	require.Error(t, err)
	assert.True(t, pdnderr.Is(err, pdnderr.ConfigurationMissing))
}
