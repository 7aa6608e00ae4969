package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/isprambiente/pdnd-client/internal/api"
	"github.com/isprambiente/pdnd-client/internal/assertion"
	"github.com/isprambiente/pdnd-client/internal/cache"
	"github.com/isprambiente/pdnd-client/internal/config"
	"github.com/isprambiente/pdnd-client/internal/observe"
	"github.com/isprambiente/pdnd-client/internal/token"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// memoryCacheTTL bounds how long a token is kept by the memory cache. Tokens
// are still checked against their own expiry on every read.
const memoryCacheTTL = 12 * time.Hour

type streams struct {
	in  io.Reader
	out io.Writer
	err io.Writer
}

type cliOptions struct {
	environment string
	configPath  string
	debug       bool
	pretty      bool
	jsonOutput  bool
	apiURL      string
	statusURL   string
	filters     []string
	save        bool
	insecure    bool
	prompt      bool
	checkURLs   bool
}

func newRootCommand(s streams) (*cobra.Command, *cliOptions) {
	opts := &cliOptions{}

	cmd := &cobra.Command{
		Use:   "pdnd-client",
		Short: "Obtain PDND access tokens and call PDND e-services",
		Long: `pdnd-client signs a client assertion, exchanges it for a PDND access
token and optionally calls an e-service API or its status endpoint with it.

Credentials are read from the selected section of the configuration file,
then from PDND_KID, PDND_ISSUER, PDND_CLIENT_ID, PDND_PURPOSE_ID and
PDND_PRIVKEY_PATH.`,
		Example: `  pdnd-client -c config.json --api-url "https://api.example.it/resource" --filter id=42
  pdnd-client -c config.json -e staging --status-url "https://api.example.it/status"
  pdnd-client -c config.json --save`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), opts, s)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.environment, "env", "e", config.EnvironmentProduction, "environment to use (production, staging)")
	flags.StringVarP(&opts.configPath, "config", "c", "", "path of the JSON configuration file")
	flags.BoolVar(&opts.debug, "debug", false, "enable detailed output")
	flags.BoolVar(&opts.pretty, "pretty", false, "pretty print JSON API responses")
	flags.BoolVar(&opts.jsonOutput, "json", false, "print errors as JSON")
	flags.StringVar(&opts.apiURL, "api-url", "", "URL of the API to call with the token")
	flags.StringVar(&opts.statusURL, "status-url", "", "URL of the status API used to check the token")
	flags.StringArrayVar(&opts.filters, "filter", nil, "query parameter name=value added to the API URL (repeatable)")
	flags.BoolVar(&opts.save, "save", false, "keep the token for later runs instead of requesting a new one each time")
	flags.BoolVar(&opts.insecure, "insecure", false, "skip TLS certificate verification")
	flags.BoolVar(&opts.prompt, "prompt", false, "ask on standard input for credentials that are not configured")
	flags.BoolVar(&opts.checkURLs, "check-urls", false, "check that the API and status URLs answer an unauthenticated HEAD request before requesting a token")

	cmd.SetIn(s.in)
	cmd.SetOut(s.out)
	cmd.SetErr(s.err)

	return cmd, opts
}

// execute runs the command line and returns the process exit code. Without
// arguments it prints the help text and succeeds.
func execute(ctx context.Context, args []string, s streams) int {
	cmd, opts := newRootCommand(s)

	if len(args) == 0 {
		_ = cmd.Help()
		return 0
	}

	cmd.SetArgs(args)
	if err := cmd.ExecuteContext(ctx); err != nil {
		log.Debug().Err(err).Msg("command failed")
		printError(s.out, err, opts.jsonOutput)
		return 1
	}

	return 0
}

func run(ctx context.Context, opts *cliOptions, s streams) error {
	if opts.debug {
		enableDebugLogging()
	}
	ctx = log.Logger.WithContext(ctx)

	logBuildInfo()

	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("configuration load failed: %w", err)
	}

	shutdownTelemetry, err := observe.Configure(ctx, cfg.Observe, s.err)
	if err != nil {
		return fmt.Errorf("telemetry bootstrap failed: %w", err)
	}
	defer func() {
		if err := shutdownTelemetry(ctx); err != nil {
			log.Warn().Err(err).Msg("telemetry: shutdown failed")
		}
	}()

	var fallbacks []config.ValueProvider
	if opts.prompt {
		fallbacks = append(fallbacks, config.FromPrompt(s.in, s.err))
	}

	resolved, err := config.Resolve(ctx, config.ResolveOptions{
		Path:        opts.configPath,
		Environment: opts.environment,
		Fallbacks:   fallbacks,
	})
	if err != nil {
		return err
	}

	log.Debug().
		Str("environment", resolved.Profile.Name).
		Str("endpoint", resolved.Profile.TokenEndpoint).
		Str("audience", resolved.Profile.Audience).
		Msg("configuration resolved")

	transport := observe.HTTPTransport(observe.NewBaseTransport(!opts.insecure), cfg.Observe)
	client := &http.Client{Transport: transport}

	// the probe carries no bearer token
	if opts.checkURLs {
		for _, target := range []string{opts.apiURL, opts.statusURL} {
			if err := config.Probe(ctx, client, target); err != nil {
				return err
			}
		}
	}

	key := resolved.Profile.CacheKey()
	store, err := tokenStore(ctx, cfg.Cache, opts.save, key)
	if err != nil {
		return err
	}
	defer store.Close()

	signer, err := assertion.NewSigner(ctx, resolved.Credentials, resolved.Profile)
	if err != nil {
		return err
	}

	vendor := token.Cached(store, key, nil)(
		token.NewVendor(signer, token.NewExchanger(client, resolved.Profile.TokenEndpoint), resolved.Credentials.ClientID),
	)
	src := token.NewTokenSource(ctx, vendor)

	accessToken, err := src.Token()
	if err != nil {
		return err
	}
	if accessToken.AccessToken == "" {
		return errNoToken
	}

	invoker := api.New(src, api.Options{
		Transport:   transport,
		Verbose:     opts.debug,
		Diagnostics: s.err,
	})

	if opts.statusURL != "" {
		status, err := invoker.CheckStatus(ctx, opts.statusURL)
		if err != nil {
			return err
		}

		out, err := json.MarshalIndent(status, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding status response: %w", err)
		}
		fmt.Fprintln(s.out, string(out))
	}

	if opts.apiURL == "" {
		fmt.Fprintln(s.out, accessToken.AccessToken)
		return nil
	}

	resp, err := invoker.Call(ctx, opts.apiURL, api.ParseFilters(opts.filters))
	if err != nil {
		return err
	}

	body := resp.Body
	if opts.pretty || opts.debug {
		body = api.Pretty(body)
	}
	fmt.Fprintln(s.out, string(body))

	return nil
}

// tokenStore returns the cache for this run. Without save, any token kept by
// an earlier run for key is discarded and the token only lives in memory.
func tokenStore(ctx context.Context, cfg config.CacheConfig, save bool, key string) (cache.TokenCache[token.AccessToken], error) {
	if save {
		store, err := cache.NewFromConfig[token.AccessToken](ctx, cfg, memoryCacheTTL, 1)
		if err != nil {
			return nil, fmt.Errorf("token cache configuration failed: %w", err)
		}
		return store, nil
	}

	saved := cache.NewFile[token.AccessToken](cfg.Dir)
	if err := saved.Invalidate(ctx, key); err != nil {
		return nil, err
	}
	log.Debug().Str("path", saved.Path(key)).Msg("saved token discarded")

	store, err := cache.NewMemory[token.AccessToken](memoryCacheTTL, 1)
	if err != nil {
		return nil, fmt.Errorf("token cache configuration failed: %w", err)
	}
	return store, nil
}

func printError(w io.Writer, err error, asJSON bool) {
	if !asJSON {
		fmt.Fprintf(w, "Error: %s\n", err)
		return
	}

	out, jsonErr := json.MarshalIndent(map[string]string{"error": err.Error()}, "", "  ")
	if jsonErr != nil {
		out = []byte(`{"error":"unprintable error"}`)
	}
	fmt.Fprintln(w, string(out))
}

var errNoToken = errors.New("no access token obtained")
