package commands

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"time"

	"golang.org/x/oauth2"

	"tasktracker/internal/auth"
	"tasktracker/internal/backend"
	"tasktracker/internal/config"
	"tasktracker/internal/exitcode"
)

const (
	// OAuth callback timeout
	oauthCallbackTimeout = 5 * time.Minute

	// Token exchange timeout
	tokenExchangeTimeout = 30 * time.Second

	// Starting port for OAuth callback server
	oauthStartPort = 8085

	// Max port attempts
	oauthMaxPortAttempts = 5

	// defaultGoogleList is the task list used when --list is not given.
	defaultGoogleList = "@default"
)

func init() {
	Register(&LoginCmd{})
}

// LoginCmd implements the login command.
type LoginCmd struct {
	account string
	network string
	keyFile string
	list    string
	force   bool
}

// SetAccount sets the account and key file flags (for testing).
func (c *LoginCmd) SetAccount(account, keyFile string) {
	c.account = account
	c.keyFile = keyFile
}

func (c *LoginCmd) Name() string      { return "login" }
func (c *LoginCmd) Aliases() []string { return nil }
func (c *LoginCmd) Synopsis() string  { return "Sign in to the task store" }
func (c *LoginCmd) Usage() string     { return "tasktracker login [common flags] [backend flags]" }
func (c *LoginCmd) NeedsStore() bool  { return false }

func (c *LoginCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.account, "account", "", "")
	fs.StringVar(&c.network, "network", "", "")
	fs.StringVar(&c.keyFile, "key-file", "", "")
	fs.StringVar(&c.list, "list", "", "")
	fs.BoolVar(&c.force, "force", false, "")
}

func (c *LoginCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	cfg := env.Config
	if len(args) > 0 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[0])
		return exitcode.UserError
	}

	k, err := env.Keyring()
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.AuthError
	}

	name := cfg.BackendName()
	if !c.force {
		if existing, err := k.Load(name); err == nil && c.stillValid(ctx, cfg, existing) {
			if !cfg.Quiet {
				fmt.Fprintf(out, "already logged in as %s\n", existing.AccountID)
			}
			return exitcode.Success
		}
	}

	var creds auth.Credentials
	var code int
	switch name {
	case config.BackendNear:
		creds, code = c.loginNear(cfg, errOut)
	case config.BackendGoogle:
		creds, code = c.loginGoogle(ctx, cfg, errOut)
	case config.BackendLocal:
		creds, code = c.loginLocal(errOut)
	default:
		fmt.Fprintf(errOut, "error: unknown backend: %s\n", name)
		return exitcode.UserError
	}
	if code != exitcode.Success {
		return code
	}

	if err := k.Save(creds); err != nil {
		fmt.Fprintf(errOut, "error: failed to save credentials: %v\n", err)
		return exitcode.AuthError
	}
	env.Log.Debug("saved credentials", "backend", name, "account", creds.AccountID)

	if !cfg.Quiet {
		fmt.Fprintf(out, "logged in as %s\n", creds.AccountID)
	}
	return exitcode.Success
}

// stillValid reports whether stored credentials can be reused. Google
// tokens are checked by refreshing them; other backends hold static keys.
func (c *LoginCmd) stillValid(ctx context.Context, cfg *config.Config, creds *auth.Credentials) bool {
	if creds.AccountID == "" {
		return false
	}
	if creds.Backend != config.BackendGoogle {
		return true
	}
	return isTokenValid(ctx, cfg, creds.Token)
}

// loginNear imports a function-call access key written by near-cli.
func (c *LoginCmd) loginNear(cfg *config.Config, errOut io.Writer) (auth.Credentials, int) {
	network := c.network
	if network == "" {
		network = cfg.Near.Network
	}

	path := c.keyFile
	if path == "" {
		if c.account == "" {
			fmt.Fprintln(errOut, "error: --account or --key-file required")
			return auth.Credentials{}, exitcode.UserError
		}
		path = auth.NearKeyPath(cfg.Near.CredentialsDir, network, c.account)
	}

	creds, err := auth.ReadNearKeyFile(path, network, c.account)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintln(errOut, "Create a key with near-cli, for example:")
			fmt.Fprintf(errOut, "  near account import-account using-web-wallet network-config %s\n", network)
		}
		return auth.Credentials{}, exitcode.AuthError
	}
	if err := backend.CheckCredentials(creds); err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return auth.Credentials{}, exitcode.AuthError
	}
	return creds, exitcode.Success
}

// loginLocal signs in to the local store. There is nothing to verify.
func (c *LoginCmd) loginLocal(errOut io.Writer) (auth.Credentials, int) {
	if c.account == "" {
		fmt.Fprintln(errOut, "error: --account required")
		return auth.Credentials{}, exitcode.UserError
	}
	return auth.Credentials{Backend: config.BackendLocal, AccountID: c.account}, exitcode.Success
}

// loginGoogle runs the OAuth authorization code flow with PKCE.
func (c *LoginCmd) loginGoogle(ctx context.Context, cfg *config.Config, errOut io.Writer) (auth.Credentials, int) {
	fail := func() (auth.Credentials, int) { return auth.Credentials{}, exitcode.AuthError }

	if !cfg.HasOAuthClient() {
		fmt.Fprintf(errOut, "error: %s not found\n\n", cfg.OAuthClientPath())
		fmt.Fprintln(errOut, "To use Google Tasks, you need OAuth credentials:")
		fmt.Fprintln(errOut, "")
		fmt.Fprintln(errOut, "1. Go to https://console.cloud.google.com/apis/credentials")
		fmt.Fprintln(errOut, "2. Create a project (or select an existing one)")
		fmt.Fprintln(errOut, "3. Enable the Google Tasks API:")
		fmt.Fprintln(errOut, "   https://console.cloud.google.com/apis/library/tasks.googleapis.com")
		fmt.Fprintln(errOut, "4. Create OAuth 2.0 credentials:")
		fmt.Fprintln(errOut, "   - Click 'Create Credentials' > 'OAuth client ID'")
		fmt.Fprintln(errOut, "   - Choose 'Desktop app' as application type")
		fmt.Fprintln(errOut, "   - Download the JSON file")
		fmt.Fprintln(errOut, "5. Save it as:")
		fmt.Fprintf(errOut, "   %s\n", cfg.OAuthClientPath())
		fmt.Fprintln(errOut, "")
		fmt.Fprintln(errOut, "Then run 'tasktracker login' again.")
		return fail()
	}

	oauthConfig, err := backend.GoogleOAuthConfig(cfg)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return fail()
	}

	port, listener, err := findAvailablePort()
	if err != nil {
		fmt.Fprintf(errOut, "error: could not bind to local port for OAuth callback\n")
		return fail()
	}
	defer listener.Close()

	oauthConfig.RedirectURL = fmt.Sprintf("http://localhost:%d/callback", port)

	verifier := oauth2.GenerateVerifier()
	authURL := oauthConfig.AuthCodeURL("state",
		oauth2.AccessTypeOffline,
		oauth2.S256ChallengeOption(verifier),
	)

	fmt.Fprintln(errOut, "Open this URL in your browser:")
	fmt.Fprintln(errOut, authURL)

	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		code := r.URL.Query().Get("code")
		if code == "" {
			http.Error(w, "No code in callback", http.StatusBadRequest)
			errCh <- fmt.Errorf("no code in callback")
			return
		}
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, "<html><body><h1>Signed in to tasktracker</h1><p>You may close this window.</p></body></html>")
		codeCh <- code
	})

	server := &http.Server{Handler: mux}
	go func() {
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	var code string
	select {
	case code = <-codeCh:
	case err := <-errCh:
		fmt.Fprintf(errOut, "error: %v\n", err)
		return fail()
	case <-time.After(oauthCallbackTimeout):
		fmt.Fprintln(errOut, "error: oauth callback timed out")
		return fail()
	case <-ctx.Done():
		fmt.Fprintln(errOut, "error: cancelled")
		return fail()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	server.Shutdown(shutdownCtx)

	exchangeCtx, cancelExchange := context.WithTimeout(ctx, tokenExchangeTimeout)
	defer cancelExchange()

	token, err := oauthConfig.Exchange(exchangeCtx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		fmt.Fprintf(errOut, "error: failed to exchange code for token: %v\n", err)
		return fail()
	}

	list := c.list
	if list == "" {
		list = defaultGoogleList
	}
	return auth.Credentials{
		Backend:   config.BackendGoogle,
		AccountID: list,
		Token:     token,
	}, exitcode.Success
}

// findAvailablePort tries to find an available port starting from oauthStartPort.
func findAvailablePort() (int, net.Listener, error) {
	for i := 0; i < oauthMaxPortAttempts; i++ {
		port := oauthStartPort + i
		addr := fmt.Sprintf("localhost:%d", port)
		listener, err := net.Listen("tcp", addr)
		if err == nil {
			return port, listener, nil
		}
	}
	return 0, nil, fmt.Errorf("no available port found")
}

// isTokenValid checks if a stored token can still be used.
// Valid means: present, contains a non-empty refresh token, and can be
// refreshed against the OAuth client.
func isTokenValid(ctx context.Context, cfg *config.Config, token *oauth2.Token) bool {
	if token == nil || token.RefreshToken == "" {
		return false
	}

	oauthConfig, err := backend.GoogleOAuthConfig(cfg)
	if err != nil {
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, err = oauthConfig.TokenSource(ctx, token).Token()
	return err == nil
}
