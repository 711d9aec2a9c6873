package device

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/byte4ever/gitlink/captive"
	"github.com/byte4ever/gitlink/git"
	"github.com/byte4ever/gitlink/oauthflow"
	"github.com/byte4ever/gitlink/qrportal"
	"github.com/byte4ever/gitlink/session"
	"github.com/byte4ever/gitlink/settings"
	"github.com/byte4ever/gitlink/templating"
	"github.com/byte4ever/gitlink/tokenportal"
	"github.com/byte4ever/gitlink/transport"
)

// Config wires a Controller to its collaborators.
type Config struct {
	Env   settings.Env
	Store settings.Store
	// AccessPoint defaults to an nmcli hotspot on
	// Env.APInterface.
	AccessPoint captive.AccessPoint
	// HTTPClient carries every outbound request. Nil
	// means the shared transport client with
	// Env.RequestTimeout.
	HTTPClient *http.Client
	Renderer   qrportal.QRRenderer
	Engine     *templating.Engine
	// DeviceName is written in commit trailers.
	DeviceName string
}

// Controller drives one device. It is safe for use by
// one foreground goroutine.
type Controller struct {
	env        settings.Env
	store      settings.Store
	ap         captive.AccessPoint
	httpClient *http.Client
	renderer   qrportal.QRRenderer
	engine     *templating.Engine
	deviceName string

	holder *session.Holder
	radio  *captive.Radio
}

// New returns a controller with no provider selected.
// With Env.OAuthSimulate every provider is the in-memory
// simulated backend and tokens are kept in memory, so a
// saved real token is never replaced.
func New(cfg Config) *Controller {
	if cfg.Env.OAuthSimulate {
		cfg.Store = settings.Layered{
			Secrets: settings.NewMemoryStore(),
			Plain:   cfg.Store,
			Route:   settings.IsToken,
		}
	}

	if cfg.AccessPoint == nil {
		cfg.AccessPoint = captive.Hotspot{
			Interface: cfg.Env.APInterface,
			Address:   cfg.Env.AccessPointIP(),
			Password:  cfg.Env.APPassword,
		}
	}

	if cfg.HTTPClient == nil {
		cfg.HTTPClient = transport.NewClient(nil, cfg.Env.RequestTimeout)
	}

	if cfg.Engine == nil {
		cfg.Engine = &templating.Engine{}
	}

	return &Controller{
		env:        cfg.Env,
		store:      cfg.Store,
		ap:         cfg.AccessPoint,
		httpClient: cfg.HTTPClient,
		renderer:   cfg.Renderer,
		engine:     cfg.Engine,
		deviceName: cfg.DeviceName,
		holder:     session.NewHolder(),
		radio:      &captive.Radio{},
	}
}

// Holder returns the session holder.
func (c *Controller) Holder() *session.Holder {
	return c.holder
}

// Store returns the settings store.
func (c *Controller) Store() settings.Store {
	return c.store
}

// Kind returns the saved provider kind, GitHub when
// none is saved.
func (c *Controller) Kind() (session.Kind, error) {
	raw, err := settings.GetOr(c.store, settings.KeyProvider, "")
	if err != nil {
		return "", fmt.Errorf("reading provider kind: %w", err)
	}

	if raw == "" {
		return session.GitHub, nil
	}

	return session.ParseKind(raw)
}

// Select makes kind the current provider, pointed at
// the saved API URL when there is one, and saves kind
// as the default.
func (c *Controller) Select(kind session.Kind) (git.Provider, error) {
	const errCtx = "selecting provider"

	apiURL, err := settings.GetOr(
		c.store, kind.Key(settings.SuffixAPIURL), "",
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	p, err := c.holder.Select(kind, c.options(apiURL))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	if err := c.store.Set(settings.KeyProvider, kind.String()); err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	return p, nil
}

// Connect returns the current provider, authenticating
// it with the saved token when needed.
func (c *Controller) Connect(ctx context.Context) (git.Provider, error) {
	const errCtx = "connecting"

	if p, err := c.holder.Current(); err == nil && p.IsAuthenticated() {
		return p, nil
	}

	kind, err := c.Kind()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	token, err := c.store.Get(kind.Key(settings.SuffixToken))
	if errors.Is(err, settings.ErrNotFound) {
		return nil, fmt.Errorf(
			"%s: no saved %s token: %w",
			errCtx, kind.DisplayName(), git.ErrNotAuthenticated,
		)
	}

	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	p, err := c.Select(kind)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	if err := p.Begin(ctx, token); err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	return p, nil
}

// AuthenticateToken selects kind, checks token against
// the backend and saves it. It returns the login.
func (c *Controller) AuthenticateToken(
	ctx context.Context,
	kind session.Kind,
	token string,
) (string, error) {
	const errCtx = "authenticating"

	token = strings.TrimSpace(token)

	p, err := c.Select(kind)
	if err != nil {
		return "", fmt.Errorf("%s: %w", errCtx, err)
	}

	if err := p.Begin(ctx, token); err != nil {
		return "", fmt.Errorf("%s: %w", errCtx, err)
	}

	for key, val := range map[string]string{
		kind.Key(settings.SuffixToken):   token,
		kind.Key(settings.SuffixEnabled): strconv.FormatBool(true),
	} {
		if err := c.store.Set(key, val); err != nil {
			return "", fmt.Errorf("%s: saving %s: %w", errCtx, key, err)
		}
	}

	slog.Info(
		"authenticated",
		"kind", kind,
		"login", p.Username(),
	)

	return p.Username(), nil
}

// AuthenticatePortal waits for portal to deliver a
// token, then authenticates kind with it.
func (c *Controller) AuthenticatePortal(
	ctx context.Context,
	kind session.Kind,
	portal Portal,
	cancel Canceller,
) (string, error) {
	token, err := c.Await(ctx, portal, cancel)
	if err != nil {
		return "", err
	}

	return c.AuthenticateToken(ctx, kind, token)
}

func (c *Controller) portalConfig(ssid string) captive.Config {
	return captive.Config{
		SSID:        ssid,
		AccessPoint: c.ap,
		Address:     c.env.AccessPointIP(),
		HTTPAddr:    c.env.HTTPAddr,
		DNSAddr:     c.env.DNSAddr,
		Radio:       c.radio,
	}
}

// TokenPortal builds the manual-token portal for kind.
func (c *Controller) TokenPortal(kind session.Kind) *tokenportal.Portal {
	return tokenportal.New(tokenportal.Config{
		Kind:   kind,
		Engine: c.engine,
		Portal: c.portalConfig(tokenportal.SSID(kind)),
	})
}

// OAuthFlow builds the OAuth portal for kind from the
// saved client credentials, or the simulated exchanger
// and backend when GITLINK_OAUTH_SIMULATE is set.
func (c *Controller) OAuthFlow(kind session.Kind) (*oauthflow.Flow, error) {
	return c.oauthFlow(kind, oauthflow.SSID(kind))
}

func (c *Controller) oauthFlow(
	kind session.Kind,
	ssid string,
) (*oauthflow.Flow, error) {
	const errCtx = "building oauth flow"

	cfg := oauthflow.Config{
		Kind:       kind,
		HTTPClient: c.httpClient,
		Store:      c.store,
		Engine:     c.engine,
		Portal:     c.portalConfig(ssid),
	}

	prober, err := c.prober(kind)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	cfg.Prober = prober

	if c.env.OAuthSimulate {
		cfg.Exchanger = oauthflow.Simulated{}
	} else {
		cfg.ClientID, err = settings.GetOr(
			c.store, kind.Key(settings.SuffixClientID), "",
		)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", errCtx, err)
		}

		cfg.ClientSecret, err = settings.GetOr(
			c.store, kind.Key(settings.SuffixClientSecret), "",
		)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", errCtx, err)
		}
	}

	f, err := oauthflow.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	return f, nil
}

func (c *Controller) options(apiURL string) session.Options {
	return session.Options{
		APIBaseURL: apiURL,
		HTTPClient: c.httpClient,
		Simulated:  c.env.OAuthSimulate,
	}
}

// prober returns a throwaway provider of kind used only
// to validate tokens.
func (c *Controller) prober(kind session.Kind) (git.Prober, error) {
	apiURL, err := settings.GetOr(
		c.store, kind.Key(settings.SuffixAPIURL), "",
	)
	if err != nil {
		return nil, err
	}

	p, err := session.New(kind, c.options(apiURL))
	if err != nil {
		return nil, err
	}

	prober, ok := p.(git.Prober)
	if !ok {
		return nil, fmt.Errorf("%s cannot probe tokens: %w", kind, git.ErrUnsupported)
	}

	return prober, nil
}

// QRPortal builds the QR portal for kind. OAuth is
// offered when client credentials are saved or
// simulation is on; otherwise only token entry is.
func (c *Controller) QRPortal(kind session.Kind) (*qrportal.Portal, error) {
	cfg := qrportal.Config{
		Kind:     kind,
		Simulate: c.env.OAuthSimulate,
		Renderer: c.renderer,
		Engine:   c.engine,
		Portal:   c.portalConfig(qrportal.SSID(kind)),
	}

	if !c.env.OAuthSimulate {
		flow, err := c.oauthFlow(kind, qrportal.SSID(kind))

		switch {
		case errors.Is(err, oauthflow.ErrNotConfigured):
			slog.Info("oauth not configured, qr portal offers token entry only", "kind", kind)
		case err != nil:
			return nil, fmt.Errorf("building qr portal: %w", err)
		default:
			cfg.Flow = flow
		}
	}

	return qrportal.New(cfg), nil
}

// TestConnection fetches the authenticated user.
func (c *Controller) TestConnection(ctx context.Context) (git.User, error) {
	const errCtx = "testing connection"

	p, err := c.Connect(ctx)
	if err != nil {
		return git.User{}, fmt.Errorf("%s: %w", errCtx, err)
	}

	u, err := p.GetUser(ctx, "")
	if err != nil {
		return git.User{}, fmt.Errorf("%s: %w", errCtx, err)
	}

	return u, nil
}

// Disconnect ends the session and forgets the saved
// token of the current kind.
func (c *Controller) Disconnect() error {
	const errCtx = "disconnecting"

	kind := c.holder.Kind()
	if kind == "" {
		var err error

		kind, err = c.Kind()
		if err != nil {
			return fmt.Errorf("%s: %w", errCtx, err)
		}
	}

	c.holder.Clear()

	if err := c.store.Delete(kind.Key(settings.SuffixToken)); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	if err := c.store.Set(
		kind.Key(settings.SuffixEnabled), strconv.FormatBool(false),
	); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	slog.Info("disconnected", "kind", kind)

	return nil
}

// DefaultRepo returns the saved default repository.
func (c *Controller) DefaultRepo() (git.RepoRef, error) {
	raw, err := c.store.Get(settings.KeyDefaultRepo)
	if err != nil {
		return git.RepoRef{}, fmt.Errorf("reading default repository: %w", err)
	}

	return git.ParseRepoRef(raw)
}
