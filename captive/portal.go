package captive

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/netip"
	"sync"
	"sync/atomic"
	"time"
)

const shutdownTimeout = 2 * time.Second

// Config describes one portal.
type Config struct {
	// SSID is the network name advertised by the access
	// point.
	SSID string
	// AccessPoint defaults to NoAccessPoint.
	AccessPoint AccessPoint
	// Address is the access point IP handed out by the
	// DNS responder.
	Address netip.Addr
	// HTTPAddr is the listen address of the web server.
	HTTPAddr string
	// DNSAddr is the UDP listen address of the DNS
	// responder. Empty disables it. A host-less address
	// such as ":53" is bound to the address of an access
	// point that implements Binder.
	DNSAddr string
	// Handler serves the portal pages, normally built on
	// NewMux.
	Handler http.Handler
	// Radio, when set, allows only one active portal
	// among those sharing it.
	Radio *Radio
	// OnStop runs after every Stop of a started portal,
	// including the one a Radio forces on pre-emption.
	OnStop func()
}

// Portal owns the access point, DNS responder and HTTP
// listener of one captive portal.
type Portal struct {
	cfg Config

	// life serializes Start and Stop; mu guards the
	// fields and is never held across network teardown.
	life sync.Mutex

	mu       sync.Mutex
	running  bool
	listener net.Listener
	server   *http.Server
	dns      *DNSServer
	outcome  chan Outcome
	once     *sync.Once

	apActive atomic.Bool
	received atomic.Bool
}

// New returns a stopped portal.
func New(cfg Config) *Portal {
	if cfg.AccessPoint == nil {
		cfg.AccessPoint = NoAccessPoint{}
	}

	return &Portal{cfg: cfg}
}

// SetHandler replaces the HTTP handler. It takes effect
// on the next Start.
func (p *Portal) SetHandler(h http.Handler) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.cfg.Handler = h
}

// Start tears down any other portal on the same radio,
// then brings up the access point, the DNS responder
// and the HTTP listener. Starting a running portal is a
// no-op.
func (p *Portal) Start(ctx context.Context) error {
	const errCtx = "starting portal"

	if p.cfg.Radio != nil {
		p.cfg.Radio.claim(p)
	}

	p.life.Lock()
	defer p.life.Unlock()

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return nil
	}

	if p.cfg.Handler == nil {
		return fmt.Errorf("%s: no handler", errCtx)
	}

	if err := p.cfg.AccessPoint.Up(ctx, p.cfg.SSID); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	p.apActive.Store(true)

	if p.cfg.DNSAddr != "" {
		dns, err := ListenDNS(
			dnsListenAddr(p.cfg.DNSAddr, p.cfg.AccessPoint),
			p.cfg.Address,
		)
		if err != nil {
			_ = p.detach().release()

			return fmt.Errorf("%s: %w", errCtx, err)
		}

		p.dns = dns
	}

	ln, err := net.Listen("tcp", p.cfg.HTTPAddr)
	if err != nil {
		_ = p.detach().release()

		return fmt.Errorf("%s: %w", errCtx, err)
	}

	p.listener = ln
	p.server = &http.Server{
		Handler:           p.cfg.Handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	p.outcome = make(chan Outcome, 1)
	p.once = new(sync.Once)
	p.received.Store(false)
	p.running = true

	go func(srv *http.Server) {
		if err := srv.Serve(ln); err != nil &&
			!errors.Is(err, http.ErrServerClosed) {
			slog.Error("portal server stopped", "error", err)
		}
	}(p.server)

	slog.Info(
		"portal started",
		"ssid", p.cfg.SSID,
		"http", ln.Addr().String(),
	)

	return nil
}

// Stop releases the DNS socket, the HTTP listener and
// the access point, and discards any undelivered
// outcome. Safe to call twice or before Start.
func (p *Portal) Stop() error {
	p.life.Lock()
	defer p.life.Unlock()

	p.mu.Lock()

	if !p.running && !p.apActive.Load() {
		p.mu.Unlock()

		return nil
	}

	held := p.detach()
	p.mu.Unlock()

	// In-flight handlers may still call Complete while
	// the server drains.
	err := held.release()

	if p.cfg.OnStop != nil {
		p.cfg.OnStop()
	}

	slog.Info("portal stopped", "ssid", p.cfg.SSID)

	return err
}

// dnsListenAddr binds a host-less addr to the address of
// an access point that implements Binder.
func dnsListenAddr(addr string, ap AccessPoint) string {
	b, ok := ap.(Binder)
	if !ok {
		return addr
	}

	host, port, err := net.SplitHostPort(addr)
	if err != nil || host != "" {
		return addr
	}

	ip := b.BindAddress()
	if !ip.IsValid() {
		return addr
	}

	return net.JoinHostPort(ip.String(), port)
}

// resources are what a started portal holds.
type resources struct {
	server *http.Server
	dns    *DNSServer
	ap     AccessPoint
}

// detach moves the resources out of p and resets the
// session. The caller holds p.mu.
func (p *Portal) detach() resources {
	held := resources{server: p.server, dns: p.dns}

	if p.apActive.Swap(false) {
		held.ap = p.cfg.AccessPoint
	}

	p.server = nil
	p.listener = nil
	p.dns = nil

	if p.outcome != nil {
		select {
		case <-p.outcome:
		default:
		}
	}

	p.once = nil
	p.received.Store(false)
	p.running = false

	return held
}

func (r resources) release() error {
	var errs []error

	if r.server != nil {
		ctx, cancel := context.WithTimeout(
			context.Background(), shutdownTimeout,
		)

		if err := r.server.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}

		cancel()
	}

	if r.dns != nil {
		if err := r.dns.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	if r.ap != nil {
		ctx, cancel := context.WithTimeout(
			context.Background(), shutdownTimeout,
		)

		if err := r.ap.Down(ctx); err != nil {
			errs = append(errs, err)
		}

		cancel()
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("stopping portal: %w", err)
	}

	return nil
}

// Complete hands o to the foreground loop. Only the
// first call of a session is delivered; it reports
// whether this one was.
func (p *Portal) Complete(o Outcome) bool {
	p.mu.Lock()
	ch, once := p.outcome, p.once
	p.mu.Unlock()

	if once == nil {
		return false
	}

	delivered := false

	once.Do(func() {
		if o.Err == nil && o.Token != "" {
			p.received.Store(true)
		}

		ch <- o
		delivered = true
	})

	return delivered
}

// Outcome returns the channel that receives the session
// result. It is nil before the first Start.
func (p *Portal) Outcome() <-chan Outcome {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.outcome
}

// Active reports whether the portal is running.
func (p *Portal) Active() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.running
}

// APActive reports whether the access point is up.
func (p *Portal) APActive() bool {
	return p.apActive.Load()
}

// TokenReceived reports whether a token was delivered
// in the current session.
func (p *Portal) TokenReceived() bool {
	return p.received.Load()
}

// SSID returns the advertised network name.
func (p *Portal) SSID() string {
	return p.cfg.SSID
}

// Address returns the access point IP.
func (p *Portal) Address() netip.Addr {
	return p.cfg.Address
}

// HTTPAddr returns the bound listener address, or the
// configured one when stopped.
func (p *Portal) HTTPAddr() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.listener != nil {
		return p.listener.Addr().String()
	}

	return p.cfg.HTTPAddr
}

// DNSAddr returns the bound DNS socket address, or empty
// when the responder is not running.
func (p *Portal) DNSAddr() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.dns == nil {
		return ""
	}

	return p.dns.Addr().String()
}

// Radio allows one active portal at a time.
type Radio struct {
	mu      sync.Mutex
	current *Portal
}

func (r *Radio) claim(p *Portal) {
	r.mu.Lock()
	prev := r.current
	r.current = p
	r.mu.Unlock()

	if prev == nil || prev == p {
		return
	}

	if err := prev.Stop(); err != nil {
		slog.Warn("stopping previous portal", "error", err)
	}
}

// Current returns the portal that last started on r.
func (r *Radio) Current() *Portal {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.current
}
