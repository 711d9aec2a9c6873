package captive_test

import (
	"context"
	"errors"
	"io/fs"
	"net"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/dns/dnsmessage"

	"github.com/byte4ever/gitlink/captive"
	"github.com/byte4ever/gitlink/exec"
)

var apIP = netip.MustParseAddr("10.42.0.1")

type fakeAP struct {
	mu    sync.Mutex
	ups   []string
	downs int
	upErr error
}

func (f *fakeAP) Up(_ context.Context, ssid string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.upErr != nil {
		return f.upErr
	}

	f.ups = append(f.ups, ssid)

	return nil
}

func (f *fakeAP) Down(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.downs++

	return nil
}

func (f *fakeAP) counts() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.ups), f.downs
}

func indexMux() *http.ServeMux {
	mux := captive.NewMux()
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("index"))
	})

	return mux
}

func newPortal(ap captive.AccessPoint, radio *captive.Radio) *captive.Portal {
	return captive.New(captive.Config{
		SSID:        "gitlink-github-auth",
		AccessPoint: ap,
		Address:     apIP,
		HTTPAddr:    "127.0.0.1:0",
		DNSAddr:     "127.0.0.1:0",
		Handler:     indexMux(),
		Radio:       radio,
	})
}

func TestNewMux_probe_paths_redirect(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(indexMux())
	t.Cleanup(srv.Close)

	client := &http.Client{
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	paths := append([]string{"/nope", "/some/deep/path"}, captive.ProbePaths...)

	for _, p := range paths {
		resp, err := client.Get(srv.URL + p)
		require.NoError(t, err, p)

		_ = resp.Body.Close()

		assert.Equal(t, http.StatusFound, resp.StatusCode, p)
		assert.Equal(t, "/", resp.Header.Get("Location"), p)
	}

	resp, err := client.Get(srv.URL + "/")
	require.NoError(t, err)

	_ = resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func dnsQuery(t *testing.T, name string, typ dnsmessage.Type) []byte {
	t.Helper()

	b := dnsmessage.NewBuilder(nil, dnsmessage.Header{
		ID:               0x1234,
		RecursionDesired: true,
	})

	require.NoError(t, b.StartQuestions())
	require.NoError(t, b.Question(dnsmessage.Question{
		Name:  dnsmessage.MustNewName(name),
		Type:  typ,
		Class: dnsmessage.ClassINET,
	}))

	out, err := b.Finish()
	require.NoError(t, err)

	return out
}

func TestAnswer_A_query(t *testing.T) {
	t.Parallel()

	out, err := captive.Answer(
		dnsQuery(t, "connectivitycheck.gstatic.com.", dnsmessage.TypeA),
		apIP,
	)
	require.NoError(t, err)

	var msg dnsmessage.Message
	require.NoError(t, msg.Unpack(out))

	assert.Equal(t, uint16(0x1234), msg.ID)
	assert.True(t, msg.Response)
	assert.Equal(t, dnsmessage.RCodeSuccess, msg.RCode)
	require.Len(t, msg.Questions, 1)
	require.Len(t, msg.Answers, 1)

	a, ok := msg.Answers[0].Body.(*dnsmessage.AResource)
	require.True(t, ok)
	assert.Equal(t, apIP.As4(), a.A)
	assert.Equal(t, uint32(captive.AnswerTTL), msg.Answers[0].Header.TTL)
}

func TestAnswer_other_types_empty(t *testing.T) {
	t.Parallel()

	out, err := captive.Answer(
		dnsQuery(t, "example.com.", dnsmessage.TypeAAAA),
		apIP,
	)
	require.NoError(t, err)

	var msg dnsmessage.Message
	require.NoError(t, msg.Unpack(out))

	assert.Equal(t, dnsmessage.RCodeSuccess, msg.RCode)
	assert.Empty(t, msg.Answers)
}

func TestAnswer_garbage(t *testing.T) {
	t.Parallel()

	_, err := captive.Answer([]byte{0x01}, apIP)

	assert.Error(t, err)
}

func TestDNSServer_answers_over_udp(t *testing.T) {
	t.Parallel()

	srv, err := captive.ListenDNS("127.0.0.1:0", apIP)
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Close() })

	conn, err := net.Dial("udp", srv.Addr().String())
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	require.NoError(t, conn.SetDeadline(time.Now().Add(2*time.Second)))

	_, err = conn.Write(dnsQuery(t, "captive.apple.com.", dnsmessage.TypeA))
	require.NoError(t, err)

	buf := make([]byte, 512)
	n, err := conn.Read(buf)
	require.NoError(t, err)

	var msg dnsmessage.Message
	require.NoError(t, msg.Unpack(buf[:n]))
	require.Len(t, msg.Answers, 1)
	assert.Equal(
		t,
		apIP.As4(),
		msg.Answers[0].Body.(*dnsmessage.AResource).A,
	)
}

func TestListenDNS_rejects_ipv6(t *testing.T) {
	t.Parallel()

	_, err := captive.ListenDNS("127.0.0.1:0", netip.MustParseAddr("::1"))

	assert.Error(t, err)
}

func TestPortal_lifecycle(t *testing.T) {
	t.Parallel()

	ap := &fakeAP{}
	p := newPortal(ap, nil)

	require.NoError(t, p.Stop())

	require.NoError(t, p.Start(context.Background()))
	require.NoError(t, p.Start(context.Background()))

	assert.True(t, p.Active())
	assert.True(t, p.APActive())
	assert.NotEmpty(t, p.DNSAddr())

	resp, err := http.Get("http://" + p.HTTPAddr() + "/")
	require.NoError(t, err)

	_ = resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, p.Stop())
	require.NoError(t, p.Stop())

	assert.False(t, p.Active())
	assert.False(t, p.APActive())
	assert.Empty(t, p.DNSAddr())

	ups, downs := ap.counts()
	assert.Equal(t, 1, ups)
	assert.Equal(t, 1, downs)
}

func TestPortal_Complete_first_wins(t *testing.T) {
	t.Parallel()

	p := newPortal(&fakeAP{}, nil)

	assert.False(t, p.Complete(captive.Outcome{Token: "early"}))

	require.NoError(t, p.Start(context.Background()))
	t.Cleanup(func() { _ = p.Stop() })

	assert.True(t, p.Complete(captive.Outcome{Token: "first"}))
	assert.False(t, p.Complete(captive.Outcome{Token: "second"}))
	assert.True(t, p.TokenReceived())

	got := <-p.Outcome()
	assert.Equal(t, "first", got.Token)

	select {
	case o := <-p.Outcome():
		t.Fatalf("unexpected second outcome %+v", o)
	default:
	}
}

func TestPortal_Stop_discards_outcome(t *testing.T) {
	t.Parallel()

	p := newPortal(&fakeAP{}, nil)

	require.NoError(t, p.Start(context.Background()))

	ch := p.Outcome()
	require.True(t, p.Complete(captive.Outcome{Token: "tok"}))
	require.NoError(t, p.Stop())

	assert.False(t, p.TokenReceived())

	select {
	case o := <-ch:
		t.Fatalf("outcome survived stop: %+v", o)
	default:
	}

	assert.False(t, p.Complete(captive.Outcome{Token: "late"}))
}

func TestPortal_Start_ap_failure(t *testing.T) {
	t.Parallel()

	p := newPortal(&fakeAP{upErr: errors.New("no wifi")}, nil)

	err := p.Start(context.Background())

	require.Error(t, err)
	assert.False(t, p.Active())
	assert.False(t, p.APActive())
}

func TestRadio_one_portal_at_a_time(t *testing.T) {
	t.Parallel()

	radio := &captive.Radio{}
	ap := &fakeAP{}

	first := newPortal(ap, radio)
	second := newPortal(ap, radio)

	require.NoError(t, first.Start(context.Background()))
	require.NoError(t, second.Start(context.Background()))
	t.Cleanup(func() { _ = second.Stop() })

	assert.False(t, first.Active())
	assert.True(t, second.Active())
	assert.Same(t, second, radio.Current())
}

type recordRunner struct {
	mu    sync.Mutex
	calls []string
}

func (r *recordRunner) Run(
	_ context.Context,
	name string,
	arg ...string,
) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.calls = append(r.calls, name+" "+strings.Join(arg, " "))

	return "", nil
}

func TestHotspot_commands(t *testing.T) {
	t.Parallel()

	run := &recordRunner{}
	h := captive.Hotspot{
		Interface:  "wlan0",
		Address:    apIP,
		Password:   "s3cretpass",
		Runner:     run,
		DNSConfDir: t.TempDir(),
	}

	require.NoError(t, h.Up(context.Background(), "gitlink-auth-gith"))
	require.NoError(t, h.Down(context.Background()))

	require.Len(t, run.calls, 5)
	assert.Equal(t, "nmcli connection delete gitlink-ap", run.calls[0])
	assert.Contains(t, run.calls[1], "ssid gitlink-auth-gith")
	assert.Contains(t, run.calls[1], "ipv4.addresses 10.42.0.1/24")
	assert.Contains(t, run.calls[1], "wifi-sec.psk s3cretpass")
	assert.Equal(t, "nmcli connection up gitlink-ap", run.calls[2])
	assert.Equal(t, "nmcli connection down gitlink-ap", run.calls[3])
	assert.Equal(t, "nmcli connection delete gitlink-ap", run.calls[4])
}

func TestHotspot_open_network(t *testing.T) {
	t.Parallel()

	run := &recordRunner{}
	h := captive.Hotspot{Interface: "wlan0", Runner: run}

	require.NoError(t, h.Up(context.Background(), "open"))

	assert.NotContains(t, run.calls[1], "wifi-sec")
}

func TestHotspot_empty_ssid(t *testing.T) {
	t.Parallel()

	run := &recordRunner{}

	err := captive.Hotspot{Runner: run}.Up(context.Background(), "")

	require.Error(t, err)
	assert.Empty(t, run.calls)
}

func TestHotspot_hands_dns_to_responder(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	h := captive.Hotspot{
		Interface:  "wlan0",
		Address:    apIP,
		Runner:     &recordRunner{},
		DNSConfDir: dir,
	}
	conf := filepath.Join(dir, captive.DefaultConnection+".conf")

	require.NoError(t, h.Up(context.Background(), "gitlink-auth-gith"))

	b, err := os.ReadFile(conf)
	require.NoError(t, err)
	assert.Equal(
		t,
		"port=0\ndhcp-option=option:dns-server,10.42.0.1\n",
		string(b),
	)
	assert.Equal(t, apIP, h.BindAddress())

	require.NoError(t, h.Down(context.Background()))

	_, err = os.Stat(conf)
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

type boundAP struct {
	fakeAP
	addr netip.Addr
}

func (b *boundAP) BindAddress() netip.Addr { return b.addr }

func TestPortal_dns_binds_access_point_address(t *testing.T) {
	t.Parallel()

	p := captive.New(captive.Config{
		SSID:        "gitlink-github-auth",
		AccessPoint: &boundAP{addr: netip.MustParseAddr("127.0.0.1")},
		Address:     apIP,
		HTTPAddr:    "127.0.0.1:0",
		DNSAddr:     ":0",
		Handler:     indexMux(),
	})

	require.NoError(t, p.Start(context.Background()))
	t.Cleanup(func() { _ = p.Stop() })

	host, _, err := net.SplitHostPort(p.DNSAddr())
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1", host)
}

func TestRadio_preemption_runs_OnStop(t *testing.T) {
	t.Parallel()

	radio := &captive.Radio{}
	ap := &fakeAP{}

	var stops atomic.Int32

	first := captive.New(captive.Config{
		SSID:        "first",
		AccessPoint: ap,
		Address:     apIP,
		HTTPAddr:    "127.0.0.1:0",
		Handler:     indexMux(),
		Radio:       radio,
		OnStop:      func() { stops.Add(1) },
	})
	second := newPortal(ap, radio)

	require.NoError(t, first.Start(context.Background()))
	require.NoError(t, second.Start(context.Background()))
	t.Cleanup(func() { _ = second.Stop() })

	assert.Equal(t, int32(1), stops.Load())

	require.NoError(t, first.Stop())
	assert.Equal(t, int32(1), stops.Load(), "stopped portal stays quiet")
}

func TestPortal_Stop_while_handler_completes(t *testing.T) {
	t.Parallel()

	entered := make(chan struct{})
	proceed := make(chan struct{})
	delivered := make(chan bool, 1)

	var p *captive.Portal

	mux := captive.NewMux()
	mux.HandleFunc("POST /token", func(w http.ResponseWriter, _ *http.Request) {
		close(entered)
		<-proceed

		delivered <- p.Complete(captive.Outcome{Token: "tok"})

		w.WriteHeader(http.StatusNoContent)
	})

	p = captive.New(captive.Config{
		SSID:     "gitlink-github-auth",
		Address:  apIP,
		HTTPAddr: "127.0.0.1:0",
		Handler:  mux,
	})
	require.NoError(t, p.Start(context.Background()))

	go func() {
		resp, err := http.Post(
			"http://"+p.HTTPAddr()+"/token", "text/plain", nil,
		)
		if err == nil {
			_ = resp.Body.Close()
		}
	}()

	<-entered

	stopped := make(chan error, 1)
	begun := time.Now()

	go func() { stopped <- p.Stop() }()

	require.Eventually(t, func() bool {
		return !p.Active()
	}, time.Second, 5*time.Millisecond)

	close(proceed)

	select {
	case err := <-stopped:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Stop did not return")
	}

	assert.Less(t, time.Since(begun), time.Second)
	assert.False(t, <-delivered)
}

var _ exec.Runner = (*recordRunner)(nil)
