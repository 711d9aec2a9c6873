package captive

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/netip"
	"os"
	"path/filepath"

	"github.com/byte4ever/gitlink/exec"
)

// AccessPoint brings a soft access point up and down.
type AccessPoint interface {
	Up(ctx context.Context, ssid string) error
	Down(ctx context.Context) error
}

// DefaultConnection is the NetworkManager connection
// name used for the hotspot.
const DefaultConnection = "gitlink-ap"

// DefaultDNSConfDir is where NetworkManager reads extra
// options for the dnsmasq it runs in shared mode.
const DefaultDNSConfDir = "/etc/NetworkManager/dnsmasq-shared.d"

// Hotspot drives NetworkManager through nmcli. An empty
// Password makes an open network.
//
// Shared mode starts a dnsmasq that serves DHCP and DNS
// on Address. When Address is set, Up drops a file into
// DNSConfDir that turns the dnsmasq DNS off and makes
// DHCP announce Address as the name server, so clients
// query the portal responder bound to Address:53.
type Hotspot struct {
	Interface  string
	Connection string
	Address    netip.Addr
	Password   string
	Runner     exec.Runner
	// DNSConfDir defaults to DefaultDNSConfDir.
	DNSConfDir string
}

// Binder is implemented by access points whose address
// the portal DNS responder must bind to.
type Binder interface {
	BindAddress() netip.Addr
}

// BindAddress returns Address: the dnsmasq of shared
// mode keeps other sockets on port 53 of the host.
func (h Hotspot) BindAddress() netip.Addr {
	return h.Address
}

func (h Hotspot) runner() exec.Runner {
	if h.Runner == nil {
		return exec.Default
	}

	return h.Runner
}

func (h Hotspot) connection() string {
	if h.Connection == "" {
		return DefaultConnection
	}

	return h.Connection
}

func (h Hotspot) dnsConfPath() string {
	dir := h.DNSConfDir
	if dir == "" {
		dir = DefaultDNSConfDir
	}

	return filepath.Join(dir, h.connection()+".conf")
}

// DNSMasqConf returns the dnsmasq options that hand DNS
// over to a responder on ip.
func DNSMasqConf(ip netip.Addr) string {
	return "port=0\n" +
		"dhcp-option=option:dns-server," + ip.String() + "\n"
}

func (h Hotspot) writeDNSConf() error {
	if !h.Address.IsValid() {
		slog.Warn(
			"access point address unset, dnsmasq keeps serving dns",
			"interface", h.Interface,
		)

		return nil
	}

	path := h.dnsConfPath()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("writing dnsmasq options: %w", err)
	}

	if err := os.WriteFile(
		path, []byte(DNSMasqConf(h.Address)), 0o644,
	); err != nil {
		return fmt.Errorf("writing dnsmasq options: %w", err)
	}

	return nil
}

func (h Hotspot) removeDNSConf() error {
	err := os.Remove(h.dnsConfPath())
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing dnsmasq options: %w", err)
	}

	return nil
}

// Up creates the hotspot connection and activates it. A
// stale connection with the same name is replaced.
func (h Hotspot) Up(ctx context.Context, ssid string) error {
	const errCtx = "starting access point"

	if ssid == "" {
		return fmt.Errorf("%s: empty ssid", errCtx)
	}

	run := h.runner()
	name := h.connection()

	// Ignore the error: the connection usually does not
	// exist yet.
	_, _ = run.Run(ctx, "nmcli", "connection", "delete", name)

	args := []string{
		"connection", "add",
		"type", "wifi",
		"ifname", h.Interface,
		"con-name", name,
		"autoconnect", "no",
		"ssid", ssid,
		"802-11-wireless.mode", "ap",
		"ipv4.method", "shared",
	}

	if h.Address.IsValid() {
		args = append(
			args,
			"ipv4.addresses", h.Address.String()+"/24",
		)
	}

	if h.Password != "" {
		args = append(
			args,
			"wifi-sec.key-mgmt", "wpa-psk",
			"wifi-sec.psk", h.Password,
		)
	}

	if _, err := run.Run(ctx, "nmcli", args...); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	// dnsmasq reads the directory when the connection
	// comes up.
	if err := h.writeDNSConf(); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	if _, err := run.Run(
		ctx, "nmcli", "connection", "up", name,
	); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	slog.Info(
		"access point up",
		"ssid", ssid,
		"interface", h.Interface,
	)

	return nil
}

// Down deactivates and removes the hotspot connection.
func (h Hotspot) Down(ctx context.Context) error {
	const errCtx = "stopping access point"

	run := h.runner()
	name := h.connection()

	_, _ = run.Run(ctx, "nmcli", "connection", "down", name)

	if _, err := run.Run(
		ctx, "nmcli", "connection", "delete", name,
	); err != nil {
		return fmt.Errorf("%s: %w", errCtx, errors.Join(err, h.removeDNSConf()))
	}

	if err := h.removeDNSConf(); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	slog.Info("access point down", "interface", h.Interface)

	return nil
}

// NoAccessPoint is used when the host already sits on
// the network the client device will use, for instance
// a laptop on the office wifi.
type NoAccessPoint struct{}

// Up implements AccessPoint.
func (NoAccessPoint) Up(_ context.Context, ssid string) error {
	slog.Info("access point skipped", "ssid", ssid)

	return nil
}

// Down implements AccessPoint.
func (NoAccessPoint) Down(context.Context) error {
	return nil
}
