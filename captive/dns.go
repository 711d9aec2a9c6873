package captive

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/netip"
	"sync"

	"golang.org/x/net/dns/dnsmessage"
)

// AnswerTTL is the TTL, in seconds, of every A answer.
const AnswerTTL = 60

const maxDNSPacket = 512

// Answer builds the reply to a raw DNS query: every A
// question resolves to ip, every other type gets an
// empty NOERROR reply. A query whose header cannot be
// parsed returns an error and must be dropped.
func Answer(query []byte, ip netip.Addr) ([]byte, error) {
	const errCtx = "answering dns query"

	var p dnsmessage.Parser

	hdr, err := p.Start(query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	resp := dnsmessage.Header{
		ID:                 hdr.ID,
		Response:           true,
		OpCode:             hdr.OpCode,
		Authoritative:      true,
		RecursionDesired:   hdr.RecursionDesired,
		RecursionAvailable: true,
		RCode:              dnsmessage.RCodeSuccess,
	}

	questions, err := p.AllQuestions()
	if err != nil {
		resp.RCode = dnsmessage.RCodeFormatError
		questions = nil
	}

	b := dnsmessage.NewBuilder(
		make([]byte, 0, maxDNSPacket),
		resp,
	)
	b.EnableCompression()

	if err := b.StartQuestions(); err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	for _, q := range questions {
		if err := b.Question(q); err != nil {
			return nil, fmt.Errorf("%s: %w", errCtx, err)
		}
	}

	if err := b.StartAnswers(); err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	for _, q := range questions {
		if q.Type != dnsmessage.TypeA ||
			q.Class != dnsmessage.ClassINET {
			continue
		}

		if err := b.AResource(
			dnsmessage.ResourceHeader{
				Name:  q.Name,
				Type:  dnsmessage.TypeA,
				Class: dnsmessage.ClassINET,
				TTL:   AnswerTTL,
			},
			dnsmessage.AResource{A: ip.As4()},
		); err != nil {
			return nil, fmt.Errorf("%s: %w", errCtx, err)
		}
	}

	out, err := b.Finish()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	return out, nil
}

// DNSServer answers every query on a UDP socket.
type DNSServer struct {
	conn net.PacketConn
	ip   netip.Addr
	wg   sync.WaitGroup
}

// ListenDNS binds addr and starts answering with ip.
func ListenDNS(addr string, ip netip.Addr) (*DNSServer, error) {
	const errCtx = "starting dns responder"

	if !ip.Is4() {
		return nil, fmt.Errorf(
			"%s: %s is not an IPv4 address",
			errCtx, ip,
		)
	}

	conn, err := net.ListenPacket("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	s := &DNSServer{conn: conn, ip: ip}

	s.wg.Add(1)

	go s.serve()

	slog.Info("dns responder listening", "addr", conn.LocalAddr().String())

	return s, nil
}

// Addr returns the bound socket address.
func (s *DNSServer) Addr() net.Addr {
	return s.conn.LocalAddr()
}

// Close releases the socket and waits for the serve
// loop to exit.
func (s *DNSServer) Close() error {
	err := s.conn.Close()

	s.wg.Wait()

	if err != nil && !errors.Is(err, net.ErrClosed) {
		return fmt.Errorf("stopping dns responder: %w", err)
	}

	return nil
}

func (s *DNSServer) serve() {
	defer s.wg.Done()

	buf := make([]byte, maxDNSPacket)

	for {
		n, from, err := s.conn.ReadFrom(buf)
		if errors.Is(err, net.ErrClosed) {
			return
		}

		if err != nil {
			slog.Debug("dns read failed", "error", err)

			continue
		}

		out, err := Answer(buf[:n], s.ip)
		if err != nil {
			slog.Debug("dns query dropped", "from", from.String(), "error", err)

			continue
		}

		if _, err := s.conn.WriteTo(out, from); err != nil {
			slog.Debug("dns write failed", "error", err)
		}
	}
}
