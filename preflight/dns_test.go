package preflight

import (
	"context"
	"io"
	"log/slog"
	"net"
	"testing"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/require"

	"github.com/proxynode/installer/interfaces"
)

func startTestResolver(t *testing.T, records map[string]string) string {
	t.Helper()

	mux := dns.NewServeMux()
	mux.HandleFunc(".", func(w dns.ResponseWriter, r *dns.Msg) {
		m := new(dns.Msg)
		m.SetReply(r)
		q := r.Question[0]
		if addr, ok := records[q.Name]; ok && q.Qtype == dns.TypeA {
			m.Answer = append(m.Answer, &dns.A{
				Hdr: dns.RR_Header{Name: q.Name, Rrtype: dns.TypeA, Class: dns.ClassINET, Ttl: 60},
				A:   net.ParseIP(addr),
			})
		}
		w.WriteMsg(m)
	})

	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := &dns.Server{PacketConn: pc, Handler: mux}
	go srv.ActivateAndServe()
	t.Cleanup(func() { srv.Shutdown() })

	return pc.LocalAddr().String()
}

func mustDomain(t *testing.T, name string) interfaces.Domain {
	t.Helper()
	domain, err := interfaces.NewDomain(name)
	require.NoError(t, err)
	return domain
}

func TestDNSCheckResolves(t *testing.T) {
	resolver := startTestResolver(t, map[string]string{"proxy.example.com.": "192.0.2.10"})
	check := &DNSCheck{Resolver: resolver, Log: slog.New(slog.NewTextHandler(io.Discard, nil))}

	err := check.resolves(context.Background(), mustDomain(t, "proxy.example.com"))
	require.NoError(t, err)
}

func TestDNSCheckNoRecord(t *testing.T) {
	resolver := startTestResolver(t, nil)
	check := &DNSCheck{Resolver: resolver, Log: slog.New(slog.NewTextHandler(io.Discard, nil))}

	err := check.resolves(context.Background(), mustDomain(t, "proxy.example.com"))
	require.Error(t, err)
}

func TestDNSCheckRunNeverFails(t *testing.T) {
	// Run must swallow resolution failures; it only logs.
	resolver := startTestResolver(t, nil)
	check := &DNSCheck{Resolver: resolver, Log: slog.New(slog.NewTextHandler(io.Discard, nil))}

	check.Run(context.Background(), mustDomain(t, "proxy.example.com"))
}
