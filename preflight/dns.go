// Package preflight runs non-fatal sanity checks before provisioning
// starts. A failed check is logged and the run continues; certificates
// for a domain that does not resolve yet are still useful once DNS
// propagates.
package preflight

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/miekg/dns"

	"github.com/proxynode/installer/interfaces"
)

// DNSCheck verifies that the configured domain has an address record.
type DNSCheck struct {
	// Resolver is the "host:port" of the DNS server to query. Empty
	// means the first server from /etc/resolv.conf.
	Resolver string

	Log *slog.Logger
}

// Run queries A then AAAA for the domain and logs a warning when neither
// yields an answer. It never fails the provisioning run.
func (c *DNSCheck) Run(ctx context.Context, domain interfaces.Domain) {
	if err := c.resolves(ctx, domain); err != nil {
		c.Log.Warn("Domain does not currently resolve; the issued certificate will only be valid once DNS is in place",
			"domain", domain.String(), "err", err)
		return
	}
	c.Log.Debug("Domain resolves", "domain", domain.String())
}

func (c *DNSCheck) resolves(ctx context.Context, domain interfaces.Domain) error {
	resolver := c.Resolver
	if resolver == "" {
		conf, err := dns.ClientConfigFromFile("/etc/resolv.conf")
		if err != nil {
			return fmt.Errorf("failed to read resolver config: %w", err)
		}
		if len(conf.Servers) == 0 {
			return fmt.Errorf("no resolvers configured")
		}
		resolver = net.JoinHostPort(conf.Servers[0], conf.Port)
	}

	client := &dns.Client{Timeout: 5 * time.Second}
	var lastErr error
	for _, qtype := range []uint16{dns.TypeA, dns.TypeAAAA} {
		m := new(dns.Msg)
		m.SetQuestion(dns.Fqdn(domain.String()), qtype)

		resp, _, err := client.ExchangeContext(ctx, m, resolver)
		if err != nil {
			lastErr = err
			continue
		}
		if resp.Rcode == dns.RcodeSuccess && len(resp.Answer) > 0 {
			return nil
		}
		lastErr = fmt.Errorf("no answer (rcode %s)", dns.RcodeToString[resp.Rcode])
	}

	return fmt.Errorf("no address record for %s: %w", domain, lastErr)
}
