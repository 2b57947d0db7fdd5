// Package discovery publishes and finds the hand-tracking service over
// multicast DNS service discovery.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"sync"

	"github.com/grandcat/zeroconf"
)

// Service defaults.
const (
	DefaultServiceName = "handTrackingService"
	DefaultServiceType = "_handTracking._tcp"
	DefaultDomain      = "local."
)

// Advertiser publishes the server's control port.
type Advertiser interface {
	// Register publishes the endpoint on port.
	Register(port int) error
	// Shutdown withdraws the advertisement.
	Shutdown()
}

// ZeroconfAdvertiser advertises over mDNS/DNS-SD.
type ZeroconfAdvertiser struct {
	name    string
	service string
	domain  string

	mu     sync.Mutex
	server *zeroconf.Server
}

// NewZeroconfAdvertiser creates an advertiser for the given instance name,
// service type and domain.
func NewZeroconfAdvertiser(name, service, domain string) *ZeroconfAdvertiser {
	return &ZeroconfAdvertiser{
		name:    name,
		service: service,
		domain:  domain,
	}
}

// Register publishes the service on port.
func (z *ZeroconfAdvertiser) Register(port int) error {
	z.mu.Lock()
	defer z.mu.Unlock()

	if z.server != nil {
		return errors.New("service already registered")
	}

	log.Printf("Registration starting: name=%s type=%s port=%d", z.name, z.service, port)
	server, err := zeroconf.Register(z.name, z.service, z.domain, port, []string{"txtvers=1"}, nil)
	if err != nil {
		return fmt.Errorf("register %s: %w", z.service, err)
	}
	z.server = server
	log.Printf("Registered %s.%s%s", z.name, z.service, z.domain)
	return nil
}

// Shutdown withdraws the advertisement. It is safe to call more than once.
func (z *ZeroconfAdvertiser) Shutdown() {
	z.mu.Lock()
	defer z.mu.Unlock()

	if z.server == nil {
		return
	}
	log.Println("Registration stopping")
	z.server.Shutdown()
	z.server = nil
}

// Endpoint is a discovered server.
type Endpoint struct {
	Instance string
	Host     string
	Addrs    []net.IP
	Port     int
}

// Address returns host:port for the first known address.
func (e Endpoint) Address() string {
	if len(e.Addrs) > 0 {
		return net.JoinHostPort(e.Addrs[0].String(), fmt.Sprint(e.Port))
	}
	return net.JoinHostPort(e.Host, fmt.Sprint(e.Port))
}

// Browse looks up instances of service until ctx is done. Endpoints are sent
// on the returned channel, which is closed when browsing stops.
func Browse(ctx context.Context, service, domain string) (<-chan Endpoint, error) {
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("create resolver: %w", err)
	}

	entries := make(chan *zeroconf.ServiceEntry)
	if err := resolver.Browse(ctx, service, domain, entries); err != nil {
		return nil, fmt.Errorf("browse %s: %w", service, err)
	}

	out := make(chan Endpoint)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case entry, ok := <-entries:
				if !ok {
					return
				}
				addrs := append([]net.IP{}, entry.AddrIPv4...)
				addrs = append(addrs, entry.AddrIPv6...)
				ep := Endpoint{
					Instance: entry.Instance,
					Host:     entry.HostName,
					Addrs:    addrs,
					Port:     entry.Port,
				}
				select {
				case out <- ep:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// NopAdvertiser does nothing. It is used when discovery is disabled.
type NopAdvertiser struct{}

func (NopAdvertiser) Register(int) error { return nil }
func (NopAdvertiser) Shutdown()          {}
