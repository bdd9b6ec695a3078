package net

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"time"

	"github.com/hashicorp/mdns"

	"InkNote/internal/diag"
)

// ServiceType is the DNS-SD type of the recognition service.
const ServiceType = "_inknote-ocr._tcp"

// Advertise announces a recognition service listening on port.
func Advertise(port int, engine string, logger *slog.Logger) (*mdns.Server, error) {
	l := diag.Component(logger, "mdns")
	host, err := os.Hostname()
	if err != nil {
		return nil, fmt.Errorf("could not get hostname: %w", err)
	}
	ip := AdvertiseIP()
	info := []string{"InkNote recognition", "engine=" + engine, "path=" + RecognizePath}

	service, err := mdns.NewMDNSService(host, ServiceType, "", "", port, []net.IP{ip}, info)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS service: %w", err)
	}
	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return nil, fmt.Errorf("failed to start mDNS server: %w", err)
	}
	l.Info("advertising", "type", ServiceType, "host", host, "ip", ip.String(), "port", port)
	return server, nil
}

// Endpoint is a discovered recognition service.
type Endpoint struct {
	Name string
	Addr string // ip:port
}

// URL is the recognize endpoint of e.
func (e Endpoint) URL() string { return EndpointURL(e.Addr) }

// EndpointURL builds the recognize URL for a host:port.
func EndpointURL(addr string) string { return "http://" + addr + RecognizePath }

// Discover browses the local network for a recognition service and returns
// the first one that answers within timeout.
func Discover(ctx context.Context, timeout time.Duration, logger *slog.Logger) (Endpoint, error) {
	l := diag.Component(logger, "mdns")
	entries := make(chan *mdns.ServiceEntry, 8)
	found := make(chan Endpoint, 1)
	go func() {
		for e := range entries {
			if e.AddrV4 == nil || e.Port == 0 {
				continue
			}
			select {
			case found <- Endpoint{Name: e.Name, Addr: fmt.Sprintf("%s:%d", e.AddrV4.String(), e.Port)}:
			default:
			}
		}
	}()

	params := mdns.DefaultParams(ServiceType)
	params.Entries = entries
	params.Timeout = timeout
	params.DisableIPv6 = true
	errc := make(chan error, 1)
	go func() {
		errc <- mdns.Query(params)
		close(entries)
	}()

	select {
	case ep := <-found:
		l.Info("discovered", "name", ep.Name, "addr", ep.Addr)
		return ep, nil
	case err := <-errc:
		select {
		case ep := <-found:
			return ep, nil
		default:
		}
		if err != nil {
			return Endpoint{}, fmt.Errorf("mdns query: %w", err)
		}
		return Endpoint{}, fmt.Errorf("no %s service found within %s", ServiceType, timeout)
	case <-ctx.Done():
		return Endpoint{}, ctx.Err()
	}
}
