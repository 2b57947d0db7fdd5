package discovery

import (
	"net"
	"testing"
)

func TestEndpoint_Address(t *testing.T) {
	tests := []struct {
		name string
		ep   Endpoint
		want string
	}{
		{"ipv4", Endpoint{Host: "studio.local.", Addrs: []net.IP{net.IPv4(192, 168, 1, 20)}, Port: 50123}, "192.168.1.20:50123"},
		{"ipv6", Endpoint{Addrs: []net.IP{net.ParseIP("fe80::1")}, Port: 80}, "[fe80::1]:80"},
		{"host only", Endpoint{Host: "studio.local.", Port: 4000}, "studio.local.:4000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.ep.Address(); got != tt.want {
				t.Errorf("Address() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestZeroconfAdvertiser(t *testing.T) {
	t.Run("shutdown before register is a no-op", func(t *testing.T) {
		z := NewZeroconfAdvertiser(DefaultServiceName, DefaultServiceType, DefaultDomain)
		z.Shutdown()
		z.Shutdown()
	})

	t.Run("implements Advertiser", func(t *testing.T) {
		var _ Advertiser = (*ZeroconfAdvertiser)(nil)
		var _ Advertiser = NopAdvertiser{}
	})
}

func TestNopAdvertiser(t *testing.T) {
	var a NopAdvertiser
	if err := a.Register(1234); err != nil {
		t.Errorf("Register() error = %v", err)
	}
	a.Shutdown()
}
