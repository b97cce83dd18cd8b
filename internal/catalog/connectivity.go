package catalog

import (
	"context"
	"net"
	"strings"
)

// Connectivity reports the state of the host's network.
type Connectivity interface {
	HasNetwork(ctx context.Context) bool
	// IsMetered reports whether traffic goes over a link the user pays for
	// per byte, such as a cellular modem or a tethered phone.
	IsMetered(ctx context.Context) bool
}

// DefaultMeteredPrefixes are interface name prefixes of cellular and
// tethering links on Linux and macOS.
var DefaultMeteredPrefixes = []string{"wwan", "wwp", "rmnet", "ppp", "usb", "pdp_ip"}

// InterfaceConnectivity inspects the host's network interfaces.
type InterfaceConnectivity struct {
	MeteredPrefixes []string

	// interfaces is swapped out in tests.
	interfaces func() ([]net.Interface, error)
	addrs      func(net.Interface) ([]net.Addr, error)
}

func NewInterfaceConnectivity(meteredPrefixes []string) *InterfaceConnectivity {
	if len(meteredPrefixes) == 0 {
		meteredPrefixes = DefaultMeteredPrefixes
	}
	return &InterfaceConnectivity{
		MeteredPrefixes: meteredPrefixes,
		interfaces:      net.Interfaces,
		addrs:           func(i net.Interface) ([]net.Addr, error) { return i.Addrs() },
	}
}

// HasNetwork is true when any non-loopback interface is up and holds a
// routable address.
func (c *InterfaceConnectivity) HasNetwork(_ context.Context) bool {
	return len(c.activeInterfaces()) > 0
}

// IsMetered is true when every active interface looks metered.
func (c *InterfaceConnectivity) IsMetered(_ context.Context) bool {
	active := c.activeInterfaces()
	if len(active) == 0 {
		return false
	}
	for _, iface := range active {
		if !c.isMeteredName(iface.Name) {
			return false
		}
	}
	return true
}

func (c *InterfaceConnectivity) isMeteredName(name string) bool {
	for _, prefix := range c.MeteredPrefixes {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

func (c *InterfaceConnectivity) activeInterfaces() []net.Interface {
	ifaces, err := c.interfaces()
	if err != nil {
		return nil
	}

	var active []net.Interface
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := c.addrs(iface)
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			ipNet, ok := addr.(*net.IPNet)
			if !ok {
				continue
			}
			ip := ipNet.IP
			if ip.IsLoopback() || ip.IsLinkLocalUnicast() || ip.IsUnspecified() {
				continue
			}
			active = append(active, iface)
			break
		}
	}
	return active
}

// StaticConnectivity reports a fixed network state. Tests use it to pin the
// link instead of inspecting host interfaces.
type StaticConnectivity struct {
	Online  bool
	Metered bool
}

func (s StaticConnectivity) HasNetwork(context.Context) bool { return s.Online }
func (s StaticConnectivity) IsMetered(context.Context) bool  { return s.Metered }
