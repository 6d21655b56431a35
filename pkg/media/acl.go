package media

import (
	"net/netip"
	"strings"

	"github.com/rexliu/jamctl/pkg/control"
)

// accessList is the ordered access-control list. Callers hold Server.mu.
type accessList struct {
	mode      control.FirewallMode
	addresses []string
}

// normalizeAddress trims input and renders IP literals canonically; other
// strings are kept verbatim.
func normalizeAddress(address string) string {
	address = strings.TrimSpace(address)
	if ip, err := netip.ParseAddr(address); err == nil {
		return ip.Unmap().String()
	}
	return address
}

func (a *accessList) index(address string) int {
	for i, existing := range a.addresses {
		if existing == address {
			return i
		}
	}
	return -1
}

func (a *accessList) add(address string) bool {
	if a.index(address) >= 0 {
		return false
	}
	a.addresses = append(a.addresses, address)
	return true
}

func (a *accessList) remove(address string) bool {
	i := a.index(address)
	if i < 0 {
		return false
	}
	a.addresses = append(a.addresses[:i], a.addresses[i+1:]...)
	return true
}

func (a *accessList) snapshot() accessList {
	return accessList{mode: a.mode, addresses: append([]string(nil), a.addresses...)}
}

// allowed applies the mode: open admits all but listed, closed admits only
// listed.
func (a *accessList) allowed(ip netip.Addr) bool {
	listed := a.index(ip.Unmap().String()) >= 0
	if a.mode == control.FirewallClosed {
		return listed
	}
	return !listed
}
