package host

import (
	"context"
	"fmt"
	"net"
	"os"

	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/aescanero/fftdetect/pkg/domain"
)

// Address is one address bound to a named interface
type Address struct {
	Interface string
	IP        net.IP
}

// AddressSource lists the addresses bound to local interfaces
type AddressSource func() ([]Address, error)

// Probe answers questions about the local host. Every call queries the OS;
// nothing is cached.
type Probe struct {
	port      int
	addresses AddressSource
	hostname  func() (string, error)
	lookup    func(host string) ([]net.IP, error)
}

// NewProbe creates a probe that builds URLs for the given port
func NewProbe(port int) *Probe {
	return &Probe{
		port:      port,
		addresses: SystemAddresses,
		hostname:  os.Hostname,
		lookup:    net.LookupIP,
	}
}

// WithAddressSource replaces the interface enumeration, mainly for tests
func (p *Probe) WithAddressSource(src AddressSource) *Probe {
	p.addresses = src
	return p
}

// NetworkInfo lists the URLs under which the server is reachable. Loopback
// and non-IPv4 addresses are skipped; localhost is always present.
func (p *Probe) NetworkInfo() (domain.NetworkInfo, error) {
	info := domain.NetworkInfo{
		Localhost: fmt.Sprintf("http://localhost:%d", p.port),
		Networks:  []domain.NetworkInterface{},
	}

	if name, err := p.hostname(); err == nil {
		info.Hostname = name
		if ips, err := p.lookup(name); err == nil {
			for _, ip := range ips {
				if ip4 := ip.To4(); ip4 != nil {
					info.PrimaryIP = ip4.String()
					break
				}
			}
		}
	}

	addrs, err := p.addresses()
	if err != nil {
		return info, fmt.Errorf("failed to list interfaces: %w", err)
	}

	for _, a := range addrs {
		ip4 := a.IP.To4()
		if ip4 == nil || ip4.IsLoopback() {
			continue
		}
		info.Networks = append(info.Networks, domain.NetworkInterface{
			Interface: a.Interface,
			IP:        ip4.String(),
			URL:       fmt.Sprintf("http://%s:%d", ip4, p.port),
		})
	}

	return info, nil
}

// Memory returns host-wide virtual memory statistics
func (p *Probe) Memory(ctx context.Context) (domain.MemoryStats, error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return domain.MemoryStats{}, fmt.Errorf("failed to read virtual memory: %w", err)
	}

	return memoryStats(vm), nil
}

func memoryStats(vm *mem.VirtualMemoryStat) domain.MemoryStats {
	return domain.MemoryStats{
		Total:     vm.Total,
		Available: vm.Available,
		Percent:   vm.UsedPercent,
		Used:      vm.Used,
		Free:      vm.Free,
		Active:    vm.Active,
		Inactive:  vm.Inactive,
		Buffers:   vm.Buffers,
		Cached:    vm.Cached,
		Shared:    vm.Shared,
		Slab:      vm.Slab,
	}
}

// BootTime returns the host boot time in Unix seconds
func (p *Probe) BootTime(ctx context.Context) (uint64, error) {
	bt, err := host.BootTimeWithContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to read boot time: %w", err)
	}
	return bt, nil
}

// SystemAddresses enumerates the addresses of every local interface, in the
// order the OS reports them
func SystemAddresses() ([]Address, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}

	var out []Address
	for _, iface := range ifaces {
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, a := range addrs {
			ip := addrToIP(a)
			if ip == nil {
				continue
			}
			out = append(out, Address{Interface: iface.Name, IP: ip})
		}
	}

	return out, nil
}

func addrToIP(a net.Addr) net.IP {
	switch v := a.(type) {
	case *net.IPNet:
		return v.IP
	case *net.IPAddr:
		return v.IP
	default:
		return nil
	}
}
