package modes

import (
	"fmt"
	"net"
	"os"
	"regexp"
	"strings"
)

// networkCIDR auto-detects the primary network range from the first
// non-loopback IPv4 address. Falls back to a common home range.
func networkCIDR() string {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return "192.168.1.0/24"
	}
	for _, addr := range addrs {
		ipnet, ok := addr.(*net.IPNet)
		if !ok || ipnet.IP.IsLoopback() {
			continue
		}
		ip4 := ipnet.IP.To4()
		if ip4 == nil {
			continue
		}
		masked := ip4.Mask(ipnet.Mask)
		ones, _ := ipnet.Mask.Size()
		return fmt.Sprintf("%s/%d", masked, ones)
	}
	return "192.168.1.0/24"
}

// localIP finds the outbound address without sending traffic.
func localIP() string {
	conn, err := net.Dial("udp", "10.255.255.255:1")
	if err != nil {
		return "0.0.0.0"
	}
	defer conn.Close()
	if addr, ok := conn.LocalAddr().(*net.UDPAddr); ok {
		return addr.IP.String()
	}
	return "0.0.0.0"
}

var nameserverRe = regexp.MustCompile(`(?m)^nameserver\s+(\d+\.\d+\.\d+\.\d+)`)

// dnsServers returns up to two configured resolvers.
func dnsServers() []string {
	data, err := os.ReadFile("/etc/resolv.conf")
	if err != nil {
		return nil
	}
	matches := nameserverRe.FindAllStringSubmatch(string(data), 2)
	servers := make([]string, 0, len(matches))
	for _, m := range matches {
		servers = append(servers, m[1])
	}
	return servers
}

// formatBytes renders a byte count for the narrow display.
func formatBytes(b uint64) string {
	value := float64(b)
	for _, unit := range []string{"B", "KB", "MB", "GB"} {
		if value < 1024 {
			return fmt.Sprintf("%.1f%s", value, unit)
		}
		value /= 1024
	}
	return fmt.Sprintf("%.1fTB", value)
}

// shellQuote wraps a value for safe interpolation into an sh -c command.
func shellQuote(value string) string {
	return "'" + strings.ReplaceAll(value, "'", `'\''`) + "'"
}
