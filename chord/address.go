package chord

import (
	"fmt"
	"net"
	"regexp"
	"strconv"
	"strings"
)

// addrPattern matches the "IP:PORT" shape the controller façade validates
// bootstrap addresses against (spec §6.3): four dotted groups of 1-3
// digits, followed by a port of 1-5 digits. Range checking (0-255 per
// octet, 1-65535 for the port) happens in LooksValid, not in the regex.
var addrPattern = regexp.MustCompile(`^\d{1,3}(\.\d{1,3}){3}:\d{1,5}$`)

// Address is the canonical identity of a peer: an IPv4 string and a TCP
// port. Two addresses compare equal bytewise.
type Address struct {
	IP   string
	Port int
}

// String renders the address as "ip:port", the same form hashed to
// produce a node's ID.
func (a Address) String() string {
	return fmt.Sprintf("%s:%d", a.IP, a.Port)
}

// Equal reports whether two addresses are the same peer identity.
func (a Address) Equal(o Address) bool {
	return a.IP == o.IP && a.Port == o.Port
}

// ID is the ring identifier of this address, hash("ip:port").
func (a Address) ID() ID {
	return Hash(a.String())
}

// LooksValid checks the "IP:PORTA" shape and range the controller façade
// requires before attempting to join through an address.
func LooksValid(s string) bool {
	if !addrPattern.MatchString(s) {
		return false
	}
	addr, err := ParseAddress(s)
	if err != nil {
		return false
	}
	for _, octet := range strings.Split(addr.IP, ".") {
		n, err := strconv.Atoi(octet)
		if err != nil || n < 0 || n > 255 {
			return false
		}
	}
	return addr.Port >= 1 && addr.Port <= 65535
}

// ParseAddress splits "ip:port" into an Address.
func ParseAddress(s string) (Address, error) {
	host, portStr, err := net.SplitHostPort(s)
	if err != nil {
		return Address{}, fmt.Errorf("invalid address %q: %v", s, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return Address{}, fmt.Errorf("invalid port in address %q: %v", s, err)
	}
	return Address{IP: host, Port: port}, nil
}

// DetectAnnouncedIP finds the local IP this host would use to reach the
// public internet, per spec §6.2: open a UDP "connection" toward
// 8.8.8.8:80 (no packet is actually sent) and read back the local
// endpoint. Falls back to 127.0.0.1 if that fails, e.g. offline dev boxes.
func DetectAnnouncedIP() string {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "127.0.0.1"
	}
	defer conn.Close()

	local, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok {
		return "127.0.0.1"
	}
	return local.IP.String()
}
