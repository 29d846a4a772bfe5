package config

import (
	"errors"
	"net"
	"strconv"
	"strings"

	"github.com/shadowsocks/go-shadowsocks2/socks"
)

// ParseEndpoint parses "host:port". IPv6 hosts must be bracketed.
func ParseEndpoint(field, s string) (Endpoint, error) {
	host, port, err := splitHostPort(s)
	if err != nil {
		return Endpoint{}, newParseError(field, s, err)
	}
	return Endpoint{Host: host, Port: port}, nil
}

// ParseForward parses the address every accepted connection is forwarded to.
func ParseForward(field, s string) (socks.Addr, error) {
	if _, _, err := splitHostPort(s); err != nil {
		return nil, newParseError(field, s, err)
	}
	a := socks.ParseAddr(strings.TrimSpace(s))
	if a == nil {
		return nil, newParseError(field, s, errors.New("not a socks address"))
	}
	return a, nil
}

// ParseNofile parses an RLIMIT_NOFILE value.
func ParseNofile(field, s string) (uint64, error) {
	n, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, newParseError(field, s, errors.New("an unsigned integer is required"))
	}
	return n, nil
}

// ParseMode parses the config file's "mode" key.
func ParseMode(field, s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "tcp_only":
		return TCPOnly, nil
	case "udp_only":
		return UDPOnly, nil
	case "tcp_and_udp":
		return TCPAndUDP, nil
	}
	return 0, newParseError(field, s, errors.New("expected tcp_only, udp_only or tcp_and_udp"))
}

func splitHostPort(s string) (string, uint16, error) {
	host, portStr, err := net.SplitHostPort(strings.TrimSpace(s))
	if err != nil {
		return "", 0, err
	}
	if host == "" {
		return "", 0, errors.New("empty host")
	}
	if strings.ContainsAny(host, " \t\r\n\x00") {
		return "", 0, errors.New("host contains whitespace or control characters")
	}
	port, err := parsePort(portStr)
	if err != nil {
		return "", 0, err
	}
	return host, port, nil
}

func parsePort(s string) (uint16, error) {
	p, err := strconv.ParseUint(strings.TrimSpace(s), 10, 16)
	if err != nil {
		return 0, errors.New("port must be 1-65535")
	}
	if p == 0 {
		return 0, errors.New("port out of range")
	}
	return uint16(p), nil
}
