package config

import (
	"encoding/base64"
	"errors"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/1nfsr/sstunnel/internal/cipher"
)

const urlField = "--server-url"

// ParseServerURL decodes a SIP002 ss:// URL into a server entry. Both the
// SIP002 form
//
//	ss://base64url(method:password)@host:port/?plugin=name;opts#remarks
//
// and the legacy form ss://base64(method:password@host:port)#remarks are
// accepted.
func ParseServerURL(s string) (ServerConfig, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "ss://") {
		return ServerConfig{}, newParseError(urlField, s, errors.New("expected ss:// scheme"))
	}

	withoutFrag, frag, hasFrag := strings.Cut(s, "#")
	remarks := ""
	if hasFrag {
		decoded, err := url.PathUnescape(frag)
		if err != nil {
			return ServerConfig{}, newParseError(urlField, s, err)
		}
		remarks = decoded
	}

	withoutQuery, query, _ := strings.Cut(withoutFrag, "?")
	plugin, err := parsePluginQuery(query)
	if err != nil {
		return ServerConfig{}, newParseError(urlField, s, err)
	}

	rest := strings.TrimPrefix(withoutQuery, "ss://")
	if rest == "" {
		return ServerConfig{}, newParseError(urlField, s, errors.New("missing content after ss://"))
	}

	var userinfo, hostPort string
	if at := strings.LastIndex(rest, "@"); at >= 0 {
		u, err := decodeUserinfo(rest[:at])
		if err != nil {
			return ServerConfig{}, newParseError(urlField, s, err)
		}
		userinfo, hostPort = u, rest[at+1:]
	} else {
		decoded, err := decodeBase64(rest)
		if err != nil {
			return ServerConfig{}, newParseError(urlField, s, err)
		}
		at := strings.LastIndex(decoded, "@")
		if at < 0 {
			return ServerConfig{}, newParseError(urlField, s, errors.New("decoded content lacks @ separator"))
		}
		userinfo, hostPort = decoded[:at], decoded[at+1:]
	}

	// Only an empty path or a single trailing "/" is allowed.
	if idx := strings.IndexByte(hostPort, '/'); idx >= 0 {
		if hostPort[idx:] != "/" {
			return ServerConfig{}, newParseError(urlField, s, errors.New("path is not supported"))
		}
		hostPort = hostPort[:idx]
	}

	methodName, password, ok := strings.Cut(userinfo, ":")
	if !ok || methodName == "" || password == "" {
		return ServerConfig{}, newParseError(urlField, s, errors.New("userinfo must be method:password"))
	}
	method, err := cipher.ParseKind(methodName)
	if err != nil {
		return ServerConfig{}, newParseError(urlField, s, err)
	}

	host, port, err := splitHostPort(hostPort)
	if err != nil {
		return ServerConfig{}, newParseError(urlField, s, err)
	}

	return ServerConfig{
		Addr:     Endpoint{Host: host, Port: port},
		Password: password,
		Method:   method,
		Plugin:   plugin,
		Remarks:  remarks,
	}, nil
}

// decodeUserinfo undoes SIP002's base64url encoding. Userinfo that is already
// plain (percent-encoded) method:password is accepted too.
func decodeUserinfo(s string) (string, error) {
	if decoded, err := decodeBase64(s); err == nil && strings.Contains(decoded, ":") {
		return decoded, nil
	}
	plain, err := url.PathUnescape(s)
	if err != nil {
		return "", err
	}
	if !strings.Contains(plain, ":") {
		return "", errors.New("userinfo is neither base64 nor method:password")
	}
	return plain, nil
}

// parsePluginQuery extracts the "plugin" parameter. net/url.ParseQuery is not
// used because the value carries raw semicolons.
func parsePluginQuery(query string) (*Plugin, error) {
	for _, part := range strings.Split(query, "&") {
		k, v, _ := strings.Cut(part, "=")
		if k != "plugin" {
			continue
		}
		v, err := url.PathUnescape(v)
		if err != nil {
			return nil, err
		}
		name, opts, _ := strings.Cut(v, ";")
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, errors.New("empty plugin name")
		}
		return &Plugin{Name: name, Options: opts}, nil
	}
	return nil, nil
}

func decodeBase64(s string) (string, error) {
	// Standard alphabet with padding first, then URL-safe, then unpadded.
	encodings := []*base64.Encoding{
		base64.StdEncoding,
		base64.URLEncoding,
		base64.RawStdEncoding,
		base64.RawURLEncoding,
	}
	var lastErr error
	for _, enc := range encodings {
		b, err := enc.DecodeString(s)
		if err == nil {
			if !utf8.Valid(b) {
				return "", errors.New("decoded base64 is not valid utf-8")
			}
			return string(b), nil
		}
		lastErr = err
	}
	return "", lastErr
}
