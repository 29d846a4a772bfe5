package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/1nfsr/sstunnel/internal/cipher"
)

// fileServer is one entry of the "servers" list, or the top-level server.
type fileServer struct {
	Server     string `json:"server" yaml:"server"`
	ServerPort int    `json:"server_port" yaml:"server_port"`
	Password   string `json:"password" yaml:"password"`
	Method     string `json:"method" yaml:"method"`
	Plugin     string `json:"plugin" yaml:"plugin"`
	PluginOpts string `json:"plugin_opts" yaml:"plugin_opts"`
	Remarks    string `json:"remarks" yaml:"remarks"`
}

// fileConfig is the on-disk tunnel-local schema.
type fileConfig struct {
	fileServer `yaml:",inline"`

	Servers []fileServer `json:"servers" yaml:"servers"`

	LocalAddress   string `json:"local_address" yaml:"local_address"`
	LocalPort      int    `json:"local_port" yaml:"local_port"`
	ForwardAddress string `json:"forward_address" yaml:"forward_address"`
	ForwardPort    int    `json:"forward_port" yaml:"forward_port"`

	Mode      string  `json:"mode" yaml:"mode"`
	NoDelay   bool    `json:"no_delay" yaml:"no_delay"`
	IPv6First bool    `json:"ipv6_first" yaml:"ipv6_first"`
	Nofile    *uint64 `json:"nofile" yaml:"nofile"`
}

// Load reads a config file. Files ending in .yaml or .yml are YAML,
// everything else is JSON.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var fc fileConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = decodeYAML(data, &fc)
	default:
		err = decodeJSON(data, &fc)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	cfg, err := fc.build()
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func decodeJSON(data []byte, fc *fileConfig) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(fc)
}

func decodeYAML(data []byte, fc *fileConfig) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(fc); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (fc *fileConfig) build() (*Config, error) {
	cfg := New()

	if fc.Server != "" {
		sc, err := fc.fileServer.build("server")
		if err != nil {
			return nil, err
		}
		cfg.Servers = append(cfg.Servers, sc)
	}
	for i, fs := range fc.Servers {
		sc, err := fs.build(fmt.Sprintf("servers[%d]", i))
		if err != nil {
			return nil, err
		}
		cfg.Servers = append(cfg.Servers, sc)
	}

	if fc.LocalPort != 0 {
		host := fc.LocalAddress
		if host == "" {
			host = "127.0.0.1"
		}
		ep, err := endpointFromFile("local_port", host, fc.LocalPort)
		if err != nil {
			return nil, err
		}
		cfg.Local = &ep
	} else if fc.LocalAddress != "" {
		return nil, newParseError("local_port", "", errors.New("local_address needs local_port"))
	}

	if fc.ForwardAddress != "" || fc.ForwardPort != 0 {
		ep, err := endpointFromFile("forward_address", fc.ForwardAddress, fc.ForwardPort)
		if err != nil {
			return nil, err
		}
		fwd, err := ParseForward("forward_address", ep.String())
		if err != nil {
			return nil, err
		}
		cfg.Forward = fwd
	}

	if fc.Mode != "" {
		m, err := ParseMode("mode", fc.Mode)
		if err != nil {
			return nil, err
		}
		cfg.Mode = m
	}
	cfg.NoDelay = fc.NoDelay
	cfg.IPv6First = fc.IPv6First
	cfg.Nofile = fc.Nofile

	return cfg, nil
}

func (fs fileServer) build(field string) (ServerConfig, error) {
	ep, err := endpointFromFile(field+".server", fs.Server, fs.ServerPort)
	if err != nil {
		return ServerConfig{}, err
	}
	if fs.Password == "" {
		return ServerConfig{}, newParseError(field+".password", "", errors.New("password is required"))
	}
	method, err := cipher.ParseKind(fs.Method)
	if err != nil {
		return ServerConfig{}, newParseError(field+".method", fs.Method, err)
	}

	sc := ServerConfig{Addr: ep, Password: fs.Password, Method: method, Remarks: fs.Remarks}
	if fs.Plugin != "" {
		sc.Plugin = &Plugin{Name: fs.Plugin, Options: fs.PluginOpts}
	} else if fs.PluginOpts != "" {
		return ServerConfig{}, newParseError(field+".plugin_opts", fs.PluginOpts, errors.New("plugin_opts needs plugin"))
	}
	return sc, nil
}

func endpointFromFile(field, host string, port int) (Endpoint, error) {
	raw := host + ":" + strconv.Itoa(port)
	if host == "" {
		return Endpoint{}, newParseError(field, raw, errors.New("empty host"))
	}
	if port < 1 || port > 65535 {
		return Endpoint{}, newParseError(field, raw, errors.New("port out of range"))
	}
	if strings.Contains(host, ":") && !strings.HasPrefix(host, "[") {
		// Bare IPv6 literal as written in JSON configs.
		host = strings.Trim(host, "[]")
		return Endpoint{Host: host, Port: uint16(port)}, nil
	}
	return ParseEndpoint(field, raw)
}
