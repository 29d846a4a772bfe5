package config

import "fmt"

// Validate reports the first launch-readiness violation of cfg, or nil.
// Checks run in a fixed order: local address, servers, forward address, then
// each server entry. It never modifies cfg.
func Validate(cfg *Config) error {
	if cfg.Local == nil {
		return &ValidationError{
			Kind:  ErrMissingLocal,
			Field: "local_address",
			Hint: "consider specifying it by --local-addr command line option, " +
				`or "local_address" and "local_port" in configuration file`,
		}
	}

	if len(cfg.Servers) == 0 {
		return &ValidationError{
			Kind:  ErrNoServers,
			Field: "servers",
			Hint: "consider specifying it by --server-addr, --encrypt-method, --password command line option, " +
				"or --server-url command line option, or configuration file",
		}
	}

	if len(cfg.Forward) == 0 {
		return &ValidationError{
			Kind:  ErrMissingForward,
			Field: "forward_address",
			Hint: "consider specifying it by --forward-addr command line option, " +
				`or "forward_address" and "forward_port" in configuration file`,
		}
	}

	for i, sc := range cfg.Servers {
		field := fmt.Sprintf("servers[%d]", i)
		if sc.Password == "" || sc.Method == "" {
			return &ValidationError{
				Kind:  ErrIncompleteCreds,
				Field: field,
				Hint:  fmt.Sprintf("server %s needs both --password and --encrypt-method", sc.Addr),
			}
		}
		if sc.Plugin != nil && sc.Addr.IsZero() {
			return &ValidationError{
				Kind:  ErrOrphanPlugin,
				Field: field,
				Hint:  fmt.Sprintf("plugin %q needs --server-addr", sc.Plugin.Name),
			}
		}
	}

	return nil
}
