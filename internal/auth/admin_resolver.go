package auth

import (
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"club-overview-console/internal/domain"
	"club-overview-console/pkg/logging"
)

// ActorResolver resolves client IP addresses to staff actors listed in admins.yaml:
//
//	"10.0.1.5":
//	  uid: "a1b2c3"
//	  name: "Maja"
//	  role: admin
//
// Entries without a role are editors.
type ActorResolver struct {
	mu       sync.RWMutex
	ipToUser map[string]domain.Actor
	loaded   bool
	yamlPath string
	logger   *logging.ComponentLogger
}

// NewActorResolver loads admins.yaml from path, or from the working directory when path is
// empty. A missing file leaves the resolver unloaded and every request unauthorized.
func NewActorResolver(path string, logger *logging.Logger) *ActorResolver {
	if logger == nil {
		logger = logging.NewNop()
	}
	r := &ActorResolver{
		ipToUser: map[string]domain.Actor{},
		logger:   logger.WithComponent("auth"),
	}

	if path == "" {
		cwd, err := os.Getwd()
		if err != nil {
			r.logger.Warn("Cannot determine working directory", logging.Error(err))
			return r
		}
		path = filepath.Join(cwd, "admins.yaml")
	}
	r.yamlPath = path

	if err := r.loadConfig(path); err != nil {
		r.logger.Error("admins.yaml not loaded; edits are blocked until it is present", err,
			logging.String("path", path))
	} else {
		r.logger.Info("Loaded actor IP mappings",
			logging.String("path", path),
			logging.Int("entries", r.Len()))
	}
	return r
}

func (r *ActorResolver) loadConfig(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	entries, err := parseActors(data)
	if err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.ipToUser = entries
	r.loaded = true
	return nil
}

func parseActors(data []byte) (map[string]domain.Actor, error) {
	var raw map[string]domain.Actor
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	out := make(map[string]domain.Actor, len(raw))
	for ip, a := range raw {
		if strings.TrimSpace(a.UID) == "" {
			return nil, fmt.Errorf("entry %s has no uid", ip)
		}
		switch a.Role {
		case "":
			a.Role = domain.RoleEditor
		case domain.RoleAdmin, domain.RoleEditor:
		default:
			return nil, fmt.Errorf("entry %s has unknown role %q", ip, a.Role)
		}
		out[strings.TrimSpace(ip)] = a
	}
	return out, nil
}

// Reload re-reads the file the resolver was created with. On error the previous map stays.
func (r *ActorResolver) Reload() error {
	if r.yamlPath == "" {
		return nil
	}
	return r.loadConfig(r.yamlPath)
}

// IsLoaded returns true if the config file was successfully loaded
func (r *ActorResolver) IsLoaded() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.loaded
}

func (r *ActorResolver) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.ipToUser)
}

// Resolve maps the request's client IP to an actor.
func (r *ActorResolver) Resolve(req *http.Request) (domain.Actor, bool) {
	ip := ClientIP(req)

	r.mu.RLock()
	defer r.mu.RUnlock()

	actor, found := r.ipToUser[ip]
	if !found {
		r.logger.Warn("Cannot determine actor for IP", logging.String("ip", ip))
	}
	return actor, found
}

// ClientIP extracts the real client IP from the request
// Handles X-Forwarded-For and X-Real-IP headers for reverse proxy scenarios
func ClientIP(req *http.Request) string {
	if xff := req.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}

	if xri := req.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	ip, _, err := net.SplitHostPort(req.RemoteAddr)
	if err != nil {
		return req.RemoteAddr
	}
	return ip
}
