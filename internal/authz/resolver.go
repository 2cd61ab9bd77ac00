// Package authz decides which (role, entity, operation) triples are
// permitted. Decisions are a pure function of the static policy loaded
// at startup; unknown roles, entities, or operations are denied.
//
// Every generated handler and resolver consults CanPerform before
// touching storage. A denial short-circuits the request.
package authz

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/casbin/casbin/v2"
	casbinmodel "github.com/casbin/casbin/v2/model"
	fileadapter "github.com/casbin/casbin/v2/persist/file-adapter"
)

//go:embed model.conf
var embeddedModel string

//go:embed policy.csv
var embeddedPolicy string

// Config holds resolver configuration.
type Config struct {
	// PolicyPath overrides the embedded policy with a CSV file.
	PolicyPath string

	// DefaultRole is used for requests carrying no role.
	DefaultRole string

	// CacheEnabled turns on decision memoization.
	CacheEnabled bool

	// CacheTTL is how long a memoized decision stays valid.
	CacheTTL time.Duration
}

// DefaultConfig returns the default resolver configuration.
func DefaultConfig() *Config {
	return &Config{
		DefaultRole:  "viewer",
		CacheEnabled: true,
		CacheTTL:     5 * time.Minute,
	}
}

// Resolver answers capability questions against a casbin policy.
type Resolver struct {
	config   *Config
	enforcer *casbin.SyncedEnforcer
	cache    *decisionCache
}

// NewResolver builds a resolver from the embedded model and policy, or
// from the policy file named in the config when it exists.
func NewResolver(config *Config) (*Resolver, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if config.DefaultRole == "" {
		config.DefaultRole = "viewer"
	}

	m, err := casbinmodel.NewModelFromString(embeddedModel)
	if err != nil {
		return nil, fmt.Errorf("failed to load authorization model: %w", err)
	}

	var enforcer *casbin.SyncedEnforcer
	if config.PolicyPath != "" {
		if _, statErr := os.Stat(config.PolicyPath); statErr != nil {
			return nil, fmt.Errorf("policy file %s: %w", config.PolicyPath, statErr)
		}
		enforcer, err = casbin.NewSyncedEnforcer(m, fileadapter.NewAdapter(config.PolicyPath))
		if err != nil {
			return nil, fmt.Errorf("failed to load policy file %s: %w", config.PolicyPath, err)
		}
	} else {
		enforcer, err = casbin.NewSyncedEnforcer(m)
		if err != nil {
			return nil, fmt.Errorf("failed to create enforcer: %w", err)
		}
		if err := loadEmbeddedPolicy(enforcer, embeddedPolicy); err != nil {
			return nil, fmt.Errorf("failed to load embedded policy: %w", err)
		}
	}

	r := &Resolver{config: config, enforcer: enforcer}
	if config.CacheEnabled {
		ttl := config.CacheTTL
		if ttl <= 0 {
			ttl = 5 * time.Minute
		}
		r.cache = newDecisionCache(ttl)
	}
	return r, nil
}

// loadEmbeddedPolicy feeds the embedded CSV rows into the enforcer.
func loadEmbeddedPolicy(enforcer *casbin.SyncedEnforcer, policy string) error {
	for _, line := range strings.Split(policy, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.Split(line, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}

		switch parts[0] {
		case "p":
			if len(parts) != 4 {
				return fmt.Errorf("malformed policy row: %s", line)
			}
			if _, err := enforcer.AddPolicy(parts[1], parts[2], parts[3]); err != nil {
				return err
			}
		case "g":
			if len(parts) != 3 {
				return fmt.Errorf("malformed grouping row: %s", line)
			}
			if _, err := enforcer.AddGroupingPolicy(parts[1], parts[2]); err != nil {
				return err
			}
		default:
			return fmt.Errorf("unknown policy row type %q in: %s", parts[0], line)
		}
	}
	return nil
}

// DefaultRole returns the role assigned to anonymous requests.
func (r *Resolver) DefaultRole() string {
	return r.config.DefaultRole
}

// CanPerform reports whether the role may run the operation on the
// entity. Empty roles fall back to the configured default; any
// enforcement error denies.
func (r *Resolver) CanPerform(role, entity, operation string) bool {
	if role == "" {
		role = r.config.DefaultRole
	}

	key := role + "\x00" + entity + "\x00" + operation
	if r.cache != nil {
		if allowed, ok := r.cache.get(key); ok {
			return allowed
		}
	}

	allowed, err := r.enforcer.Enforce(role, entity, operation)
	if err != nil {
		allowed = false
	}

	if r.cache != nil {
		r.cache.set(key, allowed)
	}
	return allowed
}
