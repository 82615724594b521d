// internal/pkg/config/validators.go
package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/ttacon/libphonenumber"
)

// Validator checks one aspect of a loaded configuration. Implementations
// report every problem they find, joined into one error.
type Validator interface {
	Validate(cfg *Config) error
}

// problems accumulates validation failures.
type problems []error

func (p *problems) add(format string, args ...interface{}) {
	*p = append(*p, fmt.Errorf(format, args...))
}

func (p *problems) check(ok bool, format string, args ...interface{}) {
	if !ok {
		p.add(format, args...)
	}
}

func (p problems) err() error {
	return errors.Join(p...)
}

// BasicValidator applies to every environment.
type BasicValidator struct{}

func (v *BasicValidator) Validate(cfg *Config) error {
	var p problems
	for _, field := range missingRequired(reflect.ValueOf(*cfg), "") {
		p.add("%w: %s", ErrMissingRequiredConfig, field)
	}

	p.check(cfg.Database.MaxConnections >= cfg.Database.MinConnections,
		"database max_connections (%d) must be >= min_connections (%d)",
		cfg.Database.MaxConnections, cfg.Database.MinConnections)
	p.check(cfg.Redis.PoolSize > 0, "redis pool_size must be positive")
	p.check(cfg.Security.RateLimitRequests > 0, "rate_limit_requests must be positive")
	return p.err()
}

// LedgerValidator checks the ledger section.
type LedgerValidator struct{}

func (v *LedgerValidator) Validate(cfg *Config) error {
	var p problems
	l := cfg.Ledger

	p.check(libphonenumber.GetCountryCodeForRegion(strings.ToUpper(l.PhoneRegion)) != 0,
		"ledger phone region %q is not a known region code", l.PhoneRegion)
	p.check(l.CacheTTL >= 0, "ledger cache ttl cannot be negative")
	if l.ExportPrefix == "" {
		p.add("%w: ledger export prefix", ErrMissingRequiredConfig)
	}
	p.check(l.ExportURLTTL > 0, "ledger export url ttl must be positive")
	if cfg.AWS.S3Bucket == "" && l.LocalExportDir == "" {
		p.add("%w: ledger exports need an S3 bucket or a local export dir", ErrMissingRequiredConfig)
	}
	return p.err()
}

// ProductionValidator adds the rules a production deployment must meet.
type ProductionValidator struct{}

func (v *ProductionValidator) Validate(cfg *Config) error {
	var p problems

	if cfg.Database.Password == "" || strings.Contains(cfg.Database.Password, "MISSING_") {
		p.add("%w: database password", ErrMissingRequiredConfig)
	}
	p.check(cfg.Database.SSLMode != "disable", "database SSL must be enabled in production")
	p.check(cfg.Security.SecureHeaders, "secure headers must be enabled in production")
	for _, origin := range cfg.Security.AllowedOrigins {
		if origin == "*" {
			p.add("wildcard origin (*) not allowed in production")
			break
		}
	}
	if cfg.AWS.S3Bucket == "" {
		p.add("%w: ledger exports need an S3 bucket in production", ErrMissingRequiredConfig)
	}
	return p.err()
}

// missingRequired lists the dotted names of `required:"true"` fields that are
// unset, descending into nested sections.
func missingRequired(v reflect.Value, prefix string) []string {
	var missing []string
	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		field, meta := v.Field(i), t.Field(i)
		name := meta.Name
		if prefix != "" {
			name = prefix + "." + name
		}

		if field.Kind() == reflect.Struct {
			missing = append(missing, missingRequired(field, name)...)
			continue
		}
		if meta.Tag.Get("required") == "true" && unset(field) {
			missing = append(missing, name)
		}
	}
	return missing
}

// unset treats placeholder secrets ("MISSING_...") as absent.
func unset(v reflect.Value) bool {
	if v.Kind() == reflect.String {
		return v.String() == "" || strings.HasPrefix(v.String(), "MISSING_")
	}
	return v.IsZero()
}
