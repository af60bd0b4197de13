package config

import (
	"fmt"
	"strings"
)

// Validate checks the config for:
//   - Missing or duplicate bucket names
//   - Bucket names that cannot be used as a directory
//   - Duplicate filter names within a bucket
//   - Out-of-range dispatcher settings
//
// Unknown notification types are not an error here; the sink registry
// degrades them to the log sink.
func Validate(cfg *Config) error {
	var errs []string

	if cfg.Port < 0 || cfg.Port > 65535 {
		errs = append(errs, fmt.Sprintf("port %d out of range", cfg.Port))
	}
	d := cfg.Dispatcher
	if d.Workers < 0 || d.QueueDepth < 0 || d.EventBuffer < 0 || d.DeliveryTimeoutMs < 0 {
		errs = append(errs, "dispatcher: workers, queueDepth, eventBuffer and deliveryTimeoutMs must not be negative")
	}

	buckets := make(map[string]int)
	for i, b := range cfg.Buckets {
		if b.Name == "" {
			errs = append(errs, fmt.Sprintf("buckets[%d]: name is required", i))
			continue
		}
		if strings.ContainsAny(b.Name, `/\`) || b.Name == "." || b.Name == ".." {
			errs = append(errs, fmt.Sprintf("bucket %q: name must not contain path separators", b.Name))
		}
		if prev, ok := buckets[b.Name]; ok {
			errs = append(errs, fmt.Sprintf("duplicate bucket %q (buckets[%d] and buckets[%d])", b.Name, prev, i))
		} else {
			buckets[b.Name] = i
		}

		filters := make(map[string]int)
		for j, f := range b.Filters {
			if f.Name == "" {
				continue
			}
			if prev, ok := filters[f.Name]; ok {
				errs = append(errs, fmt.Sprintf("bucket %s: duplicate filter %q (filters[%d] and filters[%d])", b.Name, f.Name, prev, j))
			} else {
				filters[f.Name] = j
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w:\n  - %s", ErrInvalid, strings.Join(errs, "\n  - "))
	}
	return nil
}
