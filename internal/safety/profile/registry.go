// Package profile holds the per-vehicle safety profiles. Each profile is
// pure configuration: tables of message identifiers, bus assignments,
// decode offsets and limit constants that parameterize the shared engine.
package profile

import (
	"fmt"
	"sort"
	"sync"

	"github.com/cangate-io/cangate/internal/safety"
)

var (
	mu       sync.RWMutex
	profiles = make(map[string]*safety.Profile)
)

// Register adds a profile to the registry. Registering an invalid or
// duplicate profile panics; profiles are wired at init time and a broken
// table is a programming error, not a runtime condition.
func Register(p *safety.Profile) {
	if err := p.Validate(); err != nil {
		panic(fmt.Sprintf("profile: registering %q: %v", p.Name, err))
	}

	mu.Lock()
	defer mu.Unlock()
	if _, dup := profiles[p.Name]; dup {
		panic(fmt.Sprintf("profile: duplicate registration of %q", p.Name))
	}
	profiles[p.Name] = p
}

// Lookup returns the named profile. Unknown names fail closed with an
// error; there is deliberately no permissive default.
func Lookup(name string) (*safety.Profile, error) {
	mu.RLock()
	defer mu.RUnlock()

	p, ok := profiles[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown vehicle profile %q", safety.ErrBadProfile, name)
	}
	return p, nil
}

// Names returns the registered profile names, sorted.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()

	names := make([]string, 0, len(profiles))
	for name := range profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
