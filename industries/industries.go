// Package industries holds the per-industry tool sets. Each set registers
// its tools into an explicitly constructed registry at startup:
//
//	reg := tools.NewRegistry()
//	err := industries.Install("travel", reg, industries.Deps{Stores: catalog})
package industries

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/tailored-agentic-units/callcenter/knowledge"
	"github.com/tailored-agentic-units/callcenter/store"
	"github.com/tailored-agentic-units/callcenter/tools"
)

// Industry names.
const (
	Default = "default"
	Travel  = "travel"
	Airline = "airline"
)

// ErrUnknownIndustry is returned by Install for unregistered names.
var ErrUnknownIndustry = errors.New("unknown industry")

// Deps are the collaborators tool handlers close over.
type Deps struct {
	Stores    *store.Catalog
	Knowledge *knowledge.Base
	// Now defaults to time.Now.
	Now func() time.Time
}

func (d Deps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

type tool struct {
	def     tools.Definition
	handler tools.Handler
}

type installer func(Deps) ([]tool, error)

var installers = map[string]installer{
	Default: defaultTools,
	Travel:  travelTools,
	Airline: airlineTools,
}

// Names returns the available industry names in sorted order.
func Names() []string {
	names := make([]string, 0, len(installers))
	for name := range installers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Install registers every tool of the named industry into reg.
func Install(name string, reg *tools.Registry, deps Deps) error {
	install, ok := installers[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownIndustry, name)
	}

	set, err := install(deps)
	if err != nil {
		return fmt.Errorf("industry %s: %w", name, err)
	}

	for _, t := range set {
		if err := reg.Register(t.def, t.handler); err != nil {
			return fmt.Errorf("industry %s: %w", name, err)
		}
	}
	return nil
}

func table(deps Deps, name string) (store.Store, error) {
	if deps.Stores == nil {
		return nil, fmt.Errorf("%w: %s: no store catalog", store.ErrUnknownTable, name)
	}
	return deps.Stores.Table(name)
}

func notFound() tools.Result {
	return tools.Fail(store.ErrNotFound)
}

// storeFailure passes not-found errors through verbatim and reduces any
// other store error under a generic prefix.
func storeFailure(err error) tools.Result {
	if errors.Is(err, store.ErrNotFound) {
		return tools.Fail(err)
	}
	return tools.Failf("record store unavailable: %v", err)
}
