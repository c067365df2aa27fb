package observability

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

var (
	observers = map[string]func() Observer{
		"noop": func() Observer { return NoOpObserver{} },
		"slog": func() Observer { return NewSlogObserver(slog.Default()) },
	}
	mutex sync.RWMutex
)

// GetObserver returns a new instance of the named observer. "slog" is
// resolved at call time so it honours a logger installed with
// slog.SetDefault after package init.
func GetObserver(name string) (Observer, error) {
	mutex.RLock()
	defer mutex.RUnlock()

	factory, exists := observers[name]
	if !exists {
		return nil, fmt.Errorf("unknown observer: %s", name)
	}
	return factory(), nil
}

// RegisterObserver adds or replaces a named observer.
func RegisterObserver(name string, observer Observer) {
	mutex.Lock()
	defer mutex.Unlock()

	observers[name] = func() Observer { return observer }
}

// ObserverNames lists registered observer names, sorted.
func ObserverNames() []string {
	mutex.RLock()
	defer mutex.RUnlock()

	names := make([]string, 0, len(observers))
	for name := range observers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
