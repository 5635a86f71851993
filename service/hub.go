package service

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

var (
	ErrCycle      = errors.New("circular service dependency")
	ErrDuplicate  = errors.New("service already registered")
	ErrUnresolved = errors.New("dependency on unregistered service")
)

// Hub starts registered services after their dependencies and stops them in reverse
type Hub struct {
	mu      sync.Mutex
	byName  map[string]Service
	order   []Service
	running []Service
	logger  zerolog.Logger
}

func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{byName: make(map[string]Service), logger: logger}
}

// Register adds svc; names are unique
func (h *Hub) Register(svc Service) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	name := svc.Name()
	if _, dup := h.byName[name]; dup {
		return fmt.Errorf("%w: %s", ErrDuplicate, name)
	}
	h.byName[name] = svc
	h.order = nil
	return nil
}

// Get returns the service registered under name
func (h *Hub) Get(name string) (Service, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	svc, ok := h.byName[name]
	return svc, ok
}

// Names lists registered services alphabetically
func (h *Hub) Names() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	names := make([]string, 0, len(h.byName))
	for name := range h.byName {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// InitAll resolves the start order and initializes every service with env
// A failed Init stops the services already initialized, newest first
func (h *Hub) InitAll(env Env) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	order, err := h.resolve()
	if err != nil {
		return err
	}
	h.order = order

	for i, svc := range order {
		if err := svc.Init(env); err != nil {
			h.stopEach(order[:i])
			return fmt.Errorf("service %s init failed: %w", svc.Name(), err)
		}
	}
	return nil
}

// StartAll starts services in dependency order; a failure stops those already started
func (h *Hub) StartAll() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.order == nil {
		return errors.New("services not initialized")
	}
	h.running = h.running[:0]
	for _, svc := range h.order {
		if err := svc.Start(); err != nil {
			h.stopEach(h.running)
			h.running = nil
			return fmt.Errorf("service %s start failed: %w", svc.Name(), err)
		}
		h.running = append(h.running, svc)
		h.logger.Debug().Str("service", svc.Name()).Msg("service started")
	}
	return nil
}

// StopAll stops running services in reverse start order; stop errors are logged
func (h *Hub) StopAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stopEach(h.running)
	h.running = nil
}

// stopEach stops svcs last to first
func (h *Hub) stopEach(svcs []Service) {
	for i := len(svcs) - 1; i >= 0; i-- {
		if err := svcs[i].Stop(); err != nil {
			h.logger.Error().Err(err).Str("service", svcs[i].Name()).Msg("service stop failed")
		}
	}
}

// resolve orders services depth-first so each follows its dependencies
// Names and dependencies are visited alphabetically for a stable order
func (h *Hub) resolve() ([]Service, error) {
	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[string]int, len(h.byName))
	order := make([]Service, 0, len(h.byName))
	var path []string

	var visit func(name string) error
	visit = func(name string) error {
		switch state[name] {
		case done:
			return nil
		case visiting:
			return fmt.Errorf("%w: %s -> %s", ErrCycle, strings.Join(path, " -> "), name)
		}
		state[name] = visiting
		path = append(path, name)

		svc := h.byName[name]
		deps := slices.Clone(svc.Dependencies())
		slices.Sort(deps)
		for _, dep := range deps {
			if _, ok := h.byName[dep]; !ok {
				return fmt.Errorf("%w: %s needs %s", ErrUnresolved, name, dep)
			}
			if err := visit(dep); err != nil {
				return err
			}
		}

		path = path[:len(path)-1]
		state[name] = done
		order = append(order, svc)
		return nil
	}

	names := make([]string, 0, len(h.byName))
	for name := range h.byName {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		if err := visit(name); err != nil {
			return nil, err
		}
	}
	return order, nil
}
