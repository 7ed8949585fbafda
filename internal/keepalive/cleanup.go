package keepalive

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/stigoleg/pad-alive/internal/logging"
)

// CleanupManager runs shutdown steps on every exit path, in reverse
// registration order, with a deadline.
type CleanupManager struct {
	mu          sync.Mutex
	resources   []CleanupResource
	timeout     time.Duration
	cleanupOnce sync.Once
	err         error
}

// CleanupResource represents a resource that needs cleanup
type CleanupResource interface {
	Cleanup() error
	Name() string
}

// CleanupFunc is a function-based cleanup resource
type CleanupFunc struct {
	name string
	fn   func() error
}

func (c *CleanupFunc) Cleanup() error {
	return c.fn()
}

func (c *CleanupFunc) Name() string {
	return c.name
}

// NewCleanupManager creates a new cleanup manager with the specified timeout
func NewCleanupManager(timeout time.Duration) *CleanupManager {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &CleanupManager{timeout: timeout}
}

// Register adds a resource to be cleaned up
func (cm *CleanupManager) Register(resource CleanupResource) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.resources = append(cm.resources, resource)
}

// RegisterFunc registers a cleanup function
func (cm *CleanupManager) RegisterFunc(name string, fn func() error) {
	cm.Register(&CleanupFunc{name: name, fn: fn})
}

// Execute cleans up every registered resource once. Later calls return the
// first call's result. A failing or panicking step does not stop the rest.
func (cm *CleanupManager) Execute(ctx context.Context) error {
	cm.cleanupOnce.Do(func() {
		cm.err = cm.executeWithTimeout(ctx)
	})
	return cm.err
}

func (cm *CleanupManager) executeWithTimeout(ctx context.Context) error {
	log := logging.FromContext(ctx)

	cm.mu.Lock()
	resources := make([]CleanupResource, len(cm.resources))
	copy(resources, cm.resources)
	cm.mu.Unlock()

	if len(resources) == 0 {
		return nil
	}

	// The caller's context is usually already cancelled at shutdown.
	timeoutCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cm.timeout)
	defer cancel()

	done := make(chan struct{})
	var mu sync.Mutex
	var errs []error

	go func() {
		defer close(done)
		for i := len(resources) - 1; i >= 0; i-- {
			resource := resources[i]
			func() {
				defer func() {
					if r := recover(); r != nil {
						mu.Lock()
						errs = append(errs, fmt.Errorf("cleanup %s: panic: %v", resource.Name(), r))
						mu.Unlock()
						log.Error().Str("resource", resource.Name()).Interface("panic", r).Msg("cleanup: panic")
					}
				}()

				if err := resource.Cleanup(); err != nil {
					mu.Lock()
					errs = append(errs, fmt.Errorf("cleanup %s: %w", resource.Name(), err))
					mu.Unlock()
					log.Warn().Err(err).Str("resource", resource.Name()).Msg("cleanup: failed")
					return
				}
				log.Debug().Str("resource", resource.Name()).Msg("cleanup: done")
			}()
		}
	}()

	select {
	case <-done:
	case <-timeoutCtx.Done():
		log.Warn().Dur("timeout", cm.timeout).Msg("cleanup: timed out, some resources may not have been released")
		mu.Lock()
		errs = append(errs, errors.New("cleanup timeout exceeded"))
		mu.Unlock()
	}

	mu.Lock()
	defer mu.Unlock()
	return errors.Join(errs...)
}
