package memory

import (
	"context"
	"sync"

	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/ports"
	"github.com/aretw0/lattice/pkg/schema"
)

// Checker is a scriptable ports.RemoteRuleChecker: each check name maps to
// a set of rejected values. Anything not rejected is valid, and unknown
// check names settle as unknown so callers can exercise the pending path.
type Checker struct {
	mu       sync.RWMutex
	rejected map[string]map[string]string // check -> value -> message
}

// NewChecker creates an empty checker; every known check passes.
func NewChecker() *Checker {
	return &Checker{rejected: map[string]map[string]string{}}
}

// Allow registers a check name so its lookups settle instead of returning
// unknown.
func (c *Checker) Allow(check string) *Checker {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.rejected[check] == nil {
		c.rejected[check] = map[string]string{}
	}
	return c
}

// Reject marks a value as invalid for a check, with the message the
// backend would return.
func (c *Checker) Reject(check, value, message string) *Checker {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.rejected[check] == nil {
		c.rejected[check] = map[string]string{}
	}
	c.rejected[check][value] = message
	return c
}

// Check settles a remote rule from the scripted table.
func (c *Checker) Check(ctx context.Context, req ports.RemoteCheckRequest) (domain.RuleOutcome, error) {
	if err := ctx.Err(); err != nil {
		return domain.RuleOutcome{Status: domain.OutcomeUnknown}, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	values, ok := c.rejected[req.Check]
	if !ok {
		return domain.RuleOutcome{Status: domain.OutcomeUnknown}, nil
	}
	if msg, bad := values[schema.AsString(req.Value)]; bad {
		return domain.RuleOutcome{Status: domain.OutcomeInvalid, Message: msg}, nil
	}
	return domain.RuleOutcome{Status: domain.OutcomeValid}, nil
}
