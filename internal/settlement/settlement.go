// Package settlement executes approved disbursements. Only a simulated
// executor ships; real on-chain broadcasting is intentionally absent.
package settlement

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// Executor settles an approved payment and returns a settlement reference.
type Executor interface {
	Execute(ctx context.Context, toAddress string, amount decimal.Decimal) (string, error)
}

// Simulator is an Executor that fabricates deterministic references instead
// of touching a chain. Safe for concurrent use.
type Simulator struct {
	now  func() time.Time
	mu   sync.Mutex
	next uint64
}

// NewSimulator creates a simulated settlement executor.
func NewSimulator() *Simulator {
	return &Simulator{now: time.Now}
}

// Execute produces a unique simulated settlement reference. It never moves
// funds.
func (s *Simulator) Execute(ctx context.Context, toAddress string, amount decimal.Decimal) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if toAddress == "" {
		return "", fmt.Errorf("settlement requires a destination address")
	}
	if amount.Sign() <= 0 {
		return "", fmt.Errorf("settlement amount must be positive, got %s", amount)
	}

	s.mu.Lock()
	s.next++
	seq := s.next
	s.mu.Unlock()

	return fmt.Sprintf("sim-%s-%06d", s.now().UTC().Format("20060102"), seq), nil
}
