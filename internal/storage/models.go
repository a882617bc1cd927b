package storage

import (
	"time"

	"github.com/shopspring/decimal"
)

// CycleRun summarizes one completed polling cycle for auditing. Nothing in
// the evaluation pipeline reads these back; cycles always rebuild their view
// from chain events.
type CycleRun struct {
	ID          int64
	StartedAt   time.Time
	BlockNumber int64
	Published   int
	Active      int
	Executable  int
	Viable      int // simulation-successful candidates
	Executed    int
	BestProfit  *decimal.Decimal
	CreatedAt   time.Time
}

// ExecutionRecord captures the terminal state of one order attempt.
type ExecutionRecord struct {
	ID            int64
	StartedAt     time.Time
	BlueprintHash string
	State         string
	Reason        *string
	TxHash        *string
	BlockNumber   *int64
	ProfitUSD     *decimal.Decimal
	CreatedAt     time.Time
}
