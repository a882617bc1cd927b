package eligibility

import (
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/pinto-org/tractor-operator/internal/loader"
)

// State classifies a requisition snapshot at a point in time. The state is
// derived from the cancel set and the activation window, never stored.
type State string

const (
	StateCancelled State = "cancelled"
	StateExpired   State = "expired"
	StatePending   State = "pending"
	StateActive    State = "active"
)

var thousand = big.NewInt(1000)

// StateAt derives the lifecycle state of a snapshot at the given wall-clock
// time. Cancellation wins over the time window; the window is inclusive of
// startTime and exclusive of endTime.
func StateAt(snap loader.Snapshot, now time.Time) State {
	if snap.IsCancelled {
		return StateCancelled
	}

	nowMs := big.NewInt(now.UnixMilli())
	endMs := new(big.Int).Mul(snap.Requisition.Blueprint.EndTime, thousand)
	if endMs.Cmp(nowMs) <= 0 {
		return StateExpired
	}
	startMs := new(big.Int).Mul(snap.Requisition.Blueprint.StartTime, thousand)
	if startMs.Cmp(nowMs) > 0 {
		return StatePending
	}
	return StateActive
}

// Active narrows snapshots to those currently in their activation window and
// not cancelled.
func Active(snapshots []loader.Snapshot, now time.Time) []loader.Snapshot {
	active := make([]loader.Snapshot, 0, len(snapshots))
	for _, snap := range snapshots {
		if StateAt(snap, now) == StateActive {
			active = append(active, snap)
		}
	}
	return active
}

// EligibleFor reports whether this operator may execute the snapshot's order.
// A snapshot without decoded order parameters has no defined eligibility and
// is never executable, even though it still appears in monitoring output.
func EligibleFor(snap loader.Snapshot, operator common.Address) bool {
	if !snap.Decode.Decoded() {
		return false
	}
	return whitelisted(snap.Decode.Order.Operator.Whitelist, operator)
}

// Executable narrows snapshots to the set this operator can execute right
// now: active, decoded, and whitelisted.
func Executable(snapshots []loader.Snapshot, now time.Time, operator common.Address) []loader.Snapshot {
	executable := make([]loader.Snapshot, 0, len(snapshots))
	for _, snap := range Active(snapshots, now) {
		if EligibleFor(snap, operator) {
			executable = append(executable, snap)
		}
	}
	return executable
}

// whitelisted compares hex identities case-insensitively. An empty whitelist
// means unrestricted.
func whitelisted(whitelist []common.Address, operator common.Address) bool {
	if len(whitelist) == 0 {
		return true
	}
	op := strings.ToLower(operator.Hex())
	for _, addr := range whitelist {
		if strings.ToLower(addr.Hex()) == op {
			return true
		}
	}
	return false
}
