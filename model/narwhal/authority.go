package narwhal

import (
	"fmt"

	"github.com/dagbft/narwhal/crypto"
)

type (
	// Stake is the voting power of an authority.
	Stake = uint64
	// Epoch numbers committees. A committee never changes within an epoch.
	Epoch uint64
	// Round is the DAG layer a header belongs to. Genesis is round 0.
	Round uint64
	// TimestampMs is a unix timestamp in milliseconds.
	TimestampMs uint64
	// WorkerID identifies one worker of an authority.
	WorkerID uint32
)

// WorkerInfo describes a worker of an authority.
type WorkerInfo struct {
	Name                crypto.PublicKey
	TransactionsAddress string
	WorkerAddress       string
}

// Authority is the identity of one validator.
type Authority struct {
	PublicKey      crypto.PublicKey
	Stake          Stake
	PrimaryAddress string
	Workers        map[WorkerID]WorkerInfo
}

func (a Authority) String() string {
	return fmt.Sprintf("%s@%s=%d", a.PublicKey, a.PrimaryAddress, a.Stake)
}
