package narwhal

import (
	"fmt"

	"github.com/dagbft/narwhal/model/encoding"
)

// Transaction is an opaque client transaction.
type Transaction []byte

// Batch is a list of transactions sealed by a worker.
type Batch struct {
	Transactions []Transaction
}

// Digest returns the content digest of the batch.
func (b *Batch) Digest() (Identifier, error) {
	txs := b.Transactions
	if txs == nil {
		txs = []Transaction{}
	}
	id, err := MakeID(encoding.BatchTag, txs)
	if err != nil {
		return ZeroID, fmt.Errorf("could not compute batch digest: %w", err)
	}
	return id, nil
}

// OwnBatch announces a batch sealed and stored by a worker of this node. The
// producer references it in the next header.
type OwnBatch struct {
	Digest    Identifier
	WorkerID  WorkerID
	CreatedAt TimestampMs
}
