package consensus

import (
	"github.com/mosaicnetworks/cadence/src/cycle"
	"github.com/mosaicnetworks/cadence/src/delta"
	"github.com/sirupsen/logrus"
)

// Builder builds candidates from the top transactions of a TransactionSource.
type Builder struct {
	producerID      string
	txs             TransactionSource
	clock           cycle.Clock
	maxTransactions int
	skipEmpty       bool
	logger          *logrus.Entry
}

// NewBuilder creates a Builder. When skipEmpty is set, the builder abstains
// instead of building an empty delta.
func NewBuilder(producerID string,
	txs TransactionSource,
	clock cycle.Clock,
	maxTransactions int,
	skipEmpty bool,
	logger *logrus.Entry) *Builder {

	return &Builder{
		producerID:      producerID,
		txs:             txs,
		clock:           clock,
		maxTransactions: maxTransactions,
		skipEmpty:       skipEmpty,
		logger:          logger.WithField("prefix", "builder"),
	}
}

// BuildCandidateDelta implements DeltaBuilder.
func (b *Builder) BuildCandidateDelta(previousDeltaHash delta.Hash) (*delta.CandidateDelta, *delta.Delta, error) {
	txs := b.txs.GetTopTransactionsByPriority(b.maxTransactions)

	if len(txs) == 0 && b.skipEmpty {
		b.logger.Debug("No transactions, abstaining")
		return nil, nil, nil
	}

	d := delta.NewDelta(previousDeltaHash, b.clock.Now().UnixNano(), txs)

	hash, err := d.Hash()
	if err != nil {
		return nil, nil, err
	}

	b.logger.WithFields(logrus.Fields{
		"prev":         previousDeltaHash.Short(),
		"hash":         hash.Short(),
		"transactions": len(txs),
	}).Debug("Built candidate")

	return &delta.CandidateDelta{
		Hash:              hash,
		PreviousDeltaHash: previousDeltaHash,
		ProducerID:        b.producerID,
	}, d, nil
}
