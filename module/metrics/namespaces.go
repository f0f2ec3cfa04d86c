package metrics

const (
	namespaceNarwhal = "narwhal"
)

const (
	subsystemCore         = "core"
	subsystemProducer     = "producer"
	subsystemSynchronizer = "synchronizer"
	subsystemBlockWaiter  = "block_waiter"
	subsystemStorage      = "storage"
)
