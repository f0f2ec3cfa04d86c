package metrics

const (
	LabelResource = "resource"
	LabelReason   = "reason"
	LabelKind     = "kind"
	LabelQueue    = "queue"
	LabelOutcome  = "outcome"
	LabelNode     = "node"
)

const (
	ResourceCertificate         = "certificate"
	ResourceHeader              = "header"
	ResourceHeaderByCertificate = "header_by_certificate"
	ResourceLastVote            = "last_vote"
	ResourceBatch               = "batch"
	ResourcePayload             = "payload"
)

// reasons a header or certificate is parked
const (
	ReasonMissingParents   = "missing_parents"
	ReasonMissingPayload   = "missing_payload"
	ReasonMissingAncestors = "missing_ancestors"
)

const (
	QueueHeaderWaiter      = "header_waiter"
	QueueCertificateWaiter = "certificate_waiter"
	QueueCoreInbox         = "core_inbox"
)

const (
	OutcomeSuccess       = "success"
	OutcomeBlockNotFound = "block_not_found"
	OutcomeBatchError    = "batch_error"
	OutcomeBatchTimeout  = "batch_timeout"
)

// kinds of rejected messages
const (
	KindHeader      = "header"
	KindVote        = "vote"
	KindCertificate = "certificate"
)
