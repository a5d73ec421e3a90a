package types

// EventKind enumerates the orchestrator's event stream variants.
type EventKind uint8

const (
	EventBlockProposed EventKind = iota + 1
	EventBlockValidated
	EventBlockFinalized
	EventExecutionStarted
	EventExecutionCompleted
	EventExecutionFailed
	EventBatchSubmitted
	EventBatchSettled
	EventChallengeSubmitted
	EventChallengeResolved
	EventConsensusRoundStarted
	EventConsensusRoundCompleted
	EventDataStored
	EventDataRetrieved
	EventLayerHealthChanged
	EventConfigurationChanged
	EventPerformanceAlert
)

func (k EventKind) String() string {
	switch k {
	case EventBlockProposed:
		return "block_proposed"
	case EventBlockValidated:
		return "block_validated"
	case EventBlockFinalized:
		return "block_finalized"
	case EventExecutionStarted:
		return "execution_started"
	case EventExecutionCompleted:
		return "execution_completed"
	case EventExecutionFailed:
		return "execution_failed"
	case EventBatchSubmitted:
		return "batch_submitted"
	case EventBatchSettled:
		return "batch_settled"
	case EventChallengeSubmitted:
		return "challenge_submitted"
	case EventChallengeResolved:
		return "challenge_resolved"
	case EventConsensusRoundStarted:
		return "consensus_round_started"
	case EventConsensusRoundCompleted:
		return "consensus_round_completed"
	case EventDataStored:
		return "data_stored"
	case EventDataRetrieved:
		return "data_retrieved"
	case EventLayerHealthChanged:
		return "layer_health_changed"
	case EventConfigurationChanged:
		return "configuration_changed"
	case EventPerformanceAlert:
		return "performance_alert"
	default:
		return "unknown"
	}
}

// EventSeverity classifies events for priority dispatch.
type EventSeverity uint8

const (
	SeverityInfo EventSeverity = iota + 1
	SeverityWarning
	SeverityHigh
	SeverityCritical
)

func (s EventSeverity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityHigh:
		return "high"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// EventDetail carries the kind-specific fields of an event. Only the
// fields relevant to the kind are set.
type EventDetail struct {
	BlockHeight int64   `cramberry:"1"`
	BlockHash   *Hash   `cramberry:"2"`
	BatchID     *Hash   `cramberry:"3"`
	ChallengeID string  `cramberry:"4"`
	GasUsed     uint64  `cramberry:"5"`
	Metric      string  `cramberry:"6"`
	Value       float64 `cramberry:"7"`
	Message     string  `cramberry:"8"`
}

// Event is one entry of the orchestrator's uniform event stream.
type Event struct {
	Kind      EventKind     `cramberry:"1"`
	Severity  EventSeverity `cramberry:"2"`
	Layer     LayerType     `cramberry:"3"`
	Timestamp uint64        `cramberry:"4"`
	Detail    EventDetail   `cramberry:"5"`
}
