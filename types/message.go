package types

// MessageType is the topic of a bus message. Subscribers subscribe by
// type; publishing a type nobody has subscribed to is an error.
type MessageType uint8

const (
	MessageBlockProposal MessageType = iota + 1
	MessageTransactionBatch
	MessageSettlementChallenge
	MessageDataRequest
	MessageDataResponse
	MessageHealthCheck
	MessageStateSync
)

func (m MessageType) String() string {
	switch m {
	case MessageBlockProposal:
		return "block_proposal"
	case MessageTransactionBatch:
		return "transaction_batch"
	case MessageSettlementChallenge:
		return "settlement_challenge"
	case MessageDataRequest:
		return "data_request"
	case MessageDataResponse:
		return "data_response"
	case MessageHealthCheck:
		return "health_check"
	case MessageStateSync:
		return "state_sync"
	default:
		return "unknown"
	}
}

// MessagePriority orders messages for priority-aware consumers.
type MessagePriority uint8

const (
	PriorityCritical MessagePriority = iota + 1
	PriorityHigh
	PriorityNormal
	PriorityLow
)

func (p MessagePriority) String() string {
	switch p {
	case PriorityCritical:
		return "critical"
	case PriorityHigh:
		return "high"
	case PriorityNormal:
		return "normal"
	case PriorityLow:
		return "low"
	default:
		return "unknown"
	}
}

// DataRequest asks the data availability layer for a blob by hash.
type DataRequest struct {
	DataHash Hash   `cramberry:"1"`
	Height   uint64 `cramberry:"2"`
}

// HealthReport is a layer's self-reported health, circulated on the
// bus in response to health checks.
type HealthReport struct {
	Layer  LayerType    `cramberry:"1"`
	Status HealthStatus `cramberry:"2"`
	Detail string       `cramberry:"3"`
}

// MessagePayload is a tagged union: exactly one field is non-nil,
// matching the message type. Raw carries opaque bytes for payloads
// with no structured form.
type MessagePayload struct {
	Block     *Block               `cramberry:"1"`
	Batch     *ExecutionBatch      `cramberry:"2"`
	Challenge *SettlementChallenge `cramberry:"3"`
	Request   *DataRequest         `cramberry:"4"`
	Health    *HealthReport        `cramberry:"5"`
	Raw       []byte               `cramberry:"6"`
}

// ModularMessage is the bus wire envelope. Ephemeral: not persisted,
// its lifetime ends at delivery to the subscribed channels.
type ModularMessage struct {
	ID          string          `cramberry:"1"`
	Type        MessageType     `cramberry:"2"`
	SourceLayer LayerType       `cramberry:"3"`
	TargetLayer *LayerType      `cramberry:"4"`
	Payload     MessagePayload  `cramberry:"5"`
	Priority    MessagePriority `cramberry:"6"`
	Timestamp   uint64          `cramberry:"7"`
}
