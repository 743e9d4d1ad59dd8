package temporal

// Signal and query names of the harvest workflow. They are defined here so
// the client side can use them without importing the workflows package.
const (
	// SignalCancel stops a harvest after the batch in flight.
	SignalCancel = "cancel"

	// QueryProgress returns a HarvestProgress snapshot.
	QueryProgress = "progress"

	// HarvestWorkflowName is the registered workflow type name.
	HarvestWorkflowName = "HarvestWorkflow"
)

// CancelSignal is the payload of SignalCancel.
type CancelSignal struct {
	Reason string `json:"reason"`
}
