package payroll

// Event names streamed to clients watching a company's payroll.
const (
	EventRunUpdated   = "payroll.run.updated"
	EventRunFinalized = "payroll.run.finalized"
	EventItemUpdated  = "payroll.item.updated"
)

type RunEvent struct {
	RunID   string `json:"run_id"`
	ItemID  string `json:"item_id,omitempty"`
	ActorID string `json:"actor_id,omitempty"`
	Marked  int    `json:"marked,omitempty"`
}
