package models

// BuilderChange is one proposed board mutation in the builder-mode
// propose/approve/apply flow. The analyze endpoint returns these as
// suggestions; the apply endpoint receives the caller-approved subset.
type BuilderChange struct {
	Type        string `json:"type"`     // move | complete | create
	ItemType    string `json:"itemType"` // project | subtask
	ItemID      int64  `json:"itemId"`
	ItemName    string `json:"itemName"`
	ProjectID   int64  `json:"projectId,omitempty"`
	FromStatus  string `json:"fromStatus,omitempty"`
	ToStatus    string `json:"toStatus"`
	Description string `json:"description,omitempty"`
	Reason      string `json:"reason,omitempty"`
}

// BuilderResult reports the outcome of applying one change. A failed change
// never aborts the rest of the batch.
type BuilderResult struct {
	Success bool          `json:"success"`
	Change  BuilderChange `json:"change"`
	NewID   int64         `json:"newId,omitempty"`
	Error   string        `json:"error,omitempty"`
}
