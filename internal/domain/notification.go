package domain

// NotificationType classifies a toast.
type NotificationType string

const (
	NotifyNewToken      NotificationType = "new_token"
	NotifyMigration     NotificationType = "migration"
	NotifyQuestComplete NotificationType = "quest_complete"
	NotifyClaim         NotificationType = "claim"
	NotifyTrade         NotificationType = "trade"
)

// Notification is a user-visible message derived from market or player activity.
type Notification struct {
	ID          string           `json:"id"`
	Type        NotificationType `json:"type"`
	Title       string           `json:"title"`
	Message     string           `json:"message"`
	Icon        string           `json:"icon"`
	TokenID     string           `json:"token_id,omitempty"` // set when the toast links to a chart
	CreatedAtMs int64            `json:"timestamp"`
	Read        bool             `json:"read"`
}
