package domain

// QuestCategory groups quests for display.
type QuestCategory string

const (
	QuestTrading QuestCategory = "trading"
	QuestHolding QuestCategory = "holding"
	QuestDegen   QuestCategory = "degen"
)

// Quest is a player achievement with numeric progress toward Target.
type Quest struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Icon        string        `json:"icon"`
	Reward      float64       `json:"reward"` // SOL credited on completion
	Target      float64       `json:"target"`
	Current     float64       `json:"current"`
	Progress    float64       `json:"progress"` // 0..1
	Completed   bool          `json:"completed"`
	Category    QuestCategory `json:"category"`
}
