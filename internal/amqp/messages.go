package amqp

import (
	"encoding/json"
	"time"
)

// Goal lifecycle event names carried on the wire.
const (
	EventGoalCreated  = "created"
	EventGoalAchieved = "achieved"
	EventGoalDeleted  = "deleted"
)

// GoalEventMessage announces a goal lifecycle transition. The worker
// records these into the goal_events audit table; payloads stay small
// and carry amounts as decimal strings.
type GoalEventMessage struct {
	GoalID      string    `json:"goal_id"`
	UserID      string    `json:"user_id"`
	Event       string    `json:"event"`
	Description string    `json:"description"`
	Amount      string    `json:"amount"`
	Timestamp   time.Time `json:"timestamp"`
}

// NewGoalEventMessage creates an event message stamped now.
func NewGoalEventMessage(goalID, userID, event, description, amount string) *GoalEventMessage {
	return &GoalEventMessage{
		GoalID:      goalID,
		UserID:      userID,
		Event:       event,
		Description: description,
		Amount:      amount,
		Timestamp:   time.Now(),
	}
}

// ToJSON converts the message to JSON bytes.
func (m *GoalEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// GoalEventMessageFromJSON creates a message from JSON bytes.
func GoalEventMessageFromJSON(data []byte) (*GoalEventMessage, error) {
	var msg GoalEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
