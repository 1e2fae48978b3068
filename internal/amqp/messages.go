package amqp

import (
	"encoding/json"
	"time"
)

// TrainRequestMessage asks the worker to (re)train a user's baseline from
// a statement file dropped by the upload side. The CSV itself stays on
// shared storage; the message carries only the path.
type TrainRequestMessage struct {
	UserID    string    `json:"user_id"`
	CSVPath   string    `json:"csv_path"`
	Timestamp time.Time `json:"timestamp"`
}

func NewTrainRequestMessage(userID, csvPath string) *TrainRequestMessage {
	return &TrainRequestMessage{
		UserID:    userID,
		CSVPath:   csvPath,
		Timestamp: time.Now(),
	}
}

func (m *TrainRequestMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func TrainRequestMessageFromJSON(data []byte) (*TrainRequestMessage, error) {
	var msg TrainRequestMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// BaselineTrainedMessage announces a successful training run, carrying the
// derived averages so downstream consumers need not query the engine.
type BaselineTrainedMessage struct {
	UserID         string    `json:"user_id"`
	MonthsInWindow int       `json:"months_in_window"`
	AvgExpenses    float64   `json:"avg_expenses"`
	AvgSavings     float64   `json:"avg_savings"`
	AvgIncome      float64   `json:"avg_income"`
	TrainedAt      time.Time `json:"trained_at"`
	Timestamp      time.Time `json:"timestamp"`
}

func (m *BaselineTrainedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func BaselineTrainedMessageFromJSON(data []byte) (*BaselineTrainedMessage, error) {
	var msg BaselineTrainedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
