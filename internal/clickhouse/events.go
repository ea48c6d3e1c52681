package clickhouse

import (
	"encoding/json"

	"github.com/Billy-Davies-2/fantasy-draft-assistant/internal/pubsub"
)

// PickEvent is the row stored for a draft:pick event
type PickEvent struct {
	DraftID  string
	Pick     int
	Round    int
	Team     int
	Player   string
	Position string
	Tier     int
	Source   string
}

// PickEventRow extracts a pick row from a draft:pick event. Payload numbers
// arrive as float64 after a trip through NATS and as int when published in-process.
func PickEventRow(ev pubsub.Event) (PickEvent, bool) {
	if ev.Type != pubsub.EventDraftPick || ev.DraftID == "" {
		return PickEvent{}, false
	}
	row := PickEvent{
		DraftID:  ev.DraftID,
		Pick:     intField(ev.Payload, "pick"),
		Round:    intField(ev.Payload, "round"),
		Team:     intField(ev.Payload, "team"),
		Player:   stringField(ev.Payload, "player"),
		Position: stringField(ev.Payload, "position"),
		Tier:     intField(ev.Payload, "tier"),
		Source:   stringField(ev.Payload, "source"),
	}
	if row.Pick == 0 || row.Player == "" {
		return PickEvent{}, false
	}
	return row, true
}

func intField(m map[string]interface{}, key string) int {
	switch v := m[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case json.Number:
		n, _ := v.Int64()
		return int(n)
	}
	return 0
}

func stringField(m map[string]interface{}, key string) string {
	s, _ := m[key].(string)
	return s
}
