package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Emitter is the narrow interface modules use to publish events.
type Emitter interface {
	Emit(eventType EventType, severity Severity, source, message string, data EventData)
}

// Manager handles event emission and logging
type Manager struct {
	bus *Bus
	now func() time.Time
	log zerolog.Logger
}

// NewManager creates a new event manager
func NewManager(bus *Bus, log zerolog.Logger) *Manager {
	return &Manager{
		bus: bus,
		now: time.Now,
		log: log.With().Str("service", "events").Logger(),
	}
}

// Bus returns the underlying bus for subscription.
func (m *Manager) Bus() *Bus {
	return m.bus
}

// Emit builds an event from typed data, publishes it to the bus and logs it.
func (m *Manager) Emit(eventType EventType, severity Severity, source, message string, data EventData) {
	event := Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Category:  eventType.Category(),
		Severity:  severity,
		Source:    source,
		Message:   message,
		Data:      convertEventDataToMap(data),
		Timestamp: m.now().UTC(),
	}

	if m.bus != nil {
		m.bus.Publish(event)
	}

	logEvent := m.log.Info()
	switch severity {
	case SeverityWarning:
		logEvent = m.log.Warn()
	case SeverityCritical:
		logEvent = m.log.Error()
	}

	eventJSON, _ := json.Marshal(event)
	logEvent.
		Str("event_type", string(eventType)).
		Str("source", source).
		RawJSON("event", eventJSON).
		Msg(message)
}

// EmitError emits an error event
func (m *Manager) EmitError(source string, err error, context map[string]interface{}) {
	m.Emit(ErrorOccurred, SeverityWarning, source, err.Error(), &ErrorEventData{
		Error:   err.Error(),
		Context: context,
	})
}

// Nop is an Emitter that discards events.
type Nop struct{}

// Emit implements Emitter.
func (Nop) Emit(EventType, Severity, string, string, EventData) {}

// convertEventDataToMap converts typed EventData to the map carried on the wire
func convertEventDataToMap(data EventData) map[string]interface{} {
	if data == nil {
		return nil
	}

	jsonBytes, err := json.Marshal(data)
	if err != nil {
		return nil
	}

	var result map[string]interface{}
	if err := json.Unmarshal(jsonBytes, &result); err != nil {
		return nil
	}

	return result
}

// ConvertMapToStruct decodes an event's Data map back into a typed payload.
func ConvertMapToStruct(m map[string]interface{}, v interface{}) error {
	jsonBytes, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return json.Unmarshal(jsonBytes, v)
}
