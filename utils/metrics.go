package utils

import "sync/atomic"

// counters aggregates the service-wide activity totals reported by the
// status server.
var counters struct {
	messagesReceived  atomic.Int64
	messagesSent      atomic.Int64
	eventsReceived    atomic.Int64
	eventsSent        atomic.Int64
	discordReconnects atomic.Int64
}

// IncrementMessagesReceived counts one inbound Discord message.
func IncrementMessagesReceived() { counters.messagesReceived.Add(1) }

// IncrementMessagesSent counts one outbound Discord message.
func IncrementMessagesSent() { counters.messagesSent.Add(1) }

// IncrementEventsReceived counts one inbound gateway event.
func IncrementEventsReceived() { counters.eventsReceived.Add(1) }

// IncrementEventsSent counts one outbound gateway event.
func IncrementEventsSent() { counters.eventsSent.Add(1) }

// IncrementReconnects counts one Discord session resume.
func IncrementReconnects() { counters.discordReconnects.Add(1) }

// GetMetrics snapshots every counter for the status endpoint.
func GetMetrics() map[string]interface{} {
	return map[string]interface{}{
		"messages_received":  counters.messagesReceived.Load(),
		"messages_sent":      counters.messagesSent.Load(),
		"events_received":    counters.eventsReceived.Load(),
		"events_sent":        counters.eventsSent.Load(),
		"discord_reconnects": counters.discordReconnects.Load(),
	}
}
