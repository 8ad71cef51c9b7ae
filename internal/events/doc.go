// Package events implements the in-process event bus that fans core
// lifecycle events out to subscribers.
//
// The registry publishes service status transitions, the scheduler publishes
// health sweep summaries, and the workflow engine publishes execution
// completions. Subscribers attach and detach at any time; delivery never
// blocks the publisher, and a subscriber that fails to accept an event is
// dropped from the bus.
//
// The package ships two subscriber implementations: ChannelSubscriber for
// in-process consumers and the websocket handler in websocket.go for remote
// ones.
package events
