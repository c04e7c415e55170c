/*
Package event provides a type-safe pub/sub event system for the agent
core.

It is built on watermill's gochannel for transport plumbing while
keeping direct-call semantics so payloads retain their Go types.

Event categories:

Tool events:
  - tool.started: a tool call began executing
  - tool.finished: a tool call completed (with or without error)
  - tool.skipped: the permission layer refused a call

File events:
  - file.read: a file was read by a tool
  - file.modified: a file was written or edited

Permission events:
  - permission.required: a request is waiting for a decision
  - permission.resolved: a request was answered

Sub-agent events:
  - subagent.started / subagent.finished

Publishing:

	event.Publish(event.Event{
		Type: event.ToolStarted,
		Data: event.ToolStartedData{CallID: id, Tool: "bash"},
	})

Subscribing:

	unsubscribe := event.Subscribe(event.FileModified, func(e event.Event) {
		data := e.Data.(event.FileModifiedData)
		cache.Invalidate(data.Path)
	})
	defer unsubscribe()

Subscribers called via PublishSync run in the publisher's goroutine and
must complete quickly, avoid re-entrant publishing, and never block on
channels without a default case.

For testing or isolation, create a private bus with NewBus, and use
Reset to clear the default bus between tests.
*/
package event
