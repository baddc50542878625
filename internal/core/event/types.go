package event

// Envelope is the shape every bus event carries: a namespaced name and an
// opaque payload. Handlers that care about a subset of names filter on Name
// themselves via On, mirroring the normative event list's "events always
// carry a payload field" contract.
type Envelope struct {
	Name    string
	Payload any
}

// On subscribes fn to Envelope events whose Name matches name. Delivery
// still goes through Bus's synchronous, registration-ordered Emit.
func On(b *Bus, name string, fn func(Envelope)) {
	Subscribe(b, func(e Envelope) {
		if e.Name == name {
			fn(e)
		}
	})
}

// Publish wraps payload in an Envelope and emits it under name.
func Publish(b *Bus, name string, payload any) {
	Emit(b, Envelope{Name: name, Payload: payload})
}

// Normative event names (spec.md §6). Non-exhaustive: handlers and rules may
// publish additional names, but consumers can rely on these always meaning
// what they say.
const (
	EngineAction        = "engine:action"
	EngineError         = "engine:error"
	EngineUndo          = "engine:undo"
	EngineRedo          = "engine:redo"
	EngineRestored      = "engine:restored"
	EnginePolicy        = "engine:policy"
	EnginePolicyRemoved = "engine:policy:removed"
	EnginePolicyCleared = "engine:policy:cleared"
	EngineShutdown      = "engine:shutdown"
	EngineWarning       = "engine:warning"

	StateUpdated = "state:updated"
	StateChanged = "state:changed"

	RuleTriggered = "rule:triggered"
	RuleError     = "rule:error"
	RuleRemoved   = "rule:removed"
	RuleCleared   = "rule:cleared"

	PolicyTriggered = "policy:triggered"
	PolicyError     = "policy:error"

	ScriptStart    = "script:start"
	ScriptComplete = "script:complete"
	ScriptStop     = "script:stop"

	RecorderStart         = "recorder:start"
	RecorderStop          = "recorder:stop"
	RecorderClear         = "recorder:clear"
	RecorderImport        = "recorder:import"
	RecorderError         = "recorder:error"
	RecorderReplayStart   = "recorder:replay:start"
	RecorderReplayComplete = "recorder:replay:complete"
	RecorderReplayError    = "recorder:replay:error"

	NetReady             = "net:ready"
	NetDisconnected      = "net:disconnected"
	NetPeerConnected     = "net:peer:connected"
	NetPeerDisconnected  = "net:peer:disconnected"
	NetError             = "net:error"
	NetReconnecting      = "net:reconnecting"
	NetReconnected       = "net:reconnected"

	RoomError = "room:error"
)
