package service

// RealtimeEmitter delivers events to a user's connected websocket sessions.
// Satisfied by *websocket.Hub; a nil emitter disables the realtime surface.
type RealtimeEmitter interface {
	EmitToUser(userID, msgType string, payload interface{})
}
