// Package api is the HTTP surface of the emulator: registration and
// token issuance, message send/reply/edit/list, contact and chat
// lookups, media upload/download, reactions, and the connection
// endpoint discovery used by clients before they open the real-time
// channel.
//
// Responses use the platform's envelope {code, msg, data} with code 0
// on success and 1 on application errors, which arrive with HTTP 200
// like the emulated platform does.
package api
