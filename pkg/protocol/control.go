package protocol

import "encoding/json"

// Client reconnect configuration advertised in every pong payload.
// The SDK parses the pong payload as JSON and applies these values to its
// keepalive and reconnect behavior.
const (
	PingIntervalSeconds      = 120
	ReconnectCount           = 10
	ReconnectIntervalSeconds = 3
	ReconnectNonce           = 5
)

// ClientConfig is the JSON body of a pong frame.
type ClientConfig struct {
	PingInterval      int `json:"PingInterval"`
	ReconnectCount    int `json:"ReconnectCount"`
	ReconnectInterval int `json:"ReconnectInterval"`
	ReconnectNonce    int `json:"ReconnectNonce"`
}

// DefaultClientConfig returns the advertised reconnect/keepalive settings.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		PingInterval:      PingIntervalSeconds,
		ReconnectCount:    ReconnectCount,
		ReconnectInterval: ReconnectIntervalSeconds,
		ReconnectNonce:    ReconnectNonce,
	}
}

// MakePongFrame builds the reply to a ping frame. The ping's seq_id and
// service are echoed verbatim; seq_id in particular is opaque client data
// and is never validated or interpreted.
func MakePongFrame(ping *Frame) []byte {
	payload, _ := json.Marshal(DefaultClientConfig())
	headers := []Header{{Key: "type", Value: "pong"}}
	return Encode(ping.SeqID, MethodControl, headers, payload, ping.Service)
}
