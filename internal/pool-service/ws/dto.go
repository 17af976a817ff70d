package ws

// ClientMsg é a mensagem recebida do cliente WebSocket
// Type: subscribe | unsubscribe | ping
// MatchID 0 assina todas as partidas
type ClientMsg struct {
	Type    string `json:"type"`
	MatchID int64  `json:"matchId"`
}
