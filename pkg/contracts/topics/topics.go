package topics

const (
	// Pool
	WagerPlaced   = "pool_wager_placed"
	MatchResolved = "pool_match_resolved"
	HistoryPurged = "pool_history_purged"

	// Redis Pub/Sub usado pelo feed WebSocket do pool-service
	PoolUpdatesBroadcast = "pool_updates_broadcast"
)
