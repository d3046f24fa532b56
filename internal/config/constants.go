package config

import "time"

const (
	// Store drivers
	StoreDriverMemory   = "memory"
	StoreDriverFile     = "file"
	StoreDriverSQLite   = "sqlite"
	StoreDriverPostgres = "postgres"

	// Persisted layouts
	StoreSchemaSingle = "single"
	StoreSchemaMulti  = "multi"

	// Well-known keys in the client state store
	SessionListKey = "chatSessions"
	SessionIDKey   = "sessionId"

	// Session previews are cut to this many runes
	MaxPreviewLen = 30

	// Shown in place of a bot reply when the chat service fails
	SendErrorText = "Error: Could not get a response. Please try again."

	// Minimum pause after a failed session bootstrap
	BootstrapRetryInterval = 10 * time.Second

	// Idle chats are dropped from memory after this long
	IdleChatTTL          = 30 * time.Minute
	ChatEvictionInterval = 60 * time.Second

	// Telegram limits
	MaxTelegramMessageLen = 4096
	MaxCallbackDataLen    = 64

	// Sessions per page
	SessionsPerPage = 5

	// History messages shown by /history
	HistoryMessagesShown = 20
)
