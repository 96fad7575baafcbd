package config

const (
	// DefaultDatabasePath is the default path for the catalogue database.
	DefaultDatabasePath = "./shelfsync.db"

	// DefaultEncryptionKeyPath is where the at-rest credential key lives.
	DefaultEncryptionKeyPath = "./shelfsync.key"

	// DefaultRemoteBaseURL is the remote cataloguing service endpoint.
	DefaultRemoteBaseURL = "https://www.goodreads.com"
)
