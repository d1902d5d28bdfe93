package config

// Credential represents a stored credential entry.
type Credential struct {
	Service string
	Name    string
	Key     string
	Value   string
}

// Setting is one key/value entry of the settings table.
type Setting struct {
	Key   string
	Value string
}

// Store abstracts over the backing storage for graphium settings and credentials.
type Store interface {
	// Settings (connection list, selected server/graph/version, salts)
	GetSetting(key string) (string, error)
	SetSetting(key, value string) error
	ListSettings() ([]Setting, error)
	DeleteSetting(key string) error

	// Credentials referenced by a connection's auth reference
	GetCredential(service, name, key string) (string, error)
	SetCredential(service, name, key, value string) error
	ListCredentials(service string) ([]Credential, error)
	DeleteCredential(service, name string) error

	Close() error
}
