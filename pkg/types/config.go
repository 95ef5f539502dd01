package types

import "time"

// StoreBackend selects how the case table is persisted.
type StoreBackend string

const (
	StoreCSV    StoreBackend = "csv"
	StoreSQLite StoreBackend = "sqlite"
)

// StoreConfig holds settings for the case store.
type StoreConfig struct {
	// Backend is csv (default) or sqlite.
	Backend StoreBackend `json:"backend" yaml:"backend" mapstructure:"backend"`

	// CasesPath is the delimited case table (e.g. "data/classified_data.csv").
	CasesPath string `json:"cases_path" yaml:"cases_path" mapstructure:"cases_path"`

	// SQLitePath is the database file used by the sqlite backend.
	SQLitePath string `json:"sqlite_path" yaml:"sqlite_path" mapstructure:"sqlite_path"`

	// LockTimeout bounds how long Append waits for the advisory file lock.
	LockTimeout time.Duration `json:"lock_timeout" yaml:"lock_timeout" mapstructure:"lock_timeout"`
}

// ReferenceConfig holds settings for the disease and medicine knowledge bases.
type ReferenceConfig struct {
	DiseasePath  string `json:"disease_path" yaml:"disease_path" mapstructure:"disease_path"`
	MedicinePath string `json:"medicine_path" yaml:"medicine_path" mapstructure:"medicine_path"`

	// CacheSize is the number of parsed tables kept in memory.
	CacheSize int `json:"cache_size" yaml:"cache_size" mapstructure:"cache_size"`
}

// InferenceBackend selects where classification and extraction run.
type InferenceBackend string

const (
	InferenceLocal  InferenceBackend = "local"
	InferenceRemote InferenceBackend = "remote"
)

// InferenceConfig holds settings for the classifier and entity extractor.
type InferenceConfig struct {
	// Backend is local (model files on disk) or remote (model server).
	Backend InferenceBackend `json:"backend" yaml:"backend" mapstructure:"backend"`

	// ClassifierModel is the path of the linear classifier model file.
	ClassifierModel string `json:"classifier_model" yaml:"classifier_model" mapstructure:"classifier_model"`

	// EntityModel is the path of the entity pattern file.
	EntityModel string `json:"entity_model" yaml:"entity_model" mapstructure:"entity_model"`

	// UseReferenceNames adds disease and medicine names from the knowledge
	// bases to the entity patterns.
	UseReferenceNames bool `json:"use_reference_names" yaml:"use_reference_names" mapstructure:"use_reference_names"`

	// Endpoint is the base URL of the model server (remote backend).
	Endpoint string `json:"endpoint" yaml:"endpoint" mapstructure:"endpoint"`

	// APIKey authenticates against the model server.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// Timeout bounds a single classify or extract call.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// MaxRetries is the retry budget for rate-limited remote calls.
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`

	// BreakerThreshold is the number of consecutive remote failures that
	// opens the circuit breaker.
	BreakerThreshold uint32 `json:"breaker_threshold" yaml:"breaker_threshold" mapstructure:"breaker_threshold"`
}

// ServerConfig holds settings for the HTTP surface.
type ServerConfig struct {
	Addr         string        `json:"addr" yaml:"addr" mapstructure:"addr"`
	ReadTimeout  time.Duration `json:"read_timeout" yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout" yaml:"write_timeout" mapstructure:"write_timeout"`

	// AnalyzeRate is the sustained analyze calls per second allowed per session.
	AnalyzeRate float64 `json:"analyze_rate" yaml:"analyze_rate" mapstructure:"analyze_rate"`

	// AnalyzeBurst is the analyze burst size per session.
	AnalyzeBurst int `json:"analyze_burst" yaml:"analyze_burst" mapstructure:"analyze_burst"`

	// SessionIdle ends sessions unused for this long, discarding their
	// unsaved drafts. Zero keeps sessions until logout.
	SessionIdle time.Duration `json:"session_idle" yaml:"session_idle" mapstructure:"session_idle"`
}

// UserConfig is one account of the user directory.
type UserConfig struct {
	Username string `json:"username" yaml:"username" mapstructure:"username"`

	// PasswordHash is a bcrypt hash (see `medonboard hash-password`).
	PasswordHash string `json:"password_hash" yaml:"password_hash" mapstructure:"password_hash"`

	Role Role `json:"role" yaml:"role" mapstructure:"role"`
}

// AuthConfig lists the accounts allowed to sign in.
type AuthConfig struct {
	Users []UserConfig `json:"users" yaml:"users" mapstructure:"users"`
}

// LogConfig controls logrus output.
type LogConfig struct {
	// Level is debug, info, warn, or error.
	Level string `json:"level" yaml:"level" mapstructure:"level"`

	// Format is text or json.
	Format string `json:"format" yaml:"format" mapstructure:"format"`
}

// AppConfig groups all settings of the application.
type AppConfig struct {
	Store     StoreConfig     `json:"store" yaml:"store" mapstructure:"store"`
	Reference ReferenceConfig `json:"reference" yaml:"reference" mapstructure:"reference"`
	Inference InferenceConfig `json:"inference" yaml:"inference" mapstructure:"inference"`
	Server    ServerConfig    `json:"server" yaml:"server" mapstructure:"server"`
	Auth      AuthConfig      `json:"auth" yaml:"auth" mapstructure:"auth"`
	Log       LogConfig       `json:"log" yaml:"log" mapstructure:"log"`
}

// DefaultConfig returns the settings used when no config file overrides them.
func DefaultConfig() AppConfig {
	return AppConfig{
		Store: StoreConfig{
			Backend:     StoreCSV,
			CasesPath:   "data/classified_data.csv",
			SQLitePath:  "data/cases.db",
			LockTimeout: 5 * time.Second,
		},
		Reference: ReferenceConfig{
			DiseasePath:  "data/disease_knowledge.csv",
			MedicinePath: "data/medicine_data.csv",
			CacheSize:    8,
		},
		Inference: InferenceConfig{
			Backend:           InferenceLocal,
			ClassifierModel:   "models/classifier.yaml",
			EntityModel:       "models/entities.yaml",
			UseReferenceNames: true,
			Timeout:           10 * time.Second,
			MaxRetries:        3,
			BreakerThreshold:  5,
		},
		Server: ServerConfig{
			Addr:         ":8080",
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
			AnalyzeRate:  1,
			AnalyzeBurst: 5,
			SessionIdle:  8 * time.Hour,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}
