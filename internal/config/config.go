package config

// Config is the full application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Embedding EmbeddingConfig `mapstructure:"embedding"`
	Retrieval RetrievalConfig `mapstructure:"retrieval"`
	Prompt    PromptConfig    `mapstructure:"prompt"`
	Log       LogConfig       `mapstructure:"log"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	HTTP HTTPConfig `mapstructure:"http"`
}

// HTTPConfig holds the gin server settings.
type HTTPConfig struct {
	Port  int  `mapstructure:"port"`
	Debug bool `mapstructure:"debug"`
}

// DatabaseConfig holds the sqlite settings.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
	Seed bool   `mapstructure:"seed"` // load the embedded mock catalog on first start
}

// RedisConfig holds the optional redis cache settings.
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	TTL      int    `mapstructure:"ttl"` // seconds
}

// LLMConfig holds the external model settings.
type LLMConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	Model       string  `mapstructure:"model"`
	APIKey      string  `mapstructure:"api_key"`
	BaseURL     string  `mapstructure:"base_url"`
	Timeout     int     `mapstructure:"timeout"` // seconds, per attempt
	MaxTokens   int     `mapstructure:"max_tokens"`
	Temperature float64 `mapstructure:"temperature"`
}

// EmbeddingConfig holds the embedding provider settings. Provider "local"
// selects the deterministic in-process embedder, "openai" the remote one.
type EmbeddingConfig struct {
	Provider  string `mapstructure:"provider"`
	Model     string `mapstructure:"model"`
	APIKey    string `mapstructure:"api_key"`
	BaseURL   string `mapstructure:"base_url"`
	Dimension int    `mapstructure:"dimension"` // local embedder only
}

// RetrievalConfig holds ranking knobs.
type RetrievalConfig struct {
	ProductTopK   int     `mapstructure:"product_top_k"`
	StoreTopK     int     `mapstructure:"store_top_k"`
	PromotionTopK int     `mapstructure:"promotion_top_k"`
	TopK          int     `mapstructure:"top_k"`         // overall cap on context records
	MinScore      float64 `mapstructure:"min_score"`     // records below are excluded
	KeywordBoost  float64 `mapstructure:"keyword_boost"` // added on exact size/store/product match
}

// PromptConfig holds assembler limits.
type PromptConfig struct {
	MaxBytes      int `mapstructure:"max_bytes"`
	HistoryWindow int `mapstructure:"history_window"` // turns of conversation history
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level string `mapstructure:"level"` // debug, info, warn, error
}
