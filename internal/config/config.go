package config

type AppConfig struct {
	RabbitMQURL string `env:"RABBITMQ_URL"`
	PodName     string `env:"POD_NAME"`
	Namespace   string `env:"POD_NAMESPACE" envDefault:"default"`
}

type VectorDatabaseConfig struct {
	Host            string `env:"MAILVECTOR_POSTGRES_HOST,required"`
	Port            string `env:"MAILVECTOR_POSTGRES_PORT,required"`
	User            string `env:"MAILVECTOR_POSTGRES_USER,required"`
	DBName          string `env:"MAILVECTOR_POSTGRES_DB_NAME,required"`
	Password        string `env:"MAILVECTOR_POSTGRES_PASSWORD,required"`
	MaxConn         int    `env:"MAILVECTOR_POSTGRES_DB_MAX_CONN"`
	MaxIdleConn     int    `env:"MAILVECTOR_POSTGRES_DB_MAX_IDLE_CONN"`
	ConnMaxLifetime int    `env:"MAILVECTOR_POSTGRES_DB_CONN_MAX_LIFETIME"`
	LogLevel        string `env:"MAILVECTOR_POSTGRES_LOG_LEVEL" envDefault:"WARN"`
	SSLMode         string `env:"MAILVECTOR_POSTGRES_SSL_MODE" envDefault:"require"`
}

type EmbeddingAPIConfig struct {
	Url            string `env:"EMBEDDING_API_URL" envDefault:"https://api.openai.com" validate:"required"`
	ApiKey         string `env:"EMBEDDING_API_KEY"`
	Model          string `env:"EMBEDDING_MODEL" envDefault:"text-embedding-3-small"`
	Dimensions     int    `env:"EMBEDDING_DIMENSIONS" envDefault:"1536"`
	MaxInputTokens int    `env:"EMBEDDING_MAX_INPUT_TOKENS" envDefault:"8191"`
	TimeoutSeconds int    `env:"EMBEDDING_TIMEOUT_SECONDS" envDefault:"30"`
	MaxBatchSize   int    `env:"EMBEDDING_MAX_BATCH_SIZE" envDefault:"100"`
	BatchDelayMs   int    `env:"EMBEDDING_BATCH_DELAY_MS" envDefault:"500"`
	MaxRetries     int    `env:"EMBEDDING_MAX_RETRIES" envDefault:"3"`
	RetryBaseMs    int    `env:"EMBEDDING_RETRY_BASE_MS" envDefault:"1000"`
}

type EmbeddingCacheConfig struct {
	MaxEntries int    `env:"EMBEDDING_CACHE_MAX_ENTRIES" envDefault:"500"`
	TTLHours   int    `env:"EMBEDDING_CACHE_TTL_HOURS" envDefault:"24"`
	RedisURL   string `env:"EMBEDDING_CACHE_REDIS_URL"`
}

type PipelineConfig struct {
	VectorizationBatchSize    int `env:"VECTORIZATION_BATCH_SIZE" envDefault:"5"`
	AttachmentConcurrency     int `env:"ATTACHMENT_CONCURRENCY" envDefault:"5"`
	AttachmentMaxSizeBytes    int `env:"ATTACHMENT_MAX_SIZE_BYTES" envDefault:"10485760"`
	ChunkMaxSize              int `env:"CHUNK_MAX_SIZE" envDefault:"8000"`
	ChunkOverlap              int `env:"CHUNK_OVERLAP" envDefault:"200"`
	ChunkMinSize              int `env:"CHUNK_MIN_SIZE" envDefault:"100"`
	FilterCacheMaxEntries     int `env:"FILTER_CACHE_MAX_ENTRIES" envDefault:"1000"`
	FilterCacheTTLMinutes     int `env:"FILTER_CACHE_TTL_MINUTES" envDefault:"30"`
	InterBatchDelayMs         int `env:"INTER_BATCH_DELAY_MS" envDefault:"500"`
}
