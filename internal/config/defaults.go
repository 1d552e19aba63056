package config

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "./data/vector_db.sqlite"
	}
	if cfg.Storage.Collection == "" {
		cfg.Storage.Collection = "bengali_literature"
	}
	if cfg.Storage.SnapshotPath == "" {
		cfg.Storage.SnapshotPath = "./data/processed_chunks.json"
	}
	if cfg.OpenAI.EmbeddingModel == "" {
		cfg.OpenAI.EmbeddingModel = "text-embedding-3-small"
	}
	if cfg.OpenAI.ChatModel == "" {
		cfg.OpenAI.ChatModel = "gpt-4o-mini"
	}
	if cfg.OpenAI.Dimensions == 0 {
		cfg.OpenAI.Dimensions = 1536
	}
	if cfg.Retrieval.MaxChunks == 0 {
		cfg.Retrieval.MaxChunks = 5
	}
	if cfg.Memory.Dir == "" {
		cfg.Memory.Dir = "./data/memory"
	}
	if cfg.Memory.ShortTermSize == 0 {
		cfg.Memory.ShortTermSize = 10
	}
	if cfg.Corpus.Path == "" {
		cfg.Corpus.Path = "./data/aparichita_content.json"
	}
}
