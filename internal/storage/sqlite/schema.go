package sqlite

// schemaStatements mirrors the postgres backend's table set, adapted to
// SQLite types: no JSONB (plain TEXT holding JSON), no native vector
// column (a BLOB of little-endian float32s, see embedding.go), no ivfflat
// index — VectorSearch does an exact scan instead (store contract quirk
// i: SQLite has no ANN index available).
func schemaStatements() []string {
	return []string{
		`PRAGMA foreign_keys = ON`,

		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			org_id TEXT,
			max_tokens INTEGER NOT NULL DEFAULT 8000,
			tokens INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			last_activity TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			expires_at TIMESTAMP,
			config TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_user ON sessions(user_id)`,

		`CREATE TABLE IF NOT EXISTS working_memory_items (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
			content_type TEXT NOT NULL,
			content TEXT NOT NULL,
			token_count INTEGER NOT NULL,
			relevance REAL NOT NULL DEFAULT 0,
			pinned INTEGER NOT NULL DEFAULT 0,
			sequence INTEGER NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			last_access TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_wmi_session ON working_memory_items(session_id)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_wmi_session_seq ON working_memory_items(session_id, sequence)`,

		`CREATE TABLE IF NOT EXISTS long_term_memories (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			category TEXT NOT NULL,
			subtype TEXT NOT NULL,
			content TEXT NOT NULL,
			summary TEXT,
			embedding BLOB NOT NULL,
			embedding_dim INTEGER NOT NULL,
			entities TEXT,
			metadata TEXT,
			event_time TIMESTAMP,
			is_temporal INTEGER NOT NULL DEFAULT 0,
			importance REAL NOT NULL DEFAULT 0.5,
			access_count INTEGER NOT NULL DEFAULT 0,
			decay_factor REAL NOT NULL DEFAULT 1.0,
			supersedes TEXT,
			source_session_id TEXT,
			source_type TEXT NOT NULL DEFAULT 'explicit',
			confidence REAL NOT NULL DEFAULT 1.0,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			last_access TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			deleted_at TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_ltm_user ON long_term_memories(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_ltm_category_subtype ON long_term_memories(category, subtype)`,
		`CREATE INDEX IF NOT EXISTS idx_ltm_deleted_at ON long_term_memories(deleted_at)`,

		`CREATE TABLE IF NOT EXISTS memory_relationships (
			id TEXT PRIMARY KEY,
			from_id TEXT NOT NULL,
			to_id TEXT NOT NULL,
			tag TEXT NOT NULL,
			strength REAL NOT NULL DEFAULT 1.0,
			context TEXT,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			created_by TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_rel_from ON memory_relationships(from_id)`,
		`CREATE INDEX IF NOT EXISTS idx_rel_to ON memory_relationships(to_id)`,

		`CREATE TABLE IF NOT EXISTS access_log (
			id TEXT PRIMARY KEY,
			memory_id TEXT NOT NULL,
			session_id TEXT,
			user_id TEXT NOT NULL,
			query TEXT,
			similarity REAL,
			useful INTEGER,
			used INTEGER,
			accessed_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_access_log_memory ON access_log(memory_id)`,

		`CREATE TABLE IF NOT EXISTS service_metrics (
			component TEXT NOT NULL,
			operation TEXT NOT NULL,
			latency_ms INTEGER NOT NULL,
			success INTEGER NOT NULL,
			tokens INTEGER NOT NULL DEFAULT 0,
			at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_service_metrics_at ON service_metrics(at DESC)`,

		`CREATE TABLE IF NOT EXISTS tool_error_log (
			tool TEXT NOT NULL,
			code TEXT NOT NULL,
			message TEXT NOT NULL,
			at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_tool_error_log_at ON tool_error_log(at DESC)`,
	}
}
