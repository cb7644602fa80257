package postgres

import "strconv"

// schemaStatements creates the five entity tables and two auxiliary
// tables idempotently. dimension is interpolated into the embedding
// column's vector(D) type; D is fixed at index-creation time per the
// store contract's quirk (ii) — changing it means re-embedding every row
// and recreating this table.
func schemaStatements(dimension int) []string {
	return []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,

		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			org_id TEXT,
			max_tokens INTEGER NOT NULL DEFAULT 8000,
			tokens INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			last_activity TIMESTAMPTZ NOT NULL DEFAULT now(),
			expires_at TIMESTAMPTZ,
			config JSONB
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_user ON sessions(user_id)`,

		`CREATE TABLE IF NOT EXISTS working_memory_items (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
			content_type TEXT NOT NULL,
			content TEXT NOT NULL,
			token_count INTEGER NOT NULL,
			relevance DOUBLE PRECISION NOT NULL DEFAULT 0,
			pinned BOOLEAN NOT NULL DEFAULT false,
			sequence BIGINT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			last_access TIMESTAMPTZ NOT NULL DEFAULT now()
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
			embedding vector(` + strconv.Itoa(dimension) + `) NOT NULL,
			entities JSONB,
			metadata JSONB,
			event_time TIMESTAMPTZ,
			is_temporal BOOLEAN NOT NULL DEFAULT false,
			importance DOUBLE PRECISION NOT NULL DEFAULT 0.5,
			access_count INTEGER NOT NULL DEFAULT 0,
			decay_factor DOUBLE PRECISION NOT NULL DEFAULT 1.0,
			supersedes TEXT,
			source_session_id TEXT,
			source_type TEXT NOT NULL DEFAULT 'explicit',
			confidence DOUBLE PRECISION NOT NULL DEFAULT 1.0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			last_access TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			deleted_at TIMESTAMPTZ
		)`,
		`CREATE INDEX IF NOT EXISTS idx_ltm_user ON long_term_memories(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_ltm_category_subtype ON long_term_memories(category, subtype)`,
		`CREATE INDEX IF NOT EXISTS idx_ltm_deleted_at ON long_term_memories(deleted_at)`,

		`CREATE TABLE IF NOT EXISTS memory_relationships (
			id TEXT PRIMARY KEY,
			from_id TEXT NOT NULL,
			to_id TEXT NOT NULL,
			tag TEXT NOT NULL,
			strength DOUBLE PRECISION NOT NULL DEFAULT 1.0,
			context TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
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
			similarity DOUBLE PRECISION,
			useful BOOLEAN,
			used BOOLEAN,
			accessed_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_access_log_memory ON access_log(memory_id)`,

		`CREATE TABLE IF NOT EXISTS service_metrics (
			component TEXT NOT NULL,
			operation TEXT NOT NULL,
			latency_ms BIGINT NOT NULL,
			success BOOLEAN NOT NULL,
			tokens INTEGER NOT NULL DEFAULT 0,
			at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_service_metrics_at ON service_metrics(at DESC)`,

		`CREATE TABLE IF NOT EXISTS tool_error_log (
			tool TEXT NOT NULL,
			code TEXT NOT NULL,
			message TEXT NOT NULL,
			at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_tool_error_log_at ON tool_error_log(at DESC)`,
	}
}

// vectorIndexStatement creates the ivfflat approximate-nearest-neighbor
// index used by VectorSearch. Guarded so it is only issued once rows
// exist, since ivfflat requires a non-empty table to choose centroids;
// before that, VectorSearch falls back to an exact scan, which is always
// correct and simply slower.
const vectorIndexStatement = `
DO $$
BEGIN
	IF NOT EXISTS (
		SELECT 1 FROM pg_indexes WHERE indexname = 'idx_ltm_embedding_cosine'
	) THEN
		IF EXISTS (SELECT 1 FROM long_term_memories LIMIT 1) THEN
			EXECUTE 'CREATE INDEX idx_ltm_embedding_cosine ON long_term_memories USING ivfflat (embedding vector_cosine_ops) WITH (lists = 100)';
		END IF;
	END IF;
END$$;
`
