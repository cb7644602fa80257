// Package postgres implements the store contract (internal/storage) on
// top of PostgreSQL with the pgvector extension for the vector-similarity
// primitive.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"github.com/johnkennedy-cmyk/local-agent-memory-layer/internal/storage"
	"github.com/johnkennedy-cmyk/local-agent-memory-layer/pkg/types"
)

// Store implements storage.MemoryStore against PostgreSQL.
type Store struct {
	db        *sql.DB
	dimension int
}

// Config controls connection pooling, matching the store contract's
// default pool bounds (min 4, max 32 per gateway).
type Config struct {
	DSN         string
	Dimension   int
	MaxOpenConn int
	MaxIdleConn int
}

// New opens a connection pool and returns a Store. It does not apply the
// schema; call ApplySchema before the first insertion.
func New(cfg Config) (*Store, error) {
	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}
	maxOpen := cfg.MaxOpenConn
	if maxOpen == 0 {
		maxOpen = 32
	}
	maxIdle := cfg.MaxIdleConn
	if maxIdle == 0 {
		maxIdle = 4
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}

	dim := cfg.Dimension
	if dim == 0 {
		dim = 768
	}
	return &Store{db: db, dimension: dim}, nil
}

// ApplySchema idempotently creates every table and index this store
// needs, then attempts the vector index once rows exist.
func (s *Store) ApplySchema(ctx context.Context) error {
	for _, stmt := range schemaStatements(s.dimension) {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("postgres: apply schema: %w", err)
		}
	}
	if _, err := s.db.ExecContext(ctx, vectorIndexStatement); err != nil {
		return fmt.Errorf("postgres: vector index: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// --- Sessions ---

func (s *Store) GetSession(ctx context.Context, id string) (*types.Session, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, org_id, max_tokens, tokens, created_at, last_activity, expires_at, config
		FROM sessions WHERE id = $1`, id)

	var sess types.Session
	var orgID sql.NullString
	var expiresAt sql.NullTime
	var cfgBytes []byte
	err := row.Scan(&sess.ID, &sess.UserID, &orgID, &sess.MaxTokens, &sess.Tokens,
		&sess.CreatedAt, &sess.LastActivity, &expiresAt, &cfgBytes)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get session: %w", err)
	}
	if orgID.Valid {
		sess.OrgID = &orgID.String
	}
	if expiresAt.Valid {
		sess.ExpiresAt = &expiresAt.Time
	}
	if len(cfgBytes) > 0 {
		_ = json.Unmarshal(cfgBytes, &sess.Config)
	}
	return &sess, nil
}

func (s *Store) UpsertSession(ctx context.Context, sess *types.Session) error {
	cfgBytes, err := json.Marshal(sess.Config)
	if err != nil {
		return fmt.Errorf("postgres: marshal session config: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, user_id, org_id, max_tokens, tokens, created_at, last_activity, expires_at, config)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (id) DO UPDATE SET
			max_tokens = EXCLUDED.max_tokens,
			tokens = EXCLUDED.tokens,
			last_activity = EXCLUDED.last_activity,
			expires_at = EXCLUDED.expires_at,
			config = EXCLUDED.config`,
		sess.ID, sess.UserID, sess.OrgID, sess.MaxTokens, sess.Tokens,
		sess.CreatedAt, sess.LastActivity, sess.ExpiresAt, cfgBytes)
	if isConflict(err) {
		return storage.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("postgres: upsert session: %w", err)
	}
	return nil
}

func (s *Store) DeleteSession(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("postgres: delete session: %w", err)
	}
	return nil
}

// --- Working memory ---

func (s *Store) InsertWorkingMemoryItem(ctx context.Context, item *types.WorkingMemoryItem) error {
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO working_memory_items (id, session_id, content_type, content, token_count, relevance, pinned, sequence, created_at, last_access)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		item.ID, item.SessionID, item.ContentType, item.Content, item.TokenCount,
		item.Relevance, item.Pinned, item.Sequence, item.CreatedAt, item.LastAccess)
	if isConflict(err) {
		return storage.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("postgres: insert working memory item: %w", err)
	}
	return nil
}

func (s *Store) ListWorkingMemoryItems(ctx context.Context, sessionID string) ([]*types.WorkingMemoryItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, content_type, content, token_count, relevance, pinned, sequence, created_at, last_access
		FROM working_memory_items WHERE session_id = $1 ORDER BY sequence ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list working memory items: %w", err)
	}
	defer rows.Close()

	var items []*types.WorkingMemoryItem
	for rows.Next() {
		var it types.WorkingMemoryItem
		if err := rows.Scan(&it.ID, &it.SessionID, &it.ContentType, &it.Content, &it.TokenCount,
			&it.Relevance, &it.Pinned, &it.Sequence, &it.CreatedAt, &it.LastAccess); err != nil {
			return nil, fmt.Errorf("postgres: scan working memory item: %w", err)
		}
		items = append(items, &it)
	}
	return items, rows.Err()
}

func (s *Store) UpdateWorkingMemoryItem(ctx context.Context, item *types.WorkingMemoryItem) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE working_memory_items SET pinned = $1, relevance = $2, last_access = $3
		WHERE id = $4`, item.Pinned, item.Relevance, item.LastAccess, item.ID)
	if err != nil {
		return fmt.Errorf("postgres: update working memory item: %w", err)
	}
	return checkRowsAffected(res)
}

func (s *Store) DeleteWorkingMemoryItems(ctx context.Context, sessionID string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	clause, args := buildInClause(ids, 2)
	args = append([]interface{}{sessionID}, args...)
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM working_memory_items WHERE session_id = $1 AND id IN (`+clause+`)`, args...)
	if err != nil {
		return fmt.Errorf("postgres: delete working memory items: %w", err)
	}
	return nil
}

func (s *Store) ClearWorkingMemory(ctx context.Context, sessionID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM working_memory_items WHERE session_id = $1`, sessionID)
	if err != nil {
		return fmt.Errorf("postgres: clear working memory: %w", err)
	}
	return nil
}

// --- Long-term memory ---

func (s *Store) InsertMemory(ctx context.Context, m *types.Memory) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	if len(m.Embedding) != s.dimension {
		return storage.ErrInvalidInput
	}
	entitiesJSON, _ := json.Marshal(m.Entities)
	metaJSON, _ := json.Marshal(m.Metadata)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO long_term_memories
			(id, user_id, category, subtype, content, summary, embedding, entities, metadata,
			 event_time, is_temporal, importance, access_count, decay_factor, supersedes,
			 source_session_id, source_type, confidence, created_at, last_access, updated_at, deleted_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22)`,
		m.ID, m.UserID, m.Category, m.Subtype, m.Content, m.Summary, pgvector.NewVector(m.Embedding),
		entitiesJSON, metaJSON, m.EventTime, m.IsTemporal, m.Importance, m.AccessCount, m.DecayFactor,
		m.Supersedes, m.SourceSessionID, m.SourceType, m.Confidence, m.CreatedAt, m.LastAccess, m.UpdatedAt, m.DeletedAt)
	if isConflict(err) {
		return storage.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("postgres: insert memory: %w", err)
	}
	return nil
}

func (s *Store) GetMemory(ctx context.Context, id string) (*types.Memory, error) {
	row := s.db.QueryRowContext(ctx, memorySelectSQL+` WHERE id = $1`, id)
	m, err := scanMemory(row)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	return m, err
}

func (s *Store) UpdateMemory(ctx context.Context, m *types.Memory) error {
	entitiesJSON, _ := json.Marshal(m.Entities)
	metaJSON, _ := json.Marshal(m.Metadata)
	res, err := s.db.ExecContext(ctx, `
		UPDATE long_term_memories SET
			category=$1, subtype=$2, content=$3, summary=$4, embedding=$5, entities=$6, metadata=$7,
			event_time=$8, is_temporal=$9, importance=$10, supersedes=$11, confidence=$12, updated_at=$13
		WHERE id=$14`,
		m.Category, m.Subtype, m.Content, m.Summary, pgvector.NewVector(m.Embedding), entitiesJSON, metaJSON,
		m.EventTime, m.IsTemporal, m.Importance, m.Supersedes, m.Confidence, m.UpdatedAt, m.ID)
	if isConflict(err) {
		return storage.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("postgres: update memory: %w", err)
	}
	return checkRowsAffected(res)
}

func (s *Store) SoftDeleteMemory(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE long_term_memories SET deleted_at = now() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("postgres: soft delete memory: %w", err)
	}
	return checkRowsAffected(res)
}

func (s *Store) RestoreMemory(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE long_term_memories SET deleted_at = NULL WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("postgres: restore memory: %w", err)
	}
	return checkRowsAffected(res)
}

func (s *Store) HardDeleteMemory(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("postgres: begin hard delete: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM memory_relationships WHERE from_id = $1 OR to_id = $1`, id); err != nil {
		return fmt.Errorf("postgres: delete relationships: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM long_term_memories WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("postgres: hard delete memory: %w", err)
	}
	if err := checkRowsAffected(res); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) ForgetAllForUser(ctx context.Context, userID string) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("postgres: begin forget-all: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM memory_relationships WHERE from_id IN (SELECT id FROM long_term_memories WHERE user_id = $1)
			OR to_id IN (SELECT id FROM long_term_memories WHERE user_id = $1)`, userID); err != nil {
		return 0, fmt.Errorf("postgres: forget-all relationships: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM long_term_memories WHERE user_id = $1`, userID)
	if err != nil {
		return 0, fmt.Errorf("postgres: forget-all memories: %w", err)
	}
	n, _ := res.RowsAffected()
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("postgres: commit forget-all: %w", err)
	}
	return int(n), nil
}

func (s *Store) ListMemoriesForUser(ctx context.Context, userID string, includeDeleted bool) ([]*types.Memory, error) {
	q := memorySelectSQL + ` WHERE user_id = $1`
	if !includeDeleted {
		q += ` AND deleted_at IS NULL`
	}
	rows, err := s.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list memories: %w", err)
	}
	defer rows.Close()

	var out []*types.Memory
	for rows.Next() {
		m, err := scanMemory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Store) IncrementAccess(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	clause, args := buildInClause(ids, 1)
	_, err := s.db.ExecContext(ctx,
		`UPDATE long_term_memories SET access_count = access_count + 1, last_access = now() WHERE id IN (`+clause+`)`, args...)
	if err != nil {
		return fmt.Errorf("postgres: increment access: %w", err)
	}
	return nil
}

func (s *Store) ApplyDecay(ctx context.Context, userID string, rate, floor float64, inactiveForSeconds int64) (int, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE long_term_memories
		SET importance = GREATEST($1, importance * $2)
		WHERE user_id = $3 AND deleted_at IS NULL
			AND last_access < now() - ($4 || ' seconds')::interval`,
		floor, rate, userID, inactiveForSeconds)
	if err != nil {
		return 0, fmt.Errorf("postgres: apply decay: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// vectorSearchEntityFanout widens the SQL-side LIMIT when req.Filter.Entities
// is set, since the entity-membership predicate is applied in Go after the
// fetch (jsonb containment on the entities column is not indexed here) and
// would otherwise starve the post-filter of candidates.
const vectorSearchEntityFanout = 5

// VectorSearch ranks a user's non-deleted memories by cosine similarity to
// req.Embedding using the pgvector <=> operator (cosine distance; similarity
// = 1 - distance), applying req.Filter and req.SigmaMin before the limit.
// Relies on the ivfflat index from ApplySchema when present; pgvector falls
// back to an exact scan transparently when no such index exists yet.
func (s *Store) VectorSearch(ctx context.Context, req storage.VectorSearchRequest) ([]storage.ScoredMemory, error) {
	if len(req.Embedding) != s.dimension {
		return nil, storage.ErrInvalidInput
	}
	limit := req.Limit
	if limit <= 0 {
		limit = 10
	}
	fetchLimit := limit
	if len(req.Filter.Entities) > 0 {
		fetchLimit = limit * vectorSearchEntityFanout
	}

	query := memorySelectColumnsSQL + `, 1 - (embedding <=> $1) AS similarity
		FROM long_term_memories
		WHERE user_id = $2 AND deleted_at IS NULL`

	args := []interface{}{pgvector.NewVector(req.Embedding), req.UserID}
	next := 3

	if req.Filter.ConfidenceFloor > 0 {
		query += fmt.Sprintf(" AND confidence >= $%d", next)
		args = append(args, req.Filter.ConfidenceFloor)
		next++
	}
	if req.Filter.TemporalFrom != nil {
		query += fmt.Sprintf(" AND event_time >= $%d", next)
		args = append(args, *req.Filter.TemporalFrom)
		next++
	}
	if req.Filter.TemporalTo != nil {
		query += fmt.Sprintf(" AND event_time <= $%d", next)
		args = append(args, *req.Filter.TemporalTo)
		next++
	}
	if len(req.Filter.CategorySubtypes) > 0 {
		clause := ""
		for i, cs := range req.Filter.CategorySubtypes {
			if i > 0 {
				clause += " OR "
			}
			clause += fmt.Sprintf("(category = $%d AND subtype = $%d)", next, next+1)
			args = append(args, cs.Category, cs.Subtype)
			next += 2
		}
		query += " AND (" + clause + ")"
	}

	query += fmt.Sprintf(" AND (1 - (embedding <=> $1)) >= $%d", next)
	args = append(args, req.SigmaMin)
	next++

	query += fmt.Sprintf(" ORDER BY embedding <=> $1 LIMIT $%d", next)
	args = append(args, fetchLimit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: vector search: %w", err)
	}
	defer rows.Close()

	var out []storage.ScoredMemory
	for rows.Next() {
		m, sim, err := scanMemoryWithSimilarity(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan vector search row: %w", err)
		}
		if !matchesEntityFilter(m.Entities, req.Filter.Entities) {
			continue
		}
		out = append(out, storage.ScoredMemory{Memory: m, Similarity: sim})
		if len(out) == limit {
			break
		}
	}
	return out, rows.Err()
}

// matchesEntityFilter reports whether memoryEntities shares at least one
// entity with filterEntities. An empty filterEntities always matches.
func matchesEntityFilter(memoryEntities, filterEntities []string) bool {
	if len(filterEntities) == 0 {
		return true
	}
	have := make(map[string]bool, len(memoryEntities))
	for _, e := range memoryEntities {
		have[e] = true
	}
	for _, want := range filterEntities {
		if have[want] {
			return true
		}
	}
	return false
}

// --- Relationships ---

func (s *Store) InsertRelationship(ctx context.Context, r *types.MemoryRelationship) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO memory_relationships (id, from_id, to_id, tag, strength, context, created_at, created_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		r.ID, r.FromID, r.ToID, r.Tag, r.Strength, r.Context, r.CreatedAt, r.CreatedBy)
	if err != nil {
		return fmt.Errorf("postgres: insert relationship: %w", err)
	}
	return nil
}

func (s *Store) ListRelationships(ctx context.Context, memoryID string) ([]*types.MemoryRelationship, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, from_id, to_id, tag, strength, context, created_at, created_by
		FROM memory_relationships WHERE from_id = $1 OR to_id = $1`, memoryID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list relationships: %w", err)
	}
	defer rows.Close()

	var out []*types.MemoryRelationship
	for rows.Next() {
		var r types.MemoryRelationship
		var ctxStr sql.NullString
		if err := rows.Scan(&r.ID, &r.FromID, &r.ToID, &r.Tag, &r.Strength, &ctxStr, &r.CreatedAt, &r.CreatedBy); err != nil {
			return nil, fmt.Errorf("postgres: scan relationship: %w", err)
		}
		if ctxStr.Valid {
			r.Context = &ctxStr.String
		}
		out = append(out, &r)
	}
	return out, rows.Err()
}

func (s *Store) DeleteRelationshipsForMemory(ctx context.Context, memoryID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM memory_relationships WHERE from_id = $1 OR to_id = $1`, memoryID)
	if err != nil {
		return fmt.Errorf("postgres: delete relationships: %w", err)
	}
	return nil
}

// --- Access log & metrics ---

func (s *Store) AppendAccessLog(ctx context.Context, entries []*types.AccessLogEntry) error {
	if len(entries) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("postgres: begin access log: %w", err)
	}
	defer tx.Rollback()

	for _, e := range entries {
		if e.ID == "" {
			e.ID = uuid.New().String()
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO access_log (id, memory_id, session_id, user_id, query, similarity, useful, used, accessed_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
			e.ID, e.MemoryID, e.SessionID, e.UserID, e.Query, e.Similarity, e.Useful, e.Used, e.AccessedAt); err != nil {
			return fmt.Errorf("postgres: insert access log entry: %w", err)
		}
	}
	return tx.Commit()
}

func (s *Store) RecentAccessLog(ctx context.Context, limit int) ([]*types.AccessLogEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, memory_id, session_id, user_id, query, similarity, useful, used, accessed_at
		FROM access_log ORDER BY accessed_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: recent access log: %w", err)
	}
	defer rows.Close()

	var out []*types.AccessLogEntry
	for rows.Next() {
		var e types.AccessLogEntry
		var useful, used sql.NullBool
		if err := rows.Scan(&e.ID, &e.MemoryID, &e.SessionID, &e.UserID, &e.Query, &e.Similarity, &useful, &used, &e.AccessedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan access log entry: %w", err)
		}
		if useful.Valid {
			e.Useful = &useful.Bool
		}
		if used.Valid {
			e.Used = &used.Bool
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}

func (s *Store) RecordServiceMetric(ctx context.Context, component, operation string, latencyMS int64, success bool, tokens int) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO service_metrics (component, operation, latency_ms, success, tokens) VALUES ($1,$2,$3,$4,$5)`,
		component, operation, latencyMS, success, tokens)
	if err != nil {
		return fmt.Errorf("postgres: record service metric: %w", err)
	}
	return nil
}

func (s *Store) RecordToolError(ctx context.Context, tool string, code types.ErrorCode, message string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tool_error_log (tool, code, message) VALUES ($1,$2,$3)`, tool, code, message)
	if err != nil {
		return fmt.Errorf("postgres: record tool error: %w", err)
	}
	return nil
}

func (s *Store) RecentServiceMetrics(ctx context.Context, limit int) ([]storage.ServiceMetricRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT component, operation, latency_ms, success, tokens, extract(epoch from at)::bigint
		FROM service_metrics ORDER BY at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: recent service metrics: %w", err)
	}
	defer rows.Close()

	var out []storage.ServiceMetricRow
	for rows.Next() {
		var r storage.ServiceMetricRow
		if err := rows.Scan(&r.Component, &r.Operation, &r.LatencyMS, &r.Success, &r.Tokens, &r.At); err != nil {
			return nil, fmt.Errorf("postgres: scan service metric: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) RecentToolErrors(ctx context.Context, limit int) ([]storage.ToolErrorRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT tool, code, message, extract(epoch from at)::bigint
		FROM tool_error_log ORDER BY at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: recent tool errors: %w", err)
	}
	defer rows.Close()

	var out []storage.ToolErrorRow
	for rows.Next() {
		var r storage.ToolErrorRow
		var code string
		if err := rows.Scan(&r.Tool, &code, &r.Message, &r.At); err != nil {
			return nil, fmt.Errorf("postgres: scan tool error: %w", err)
		}
		r.Code = types.ErrorCode(code)
		out = append(out, r)
	}
	return out, rows.Err()
}

// --- helpers ---

const memorySelectColumnsSQL = `
	SELECT id, user_id, category, subtype, content, summary, embedding, entities, metadata,
		event_time, is_temporal, importance, access_count, decay_factor, supersedes,
		source_session_id, source_type, confidence, created_at, last_access, updated_at, deleted_at`

const memorySelectSQL = memorySelectColumnsSQL + `
	FROM long_term_memories`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanMemoryFields(row rowScanner, extra ...interface{}) (*types.Memory, error) {
	var m types.Memory
	var summary, supersedes, sourceSession sql.NullString
	var eventTime, deletedAt sql.NullTime
	var entitiesJSON, metaJSON []byte
	var vec pgvector.Vector

	dest := []interface{}{&m.ID, &m.UserID, &m.Category, &m.Subtype, &m.Content, &summary, &vec,
		&entitiesJSON, &metaJSON, &eventTime, &m.IsTemporal, &m.Importance, &m.AccessCount,
		&m.DecayFactor, &supersedes, &sourceSession, &m.SourceType, &m.Confidence,
		&m.CreatedAt, &m.LastAccess, &m.UpdatedAt, &deletedAt}
	dest = append(dest, extra...)

	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	m.Embedding = vec.Slice()
	if summary.Valid {
		m.Summary = &summary.String
	}
	if supersedes.Valid {
		m.Supersedes = &supersedes.String
	}
	if sourceSession.Valid {
		m.SourceSessionID = &sourceSession.String
	}
	if eventTime.Valid {
		m.EventTime = &eventTime.Time
	}
	if deletedAt.Valid {
		m.DeletedAt = &deletedAt.Time
	}
	if len(entitiesJSON) > 0 {
		_ = json.Unmarshal(entitiesJSON, &m.Entities)
	}
	if len(metaJSON) > 0 {
		_ = json.Unmarshal(metaJSON, &m.Metadata)
	}
	return &m, nil
}

func scanMemory(row rowScanner) (*types.Memory, error) {
	return scanMemoryFields(row)
}

func scanMemoryWithSimilarity(row rowScanner) (*types.Memory, float64, error) {
	var sim float64
	m, err := scanMemoryFields(row, &sim)
	if err != nil {
		return nil, 0, err
	}
	return m, sim, nil
}

func checkRowsAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("postgres: rows affected: %w", err)
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func buildInClause(ids []string, startAt int) (string, []interface{}) {
	clause := ""
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		if i > 0 {
			clause += ","
		}
		clause += fmt.Sprintf("$%d", startAt+i)
		args[i] = id
	}
	return clause, args
}

// isConflict reports whether err is a Postgres serialization failure or
// deadlock (SQLSTATE 40001 / 40P01) that the gateway should retry rather
// than surface.
func isConflict(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	switch pqErr.Code {
	case "40001", "40P01":
		return true
	default:
		return false
	}
}
