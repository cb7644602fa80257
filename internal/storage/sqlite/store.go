// Package sqlite implements the store contract (internal/storage) on top
// of modernc.org/sqlite, for embedded deployments and tests where running
// a PostgreSQL instance isn't worth it. VectorSearch here is always an
// exact scan (store contract quirk i) since SQLite has no ANN index.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/johnkennedy-cmyk/local-agent-memory-layer/internal/storage"
	"github.com/johnkennedy-cmyk/local-agent-memory-layer/pkg/types"
)

// vectorSearchMaxCandidates caps how many embeddings are loaded into Go
// memory per VectorSearch call, most-recent first. Personal-memory-scale
// datasets never hit this; larger deployments should use the postgres
// backend instead.
const vectorSearchMaxCandidates = 10_000

// Store implements storage.MemoryStore against SQLite.
type Store struct {
	db        *sql.DB
	dimension int
}

// New opens dsn (a file path, or ":memory:") and returns a Store. It does
// not apply the schema; call ApplySchema before the first insertion.
func New(dsn string, dimension int) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	// A single writer connection avoids SQLITE_BUSY under modernc.org/sqlite's
	// driver, which does not multiplex writes across connections.
	db.SetMaxOpenConns(1)
	if dimension == 0 {
		dimension = 768
	}
	return &Store{db: db, dimension: dimension}, nil
}

func (s *Store) ApplySchema(ctx context.Context) error {
	for _, stmt := range schemaStatements() {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("sqlite: apply schema: %w", err)
		}
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
		FROM sessions WHERE id = ?`, id)

	var sess types.Session
	var orgID, cfgStr sql.NullString
	var expiresAt sql.NullTime
	err := row.Scan(&sess.ID, &sess.UserID, &orgID, &sess.MaxTokens, &sess.Tokens,
		&sess.CreatedAt, &sess.LastActivity, &expiresAt, &cfgStr)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: get session: %w", err)
	}
	if orgID.Valid {
		sess.OrgID = &orgID.String
	}
	if expiresAt.Valid {
		sess.ExpiresAt = &expiresAt.Time
	}
	if cfgStr.Valid && cfgStr.String != "" {
		_ = json.Unmarshal([]byte(cfgStr.String), &sess.Config)
	}
	return &sess, nil
}

func (s *Store) UpsertSession(ctx context.Context, sess *types.Session) error {
	cfgBytes, err := json.Marshal(sess.Config)
	if err != nil {
		return fmt.Errorf("sqlite: marshal session config: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, user_id, org_id, max_tokens, tokens, created_at, last_activity, expires_at, config)
		VALUES (?,?,?,?,?,?,?,?,?)
		ON CONFLICT(id) DO UPDATE SET
			max_tokens = excluded.max_tokens,
			tokens = excluded.tokens,
			last_activity = excluded.last_activity,
			expires_at = excluded.expires_at,
			config = excluded.config`,
		sess.ID, sess.UserID, sess.OrgID, sess.MaxTokens, sess.Tokens,
		sess.CreatedAt, sess.LastActivity, sess.ExpiresAt, string(cfgBytes))
	if isConflict(err) {
		return storage.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("sqlite: upsert session: %w", err)
	}
	return nil
}

func (s *Store) DeleteSession(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: delete session: %w", err)
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
		VALUES (?,?,?,?,?,?,?,?,?,?)`,
		item.ID, item.SessionID, item.ContentType, item.Content, item.TokenCount,
		item.Relevance, item.Pinned, item.Sequence, item.CreatedAt, item.LastAccess)
	if isConflict(err) {
		return storage.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("sqlite: insert working memory item: %w", err)
	}
	return nil
}

func (s *Store) ListWorkingMemoryItems(ctx context.Context, sessionID string) ([]*types.WorkingMemoryItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, content_type, content, token_count, relevance, pinned, sequence, created_at, last_access
		FROM working_memory_items WHERE session_id = ? ORDER BY sequence ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list working memory items: %w", err)
	}
	defer rows.Close()

	var items []*types.WorkingMemoryItem
	for rows.Next() {
		var it types.WorkingMemoryItem
		if err := rows.Scan(&it.ID, &it.SessionID, &it.ContentType, &it.Content, &it.TokenCount,
			&it.Relevance, &it.Pinned, &it.Sequence, &it.CreatedAt, &it.LastAccess); err != nil {
			return nil, fmt.Errorf("sqlite: scan working memory item: %w", err)
		}
		items = append(items, &it)
	}
	return items, rows.Err()
}

func (s *Store) UpdateWorkingMemoryItem(ctx context.Context, item *types.WorkingMemoryItem) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE working_memory_items SET pinned = ?, relevance = ?, last_access = ?
		WHERE id = ?`, item.Pinned, item.Relevance, item.LastAccess, item.ID)
	if err != nil {
		return fmt.Errorf("sqlite: update working memory item: %w", err)
	}
	return checkRowsAffected(res)
}

func (s *Store) DeleteWorkingMemoryItems(ctx context.Context, sessionID string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]interface{}, 0, len(ids)+1)
	args = append(args, sessionID)
	for _, id := range ids {
		args = append(args, id)
	}
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM working_memory_items WHERE session_id = ? AND id IN (`+placeholders+`)`, args...)
	if err != nil {
		return fmt.Errorf("sqlite: delete working memory items: %w", err)
	}
	return nil
}

func (s *Store) ClearWorkingMemory(ctx context.Context, sessionID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM working_memory_items WHERE session_id = ?`, sessionID)
	if err != nil {
		return fmt.Errorf("sqlite: clear working memory: %w", err)
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
			(id, user_id, category, subtype, content, summary, embedding, embedding_dim, entities, metadata,
			 event_time, is_temporal, importance, access_count, decay_factor, supersedes,
			 source_session_id, source_type, confidence, created_at, last_access, updated_at, deleted_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		m.ID, m.UserID, m.Category, m.Subtype, m.Content, m.Summary, serializeEmbedding(m.Embedding), len(m.Embedding),
		string(entitiesJSON), string(metaJSON), m.EventTime, m.IsTemporal, m.Importance, m.AccessCount, m.DecayFactor,
		m.Supersedes, m.SourceSessionID, m.SourceType, m.Confidence, m.CreatedAt, m.LastAccess, m.UpdatedAt, m.DeletedAt)
	if isConflict(err) {
		return storage.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("sqlite: insert memory: %w", err)
	}
	return nil
}

func (s *Store) GetMemory(ctx context.Context, id string) (*types.Memory, error) {
	row := s.db.QueryRowContext(ctx, memorySelectSQL+` WHERE id = ?`, id)
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
			category=?, subtype=?, content=?, summary=?, embedding=?, embedding_dim=?, entities=?, metadata=?,
			event_time=?, is_temporal=?, importance=?, supersedes=?, confidence=?, updated_at=?
		WHERE id=?`,
		m.Category, m.Subtype, m.Content, m.Summary, serializeEmbedding(m.Embedding), len(m.Embedding),
		string(entitiesJSON), string(metaJSON), m.EventTime, m.IsTemporal, m.Importance, m.Supersedes,
		m.Confidence, m.UpdatedAt, m.ID)
	if isConflict(err) {
		return storage.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("sqlite: update memory: %w", err)
	}
	return checkRowsAffected(res)
}

func (s *Store) SoftDeleteMemory(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE long_term_memories SET deleted_at = ? WHERE id = ?`, time.Now(), id)
	if err != nil {
		return fmt.Errorf("sqlite: soft delete memory: %w", err)
	}
	return checkRowsAffected(res)
}

func (s *Store) RestoreMemory(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE long_term_memories SET deleted_at = NULL WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: restore memory: %w", err)
	}
	return checkRowsAffected(res)
}

func (s *Store) HardDeleteMemory(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin hard delete: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM memory_relationships WHERE from_id = ? OR to_id = ?`, id, id); err != nil {
		return fmt.Errorf("sqlite: delete relationships: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM long_term_memories WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: hard delete memory: %w", err)
	}
	if err := checkRowsAffected(res); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) ForgetAllForUser(ctx context.Context, userID string) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("sqlite: begin forget-all: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM memory_relationships WHERE from_id IN (SELECT id FROM long_term_memories WHERE user_id = ?)
			OR to_id IN (SELECT id FROM long_term_memories WHERE user_id = ?)`, userID, userID); err != nil {
		return 0, fmt.Errorf("sqlite: forget-all relationships: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM long_term_memories WHERE user_id = ?`, userID)
	if err != nil {
		return 0, fmt.Errorf("sqlite: forget-all memories: %w", err)
	}
	n, _ := res.RowsAffected()
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("sqlite: commit forget-all: %w", err)
	}
	return int(n), nil
}

func (s *Store) ListMemoriesForUser(ctx context.Context, userID string, includeDeleted bool) ([]*types.Memory, error) {
	q := memorySelectSQL + ` WHERE user_id = ?`
	if !includeDeleted {
		q += ` AND deleted_at IS NULL`
	}
	rows, err := s.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list memories: %w", err)
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
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE long_term_memories SET access_count = access_count + 1, last_access = CURRENT_TIMESTAMP WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return fmt.Errorf("sqlite: increment access: %w", err)
	}
	return nil
}

func (s *Store) ApplyDecay(ctx context.Context, userID string, rate, floor float64, inactiveForSeconds int64) (int, error) {
	cutoff := time.Now().Add(-time.Duration(inactiveForSeconds) * time.Second)
	res, err := s.db.ExecContext(ctx, `
		UPDATE long_term_memories
		SET importance = MAX(?, importance * ?)
		WHERE user_id = ? AND deleted_at IS NULL AND last_access < ?`,
		floor, rate, userID, cutoff)
	if err != nil {
		return 0, fmt.Errorf("sqlite: apply decay: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
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

// VectorSearch loads up to vectorSearchMaxCandidates non-deleted memories
// for the user (most recently created first), scores each by cosine
// similarity against req.Embedding, applies req.Filter and req.SigmaMin,
// and returns the top req.Limit.
func (s *Store) VectorSearch(ctx context.Context, req storage.VectorSearchRequest) ([]storage.ScoredMemory, error) {
	if len(req.Embedding) != s.dimension {
		return nil, storage.ErrInvalidInput
	}
	limit := req.Limit
	if limit <= 0 {
		limit = 10
	}

	q := memorySelectSQL + ` WHERE user_id = ? AND deleted_at IS NULL`
	args := []interface{}{req.UserID}

	if req.Filter.ConfidenceFloor > 0 {
		q += ` AND confidence >= ?`
		args = append(args, req.Filter.ConfidenceFloor)
	}
	if req.Filter.TemporalFrom != nil {
		q += ` AND event_time >= ?`
		args = append(args, *req.Filter.TemporalFrom)
	}
	if req.Filter.TemporalTo != nil {
		q += ` AND event_time <= ?`
		args = append(args, *req.Filter.TemporalTo)
	}
	if len(req.Filter.CategorySubtypes) > 0 {
		clause := make([]string, len(req.Filter.CategorySubtypes))
		for i, cs := range req.Filter.CategorySubtypes {
			clause[i] = "(category = ? AND subtype = ?)"
			args = append(args, cs.Category, cs.Subtype)
		}
		q += ` AND (` + strings.Join(clause, " OR ") + `)`
	}
	q += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, vectorSearchMaxCandidates)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: vector search candidates: %w", err)
	}
	defer rows.Close()

	var scored []storage.ScoredMemory
	for rows.Next() {
		m, err := scanMemory(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scan vector search candidate: %w", err)
		}
		if !matchesEntityFilter(m.Entities, req.Filter.Entities) {
			continue
		}
		sim := cosineSimilarity(req.Embedding, m.Embedding)
		if sim >= req.SigmaMin {
			scored = append(scored, storage.ScoredMemory{Memory: m, Similarity: sim})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Slice(scored, func(i, j int) bool { return scored[i].Similarity > scored[j].Similarity })
	if len(scored) > limit {
		scored = scored[:limit]
	}
	return scored, nil
}

// --- Relationships ---

func (s *Store) InsertRelationship(ctx context.Context, r *types.MemoryRelationship) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO memory_relationships (id, from_id, to_id, tag, strength, context, created_at, created_by)
		VALUES (?,?,?,?,?,?,?,?)`,
		r.ID, r.FromID, r.ToID, r.Tag, r.Strength, r.Context, r.CreatedAt, r.CreatedBy)
	if err != nil {
		return fmt.Errorf("sqlite: insert relationship: %w", err)
	}
	return nil
}

func (s *Store) ListRelationships(ctx context.Context, memoryID string) ([]*types.MemoryRelationship, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, from_id, to_id, tag, strength, context, created_at, created_by
		FROM memory_relationships WHERE from_id = ? OR to_id = ?`, memoryID, memoryID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list relationships: %w", err)
	}
	defer rows.Close()

	var out []*types.MemoryRelationship
	for rows.Next() {
		var r types.MemoryRelationship
		var ctxStr sql.NullString
		if err := rows.Scan(&r.ID, &r.FromID, &r.ToID, &r.Tag, &r.Strength, &ctxStr, &r.CreatedAt, &r.CreatedBy); err != nil {
			return nil, fmt.Errorf("sqlite: scan relationship: %w", err)
		}
		if ctxStr.Valid {
			r.Context = &ctxStr.String
		}
		out = append(out, &r)
	}
	return out, rows.Err()
}

func (s *Store) DeleteRelationshipsForMemory(ctx context.Context, memoryID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM memory_relationships WHERE from_id = ? OR to_id = ?`, memoryID, memoryID)
	if err != nil {
		return fmt.Errorf("sqlite: delete relationships: %w", err)
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
		return fmt.Errorf("sqlite: begin access log: %w", err)
	}
	defer tx.Rollback()

	for _, e := range entries {
		if e.ID == "" {
			e.ID = uuid.New().String()
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO access_log (id, memory_id, session_id, user_id, query, similarity, useful, used, accessed_at)
			VALUES (?,?,?,?,?,?,?,?,?)`,
			e.ID, e.MemoryID, e.SessionID, e.UserID, e.Query, e.Similarity, e.Useful, e.Used, e.AccessedAt); err != nil {
			return fmt.Errorf("sqlite: insert access log entry: %w", err)
		}
	}
	return tx.Commit()
}

func (s *Store) RecentAccessLog(ctx context.Context, limit int) ([]*types.AccessLogEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, memory_id, session_id, user_id, query, similarity, useful, used, accessed_at
		FROM access_log ORDER BY accessed_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite: recent access log: %w", err)
	}
	defer rows.Close()

	var out []*types.AccessLogEntry
	for rows.Next() {
		var e types.AccessLogEntry
		var useful, used sql.NullBool
		if err := rows.Scan(&e.ID, &e.MemoryID, &e.SessionID, &e.UserID, &e.Query, &e.Similarity, &useful, &used, &e.AccessedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scan access log entry: %w", err)
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
		INSERT INTO service_metrics (component, operation, latency_ms, success, tokens) VALUES (?,?,?,?,?)`,
		component, operation, latencyMS, success, tokens)
	if err != nil {
		return fmt.Errorf("sqlite: record service metric: %w", err)
	}
	return nil
}

func (s *Store) RecordToolError(ctx context.Context, tool string, code types.ErrorCode, message string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tool_error_log (tool, code, message) VALUES (?,?,?)`, tool, code, message)
	if err != nil {
		return fmt.Errorf("sqlite: record tool error: %w", err)
	}
	return nil
}

func (s *Store) RecentServiceMetrics(ctx context.Context, limit int) ([]storage.ServiceMetricRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT component, operation, latency_ms, success, tokens, CAST(strftime('%s', at) AS INTEGER)
		FROM service_metrics ORDER BY at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite: recent service metrics: %w", err)
	}
	defer rows.Close()

	var out []storage.ServiceMetricRow
	for rows.Next() {
		var r storage.ServiceMetricRow
		if err := rows.Scan(&r.Component, &r.Operation, &r.LatencyMS, &r.Success, &r.Tokens, &r.At); err != nil {
			return nil, fmt.Errorf("sqlite: scan service metric: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) RecentToolErrors(ctx context.Context, limit int) ([]storage.ToolErrorRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT tool, code, message, CAST(strftime('%s', at) AS INTEGER)
		FROM tool_error_log ORDER BY at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite: recent tool errors: %w", err)
	}
	defer rows.Close()

	var out []storage.ToolErrorRow
	for rows.Next() {
		var r storage.ToolErrorRow
		var code string
		if err := rows.Scan(&r.Tool, &code, &r.Message, &r.At); err != nil {
			return nil, fmt.Errorf("sqlite: scan tool error: %w", err)
		}
		r.Code = types.ErrorCode(code)
		out = append(out, r)
	}
	return out, rows.Err()
}

// --- helpers ---

const memorySelectSQL = `
	SELECT id, user_id, category, subtype, content, summary, embedding, embedding_dim, entities, metadata,
		event_time, is_temporal, importance, access_count, decay_factor, supersedes,
		source_session_id, source_type, confidence, created_at, last_access, updated_at, deleted_at
	FROM long_term_memories`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanMemory(row rowScanner) (*types.Memory, error) {
	var m types.Memory
	var summary, supersedes, sourceSession sql.NullString
	var eventTime, deletedAt sql.NullTime
	var entitiesStr, metaStr sql.NullString
	var embBlob []byte
	var embDim int

	err := row.Scan(&m.ID, &m.UserID, &m.Category, &m.Subtype, &m.Content, &summary, &embBlob, &embDim,
		&entitiesStr, &metaStr, &eventTime, &m.IsTemporal, &m.Importance, &m.AccessCount,
		&m.DecayFactor, &supersedes, &sourceSession, &m.SourceType, &m.Confidence,
		&m.CreatedAt, &m.LastAccess, &m.UpdatedAt, &deletedAt)
	if err != nil {
		return nil, err
	}

	m.Embedding, err = deserializeEmbedding(embBlob, embDim)
	if err != nil {
		return nil, fmt.Errorf("sqlite: decode embedding for memory %s: %w", m.ID, err)
	}
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
	if entitiesStr.Valid && entitiesStr.String != "" {
		_ = json.Unmarshal([]byte(entitiesStr.String), &m.Entities)
	}
	if metaStr.Valid && metaStr.String != "" {
		_ = json.Unmarshal([]byte(metaStr.String), &m.Metadata)
	}
	return &m, nil
}

func checkRowsAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: rows affected: %w", err)
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// isConflict reports whether err indicates SQLite's single writer was
// busy or the database was locked by a concurrent transaction — the
// gateway retries these rather than surfacing them directly.
func isConflict(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database table is locked")
}
