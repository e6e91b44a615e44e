package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/n3m01726/chattyChat/internal/domain"
)

const enrichedColumns = `m.id, m.author_id, m.text, m.has_markdown,
	m.attachment_kind, m.attachment_ref, m.attachment_expires_at, m.gif_url,
	m.mentions, m.created_at, u.username, u.display_name, u.avatar_url, u.custom_color`

type MessageRepo struct {
	db *sql.DB
}

func NewMessageRepo(db *sql.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

var _ domain.MessageRepository = (*MessageRepo)(nil)

func (r *MessageRepo) Create(ctx context.Context, m *domain.Message) error {
	var mentions any
	if len(m.Mentions) > 0 {
		b, err := json.Marshal(m.Mentions)
		if err != nil {
			return fmt.Errorf("marshal mentions: %w", err)
		}
		mentions = string(b)
	}

	var expiresAt any
	if m.AttachmentExpiresAt != nil {
		// stored in UTC so the sweeper's range comparison is well defined
		expiresAt = m.AttachmentExpiresAt.UTC()
	}

	query := `
		INSERT INTO messages (author_id, text, has_markdown, attachment_kind,
			attachment_ref, attachment_expires_at, gif_url, mentions, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
	`
	res, err := r.db.ExecContext(ctx, query,
		m.AuthorID,
		m.Text,
		m.HasMarkdown,
		m.AttachmentKind,
		m.AttachmentRef,
		expiresAt,
		m.GifURL,
		mentions,
	)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	m.ID = id
	return nil
}

func (r *MessageRepo) GetEnriched(ctx context.Context, id int64) (*domain.EnrichedMessage, error) {
	query := `
		SELECT ` + enrichedColumns + `
		FROM messages m
		JOIN users u ON m.author_id = u.id
		WHERE m.id = ?
	`
	row := r.db.QueryRowContext(ctx, query, id)
	m, err := scanEnriched(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (r *MessageRepo) GetOwned(ctx context.Context, id, authorID int64) (*domain.Message, error) {
	query := `
		SELECT id, author_id, text, has_markdown, attachment_kind,
			attachment_ref, attachment_expires_at, gif_url, mentions, created_at
		FROM messages
		WHERE id = ? AND author_id = ?
	`
	m := &domain.Message{}
	var mentions sql.NullString
	err := r.db.QueryRowContext(ctx, query, id, authorID).Scan(
		&m.ID,
		&m.AuthorID,
		&m.Text,
		&m.HasMarkdown,
		&m.AttachmentKind,
		&m.AttachmentRef,
		&m.AttachmentExpiresAt,
		&m.GifURL,
		&mentions,
		&m.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan message: %w", err)
	}
	m.Mentions = parseMentions(mentions)
	return m, nil
}

func (r *MessageRepo) DeleteOwned(ctx context.Context, id, authorID int64) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM messages WHERE id = ? AND author_id = ?`, id, authorID)
	if err != nil {
		return false, fmt.Errorf("delete message: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// normalizeLimit maps "no limit requested" onto SQLite's unbounded LIMIT.
func normalizeLimit(limit int) int {
	if limit <= 0 {
		return -1
	}
	return limit
}

// ListRecent returns the newest messages in ascending creation order.
func (r *MessageRepo) ListRecent(ctx context.Context, limit int) ([]*domain.EnrichedMessage, error) {
	query := `
		SELECT ` + enrichedColumns + `
		FROM messages m
		JOIN users u ON m.author_id = u.id
		ORDER BY m.id DESC
		LIMIT ?
	`
	msgs, err := r.listEnriched(ctx, query, normalizeLimit(limit))
	if err != nil {
		return nil, err
	}
	reverseMessages(msgs)
	return msgs, nil
}

func (r *MessageRepo) Search(ctx context.Context, query string, limit int) ([]*domain.EnrichedMessage, error) {
	q := `
		SELECT ` + enrichedColumns + `
		FROM messages m
		JOIN users u ON m.author_id = u.id
		WHERE m.text LIKE ?
		ORDER BY m.id DESC
		LIMIT ?
	`
	msgs, err := r.listEnriched(ctx, q, "%"+query+"%", normalizeLimit(limit))
	if err != nil {
		return nil, err
	}
	reverseMessages(msgs)
	return msgs, nil
}

func (r *MessageRepo) ListByUsername(ctx context.Context, username string, limit int) ([]*domain.EnrichedMessage, error) {
	query := `
		SELECT ` + enrichedColumns + `
		FROM messages m
		JOIN users u ON m.author_id = u.id
		WHERE u.username = ?
		ORDER BY m.id DESC
		LIMIT ?
	`
	msgs, err := r.listEnriched(ctx, query, username, normalizeLimit(limit))
	if err != nil {
		return nil, err
	}
	reverseMessages(msgs)
	return msgs, nil
}

func (r *MessageRepo) CountAll(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count messages: %w", err)
	}
	return n, nil
}

func (r *MessageRepo) CountByAuthor(ctx context.Context, authorID int64) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM messages WHERE author_id = ?`, authorID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count author messages: %w", err)
	}
	return n, nil
}

func (r *MessageRepo) TopAuthors(ctx context.Context, limit int) ([]*domain.AuthorCount, error) {
	query := `
		SELECT u.username, COUNT(*) as count
		FROM messages m
		JOIN users u ON m.author_id = u.id
		GROUP BY u.username
		ORDER BY count DESC
		LIMIT ?
	`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("top authors: %w", err)
	}
	defer rows.Close()

	var res []*domain.AuthorCount
	for rows.Next() {
		ac := &domain.AuthorCount{}
		if err := rows.Scan(&ac.Username, &ac.Count); err != nil {
			return nil, fmt.Errorf("scan author count: %w", err)
		}
		res = append(res, ac)
	}
	return res, rows.Err()
}

func (r *MessageRepo) ListExpiredAttachments(ctx context.Context, now time.Time) ([]*domain.ExpiredAttachment, error) {
	query := `
		SELECT id, attachment_ref
		FROM messages
		WHERE attachment_expires_at IS NOT NULL
			AND attachment_expires_at < ?
			AND attachment_ref IS NOT NULL
	`
	rows, err := r.db.QueryContext(ctx, query, now.UTC())
	if err != nil {
		return nil, fmt.Errorf("list expired attachments: %w", err)
	}
	defer rows.Close()

	var res []*domain.ExpiredAttachment
	for rows.Next() {
		ea := &domain.ExpiredAttachment{}
		if err := rows.Scan(&ea.MessageID, &ea.AttachmentRef); err != nil {
			return nil, fmt.Errorf("scan expired attachment: %w", err)
		}
		res = append(res, ea)
	}
	return res, rows.Err()
}

func (r *MessageRepo) ClearExpiredAttachments(ctx context.Context, now time.Time) (int, error) {
	query := `
		UPDATE messages
		SET attachment_kind = NULL, attachment_ref = NULL, attachment_expires_at = NULL
		WHERE attachment_expires_at IS NOT NULL AND attachment_expires_at < ?
	`
	res, err := r.db.ExecContext(ctx, query, now.UTC())
	if err != nil {
		return 0, fmt.Errorf("clear expired attachments: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return int(n), nil
}

func (r *MessageRepo) listEnriched(ctx context.Context, query string, args ...any) ([]*domain.EnrichedMessage, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var res []*domain.EnrichedMessage
	for rows.Next() {
		m, err := scanEnriched(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, m)
	}
	return res, rows.Err()
}

func scanEnriched(row rowScanner) (*domain.EnrichedMessage, error) {
	m := &domain.EnrichedMessage{}
	var mentions sql.NullString
	err := row.Scan(
		&m.ID,
		&m.AuthorID,
		&m.Text,
		&m.HasMarkdown,
		&m.AttachmentKind,
		&m.AttachmentRef,
		&m.AttachmentExpiresAt,
		&m.GifURL,
		&mentions,
		&m.CreatedAt,
		&m.Username,
		&m.DisplayName,
		&m.AvatarURL,
		&m.CustomColor,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scan message: %w", err)
	}
	m.Mentions = parseMentions(mentions)
	return m, nil
}

// parseMentions decodes the serialized mention list. Malformed data degrades
// to "no mentions" rather than failing the read.
func parseMentions(s sql.NullString) []string {
	if !s.Valid || s.String == "" {
		return []string{}
	}
	var mentions []string
	if err := json.Unmarshal([]byte(s.String), &mentions); err != nil {
		return []string{}
	}
	return mentions
}

func reverseMessages(msgs []*domain.EnrichedMessage) {
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
}
