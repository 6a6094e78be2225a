package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"chatserver/module/chat/model"
)

// CreateDirectMessage inserts a message row at router-receipt time.
// delivered_at is written from m.DeliveredAt (set by the online branch);
// when nil it is set later by MarkDeliveredBatch, and read_at by MarkRead.
func (s *Store) CreateDirectMessage(ctx context.Context, m model.DirectMessage) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO direct_messages (id, sender_id, recipient_id, content, type, created_at, delivered_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		m.ID, m.SenderID, m.RecipientID, m.Content, m.Type, m.CreatedAt, m.DeliveredAt,
	)
	return err
}

// MarkDelivered sets delivered_at the first time a message reaches a
// live socket or an offline-replay batch, per spec §3. It is a no-op
// (not an error) if already delivered.
func (s *Store) MarkDelivered(ctx context.Context, messageID string, at time.Time) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	_, err := s.pool.Exec(ctx,
		`UPDATE direct_messages SET delivered_at = $2
		 WHERE id = $1 AND delivered_at IS NULL`,
		messageID, at,
	)
	return err
}

// MarkDeliveredBatch is MarkDelivered for the offline-replay path,
// where a whole batch is marked in one round trip.
func (s *Store) MarkDeliveredBatch(ctx context.Context, messageIDs []string, at time.Time) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if len(messageIDs) == 0 {
		return nil
	}
	_, err := s.pool.Exec(ctx,
		`UPDATE direct_messages SET delivered_at = $2
		 WHERE id = ANY($1) AND delivered_at IS NULL`,
		messageIDs, at,
	)
	return err
}

// MarkRead sets read_at on a message the given user received, and
// reports whether this call was the one that transitioned it (false if
// already read — the read-receipt notification is only sent once).
func (s *Store) MarkRead(ctx context.Context, messageID, recipientID string, at time.Time) (bool, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	tag, err := s.pool.Exec(ctx,
		`UPDATE direct_messages SET read_at = $3
		 WHERE id = $1 AND recipient_id = $2 AND read_at IS NULL`,
		messageID, recipientID, at,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Store) GetDirectMessage(ctx context.Context, messageID string) (model.DirectMessage, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	row := s.pool.QueryRow(ctx,
		`SELECT id, sender_id, recipient_id, content, type, created_at, delivered_at, read_at
		 FROM direct_messages WHERE id = $1`, messageID)
	return scanDirectMessage(row)
}

// GetDirectMessagesByID batch-fetches messages for offline-replay
// hydration, preserving no particular order — callers sort by
// created_at if presentation order matters.
func (s *Store) GetDirectMessagesByID(ctx context.Context, messageIDs []string) ([]model.DirectMessage, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if len(messageIDs) == 0 {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, sender_id, recipient_id, content, type, created_at, delivered_at, read_at
		 FROM direct_messages WHERE id = ANY($1)`, messageIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.DirectMessage
	for rows.Next() {
		m, err := scanDirectMessage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Conversation returns direct messages between the two users, newest
// first, for the REST conversation-history endpoint (C8).
func (s *Store) Conversation(ctx context.Context, userA, userB string, limit int, before time.Time) ([]model.DirectMessage, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	rows, err := s.pool.Query(ctx,
		`SELECT id, sender_id, recipient_id, content, type, created_at, delivered_at, read_at
		 FROM direct_messages
		 WHERE ((sender_id = $1 AND recipient_id = $2) OR (sender_id = $2 AND recipient_id = $1))
		   AND created_at < $3
		 ORDER BY created_at DESC
		 LIMIT $4`,
		userA, userB, before, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.DirectMessage
	for rows.Next() {
		m, err := scanDirectMessage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// CountUnread returns how many messages from peer to userID have not
// been read yet, for the conversations list's unread badge.
func (s *Store) CountUnread(ctx context.Context, userID, peer string) (int, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var count int
	err := s.pool.QueryRow(ctx,
		`SELECT count(*) FROM direct_messages
		 WHERE recipient_id = $1 AND sender_id = $2 AND read_at IS NULL`,
		userID, peer,
	).Scan(&count)
	return count, err
}

// Conversations lists the distinct peers userID has exchanged direct
// messages with, most recently active first.
func (s *Store) Conversations(ctx context.Context, userID string, limit int) ([]string, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	rows, err := s.pool.Query(ctx,
		`SELECT peer FROM (
			SELECT CASE WHEN sender_id = $1 THEN recipient_id ELSE sender_id END AS peer,
			       max(created_at) AS last_at
			FROM direct_messages
			WHERE sender_id = $1 OR recipient_id = $1
			GROUP BY peer
		 ) t
		 ORDER BY last_at DESC
		 LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var peers []string
	for rows.Next() {
		var peer string
		if err := rows.Scan(&peer); err != nil {
			return nil, err
		}
		peers = append(peers, peer)
	}
	return peers, rows.Err()
}

func scanDirectMessage(row pgx.Row) (model.DirectMessage, error) {
	var m model.DirectMessage
	err := row.Scan(&m.ID, &m.SenderID, &m.RecipientID, &m.Content, &m.Type, &m.CreatedAt, &m.DeliveredAt, &m.ReadAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.DirectMessage{}, ErrNotFound
	}
	return m, err
}
