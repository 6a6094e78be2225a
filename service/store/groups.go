package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"chatserver/module/chat/model"
	"chatserver/tools/ids"
)

// CreateGroup creates a group and seeds its creator as an admin member
// in one transaction — the ordinary-user surface SPEC_FULL adds so C6's
// group path has groups to operate on (spec's Non-goals only exclude
// admin CRUD, not group creation itself).
func (s *Store) CreateGroup(ctx context.Context, g model.Group) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`INSERT INTO groups (id, name, creator_id, created_at) VALUES ($1, $2, $3, $4)`,
		g.ID, g.Name, g.CreatorID, g.CreatedAt,
	); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO group_members (group_id, user_id, role, joined_at) VALUES ($1, $2, $3, $4)`,
		g.ID, g.CreatorID, model.GroupMemberRoleAdmin, g.CreatedAt,
	); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// NewGroup generates an id and creates a group in one call, for the
// REST create-group endpoint.
func (s *Store) NewGroup(ctx context.Context, name, creatorID string) (model.Group, error) {
	g := model.Group{ID: ids.New(), Name: name, CreatorID: creatorID, CreatedAt: time.Now().UTC()}
	if err := s.CreateGroup(ctx, g); err != nil {
		return model.Group{}, err
	}
	return g, nil
}

func (s *Store) AddMember(ctx context.Context, m model.GroupMember) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO group_members (group_id, user_id, role, joined_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (group_id, user_id) DO NOTHING`,
		m.GroupID, m.UserID, m.Role, m.JoinedAt,
	)
	return err
}

// IsMember reports whether userID currently belongs to groupID — the
// membership check spec §3 requires before accepting a group message.
func (s *Store) IsMember(ctx context.Context, groupID, userID string) (bool, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM group_members WHERE group_id = $1 AND user_id = $2)`,
		groupID, userID,
	).Scan(&exists)
	return exists, err
}

// MembersOf returns the user ids currently in groupID, for C6 to fan
// the group message out to.
func (s *Store) MembersOf(ctx context.Context, groupID string) ([]string, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	rows, err := s.pool.Query(ctx, `SELECT user_id FROM group_members WHERE group_id = $1`, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []string
	for rows.Next() {
		var userID string
		if err := rows.Scan(&userID); err != nil {
			return nil, err
		}
		members = append(members, userID)
	}
	return members, rows.Err()
}

// GroupsOf lists the groups userID belongs to, newest first, for the REST "my
// groups" endpoint (C8).
func (s *Store) GroupsOf(ctx context.Context, userID string) ([]model.Group, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	rows, err := s.pool.Query(ctx,
		`SELECT g.id, g.name, g.creator_id, g.created_at
		 FROM groups g JOIN group_members gm ON gm.group_id = g.id
		 WHERE gm.user_id = $1
		 ORDER BY g.created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Group
	for rows.Next() {
		var g model.Group
		if err := rows.Scan(&g.ID, &g.Name, &g.CreatorID, &g.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (s *Store) CreateGroupMessage(ctx context.Context, m model.GroupMessage) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO group_messages (id, group_id, sender_id, content, type, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		m.ID, m.GroupID, m.SenderID, m.Content, m.Type, m.CreatedAt,
	)
	return err
}

func (s *Store) GetGroupMessage(ctx context.Context, messageID string) (model.GroupMessage, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	row := s.pool.QueryRow(ctx,
		`SELECT id, group_id, sender_id, content, type, created_at
		 FROM group_messages WHERE id = $1`, messageID)
	return scanGroupMessage(row)
}

func (s *Store) GetGroupMessagesByID(ctx context.Context, messageIDs []string) ([]model.GroupMessage, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if len(messageIDs) == 0 {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, group_id, sender_id, content, type, created_at
		 FROM group_messages WHERE id = ANY($1)`, messageIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.GroupMessage
	for rows.Next() {
		m, err := scanGroupMessage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// GroupMessages returns a page of a group's message history, newest
// first, for the REST group-messages endpoint (C8).
func (s *Store) GroupMessages(ctx context.Context, groupID string, limit int, before time.Time) ([]model.GroupMessage, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	rows, err := s.pool.Query(ctx,
		`SELECT id, group_id, sender_id, content, type, created_at
		 FROM group_messages WHERE group_id = $1 AND created_at < $2
		 ORDER BY created_at DESC LIMIT $3`,
		groupID, before, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.GroupMessage
	for rows.Next() {
		m, err := scanGroupMessage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// MarkGroupRead records that userID has read messageID, ignoring a
// duplicate mark (composite primary key absorbs the retry). The bool
// reports whether this call actually inserted a new row, so callers
// can gate sender notification on a genuinely new read.
func (s *Store) MarkGroupRead(ctx context.Context, messageID, userID string, at time.Time) (bool, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	tag, err := s.pool.Exec(ctx,
		`INSERT INTO group_message_reads (message_id, user_id, read_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (message_id, user_id) DO NOTHING`,
		messageID, userID, at,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func scanGroupMessage(row pgx.Row) (model.GroupMessage, error) {
	var m model.GroupMessage
	err := row.Scan(&m.ID, &m.GroupID, &m.SenderID, &m.Content, &m.Type, &m.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.GroupMessage{}, ErrNotFound
	}
	return m, err
}
