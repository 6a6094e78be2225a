package chat

import (
	"context"
	"time"

	"go.uber.org/zap"

	"chatserver/module/chat/model"
)

// replay implements Offline Replay (C7): drain the queue, hydrate from
// the log, deliver as one batch, then mark delivered. Grounded on
// original_source/app/websocket/manager.py's fetch-all/send-one/
// mark-after ordering (SPEC_FULL §4).
func (s *Server) replay(ctx context.Context, conn *Connection) {
	entries, err := s.router.cache.DrainQueue(ctx, conn.userID)
	if err != nil {
		s.log.Error("drain offline queue", zap.String("user_id", conn.userID), zap.Error(err))
		return
	}
	if len(entries) == 0 {
		return
	}

	var directIDs, groupIDs []string
	for _, e := range entries {
		switch e.Kind {
		case "direct":
			directIDs = append(directIDs, e.MessageID)
		case "group":
			groupIDs = append(groupIDs, e.MessageID)
		}
	}

	directByID := map[string]model.DirectMessage{}
	if len(directIDs) > 0 {
		msgs, err := s.router.store.GetDirectMessagesByID(ctx, directIDs)
		if err != nil {
			s.log.Error("hydrate offline direct messages", zap.Error(err))
		}
		for _, m := range msgs {
			directByID[m.ID] = m
		}
	}

	groupByID := map[string]model.GroupMessage{}
	if len(groupIDs) > 0 {
		msgs, err := s.router.store.GetGroupMessagesByID(ctx, groupIDs)
		if err != nil {
			s.log.Error("hydrate offline group messages", zap.Error(err))
		}
		for _, m := range msgs {
			groupByID[m.ID] = m
		}
	}

	usernames := map[string]string{}
	senderUsername := func(userID string) string {
		if name, ok := usernames[userID]; ok {
			return name
		}
		u, err := s.router.store.GetUserByID(ctx, userID)
		if err != nil {
			return ""
		}
		usernames[userID] = u.Username
		return u.Username
	}

	batch := make([]OfflineMessage, 0, len(entries))
	var deliveredIDs []string
	for _, e := range entries {
		switch e.Kind {
		case "direct":
			m, ok := directByID[e.MessageID]
			if !ok {
				continue
			}
			batch = append(batch, OfflineMessage{Kind: "direct", Message: MessageNewOut{
				Type:            TypeMessageNew,
				MessageID:       m.ID,
				SenderID:        m.SenderID,
				SenderUsername:  senderUsername(m.SenderID),
				RecipientID:     m.RecipientID,
				Content:         m.Content,
				MessageTypeName: string(m.Type),
				CreatedAt:       m.CreatedAt,
			}})
			if m.DeliveredAt == nil {
				deliveredIDs = append(deliveredIDs, m.ID)
			}
		case "group":
			m, ok := groupByID[e.MessageID]
			if !ok {
				continue
			}
			batch = append(batch, OfflineMessage{Kind: "group", Message: MessageGroupNewOut{
				Type:            TypeMessageGroupNew,
				MessageID:       m.ID,
				GroupID:         m.GroupID,
				SenderID:        m.SenderID,
				Content:         m.Content,
				MessageTypeName: string(m.Type),
				CreatedAt:       m.CreatedAt,
			}})
		}
	}

	if len(batch) == 0 {
		return
	}
	conn.Send(MessagesOfflineOut{Type: TypeMessagesOffline, Messages: batch, Count: len(batch)})

	if len(deliveredIDs) > 0 {
		if err := s.router.store.MarkDeliveredBatch(ctx, deliveredIDs, time.Now().UTC()); err != nil {
			s.log.Error("mark offline batch delivered", zap.Error(err))
		}
	}
}
