package chat

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"chatserver/module/chat/model"
	"chatserver/service/cache"
	"chatserver/service/store"
	"chatserver/tools/errs"
	"chatserver/tools/ids"
	"chatserver/tools/safe"
)

const maxContentLen = 10000

type sendMessageHandler struct{}

func (sendMessageHandler) Handle(ctx context.Context, r *Router, conn *Connection, raw json.RawMessage) {
	var in SendMessageIn
	if err := json.Unmarshal(raw, &in); err != nil {
		conn.Send(ErrorOut{Type: TypeError, Code: string(errs.ParseError), Message: "malformed message.send"})
		return
	}
	if in.RecipientID == "" {
		conn.Send(ErrorOut{Type: TypeError, Code: string(errs.MissingRecipient), Message: "recipient_id required"})
		return
	}
	if in.RecipientID == conn.userID {
		conn.Send(ErrorOut{Type: TypeError, Code: string(errs.ValidationError), Message: "cannot message yourself"})
		return
	}
	if len(in.Content) < 1 || len(in.Content) > maxContentLen {
		conn.Send(ErrorOut{Type: TypeError, Code: string(errs.ValidationError), Message: "content must be 1-10000 chars"})
		return
	}
	if _, err := r.store.GetUserByID(ctx, in.RecipientID); err == store.ErrNotFound {
		conn.Send(ErrorOut{Type: TypeError, Code: string(errs.MissingRecipient), Message: "recipient does not exist"})
		return
	} else if err != nil {
		conn.Send(ErrorOut{Type: TypeError, Code: string(errs.PersistFailed), Message: "lookup failed"})
		return
	}

	msgType := model.MessageType(in.MessageType)
	if msgType == "" {
		msgType = model.MessageTypeText
	}

	msg := model.DirectMessage{
		ID:          ids.New(),
		SenderID:    conn.userID,
		RecipientID: in.RecipientID,
		Content:     in.Content,
		Type:        msgType,
		CreatedAt:   time.Now().UTC(),
	}

	online, err := r.cache.IsOnline(ctx, in.RecipientID)
	if err != nil {
		r.log.Warn("presence lookup failed", zap.Error(err))
	}

	if online {
		delivered := msg.CreatedAt
		msg.DeliveredAt = &delivered

		out := MessageNewOut{
			Type:            TypeMessageNew,
			MessageID:       msg.ID,
			SenderID:        msg.SenderID,
			SenderUsername:  conn.username,
			RecipientID:     msg.RecipientID,
			Content:         msg.Content,
			MessageTypeName: string(msg.Type),
			CreatedAt:       msg.CreatedAt,
		}
		for _, sock := range r.registry.SocketsFor(in.RecipientID) {
			sock.(*Connection).Send(out)
		}

		safe.Go(r.log, "persist-direct-message-online", func() {
			bg := context.Background()
			if err := r.store.CreateDirectMessage(bg, msg); err != nil {
				r.log.Error("persist direct message", zap.Error(err))
				conn.Send(MessageAckOut{Type: TypeMessageAck, MessageID: msg.ID, Status: AckError, Code: string(errs.PersistFailed), Timestamp: time.Now().UTC()})
				return
			}
			conn.Send(MessageAckOut{Type: TypeMessageAck, MessageID: msg.ID, Status: AckDelivered, Timestamp: time.Now().UTC()})
		})
		return
	}

	if err := r.store.CreateDirectMessage(ctx, msg); err != nil {
		conn.Send(MessageAckOut{Type: TypeMessageAck, MessageID: msg.ID, Status: AckError, Code: string(errs.PersistFailed), Timestamp: time.Now().UTC()})
		return
	}
	if err := r.cache.Enqueue(ctx, in.RecipientID, cache.QueueEntry{MessageID: msg.ID, Kind: "direct"}); err != nil {
		r.log.Error("enqueue offline message", zap.Error(err))
	}
	conn.Send(MessageAckOut{Type: TypeMessageAck, MessageID: msg.ID, Status: AckQueued, Timestamp: time.Now().UTC()})
}

type groupSendHandler struct{}

func (groupSendHandler) Handle(ctx context.Context, r *Router, conn *Connection, raw json.RawMessage) {
	var in GroupSendMessageIn
	if err := json.Unmarshal(raw, &in); err != nil {
		conn.Send(ErrorOut{Type: TypeError, Code: string(errs.ParseError), Message: "malformed message.group.send"})
		return
	}
	if in.GroupID == "" {
		conn.Send(ErrorOut{Type: TypeError, Code: string(errs.MissingGroup), Message: "group_id required"})
		return
	}
	if len(in.Content) < 1 || len(in.Content) > maxContentLen {
		conn.Send(ErrorOut{Type: TypeError, Code: string(errs.ValidationError), Message: "content must be 1-10000 chars"})
		return
	}

	isMember, err := r.store.IsMember(ctx, in.GroupID, conn.userID)
	if err != nil {
		conn.Send(ErrorOut{Type: TypeError, Code: string(errs.PersistFailed), Message: "membership check failed"})
		return
	}
	if !isMember {
		conn.Send(ErrorOut{Type: TypeError, Code: string(errs.NotGroupMember), Message: "not a member of this group"})
		return
	}

	msgType := model.MessageType(in.MessageType)
	if msgType == "" {
		msgType = model.MessageTypeText
	}
	msg := model.GroupMessage{
		ID:        ids.New(),
		GroupID:   in.GroupID,
		SenderID:  conn.userID,
		Content:   in.Content,
		Type:      msgType,
		CreatedAt: time.Now().UTC(),
	}
	if err := r.store.CreateGroupMessage(ctx, msg); err != nil {
		conn.Send(MessageAckOut{Type: TypeMessageAck, MessageID: msg.ID, Status: AckError, Code: string(errs.PersistFailed), Timestamp: time.Now().UTC()})
		return
	}

	members, err := r.store.MembersOf(ctx, in.GroupID)
	if err != nil {
		r.log.Error("list group members", zap.Error(err))
	}

	out := MessageGroupNewOut{
		Type:            TypeMessageGroupNew,
		MessageID:       msg.ID,
		GroupID:         msg.GroupID,
		SenderID:        msg.SenderID,
		Content:         msg.Content,
		MessageTypeName: string(msg.Type),
		CreatedAt:       msg.CreatedAt,
	}

	for _, memberID := range members {
		if memberID == conn.userID {
			continue
		}
		online, err := r.cache.IsOnline(ctx, memberID)
		if err != nil {
			r.log.Warn("presence lookup failed", zap.Error(err))
		}
		if online {
			for _, sock := range r.registry.SocketsFor(memberID) {
				sock.(*Connection).Send(out)
			}
			continue
		}
		if err := r.cache.Enqueue(ctx, memberID, cache.QueueEntry{MessageID: msg.ID, Kind: "group"}); err != nil {
			r.log.Error("enqueue offline group message", zap.String("user_id", memberID), zap.Error(err))
		}
	}

	conn.Send(MessageAckOut{Type: TypeMessageAck, MessageID: msg.ID, Status: AckDelivered, Timestamp: time.Now().UTC()})
}

type readReceiptHandler struct{}

func (readReceiptHandler) Handle(ctx context.Context, r *Router, conn *Connection, raw json.RawMessage) {
	var in ReadReceiptIn
	if err := json.Unmarshal(raw, &in); err != nil || in.MessageID == "" {
		conn.Send(ErrorOut{Type: TypeError, Code: string(errs.ParseError), Message: "malformed message.read"})
		return
	}

	now := time.Now().UTC()

	if dm, err := r.store.GetDirectMessage(ctx, in.MessageID); err == nil {
		changed, err := r.store.MarkRead(ctx, in.MessageID, conn.userID, now)
		if err != nil {
			conn.Send(ErrorOut{Type: TypeError, Code: string(errs.PersistFailed), Message: "mark read failed"})
			return
		}
		if !changed {
			return
		}
		out := MessageReadOut{Type: TypeMessageRead, MessageID: dm.ID, ReaderID: conn.userID, ReadAt: now}
		for _, sock := range r.registry.SocketsFor(dm.SenderID) {
			sock.(*Connection).Send(out)
		}
		return
	} else if err != store.ErrNotFound {
		conn.Send(ErrorOut{Type: TypeError, Code: string(errs.PersistFailed), Message: "lookup failed"})
		return
	}

	gm, err := r.store.GetGroupMessage(ctx, in.MessageID)
	if err != nil {
		conn.Send(ErrorOut{Type: TypeError, Code: string(errs.NotFound), Message: "message not found"})
		return
	}
	changed, err := r.store.MarkGroupRead(ctx, in.MessageID, conn.userID, now)
	if err != nil {
		conn.Send(ErrorOut{Type: TypeError, Code: string(errs.PersistFailed), Message: "mark read failed"})
		return
	}
	if !changed {
		return
	}
	out := MessageReadOut{Type: TypeMessageRead, MessageID: gm.ID, GroupID: gm.GroupID, ReaderID: conn.userID, ReadAt: now}
	for _, sock := range r.registry.SocketsFor(gm.SenderID) {
		sock.(*Connection).Send(out)
	}
}

type typingHandler struct{}

func (typingHandler) Handle(ctx context.Context, r *Router, conn *Connection, raw json.RawMessage) {
	var in TypingIn
	if err := json.Unmarshal(raw, &in); err != nil {
		return
	}

	if in.RecipientID != "" {
		if !r.typing.allow(conn.userID, in.RecipientID) {
			return
		}
		out := TypingOut{Type: TypeTyping, UserID: conn.userID, RecipientID: in.RecipientID}
		for _, sock := range r.registry.SocketsFor(in.RecipientID) {
			sock.(*Connection).Send(out)
		}
		return
	}
	if in.GroupID != "" {
		if !r.typing.allow(conn.userID, in.GroupID) {
			return
		}
		members, err := r.store.MembersOf(ctx, in.GroupID)
		if err != nil {
			return
		}
		out := TypingOut{Type: TypeTyping, UserID: conn.userID, GroupID: in.GroupID}
		for _, memberID := range members {
			if memberID == conn.userID {
				continue
			}
			for _, sock := range r.registry.SocketsFor(memberID) {
				sock.(*Connection).Send(out)
			}
		}
	}
}

type pingHandler struct{}

func (pingHandler) Handle(ctx context.Context, r *Router, conn *Connection, _ json.RawMessage) {
	if err := r.cache.SetOnline(ctx, conn.userID); err != nil {
		r.log.Warn("heartbeat presence refresh failed", zap.String("user_id", conn.userID), zap.Error(err))
	}
	conn.Send(PongOut{Type: TypePong, Timestamp: time.Now().UTC()})
}
