package rest

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"chatserver/module/chat/model"
	"chatserver/service/store"
	"chatserver/tools/errs"
)

// QueryHandlers exposes the read-mostly endpoints C8 needs: they only
// read from (or make a small write against) the durable log.
type QueryHandlers struct {
	store *store.Store
}

func NewQueryHandlers(st *store.Store) *QueryHandlers {
	return &QueryHandlers{store: st}
}

func clampLimit(raw string, def, max int) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return def
	}
	if n > max {
		return max
	}
	return n
}

// Conversations lists the peers the caller has exchanged direct
// messages with, most recent first, with each peer's unread count.
func (h *QueryHandlers) Conversations(c *gin.Context) {
	userID := CurrentUserID(c)
	ctx := c.Request.Context()

	peers, err := h.store.Conversations(ctx, userID, 100)
	if err != nil {
		fail(c, errs.New(errs.PersistFailed, "failed to list conversations"))
		return
	}

	type conversationRow struct {
		PeerID      string    `json:"peer_id"`
		LastMessage string    `json:"last_message,omitempty"`
		LastAt      time.Time `json:"last_at,omitempty"`
		Unread      int       `json:"unread_count"`
	}

	rows := make([]conversationRow, 0, len(peers))
	for _, peer := range peers {
		msgs, err := h.store.Conversation(ctx, userID, peer, 1, time.Now().Add(24*365*time.Hour))
		if err != nil || len(msgs) == 0 {
			continue
		}
		unread, err := h.store.CountUnread(ctx, userID, peer)
		if err != nil {
			unread = 0
		}
		rows = append(rows, conversationRow{
			PeerID: peer, LastMessage: msgs[0].Content, LastAt: msgs[0].CreatedAt, Unread: unread,
		})
	}
	ok(c, http.StatusOK, rows)
}

// Conversation returns a page of direct-message history with peer,
// newest first.
func (h *QueryHandlers) Conversation(c *gin.Context) {
	userID := CurrentUserID(c)
	peer := c.Param("peer")
	limit := clampLimit(c.Query("limit"), 50, 100)
	offset := 0
	if n, err := strconv.Atoi(c.Query("offset")); err == nil && n > 0 {
		offset = n
	}

	before := time.Now().UTC()
	if raw := c.Query("before"); raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			before = t
		}
	}

	msgs, err := h.store.Conversation(c.Request.Context(), userID, peer, limit+offset, before)
	if err != nil {
		fail(c, errs.New(errs.PersistFailed, "failed to load conversation"))
		return
	}
	if offset < len(msgs) {
		msgs = msgs[offset:]
	} else {
		msgs = nil
	}
	if len(msgs) > limit {
		msgs = msgs[:limit]
	}
	okPage(c, msgs, Pagination{Page: offset/limit + 1, PageSize: limit, TotalItems: len(msgs), TotalPages: 1})
}

// MarkRead is the REST equivalent of the websocket read-receipt
// handler, for clients that mark on load rather than over the socket.
// A message_id may belong to either direct_messages or group_messages,
// so it looks the message up first to pick the right mark-read path.
func (h *QueryHandlers) MarkRead(c *gin.Context) {
	userID := CurrentUserID(c)
	messageID := c.Param("id")
	ctx := c.Request.Context()
	now := time.Now().UTC()

	if _, err := h.store.GetDirectMessage(ctx, messageID); err == nil {
		changed, err := h.store.MarkRead(ctx, messageID, userID, now)
		if err != nil {
			fail(c, errs.New(errs.PersistFailed, "failed to mark read"))
			return
		}
		ok(c, http.StatusOK, gin.H{"changed": changed})
		return
	} else if err != store.ErrNotFound {
		fail(c, errs.New(errs.PersistFailed, "lookup failed"))
		return
	}

	if _, err := h.store.GetGroupMessage(ctx, messageID); err != nil {
		fail(c, errs.New(errs.NotFound, "message not found"))
		return
	}
	changed, err := h.store.MarkGroupRead(ctx, messageID, userID, now)
	if err != nil {
		fail(c, errs.New(errs.PersistFailed, "failed to mark read"))
		return
	}
	ok(c, http.StatusOK, gin.H{"changed": changed})
}

type addGroupMemberRequest struct {
	UserID string `json:"user_id"`
}

// AddGroupMember lets an existing member add another user to the
// group, so groups can grow beyond their creator through an exposed
// endpoint rather than only through direct-store calls in tests.
func (h *QueryHandlers) AddGroupMember(c *gin.Context) {
	groupID := c.Param("id")
	callerID := CurrentUserID(c)
	ctx := c.Request.Context()

	isMember, err := h.store.IsMember(ctx, groupID, callerID)
	if err != nil {
		fail(c, errs.New(errs.PersistFailed, "membership check failed"))
		return
	}
	if !isMember {
		fail(c, errs.New(errs.NotGroupMember, "not a member of this group"))
		return
	}

	var req addGroupMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.UserID == "" {
		fail(c, errs.New(errs.ValidationError, "user_id required"))
		return
	}
	if _, err := h.store.GetUserByID(ctx, req.UserID); err == store.ErrNotFound {
		fail(c, errs.New(errs.NotFound, "user does not exist"))
		return
	} else if err != nil {
		fail(c, errs.New(errs.PersistFailed, "lookup failed"))
		return
	}

	member := model.GroupMember{
		GroupID:  groupID,
		UserID:   req.UserID,
		Role:     model.GroupMemberRoleMember,
		JoinedAt: time.Now().UTC(),
	}
	if err := h.store.AddMember(ctx, member); err != nil {
		fail(c, errs.New(errs.PersistFailed, "failed to add member"))
		return
	}
	ok(c, http.StatusCreated, member)
}

func (h *QueryHandlers) MyGroups(c *gin.Context) {
	userID := CurrentUserID(c)
	groups, err := h.store.GroupsOf(c.Request.Context(), userID)
	if err != nil {
		fail(c, errs.New(errs.PersistFailed, "failed to list groups"))
		return
	}
	ok(c, http.StatusOK, groups)
}

func (h *QueryHandlers) GroupMessages(c *gin.Context) {
	userID := CurrentUserID(c)
	groupID := c.Param("id")

	isMember, err := h.store.IsMember(c.Request.Context(), groupID, userID)
	if err != nil {
		fail(c, errs.New(errs.PersistFailed, "membership check failed"))
		return
	}
	if !isMember {
		fail(c, errs.New(errs.NotGroupMember, "not a member of this group"))
		return
	}

	limit := clampLimit(c.Query("limit"), 50, 100)
	before := time.Now().UTC()
	if raw := c.Query("before"); raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			before = t
		}
	}

	msgs, err := h.store.GroupMessages(c.Request.Context(), groupID, limit, before)
	if err != nil {
		fail(c, errs.New(errs.PersistFailed, "failed to load group messages"))
		return
	}
	ok(c, http.StatusOK, msgs)
}

type createGroupRequest struct {
	Name string `json:"name"`
}

func (h *QueryHandlers) CreateGroup(c *gin.Context) {
	var req createGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.Name) < 1 || len(req.Name) > 100 {
		fail(c, errs.New(errs.ValidationError, "name must be 1-100 chars"))
		return
	}
	userID := CurrentUserID(c)

	g, err := h.store.NewGroup(c.Request.Context(), req.Name, userID)
	if err != nil {
		fail(c, errs.New(errs.PersistFailed, "failed to create group"))
		return
	}
	ok(c, http.StatusCreated, g)
}
