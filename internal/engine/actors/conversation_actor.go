package actors

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"talentbridge/internal/database"
	"talentbridge/internal/models"
	"talentbridge/internal/realtime"
	"talentbridge/internal/utils"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/google/uuid"
)

const dbTimeout = 5 * time.Second

// Message types for ConversationActor
type (
	// StartConversationMsg gets or creates the conversation for a
	// (job, candidate, recruiter) triple. First contact creates it;
	// conversations are never hard-deleted afterwards.
	StartConversationMsg struct {
		JobID       *uuid.UUID
		CandidateID uuid.UUID
		RecruiterID uuid.UUID
	}

	SendMessageMsg struct {
		ConversationID uuid.UUID
		SenderID       uuid.UUID
		Kind           models.MessageKind
		Body           string
		Meta           json.RawMessage
		ClientTag      string
	}

	GetMessagesMsg struct {
		ConversationID uuid.UUID
		RequesterID    uuid.UUID
		Limit          int
		Offset         int
		Descending     bool
	}

	ListConversationsMsg struct {
		UserID uuid.UUID
		Role   models.Role
		Limit  int
		Offset int
	}

	MarkReadMsg struct {
		ConversationID uuid.UUID
		RequesterID    uuid.UUID
	}

	DeleteMessageMsg struct {
		ConversationID uuid.UUID
		MessageID      uuid.UUID
		RequesterID    uuid.UUID
	}

	DeleteConversationMsg struct {
		ConversationID uuid.UUID
		RequesterID    uuid.UUID
	}

	// StatusChangeMsg records an interview/application status transition
	// as a system message and pushes it to both participants.
	StatusChangeMsg struct {
		ConversationID uuid.UUID
		EntityID       uuid.UUID
		Status         string
		RequesterID    uuid.UUID
	}
)

// MarkReadResponse carries the authoritative unread count after a read ack.
type MarkReadResponse struct {
	ConversationID uuid.UUID `json:"conversationId"`
	Unread         int       `json:"unread"`
}

// ConversationActor serializes every mutation of conversation state. All
// write paths go through it, so concurrent sends, read acks, and deletes for
// one process never interleave mid-operation. Persistence always completes
// before the dispatcher publishes.
type ConversationActor struct {
	store      database.DBAdapter
	dispatcher *realtime.Dispatcher
	metrics    *utils.MetricsCollector
}

func NewConversationActor(store database.DBAdapter, dispatcher *realtime.Dispatcher, metrics *utils.MetricsCollector) actor.Actor {
	return &ConversationActor{
		store:      store,
		dispatcher: dispatcher,
		metrics:    metrics,
	}
}

func (a *ConversationActor) Receive(context actor.Context) {
	switch msg := context.Message().(type) {
	case *actor.Started:
		log.Printf("ConversationActor started")
	case *actor.Stopping:
		log.Printf("ConversationActor stopping")
	case *StartConversationMsg:
		a.handleStartConversation(context, msg)
	case *SendMessageMsg:
		a.handleSendMessage(context, msg)
	case *GetMessagesMsg:
		a.handleGetMessages(context, msg)
	case *ListConversationsMsg:
		a.handleListConversations(context, msg)
	case *MarkReadMsg:
		a.handleMarkRead(context, msg)
	case *DeleteMessageMsg:
		a.handleDeleteMessage(context, msg)
	case *DeleteConversationMsg:
		a.handleDeleteConversation(context, msg)
	case *StatusChangeMsg:
		a.handleStatusChange(context, msg)
	}
}

func (a *ConversationActor) handleStartConversation(context actor.Context, msg *StartConversationMsg) {
	ctx, cancel := a.opContext()
	defer cancel()

	existing, err := a.store.FindConversation(ctx, msg.JobID, msg.CandidateID, msg.RecruiterID)
	if err != nil {
		context.Respond(utils.NewDatabaseError("find conversation", err))
		return
	}
	if existing != nil {
		context.Respond(existing)
		return
	}

	conv := &models.Conversation{
		ID:          uuid.New(),
		JobID:       msg.JobID,
		CandidateID: msg.CandidateID,
		RecruiterID: msg.RecruiterID,
		Status:      models.ConversationActive,
		CreatedAt:   time.Now().UTC(),
	}
	if err := a.store.SaveConversation(ctx, conv); err != nil {
		context.Respond(utils.NewDatabaseError("save conversation", err))
		return
	}

	a.dispatcher.ConversationUpdated(conv)
	context.Respond(conv)
}

func (a *ConversationActor) handleSendMessage(context actor.Context, msg *SendMessageMsg) {
	ctx, cancel := a.opContext()
	defer cancel()

	conv, err := a.store.GetConversation(ctx, msg.ConversationID)
	if err != nil {
		context.Respond(toAppError(err, "get conversation"))
		return
	}
	role, ok := conv.ParticipantRole(msg.SenderID)
	if !ok {
		context.Respond(utils.NewNotParticipantError(msg.SenderID.String()))
		return
	}

	kind := msg.Kind
	if kind == "" {
		kind = models.MessageText
	}
	receiverID := conv.Counterpart(msg.SenderID)

	message := &models.Message{
		ID:             uuid.New(),
		ConversationID: conv.ID,
		SenderID:       msg.SenderID,
		ReceiverID:     &receiverID,
		Kind:           kind,
		Body:           msg.Body,
		Meta:           msg.Meta,
		Status:         models.MessageSent,
		ClientTag:      msg.ClientTag,
		CreatedAt:      time.Now().UTC(),
	}

	if err := a.store.SaveMessage(ctx, message); err != nil {
		context.Respond(utils.NewDatabaseError("save message", err))
		return
	}
	a.metrics.MessagesSent.Inc()

	// Mirror what SaveMessage did to the stored row, then dispatch.
	conv.LastMessage = message.Body
	conv.LastMessageAt = &message.CreatedAt
	if role == models.RoleRecruiter {
		conv.CandidateUnread++
	} else {
		conv.RecruiterUnread++
	}

	a.dispatcher.MessageCreated(conv, message)
	a.dispatcher.ConversationUpdated(conv)
	context.Respond(message)
}

func (a *ConversationActor) handleGetMessages(context actor.Context, msg *GetMessagesMsg) {
	ctx, cancel := a.opContext()
	defer cancel()

	conv, err := a.store.GetConversation(ctx, msg.ConversationID)
	if err != nil {
		context.Respond(toAppError(err, "get conversation"))
		return
	}
	role, ok := conv.ParticipantRole(msg.RequesterID)
	if !ok {
		context.Respond(utils.NewNotParticipantError(msg.RequesterID.String()))
		return
	}

	limit := msg.Limit
	if limit <= 0 {
		limit = 50
	}
	if limit > 100 {
		limit = 100
	}

	page, err := a.store.ListMessages(ctx, msg.ConversationID, role, limit, msg.Offset, msg.Descending)
	if err != nil {
		context.Respond(toAppError(err, "list messages"))
		return
	}
	context.Respond(page)
}

func (a *ConversationActor) handleListConversations(context actor.Context, msg *ListConversationsMsg) {
	ctx, cancel := a.opContext()
	defer cancel()

	limit := msg.Limit
	if limit <= 0 {
		limit = 20
	}
	convs, err := a.store.ListConversations(ctx, msg.UserID, msg.Role, limit, msg.Offset)
	if err != nil {
		context.Respond(utils.NewDatabaseError("list conversations", err))
		return
	}
	if convs == nil {
		convs = []*models.Conversation{}
	}
	context.Respond(convs)
}

func (a *ConversationActor) handleMarkRead(context actor.Context, msg *MarkReadMsg) {
	ctx, cancel := a.opContext()
	defer cancel()

	conv, err := a.store.GetConversation(ctx, msg.ConversationID)
	if err != nil {
		context.Respond(toAppError(err, "get conversation"))
		return
	}
	role, ok := conv.ParticipantRole(msg.RequesterID)
	if !ok {
		context.Respond(utils.NewNotParticipantError(msg.RequesterID.String()))
		return
	}

	remaining, err := a.store.MarkConversationRead(ctx, msg.ConversationID, role)
	if err != nil {
		context.Respond(toAppError(err, "mark conversation read"))
		return
	}

	if role == models.RoleCandidate {
		conv.CandidateUnread = remaining
	} else {
		conv.RecruiterUnread = remaining
	}
	a.dispatcher.ConversationUpdated(conv)
	context.Respond(&MarkReadResponse{ConversationID: conv.ID, Unread: remaining})
}

func (a *ConversationActor) handleDeleteMessage(context actor.Context, msg *DeleteMessageMsg) {
	ctx, cancel := a.opContext()
	defer cancel()

	conv, err := a.store.GetConversation(ctx, msg.ConversationID)
	if err != nil {
		context.Respond(toAppError(err, "get conversation"))
		return
	}
	role, ok := conv.ParticipantRole(msg.RequesterID)
	if !ok {
		context.Respond(utils.NewNotParticipantError(msg.RequesterID.String()))
		return
	}

	deleted, err := a.store.SoftDeleteMessage(ctx, msg.MessageID, role)
	if err != nil {
		context.Respond(toAppError(err, "delete message"))
		return
	}

	a.dispatcher.MessageUpdated(conv, deleted)
	context.Respond(deleted)
}

func (a *ConversationActor) handleDeleteConversation(context actor.Context, msg *DeleteConversationMsg) {
	ctx, cancel := a.opContext()
	defer cancel()

	conv, err := a.store.GetConversation(ctx, msg.ConversationID)
	if err != nil {
		context.Respond(toAppError(err, "get conversation"))
		return
	}
	role, ok := conv.ParticipantRole(msg.RequesterID)
	if !ok {
		context.Respond(utils.NewNotParticipantError(msg.RequesterID.String()))
		return
	}

	status := models.DeletedStatusFor(role)
	if err := a.store.SetConversationStatus(ctx, conv.ID, status); err != nil {
		context.Respond(toAppError(err, "set conversation status"))
		return
	}

	conv.Status = status
	a.dispatcher.ConversationUpdated(conv)
	context.Respond(conv)
}

func (a *ConversationActor) handleStatusChange(context actor.Context, msg *StatusChangeMsg) {
	ctx, cancel := a.opContext()
	defer cancel()

	conv, err := a.store.GetConversation(ctx, msg.ConversationID)
	if err != nil {
		context.Respond(toAppError(err, "get conversation"))
		return
	}
	requesterRole, ok := conv.ParticipantRole(msg.RequesterID)
	if !ok {
		context.Respond(utils.NewNotParticipantError(msg.RequesterID.String()))
		return
	}

	receiverID := conv.Counterpart(msg.RequesterID)
	meta, _ := json.Marshal(realtime.StatusChangedPayload{
		EntityID: msg.EntityID.String(),
		Status:   msg.Status,
	})
	systemMsg := &models.Message{
		ID:             uuid.New(),
		ConversationID: conv.ID,
		SenderID:       msg.RequesterID,
		ReceiverID:     &receiverID,
		Kind:           models.MessageSystem,
		Body:           "Status changed to " + msg.Status,
		Meta:           meta,
		Status:         models.MessageSent,
		CreatedAt:      time.Now().UTC(),
	}
	if err := a.store.SaveMessage(ctx, systemMsg); err != nil {
		context.Respond(utils.NewDatabaseError("save status message", err))
		return
	}

	// Mirror what SaveMessage did to the stored row so the pushed snapshot
	// carries the fresh unread count and preview.
	conv.LastMessage = systemMsg.Body
	conv.LastMessageAt = &systemMsg.CreatedAt
	if requesterRole == models.RoleRecruiter {
		conv.CandidateUnread++
	} else {
		conv.RecruiterUnread++
	}

	a.dispatcher.StatusChanged(conv, msg.EntityID, msg.Status)
	a.dispatcher.MessageCreated(conv, systemMsg)
	a.dispatcher.ConversationUpdated(conv)
	context.Respond(systemMsg)
}

func (a *ConversationActor) opContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), dbTimeout)
}

// toAppError passes AppErrors through and wraps anything else as a database
// failure so handlers can map it to an HTTP status.
func toAppError(err error, operation string) *utils.AppError {
	if appErr, ok := err.(*utils.AppError); ok {
		return appErr
	}
	return utils.NewDatabaseError(operation, err)
}
