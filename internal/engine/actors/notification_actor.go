package actors

import (
	"context"
	"log"
	"time"

	"talentbridge/internal/database"
	"talentbridge/internal/models"
	"talentbridge/internal/realtime"
	"talentbridge/internal/utils"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/google/uuid"
)

// Message types for NotificationActor
type (
	CreateNotificationMsg struct {
		RecipientScope string
		Title          string
		Content        string
		Category       string
	}

	ListNotificationsMsg struct {
		Scopes []string
		Limit  int
		Offset int
	}

	MarkNotificationReadMsg struct {
		NotificationID uuid.UUID
	}
)

// NotificationActor manages the system-notification stream: create, list,
// and read acknowledgment. Each notification is delivered once into its
// recipient room at creation; clients missing the push recover via list.
type NotificationActor struct {
	store      database.DBAdapter
	dispatcher *realtime.Dispatcher
}

func NewNotificationActor(store database.DBAdapter, dispatcher *realtime.Dispatcher) actor.Actor {
	return &NotificationActor{store: store, dispatcher: dispatcher}
}

func (a *NotificationActor) Receive(context actor.Context) {
	switch msg := context.Message().(type) {
	case *actor.Started:
		log.Printf("NotificationActor started")
	case *CreateNotificationMsg:
		a.handleCreate(context, msg)
	case *ListNotificationsMsg:
		a.handleList(context, msg)
	case *MarkNotificationReadMsg:
		a.handleMarkRead(context, msg)
	}
}

func (a *NotificationActor) handleCreate(context actor.Context, msg *CreateNotificationMsg) {
	if realtime.Room(msg.RecipientScope).Kind() == "" {
		context.Respond(utils.NewAppError(utils.ErrInvalidInput, "invalid recipient scope: "+msg.RecipientScope, nil))
		return
	}

	ctx, cancel := a.opContext()
	defer cancel()

	n := &models.Notification{
		ID:             uuid.New(),
		RecipientScope: msg.RecipientScope,
		Title:          msg.Title,
		Content:        msg.Content,
		Category:       msg.Category,
		CreatedAt:      time.Now().UTC(),
	}
	if err := a.store.SaveNotification(ctx, n); err != nil {
		context.Respond(utils.NewDatabaseError("save notification", err))
		return
	}

	a.dispatcher.NotificationCreated(n)
	context.Respond(n)
}

func (a *NotificationActor) handleList(context actor.Context, msg *ListNotificationsMsg) {
	ctx, cancel := a.opContext()
	defer cancel()

	limit := msg.Limit
	if limit <= 0 {
		limit = 20
	}
	notifications, err := a.store.ListNotifications(ctx, msg.Scopes, limit, msg.Offset)
	if err != nil {
		context.Respond(utils.NewDatabaseError("list notifications", err))
		return
	}
	if notifications == nil {
		notifications = []*models.Notification{}
	}
	context.Respond(notifications)
}

func (a *NotificationActor) handleMarkRead(context actor.Context, msg *MarkNotificationReadMsg) {
	ctx, cancel := a.opContext()
	defer cancel()

	if err := a.store.MarkNotificationRead(ctx, msg.NotificationID); err != nil {
		context.Respond(toAppError(err, "mark notification read"))
		return
	}
	context.Respond(true)
}

func (a *NotificationActor) opContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), dbTimeout)
}
