package engine

import (
	"talentbridge/internal/database"
	"talentbridge/internal/engine/actors"
	"talentbridge/internal/realtime"
	"talentbridge/internal/utils"

	"github.com/asynkron/protoactor-go/actor"
)

// Engine coordinates communication between actors
type Engine struct {
	conversationActor *actor.PID
	notificationActor *actor.PID
}

func NewEngine(system *actor.ActorSystem, store database.DBAdapter, dispatcher *realtime.Dispatcher, metrics *utils.MetricsCollector) *Engine {
	context := system.Root

	conversationProps := actor.PropsFromProducer(func() actor.Actor {
		return actors.NewConversationActor(store, dispatcher, metrics)
	})
	conversationPID := context.Spawn(conversationProps)

	notificationProps := actor.PropsFromProducer(func() actor.Actor {
		return actors.NewNotificationActor(store, dispatcher)
	})
	notificationPID := context.Spawn(notificationProps)

	return &Engine{
		conversationActor: conversationPID,
		notificationActor: notificationPID,
	}
}

// GetConversationActor returns the PID of the conversation actor
func (e *Engine) GetConversationActor() *actor.PID {
	return e.conversationActor
}

// GetNotificationActor returns the PID of the notification actor
func (e *Engine) GetNotificationActor() *actor.PID {
	return e.notificationActor
}
