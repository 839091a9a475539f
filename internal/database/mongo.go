// internal/database/mongo.go
package database

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"talentbridge/internal/models"
	"talentbridge/internal/utils"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoDB struct {
	Client        *mongo.Client
	Users         *mongo.Collection
	Conversations *mongo.Collection
	Messages      *mongo.Collection
	Notifications *mongo.Collection
}

func NewMongoDB(uri string) (*MongoDB, error) {
	serverAPI := options.ServerAPI(options.ServerAPIVersion1)
	opts := options.Client().ApplyURI(uri).SetServerAPIOptions(serverAPI)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %v", err)
	}

	if err := client.Database("admin").RunCommand(ctx, bson.D{{Key: "ping", Value: 1}}).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %v", err)
	}

	log.Println("Successfully connected to MongoDB!")

	db := client.Database("talentbridge")
	return &MongoDB{
		Client:        client,
		Users:         db.Collection("users"),
		Conversations: db.Collection("conversations"),
		Messages:      db.Collection("messages"),
		Notifications: db.Collection("notifications"),
	}, nil
}

func (m *MongoDB) Close(ctx context.Context) error {
	return m.Client.Disconnect(ctx)
}

func (m *MongoDB) Ping(ctx context.Context) error {
	return m.Client.Database("admin").RunCommand(ctx, bson.D{{Key: "ping", Value: 1}}).Err()
}

// userDocument is the MongoDB document shape for users
type userDocument struct {
	ID        string    `bson:"_id"`
	Name      string    `bson:"name"`
	Email     string    `bson:"email"`
	Role      string    `bson:"role"`
	CreatedAt time.Time `bson:"createdAt"`
}

// conversationDocument is the MongoDB document shape for conversations
type conversationDocument struct {
	ID              string     `bson:"_id"`
	JobID           *string    `bson:"jobId,omitempty"`
	CandidateID     string     `bson:"candidateId"`
	RecruiterID     string     `bson:"recruiterId"`
	CandidateUnread int        `bson:"candidateUnread"`
	RecruiterUnread int        `bson:"recruiterUnread"`
	Status          string     `bson:"status"`
	LastMessage     string     `bson:"lastMessage"`
	LastMessageAt   *time.Time `bson:"lastMessageAt,omitempty"`
	CreatedAt       time.Time  `bson:"createdAt"`
}

// messageDocument is the MongoDB document shape for messages
type messageDocument struct {
	ID                 string    `bson:"_id"`
	ConversationID     string    `bson:"conversationId"`
	SenderID           string    `bson:"senderId"`
	ReceiverID         *string   `bson:"receiverId,omitempty"`
	Kind               string    `bson:"kind"`
	Body               string    `bson:"body"`
	Meta               string    `bson:"meta,omitempty"`
	Status             string    `bson:"status"`
	ClientTag          string    `bson:"clientTag"`
	DeletedByCandidate bool      `bson:"deletedByCandidate"`
	DeletedByRecruiter bool      `bson:"deletedByRecruiter"`
	CreatedAt          time.Time `bson:"createdAt"`
}

// notificationDocument is the MongoDB document shape for notifications
type notificationDocument struct {
	ID             string    `bson:"_id"`
	RecipientScope string    `bson:"recipientScope"`
	Title          string    `bson:"title"`
	Content        string    `bson:"content"`
	Category       string    `bson:"category"`
	IsRead         bool      `bson:"isRead"`
	CreatedAt      time.Time `bson:"createdAt"`
}

func toConversationModel(doc *conversationDocument) *models.Conversation {
	id, _ := uuid.Parse(doc.ID)
	candidateID, _ := uuid.Parse(doc.CandidateID)
	recruiterID, _ := uuid.Parse(doc.RecruiterID)
	conv := &models.Conversation{
		ID:              id,
		CandidateID:     candidateID,
		RecruiterID:     recruiterID,
		CandidateUnread: doc.CandidateUnread,
		RecruiterUnread: doc.RecruiterUnread,
		Status:          models.ConversationStatus(doc.Status),
		LastMessage:     doc.LastMessage,
		LastMessageAt:   doc.LastMessageAt,
		CreatedAt:       doc.CreatedAt,
	}
	if doc.JobID != nil {
		if jobID, err := uuid.Parse(*doc.JobID); err == nil {
			conv.JobID = &jobID
		}
	}
	return conv
}

func toConversationDocument(conv *models.Conversation) *conversationDocument {
	doc := &conversationDocument{
		ID:              conv.ID.String(),
		CandidateID:     conv.CandidateID.String(),
		RecruiterID:     conv.RecruiterID.String(),
		CandidateUnread: conv.CandidateUnread,
		RecruiterUnread: conv.RecruiterUnread,
		Status:          string(conv.Status),
		LastMessage:     conv.LastMessage,
		LastMessageAt:   conv.LastMessageAt,
		CreatedAt:       conv.CreatedAt,
	}
	if conv.JobID != nil {
		jobID := conv.JobID.String()
		doc.JobID = &jobID
	}
	return doc
}

func toMessageModel(doc *messageDocument) *models.Message {
	id, _ := uuid.Parse(doc.ID)
	conversationID, _ := uuid.Parse(doc.ConversationID)
	senderID, _ := uuid.Parse(doc.SenderID)
	msg := &models.Message{
		ID:                 id,
		ConversationID:     conversationID,
		SenderID:           senderID,
		Kind:               models.MessageKind(doc.Kind),
		Body:               doc.Body,
		Status:             models.MessageStatus(doc.Status),
		ClientTag:          doc.ClientTag,
		DeletedByCandidate: doc.DeletedByCandidate,
		DeletedByRecruiter: doc.DeletedByRecruiter,
		CreatedAt:          doc.CreatedAt,
	}
	if doc.ReceiverID != nil {
		if receiverID, err := uuid.Parse(*doc.ReceiverID); err == nil {
			msg.ReceiverID = &receiverID
		}
	}
	if doc.Meta != "" {
		msg.Meta = json.RawMessage(doc.Meta)
	}
	return msg
}

// GetUser retrieves a user by ID
func (m *MongoDB) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var doc userDocument
	err := m.Users.FindOne(ctx, bson.M{"_id": id.String()}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, utils.NewUserNotFoundError(id.String())
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %v", err)
	}
	userID, _ := uuid.Parse(doc.ID)
	return &models.User{
		ID:        userID,
		Name:      doc.Name,
		Email:     doc.Email,
		Role:      models.Role(doc.Role),
		CreatedAt: doc.CreatedAt,
	}, nil
}

// SaveUser inserts or updates a user record
func (m *MongoDB) SaveUser(ctx context.Context, user *models.User) error {
	doc := userDocument{
		ID:        user.ID.String(),
		Name:      user.Name,
		Email:     user.Email,
		Role:      string(user.Role),
		CreatedAt: user.CreatedAt,
	}
	opts := options.Replace().SetUpsert(true)
	if _, err := m.Users.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, opts); err != nil {
		return fmt.Errorf("failed to save user: %v", err)
	}
	return nil
}

// GetConversation retrieves a conversation by ID
func (m *MongoDB) GetConversation(ctx context.Context, id uuid.UUID) (*models.Conversation, error) {
	var doc conversationDocument
	err := m.Conversations.FindOne(ctx, bson.M{"_id": id.String()}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, utils.NewAppError(utils.ErrConversationNotFound, "conversation not found: "+id.String(), nil)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation: %v", err)
	}
	return toConversationModel(&doc), nil
}

// FindConversation looks up the conversation for a (job, candidate, recruiter)
// triple. Returns nil, nil when no conversation exists yet.
func (m *MongoDB) FindConversation(ctx context.Context, jobID *uuid.UUID, candidateID, recruiterID uuid.UUID) (*models.Conversation, error) {
	filter := bson.M{
		"candidateId": candidateID.String(),
		"recruiterId": recruiterID.String(),
	}
	if jobID != nil {
		filter["jobId"] = jobID.String()
	} else {
		filter["jobId"] = bson.M{"$exists": false}
	}

	var doc conversationDocument
	err := m.Conversations.FindOne(ctx, filter).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find conversation: %v", err)
	}
	return toConversationModel(&doc), nil
}

// SaveConversation inserts a new conversation
func (m *MongoDB) SaveConversation(ctx context.Context, conv *models.Conversation) error {
	if _, err := m.Conversations.InsertOne(ctx, toConversationDocument(conv)); err != nil {
		return fmt.Errorf("failed to save conversation: %v", err)
	}
	return nil
}

// ListConversations returns conversations involving a user, newest activity
// first, hiding the ones the viewing role has soft-deleted.
func (m *MongoDB) ListConversations(ctx context.Context, userID uuid.UUID, role models.Role, limit, offset int) ([]*models.Conversation, error) {
	userIDStr := userID.String()
	filter := bson.M{
		"$or": []bson.M{
			{"candidateId": userIDStr},
			{"recruiterId": userIDStr},
		},
		"status": bson.M{"$ne": string(models.DeletedStatusFor(role))},
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "lastMessageAt", Value: -1}, {Key: "createdAt", Value: -1}}).
		SetLimit(int64(limit)).
		SetSkip(int64(offset))

	cursor, err := m.Conversations.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %v", err)
	}
	defer cursor.Close(ctx)

	var convs []*models.Conversation
	for cursor.Next(ctx) {
		var doc conversationDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode conversation: %v", err)
		}
		convs = append(convs, toConversationModel(&doc))
	}
	return convs, nil
}

// SetConversationStatus updates the lifecycle status
func (m *MongoDB) SetConversationStatus(ctx context.Context, id uuid.UUID, status models.ConversationStatus) error {
	result, err := m.Conversations.UpdateOne(ctx,
		bson.M{"_id": id.String()},
		bson.M{"$set": bson.M{"status": string(status)}})
	if err != nil {
		return fmt.Errorf("failed to set conversation status: %v", err)
	}
	if result.MatchedCount == 0 {
		return utils.NewAppError(utils.ErrConversationNotFound, "conversation not found: "+id.String(), nil)
	}
	return nil
}

// MarkConversationRead zeroes one role's unread counter and returns the new
// count. Running it twice is a no-op.
func (m *MongoDB) MarkConversationRead(ctx context.Context, id uuid.UUID, role models.Role) (int, error) {
	field := "recruiterUnread"
	if role == models.RoleCandidate {
		field = "candidateUnread"
	}
	result, err := m.Conversations.UpdateOne(ctx,
		bson.M{"_id": id.String()},
		bson.M{"$set": bson.M{field: 0}})
	if err != nil {
		return 0, fmt.Errorf("failed to mark conversation read: %v", err)
	}
	if result.MatchedCount == 0 {
		return 0, utils.NewAppError(utils.ErrConversationNotFound, "conversation not found: "+id.String(), nil)
	}
	return 0, nil
}

// SaveMessage persists a message, then updates the conversation snapshot and
// the recipient role's unread counter.
func (m *MongoDB) SaveMessage(ctx context.Context, msg *models.Message) error {
	doc := messageDocument{
		ID:                 msg.ID.String(),
		ConversationID:     msg.ConversationID.String(),
		SenderID:           msg.SenderID.String(),
		Kind:               string(msg.Kind),
		Body:               msg.Body,
		Meta:               string(msg.Meta),
		Status:             string(msg.Status),
		ClientTag:          msg.ClientTag,
		DeletedByCandidate: msg.DeletedByCandidate,
		DeletedByRecruiter: msg.DeletedByRecruiter,
		CreatedAt:          msg.CreatedAt,
	}
	if msg.ReceiverID != nil {
		receiverID := msg.ReceiverID.String()
		doc.ReceiverID = &receiverID
	}

	if _, err := m.Messages.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to save message: %v", err)
	}

	conv, err := m.GetConversation(ctx, msg.ConversationID)
	if err != nil {
		return err
	}
	unreadField := "recruiterUnread"
	if role, ok := conv.ParticipantRole(msg.SenderID); ok && role == models.RoleRecruiter {
		unreadField = "candidateUnread"
	}

	_, err = m.Conversations.UpdateOne(ctx,
		bson.M{"_id": msg.ConversationID.String()},
		bson.M{
			"$set": bson.M{"lastMessage": msg.Body, "lastMessageAt": msg.CreatedAt},
			"$inc": bson.M{unreadField: 1},
		})
	if err != nil {
		return fmt.Errorf("failed to update conversation snapshot: %v", err)
	}
	return nil
}

// ListMessages returns one page of a conversation's messages visible to the
// viewing role, plus the conversation snapshot and total visible count.
func (m *MongoDB) ListMessages(ctx context.Context, conversationID uuid.UUID, viewer models.Role, limit, offset int, descending bool) (*MessagePage, error) {
	conv, err := m.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	deletedField := "deletedByRecruiter"
	if viewer == models.RoleCandidate {
		deletedField = "deletedByCandidate"
	}
	filter := bson.M{
		"conversationId": conversationID.String(),
		deletedField:     false,
	}

	direction := 1
	if descending {
		direction = -1
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: direction}, {Key: "_id", Value: direction}}).
		SetLimit(int64(limit)).
		SetSkip(int64(offset))

	cursor, err := m.Messages.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %v", err)
	}
	defer cursor.Close(ctx)

	var messages []*models.Message
	for cursor.Next(ctx) {
		var doc messageDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode message: %v", err)
		}
		messages = append(messages, toMessageModel(&doc))
	}

	total, err := m.Messages.CountDocuments(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to count messages: %v", err)
	}

	return &MessagePage{Messages: messages, Conversation: conv, Total: int(total)}, nil
}

// SoftDeleteMessage flags a message deleted for one role and returns the
// updated record.
func (m *MongoDB) SoftDeleteMessage(ctx context.Context, messageID uuid.UUID, role models.Role) (*models.Message, error) {
	field := "deletedByRecruiter"
	if role == models.RoleCandidate {
		field = "deletedByCandidate"
	}
	result, err := m.Messages.UpdateOne(ctx,
		bson.M{"_id": messageID.String()},
		bson.M{"$set": bson.M{field: true}})
	if err != nil {
		return nil, fmt.Errorf("failed to delete message: %v", err)
	}
	if result.MatchedCount == 0 {
		return nil, utils.NewAppError(utils.ErrMessageNotFound, "message not found: "+messageID.String(), nil)
	}

	var doc messageDocument
	if err := m.Messages.FindOne(ctx, bson.M{"_id": messageID.String()}).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to reload message: %v", err)
	}
	return toMessageModel(&doc), nil
}

// SaveNotification inserts a notification
func (m *MongoDB) SaveNotification(ctx context.Context, n *models.Notification) error {
	doc := notificationDocument{
		ID:             n.ID.String(),
		RecipientScope: n.RecipientScope,
		Title:          n.Title,
		Content:        n.Content,
		Category:       n.Category,
		IsRead:         n.IsRead,
		CreatedAt:      n.CreatedAt,
	}
	if _, err := m.Notifications.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to save notification: %v", err)
	}
	return nil
}

// ListNotifications returns notifications addressed to any of the given
// scopes, newest first.
func (m *MongoDB) ListNotifications(ctx context.Context, scopes []string, limit, offset int) ([]*models.Notification, error) {
	filter := bson.M{"recipientScope": bson.M{"$in": scopes}}
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(int64(limit)).
		SetSkip(int64(offset))

	cursor, err := m.Notifications.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %v", err)
	}
	defer cursor.Close(ctx)

	var notifications []*models.Notification
	for cursor.Next(ctx) {
		var doc notificationDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode notification: %v", err)
		}
		id, _ := uuid.Parse(doc.ID)
		notifications = append(notifications, &models.Notification{
			ID:             id,
			RecipientScope: doc.RecipientScope,
			Title:          doc.Title,
			Content:        doc.Content,
			Category:       doc.Category,
			IsRead:         doc.IsRead,
			CreatedAt:      doc.CreatedAt,
		})
	}
	return notifications, nil
}

// MarkNotificationRead flips the read flag
func (m *MongoDB) MarkNotificationRead(ctx context.Context, id uuid.UUID) error {
	result, err := m.Notifications.UpdateOne(ctx,
		bson.M{"_id": id.String()},
		bson.M{"$set": bson.M{"isRead": true}})
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %v", err)
	}
	if result.MatchedCount == 0 {
		return utils.NewAppError(utils.ErrNotFound, "notification not found: "+id.String(), nil)
	}
	return nil
}
