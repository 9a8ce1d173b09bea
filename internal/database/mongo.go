package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"agora/entity"
	"agora/internal/config"
)

const (
	collectionWaitingList   = "waiting_list"
	collectionDonations     = "donations"
	collectionVerifications = "identity_verifications"
	collectionUsers         = "users"
)

type MongoDB struct {
	clientOptions *options.ClientOptions
	database      string
}

func NewMongoClient(conf *config.Config) *MongoDB {
	connectionUri := fmt.Sprintf("mongodb://%s:%s", conf.Mongo.Host, conf.Mongo.Port)
	clientOptions := options.Client().ApplyURI(connectionUri)
	if conf.Mongo.User != "" {
		clientOptions.SetAuth(options.Credential{
			Username:   conf.Mongo.User,
			Password:   conf.Mongo.Password,
			AuthSource: conf.Mongo.Database,
		})
	}
	return &MongoDB{
		clientOptions: clientOptions,
		database:      conf.Mongo.Database,
	}
}

func (m *MongoDB) connect(ctx context.Context) (*mongo.Client, error) {
	connection, err := mongo.Connect(ctx, m.clientOptions)
	if err != nil {
		return nil, fmt.Errorf("mongodb connect: %w", err)
	}
	return connection, nil
}

func (m *MongoDB) disconnect(connection *mongo.Client) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = connection.Disconnect(ctx)
}

// EnsureIndexes creates the unique indexes the service relies on for
// conflict detection. Safe to call on every start.
func (m *MongoDB) EnsureIndexes(ctx context.Context) error {
	connection, err := m.connect(ctx)
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	db := connection.Database(m.database)
	unique := options.Index().SetUnique(true)

	indexes := map[string][]mongo.IndexModel{
		collectionWaitingList: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: "invite_code", Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: "created_at", Value: 1}}},
		},
		collectionDonations: {
			{Keys: bson.D{{Key: "session_id", Value: 1}}, Options: unique},
		},
		collectionVerifications: {
			{Keys: bson.D{{Key: "session_id", Value: 1}}, Options: unique},
		},
		collectionUsers: {
			{Keys: bson.D{{Key: "token", Value: 1}}, Options: unique},
		},
	}
	for name, models := range indexes {
		if _, err = db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("mongodb create indexes for %s: %w", name, err)
		}
	}
	return nil
}

// writeError maps a duplicate key violation to entity.DuplicateKeyError
// carrying the violated field, so the service layer can tell an email
// conflict from an invite code collision.
func (m *MongoDB) writeError(err error) error {
	if err == nil {
		return nil
	}
	if mongo.IsDuplicateKeyError(err) {
		msg := err.Error()
		field := "unknown"
		switch {
		case strings.Contains(msg, "invite_code"):
			field = "invite_code"
		case strings.Contains(msg, "email"):
			field = "email"
		case strings.Contains(msg, "token"):
			field = "token"
		case strings.Contains(msg, "session_id"):
			field = "session_id"
		}
		return &entity.DuplicateKeyError{Field: field}
	}
	return fmt.Errorf("mongodb write: %w", err)
}

func (m *MongoDB) findError(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return entity.ErrNotFound
	}
	return fmt.Errorf("mongodb find: %w", err)
}

func (m *MongoDB) CreateEntry(ctx context.Context, e *entity.WaitlistEntry) error {
	connection, err := m.connect(ctx)
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionWaitingList)
	_, err = collection.InsertOne(ctx, e)
	return m.writeError(err)
}

func (m *MongoDB) EntryById(ctx context.Context, id string) (*entity.WaitlistEntry, error) {
	return m.findEntry(ctx, bson.D{{Key: "_id", Value: id}})
}

func (m *MongoDB) EntryByEmail(ctx context.Context, email string) (*entity.WaitlistEntry, error) {
	return m.findEntry(ctx, bson.D{{Key: "email", Value: email}})
}

// PendingEntry matches an invited, not yet accepted signup. An empty code
// narrows the match to email and invite state only.
func (m *MongoDB) PendingEntry(ctx context.Context, email, code string) (*entity.WaitlistEntry, error) {
	filter := bson.D{
		{Key: "email", Value: email},
		{Key: "invite_sent_at", Value: bson.D{{Key: "$ne", Value: nil}}},
		{Key: "invite_accepted_at", Value: nil},
	}
	if code != "" {
		filter = append(filter, bson.E{Key: "invite_code", Value: code})
	}
	return m.findEntry(ctx, filter)
}

func (m *MongoDB) findEntry(ctx context.Context, filter bson.D) (*entity.WaitlistEntry, error) {
	connection, err := m.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionWaitingList)
	var e entity.WaitlistEntry
	if err = collection.FindOne(ctx, filter).Decode(&e); err != nil {
		return nil, m.findError(err)
	}
	return &e, nil
}

// CountAhead counts entries created strictly before the given time whose
// invite has not been accepted. Strict $lt: created_at is the sole ranking
// key and ties are not broken.
func (m *MongoDB) CountAhead(ctx context.Context, before time.Time) (int64, error) {
	connection, err := m.connect(ctx)
	if err != nil {
		return 0, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionWaitingList)
	filter := bson.D{
		{Key: "created_at", Value: bson.D{{Key: "$lt", Value: before}}},
		{Key: "invite_accepted_at", Value: nil},
	}
	n, err := collection.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("mongodb count: %w", err)
	}
	return n, nil
}

func (m *MongoDB) CountEntries(ctx context.Context) (int64, error) {
	connection, err := m.connect(ctx)
	if err != nil {
		return 0, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionWaitingList)
	n, err := collection.CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, fmt.Errorf("mongodb count: %w", err)
	}
	return n, nil
}

// UpdateEntry persists the mutable fields of an entry. Identity fields
// (id, email, created_at) are immutable after creation.
func (m *MongoDB) UpdateEntry(ctx context.Context, e *entity.WaitlistEntry) error {
	connection, err := m.connect(ctx)
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionWaitingList)
	filter := bson.D{{Key: "_id", Value: e.Id}}
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "invite_code", Value: e.InviteCode},
		{Key: "invite_sent_at", Value: e.InviteSentAt},
		{Key: "invite_accepted_at", Value: e.InviteAcceptedAt},
	}}}
	res, err := collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return m.writeError(err)
	}
	if res.MatchedCount == 0 {
		return entity.ErrNotFound
	}
	return nil
}

func (m *MongoDB) SaveDonation(ctx context.Context, d *entity.Donation) error {
	connection, err := m.connect(ctx)
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionDonations)
	filter := bson.D{{Key: "session_id", Value: d.SessionId}}
	update := bson.D{{Key: "$set", Value: d}}
	opts := options.Update().SetUpsert(true)
	_, err = collection.UpdateOne(ctx, filter, update, opts)
	return m.writeError(err)
}

func (m *MongoDB) DonationBySession(ctx context.Context, sessionId string) (*entity.Donation, error) {
	connection, err := m.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionDonations)
	var d entity.Donation
	if err = collection.FindOne(ctx, bson.D{{Key: "session_id", Value: sessionId}}).Decode(&d); err != nil {
		return nil, m.findError(err)
	}
	return &d, nil
}

func (m *MongoDB) SaveVerification(ctx context.Context, v *entity.IdentityVerification) error {
	connection, err := m.connect(ctx)
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionVerifications)
	filter := bson.D{{Key: "session_id", Value: v.SessionId}}
	update := bson.D{{Key: "$set", Value: v}}
	opts := options.Update().SetUpsert(true)
	_, err = collection.UpdateOne(ctx, filter, update, opts)
	return m.writeError(err)
}

func (m *MongoDB) SetVerificationStatus(ctx context.Context, sessionId string, status entity.VerificationStatus) error {
	connection, err := m.connect(ctx)
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionVerifications)
	filter := bson.D{{Key: "session_id", Value: sessionId}}
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "status", Value: status},
		{Key: "updated_at", Value: time.Now().UTC()},
	}}}
	res, err := collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return m.writeError(err)
	}
	if res.MatchedCount == 0 {
		return entity.ErrNotFound
	}
	return nil
}

func (m *MongoDB) GetUser(ctx context.Context, token string) (*entity.User, error) {
	connection, err := m.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionUsers)
	var user entity.User
	if err = collection.FindOne(ctx, bson.D{{Key: "token", Value: token}}).Decode(&user); err != nil {
		return nil, m.findError(err)
	}
	return &user, nil
}

func (m *MongoDB) GetTelegramUsers(ctx context.Context) ([]*entity.User, error) {
	connection, err := m.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionUsers)
	filter := bson.D{{Key: "telegram_id", Value: bson.D{{Key: "$gt", Value: 0}}}, {Key: "telegram_enabled", Value: true}}
	cursor, err := collection.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("mongodb find: %w", err)
	}
	defer cursor.Close(ctx)

	var users []*entity.User
	if err = cursor.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("mongodb decode: %w", err)
	}
	return users, nil
}
