package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"tg_joke_bot/internal/domain"
)

const aggregateID = "bot"

type profileCollection interface {
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (*mongo.Cursor, error)
	BulkWrite(ctx context.Context, models []mongo.WriteModel, opts ...*options.BulkWriteOptions) (*mongo.BulkWriteResult, error)
}

type aggregateCollection interface {
	FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) *mongo.SingleResult
	ReplaceOne(ctx context.Context, filter interface{}, replacement interface{}, opts ...*options.ReplaceOptions) (*mongo.UpdateResult, error)
}

// profileDocument is the stored form of a profile. Command counters are kept as
// an array so their first-seen order survives a round trip.
type profileDocument struct {
	UserID       int64                 `bson:"user_id"`
	Username     string                `bson:"username"`
	FirstName    string                `bson:"first_name"`
	LastName     string                `bson:"last_name"`
	FirstSeen    time.Time             `bson:"first_seen"`
	LastSeen     time.Time             `bson:"last_seen"`
	MessageCount int                   `bson:"message_count"`
	CommandsUsed []domain.CommandCount `bson:"commands_used"`
	Language     string                `bson:"language,omitempty"`
}

type aggregateDocument struct {
	ID                string                `bson:"_id"`
	StartTime         time.Time             `bson:"start_time"`
	LastRestart       time.Time             `bson:"last_restart"`
	TotalUsers        int                   `bson:"total_users"`
	TotalMessages     int                   `bson:"total_messages"`
	TotalCommands     int                   `bson:"total_commands"`
	CommandsBreakdown []domain.CommandCount `bson:"commands_breakdown"`
}

// SnapshotRepository persists statistics snapshots in MongoDB: one document per
// profile and a single aggregate document.
type SnapshotRepository struct {
	profiles   profileCollection
	aggregates aggregateCollection
}

// NewSnapshotRepository constructs a SnapshotRepository backed by the provided
// profile and aggregate collections.
func NewSnapshotRepository(profiles profileCollection, aggregates aggregateCollection) *SnapshotRepository {
	return &SnapshotRepository{
		profiles:   profiles,
		aggregates: aggregates,
	}
}

// Load reads every profile and the aggregate. A missing aggregate yields a nil Bot.
func (r *SnapshotRepository) Load(ctx context.Context) (domain.Snapshot, error) {
	if ctx == nil {
		return domain.Snapshot{}, errors.New("context is required")
	}
	if r == nil || r.profiles == nil || r.aggregates == nil {
		return domain.Snapshot{}, errors.New("snapshot repository is not initialized")
	}

	cursor, err := r.profiles.Find(ctx, bson.D{})
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("find profiles: %w", err)
	}

	var docs []profileDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return domain.Snapshot{}, fmt.Errorf("decode profiles: %w", err)
	}

	snapshot := domain.Snapshot{Users: make(map[int64]domain.UserProfile, len(docs))}
	for _, doc := range docs {
		snapshot.Users[doc.UserID] = doc.toProfile()
	}

	result := r.aggregates.FindOne(ctx, bson.M{"_id": aggregateID})
	if result == nil {
		return domain.Snapshot{}, errors.New("find aggregate returned no result")
	}

	var agg aggregateDocument
	switch err := result.Decode(&agg); {
	case errors.Is(err, mongo.ErrNoDocuments):
	case err != nil:
		return domain.Snapshot{}, fmt.Errorf("find aggregate: %w", err)
	default:
		bot := agg.toAggregate()
		snapshot.Bot = &bot
	}

	return snapshot, nil
}

// Save upserts every profile and the aggregate.
func (r *SnapshotRepository) Save(ctx context.Context, snapshot domain.Snapshot) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if r == nil || r.profiles == nil || r.aggregates == nil {
		return errors.New("snapshot repository is not initialized")
	}

	if len(snapshot.Users) > 0 {
		models := make([]mongo.WriteModel, 0, len(snapshot.Users))
		for id, profile := range snapshot.Users {
			doc := newProfileDocument(profile)
			doc.UserID = id
			models = append(models, mongo.NewReplaceOneModel().
				SetFilter(bson.M{"user_id": id}).
				SetReplacement(doc).
				SetUpsert(true))
		}

		if _, err := r.profiles.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false)); err != nil {
			return fmt.Errorf("upsert profiles: %w", err)
		}
	}

	if snapshot.Bot != nil {
		doc := newAggregateDocument(*snapshot.Bot)
		if _, err := r.aggregates.ReplaceOne(ctx, bson.M{"_id": aggregateID}, doc, options.Replace().SetUpsert(true)); err != nil {
			return fmt.Errorf("upsert aggregate: %w", err)
		}
	}

	return nil
}

func newProfileDocument(p domain.UserProfile) profileDocument {
	return profileDocument{
		UserID:       p.UserID,
		Username:     p.Username,
		FirstName:    p.FirstName,
		LastName:     p.LastName,
		FirstSeen:    p.FirstSeen.Time,
		LastSeen:     p.LastSeen.Time,
		MessageCount: p.MessageCount,
		CommandsUsed: p.CommandsUsed.Entries(),
		Language:     p.Language,
	}
}

func (d profileDocument) toProfile() domain.UserProfile {
	return domain.UserProfile{
		UserID:       d.UserID,
		Username:     d.Username,
		FirstName:    d.FirstName,
		LastName:     d.LastName,
		FirstSeen:    domain.NewTimestamp(d.FirstSeen),
		LastSeen:     domain.NewTimestamp(d.LastSeen),
		MessageCount: d.MessageCount,
		CommandsUsed: domain.NewCommandCounts(d.CommandsUsed...),
		Language:     d.Language,
	}
}

func newAggregateDocument(a domain.BotAggregate) aggregateDocument {
	return aggregateDocument{
		ID:                aggregateID,
		StartTime:         a.StartTime.Time,
		LastRestart:       a.LastRestart.Time,
		TotalUsers:        a.TotalUsers,
		TotalMessages:     a.TotalMessages,
		TotalCommands:     a.TotalCommands,
		CommandsBreakdown: a.CommandsBreakdown.Entries(),
	}
}

func (d aggregateDocument) toAggregate() domain.BotAggregate {
	return domain.BotAggregate{
		StartTime:         domain.NewTimestamp(d.StartTime),
		LastRestart:       domain.NewTimestamp(d.LastRestart),
		TotalUsers:        d.TotalUsers,
		TotalMessages:     d.TotalMessages,
		TotalCommands:     d.TotalCommands,
		CommandsBreakdown: domain.NewCommandCounts(d.CommandsBreakdown...),
	}
}
