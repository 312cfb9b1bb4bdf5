package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	exhibitionserrors "expobook/internal/exhibitions/errors"
	"expobook/pkg/config"
	"expobook/pkg/db"
	mongotx "expobook/pkg/db/mongo"
	"expobook/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName = "Exhibitions"
)

type ExhibitionRepository interface {
	Create(ctx context.Context, exhibition *model.Exhibition) error
	FindByID(ctx context.Context, id string) (*model.Exhibition, error)
	FindByIDs(ctx context.Context, ids []string) (map[string]*model.Exhibition, error)
	FindAll(ctx context.Context) ([]*model.Exhibition, error)
	Update(ctx context.Context, exhibition *model.Exhibition) error
	Delete(ctx context.Context, id string) error
	// AdjustQuota adds delta to the remaining inventory of boothType. A
	// negative delta only applies when enough inventory remains, otherwise
	// ErrInsufficientQuota is returned and nothing changes.
	AdjustQuota(ctx context.Context, id string, boothType model.BoothType, delta int) error
	ExecuteTransaction(ctx context.Context, fn db.TransactionFunc) error
}

type mongoExhibitionRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
	txManager  db.TransactionManager
}

func NewMongoExhibitionRepository(cfg *config.Config) ExhibitionRepository {
	database := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoExhibitionRepository{
		cfg:        cfg,
		collection: database.Collection(CollectionName),
		txManager:  mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

func (r *mongoExhibitionRepository) Create(ctx context.Context, exhibition *model.Exhibition) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := time.Now().UTC().Truncate(time.Millisecond)
	exhibition.ID = ""
	exhibition.CreatedAt = now
	exhibition.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, exhibition)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return exhibitionserrors.ErrDuplicateName
		}
		return fmt.Errorf("failed to create exhibition: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		exhibition.ID = oid.Hex()
	}
	return nil
}

func (r *mongoExhibitionRepository) FindByID(ctx context.Context, id string) (*model.Exhibition, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", exhibitionserrors.ErrInvalidID, id)
	}

	var exhibition model.Exhibition
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&exhibition)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, exhibitionserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find exhibition: %w", err)
	}

	return &exhibition, nil
}

func (r *mongoExhibitionRepository) FindByIDs(ctx context.Context, ids []string) (map[string]*model.Exhibition, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectIDs := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if oid, err := primitive.ObjectIDFromHex(id); err == nil {
			objectIDs = append(objectIDs, oid)
		}
	}

	result := make(map[string]*model.Exhibition, len(objectIDs))
	if len(objectIDs) == 0 {
		return result, nil
	}

	cursor, err := r.collection.Find(ctx, bson.M{"_id": bson.M{"$in": objectIDs}})
	if err != nil {
		return nil, fmt.Errorf("failed to find exhibitions: %w", err)
	}
	defer cursor.Close(ctx)

	var exhibitions []*model.Exhibition
	if err = cursor.All(ctx, &exhibitions); err != nil {
		return nil, fmt.Errorf("failed to decode exhibitions: %w", err)
	}
	for _, e := range exhibitions {
		result[e.ID] = e
	}
	return result, nil
}

func (r *mongoExhibitionRepository) FindAll(ctx context.Context) ([]*model.Exhibition, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{
		{Key: "start_date", Value: 1},
		{Key: "_id", Value: 1},
	})

	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find exhibitions: %w", err)
	}
	defer cursor.Close(ctx)

	exhibitions := []*model.Exhibition{}
	if err = cursor.All(ctx, &exhibitions); err != nil {
		return nil, fmt.Errorf("failed to decode exhibitions: %w", err)
	}

	return exhibitions, nil
}

func (r *mongoExhibitionRepository) Update(ctx context.Context, exhibition *model.Exhibition) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(exhibition.ID)
	if err != nil {
		return fmt.Errorf("%w: %s", exhibitionserrors.ErrInvalidID, exhibition.ID)
	}

	exhibition.UpdatedAt = time.Now().UTC().Truncate(time.Millisecond)
	update := bson.M{
		"$set": bson.M{
			"name":              exhibition.Name,
			"description":       exhibition.Description,
			"venue":             exhibition.Venue,
			"start_date":        exhibition.StartDate,
			"duration_day":      exhibition.DurationDay,
			"small_booth_quota": exhibition.SmallBoothQuota,
			"big_booth_quota":   exhibition.BigBoothQuota,
			"poster_picture":    exhibition.PosterPicture,
			"updated_at":        exhibition.UpdatedAt,
		},
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": objectID}, update)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return exhibitionserrors.ErrDuplicateName
		}
		return fmt.Errorf("failed to update exhibition: %w", err)
	}
	if result.MatchedCount == 0 {
		return exhibitionserrors.ErrNotFound
	}

	return nil
}

func (r *mongoExhibitionRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", exhibitionserrors.ErrInvalidID, id)
	}

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": objectID})
	if err != nil {
		return fmt.Errorf("failed to delete exhibition: %w", err)
	}
	if result.DeletedCount == 0 {
		return exhibitionserrors.ErrNotFound
	}

	return nil
}

func (r *mongoExhibitionRepository) AdjustQuota(ctx context.Context, id string, boothType model.BoothType, delta int) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	field := boothType.QuotaField()
	if field == "" {
		return fmt.Errorf("unknown booth type %q", boothType)
	}

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", exhibitionserrors.ErrInvalidID, id)
	}

	filter := bson.M{"_id": objectID}
	if delta < 0 {
		filter[field] = bson.M{"$gte": -delta}
	}
	update := bson.M{
		"$inc": bson.M{field: delta},
		"$set": bson.M{"updated_at": time.Now().UTC().Truncate(time.Millisecond)},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to adjust %s: %w", field, err)
	}
	if result.MatchedCount > 0 {
		return nil
	}

	count, err := r.collection.CountDocuments(ctx, bson.M{"_id": objectID})
	if err != nil {
		return fmt.Errorf("failed to check exhibition existence: %w", err)
	}
	if count == 0 {
		return exhibitionserrors.ErrNotFound
	}
	return exhibitionserrors.ErrInsufficientQuota
}

func (r *mongoExhibitionRepository) ExecuteTransaction(ctx context.Context, fn db.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}
