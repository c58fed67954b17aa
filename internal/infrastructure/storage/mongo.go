package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"recipe-ingestor/internal/infrastructure/config"
	"recipe-ingestor/internal/pkg/common"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const recipeCollection = "recipes"

// MongoStore MongoDB 儲存實作
// 身份檢查與寫入是兩個獨立操作，關係見 ingest.Store 的說明
type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// NewMongoStore 連接 MongoDB 並創建儲存
func NewMongoStore(ctx context.Context, cfg *config.MongoConfig) (*MongoStore, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	common.LogInfo("MongoDB 連接成功",
		zap.String("database", cfg.Database),
	)

	return &MongoStore{
		client:     client,
		collection: client.Database(cfg.Database).Collection(recipeCollection),
	}, nil
}

// FindByID 依 canonical id 查詢，不存在時回傳 (nil, nil)
func (s *MongoStore) FindByID(ctx context.Context, id string) (*common.Recipe, error) {
	var r common.Recipe
	err := s.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&r)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find recipe %s: %w", id, err)
	}
	return &r, nil
}

// Insert 寫入新記錄
func (s *MongoStore) Insert(ctx context.Context, r *common.Recipe) error {
	if _, err := s.collection.InsertOne(ctx, r); err != nil {
		return fmt.Errorf("failed to insert recipe %s: %w", r.ID, err)
	}
	return nil
}

// UpdateByID 以 $set 更新欄位並回傳更新後的文件，不存在時回傳 (nil, nil)
func (s *MongoStore) UpdateByID(ctx context.Context, id string, patch map[string]interface{}) (*common.Recipe, error) {
	set := bson.M{}
	for key, value := range patch {
		set[key] = value
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updated common.Recipe
	err := s.collection.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&updated)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update recipe %s: %w", id, err)
	}
	return &updated, nil
}

// Close 斷開 MongoDB 連接
func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
