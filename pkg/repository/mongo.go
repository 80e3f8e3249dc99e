package repository

import (
	"context"
	"time"

	"github.com/example/farmashop/pkg/config"
	"github.com/example/farmashop/pkg/pricing"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoRepository struct {
	client   *mongo.Client
	database *mongo.Database
	config   *config.MongoDBConfig
}

func NewMongoRepository(cfg *config.MongoDBConfig) (*MongoRepository, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, err
	}

	return &MongoRepository{
		client:   client,
		database: client.Database(cfg.Database),
		config:   cfg,
	}, nil
}

func (m *MongoRepository) Ping(ctx context.Context) error {
	return m.client.Ping(ctx, nil)
}

func (m *MongoRepository) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

// AuditLog is one back-office event: an order transition or a price
// resolution, with its detail payload.
type AuditLog struct {
	ID        string    `bson:"_id,omitempty"`
	Action    string    `bson:"action"`
	EntityID  string    `bson:"entity_id"`
	Actor     string    `bson:"actor,omitempty"`
	Data      bson.M    `bson:"data"`
	CreatedAt time.Time `bson:"created_at"`
}

func (m *MongoRepository) createAuditLog(ctx context.Context, log *AuditLog) error {
	collection := m.database.Collection(m.config.Collection)
	log.CreatedAt = time.Now()
	_, err := collection.InsertOne(ctx, log)
	return err
}

// RecordTransition implements orderflow.AuditSink.
func (m *MongoRepository) RecordTransition(ctx context.Context, orderID int64, originCode, destCode, actor string) error {
	return m.createAuditLog(ctx, &AuditLog{
		Action:   "pedido.cambio_estado",
		EntityID: itoa(orderID),
		Actor:    actor,
		Data: bson.M{
			"origen":  originCode,
			"destino": destCode,
		},
	})
}

// RecordResolution implements pricing.AuditSink. The step trail is stored
// verbatim so a resolution can be replayed when a published price is disputed.
func (m *MongoRepository) RecordResolution(ctx context.Context, productID int64, channel pricing.Channel, res *pricing.Resolution) error {
	return m.createAuditLog(ctx, &AuditLog{
		Action:   "precio.resolucion",
		EntityID: itoa(productID),
		Data: bson.M{
			"canal":        string(channel),
			"ok":           res.OK,
			"precio_bruto": res.GrossPrice,
			"id_lista":     res.PriceListID,
			"pasos":        res.Steps,
			"error":        res.Error,
		},
	})
}

func (m *MongoRepository) GetAuditLogs(ctx context.Context, entityID string, limit int64) ([]*AuditLog, error) {
	collection := m.database.Collection(m.config.Collection)

	filter := bson.M{"entity_id": entityID}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetLimit(limit)

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var logs []*AuditLog
	if err = cursor.All(ctx, &logs); err != nil {
		return nil, err
	}

	return logs, nil
}
