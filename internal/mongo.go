package internal

import (
	"context"
	"evroaming/internal/config"
	"fmt"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"log"
	"time"
)

const (
	collectionLog    = "sys_log"
	collectionEvents = "events"
	operationTimeout = 10 * time.Second
)

type MongoDB struct {
	ctx           context.Context
	clientOptions *options.ClientOptions
	database      string
}

func NewMongoClient(conf *config.Config) (*MongoDB, error) {
	if !conf.Mongo.Enabled {
		return nil, nil
	}
	if conf.Mongo.Database == "" {
		return nil, fmt.Errorf("mongo database name is empty")
	}
	connectionUri := fmt.Sprintf("mongodb://%s:%s", conf.Mongo.Host, conf.Mongo.Port)
	clientOptions := options.Client().ApplyURI(connectionUri)
	if conf.Mongo.User != "" {
		clientOptions.SetAuth(options.Credential{
			Username:   conf.Mongo.User,
			Password:   conf.Mongo.Password,
			AuthSource: conf.Mongo.Database,
		})
	}
	client := &MongoDB{
		ctx:           context.Background(),
		clientOptions: clientOptions,
		database:      conf.Mongo.Database,
	}
	return client, nil
}

func (m *MongoDB) connect() (*mongo.Client, error) {
	connection, err := mongo.Connect(m.ctx, m.clientOptions)
	if err != nil {
		return nil, err
	}
	return connection, nil
}

func (m *MongoDB) disconnect(connection *mongo.Client) {
	err := connection.Disconnect(m.ctx)
	if err != nil {
		log.Println("mongodb disconnect error;", err)
	}
}

func (m *MongoDB) insert(table string, data Data) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)
	ctx, cancel := context.WithTimeout(m.ctx, operationTimeout)
	defer cancel()
	collection := connection.Database(m.database).Collection(table)
	if _, err = collection.InsertOne(ctx, data); err != nil {
		return fmt.Errorf("insert %s into %s: %w", data.DataType(), table, err)
	}
	return nil
}

func (m *MongoDB) WriteLogMessage(data Data) error {
	return m.insert(collectionLog, data)
}

func (m *MongoDB) WriteEvent(data Data) error {
	return m.insert(collectionEvents, data)
}

func (m *MongoDB) ReadLog(limit int64) ([]FeatureLogMessage, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	if limit <= 0 {
		limit = 1000
	}
	var logMessages []FeatureLogMessage
	collection := connection.Database(m.database).Collection(collectionLog)
	filter := bson.D{}
	opts := options.Find().SetSort(bson.D{{"timestamp", -1}}).SetLimit(limit)
	cursor, err := collection.Find(m.ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	if err = cursor.All(m.ctx, &logMessages); err != nil {
		return nil, err
	}
	return logMessages, nil
}
