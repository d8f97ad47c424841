package database

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const (
	ProductsCollection       = "products"
	CategoriesCollection     = "categories"
	UsersCollection          = "users"
	RefreshTokensCollection  = "refresh_tokens"
	StockMovementsCollection = "stock_movements"
)

func ensureIndexes(db *mongo.Database, collection string, models ...mongo.IndexModel) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	names, err := db.Collection(collection).Indexes().CreateMany(ctx, models)
	if err != nil {
		zap.L().Error("index creation failed", zap.String("collection", collection), zap.Error(err))
		return err
	}
	zap.L().Info("indexes ready", zap.String("collection", collection), zap.Strings("indexes", names))
	return nil
}

// EnsureProductIndexes backs the uniqueness of product codes and barcodes.
func EnsureProductIndexes(db *mongo.Database) error {
	return ensureIndexes(db, ProductsCollection, productIndexModels()...)
}

// productIndexModels leaves products without a code or barcode out of the
// unique indexes, so uncoded legacy documents can coexist until backfilled.
func productIndexModels() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "productCode", Value: 1}},
			Options: options.Index().
				SetName("productCode_unique").
				SetUnique(true).
				SetPartialFilterExpression(bson.M{
					"productCode": bson.M{"$gt": ""},
				}),
		},
		{
			Keys: bson.D{{Key: "barcode", Value: 1}},
			Options: options.Index().
				SetName("barcode_unique").
				SetUnique(true).
				SetPartialFilterExpression(bson.M{
					"barcode": bson.M{"$gt": ""},
				}),
		},
		{
			Keys:    bson.D{{Key: "createdAt", Value: -1}},
			Options: options.Index().SetName("createdAt_desc"),
		},
		{
			Keys:    bson.D{{Key: "category", Value: 1}},
			Options: options.Index().SetName("category_index"),
		},
	}
}

func EnsureCategoryIndexes(db *mongo.Database) error {
	return ensureIndexes(db, CategoriesCollection,
		mongo.IndexModel{
			Keys:    bson.D{{Key: "name", Value: 1}},
			Options: options.Index().SetName("name_unique").SetUnique(true),
		},
	)
}

func EnsureUserIndexes(db *mongo.Database) error {
	if err := ensureIndexes(db, UsersCollection,
		mongo.IndexModel{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetName("email_unique").SetUnique(true),
		},
	); err != nil {
		return err
	}
	return ensureIndexes(db, RefreshTokensCollection,
		mongo.IndexModel{
			Keys:    bson.D{{Key: "tokenHash", Value: 1}},
			Options: options.Index().SetName("tokenHash_unique").SetUnique(true),
		},
		mongo.IndexModel{
			Keys:    bson.D{{Key: "expiresAt", Value: 1}},
			Options: options.Index().SetName("expiresAt_ttl").SetExpireAfterSeconds(0),
		},
	)
}

func EnsureStockMovementIndexes(db *mongo.Database) error {
	return ensureIndexes(db, StockMovementsCollection,
		mongo.IndexModel{
			Keys:    bson.D{{Key: "barcode", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index().SetName("barcode_createdAt"),
		},
		mongo.IndexModel{
			Keys:    bson.D{{Key: "createdAt", Value: -1}},
			Options: options.Index().SetName("createdAt_desc"),
		},
	)
}
