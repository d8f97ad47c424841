package repository

import (
	"context"
	"strings"

	"github.com/spf13/cast"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"furniture-inventory/internal/models"
)

// normalizeProductDocument decodes a raw product, coercing shapes older
// documents were written with: numeric fields stored as doubles, category
// stored as a list, and no minStock or status at all.
func normalizeProductDocument(raw bson.M) (models.Product, error) {
	switch cat := raw["category"].(type) {
	case bson.A:
		raw["category"] = firstString(cat)
	case []interface{}:
		raw["category"] = firstString(cat)
	}

	raw["stock"] = toInt(raw["stock"], 0)
	raw["minStock"] = toInt(raw["minStock"], models.DefaultMinStock)

	if status, _ := raw["status"].(string); status == "" {
		raw["status"] = models.ProductStatusActive
	}

	data, err := bson.Marshal(raw)
	if err != nil {
		return models.Product{}, err
	}

	var p models.Product
	if err := bson.Unmarshal(data, &p); err != nil {
		return models.Product{}, err
	}

	p.LowStock = p.IsLowStock()

	return p, nil
}

func decodeProduct(result *mongo.SingleResult) (*models.Product, error) {
	var raw bson.M
	if err := result.Decode(&raw); err != nil {
		return nil, err
	}
	p, err := normalizeProductDocument(raw)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func decodeProducts(ctx context.Context, cursor *mongo.Cursor) ([]models.Product, error) {
	products := make([]models.Product, 0)

	for cursor.Next(ctx) {
		var raw bson.M
		if err := cursor.Decode(&raw); err != nil {
			return nil, err
		}

		product, err := normalizeProductDocument(raw)
		if err != nil {
			return nil, err
		}

		products = append(products, product)
	}

	if err := cursor.Err(); err != nil {
		return nil, err
	}

	return products, nil
}

func toInt(val interface{}, fallback int) int {
	switch typed := val.(type) {
	case int32:
		return int(typed)
	case int64:
		return int(typed)
	case float64:
		return int(typed)
	case int:
		return typed
	case string:
		if n, err := cast.ToFloat64E(strings.TrimSpace(typed)); err == nil {
			return int(n)
		}
		return fallback
	default:
		return fallback
	}
}

func firstString(values []interface{}) string {
	for _, v := range values {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return ""
}
