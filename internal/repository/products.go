package repository

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"furniture-inventory/internal/database"
	"furniture-inventory/internal/inventory"
	"furniture-inventory/internal/models"
)

const sequentialCodePattern = `^FUR-\d+$`

// ProductRepository is the Mongo implementation of the inventory stores.
type ProductRepository struct {
	products  *mongo.Collection
	movements *mongo.Collection
	now       func() time.Time
}

var (
	_ inventory.ProductStore  = (*ProductRepository)(nil)
	_ inventory.MovementStore = (*ProductRepository)(nil)
)

func NewProductRepository(db *mongo.Database) *ProductRepository {
	return &ProductRepository{
		products:  db.Collection(database.ProductsCollection),
		movements: db.Collection(database.StockMovementsCollection),
		now:       time.Now,
	}
}

func (r *ProductRepository) LatestSequentialCode(ctx context.Context) (string, bool, error) {
	var doc struct {
		ProductCode string `bson:"productCode"`
	}
	err := r.products.FindOne(ctx,
		bson.M{"productCode": bson.M{"$regex": sequentialCodePattern}},
		options.FindOne().
			SetSort(bson.D{{Key: "createdAt", Value: -1}}).
			SetProjection(bson.M{"productCode": 1}),
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrap(err, "find latest product code")
	}
	return doc.ProductCode, true, nil
}

func (r *ProductRepository) CodeExists(ctx context.Context, code string) (bool, error) {
	count, err := r.products.CountDocuments(ctx, bson.M{"productCode": code}, options.Count().SetLimit(1))
	if err != nil {
		return false, errors.Wrap(err, "count product code")
	}
	return count > 0, nil
}

func (r *ProductRepository) Insert(ctx context.Context, product *models.Product) error {
	now := r.now().UTC()
	product.ID = primitive.NilObjectID
	product.CreatedAt = now
	product.UpdatedAt = now

	res, err := r.products.InsertOne(ctx, product)
	if err != nil {
		return mapWriteError(err, "insert product")
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		product.ID = oid
	}
	product.LowStock = product.IsLowStock()
	return nil
}

func (r *ProductRepository) FindByID(ctx context.Context, id string) (*models.Product, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, inventory.InvalidID(id)
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *ProductRepository) FindByCode(ctx context.Context, code string) (*models.Product, error) {
	return r.findOne(ctx, bson.M{"productCode": code})
}

func (r *ProductRepository) FindByBarcode(ctx context.Context, barcode string) (*models.Product, error) {
	return r.findOne(ctx, bson.M{"barcode": barcode})
}

func (r *ProductRepository) findOne(ctx context.Context, filter bson.M) (*models.Product, error) {
	p, err := decodeProduct(r.products.FindOne(ctx, filter))
	return p, mapReadError(err, "find product")
}

func (r *ProductRepository) List(ctx context.Context, filter models.ProductFilter) ([]models.Product, int64, error) {
	query := buildListFilter(filter)

	total, err := r.products.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, errors.Wrap(err, "count products")
	}

	opts := options.Find()
	if filter.LowStock {
		opts.SetSort(bson.D{{Key: "stock", Value: 1}, {Key: "_id", Value: 1}})
	} else {
		opts.SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	}
	if filter.Limit > 0 {
		page := max(filter.Page, 1)
		opts.SetSkip((page - 1) * filter.Limit).SetLimit(filter.Limit)
	}

	cursor, err := r.products.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, errors.Wrap(err, "find products")
	}
	defer cursor.Close(ctx)

	products, err := decodeProducts(ctx, cursor)
	if err != nil {
		return nil, 0, errors.Wrap(err, "decode products")
	}
	return products, total, nil
}

func buildListFilter(filter models.ProductFilter) bson.M {
	query := bson.M{}

	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := primitive.Regex{Pattern: regexp.QuoteMeta(search), Options: "i"}
		or := bson.A{}
		for _, field := range []string{"name", "productCode", "category", "material", "color", "description"} {
			or = append(or, bson.M{field: pattern})
		}
		query["$or"] = or
	}
	if category := strings.TrimSpace(filter.Category); category != "" {
		query["category"] = primitive.Regex{Pattern: "^" + regexp.QuoteMeta(category) + "$", Options: "i"}
	}
	if filter.Status != "" {
		query["status"] = filter.Status
	}
	if filter.LowStock {
		query["$expr"] = bson.M{"$lte": bson.A{
			"$stock",
			bson.M{"$ifNull": bson.A{"$minStock", models.DefaultMinStock}},
		}}
	}
	return query
}

func (r *ProductRepository) Update(ctx context.Context, id string, changes models.ProductChanges) (*models.Product, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, inventory.InvalidID(id)
	}
	set := changeSet(changes)
	if len(set) == 0 {
		return r.FindByID(ctx, id)
	}
	set["updatedAt"] = r.now().UTC()
	return r.findOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": set}, "update product")
}

func changeSet(c models.ProductChanges) bson.M {
	set := bson.M{}
	putString := func(key string, v *string) {
		if v != nil {
			set[key] = strings.TrimSpace(*v)
		}
	}
	putString("name", c.Name)
	putString("category", c.Category)
	putString("material", c.Material)
	putString("color", c.Color)
	putString("location", c.Location)
	putString("description", c.Description)
	putString("status", c.Status)
	if c.Stock != nil {
		set["stock"] = *c.Stock
	}
	if c.MinStock != nil {
		set["minStock"] = *c.MinStock
	}
	if c.Price != nil {
		set["price"] = *c.Price
	}
	if c.CostPrice != nil {
		set["costPrice"] = *c.CostPrice
	}
	return set
}

func (r *ProductRepository) Delete(ctx context.Context, id string) (*models.Product, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, inventory.InvalidID(id)
	}
	p, err := decodeProduct(r.products.FindOneAndDelete(ctx, bson.M{"_id": oid}))
	return p, mapReadError(err, "delete product")
}

func (r *ProductRepository) SetBarcode(ctx context.Context, id, barcode, image string) (*models.Product, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, inventory.InvalidID(id)
	}
	return r.findOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": bson.M{
		"barcode":      barcode,
		"barcodeImage": image,
		"updatedAt":    r.now().UTC(),
	}}, "set product barcode")
}

// AdjustStock applies delta in a single conditional update. The guard on
// the current stock is what keeps concurrent sales from taking it below
// zero. The update rewrites stock as a number, so documents that stored it
// as a string are repaired by their first movement.
func (r *ProductRepository) AdjustStock(ctx context.Context, barcode string, delta int) (*models.Product, error) {
	filter, update := stockAdjustment(barcode, delta, r.now().UTC())
	return r.findOneAndUpdate(ctx, filter, update, "adjust stock")
}

// numericStock reads stock as an int whether it was stored as a number or a
// string. Values that do not parse count as zero.
var numericStock = bson.M{"$toInt": bson.M{"$convert": bson.M{
	"input":   "$stock",
	"to":      "double",
	"onError": 0,
	"onNull":  0,
}}}

func stockAdjustment(barcode string, delta int, now time.Time) (bson.M, mongo.Pipeline) {
	filter := bson.M{"barcode": barcode}
	if delta < 0 {
		filter["$expr"] = bson.M{"$gte": bson.A{numericStock, -delta}}
	}
	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: "stock", Value: bson.M{"$add": bson.A{numericStock, delta}}},
			{Key: "updatedAt", Value: now},
		}}},
	}
	return filter, update
}

func (r *ProductRepository) findOneAndUpdate(ctx context.Context, filter bson.M, update interface{}, op string) (*models.Product, error) {
	res := r.products.FindOneAndUpdate(ctx, filter, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After))
	p, err := decodeProduct(res)
	if err != nil && mongo.IsDuplicateKeyError(err) {
		return nil, mapWriteError(err, op)
	}
	return p, mapReadError(err, op)
}

func (r *ProductRepository) InsertMovement(ctx context.Context, movement *models.StockMovement) error {
	if movement.CreatedAt.IsZero() {
		movement.CreatedAt = r.now().UTC()
	}
	res, err := r.movements.InsertOne(ctx, movement)
	if err != nil {
		return errors.Wrap(err, "insert stock movement")
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		movement.ID = oid
	}
	return nil
}

func (r *ProductRepository) ListMovements(ctx context.Context, barcode string, limit int64) ([]models.StockMovement, error) {
	filter := bson.M{}
	if barcode != "" {
		filter["barcode"] = barcode
	}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}

	cursor, err := r.movements.Find(ctx, filter, opts)
	if err != nil {
		return nil, errors.Wrap(err, "find stock movements")
	}
	defer cursor.Close(ctx)

	movements := make([]models.StockMovement, 0)
	if err := cursor.All(ctx, &movements); err != nil {
		return nil, errors.Wrap(err, "decode stock movements")
	}
	return movements, nil
}

func mapReadError(err error, op string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return inventory.ErrNotFound
	default:
		return errors.Wrap(err, op)
	}
}

func mapWriteError(err error, op string) error {
	if mongo.IsDuplicateKeyError(err) {
		return inventory.DuplicateError{Field: duplicateField(err)}
	}
	return errors.Wrap(err, op)
}

// duplicateField names the product field behind a duplicate key error by
// the index it tripped.
func duplicateField(err error) string {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "productCode"):
		return "productCode"
	case strings.Contains(msg, "barcode"):
		return "barcode"
	default:
		return ""
	}
}
