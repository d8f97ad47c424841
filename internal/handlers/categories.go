package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"furniture-inventory/internal/database"
	"furniture-inventory/internal/models"
)

type CategoryCreateRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	IsActive    *bool  `json:"isActive"`
}

type CategoryUpdateRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	IsActive    *bool   `json:"isActive"`
}

var defaultCategories = []models.Category{
	{Name: "Sofa", Description: "All types of sofas and sofa sets"},
	{Name: "Bed", Description: "Beds, bed frames, and mattresses"},
	{Name: "Chair", Description: "Chairs, stools, and seating"},
	{Name: "Table", Description: "Tables, desks, and study tables"},
	{Name: "Wardrobe", Description: "Wardrobes, closets, and almirahs"},
}

/*
GET /api/categories
- sorted by name
- ?isActive=true/false
*/
func GetCategories(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/categories"
		defer handlePanic(c, route)

		filter := bson.M{}
		if v := strings.TrimSpace(c.Query("isActive")); v != "" {
			filter["isActive"] = v == "true"
		}

		categories, ok := findCategories(c, db, route, filter)
		if !ok {
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success":    true,
			"message":    "Categories fetched successfully",
			"count":      len(categories),
			"categories": categories,
		})
	}
}

func GetCategoryStats(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/categories/stats"
		defer handlePanic(c, route)

		categories, ok := findCategories(c, db, route, bson.M{})
		if !ok {
			return
		}

		names := make([]string, 0, len(categories))
		active := 0
		for _, category := range categories {
			names = append(names, category.Name)
			if category.IsActive {
				active++
			}
		}

		c.JSON(http.StatusOK, gin.H{
			"success":          true,
			"message":          "Category statistics",
			"totalCategories":  len(categories),
			"activeCategories": active,
			"categoriesList":   names,
		})
	}
}

func findCategories(c *gin.Context, db *mongo.Database, route string, filter bson.M) ([]models.Category, bool) {
	if err := ensureDBConnection(c.Request.Context(), db); err != nil {
		respondWithError(c, http.StatusServiceUnavailable, route, "database unavailable")
		return nil, false
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	cursor, err := db.Collection(database.CategoriesCollection).Find(ctx, filter,
		options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		respondWithError(c, http.StatusInternalServerError, route, "db error")
		return nil, false
	}
	defer cursor.Close(ctx)

	categories := make([]models.Category, 0)
	if err := cursor.All(ctx, &categories); err != nil {
		respondWithError(c, http.StatusInternalServerError, route, "decode error")
		return nil, false
	}
	return categories, true
}

func GetCategoryByID(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/categories/:id"
		defer handlePanic(c, route)

		id, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid id")
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		var category models.Category
		err = db.Collection(database.CategoriesCollection).FindOne(ctx, bson.M{"_id": id}).Decode(&category)
		if errors.Is(err, mongo.ErrNoDocuments) {
			respondWithError(c, http.StatusNotFound, route, "category not found")
			return
		}
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		c.JSON(http.StatusOK, gin.H{"success": true, "category": category})
	}
}

/*
POST /api/categories
- names are unique
*/
func CreateCategory(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/categories"
		defer handlePanic(c, route)

		var req CategoryCreateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		name := strings.TrimSpace(req.Name)
		if name == "" {
			respondWithError(c, http.StatusBadRequest, route, "Category name is required")
			return
		}

		isActive := true
		if req.IsActive != nil {
			isActive = *req.IsActive
		}

		now := time.Now().UTC()
		category := models.Category{
			Name:        name,
			Description: strings.TrimSpace(req.Description),
			IsActive:    isActive,
			CreatedAt:   now,
			UpdatedAt:   now,
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		result, err := db.Collection(database.CategoriesCollection).InsertOne(ctx, category)
		if mongo.IsDuplicateKeyError(err) {
			respondWithError(c, http.StatusConflict, route, "Category already exists")
			return
		}
		if err != nil {
			zap.L().Error("category insert failed", zap.String("route", route), zap.Error(err))
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		category.ID = result.InsertedID.(primitive.ObjectID)

		c.JSON(http.StatusCreated, gin.H{
			"success":  true,
			"message":  "Category created successfully",
			"category": category,
		})
	}
}

func UpdateCategory(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /api/categories/:id"
		defer handlePanic(c, route)

		id, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid id")
			return
		}

		var req CategoryUpdateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		update := bson.M{}

		if req.Name != nil {
			name := strings.TrimSpace(*req.Name)
			if name == "" {
				respondWithError(c, http.StatusBadRequest, route, "Category name is required")
				return
			}
			update["name"] = name
		}
		if req.Description != nil {
			update["description"] = strings.TrimSpace(*req.Description)
		}
		if req.IsActive != nil {
			update["isActive"] = *req.IsActive
		}

		if len(update) == 0 {
			respondWithError(c, http.StatusBadRequest, route, "no fields to update")
			return
		}
		update["updatedAt"] = time.Now().UTC()

		ctx, cancel := requestContext(c)
		defer cancel()

		var updated models.Category
		err = db.Collection(database.CategoriesCollection).
			FindOneAndUpdate(
				ctx,
				bson.M{"_id": id},
				bson.M{"$set": update},
				options.FindOneAndUpdate().SetReturnDocument(options.After),
			).
			Decode(&updated)

		switch {
		case errors.Is(err, mongo.ErrNoDocuments):
			respondWithError(c, http.StatusNotFound, route, "category not found")
		case mongo.IsDuplicateKeyError(err):
			respondWithError(c, http.StatusConflict, route, "Category already exists")
		case err != nil:
			respondWithError(c, http.StatusInternalServerError, route, "db error")
		default:
			c.JSON(http.StatusOK, gin.H{
				"success":  true,
				"message":  "Category updated successfully",
				"category": updated,
			})
		}
	}
}

/*
DELETE /api/categories/:id
- hard delete; products keep their category string
*/
func DeleteCategory(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /api/categories/:id"
		defer handlePanic(c, route)

		id, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid id")
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		var deleted models.Category
		err = db.Collection(database.CategoriesCollection).FindOneAndDelete(ctx, bson.M{"_id": id}).Decode(&deleted)
		if errors.Is(err, mongo.ErrNoDocuments) {
			respondWithError(c, http.StatusNotFound, route, "category not found")
			return
		}
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success":  true,
			"message":  "Category deleted successfully",
			"category": deleted,
		})
	}
}

// SeedDefaultCategories inserts the default categories that do not exist yet.
func SeedDefaultCategories(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/categories/seed/default"
		defer handlePanic(c, route)

		ctx, cancel := requestContext(c)
		defer cancel()

		collection := db.Collection(database.CategoriesCollection)
		existing := make([]string, 0)
		inserted := make([]models.Category, 0)

		for _, def := range defaultCategories {
			now := time.Now().UTC()
			category := def
			category.IsActive = true
			category.CreatedAt = now
			category.UpdatedAt = now

			res, err := collection.UpdateOne(ctx,
				bson.M{"name": category.Name},
				bson.M{"$setOnInsert": category},
				options.Update().SetUpsert(true),
			)
			if err != nil {
				zap.L().Error("category seed failed", zap.String("route", route), zap.String("name", category.Name), zap.Error(err))
				respondWithError(c, http.StatusInternalServerError, route, "db error")
				return
			}
			if res.UpsertedID == nil {
				existing = append(existing, category.Name)
				continue
			}
			category.ID, _ = res.UpsertedID.(primitive.ObjectID)
			inserted = append(inserted, category)
		}

		c.JSON(http.StatusOK, gin.H{
			"success":       true,
			"message":       "Default categories seeded",
			"inserted":      len(inserted),
			"skipped":       len(existing),
			"existing":      existing,
			"newCategories": inserted,
		})
	}
}
