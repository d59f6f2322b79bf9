package handlers

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"taskman/internal/config"
	"taskman/internal/models"
	"taskman/internal/query"
	"taskman/pkg/logger"
)

// User handlers

// userRequest menerima body create/replace user.
type userRequest struct {
	Name         string   `json:"name" validate:"required"`
	Email        string   `json:"email" validate:"required"`
	PendingTasks []string `json:"pendingTasks"`
}

// normalizeEmail: email dibandingkan dan disimpan dalam bentuk
// lowercase + trim supaya keunikannya case-insensitive.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ListUsers adalah fungsi untuk mengambil daftar user (atau jumlahnya jika
// count=true); listing user tidak punya batas default seperti task
func ListUsers(c *fiber.Ctx) error {
	lq, err := query.ParseList(c, 0)
	if err != nil {
		logger.ErrorLogger.Error("Bad query string in list users", zap.Error(err))
		return c.Status(400).JSON(fiber.Map{
			"message": err.Error(),
			"data":    nil,
		})
	}

	ctx := c.Context()
	users := config.DB.Collection("users")

	if lq.Count {
		n, err := users.CountDocuments(ctx, lq.Filter)
		if err != nil {
			logger.ErrorLogger.Error("Error counting users", zap.Error(err))
			return c.Status(500).JSON(fiber.Map{
				"message": "Server Error",
				"data":    nil,
			})
		}
		return c.Status(200).JSON(fiber.Map{
			"message": "OK",
			"data":    fiber.Map{"count": n},
		})
	}

	cur, err := users.Find(ctx, lq.Filter, lq.FindOptions())
	if err != nil {
		logger.ErrorLogger.Error("Error fetching users", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": "Server Error",
			"data":    nil,
		})
	}

	docs := []bson.M{}
	if err := cur.All(ctx, &docs); err != nil {
		logger.ErrorLogger.Error("Error decoding users", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": "Server Error",
			"data":    nil,
		})
	}

	return c.Status(200).JSON(fiber.Map{
		"message": "OK",
		"data":    docs,
	})
}

// CreateUser adalah fungsi untuk membuat user baru; jika pendingTasks diisi,
// synchronizer langsung menempelkan task-task tersebut ke user ini
func CreateUser(c *fiber.Ctx) error {
	var req userRequest
	if err := c.BodyParser(&req); err != nil {
		logger.ErrorLogger.Error("Bad request in create user", zap.Error(err))
		return c.Status(400).JSON(fiber.Map{
			"message": "Name and email are required.",
			"data":    nil,
		})
	}
	if err := config.Validate.Struct(req); err != nil {
		return c.Status(400).JSON(fiber.Map{
			"message": "Name and email are required.",
			"data":    nil,
		})
	}

	ctx := c.Context()

	pending := req.PendingTasks
	if pending == nil {
		pending = []string{}
	}

	user := models.User{
		Name:         req.Name,
		Email:        normalizeEmail(req.Email),
		PendingTasks: pending,
		DateCreated:  time.Now().UTC(),
	}

	res, err := config.DB.Collection("users").InsertOne(ctx, user)
	if mongo.IsDuplicateKeyError(err) {
		// pelanggaran unique index di users.email
		return c.Status(400).JSON(fiber.Map{
			"message": "A user with that email already exists.",
			"data":    nil,
		})
	}
	if err != nil {
		logger.ErrorLogger.Error("Error creating user", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": "Server Error",
			"data":    nil,
		})
	}
	user.ID = res.InsertedID.(primitive.ObjectID)

	// record user sudah tersimpan di titik ini; 400 dari synchronizer
	// (task sudah selesai di pendingTasks) tetap diteruskan ke client
	if len(pending) > 0 {
		if err := syncUserPendingTasks(ctx, user.ID.Hex(), pending, user.Name); err != nil {
			status, msg := syncStatus(err)
			if status == 500 {
				logger.ErrorLogger.Error("Error syncing pending tasks", zap.Error(err))
			}
			return c.Status(status).JSON(fiber.Map{
				"message": msg,
				"data":    nil,
			})
		}
	}

	logger.AuditLogger.Info("User created", zap.String("user_id", user.ID.Hex()))
	return c.Status(201).JSON(fiber.Map{
		"message": "Created",
		"data":    user,
	})
}

// GetUser adalah fungsi untuk mengambil satu user berdasarkan ID,
// hanya parameter select yang didukung
func GetUser(c *fiber.Ctx) error {
	id, err := primitive.ObjectIDFromHex(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{
			"message": "Invalid identifier.",
			"data":    nil,
		})
	}

	projection, err := query.ParseSelect(c)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{
			"message": err.Error(),
			"data":    nil,
		})
	}

	ctx := c.Context()

	// Coba ambil dari cache Redis; cache dilewati kalau ada proyeksi select
	if projection == nil {
		if doc, ok := cacheGet(ctx, userCacheKey(id.Hex())); ok {
			return c.Status(200).JSON(fiber.Map{
				"message": "OK",
				"data":    doc,
			})
		}
	}

	opts := options.FindOne()
	if projection != nil {
		opts.SetProjection(projection)
	}

	var doc bson.M
	err = config.DB.Collection("users").FindOne(ctx, bson.M{"_id": id}, opts).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return c.Status(404).JSON(fiber.Map{
			"message": "User not found",
			"data":    nil,
		})
	}
	if err != nil {
		logger.ErrorLogger.Error("Error fetching user", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": "Server Error",
			"data":    nil,
		})
	}

	if projection == nil {
		cacheSet(ctx, userCacheKey(id.Hex()), doc)
	}

	return c.Status(200).JSON(fiber.Map{
		"message": "OK",
		"data":    doc,
	})
}

// ReplaceUser adalah fungsi untuk mengganti seluruh isi user. Daftar
// pendingTasks divalidasi dulu sebelum record disimpan supaya response 400
// tidak meninggalkan user yang setengah tersinkronisasi.
func ReplaceUser(c *fiber.Ctx) error {
	id, err := primitive.ObjectIDFromHex(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{
			"message": "Invalid identifier.",
			"data":    nil,
		})
	}

	var req userRequest
	if err := c.BodyParser(&req); err != nil {
		logger.ErrorLogger.Error("Bad request in replace user", zap.Error(err))
		return c.Status(400).JSON(fiber.Map{
			"message": "Name and email are required.",
			"data":    nil,
		})
	}
	if err := config.Validate.Struct(req); err != nil {
		return c.Status(400).JSON(fiber.Map{
			"message": "Name and email are required.",
			"data":    nil,
		})
	}

	ctx := c.Context()
	users := config.DB.Collection("users")
	email := normalizeEmail(req.Email)

	var existing models.User
	err = users.FindOne(ctx, bson.M{"_id": id}).Decode(&existing)
	if err == mongo.ErrNoDocuments {
		return c.Status(404).JSON(fiber.Map{
			"message": "User not found",
			"data":    nil,
		})
	}
	if err != nil {
		logger.ErrorLogger.Error("Error fetching user", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": "Server Error",
			"data":    nil,
		})
	}

	// email harus tetap unik di antara user LAIN
	err = users.FindOne(ctx, bson.M{"email": email, "_id": bson.M{"$ne": id}}).Err()
	if err == nil {
		return c.Status(400).JSON(fiber.Map{
			"message": "A user with that email already exists.",
			"data":    nil,
		})
	}
	if err != mongo.ErrNoDocuments {
		logger.ErrorLogger.Error("Error checking email uniqueness", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": "Server Error",
			"data":    nil,
		})
	}

	pending := req.PendingTasks
	if pending == nil {
		pending = []string{}
	}

	// validasi pendingTasks SEBELUM persist: semua id harus valid dan
	// tidak boleh ada task yang sudah selesai
	if len(pending) > 0 {
		ids, err := toObjectIDs(pending)
		if err != nil {
			status, msg := syncStatus(err)
			return c.Status(status).JSON(fiber.Map{
				"message": msg,
				"data":    nil,
			})
		}
		n, err := config.DB.Collection("tasks").CountDocuments(ctx,
			bson.M{"_id": bson.M{"$in": ids}, "completed": true})
		if err != nil {
			logger.ErrorLogger.Error("Error validating pending tasks", zap.Error(err))
			return c.Status(500).JSON(fiber.Map{
				"message": "Server Error",
				"data":    nil,
			})
		}
		if n > 0 {
			return c.Status(400).JSON(fiber.Map{
				"message": errCompletedPending.message,
				"data":    nil,
			})
		}
	}

	updated := models.User{
		ID:           existing.ID,
		Name:         req.Name,
		Email:        email,
		PendingTasks: pending,
		DateCreated:  existing.DateCreated,
	}

	_, err = users.ReplaceOne(ctx, bson.M{"_id": id}, updated)
	if mongo.IsDuplicateKeyError(err) {
		return c.Status(400).JSON(fiber.Map{
			"message": "A user with that email already exists.",
			"data":    nil,
		})
	}
	if err != nil {
		logger.ErrorLogger.Error("Error updating user", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": "Server Error",
			"data":    nil,
		})
	}
	cacheDel(ctx, userCacheKey(id.Hex()))

	if err := syncUserPendingTasks(ctx, id.Hex(), pending, req.Name); err != nil {
		status, msg := syncStatus(err)
		if status == 500 {
			logger.ErrorLogger.Error("Error syncing pending tasks", zap.Error(err))
		}
		return c.Status(status).JSON(fiber.Map{
			"message": msg,
			"data":    nil,
		})
	}

	logger.AuditLogger.Info("User updated", zap.String("user_id", id.Hex()))
	return c.Status(200).JSON(fiber.Map{
		"message": "OK",
		"data":    updated,
	})
}

// DeleteUser adalah fungsi untuk menghapus user; semua task yang masih
// menunjuk user ini di-unassign terlebih dahulu
func DeleteUser(c *fiber.Ctx) error {
	id, err := primitive.ObjectIDFromHex(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{
			"message": "Invalid identifier.",
			"data":    nil,
		})
	}

	ctx := c.Context()
	users := config.DB.Collection("users")
	tasks := config.DB.Collection("tasks")

	err = users.FindOne(ctx, bson.M{"_id": id}).Err()
	if err == mongo.ErrNoDocuments {
		return c.Status(404).JSON(fiber.Map{
			"message": "User not found",
			"data":    nil,
		})
	}
	if err != nil {
		logger.ErrorLogger.Error("Error fetching user", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": "Server Error",
			"data":    nil,
		})
	}

	// kumpulkan task yang menunjuk user ini untuk invalidasi cache-nya
	cur, err := tasks.Find(ctx, bson.M{"assignedUser": id.Hex()})
	if err != nil {
		logger.ErrorLogger.Error("Error fetching assigned tasks", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": "Server Error",
			"data":    nil,
		})
	}
	var assigned []models.Task
	if err := cur.All(ctx, &assigned); err != nil {
		logger.ErrorLogger.Error("Error decoding assigned tasks", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": "Server Error",
			"data":    nil,
		})
	}

	_, err = tasks.UpdateMany(ctx,
		bson.M{"assignedUser": id.Hex()},
		bson.M{"$set": bson.M{"assignedUser": "", "assignedUserName": models.Unassigned}},
	)
	if err != nil {
		logger.ErrorLogger.Error("Error unassigning tasks", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": "Server Error",
			"data":    nil,
		})
	}
	for _, t := range assigned {
		cacheDel(ctx, taskCacheKey(t.ID.Hex()))
	}

	if _, err := users.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		logger.ErrorLogger.Error("Error deleting user", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": "Server Error",
			"data":    nil,
		})
	}
	cacheDel(ctx, userCacheKey(id.Hex()))

	logger.AuditLogger.Info("User deleted", zap.String("user_id", id.Hex()))
	return c.Status(200).JSON(fiber.Map{
		"message": "Deleted",
		"data":    nil,
	})
}
