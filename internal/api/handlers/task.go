package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"taskman/internal/config"
	"taskman/internal/models"
	"taskman/internal/normalize"
	"taskman/internal/query"
	"taskman/pkg/logger"
)

// Task handlers

// Listing task dibatasi 100 record kalau client tidak minta limit sendiri.
const taskListLimit = 100

// taskRequest menerima body create/replace task. Deadline dan Completed
// sengaja interface{} karena wire menerima angka, string angka, string
// tanggal, maupun boolean tekstual.
type taskRequest struct {
	Name             string      `json:"name" validate:"required"`
	Description      string      `json:"description"`
	Deadline         interface{} `json:"deadline"`
	Completed        interface{} `json:"completed"`
	AssignedUser     string      `json:"assignedUser"`
	AssignedUserName string      `json:"assignedUserName"`
}

// ListTasks adalah fungsi untuk mengambil daftar task (atau jumlahnya
// jika count=true) sesuai parameter where/sort/select/skip/limit
func ListTasks(c *fiber.Ctx) error {
	lq, err := query.ParseList(c, taskListLimit)
	if err != nil {
		// kembalikan error 400 jika JSON di query string rusak
		logger.ErrorLogger.Error("Bad query string in list tasks", zap.Error(err))
		return c.Status(400).JSON(fiber.Map{
			"message": err.Error(),
			"data":    nil,
		})
	}

	ctx := c.Context()
	tasks := config.DB.Collection("tasks")

	// count mode: hanya jumlah record yang cocok, tanpa sort/skip/limit
	if lq.Count {
		n, err := tasks.CountDocuments(ctx, lq.Filter)
		if err != nil {
			logger.ErrorLogger.Error("Error counting tasks", zap.Error(err))
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

	cur, err := tasks.Find(ctx, lq.Filter, lq.FindOptions())
	if err != nil {
		logger.ErrorLogger.Error("Error fetching tasks", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": "Server Error",
			"data":    nil,
		})
	}

	docs := []bson.M{}
	if err := cur.All(ctx, &docs); err != nil {
		logger.ErrorLogger.Error("Error decoding tasks", zap.Error(err))
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

// CreateTask adalah fungsi untuk membuat task baru
func CreateTask(c *fiber.Ctx) error {
	var req taskRequest
	if err := c.BodyParser(&req); err != nil {
		logger.ErrorLogger.Error("Bad request in create task", zap.Error(err))
		return c.Status(400).JSON(fiber.Map{
			"message": "Task name and deadline are required.",
			"data":    nil,
		})
	}
	// deadline dicek manual: angka 0 tetap dianggap terisi
	if err := config.Validate.Struct(req); err != nil || req.Deadline == nil {
		return c.Status(400).JSON(fiber.Map{
			"message": "Task name and deadline are required.",
			"data":    nil,
		})
	}

	deadline, okDeadline := normalize.Deadline(req.Deadline)
	completed := normalize.Bool(req.Completed, false)
	if !okDeadline {
		return c.Status(400).JSON(fiber.Map{
			"message": "Invalid deadline.",
			"data":    nil,
		})
	}

	ctx := c.Context()

	// assignedUser harus menunjuk user yang benar-benar ada; nama display
	// diambil dari record user hidup, bukan dari input
	assignedName := models.Unassigned
	if req.AssignedUser != "" {
		name, err := resolveAssignedName(ctx, req.AssignedUser)
		if err != nil {
			status, msg := syncStatus(err)
			if status == 500 {
				logger.ErrorLogger.Error("Error fetching assigned user", zap.Error(err))
			}
			return c.Status(status).JSON(fiber.Map{
				"message": msg,
				"data":    nil,
			})
		}
		assignedName = name
	}

	task := models.Task{
		Name:             req.Name,
		Description:      req.Description,
		Deadline:         deadline,
		Completed:        completed,
		AssignedUser:     req.AssignedUser,
		AssignedUserName: assignedName,
		DateCreated:      time.Now().UTC(),
	}

	res, err := config.DB.Collection("tasks").InsertOne(ctx, task)
	if err != nil {
		logger.ErrorLogger.Error("Error creating task", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": "Server Error",
			"data":    nil,
		})
	}
	task.ID = res.InsertedID.(primitive.ObjectID)

	if err := syncTaskUserLinks(ctx, task); err != nil {
		status, msg := syncStatus(err)
		logger.ErrorLogger.Error("Error syncing task links", zap.Error(err))
		return c.Status(status).JSON(fiber.Map{
			"message": msg,
			"data":    nil,
		})
	}

	logger.AuditLogger.Info("Task created", zap.String("task_id", task.ID.Hex()))
	return c.Status(201).JSON(fiber.Map{
		"message": "Created",
		"data":    task,
	})
}

// GetTask adalah fungsi untuk mengambil satu task berdasarkan ID,
// hanya parameter select yang didukung
func GetTask(c *fiber.Ctx) error {
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
		if doc, ok := cacheGet(ctx, taskCacheKey(id.Hex())); ok {
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
	err = config.DB.Collection("tasks").FindOne(ctx, bson.M{"_id": id}, opts).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return c.Status(404).JSON(fiber.Map{
			"message": "Task not found",
			"data":    nil,
		})
	}
	if err != nil {
		logger.ErrorLogger.Error("Error fetching task", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": "Server Error",
			"data":    nil,
		})
	}

	if projection == nil {
		cacheSet(ctx, taskCacheKey(id.Hex()), doc)
	}

	return c.Status(200).JSON(fiber.Map{
		"message": "OK",
		"data":    doc,
	})
}

// ReplaceTask adalah fungsi untuk mengganti seluruh isi task (PUT, bukan
// partial patch); perpindahan assignee melepas task dari user lama dulu
func ReplaceTask(c *fiber.Ctx) error {
	id, err := primitive.ObjectIDFromHex(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{
			"message": "Invalid identifier.",
			"data":    nil,
		})
	}

	var req taskRequest
	if err := c.BodyParser(&req); err != nil {
		logger.ErrorLogger.Error("Bad request in replace task", zap.Error(err))
		return c.Status(400).JSON(fiber.Map{
			"message": "Task name and deadline are required.",
			"data":    nil,
		})
	}
	if err := config.Validate.Struct(req); err != nil || req.Deadline == nil {
		return c.Status(400).JSON(fiber.Map{
			"message": "Task name and deadline are required.",
			"data":    nil,
		})
	}

	ctx := c.Context()
	tasks := config.DB.Collection("tasks")

	var existing models.Task
	err = tasks.FindOne(ctx, bson.M{"_id": id}).Decode(&existing)
	if err == mongo.ErrNoDocuments {
		return c.Status(404).JSON(fiber.Map{
			"message": "Task not found",
			"data":    nil,
		})
	}
	if err != nil {
		logger.ErrorLogger.Error("Error fetching task", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": "Server Error",
			"data":    nil,
		})
	}

	// lepaskan dari pendingTasks assignee lama jika assignment berpindah
	if existing.AssignedUser != "" && existing.AssignedUser != req.AssignedUser {
		if err := removeFromUserPending(ctx, existing); err != nil {
			status, msg := syncStatus(err)
			logger.ErrorLogger.Error("Error detaching task from previous user", zap.Error(err))
			return c.Status(status).JSON(fiber.Map{
				"message": msg,
				"data":    nil,
			})
		}
	}

	deadline, okDeadline := normalize.Deadline(req.Deadline)
	completed := normalize.Bool(req.Completed, false)
	if !okDeadline {
		return c.Status(400).JSON(fiber.Map{
			"message": "Invalid deadline.",
			"data":    nil,
		})
	}

	assignedName := models.Unassigned
	if req.AssignedUser != "" {
		name, err := resolveAssignedName(ctx, req.AssignedUser)
		if err != nil {
			status, msg := syncStatus(err)
			if status == 500 {
				logger.ErrorLogger.Error("Error fetching assigned user", zap.Error(err))
			}
			return c.Status(status).JSON(fiber.Map{
				"message": msg,
				"data":    nil,
			})
		}
		assignedName = name
	}

	updated := models.Task{
		ID:               existing.ID,
		Name:             req.Name,
		Description:      req.Description,
		Deadline:         deadline,
		Completed:        completed,
		AssignedUser:     req.AssignedUser,
		AssignedUserName: assignedName,
		DateCreated:      existing.DateCreated,
	}

	if _, err := tasks.ReplaceOne(ctx, bson.M{"_id": id}, updated); err != nil {
		logger.ErrorLogger.Error("Error updating task", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": "Server Error",
			"data":    nil,
		})
	}
	cacheDel(ctx, taskCacheKey(id.Hex()))

	if err := syncTaskUserLinks(ctx, updated); err != nil {
		status, msg := syncStatus(err)
		logger.ErrorLogger.Error("Error syncing task links", zap.Error(err))
		return c.Status(status).JSON(fiber.Map{
			"message": msg,
			"data":    nil,
		})
	}

	logger.AuditLogger.Info("Task updated", zap.String("task_id", id.Hex()))
	return c.Status(200).JSON(fiber.Map{
		"message": "OK",
		"data":    updated,
	})
}

// DeleteTask adalah fungsi untuk menghapus task; sebelum dihapus,
// task dilepas dulu dari pendingTasks assignee-nya
func DeleteTask(c *fiber.Ctx) error {
	id, err := primitive.ObjectIDFromHex(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{
			"message": "Invalid identifier.",
			"data":    nil,
		})
	}

	ctx := c.Context()
	tasks := config.DB.Collection("tasks")

	var task models.Task
	err = tasks.FindOne(ctx, bson.M{"_id": id}).Decode(&task)
	if err == mongo.ErrNoDocuments {
		return c.Status(404).JSON(fiber.Map{
			"message": "Task not found",
			"data":    nil,
		})
	}
	if err != nil {
		logger.ErrorLogger.Error("Error fetching task", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": "Server Error",
			"data":    nil,
		})
	}

	if err := removeFromUserPending(ctx, task); err != nil {
		status, msg := syncStatus(err)
		logger.ErrorLogger.Error("Error detaching task from user", zap.Error(err))
		return c.Status(status).JSON(fiber.Map{
			"message": msg,
			"data":    nil,
		})
	}

	if _, err := tasks.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		logger.ErrorLogger.Error("Error deleting task", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": "Server Error",
			"data":    nil,
		})
	}
	cacheDel(ctx, taskCacheKey(id.Hex()))

	logger.AuditLogger.Info("Task deleted", zap.String("task_id", id.Hex()))
	return c.Status(200).JSON(fiber.Map{
		"message": "Deleted",
		"data":    nil,
	})
}

// resolveAssignedName memastikan assignedUser menunjuk user yang ada dan
// mengembalikan nama display-nya dari record user hidup.
func resolveAssignedName(ctx context.Context, assignedUser string) (string, error) {
	uid, err := primitive.ObjectIDFromHex(assignedUser)
	if err != nil {
		return "", errInvalidIdentifier
	}

	var user models.User
	err = config.DB.Collection("users").FindOne(ctx, bson.M{"_id": uid}).Decode(&user)
	if err == mongo.ErrNoDocuments {
		return "", errAssignedUserMissing
	}
	if err != nil {
		return "", err
	}
	return user.Name, nil
}
