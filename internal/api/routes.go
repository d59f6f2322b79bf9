package api

import (
	"github.com/gofiber/fiber/v2"

	"taskman/internal/api/handlers"
)

func RegisterRoutes(app *fiber.App) {
	api := app.Group("/api")

	// User
	userRoutes := api.Group("/users")
	userRoutes.Get("/", handlers.ListUsers)
	userRoutes.Post("/", handlers.CreateUser)
	userRoutes.Get("/:id", handlers.GetUser)
	userRoutes.Put("/:id", handlers.ReplaceUser)
	userRoutes.Delete("/:id", handlers.DeleteUser)

	// Task
	taskRoutes := api.Group("/tasks")
	taskRoutes.Get("/", handlers.ListTasks)
	taskRoutes.Post("/", handlers.CreateTask)
	taskRoutes.Get("/:id", handlers.GetTask)
	taskRoutes.Put("/:id", handlers.ReplaceTask)
	taskRoutes.Delete("/:id", handlers.DeleteTask)
}
