package config

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/go-redis/redis/v8"
	"go.mongodb.org/mongo-driver/mongo"
)

var (
	// Global dependency yang akan digunakan di seluruh aplikasi
	DB          *mongo.Database
	Validate    = validator.New()
	Ctx         = context.Background()
	RedisClient *redis.Client
)
