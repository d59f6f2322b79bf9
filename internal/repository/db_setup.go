package repository

import (
	"log"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"taskman/internal/config"
)

// EnsureIndexes membuat index yang dibutuhkan aplikasi kalau belum ada.
// Keunikan email ditegakkan di sini; handler memetakan pelanggarannya
// ke response 400.
func EnsureIndexes(db *mongo.Database) {
	_, err := db.Collection("users").Indexes().CreateOne(config.Ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		log.Fatalf("Failed to create users.email index: %v", err)
	}
}

// DropAll menghapus kedua collection, dipakai untuk membersihkan
// database test setelah suite selesai.
func DropAll(db *mongo.Database) {
	if err := db.Collection("tasks").Drop(config.Ctx); err != nil {
		log.Printf("Error dropping tasks collection: %v", err)
	}
	if err := db.Collection("users").Drop(config.Ctx); err != nil {
		log.Printf("Error dropping users collection: %v", err)
	}
}
