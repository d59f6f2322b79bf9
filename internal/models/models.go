package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Unassigned adalah sentinel untuk task yang tidak memiliki assignee.
const Unassigned = "unassigned"

type Task struct {
	ID               primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	Name             string             `json:"name" bson:"name"`
	Description      string             `json:"description" bson:"description"`
	Deadline         time.Time          `json:"deadline" bson:"deadline"`
	Completed        bool               `json:"completed" bson:"completed"`
	AssignedUser     string             `json:"assignedUser" bson:"assignedUser"`
	AssignedUserName string             `json:"assignedUserName" bson:"assignedUserName"`
	DateCreated      time.Time          `json:"dateCreated" bson:"dateCreated"`
}

type User struct {
	ID           primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	Name         string             `json:"name" bson:"name"`
	Email        string             `json:"email" bson:"email"`
	PendingTasks []string           `json:"pendingTasks" bson:"pendingTasks"`
	DateCreated  time.Time          `json:"dateCreated" bson:"dateCreated"`
}
