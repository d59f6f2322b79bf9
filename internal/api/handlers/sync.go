package handlers

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"taskman/internal/config"
	"taskman/internal/models"
)

// apiError membawa status HTTP untuk error yang harus sampai ke client
// dengan pesan apa adanya; error lain dipetakan ke 500.
type apiError struct {
	status  int
	message string
}

func (e *apiError) Error() string { return e.message }

var (
	errInvalidIdentifier   = &apiError{status: 400, message: "Invalid identifier."}
	errCompletedPending    = &apiError{status: 400, message: "pendingTasks cannot include completed tasks."}
	errAssignedUserMissing = &apiError{status: 400, message: "Assigned user does not exist."}
)

// syncTaskUserLinks menyelaraskan sisi user setelah mutasi task:
// task selesai ditarik dari pendingTasks assignee-nya, task belum selesai
// ditambahkan. Keduanya idempotent ($pull/$addToSet), task tanpa assignee
// tidak melakukan apa-apa.
func syncTaskUserLinks(ctx context.Context, task models.Task) error {
	if task.AssignedUser == "" {
		return nil
	}
	uid, err := primitive.ObjectIDFromHex(task.AssignedUser)
	if err != nil {
		return errInvalidIdentifier
	}

	op := "$addToSet"
	if task.Completed {
		op = "$pull"
	}
	_, err = config.DB.Collection("users").UpdateOne(ctx,
		bson.M{"_id": uid},
		bson.M{op: bson.M{"pendingTasks": task.ID.Hex()}},
	)
	if err != nil {
		return err
	}
	cacheDel(ctx, userCacheKey(task.AssignedUser))
	return nil
}

// removeFromUserPending menarik id task dari pendingTasks assignee lamanya.
// Dipanggil saat replace memindahkan assignedUser atau saat task dihapus,
// supaya user lama tidak menyimpan referensi dangling.
func removeFromUserPending(ctx context.Context, task models.Task) error {
	if task.AssignedUser == "" {
		return nil
	}
	uid, err := primitive.ObjectIDFromHex(task.AssignedUser)
	if err != nil {
		return errInvalidIdentifier
	}

	_, err = config.DB.Collection("users").UpdateOne(ctx,
		bson.M{"_id": uid},
		bson.M{"$pull": bson.M{"pendingTasks": task.ID.Hex()}},
	)
	if err != nil {
		return err
	}
	cacheDel(ctx, userCacheKey(task.AssignedUser))
	return nil
}

// syncUserPendingTasks menyelaraskan sisi task setelah mutasi user.
// Urutannya: (1) task yang masih menunjuk user ini tapi tidak ada di daftar
// target di-unassign, (2) daftar target divalidasi — task yang sudah selesai
// ditolak sebelum ada penulisan assignment, (3) seluruh task target
// di-assign ke user ini. Unassign tidak pernah diblokir oleh validasi.
func syncUserPendingTasks(ctx context.Context, userID string, pendingIDs []string, userName string) error {
	tasks := config.DB.Collection("tasks")

	cur, err := tasks.Find(ctx, bson.M{"assignedUser": userID})
	if err != nil {
		return err
	}
	var currentAssigned []models.Task
	if err := cur.All(ctx, &currentAssigned); err != nil {
		return err
	}

	pendingSet := make(map[string]bool, len(pendingIDs))
	for _, id := range pendingIDs {
		pendingSet[id] = true
	}

	var toUnassign []primitive.ObjectID
	var staleKeys []string
	for _, t := range currentAssigned {
		if !pendingSet[t.ID.Hex()] {
			toUnassign = append(toUnassign, t.ID)
			staleKeys = append(staleKeys, taskCacheKey(t.ID.Hex()))
		}
	}
	if len(toUnassign) > 0 {
		_, err := tasks.UpdateMany(ctx,
			bson.M{"_id": bson.M{"$in": toUnassign}},
			bson.M{"$set": bson.M{"assignedUser": "", "assignedUserName": models.Unassigned}},
		)
		if err != nil {
			return err
		}
		cacheDel(ctx, staleKeys...)
	}

	if len(pendingIDs) > 0 {
		ids, err := toObjectIDs(pendingIDs)
		if err != nil {
			return err
		}
		cur, err := tasks.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
		if err != nil {
			return err
		}
		var targets []models.Task
		if err := cur.All(ctx, &targets); err != nil {
			return err
		}
		for _, t := range targets {
			if t.Completed {
				return errCompletedPending
			}
		}

		_, err = tasks.UpdateMany(ctx,
			bson.M{"_id": bson.M{"$in": ids}},
			bson.M{"$set": bson.M{"assignedUser": userID, "assignedUserName": userName}},
		)
		if err != nil {
			return err
		}
		keys := make([]string, 0, len(pendingIDs))
		for _, id := range pendingIDs {
			keys = append(keys, taskCacheKey(id))
		}
		cacheDel(ctx, keys...)
	}

	return nil
}

// toObjectIDs mengubah daftar id hex menjadi ObjectID; satu id rusak
// membatalkan seluruh operasi sebagai client error.
func toObjectIDs(hexIDs []string) ([]primitive.ObjectID, error) {
	ids := make([]primitive.ObjectID, 0, len(hexIDs))
	for _, raw := range hexIDs {
		id, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			return nil, errInvalidIdentifier
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// syncStatus memetakan error dari synchronizer/storage ke status response.
func syncStatus(err error) (int, string) {
	var ae *apiError
	if errors.As(err, &ae) {
		return ae.status, ae.message
	}
	return 500, "Server Error"
}
