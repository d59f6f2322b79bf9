package handlers

import (
	"fmt"
	"net/url"
	"testing"
	"time"
)

// pendingList mengubah field pendingTasks dari response menjadi []string
func pendingList(t *testing.T, data map[string]interface{}) []string {
	t.Helper()
	raw, ok := data["pendingTasks"].([]interface{})
	if !ok {
		t.Fatalf("Expected pendingTasks array, got %T", data["pendingTasks"])
	}
	ids := make([]string, 0, len(raw))
	for _, v := range raw {
		ids = append(ids, v.(string))
	}
	return ids
}

// TestCreateTaskRequiresFields: name dan deadline wajib ada
func TestCreateTaskRequiresFields(t *testing.T) {
	app := createTestApp()

	status, result := doRequest(t, app, "POST", "/api/tasks", map[string]interface{}{})
	if status != 400 {
		t.Errorf("Expected status 400, got %d", status)
	}
	if result["message"] != "Task name and deadline are required." {
		t.Errorf("Unexpected message: %v", result["message"])
	}

	// hanya name, tanpa deadline
	marker := fmt.Sprintf("no-deadline-%d", time.Now().UnixNano())
	status, _ = doRequest(t, app, "POST", "/api/tasks", map[string]interface{}{
		"name": marker,
	})
	if status != 400 {
		t.Errorf("Expected status 400 without deadline, got %d", status)
	}

	// pastikan tidak ada task yang ikut tersimpan
	params := url.Values{
		"where": {fmt.Sprintf(`{"name":%q}`, marker)},
		"count": {"true"},
	}
	status, result = doRequest(t, app, "GET", "/api/tasks?"+params.Encode(), nil)
	if status != 200 {
		t.Fatalf("Expected status 200, got %d", status)
	}
	if n := respData(t, result)["count"].(float64); n != 0 {
		t.Errorf("Expected no persisted task, found %v", n)
	}
}

// TestCreateTaskInvalidDeadline: deadline yang tidak bisa diparse ditolak
func TestCreateTaskInvalidDeadline(t *testing.T) {
	app := createTestApp()

	status, result := doRequest(t, app, "POST", "/api/tasks", map[string]interface{}{
		"name":     "Bad deadline",
		"deadline": "sometime next week-ish",
	})
	if status != 400 {
		t.Errorf("Expected status 400, got %d", status)
	}
	if result["message"] != "Invalid deadline." {
		t.Errorf("Unexpected message: %v", result["message"])
	}
}

// TestCreateTaskAssignedUserMustExist: assignedUser harus menunjuk user nyata
func TestCreateTaskAssignedUserMustExist(t *testing.T) {
	app := createTestApp()

	status, result := doRequest(t, app, "POST", "/api/tasks", map[string]interface{}{
		"name":         "Orphan assignment",
		"deadline":     1700000000,
		"assignedUser": "ffffffffffffffffffffffff",
	})
	if status != 400 {
		t.Errorf("Expected status 400, got %d", status)
	}
	if result["message"] != "Assigned user does not exist." {
		t.Errorf("Unexpected message: %v", result["message"])
	}

	// id yang bukan hex sama sekali
	status, result = doRequest(t, app, "POST", "/api/tasks", map[string]interface{}{
		"name":         "Broken id",
		"deadline":     1700000000,
		"assignedUser": "not-an-id",
	})
	if status != 400 {
		t.Errorf("Expected status 400, got %d", status)
	}
	if result["message"] != "Invalid identifier." {
		t.Errorf("Unexpected message: %v", result["message"])
	}
}

// TestTaskAssignmentLifecycle: skenario create→assign→complete dari ujung ke ujung
func TestTaskAssignmentLifecycle(t *testing.T) {
	app := createTestApp()

	userID := createTestUser(t, app, "Ada")

	taskID, taskData := createTestTask(t, app, map[string]interface{}{
		"name":         "T1",
		"deadline":     1700000000,
		"assignedUser": userID,
	})
	if taskData["assignedUserName"] != "Ada" {
		t.Errorf("Expected assignedUserName Ada, got %v", taskData["assignedUserName"])
	}

	// pendingTasks user harus memuat task baru
	status, result := doRequest(t, app, "GET", "/api/users/"+userID, nil)
	if status != 200 {
		t.Fatalf("Expected status 200, got %d", status)
	}
	pending := pendingList(t, respData(t, result))
	if len(pending) != 1 || pending[0] != taskID {
		t.Errorf("Expected pendingTasks [%s], got %v", taskID, pending)
	}

	// tandai selesai lewat full replace
	status, _ = doRequest(t, app, "PUT", "/api/tasks/"+taskID, map[string]interface{}{
		"name":         "T1",
		"deadline":     1700000000,
		"completed":    true,
		"assignedUser": userID,
	})
	if status != 200 {
		t.Fatalf("Expected status 200, got %d", status)
	}

	// task selesai harus hilang dari pendingTasks
	status, result = doRequest(t, app, "GET", "/api/users/"+userID, nil)
	if status != 200 {
		t.Fatalf("Expected status 200, got %d", status)
	}
	pending = pendingList(t, respData(t, result))
	if len(pending) != 0 {
		t.Errorf("Expected empty pendingTasks, got %v", pending)
	}

	// record task-nya sendiri juga harus sudah completed
	status, result = doRequest(t, app, "GET", "/api/tasks/"+taskID, nil)
	if status != 200 {
		t.Fatalf("Expected status 200, got %d", status)
	}
	if respData(t, result)["completed"] != true {
		t.Errorf("Expected completed task, got %v", respData(t, result)["completed"])
	}
}

// TestDeadlineNormalization: epoch detik dan milidetik menghasilkan timestamp sama
func TestDeadlineNormalization(t *testing.T) {
	app := createTestApp()

	_, fromSeconds := createTestTask(t, app, map[string]interface{}{
		"name":     "seconds",
		"deadline": 1700000000,
	})
	_, fromMillis := createTestTask(t, app, map[string]interface{}{
		"name":     "millis",
		"deadline": 1700000000000,
	})

	if fromSeconds["deadline"] != fromMillis["deadline"] {
		t.Errorf("Expected equal deadlines, got %v and %v",
			fromSeconds["deadline"], fromMillis["deadline"])
	}

	// completed menerima bentuk tekstual
	_, textualBool := createTestTask(t, app, map[string]interface{}{
		"name":      "textual completed",
		"deadline":  "1700000000",
		"completed": "yes",
	})
	if textualBool["completed"] != true {
		t.Errorf("Expected completed true from textual input, got %v", textualBool["completed"])
	}
}

// TestListTasksFilterAndCount: where menyaring record, count mengembalikan jumlah
func TestListTasksFilterAndCount(t *testing.T) {
	app := createTestApp()

	marker := fmt.Sprintf("filter-%d", time.Now().UnixNano())
	for i := 0; i < 2; i++ {
		createTestTask(t, app, map[string]interface{}{
			"name":        fmt.Sprintf("done-%d", i),
			"description": marker,
			"deadline":    1700000000,
			"completed":   true,
		})
	}
	createTestTask(t, app, map[string]interface{}{
		"name":        "open",
		"description": marker,
		"deadline":    1700000000,
	})

	where := fmt.Sprintf(`{"description":%q,"completed":true}`, marker)

	params := url.Values{"where": {where}}
	status, result := doRequest(t, app, "GET", "/api/tasks?"+params.Encode(), nil)
	if status != 200 {
		t.Fatalf("Expected status 200, got %d", status)
	}
	docs, ok := result["data"].([]interface{})
	if !ok {
		t.Fatalf("Expected record array, got %T", result["data"])
	}
	if len(docs) != 2 {
		t.Errorf("Expected 2 completed tasks, got %d", len(docs))
	}
	for _, d := range docs {
		if d.(map[string]interface{})["completed"] != true {
			t.Errorf("Filter leaked an incomplete task: %v", d)
		}
	}

	params.Set("count", "true")
	status, result = doRequest(t, app, "GET", "/api/tasks?"+params.Encode(), nil)
	if status != 200 {
		t.Fatalf("Expected status 200, got %d", status)
	}
	if n := respData(t, result)["count"].(float64); n != 2 {
		t.Errorf("Expected count 2, got %v", n)
	}
}

// TestListTasksSortAndLimit: sort dan limit diteruskan ke query
func TestListTasksSortAndLimit(t *testing.T) {
	app := createTestApp()

	marker := fmt.Sprintf("sorted-%d", time.Now().UnixNano())
	for i, name := range []string{"b", "a", "c"} {
		createTestTask(t, app, map[string]interface{}{
			"name":        name,
			"description": marker,
			"deadline":    1700000000 + i,
		})
	}

	params := url.Values{
		"where": {fmt.Sprintf(`{"description":%q}`, marker)},
		"sort":  {`{"name":1}`},
		"limit": {"2"},
	}
	status, result := doRequest(t, app, "GET", "/api/tasks?"+params.Encode(), nil)
	if status != 200 {
		t.Fatalf("Expected status 200, got %d", status)
	}
	docs := result["data"].([]interface{})
	if len(docs) != 2 {
		t.Fatalf("Expected 2 tasks after limit, got %d", len(docs))
	}
	first := docs[0].(map[string]interface{})["name"].(string)
	second := docs[1].(map[string]interface{})["name"].(string)
	if first != "a" || second != "b" {
		t.Errorf("Expected [a b], got [%s %s]", first, second)
	}
}

// TestGetTaskSelect: select membatasi field pada lookup by-id
func TestGetTaskSelect(t *testing.T) {
	app := createTestApp()

	taskID, _ := createTestTask(t, app, map[string]interface{}{
		"name":        "projected",
		"description": "should be hidden",
		"deadline":    1700000000,
	})

	params := url.Values{"select": {`{"name":1}`}}
	status, result := doRequest(t, app, "GET", "/api/tasks/"+taskID+"?"+params.Encode(), nil)
	if status != 200 {
		t.Fatalf("Expected status 200, got %d", status)
	}
	data := respData(t, result)
	if data["name"] != "projected" {
		t.Errorf("Expected selected name, got %v", data["name"])
	}
	if _, present := data["description"]; present {
		t.Errorf("Expected description to be projected away, got %v", data["description"])
	}
}

// TestReplaceTaskReassign: pindah assignee melepas task dari user lama
func TestReplaceTaskReassign(t *testing.T) {
	app := createTestApp()

	firstUser := createTestUser(t, app, "Grace")
	secondUser := createTestUser(t, app, "Edsger")

	taskID, _ := createTestTask(t, app, map[string]interface{}{
		"name":         "handover",
		"deadline":     1700000000,
		"assignedUser": firstUser,
	})

	status, result := doRequest(t, app, "PUT", "/api/tasks/"+taskID, map[string]interface{}{
		"name":         "handover",
		"deadline":     1700000000,
		"assignedUser": secondUser,
	})
	if status != 200 {
		t.Fatalf("Expected status 200, got %d (%v)", status, result["message"])
	}
	if respData(t, result)["assignedUserName"] != "Edsger" {
		t.Errorf("Expected assignedUserName Edsger, got %v", respData(t, result)["assignedUserName"])
	}

	_, firstResult := doRequest(t, app, "GET", "/api/users/"+firstUser, nil)
	if pending := pendingList(t, respData(t, firstResult)); len(pending) != 0 {
		t.Errorf("Expected previous assignee to be detached, got %v", pending)
	}

	_, secondResult := doRequest(t, app, "GET", "/api/users/"+secondUser, nil)
	pending := pendingList(t, respData(t, secondResult))
	if len(pending) != 1 || pending[0] != taskID {
		t.Errorf("Expected new assignee pendingTasks [%s], got %v", taskID, pending)
	}
}

// TestDeleteTaskDetaches: delete menghapus task dan referensinya di user
func TestDeleteTaskDetaches(t *testing.T) {
	app := createTestApp()

	userID := createTestUser(t, app, "Barbara")
	taskID, _ := createTestTask(t, app, map[string]interface{}{
		"name":         "short lived",
		"deadline":     1700000000,
		"assignedUser": userID,
	})

	status, result := doRequest(t, app, "DELETE", "/api/tasks/"+taskID, nil)
	if status != 200 {
		t.Fatalf("Expected status 200, got %d", status)
	}
	if result["message"] != "Deleted" {
		t.Errorf("Unexpected message: %v", result["message"])
	}

	status, _ = doRequest(t, app, "GET", "/api/tasks/"+taskID, nil)
	if status != 404 {
		t.Errorf("Expected status 404 after delete, got %d", status)
	}

	_, userResult := doRequest(t, app, "GET", "/api/users/"+userID, nil)
	if pending := pendingList(t, respData(t, userResult)); len(pending) != 0 {
		t.Errorf("Expected empty pendingTasks after task delete, got %v", pending)
	}

	// delete kedua kali: record sudah tidak ada
	status, _ = doRequest(t, app, "DELETE", "/api/tasks/"+taskID, nil)
	if status != 404 {
		t.Errorf("Expected status 404 on second delete, got %d", status)
	}
}

// TestTaskNotFoundAndBadID
func TestTaskNotFoundAndBadID(t *testing.T) {
	app := createTestApp()

	status, result := doRequest(t, app, "GET", "/api/tasks/ffffffffffffffffffffffff", nil)
	if status != 404 {
		t.Errorf("Expected status 404, got %d", status)
	}
	if result["message"] != "Task not found" {
		t.Errorf("Unexpected message: %v", result["message"])
	}

	status, result = doRequest(t, app, "GET", "/api/tasks/not-hex", nil)
	if status != 400 {
		t.Errorf("Expected status 400, got %d", status)
	}
	if result["message"] != "Invalid identifier." {
		t.Errorf("Unexpected message: %v", result["message"])
	}
}

// TestListTasksBadFilterJSON: JSON rusak di query string adalah 400, bukan 500
func TestListTasksBadFilterJSON(t *testing.T) {
	app := createTestApp()

	params := url.Values{"where": {`{"completed":`}}
	status, result := doRequest(t, app, "GET", "/api/tasks?"+params.Encode(), nil)
	if status != 400 {
		t.Errorf("Expected status 400, got %d", status)
	}
	if result["message"] != "Badly formatted JSON in query string." {
		t.Errorf("Unexpected message: %v", result["message"])
	}
}
