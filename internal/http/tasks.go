package http

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mikestefanello/backlite"
	"github.com/sirupsen/logrus"

	"github.com/mrlokans/courseshelf/internal/entities"
	"github.com/mrlokans/courseshelf/internal/tasks"
)

// TaskQueue is the part of the task client the API needs.
type TaskQueue interface {
	Enqueue(ctx context.Context, task backlite.Task) (string, error)
	Status(ctx context.Context, taskID string) (backlite.TaskStatus, error)
}

// TasksController handles task queue management endpoints.
type TasksController struct {
	client TaskQueue
	log    logrus.FieldLogger
}

func NewTasksController(client TaskQueue, log logrus.FieldLogger) *TasksController {
	return &TasksController{client: client, log: log}
}

// TaskTypeInfo describes an available task type.
type TaskTypeInfo struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	Params      string `json:"params,omitempty"`
}

var taskTypes = []TaskTypeInfo{
	{Type: "sync_catalog", Description: "Sync the full course catalog", Params: "force"},
	{Type: "sync_category", Description: "Sync the courses of one category", Params: "category"},
	{Type: "sync_level", Description: "Sync the courses of one level", Params: "level"},
	{Type: "download_course", Description: "Download a course file", Params: "course_code"},
}

// ListTaskTypes handles GET /api/tasks/types
func (tc *TasksController) ListTaskTypes(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"task_types": taskTypes,
	})
}

// GetTaskStatus handles GET /api/tasks/:id
func (tc *TasksController) GetTaskStatus(c *gin.Context) {
	taskID := c.Param("id")
	if taskID == "" {
		respondBadRequest(c, "task ID is required")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	status, err := tc.client.Status(ctx, taskID)
	if err != nil {
		respondInternalError(c, tc.log, err, "task status")
		return
	}
	if status == backlite.TaskStatusNotFound {
		respondNotFound(c, "task")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":     taskID,
		"status": tasks.StatusName(status),
	})
}

// RunTaskRequest is the request body for running a task.
type RunTaskRequest struct {
	Force      bool   `json:"force,omitempty" form:"force"`
	Category   string `json:"category,omitempty" form:"category"`
	Level      string `json:"level,omitempty" form:"level"`
	CourseCode string `json:"course_code,omitempty" form:"course_code"`
}

// RunTask handles POST /api/tasks/:type/run
func (tc *TasksController) RunTask(c *gin.Context) {
	taskType := c.Param("type")

	var req RunTaskRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBind(&req); err != nil {
			respondBadRequest(c, "invalid request body")
			return
		}
	}

	task, err := buildTask(taskType, req)
	if err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	id, err := tc.client.Enqueue(c.Request.Context(), task)
	if err != nil {
		respondInternalError(c, tc.log, err, "enqueue task")
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"success": true,
		"task_id": id,
		"type":    taskType,
		"message": "task enqueued",
	})
}

func buildTask(taskType string, req RunTaskRequest) (backlite.Task, error) {
	switch taskType {
	case "sync_catalog":
		return tasks.SyncCatalogTask{Force: req.Force}, nil

	case "sync_category":
		if strings.TrimSpace(req.Category) == "" {
			return nil, fmt.Errorf("category is required for sync_category task")
		}
		return tasks.SyncCategoryTask{Category: req.Category}, nil

	case "sync_level":
		if _, err := entities.ParseLevel(req.Level); err != nil {
			return nil, fmt.Errorf("a valid level is required for sync_level task")
		}
		return tasks.SyncLevelTask{Level: req.Level}, nil

	case "download_course":
		if strings.TrimSpace(req.CourseCode) == "" {
			return nil, fmt.Errorf("course_code is required for download_course task")
		}
		return tasks.DownloadCourseTask{CourseCode: req.CourseCode}, nil
	}
	return nil, fmt.Errorf("unknown task type: %s", taskType)
}
