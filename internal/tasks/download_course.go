package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mikestefanello/backlite"
	"github.com/sirupsen/logrus"

	"github.com/mrlokans/courseshelf/internal/downloads"
	"github.com/mrlokans/courseshelf/internal/entities"
)

// ErrCourseNotFound is returned when a download task names an unknown course.
var ErrCourseNotFound = errors.New("course not found")

type CourseLookup interface {
	GetCourseByCode(code string) (*entities.Course, error)
}

// Downloader is satisfied by *downloads.Engine.
type Downloader interface {
	DownloadCourse(ctx context.Context, course *entities.Course) downloads.StartResult
}

// DownloadCourseTask hands a course to the download engine. The task ends
// once the engine accepted the course; the transfer itself runs on the
// engine's own bounded queue.
type DownloadCourseTask struct {
	CourseCode string `json:"course_code"`
}

func (t DownloadCourseTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "download_course",
		MaxAttempts: 5,
		Backoff:     2 * time.Minute,
		Timeout:     30 * time.Second,
		Retention:   retainDay(),
	}
}

func DownloadCourseProcessor(store CourseLookup, engine Downloader, log logrus.FieldLogger) backlite.QueueProcessor[DownloadCourseTask] {
	return func(ctx context.Context, task DownloadCourseTask) error {
		if store == nil || engine == nil {
			return fmt.Errorf("download engine not configured")
		}

		course, err := store.GetCourseByCode(task.CourseCode)
		if err != nil {
			return fmt.Errorf("look up %s: %w", task.CourseCode, err)
		}
		if course == nil {
			log.WithField("course_code", task.CourseCode).Warn("[TASK] download_course: unknown course")
			return nil
		}

		result := engine.DownloadCourse(ctx, course)
		entry := log.WithFields(logrus.Fields{
			"course_code": course.CourseCode,
			"status":      result.Status.String(),
		})

		switch result.Status {
		case downloads.Started, downloads.Queued,
			downloads.RejectedActive, downloads.RejectedQueued, downloads.RejectedDownloaded:
			entry.Info("[TASK] download_course: " + result.Message)
			return nil
		case downloads.RejectedMetered, downloads.RejectedClosed:
			// Conditions that can clear up later; let backlite retry.
			return fmt.Errorf("download %s: %s", course.CourseCode, result.Message)
		default:
			entry.Warn("[TASK] download_course: " + result.Message)
			return nil
		}
	}
}

func NewDownloadCourseQueue(store CourseLookup, engine Downloader, log logrus.FieldLogger) backlite.Queue {
	return backlite.NewQueue(DownloadCourseProcessor(store, engine, log))
}
