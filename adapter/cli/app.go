package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/taskmesh/taskmesh/internal/task"
	"github.com/taskmesh/taskmesh/internal/tasklist"
)

// App holds the dependencies commands need.
type App struct {
	Tasks *tasklist.Service
}

var app *App

// SetApp sets the CLI app instance.
func SetApp(a *App) {
	app = a
}

// GetApp returns the CLI app instance, or nil when initialization failed.
func GetApp() *App {
	return app
}

func requireApp() (*App, error) {
	if app == nil || app.Tasks == nil {
		return nil, fmt.Errorf("application not initialized - store required")
	}
	return app, nil
}

// resolveTask finds a task by full id or unique id prefix.
func resolveTask(tasks []task.Task, id string) (task.Task, error) {
	var matches []task.Task
	for _, t := range tasks {
		if t.ID == id {
			return t, nil
		}
		if strings.HasPrefix(t.ID, id) {
			matches = append(matches, t)
		}
	}

	switch len(matches) {
	case 0:
		return task.Task{}, fmt.Errorf("no task matches id %q", id)
	case 1:
		return matches[0], nil
	default:
		return task.Task{}, fmt.Errorf("id %q is ambiguous (%d matches)", id, len(matches))
	}
}

func printTask(t task.Task) {
	created := time.UnixMilli(int64(t.CreatedAt)).Local().Format("2006-01-02 15:04")
	fmt.Printf("%s %s\n", statusIcon(t.Status), t.Title)
	fmt.Printf("   ID: %s  Status: %s  Created: %s\n", shortID(t.ID), t.Status, created)
	if t.Description != "" {
		fmt.Printf("   %s\n", t.Description)
	}
	if len(t.Tags) > 0 {
		fmt.Printf("   Tags: %s\n", strings.Join(t.Tags, ", "))
	}
	fmt.Println()
}

func statusIcon(s task.Status) string {
	switch s {
	case task.StatusDone:
		return "[x]"
	case task.StatusNext:
		return "[>]"
	case task.StatusWaiting:
		return "[w]"
	case task.StatusSomeday:
		return "[~]"
	case task.StatusTrash:
		return "[-]"
	default:
		return "[ ]"
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
