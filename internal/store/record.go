package store

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/taskmesh/taskmesh/internal/task"
)

// record is the persisted layout shared by both backends:
// {id, title, description, status, createdAt, tags}.
//
// createdAt is a decimal-string-encoded u64. A JSON float loses precision for
// values at and above 2^53, so the timestamp never travels as a number.
type record struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Status      string   `json:"status"`
	CreatedAt   string   `json:"createdAt"`
	Tags        []string `json:"tags"`
}

// EncodeTask serializes a task into the persisted record layout.
func EncodeTask(t task.Task) ([]byte, error) {
	return json.Marshal(recordFromTask(t))
}

// DecodeTask normalizes one persisted record into the canonical Task shape.
// A status outside the closed set or an unparseable createdAt fails this
// record only; callers log and skip rather than aborting the whole result.
func DecodeTask(data []byte) (task.Task, error) {
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return task.Task{}, fmt.Errorf("malformed record: %w", err)
	}
	return rec.toTask()
}

// EncodeTasks serializes a whole collection as a single blob.
func EncodeTasks(tasks []task.Task) ([]byte, error) {
	recs := make([]record, 0, len(tasks))
	for _, t := range tasks {
		recs = append(recs, recordFromTask(t))
	}
	return json.Marshal(recs)
}

// DecodeTasks splits a collection blob into individually decodable records.
// Per-record normalization failures are reported through onError and the
// record is skipped; the rest of the collection survives.
func DecodeTasks(data []byte, onError func(err error)) ([]task.Task, error) {
	if len(data) == 0 {
		return nil, nil
	}

	var recs []record
	if err := json.Unmarshal(data, &recs); err != nil {
		return nil, fmt.Errorf("malformed task collection: %w", err)
	}

	tasks := make([]task.Task, 0, len(recs))
	for _, rec := range recs {
		t, err := rec.toTask()
		if err != nil {
			if onError != nil {
				onError(err)
			}
			continue
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

func recordFromTask(t task.Task) record {
	tags := t.Tags
	if tags == nil {
		tags = []string{}
	}
	return record{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Status:      string(t.Status),
		CreatedAt:   strconv.FormatUint(t.CreatedAt, 10),
		Tags:        tags,
	}
}

func (rec record) toTask() (task.Task, error) {
	status, err := task.ParseStatus(rec.Status)
	if err != nil {
		return task.Task{}, fmt.Errorf("record %s: %w", rec.ID, err)
	}

	createdAt, err := strconv.ParseUint(rec.CreatedAt, 10, 64)
	if err != nil {
		return task.Task{}, fmt.Errorf("record %s: invalid createdAt %q: %w", rec.ID, rec.CreatedAt, err)
	}

	tags := rec.Tags
	if tags == nil {
		tags = []string{}
	}

	return task.Task{
		ID:          rec.ID,
		Title:       rec.Title,
		Description: rec.Description,
		Status:      status,
		CreatedAt:   createdAt,
		Tags:        tags,
	}, nil
}
