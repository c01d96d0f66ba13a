package planner

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"listai/internal/models"

	"github.com/google/uuid"
)

// ErrEmptyResponse is returned when the model produced no text
var ErrEmptyResponse = errors.New("empty response from model")

// MaxPlanDays bounds day_index and days_count. Ten years of daily tasks.
const MaxPlanDays = 3650

// ValidationError describes the first rule a plan payload broke
type ValidationError struct {
	Field  string // top-level field: strategy, tasks or days_count
	Index  int    // element index, -1 when the error is about the field itself
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("invalid plan structure: %s", e.Reason)
	}
	item := "task"
	if e.Field == "strategy" {
		item = "strategy item"
	}
	return fmt.Sprintf("invalid %s at index %d: %s", item, e.Index, e.Reason)
}

// ExtractJSON strips markdown code fences and keeps the text between the first
// '{' and the last '}'. It does not attempt any deeper repair.
func ExtractJSON(text string) string {
	cleaned := strings.ReplaceAll(text, "```json\n", "")
	cleaned = strings.ReplaceAll(cleaned, "```json", "")
	cleaned = strings.ReplaceAll(cleaned, "```\n", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")
	cleaned = strings.TrimSpace(cleaned)

	first := strings.Index(cleaned, "{")
	last := strings.LastIndex(cleaned, "}")
	if first != -1 && last != -1 && last > first {
		cleaned = cleaned[first : last+1]
	}
	return cleaned
}

// ParsePlan runs ExtractJSON, decodes the payload and validates it
func ParsePlan(text string) (*models.PlanResponse, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyResponse
	}

	var raw any
	if err := json.Unmarshal([]byte(ExtractJSON(text)), &raw); err != nil {
		return nil, fmt.Errorf("failed to parse plan JSON: %w", err)
	}
	return Validate(raw)
}

// Validate checks a decoded plan payload. Rules run in order (strategy, tasks,
// days_count) and the first failure is returned. Tasks without an id get a
// generated one; all strings are trimmed.
func Validate(raw any) (*models.PlanResponse, error) {
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, &ValidationError{Field: "strategy", Index: -1, Reason: "missing strategy array"}
	}

	strategy, err := validateStrategy(obj["strategy"])
	if err != nil {
		return nil, err
	}

	tasks, err := validateTasks(obj["tasks"])
	if err != nil {
		return nil, err
	}

	daysCount, ok := numberValue(obj["days_count"])
	if !ok {
		return nil, &ValidationError{Field: "days_count", Index: -1, Reason: "missing or invalid days_count"}
	}
	if daysCount < 0 || daysCount > MaxPlanDays {
		return nil, &ValidationError{Field: "days_count", Index: -1, Reason: fmt.Sprintf("invalid days_count %v", daysCount)}
	}

	return &models.PlanResponse{
		Strategy:  strategy,
		Tasks:     tasks,
		DaysCount: int(daysCount),
	}, nil
}

func validateStrategy(value any) ([]models.StrategyItem, error) {
	items, ok := value.([]any)
	if !ok {
		return nil, &ValidationError{Field: "strategy", Index: -1, Reason: "missing strategy array"}
	}

	strategy := make([]models.StrategyItem, 0, len(items))
	for i, item := range items {
		m, _ := item.(map[string]any)
		title := stringValue(m["title"])
		description := stringValue(m["description"])
		if title == "" || description == "" {
			return nil, &ValidationError{Field: "strategy", Index: i, Reason: "missing title or description"}
		}
		strategy = append(strategy, models.StrategyItem{Title: title, Description: description})
	}
	return strategy, nil
}

func validateTasks(value any) ([]models.PlanTask, error) {
	items, ok := value.([]any)
	if !ok {
		return nil, &ValidationError{Field: "tasks", Index: -1, Reason: "missing tasks array"}
	}

	tasks := make([]models.PlanTask, 0, len(items))
	for i, item := range items {
		m, _ := item.(map[string]any)

		title := stringValue(m["title"])
		if title == "" {
			return nil, &ValidationError{Field: "tasks", Index: i, Reason: "missing title"}
		}
		description := stringValue(m["description"])
		if description == "" {
			return nil, &ValidationError{Field: "tasks", Index: i, Reason: "missing description"}
		}

		priority := models.TaskPriority(stringValue(m["priority"]))
		if priority == "" {
			return nil, &ValidationError{Field: "tasks", Index: i, Reason: "missing priority"}
		}
		if !priority.IsValid() {
			return nil, &ValidationError{Field: "tasks", Index: i, Reason: fmt.Sprintf("invalid priority %q", priority)}
		}

		dayIndex, ok := numberValue(m["day_index"])
		if !ok {
			return nil, &ValidationError{Field: "tasks", Index: i, Reason: "missing day_index"}
		}
		if dayIndex < 1 || dayIndex > MaxPlanDays || dayIndex != math.Trunc(dayIndex) {
			return nil, &ValidationError{Field: "tasks", Index: i, Reason: fmt.Sprintf("invalid day_index %v", dayIndex)}
		}

		id := stringValue(m["id"])
		if id == "" {
			id = newTaskID()
		}

		tasks = append(tasks, models.PlanTask{
			ID:          id,
			Title:       title,
			Description: description,
			Priority:    priority,
			DayIndex:    int(dayIndex),
		})
	}
	return tasks, nil
}

// stringValue returns the trimmed text of a scalar JSON value, "" otherwise
func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	}
	return ""
}

func numberValue(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case int:
		return float64(val), true
	case json.Number:
		f, err := val.Float64()
		return f, err == nil
	}
	return 0, false
}

func newTaskID() string {
	return fmt.Sprintf("task_%d_%s", time.Now().UnixMilli(), strings.ReplaceAll(uuid.NewString(), "-", "")[:9])
}
