package dida

import (
	"encoding/json"
	"strings"
)

const contentLimit = 280

// SubTask is a checklist entry on an incoming task. It unmarshals from
// either a bare string or a full object, matching what clients send.
type SubTask struct {
	Title         string `json:"title"`
	Status        int    `json:"status"`
	SortOrder     int    `json:"sortOrder"`
	StartDate     string `json:"startDate"`
	CompletedTime string `json:"completedTime"`
	IsAllDay      *bool  `json:"isAllDay"`
	TimeZone      string `json:"timeZone"`
}

func (s *SubTask) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var title string
		if err := json.Unmarshal(data, &title); err != nil {
			return err
		}
		*s = SubTask{Title: title}
		return nil
	}
	type alias SubTask
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*s = SubTask(a)
	return nil
}

// InputTask is a normalized task as produced by the client (typically the AI
// rewrite step upstream of this service).
type InputTask struct {
	Title            string    `json:"title"`
	Description      string    `json:"description"`
	Completed        bool      `json:"completed"`
	ProjectID        string    `json:"projectId"`
	Priority         string    `json:"priority"`
	SuggestedDueDate string    `json:"suggestedDueDate"`
	DueDate          string    `json:"dueDate"`
	StartDate        string    `json:"startDate"`
	ScheduleMode     string    `json:"scheduleMode"`
	Reminders        []string  `json:"reminders"`
	SubTasks         []SubTask `json:"subTasks"`
	IsAllDay         bool      `json:"isAllDay"`
}

// BuildTaskPayload shapes an input task into the wire payload for the task
// creation endpoint. Pure transform, no network: priority mapping, date
// normalization, all-day inference (a date without a time component forces
// isAllDay and date-only serialization), and subtask shaping. Fails with
// ErrEmptyProjectID when no project can be resolved.
func BuildTaskPayload(task InputTask, projectID, timeZone string, fallbackReminders []string) (*TaskPayload, error) {
	description := strings.TrimSpace(task.Description)
	summary := description
	if summary == "" {
		summary = task.Title
	}

	resolvedProjectID := strings.TrimSpace(task.ProjectID)
	if resolvedProjectID == "" {
		resolvedProjectID = projectID
	}
	if strings.TrimSpace(resolvedProjectID) == "" {
		return nil, ErrEmptyProjectID
	}

	title := strings.TrimSpace(task.Title)
	if title == "" {
		title = "Untitled task"
	}

	reminders := task.Reminders
	if len(reminders) == 0 {
		reminders = fallbackReminders
	}

	payload := &TaskPayload{
		ProjectID: resolvedProjectID,
		Title:     title,
		Content:   truncateRunes(summary, contentLimit),
		Desc:      description,
		Priority:  MapPriority(task.Priority),
		TimeZone:  timeZone,
		IsAllDay:  task.IsAllDay,
		Reminders: reminders,
	}

	dueInput := task.DueDate
	if dueInput == "" {
		dueInput = task.SuggestedDueDate
	}
	startInput := task.StartDate

	due := FormatDate(dueInput, timeZone)
	start := FormatDate(startInput, timeZone)
	if due != "" {
		payload.DueDate = due
		if start != "" {
			payload.StartDate = start
		}
	} else if start != "" {
		payload.StartDate = start
	}

	// Inputs without an explicit time of day become all-day tasks.
	forceAllDay := (dueInput != "" && !HasTimeComponent(dueInput)) ||
		(startInput != "" && !HasTimeComponent(startInput))
	if forceAllDay {
		payload.IsAllDay = true
	}

	// All-day dates are serialized date-only so the provider does not render
	// a time of day.
	if payload.IsAllDay {
		payload.DueDate = DateOnly(payload.DueDate)
		payload.StartDate = DateOnly(payload.StartDate)
	}

	if len(task.SubTasks) > 0 {
		items := make([]ChecklistItem, 0, len(task.SubTasks))
		for i, sub := range task.SubTasks {
			if item := shapeSubTask(sub, i, timeZone); item != nil {
				items = append(items, *item)
			}
		}
		if len(items) > 0 {
			payload.Items = items
		}
	}

	return payload, nil
}

func shapeSubTask(sub SubTask, index int, timeZone string) *ChecklistItem {
	if strings.TrimSpace(sub.Title) == "" {
		return nil
	}
	item := &ChecklistItem{
		Title:     sub.Title,
		Status:    sub.Status,
		SortOrder: sub.SortOrder,
		IsAllDay:  sub.IsAllDay,
		TimeZone:  sub.TimeZone,
	}
	if item.SortOrder == 0 {
		item.SortOrder = index + 1
	}
	if v := FormatDate(sub.StartDate, timeZone); v != "" {
		item.StartDate = v
	}
	if v := FormatDate(sub.CompletedTime, timeZone); v != "" {
		item.CompletedTime = v
	}
	return item
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
