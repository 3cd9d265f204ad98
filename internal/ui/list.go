package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/scrapectl/internal/models"
)

var _ list.Item = taskItem{}

// taskItem wraps [models.TaskSummary] to implement [list.Item].
type taskItem struct {
	task models.TaskSummary
}

func (i taskItem) FilterValue() string { return i.task.Link }
func (i taskItem) Title() string       { return i.task.Link }
func (i taskItem) Description() string {
	parts := []string{fmt.Sprintf("#%d", i.task.ID), "Task status: " + i.task.Status.String()}
	if i.task.PageTitle != nil && *i.task.PageTitle != "" {
		parts = append(parts, *i.task.PageTitle)
	}
	if i.task.Error != nil && *i.task.Error != "" {
		parts = append(parts, "Error encountered: "+*i.task.Error)
	}
	return strings.Join(parts, " • ")
}

func taskItems(summaries []models.TaskSummary) []list.Item {
	items := make([]list.Item, len(summaries))
	for i, t := range summaries {
		items[i] = taskItem{task: t}
	}
	return items
}
