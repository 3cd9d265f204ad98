package ui

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/desertthunder/scrapectl/internal/formatter"
	"github.com/desertthunder/scrapectl/internal/models"
	"github.com/desertthunder/scrapectl/internal/services"
	"github.com/desertthunder/scrapectl/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	TaskListView ViewState = iota
	AddTaskView
	ProgressView
)

// TaskService is the part of [services.ScrapeService] the TUI uses.
type TaskService interface {
	AddTask(ctx context.Context, link string) (int, error)
	ListTasks(ctx context.Context) ([]models.TaskSummary, error)
	Interrupt(ctx context.Context, id int, current models.TaskStatus) error
}

// Watcher is the part of [tasks.Watcher] the TUI uses.
type Watcher interface {
	Open(ctx context.Context, taskID int, onSnapshot func(models.TaskSnapshot), onFatal func(error)) *tasks.WatchHandle
	Close()
}

// watchSession links one opened subscription to the commands waiting on it.
//
// Only the newest undelivered snapshot is kept. A fatal never displaces it: the snapshot is delivered first.
type watchSession struct {
	seq    int
	taskID int
	ready  chan struct{}
	done   chan struct{}

	mu      sync.Mutex
	pending *models.TaskSnapshot
	fatal   error
}

func newWatchSession(seq, taskID int) *watchSession {
	return &watchSession{
		seq:    seq,
		taskID: taskID,
		ready:  make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

func (s *watchSession) offer(u tasks.Update) {
	s.mu.Lock()
	if u.Fatal() {
		s.fatal = u.Err
	} else {
		snap := u.Snapshot
		s.pending = &snap
	}
	s.mu.Unlock()

	select {
	case s.ready <- struct{}{}:
	default:
	}
}

// take removes the next update to deliver, snapshots before the fatal.
func (s *watchSession) take() (tasks.Update, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.pending != nil:
		u := tasks.Update{Snapshot: *s.pending}
		s.pending = nil
		return u, true
	case s.fatal != nil:
		u := tasks.Update{Err: s.fatal}
		s.fatal = nil
		return u, true
	}
	return tasks.Update{}, false
}

// Model represents the TUI application state.
type Model struct {
	ctx      context.Context
	view     ViewState
	svc      TaskService
	watcher  Watcher
	logger   *log.Logger
	width    int
	height   int
	taskList list.Model
	input    textinput.Model
	bar      progress.Model
	spinner  spinner.Model
	session  *watchSession
	seq      int
	snapshot *models.TaskSnapshot
	fatal    string
	status   string
	isErr    bool
	help     help.Model
	keys     keyMap
}

// NewModel creates a new TUI model with the provided dependencies.
func NewModel(ctx context.Context, svc TaskService, watcher Watcher, logger *log.Logger) *Model {
	if logger == nil {
		logger = log.Default()
	}

	input := textinput.New()
	input.Placeholder = "https://www.your-url.com"
	input.Prompt = "Enter URL to scrape: "
	input.CharLimit = 2048

	taskList := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	taskList.Title = "History"
	taskList.SetShowHelp(false)

	return &Model{
		ctx:      ctx,
		view:     TaskListView,
		svc:      svc,
		watcher:  watcher,
		logger:   logger,
		taskList: taskList,
		input:    input,
		bar:      progress.New(progress.WithSolidFill(styles.okColor), progress.WithoutPercentage()),
		spinner:  spinner.New(spinner.WithSpinner(spinner.Dot)),
		help:     help.New(),
		keys:     newKeyMap(),
	}
}

// Init initializes the TUI by fetching the task list.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.fetchTasks(), m.spinner.Tick)
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.taskList.SetSize(msg.Width-4, msg.Height-8)
		m.bar.Width = max(msg.Width-8, 10)
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case TaskListView:
			return m.handleTaskListKeys(msg)
		case AddTaskView:
			return m.handleAddTaskKeys(msg)
		case ProgressView:
			return m.handleProgressKeys(msg)
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case Msg:
		return m.handleMsg(msg)
	}

	return m.updateComponents(msg)
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgTasksFetched:
		data := msg.data.(tasksFetched)
		if data.err != nil {
			m.logger.Error("failed to list tasks", "error", data.err)
			m.setStatus(services.UnexpectedMessage(data.err), true)
			return m, nil
		}
		cmd := m.taskList.SetItems(taskItems(data.tasks))
		return m, cmd

	case MsgTaskAdded:
		data := msg.data.(taskAdded)
		if data.err != nil {
			m.logger.Warn("failed to add task", "error", data.err)
			m.setStatus(services.AddTaskMessage(data.err), true)
			return m, nil
		}
		m.input.Reset()
		m.setStatus(fmt.Sprintf("Task #%d created", data.id), false)
		return m, m.openTask(data.id)

	case MsgSnapshot:
		ev := msg.data.(streamEvent)
		if m.session == nil || ev.seq != m.session.seq {
			return m, nil
		}
		snap := ev.snapshot
		m.snapshot = &snap
		return m, m.waitForUpdate(m.session)

	case MsgStreamFatal:
		ev := msg.data.(streamEvent)
		if m.session == nil || ev.seq != m.session.seq {
			return m, nil
		}
		m.logger.Error("task stream closed", "task", m.session.taskID, "error", ev.err)
		m.fatal = services.StreamFatalMessage
		m.setStatus(services.StreamFatalMessage, true)
		return m, nil

	case MsgInterruptDone:
		if err, _ := msg.data.(error); err != nil {
			m.logger.Warn("interrupt refused", "error", err)
			m.setStatus(services.InterruptMessage(err), true)
			return m, nil
		}
		m.setStatus("Interrupt signal sent", false)
		return m, nil
	}
	return m, nil
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	var body string
	switch m.view {
	case TaskListView:
		body = m.renderTaskList()
	case AddTaskView:
		body = m.renderAddTask()
	case ProgressView:
		body = m.renderProgress()
	}

	if m.status != "" {
		style := styles.ok
		if m.isErr {
			style = styles.warn
		}
		body = fmt.Sprintf("%s\n\n%s", body, style.Render(m.status))
	}
	return body
}

func (m *Model) handleTaskListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.taskList.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.taskList, cmd = m.taskList.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		m.closeSession()
		return m, tea.Quit
	case key.Matches(msg, m.keys.add):
		m.view = AddTaskView
		m.clearStatus()
		return m, m.input.Focus()
	case key.Matches(msg, m.keys.refresh):
		m.clearStatus()
		return m, m.fetchTasks()
	case key.Matches(msg, m.keys.enter):
		if item, ok := m.taskList.SelectedItem().(taskItem); ok {
			m.clearStatus()
			return m, m.openTask(item.task.ID)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.taskList, cmd = m.taskList.Update(msg)
	return m, cmd
}

func (m *Model) handleAddTaskKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		m.closeSession()
		return m, tea.Quit
	case "esc":
		m.input.Blur()
		m.view = TaskListView
		return m, nil
	case "enter":
		link := strings.TrimSpace(m.input.Value())
		if link == "" {
			return m, nil
		}
		return m, m.addTask(link)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) handleProgressKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		m.closeSession()
		return m, tea.Quit
	case key.Matches(msg, m.keys.back):
		m.closeSession()
		m.view = TaskListView
		m.clearStatus()
		return m, m.fetchTasks()
	case key.Matches(msg, m.keys.interrupt):
		if m.session == nil {
			return m, nil
		}
		var current models.TaskStatus
		if m.snapshot != nil {
			current = m.snapshot.Status
		}
		return m, m.interrupt(m.session.taskID, current)
	}
	return m, nil
}

func (m *Model) updateComponents(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.view {
	case TaskListView:
		m.taskList, cmd = m.taskList.Update(msg)
	case AddTaskView:
		m.input, cmd = m.input.Update(msg)
	}
	return m, cmd
}

func (m *Model) setStatus(text string, isErr bool) {
	m.status = text
	m.isErr = isErr
}

func (m *Model) clearStatus() { m.setStatus("", false) }

// openTask switches to the progress view and subscribes to id, replacing any open subscription.
func (m *Model) openTask(id int) tea.Cmd {
	m.closeSession()

	m.seq++
	s := newWatchSession(m.seq, id)
	m.session = s
	m.snapshot = nil
	m.fatal = ""
	m.view = ProgressView

	m.watcher.Open(m.ctx, id,
		func(snap models.TaskSnapshot) { s.offer(tasks.Update{Snapshot: snap}) },
		func(err error) { s.offer(tasks.Update{Err: err}) },
	)
	m.logger.Debug("watching task", "task", id)
	return m.waitForUpdate(s)
}

func (m *Model) closeSession() {
	if m.session == nil {
		return
	}
	m.watcher.Close()
	close(m.session.done)
	m.session = nil
}

func (m *Model) waitForUpdate(s *watchSession) tea.Cmd {
	return func() tea.Msg {
		for {
			if u, ok := s.take(); ok {
				if u.Fatal() {
					return streamFatalMsg(s.seq, u.Err)
				}
				return snapshotMsg(s.seq, u.Snapshot)
			}
			select {
			case <-s.ready:
			case <-s.done:
				return nil
			}
		}
	}
}

func (m *Model) fetchTasks() tea.Cmd {
	return func() tea.Msg {
		summaries, err := m.svc.ListTasks(m.ctx)
		return tasksFetchedMsg(summaries, err)
	}
}

func (m *Model) addTask(link string) tea.Cmd {
	return func() tea.Msg {
		id, err := m.svc.AddTask(m.ctx, link)
		return taskAddedMsg(id, err)
	}
}

func (m *Model) interrupt(id int, current models.TaskStatus) tea.Cmd {
	return func() tea.Msg {
		return interruptDoneMsg(m.svc.Interrupt(m.ctx, id, current))
	}
}

func (m *Model) renderTaskList() string {
	helpKeys := []key.Binding{m.keys.enter, m.keys.add, m.keys.refresh, m.keys.quit}
	return fmt.Sprintf("%s\n\n%s", m.taskList.View(), m.help.ShortHelpView(helpKeys))
}

func (m *Model) renderAddTask() string {
	title := styles.title.Render("Add a new scraping task")
	submit := key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "start scraping"))
	helpView := m.help.ShortHelpView([]key.Binding{submit, m.keys.back})
	return fmt.Sprintf("%s\n%s\n\n%s", title, m.input.View(), helpView)
}

func (m *Model) renderProgress() string {
	if m.session == nil {
		return ""
	}
	title := styles.title.Render(fmt.Sprintf("Task #%d", m.session.taskID))
	helpKeys := []key.Binding{m.keys.back, m.keys.quit}

	if m.fatal != "" {
		body := styles.err.Render("Error occurred while retrieving this task")
		return fmt.Sprintf("%s\n%s\n\n%s", title, body, m.help.ShortHelpView(helpKeys))
	}
	if m.snapshot == nil {
		return fmt.Sprintf("%s\n%s Connecting...\n\n%s", title, m.spinner.View(), m.help.ShortHelpView(helpKeys))
	}

	v := tasks.Derive(m.snapshot)
	var b strings.Builder
	b.WriteString(title + "\n")
	fmt.Fprintf(&b, "Status: %s\n\n", styles.Status(m.snapshot.Status).Render(m.snapshot.Status.String()))

	if m.snapshot.Error != nil && *m.snapshot.Error != "" {
		b.WriteString(styles.err.Render("Encountered error: "+*m.snapshot.Error) + "\n")
	} else {
		for _, f := range formatter.SnapshotFields(*m.snapshot) {
			fmt.Fprintf(&b, "%s %s\n", styles.label.Render(f[0]), f[1])
		}
	}

	bar := m.bar
	if v.Erroneous {
		bar.FullColor = styles.errColor
	}
	fmt.Fprintf(&b, "\n%s %5.1f%%\n", bar.ViewAs(v.DisplayPercent()/100), v.DisplayPercent())

	if v.Interruptible {
		helpKeys = append([]key.Binding{m.keys.interrupt}, helpKeys...)
	}
	b.WriteString("\n" + m.help.ShortHelpView(helpKeys))
	return b.String()
}
