package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/desertthunder/scrapectl/internal/formatter"
	"github.com/desertthunder/scrapectl/internal/models"
	"github.com/desertthunder/scrapectl/internal/services"
	"github.com/desertthunder/scrapectl/internal/shared"
	"github.com/desertthunder/scrapectl/internal/tasks"
	"github.com/urfave/cli/v3"
)

const progressBarWidth = 30

// submission is the JSON shape of one submitted link.
type submission struct {
	Link   string `json:"link"`
	TaskID int    `json:"id,omitempty"`
	Error  string `json:"error,omitempty"`
}

// TasksAdd submits a single link, or every link in --file through the bulk submitter.
func (r *Runner) TasksAdd(ctx context.Context, cmd *cli.Command) error {
	link := strings.TrimSpace(cmd.StringArg("link"))
	file := cmd.String("file")

	switch {
	case link == "" && file == "":
		return fmt.Errorf("%w: provide a link or --file", shared.ErrMissingArgument)
	case link != "" && file != "":
		return fmt.Errorf("%w: cannot specify both a link and --file", shared.ErrInvalidArgument)
	}

	if err := r.connect(); err != nil {
		return err
	}

	if link != "" {
		id, err := r.scrape.AddTask(ctx, link)
		if err != nil {
			return describe(services.AddTaskMessage(err), err)
		}
		if cmd.Bool("json") {
			return r.writeJSON(submission{Link: link, TaskID: id}, false)
		}
		return r.writePlain("✓ Task #%d created for %s\n", id, link)
	}

	links, err := readLinkFile(file)
	if err != nil {
		return err
	}
	if len(links) == 0 {
		return fmt.Errorf("%w: no links in %s", shared.ErrInvalidInput, file)
	}

	opts := tasks.BulkSubmitOptsFromConfig(r.config.Bulk)
	if cmd.IsSet("workers") {
		opts.NumWorkers = int(cmd.Int("workers"))
	}

	prog := make(chan tasks.ProgressUpdate, len(links))
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range prog {
			r.logger.Info(update.Message)
		}
	}()

	result, err := r.bulk.Submit(ctx, links, opts, prog)
	close(prog)
	<-done
	if result == nil {
		return err
	}

	if cmd.Bool("json") {
		out := make([]submission, len(result.Results))
		for i, res := range result.Results {
			out[i] = submission{Link: res.Link, TaskID: res.TaskID}
			if res.Err != nil {
				out[i].Error = services.AddTaskMessage(res.Err)
			}
		}
		if werr := r.writeJSON(out, true); werr != nil {
			return werr
		}
	} else {
		r.writePlain("Submitted %d/%d links\n", result.Submitted, result.Total)
		for _, res := range result.Results {
			if res.Err != nil {
				r.writePlain("  ✗ %s: %s\n", res.Link, services.AddTaskMessage(res.Err))
			}
		}
	}

	if err != nil {
		return err
	}
	if result.Failed > 0 {
		return fmt.Errorf("%d of %d links failed", result.Failed, result.Total)
	}
	return nil
}

// TasksList prints or saves the task list.
func (r *Runner) TasksList(ctx context.Context, cmd *cli.Command) error {
	format := cmd.String("format")
	output := cmd.String("output")

	if err := r.connect(); err != nil {
		return err
	}

	summaries, err := r.scrape.ListTasks(ctx)
	if err != nil {
		return fmt.Errorf("failed to list tasks: %w", err)
	}

	if output != "" {
		if err := formatter.WriteTasks(summaries, format, output); err != nil {
			return err
		}
		r.logger.Info("task list written", "path", output, "count", len(summaries))
		return r.writePlain("✓ %d tasks written to %s\n", len(summaries), output)
	}

	data, err := formatter.FormatTasks(summaries, format)
	if err != nil {
		return err
	}
	return r.writeBytes(data)
}

// TasksInterrupt asks the backend to stop a task.
func (r *Runner) TasksInterrupt(ctx context.Context, cmd *cli.Command) error {
	id, err := parseTaskID(cmd.StringArg("id"))
	if err != nil {
		return err
	}
	if err := r.connect(); err != nil {
		return err
	}

	if err := r.scrape.InterruptTask(ctx, id); err != nil {
		return describe(services.InterruptMessage(err), err)
	}
	return r.writePlain("✓ Interrupt signal sent to task #%d\n", id)
}

// TasksWatch prints a progress line for every snapshot until the task reaches a final state.
//
// A stream that closes for good is reported as an error.
func (r *Runner) TasksWatch(ctx context.Context, cmd *cli.Command) error {
	id, err := parseTaskID(cmd.StringArg("id"))
	if err != nil {
		return err
	}
	format := cmd.String("format")
	if format != "" {
		if _, err := formatter.FormatSnapshot(models.TaskSnapshot{}, format); err != nil {
			return err
		}
	}
	if err := r.connect(); err != nil {
		return err
	}

	sub := r.stream.Subscribe(ctx, id)
	defer sub.Close()

	var last *models.TaskSnapshot
	for {
		update, ok := sub.Next(ctx)
		if !ok {
			break
		}
		if update.Fatal() {
			r.logger.Error("task stream closed", "task", id, "error", update.Err)
			return fmt.Errorf("%s: %w", services.StreamFatalMessage, update.Err)
		}
		snap := update.Snapshot
		last = &snap
		if err := r.writePlain("%s\n", formatter.ProgressLine(snap, progressBarWidth)); err != nil {
			return err
		}
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	if format == "" || last == nil {
		return nil
	}

	data, err := formatter.FormatSnapshot(*last, format)
	if err != nil {
		return err
	}
	return r.writeBytes(data)
}

func parseTaskID(arg string) (int, error) {
	if arg == "" {
		return 0, fmt.Errorf("%w: task id", shared.ErrMissingArgument)
	}
	id, err := strconv.Atoi(arg)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %q", shared.ErrInvalidTaskID, arg)
	}
	return id, nil
}

func readLinkFile(path string) ([]string, error) {
	var in io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open link file: %w", err)
		}
		defer f.Close()
		in = f
	}
	return tasks.ReadLinks(in)
}

// describe puts the user-facing text in front of validation errors. Other errors already read well.
func describe(msg string, err error) error {
	if services.Classify(err) == services.KindValidation {
		return fmt.Errorf("%s: %w", msg, err)
	}
	return err
}
