package tasks

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/scrapectl/internal/shared"
	"golang.org/x/time/rate"
)

const (
	defaultWorkers   = 4
	maxWorkers       = 16
	defaultRateLimit = 5.0
)

// TaskAdder submits a single link.
type TaskAdder interface {
	AddTask(ctx context.Context, link string) (int, error)
}

// BulkSubmitOpts contains configuration for bulk task submission.
type BulkSubmitOpts struct {
	NumWorkers int     // Concurrent workers (default: 4, max: 16)
	RateLimit  float64 // Requests per second across all workers (default: 5)
}

// BulkSubmitOptsFromConfig converts the [bulk] config section.
func BulkSubmitOptsFromConfig(cfg shared.BulkConfig) BulkSubmitOpts {
	return BulkSubmitOpts{NumWorkers: cfg.Workers, RateLimit: cfg.RateLimit}
}

// SubmitResult is the outcome for one link.
type SubmitResult struct {
	Link   string
	TaskID int
	Err    error
}

// BulkSubmitResult summarizes a batch. Results are in input order.
type BulkSubmitResult struct {
	Total     int
	Submitted int
	Failed    int
	Results   []SubmitResult
}

// BulkSubmitter adds many links concurrently.
type BulkSubmitter struct {
	adder  TaskAdder
	logger *log.Logger
}

// NewBulkSubmitter creates a submitter that adds links through adder.
func NewBulkSubmitter(adder TaskAdder, logger *log.Logger) *BulkSubmitter {
	if logger == nil {
		logger = log.Default()
	}
	return &BulkSubmitter{adder: adder, logger: logger}
}

type submitJob struct {
	index int
	link  string
}

// Submit adds every link using a rate-limited worker pool.
//
// A failed link does not stop the batch. When ctx ends, links not yet sent are reported with ctx's error and
// that error is returned alongside the partial result.
func (b *BulkSubmitter) Submit(
	ctx context.Context,
	links []string,
	opts BulkSubmitOpts,
	prog chan<- ProgressUpdate,
) (*BulkSubmitResult, error) {
	if b.adder == nil {
		return nil, fmt.Errorf("%w: task service not initialized", shared.ErrServiceUnavailable)
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = defaultWorkers
	}
	if opts.NumWorkers > maxWorkers {
		opts.NumWorkers = maxWorkers
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = defaultRateLimit
	}

	result := &BulkSubmitResult{
		Total:   len(links),
		Results: make([]SubmitResult, len(links)),
	}
	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)

	jobs := make(chan submitJob, len(links))
	for i, link := range links {
		jobs <- submitJob{index: i, link: link}
	}
	close(jobs)

	results := make(chan submitJob, len(links))
	var wg sync.WaitGroup
	for range opts.NumWorkers {
		wg.Add(1)
		go b.worker(ctx, &wg, limiter, jobs, result.Results, results)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	completed := 0
	for job := range results {
		completed++
		res := &result.Results[job.index]
		if res.Err != nil {
			result.Failed++
			sendProgress(prog, submitFailedUpdate(completed, len(links), res))
			continue
		}
		result.Submitted++
		sendProgress(prog, submittedUpdate(completed, len(links), res))
	}

	b.logger.Info("bulk submit finished", "total", result.Total, "submitted", result.Submitted, "failed", result.Failed)
	if err := ctx.Err(); err != nil {
		return result, err
	}
	return result, nil
}

// worker writes each job's outcome into its own slot of out, then reports the job as done.
func (b *BulkSubmitter) worker(
	ctx context.Context,
	wg *sync.WaitGroup,
	limiter *rate.Limiter,
	jobs <-chan submitJob,
	out []SubmitResult,
	done chan<- submitJob,
) {
	defer wg.Done()

	for job := range jobs {
		res := SubmitResult{Link: job.link}
		if err := limiter.Wait(ctx); err != nil {
			res.Err = err
		} else {
			res.TaskID, res.Err = b.adder.AddTask(ctx, job.link)
		}
		if res.Err != nil {
			b.logger.Debug("link not submitted", "link", job.link, "error", res.Err)
		}
		out[job.index] = res
		done <- job
	}
}

// ReadLinks reads one link per line, skipping blank lines and lines starting with #.
func ReadLinks(r io.Reader) ([]string, error) {
	var links []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		links = append(links, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read links: %w", err)
	}
	return links, nil
}
