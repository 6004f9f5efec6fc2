package sim

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/gosuri/uilive"
)

type expJob struct {
	exp *Experiment
	rc  *runContext
}

// runAll executes the jobs of one run. With parallelism above one the
// jobs run on a bounded pool, each job owning its rng, updater and
// analyzers, and a live terminal printer shows one status line per
// slot.
func runAll(ctx context.Context, jobs []*expJob, parallelism int) error {
	if parallelism <= 1 {
		for _, job := range jobs {
			job.rc.status = func(s string) {
				fmt.Printf("\r%s", s)
			}
			if err := job.exp.run(job.rc); err != nil {
				return err
			}
			fmt.Println("")
		}
		return nil
	}

	if parallelism > len(jobs) {
		parallelism = len(jobs)
	}
	outputs := make([]*ParallelOutput, parallelism)
	for i := range outputs {
		outputs[i] = NewParallelOutput()
	}
	printer := NewTerminalPrinter(ctx, outputs, 1)
	printer.Start()
	defer printer.Stop()

	slots := make(chan int, parallelism)
	for i := 0; i < parallelism; i++ {
		slots <- i
	}

	var wg sync.WaitGroup
	errs := make(chan error, len(jobs))
	for _, job := range jobs {
		slot := <-slots
		wg.Add(1)
		go func(job *expJob, slot int) {
			defer wg.Done()
			defer func() { slots <- slot }()

			out := outputs[slot]
			out.SetRunning(true)
			out.Set(fmt.Sprintf("Exp:%s, starting", job.exp.Name))
			job.rc.status = func(s string) {
				out.TrySet(s)
			}
			err := job.exp.run(job.rc)
			out.SetRunning(false)
			if err != nil {
				errs <- err
			}
		}(job, slot)
	}
	wg.Wait()
	close(errs)

	var combined error
	for err := range errs {
		combined = errors.Join(combined, err)
	}
	return combined
}

// TERMINAL PRINTER

// TerminalPrinter periodically rewrites one terminal line per parallel
// slot with the latest experiment status.
type TerminalPrinter struct {
	outputs       []*ParallelOutput
	ctx           context.Context
	printerCtx    context.Context
	printerCancel context.CancelFunc
	frequency     int

	writer  *uilive.Writer
	writers []io.Writer
}

func NewTerminalPrinter(ctx context.Context, outputs []*ParallelOutput, frequency int) *TerminalPrinter {
	printerCtx, cancel := context.WithCancel(ctx)
	writer := uilive.New()
	writers := make([]io.Writer, len(outputs))
	for i := 0; i < len(outputs)-1; i++ {
		writers[i] = writer.Newline()
	}

	return &TerminalPrinter{
		outputs:       outputs,
		ctx:           ctx,
		printerCtx:    printerCtx,
		printerCancel: cancel,
		frequency:     frequency,

		writer:  writer,
		writers: writers,
	}
}

func (p *TerminalPrinter) Start() {
	go func() {
		for {
			select {
			case <-p.printerCtx.Done():
				p.writer.Stop()
				return
			case <-p.ctx.Done():
				p.writer.Stop()
				return
			case <-time.After(time.Duration(p.frequency) * time.Second):
				p.print()
			}
		}
	}()
}

func (p *TerminalPrinter) Stop() {
	p.printerCancel()
}

func (p *TerminalPrinter) print() {
	for i, output := range p.outputs {
		if !output.IsRunning() {
			continue
		}
		s := output.Get()
		if i == 0 {
			fmt.Fprint(p.writer, s+"\n")
		} else {
			fmt.Fprint(p.writers[i-1], s+"\n")
		}
	}
	p.writer.Flush()
}

// PARALLEL OUTPUT

// ParallelOutput holds the latest status line of one parallel slot.
type ParallelOutput struct {
	mu        sync.Mutex
	printable string
	running   bool
}

func NewParallelOutput() *ParallelOutput {
	return &ParallelOutput{}
}

// Set the output string (blocking)
func (p *ParallelOutput) Set(s string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.printable = s
}

// TrySet sets the output string without blocking the experiment on the
// printer holding the lock.
func (p *ParallelOutput) TrySet(s string) bool {
	if !p.mu.TryLock() {
		return false
	}
	defer p.mu.Unlock()
	p.printable = s
	return true
}

// Get the output string (blocking)
func (p *ParallelOutput) Get() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.printable
}

func (p *ParallelOutput) SetRunning(running bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.running = running
}

func (p *ParallelOutput) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}
