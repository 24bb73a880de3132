package cmd

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"
)

// progressPrinter renders a single updating status line while the serial
// host loop runs.
type progressPrinter struct {
	total    int
	name     string
	mu       sync.Mutex
	done     int
	ready    int
	failed   int
	current  string
	updates  chan struct{}
	finished chan struct{}
	stopOnce sync.Once
	started  time.Time
}

func newProgressPrinter(total int, name string) *progressPrinter {
	if total <= 0 {
		total = 1
	}
	return &progressPrinter{
		total:    total,
		name:     name,
		updates:  make(chan struct{}, 1),
		finished: make(chan struct{}),
		started:  time.Now(),
	}
}

func (p *progressPrinter) Start() {
	go p.loop()
}

// SetCurrent records the host being processed right now.
func (p *progressPrinter) SetCurrent(host string) {
	p.mu.Lock()
	p.current = host
	p.mu.Unlock()
	p.notify()
}

// HostDone records one finished host.
func (p *progressPrinter) HostDone(ready bool) {
	p.mu.Lock()
	p.done++
	if ready {
		p.ready++
	} else {
		p.failed++
	}
	p.mu.Unlock()
	p.notify()
}

func (p *progressPrinter) notify() {
	select {
	case p.updates <- struct{}{}:
	default:
	}
}

func (p *progressPrinter) Stop() {
	p.stopOnce.Do(func() {
		close(p.finished)
	})
	fmt.Fprintf(os.Stdout, "\r%s\r", strings.Repeat(" ", 100))
	p.print()
	fmt.Fprintln(os.Stdout)
}

func (p *progressPrinter) loop() {
	ticker := time.NewTicker(300 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-p.updates:
			p.print()
		case <-ticker.C:
			p.print()
		case <-p.finished:
			return
		}
	}
}

func (p *progressPrinter) print() {
	p.mu.Lock()
	done, ready, failed, current := p.done, p.ready, p.failed, p.current
	p.mu.Unlock()

	elapsed := time.Since(p.started).Round(time.Second)
	line := fmt.Sprintf("%s %d/%d | ready %d | other %d | %s",
		p.name, done, p.total, ready, failed, elapsed)
	if current != "" && done < p.total {
		line += " | " + current
	}
	if len(line) > 100 {
		line = line[:100]
	}
	fmt.Fprintf(os.Stdout, "\r%-100s", line)
}
