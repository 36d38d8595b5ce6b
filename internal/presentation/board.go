// Package presentation derives the verdict, WHOIS and screenshot display
// slots from installed analysis outcomes
package presentation

import (
	"context"
	"io"
	"log"
	"sync"

	"github.com/commjoen/phishguard/internal/analysis"
	"github.com/commjoen/phishguard/internal/state"
	"github.com/commjoen/phishguard/pkg/models"
)

// ScreenshotPhase is the state of the screenshot slot
type ScreenshotPhase int

const (
	ScreenshotEmpty ScreenshotPhase = iota
	ScreenshotLoading
	ScreenshotLoaded
	ScreenshotErrored
)

func (p ScreenshotPhase) String() string {
	switch p {
	case ScreenshotEmpty:
		return "empty"
	case ScreenshotLoading:
		return "loading"
	case ScreenshotLoaded:
		return "loaded"
	case ScreenshotErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// MarshalText renders the phase by name in JSON output
func (p ScreenshotPhase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// Screenshot is the screenshot slot's reference and phase
type Screenshot struct {
	Ref   string          `json:"ref,omitempty"`
	Phase ScreenshotPhase `json:"phase"`
	// gen identifies the assignment that produced Ref
	gen uint64
}

// Loading reports whether the image is still being fetched and decoded
func (s Screenshot) Loading() bool {
	return s.Phase == ScreenshotLoading
}

// Snapshot is the full display state at one instant
type Snapshot struct {
	Busy       bool                   `json:"busy"`
	Verdict    *models.AnalysisResult `json:"verdict"`
	Whois      *models.WhoisRecord    `json:"whois"`
	Screenshot Screenshot             `json:"screenshot"`
}

// ImageLoader fetches and decodes an image. It returns nil once the image is
// ready to show and an error when it cannot be loaded.
type ImageLoader interface {
	Load(ctx context.Context, ref string) error
}

// Board holds the display state and implements analysis.Sink
type Board struct {
	cell   *state.Cell[Snapshot]
	loader ImageLoader
	logger *log.Logger

	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
	loads  sync.WaitGroup
}

var _ analysis.Sink = (*Board)(nil)

// NewBoard creates an empty board. A nil loader leaves an assigned
// screenshot in the loading phase.
func NewBoard(loader ImageLoader, logger *log.Logger) *Board {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Board{
		cell:   state.NewCell(Snapshot{}),
		loader: loader,
		logger: logger,
	}
}

// Snapshot returns the current display state
func (b *Board) Snapshot() Snapshot {
	return b.cell.Get()
}

// Subscribe registers fn to receive every new display state. fn may read
// the board and the orchestrator feeding it but must not install into the
// board or submit a new analysis.
func (b *Board) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	return b.cell.Subscribe(fn)
}

// SetBusy updates the busy flag
func (b *Board) SetBusy(busy bool) {
	b.cell.Update(func(s Snapshot) Snapshot {
		s.Busy = busy
		return s
	})
}

// Install replaces the three slots with o in one update. A failed outcome
// keeps the current verdict. A new screenshot reference restarts the
// screenshot slot and abandons any load still pending for the old one.
func (b *Board) Install(o analysis.Outcome) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.cancel != nil {
		b.cancel()
		b.cancel = nil
	}
	b.gen++
	gen := b.gen

	ref := ""
	if o.ScreenshotRef != nil {
		ref = *o.ScreenshotRef
	}

	b.cell.Update(func(s Snapshot) Snapshot {
		if o.Verdict != nil {
			v := *o.Verdict
			s.Verdict = &v
		}
		w := o.Whois
		s.Whois = &w
		if ref == "" {
			s.Screenshot = Screenshot{Phase: ScreenshotEmpty, gen: gen}
		} else {
			s.Screenshot = Screenshot{Ref: ref, Phase: ScreenshotLoading, gen: gen}
		}
		return s
	})

	if ref == "" || b.loader == nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	b.cancel = cancel
	b.loads.Add(1)
	go func() {
		defer b.loads.Done()
		b.settle(gen, b.loader.Load(ctx, ref))
	}()
}

// settle applies the single terminal image event for assignment gen
func (b *Board) settle(gen uint64, err error) {
	b.cell.Update(func(s Snapshot) Snapshot {
		if s.Screenshot.gen != gen || s.Screenshot.Phase != ScreenshotLoading {
			return s
		}
		if err != nil {
			b.logger.Printf("failed to load screenshot %s: %v", s.Screenshot.Ref, err)
			s.Screenshot.Phase = ScreenshotErrored
		} else {
			s.Screenshot.Phase = ScreenshotLoaded
		}
		return s
	})
}

// Wait blocks until every started image load has settled
func (b *Board) Wait() {
	b.loads.Wait()
}

// Close abandons any pending image load
func (b *Board) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cancel != nil {
		b.cancel()
		b.cancel = nil
	}
}
