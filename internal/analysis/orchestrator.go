package analysis

import (
	"context"
	"io"
	"log"
	"sync"

	"github.com/commjoen/phishguard/internal/input"
	"github.com/commjoen/phishguard/pkg/models"
)

// Policy decides what happens to a result that settles after a newer one
type Policy int

const (
	// DiscardStale drops a result whose request is older than the last one applied
	DiscardStale Policy = iota
	// LastSettledWins applies every result in settlement order
	LastSettledWins
)

// Outcome is the resolved triple for one request
type Outcome struct {
	Seq uint64
	// Verdict is nil on failure; the current verdict is then left untouched
	Verdict       *models.AnalysisResult
	Whois         models.WhoisRecord
	ScreenshotRef *string
	// Err is the failure that triggered the fallback, nil on success
	Err error
}

// Failed reports whether the outcome came from the fallback path
func (o Outcome) Failed() bool {
	return o.Err != nil
}

// Sink receives busy transitions and resolved outcomes. Install must replace
// all three slots in one step. Calls are serialised but made without the
// orchestrator's state lock, so a sink may call Busy.
type Sink interface {
	SetBusy(busy bool)
	Install(o Outcome)
}

// Orchestrator runs one analysis per submission and installs the outcome
type Orchestrator struct {
	analyzer Analyzer
	sink     Sink
	policy   Policy
	logger   *log.Logger

	// sinkMu orders sink calls; it is taken before mu
	sinkMu   sync.Mutex
	mu       sync.Mutex
	nextSeq  uint64
	applied  uint64
	inflight int
}

// Option configures an Orchestrator
type Option func(*Orchestrator)

// WithPolicy sets the stale result policy
func WithPolicy(p Policy) Option {
	return func(o *Orchestrator) { o.policy = p }
}

// WithLogger sets the diagnostic logger
func WithLogger(l *log.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// New creates an orchestrator dispatching to analyzer and installing into sink
func New(analyzer Analyzer, sink Sink, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		analyzer: analyzer,
		sink:     sink,
		policy:   DiscardStale,
		logger:   log.New(io.Discard, "", 0),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Busy reports whether any request is in flight
func (o *Orchestrator) Busy() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.inflight > 0
}

// Analyze runs a single analysis for req and blocks until it settles.
// Overlapping calls are allowed. The returned bool reports whether the
// outcome was installed; it is false for a blank URL (nothing is dispatched)
// and for a stale result under DiscardStale.
func (o *Orchestrator) Analyze(ctx context.Context, req models.AnalysisRequest) (Outcome, bool) {
	if !input.Submittable(req.URL) {
		return Outcome{}, false
	}

	seq := o.begin()
	defer o.end()

	outcome := Outcome{Seq: seq}
	resp, err := o.analyzer.Analyze(ctx, req)
	if err == nil {
		err = complete(resp)
	}
	if err != nil {
		o.logger.Printf("analysis of %q failed: %v", req.URL, err)
		outcome.Err = err
		outcome.Whois = FallbackWhois(req.URL)
	} else {
		verdict := *resp.ModelResult
		outcome.Verdict = &verdict
		outcome.Whois = *resp.WhoisDetails
		outcome.ScreenshotRef = resp.ScreenshotURL
	}

	return outcome, o.install(outcome)
}

// complete rejects a response missing one of the sub-results the outcome
// is built from
func complete(resp *models.AnalysisResponse) error {
	switch {
	case resp == nil:
		return &MalformedResponseError{Reason: "empty response"}
	case resp.ModelResult == nil:
		return &MalformedResponseError{Reason: "missing model_result"}
	case resp.WhoisDetails == nil:
		return &MalformedResponseError{Reason: "missing whois_details"}
	}
	return nil
}

func (o *Orchestrator) begin() uint64 {
	o.sinkMu.Lock()
	defer o.sinkMu.Unlock()

	o.mu.Lock()
	o.nextSeq++
	o.inflight++
	seq := o.nextSeq
	o.mu.Unlock()

	o.sink.SetBusy(true)
	return seq
}

func (o *Orchestrator) end() {
	o.sinkMu.Lock()
	defer o.sinkMu.Unlock()

	o.mu.Lock()
	o.inflight--
	busy := o.inflight > 0
	o.mu.Unlock()

	o.sink.SetBusy(busy)
}

func (o *Orchestrator) install(outcome Outcome) bool {
	o.sinkMu.Lock()
	defer o.sinkMu.Unlock()

	o.mu.Lock()
	if o.policy == DiscardStale && outcome.Seq < o.applied {
		applied := o.applied
		o.mu.Unlock()
		o.logger.Printf("discarding stale result for request %d (applied %d)", outcome.Seq, applied)
		return false
	}
	o.applied = outcome.Seq
	o.mu.Unlock()

	o.sink.Install(outcome)
	return true
}
