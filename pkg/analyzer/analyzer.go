package analyzer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/helmcode/autofixer/pkg/applicator"
	"github.com/helmcode/autofixer/pkg/document"
	"github.com/helmcode/autofixer/pkg/llm"
	"github.com/helmcode/autofixer/pkg/model"
	"github.com/helmcode/autofixer/pkg/parser"
	"github.com/helmcode/autofixer/pkg/prompts"
	"github.com/helmcode/autofixer/pkg/scheduler"
	"github.com/helmcode/autofixer/pkg/store"
	"github.com/helmcode/autofixer/pkg/tree"
)

var (
	ErrUnknownDocument = errors.New("document is not open")
	ErrNoAnalysis      = errors.New("document has not been analyzed")
	ErrStaleAnalysis   = errors.New("document changed since it was analyzed")
	ErrShutdown        = errors.New("analyzer is shut down")
)

// Options tune an Analyzer. Zero values pick the defaults.
type Options struct {
	Debounce  time.Duration
	Timeout   time.Duration
	CacheSize int
	Clock     scheduler.Clock
	Parser    parser.Parser
	// OnOutcome observes every finished analysis call, e.g. to refresh a view
	// or surface a ServiceError to the user.
	OnOutcome func(scheduler.Outcome)
}

// reply is what one service call produced, tied to the text it was about.
type reply struct {
	requestID string
	hash      string
	report    parser.Report
}

// Analyzer is the process-wide coordinator. It owns the open documents,
// the trigger scheduler, the analysis store and the ignore list. A
// document's state is created on Open and torn down on Close.
type Analyzer struct {
	llm    llm.LLM
	parser parser.Parser
	store  *store.Store
	sched  *scheduler.Scheduler[reply]
	notify func(scheduler.Outcome)

	mu      sync.Mutex
	docs    map[string]document.Document
	ignored map[string]map[int]bool
	waiters map[string][]waiter
}

type waiter struct {
	gen uint64
	ch  chan scheduler.Outcome
}

func New(l llm.LLM, opts Options) (*Analyzer, error) {
	st, err := store.New(opts.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("create store: %w", err)
	}
	a := &Analyzer{
		llm:     l,
		parser:  opts.Parser,
		store:   st,
		notify:  opts.OnOutcome,
		docs:    make(map[string]document.Document),
		ignored: make(map[string]map[int]bool),
		waiters: make(map[string][]waiter),
	}
	a.sched = scheduler.New(scheduler.Config[reply]{
		Debounce:  opts.Debounce,
		Timeout:   opts.Timeout,
		Clock:     opts.Clock,
		Call:      a.call,
		Commit:    a.commit,
		OnOutcome: a.outcome,
	})
	return a, nil
}

// Open registers doc and schedules its first analysis.
func (a *Analyzer) Open(doc document.Document) uint64 {
	a.mu.Lock()
	a.docs[doc.ID()] = doc
	a.mu.Unlock()
	return a.sched.Trigger(doc.ID(), scheduler.ReasonOpen)
}

// Notify schedules a re-analysis of an open document.
func (a *Analyzer) Notify(id string, reason scheduler.Reason) (uint64, error) {
	if _, err := a.document(id); err != nil {
		return 0, err
	}
	return a.sched.Trigger(id, reason), nil
}

// Close forgets everything about id. A call still running for it is
// discarded when it completes.
func (a *Analyzer) Close(id string) {
	a.sched.Forget(id)
	a.store.Remove(id)

	a.mu.Lock()
	delete(a.docs, id)
	delete(a.ignored, id)
	ws := a.waiters[id]
	delete(a.waiters, id)
	a.mu.Unlock()

	for _, w := range ws {
		close(w.ch)
	}
}

// Shutdown stops the scheduler and waits for running calls.
func (a *Analyzer) Shutdown() {
	a.sched.Close()
}

// Analyze triggers an immediate analysis of id and waits for it. If a
// newer trigger overtakes the request, Analyze waits for that one instead.
func (a *Analyzer) Analyze(ctx context.Context, id string) (model.Analysis, error) {
	if _, err := a.document(id); err != nil {
		return model.Analysis{}, err
	}
	gen := a.sched.Trigger(id, scheduler.ReasonManual)
	if gen == 0 {
		return model.Analysis{}, ErrShutdown
	}
	ch := a.wait(id, gen)
	a.sched.Flush(id)

	select {
	case <-ctx.Done():
		a.unwait(id, ch)
		return model.Analysis{}, ctx.Err()
	case out, ok := <-ch:
		if !ok {
			return model.Analysis{}, ErrUnknownDocument
		}
		if out.Status == scheduler.Failed {
			return model.Analysis{}, out.Err
		}
		analysis, ok := a.store.Get(id)
		if !ok {
			return model.Analysis{}, ErrNoAnalysis
		}
		return analysis, nil
	}
}

// Get returns the stored analysis for id.
func (a *Analyzer) Get(id string) (model.Analysis, bool) {
	return a.store.Get(id)
}

// State reports the scheduler state of id.
func (a *Analyzer) State(id string) scheduler.State {
	return a.sched.State(id)
}

// Apply applies a single fix, as requested by the user for one suggestion.
// The fix text comes with the request, so no staleness check is made.
func (a *Analyzer) Apply(ctx context.Context, id string, line int, fixCode string) (applicator.Report, error) {
	doc, err := a.document(id)
	if err != nil {
		return applicator.Report{}, err
	}
	s := model.Suggestion{Line: line, FixCode: fixCode}
	if analysis, ok := a.store.Get(id); ok {
		for _, cand := range analysis.Suggestions {
			if cand.Line == line && cand.FixCode == fixCode {
				s = cand
				break
			}
		}
	}
	return a.apply(ctx, doc, []model.Suggestion{s})
}

// ApplyAll applies every non-ignored suggestion of the stored analysis. It
// refuses with ErrStaleAnalysis when the document no longer holds the
// analyzed text, unless force is set; out-of-range lines are then skipped.
func (a *Analyzer) ApplyAll(ctx context.Context, id string, force bool) (applicator.Report, error) {
	doc, err := a.document(id)
	if err != nil {
		return applicator.Report{}, err
	}
	analysis, ok := a.store.Get(id)
	if !ok {
		return applicator.Report{}, ErrNoAnalysis
	}
	if !force {
		text, err := doc.Text(ctx)
		if err != nil {
			return applicator.Report{}, fmt.Errorf("read %s: %w", id, err)
		}
		if document.Hash(text) != analysis.ContentHash {
			return applicator.Report{}, ErrStaleAnalysis
		}
	}
	return a.apply(ctx, doc, a.visible(id, analysis.Suggestions))
}

func (a *Analyzer) apply(ctx context.Context, doc document.Document, batch []model.Suggestion) (applicator.Report, error) {
	rep, err := applicator.ApplyTo(ctx, doc, batch)
	if err != nil {
		return rep, err
	}
	for _, sk := range rep.Skipped {
		log.Printf("analyzer: skipped fix for %s line %d (%s)", doc.ID(), sk.Suggestion.Line, sk.Reason)
	}
	if rep.Changed() {
		if saver, ok := doc.(document.Saver); ok {
			if err := saver.Save(ctx); err != nil {
				return rep, err
			}
		}
		a.sched.Trigger(doc.ID(), scheduler.ReasonChange)
	}
	return rep, nil
}

// Ignore hides the suggestions for one line of id until the next analysis
// is stored. The store is left untouched.
func (a *Analyzer) Ignore(id string, line int) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.docs[id]; !ok {
		return ErrUnknownDocument
	}
	if a.ignored[id] == nil {
		a.ignored[id] = make(map[int]bool)
	}
	a.ignored[id][line] = true
	return nil
}

// View builds the tree model for id without ignored suggestions.
func (a *Analyzer) View(id string, tab tree.Tab) tree.Model {
	analysis, ok := a.store.Get(id)
	if !ok {
		return tree.Build(id, nil, tab)
	}
	visible := a.visible(id, analysis.Suggestions)
	if len(visible) != len(analysis.Suggestions) {
		analysis.Suggestions = visible
		analysis.Summary = model.Summarize(visible)
	}
	return tree.Build(id, &analysis, tab)
}

func (a *Analyzer) visible(id string, suggestions []model.Suggestion) []model.Suggestion {
	a.mu.Lock()
	defer a.mu.Unlock()
	ign := a.ignored[id]
	if len(ign) == 0 {
		return suggestions
	}
	out := make([]model.Suggestion, 0, len(suggestions))
	for _, s := range suggestions {
		if !ign[s.Line] {
			out = append(out, s)
		}
	}
	return out
}

func (a *Analyzer) document(id string) (document.Document, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	doc, ok := a.docs[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, ErrUnknownDocument)
	}
	return doc, nil
}

func (a *Analyzer) call(ctx context.Context, id string, gen uint64) (reply, error) {
	r := reply{requestID: uuid.NewString()}
	doc, err := a.document(id)
	if err != nil {
		return reply{}, err
	}
	text, err := doc.Text(ctx)
	if err != nil {
		return reply{}, fmt.Errorf("request %s: read %s: %w", r.requestID, id, err)
	}
	r.hash = document.Hash(text)

	// Nothing to review: store an empty analysis without asking the service.
	if strings.TrimSpace(text) == "" {
		log.Printf("analyzer: request %s for %s skipped, document is empty", r.requestID, id)
		return r, nil
	}

	prompt, err := prompts.BuildFixPrompt(filepath.Base(id), text)
	if err != nil {
		return reply{}, fmt.Errorf("request %s: %w", r.requestID, err)
	}
	log.Printf("analyzer: request %s for %s (generation %d, %d bytes, model %s)", r.requestID, id, gen, len(prompt), a.llm.GetModel())

	raw, err := a.llm.Chat(ctx, prompt)
	if err != nil {
		return reply{}, fmt.Errorf("request %s: LLM chat: %w", r.requestID, err)
	}
	r.report = a.parser.ParseReport(raw)
	return r, nil
}

func (a *Analyzer) commit(id string, gen uint64, r reply) error {
	if r.report.Unusable() {
		log.Printf("analyzer: request %s: none of %d reply lines were usable suggestions", r.requestID, r.report.Considered)
	} else if r.report.Skipped > 0 {
		log.Printf("analyzer: request %s: skipped %d malformed reply lines", r.requestID, r.report.Skipped)
	}
	a.store.Put(id, r.hash, r.report.Suggestions)

	a.mu.Lock()
	delete(a.ignored, id)
	a.mu.Unlock()
	return nil
}

func (a *Analyzer) wait(id string, gen uint64) <-chan scheduler.Outcome {
	ch := make(chan scheduler.Outcome, 1)
	a.mu.Lock()
	a.waiters[id] = append(a.waiters[id], waiter{gen: gen, ch: ch})
	a.mu.Unlock()
	return ch
}

// unwait drops the waiter owning ch, if an outcome has not already taken it.
func (a *Analyzer) unwait(id string, ch <-chan scheduler.Outcome) {
	a.mu.Lock()
	defer a.mu.Unlock()
	ws := a.waiters[id]
	for i, w := range ws {
		if w.ch == ch {
			ws = append(ws[:i:i], ws[i+1:]...)
			break
		}
	}
	if len(ws) == 0 {
		delete(a.waiters, id)
	} else {
		a.waiters[id] = ws
	}
}

func (a *Analyzer) outcome(out scheduler.Outcome) {
	a.mu.Lock()
	var keep []waiter
	var ready []waiter
	for _, w := range a.waiters[out.Key] {
		// Stale results are never what a waiter is after; a later
		// generation settling answers every earlier waiter.
		if out.Status != scheduler.Stale && w.gen <= out.Generation {
			ready = append(ready, w)
		} else {
			keep = append(keep, w)
		}
	}
	if len(keep) == 0 {
		delete(a.waiters, out.Key)
	} else {
		a.waiters[out.Key] = keep
	}
	a.mu.Unlock()

	for _, w := range ready {
		w.ch <- out
	}
	if a.notify != nil {
		a.notify(out)
	}
}
