// Package persist reconciles the editor's graph with the remote stores.
//
// A [Synchronizer] runs each operation as a sequential saga: every remote
// call waits for the previous one, the first failure stops the rest, and
// nothing is rolled back. The outcome is a [Report] carrying the steps that
// ran and the notices for the user; remote failures never escape as panics
// or Go errors from SaveOrUpdate, Refresh or Reset.
//
//	sync := persist.New(stores, gv, logger)
//	report := sync.SaveOrUpdate(ctx, "F1", state.Graph)
//	if report.OK() {
//	    ed.Dispatch(ctx, editor.MarkSaved{})
//	}
package persist

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"

	apperr "github.com/matzehuels/factoryflow/pkg/errors"
	"github.com/matzehuels/factoryflow/pkg/flow"
	"github.com/matzehuels/factoryflow/pkg/flow/layout"
	"github.com/matzehuels/factoryflow/pkg/notice"
	"github.com/matzehuels/factoryflow/pkg/observability"
)

// Mode is the save path chosen by [ChooseMode].
type Mode string

const (
	ModeCreate  Mode = "create"
	ModePartial Mode = "partial"
	ModeFull    Mode = "full"
	ModeRefresh Mode = "refresh"
	ModeReset   Mode = "reset"
)

// Step names as they appear in reports, logs and metrics.
const (
	StepFetchDocument    = "document.fetch"
	StepCreateDocument   = "document.create"
	StepUpdateDocument   = "document.update"
	StepFetchTruth       = "truth.fetch"
	StepUpdateRelations  = "relations.update"
	StepAllocationExists = "allocation.exists"
	StepCreateAllocation = "allocation.create"
	StepUpdateAllocation = "allocation.update"
	StepDeleteAllocation = "allocation.delete"
	StepSyncShopFloors   = "shopfloor.sync"
)

// Notice summaries.
const (
	SummarySaved         = "Saved"
	SummarySaveFailed    = "Save failed"
	SummaryRelations     = "Updating relations"
	SummaryRefreshed     = "Refreshed"
	SummaryRefreshFailed = "Refresh failed"
	SummaryReset         = "Reset"
	SummaryResetFailed   = "Reset failed"
)

// Default position of the factory node in a new graph.
var factoryOrigin = flow.Position{X: 250, Y: 70}

// Step is one remote call of a saga.
type Step struct {
	Name     string        `json:"name"`
	Duration time.Duration `json:"duration"`
	Err      error         `json:"-"`
}

// Report is the outcome of a saga.
type Report struct {
	FactoryID string          `json:"factoryId"`
	Mode      Mode            `json:"mode"`
	Steps     []Step          `json:"steps"`
	Notices   []notice.Notice `json:"notices"`
	Err       error           `json:"-"` // first failure that stopped the saga
}

// OK reports whether the saga ran to completion.
func (r Report) OK() bool { return r.Err == nil }

// StepNames lists the steps in the order they ran.
func (r Report) StepNames() []string {
	names := make([]string, len(r.Steps))
	for i, s := range r.Steps {
		names[i] = s.Name
	}
	return names
}

// Synchronizer runs load, save, refresh and reset against [Stores].
type Synchronizer struct {
	stores Stores
	engine layout.Engine
	logger *log.Logger
}

// New creates a synchronizer. engine lays out loaded graphs; when nil,
// stored positions are kept.
func New(stores Stores, engine layout.Engine, logger *log.Logger) *Synchronizer {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Synchronizer{stores: stores, engine: engine, logger: logger}
}

// saga records the steps of one operation.
type saga struct {
	ctx    context.Context
	sync   *Synchronizer
	report *Report
}

func (s *Synchronizer) begin(ctx context.Context, factoryID string) (*saga, *Report) {
	r := &Report{FactoryID: factoryID}
	observability.Sync().OnSyncStart(ctx, factoryID)
	return &saga{ctx: ctx, sync: s, report: r}, r
}

// run executes one remote call and records it. It returns the call's error.
func (sg *saga) run(name string, fn func(ctx context.Context) error) error {
	start := time.Now()
	err := fn(sg.ctx)
	d := time.Since(start)
	sg.report.Steps = append(sg.report.Steps, Step{Name: name, Duration: d, Err: err})
	observability.Sync().OnSyncStep(sg.ctx, name, d, err)
	if err != nil {
		sg.sync.logger.Warn("sync step failed", "factory", sg.report.FactoryID, "step", name, "err", err)
	} else {
		sg.sync.logger.Debug("sync step", "factory", sg.report.FactoryID, "step", name, "duration", d)
	}
	return err
}

func (sg *saga) fail(summary, step string, err error) {
	sg.report.Err = apperr.Wrap(codeFor(err), err, "%s", step)
	sg.report.Notices = append(sg.report.Notices, notice.Errorf(summary, "%s: %s", step, apperr.UserMessage(err)))
}

func (sg *saga) finish(start time.Time) {
	observability.Sync().OnSyncComplete(sg.ctx, sg.report.FactoryID, string(sg.report.Mode), time.Since(start), sg.report.Err)
	sg.sync.logger.Info("sync finished", "factory", sg.report.FactoryID, "mode", sg.report.Mode,
		"steps", len(sg.report.Steps), "ok", sg.report.OK(), "duration", time.Since(start))
}

func codeFor(err error) apperr.Code {
	if c := apperr.GetCode(err); c != "" {
		return c
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return apperr.ErrCodeTimeout
	}
	return apperr.ErrCodeNetwork
}

// =============================================================================
// Mode selection
// =============================================================================

// ChooseMode picks the save path. A missing or empty remote document is
// created. Otherwise the document is patched partially when either the
// remote or the current graph has only factory → shop floor edges, and in
// full otherwise.
func ChooseMode(remote flow.Document, found bool, current flow.Graph) Mode {
	if !found || remote.Empty() {
		return ModeCreate
	}
	if remote.FactoryData.TrivialEdges() || current.TrivialEdges() {
		return ModePartial
	}
	return ModeFull
}

// =============================================================================
// Operations
// =============================================================================

// SaveOrUpdate writes g to every store, choosing the create, partial or full
// path from the remote document.
func (s *Synchronizer) SaveOrUpdate(ctx context.Context, factoryID string, g flow.Graph) Report {
	start := time.Now()
	sg, r := s.begin(ctx, factoryID)
	defer sg.finish(start)
	g = g.Expanded()

	if err := apperr.ValidateFactoryID(factoryID); err != nil {
		sg.fail(SummarySaveFailed, "validate", err)
		return *r
	}

	var remote flow.Document
	var found bool
	if !sg.runAll(SummarySaveFailed, namedCall{StepFetchDocument, func(ctx context.Context) (err error) {
		remote, found, err = s.stores.Documents.Fetch(ctx, factoryID)
		return err
	}}) {
		return *r
	}

	if payload := flow.BuildRelationPayload(g); !payload.Empty() {
		if err := sg.run(StepUpdateRelations, func(ctx context.Context) error {
			return s.stores.Relations.UpdateRelations(ctx, payload)
		}); err != nil {
			// Relation updates run on a side channel; the save continues.
			r.Notices = append(r.Notices, notice.Errorf(SummaryRelations, "%v", err))
		}
	}

	doc := flow.Document{FactoryID: factoryID, FactoryData: g}
	r.Mode = ChooseMode(remote, found, g)

	var ok bool
	switch r.Mode {
	case ModeCreate:
		ok = sg.runAll(SummarySaveFailed,
			namedCall{StepCreateDocument, func(ctx context.Context) error { return s.stores.Documents.Create(ctx, doc) }},
			namedCall{StepCreateAllocation, func(ctx context.Context) error { return s.stores.Allocations.Create(ctx, factoryID, g.Edges) }},
		)
	case ModePartial:
		ok = sg.runAll(SummarySaveFailed,
			namedCall{StepUpdateDocument, func(ctx context.Context) error { return s.stores.Documents.Update(ctx, doc) }},
		) && s.createOrUpdateAllocation(sg, factoryID, g.Edges)
	case ModeFull:
		ok = sg.runAll(SummarySaveFailed,
			namedCall{StepUpdateDocument, func(ctx context.Context) error { return s.stores.Documents.Update(ctx, doc) }},
			namedCall{StepUpdateAllocation, func(ctx context.Context) error { return s.stores.Allocations.Update(ctx, factoryID, g.Edges) }},
		)
	}
	if !ok || !sg.runAll(SummarySaveFailed, namedCall{StepSyncShopFloors, func(ctx context.Context) error {
		return s.stores.ShopFloors.SyncEdges(ctx, factoryID, g.Edges)
	}}) {
		return *r
	}

	r.Notices = append(r.Notices, notice.Successf(SummarySaved, "factory %s saved (%s)", factoryID, r.Mode))
	return *r
}

type namedCall struct {
	name string
	fn   func(ctx context.Context) error
}

// runAll runs calls in order and stops at the first failure, which is
// reported under summary.
func (sg *saga) runAll(summary string, calls ...namedCall) bool {
	for _, c := range calls {
		if err := sg.run(c.name, c.fn); err != nil {
			sg.fail(summary, c.name, err)
			return false
		}
	}
	return true
}

// createOrUpdateAllocation creates the allocation record unless one exists.
func (s *Synchronizer) createOrUpdateAllocation(sg *saga, factoryID string, edges []flow.Edge) bool {
	var exists bool
	if !sg.runAll(SummarySaveFailed, namedCall{StepAllocationExists, func(ctx context.Context) (err error) {
		exists, err = s.stores.Allocations.Exists(ctx, factoryID)
		return err
	}}) {
		return false
	}
	if exists {
		return sg.runAll(SummarySaveFailed, namedCall{StepUpdateAllocation, func(ctx context.Context) error {
			return s.stores.Allocations.Update(ctx, factoryID, edges)
		}})
	}
	return sg.runAll(SummarySaveFailed, namedCall{StepCreateAllocation, func(ctx context.Context) error {
		return s.stores.Allocations.Create(ctx, factoryID, edges)
	}})
}

// Load reads the stored graph of a factory. Without a stored document the
// graph holds only the factory node. Duplicate node ids keep their last
// occurrence, and the load layout is applied when an engine is configured.
func (s *Synchronizer) Load(ctx context.Context, factoryID, factoryName string) (flow.Graph, error) {
	if err := apperr.ValidateFactoryID(factoryID); err != nil {
		return flow.Graph{}, err
	}
	doc, found, err := s.stores.Documents.Fetch(ctx, factoryID)
	if err != nil {
		return flow.Graph{}, apperr.Wrap(codeFor(err), err, "load factory %s", factoryID)
	}
	if !found || doc.Empty() {
		s.logger.Info("no stored graph", "factory", factoryID)
		return NewGraph(factoryID, factoryName), nil
	}

	g := doc.FactoryData.Dedupe().Expanded()
	if s.engine != nil {
		laid, err := layout.Apply(ctx, s.engine, g, layout.Load())
		if err != nil {
			s.logger.Warn("load layout failed, keeping stored positions", "factory", factoryID, "err", err)
		} else {
			g = laid
		}
	}
	s.logger.Debug("loaded graph", "factory", factoryID, "nodes", len(g.Nodes), "edges", len(g.Edges))
	return g, nil
}

// NewGraph returns a graph holding only the factory node.
func NewGraph(factoryID, factoryName string) flow.Graph {
	return flow.Graph{Nodes: []flow.Node{{
		ID:       flow.FactoryNodeID(factoryID),
		Position: factoryOrigin,
		Data:     flow.FactoryData{Label: factoryName, FactoryID: factoryID, Undeletable: true},
	}}}
}

// Refresh overwrites the stored document with the entity store's current
// view and loads it.
func (s *Synchronizer) Refresh(ctx context.Context, factoryID, factoryName string) (flow.Graph, Report) {
	start := time.Now()
	sg, r := s.begin(ctx, factoryID)
	r.Mode = ModeRefresh
	defer sg.finish(start)

	var current flow.Document
	var g flow.Graph
	if !sg.runAll(SummaryRefreshFailed,
		namedCall{StepFetchTruth, func(ctx context.Context) (err error) {
			current, err = s.stores.Truth.FetchCurrent(ctx, factoryID)
			current.FactoryID = factoryID
			current.FactoryData = current.FactoryData.Expanded()
			return err
		}},
		namedCall{StepUpdateDocument, func(ctx context.Context) error {
			return s.stores.Documents.Update(ctx, current)
		}},
		namedCall{StepFetchDocument, func(ctx context.Context) (err error) {
			g, err = s.Load(ctx, factoryID, factoryName)
			return err
		}},
	) {
		return flow.Graph{}, *r
	}

	r.Notices = append(r.Notices, notice.Successf(SummaryRefreshed, "factory %s reloaded from the entity store", factoryID))
	return g, *r
}

// Reset prunes g to its factory and shop floor nodes and the edges between
// them, and writes the pruned graph to every store. The pruned graph is
// returned even when a remote call fails.
func (s *Synchronizer) Reset(ctx context.Context, factoryID string, g flow.Graph) (flow.Graph, Report) {
	start := time.Now()
	sg, r := s.begin(ctx, factoryID)
	r.Mode = ModeReset
	defer sg.finish(start)

	pruned := g.Skeleton().Expanded()
	doc := flow.Document{FactoryID: factoryID, FactoryData: pruned}

	if !sg.runAll(SummaryResetFailed,
		namedCall{StepUpdateDocument, func(ctx context.Context) error { return s.stores.Documents.Update(ctx, doc) }},
		namedCall{StepDeleteAllocation, func(ctx context.Context) error {
			return s.stores.Allocations.Delete(ctx, AllocationRecordID(factoryID))
		}},
		namedCall{StepSyncShopFloors, func(ctx context.Context) error {
			return s.stores.ShopFloors.SyncEdges(ctx, factoryID, pruned.Edges)
		}},
	) {
		return pruned, *r
	}

	r.Notices = append(r.Notices, notice.Successf(SummaryReset,
		"removed %d nodes from factory %s", len(g.Nodes)-len(pruned.Nodes), factoryID))
	return pruned, *r
}

// String summarizes the report for logs and the CLI.
func (r Report) String() string {
	if r.OK() {
		return fmt.Sprintf("%s %s: %d steps", r.FactoryID, r.Mode, len(r.Steps))
	}
	return fmt.Sprintf("%s %s: failed after %d steps: %v", r.FactoryID, r.Mode, len(r.Steps), r.Err)
}
