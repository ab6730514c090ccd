package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/Seann-Moser/go-bench/pkg/bench"
	"github.com/Seann-Moser/go-bench/pkg/ctxLogger"
	"github.com/Seann-Moser/go-bench/pkg/ps"
	"github.com/Seann-Moser/go-bench/pkg/tieredCache"
)

const (
	HistorySizeFlag = "dashboard-history-size"
	CachePrefixFlag = "dashboard-cache-prefix"

	DefaultHistorySize = 100
	DefaultCachePrefix = "bench:group:"

	failureMessage = "Failed to complete benchmark for %s. Please try again later."
)

var (
	ErrBusy         = errors.New("a benchmark is already running")
	ErrUnknownGroup = errors.New("unknown benchmark group")
	ErrRunFailed    = errors.New("benchmark run failed")
)

// RunError is returned by Board.Run when the runner fails. Message is the
// text shown to dashboard users.
type RunError struct {
	Group   string
	Message string
	Err     error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrRunFailed, e.Group, e.Err)
}

func (e *RunError) Unwrap() []error {
	return []error{ErrRunFailed, e.Err}
}

// GroupRunner measures every endpoint of a group.
type GroupRunner interface {
	Run(ctx context.Context, g bench.Group) ([]bench.BenchmarkData, error)
}

// GroupState is the latest result set of one group.
type GroupState struct {
	Name      string                `json:"name"`
	Unit      string                `json:"unit"`
	Data      []bench.BenchmarkData `json:"data"`
	UpdatedAt *time.Time            `json:"updatedAt,omitempty"`
	RunID     string                `json:"runId,omitempty"`
}

type Run struct {
	ID         string                `json:"id"`
	Group      string                `json:"group"`
	StartedAt  time.Time             `json:"startedAt"`
	FinishedAt time.Time             `json:"finishedAt"`
	Data       []bench.BenchmarkData `json:"data,omitempty"`
	Error      string                `json:"error,omitempty"`
}

type Snapshot struct {
	Groups  []GroupState `json:"groups"`
	Loading bool         `json:"loading"`
	Running string       `json:"running,omitempty"`
	Error   string       `json:"error,omitempty"`
}

// Board holds the presented state of every group. Only one group runs at a time.
type Board struct {
	runner GroupRunner
	groups []bench.Group
	index  map[string]int

	cache       tieredCache.Cache
	cachePrefix string
	publisher   ps.Publisher[GroupState]
	topic       string
	historySize int
	now         func() time.Time

	mu      sync.Mutex
	states  map[string]GroupState
	running string
	err     string
	runs    []Run
}

type Option func(*Board)

func WithCache(cache tieredCache.Cache, prefix string) Option {
	return func(b *Board) {
		b.cache = cache
		b.cachePrefix = prefix
	}
}

func WithPublisher(publisher ps.Publisher[GroupState], topic string) Option {
	return func(b *Board) {
		b.publisher = publisher
		b.topic = topic
	}
}

func WithHistorySize(n int) Option {
	return func(b *Board) { b.historySize = n }
}

func WithClock(now func() time.Time) Option {
	return func(b *Board) { b.now = now }
}

func Flags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("dashboard", pflag.ExitOnError)
	fs.Int(HistorySizeFlag, DefaultHistorySize, "number of runs kept in memory")
	fs.String(CachePrefixFlag, DefaultCachePrefix, "cache key prefix for group results")
	return fs
}

// OptionsFromFlags returns the history and cache options configured by Flags.
func OptionsFromFlags(cache tieredCache.Cache) []Option {
	prefix := viper.GetString(CachePrefixFlag)
	if prefix == "" {
		prefix = DefaultCachePrefix
	}
	return []Option{
		WithHistorySize(viper.GetInt(HistorySizeFlag)),
		WithCache(cache, prefix),
	}
}

func NewBoard(runner GroupRunner, groups []bench.Group, opts ...Option) (*Board, error) {
	b := &Board{
		runner:      runner,
		index:       map[string]int{},
		states:      map[string]GroupState{},
		cachePrefix: DefaultCachePrefix,
		historySize: DefaultHistorySize,
		now:         time.Now,
	}
	for i, g := range groups {
		if err := g.Validate(); err != nil {
			return nil, err
		}
		if _, ok := b.index[g.Name]; ok {
			return nil, fmt.Errorf("duplicate group %s", g.Name)
		}
		b.index[g.Name] = i
		b.groups = append(b.groups, g)
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.historySize <= 0 {
		b.historySize = DefaultHistorySize
	}
	return b, nil
}

func (b *Board) Groups() []bench.Group {
	return append([]bench.Group(nil), b.groups...)
}

// Run measures one group and replaces its result set. Other groups are untouched.
// A failed run keeps the previous result set and sets the board error.
func (b *Board) Run(ctx context.Context, name string, override *bench.Override) (GroupState, error) {
	i, ok := b.index[name]
	if !ok {
		return GroupState{}, fmt.Errorf("%w: %s", ErrUnknownGroup, name)
	}
	group := b.groups[i].WithOverride(override)

	b.mu.Lock()
	if b.running != "" {
		running := b.running
		b.mu.Unlock()
		return GroupState{}, fmt.Errorf("%w: %s", ErrBusy, running)
	}
	b.running = name
	b.err = ""
	b.mu.Unlock()

	run := Run{ID: uuid.NewString(), Group: name, StartedAt: b.now()}
	ctx = ctxLogger.With(ctx, zap.String("run_id", run.ID))
	ctxLogger.Info(ctx, "benchmark started", zap.String("group", name))

	data, err := b.runner.Run(ctx, group)
	run.FinishedAt = b.now()

	b.mu.Lock()
	b.running = ""
	if err != nil {
		runErr := &RunError{Group: name, Message: fmt.Sprintf(failureMessage, name), Err: err}
		b.err = runErr.Message
		run.Error = err.Error()
		b.record(run)
		b.mu.Unlock()
		ctxLogger.Warn(ctx, "benchmark failed", zap.String("group", name), zap.Error(err))
		return GroupState{}, runErr
	}
	updated := run.FinishedAt
	state := GroupState{
		Name:      group.Name,
		Unit:      group.Unit,
		Data:      data,
		UpdatedAt: &updated,
		RunID:     run.ID,
	}
	b.states[name] = state
	run.Data = data
	b.record(run)
	b.mu.Unlock()

	ctxLogger.Info(ctx, "benchmark finished", zap.String("group", name), zap.Duration("elapsed", run.FinishedAt.Sub(run.StartedAt)))
	b.persist(ctx, state)
	return copyState(state), nil
}

// record appends to the bounded history. Caller holds mu.
func (b *Board) record(run Run) {
	b.runs = append(b.runs, run)
	if over := len(b.runs) - b.historySize; over > 0 {
		b.runs = append([]Run(nil), b.runs[over:]...)
	}
}

func (b *Board) persist(ctx context.Context, state GroupState) {
	// results outlive the request that produced them
	ctx = context.WithoutCancel(ctx)
	if b.cache != nil {
		if err := tieredCache.Set(ctx, b.cache, b.cachePrefix+state.Name, state); err != nil {
			ctxLogger.Warn(ctx, "failed caching group state", zap.String("group", state.Name), zap.Error(err))
		}
	}
	if b.publisher != nil {
		published := copyState(state)
		if err := b.publisher.Publish(ctx, b.topic, &published); err != nil {
			ctxLogger.Warn(ctx, "failed publishing group state", zap.String("group", state.Name), zap.Error(err))
		}
	}
}

// Restore loads cached result sets for every configured group and returns how many were found.
func (b *Board) Restore(ctx context.Context) int {
	if b.cache == nil {
		return 0
	}
	restored := 0
	for _, g := range b.groups {
		state, err := tieredCache.Get[GroupState](ctx, b.cache, b.cachePrefix+g.Name)
		if err != nil {
			if !errors.Is(err, tieredCache.ErrCacheMiss) {
				ctxLogger.Warn(ctx, "failed restoring group state", zap.String("group", g.Name), zap.Error(err))
			}
			continue
		}
		state.Unit = g.Unit
		b.mu.Lock()
		b.states[g.Name] = *state
		b.mu.Unlock()
		restored++
	}
	return restored
}

// Snapshot returns a deep copy of every group in configuration order.
func (b *Board) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := Snapshot{
		Groups:  make([]GroupState, 0, len(b.groups)),
		Loading: b.running != "",
		Running: b.running,
		Error:   b.err,
	}
	for _, g := range b.groups {
		state, ok := b.states[g.Name]
		if !ok {
			state = GroupState{Name: g.Name, Unit: g.Unit}
		}
		s.Groups = append(s.Groups, copyState(state))
	}
	return s
}

// Runs returns the run history, newest first.
func (b *Board) Runs() []Run {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Run, 0, len(b.runs))
	for i := len(b.runs) - 1; i >= 0; i-- {
		r := b.runs[i]
		r.Data = copyData(r.Data)
		out = append(out, r)
	}
	return out
}

func copyState(s GroupState) GroupState {
	s.Data = copyData(s.Data)
	if s.UpdatedAt != nil {
		t := *s.UpdatedAt
		s.UpdatedAt = &t
	}
	return s
}

func copyData(d []bench.BenchmarkData) []bench.BenchmarkData {
	out := make([]bench.BenchmarkData, len(d))
	copy(out, d)
	return out
}
