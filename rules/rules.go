//go:build ruleguard

// Package gorules defines project lint rules for gocritic's ruleguard checker.
package gorules

import "github.com/quasilyte/go-ruleguard/dsl"

// StorageThroughAfero flags direct os file access in packages that must work
// against an injected afero.Fs, so tests can run on a MemMapFs.
func StorageThroughAfero(m dsl.Matcher) {
	m.Match(
		`os.Open($*_)`,
		`os.OpenFile($*_)`,
		`os.Create($*_)`,
		`os.Remove($*_)`,
		`os.RemoveAll($*_)`,
		`os.Rename($*_)`,
		`os.MkdirAll($*_)`,
		`os.ReadFile($*_)`,
		`os.WriteFile($*_)`,
		`os.Stat($*_)`,
	).
		Where(m.File().PkgPath.Matches(`internal/(media|audio|cleaner|document|manifest|diskmanager)$`) &&
			!m.File().Name.Matches(`_test\.go$`)).
		Report("use the injected afero.Fs instead of $$ so the package stays testable on MemMapFs")
}

// CategorizedErrors flags stdlib error construction in domain packages.
// Errors leaving these packages carry a component and category.
func CategorizedErrors(m dsl.Matcher) {
	m.Import("errors")

	m.Match(`errors.New($msg)`).
		Where(m.File().PkgPath.Matches(`internal/(pcm|stream|media|undo|audio|cleaner|document|manifest)$`) &&
			m.File().Imports("errors")).
		Report("use internal/errors constructors (State, ArgumentDomain, Incompatible, ...) instead of stdlib errors.New")
}

// SortSliceFunc suggests slices.SortFunc over sort.Slice.
func SortSliceFunc(m dsl.Matcher) {
	m.Match(`sort.Slice($s, $_)`, `sort.SliceStable($s, $_)`).
		Report("use slices.SortFunc or slices.SortStableFunc on $s instead of sort.Slice (Go 1.21+)")
}

// WaitGroupGo detects the manual Add/Done pattern and suggests wg.Go (Go 1.25+).
func WaitGroupGo(m dsl.Matcher) {
	m.Match(`$wg.Add(1); go func() { defer $wg.Done(); $*body }()`).
		Where(m["wg"].Type.Is("*sync.WaitGroup") || m["wg"].Type.Is("sync.WaitGroup")).
		Report("use $wg.Go(func() { $body }) instead of manual Add/Done pattern (Go 1.25+)").
		Suggest("$wg.Go(func() { $body })")
}

// DeferredTimeSince catches defer statements whose duration is evaluated
// when the defer is registered.
func DeferredTimeSince(m dsl.Matcher) {
	m.Match(
		`defer $f(time.Since($start))`,
		`defer $f($*_, time.Since($start))`,
		`defer $f(time.Since($start), $*_)`,
	).
		Report("time.Since($start) is evaluated at defer time, not function exit; wrap in func() to measure actual duration")
}

// TestingContext suggests t.Context() over context.Background() in tests (Go 1.24+).
func TestingContext(m dsl.Matcher) {
	m.Match(`context.Background()`, `context.TODO()`).
		Where(m.File().Name.Matches(`_test\.go$`)).
		Report("use t.Context() (or b.Context()) instead of $$ in tests (Go 1.24+)")
}

// BenchmarkLoop suggests b.Loop() over b.N iteration (Go 1.24+).
func BenchmarkLoop(m dsl.Matcher) {
	m.Match(`for $i := 0; $i < $b.N; $i++ { $*body }`, `for $i := range $b.N { $*body }`).
		Where(m["b"].Type.Is("*testing.B")).
		Report("use for $b.Loop() { ... } instead of iterating $b.N (Go 1.24+)")

	m.Match(`for range $b.N { $*body }`).
		Where(m["b"].Type.Is("*testing.B")).
		Report("use for $b.Loop() { ... } instead of for range $b.N (Go 1.24+)").
		Suggest("for $b.Loop() { $body }")
}
