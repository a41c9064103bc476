// Package suppression collapses cascades of dependent findings using an
// externally maintained parent-to-children map. The map is loaded from a
// versioned JSON artifact and hot-reloaded when the file changes; readers
// always observe either the previous map or a fully parsed new one.
package suppression

import (
	"context"
	"encoding/json"
	"os"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/invoiceguard/invoiceguard/internal/model"
	"github.com/invoiceguard/invoiceguard/internal/resilience"
)

// snapshot is an immutable view of the suppression map. Readers take the
// whole snapshot; reloads replace it wholesale.
type snapshot struct {
	rules   map[string][]string
	modTime time.Time
}

// Filter suppresses findings that are known side effects of another finding
// present in the same batch. Safe for concurrent use across requests.
type Filter struct {
	path   string
	retry  resilience.RetryConfig
	snap   atomic.Pointer[snapshot]
	reload singleflight.Group
}

// NewFilter creates a filter backed by the JSON artifact at path and performs
// the initial load. A missing or malformed artifact degrades to an empty map
// with a warning; it never blocks startup.
func NewFilter(ctx context.Context, path string) *Filter {
	f := &Filter{
		path:  path,
		retry: resilience.DefaultRetryConfig(),
	}
	f.retry.OnRetry = resilience.RetryLogger("suppression", "load")
	f.snap.Store(&snapshot{rules: map[string][]string{}})

	snap, err := f.load(ctx)
	if err != nil {
		zap.L().Warn("suppression: initial load failed, starting with empty map",
			zap.String("path", path),
			zap.Error(err),
		)
		return f
	}
	f.snap.Store(snap)
	return f
}

// Rules returns a copy of the currently active map. Intended for status
// output and tests.
func (f *Filter) Rules() map[string][]string {
	snap := f.snap.Load()
	out := make(map[string][]string, len(snap.rules))
	for parent, children := range snap.rules {
		out[parent] = append([]string(nil), children...)
	}
	return out
}

// Apply marks every finding whose id is a configured child of another id
// present in the batch. It first reloads the map if the backing artifact has
// changed. Idempotent: re-applying never clears a suppression flag.
func (f *Filter) Apply(ctx context.Context, findings []model.NormalizedFinding) {
	f.reloadIfChanged(ctx)

	rules := f.snap.Load().rules
	if len(rules) == 0 || len(findings) == 0 {
		return
	}

	present := make(map[string]struct{}, len(findings))
	for i := range findings {
		present[findings[i].ID] = struct{}{}
	}

	suppress := make(map[string]struct{})
	for parent := range present {
		for _, child := range rules[parent] {
			// A finding never suppresses itself, even if misconfigured.
			if child != parent {
				suppress[child] = struct{}{}
			}
		}
	}

	for i := range findings {
		if _, ok := suppress[findings[i].ID]; ok {
			findings[i].Suppressed = true
		}
	}
}

// reloadIfChanged checks the artifact's modification time and reloads when it
// has advanced. Concurrent callers share a single reload; failure keeps the
// previously loaded map.
func (f *Filter) reloadIfChanged(ctx context.Context) {
	info, err := os.Stat(f.path)
	if err != nil {
		// Artifact gone or unreadable: keep serving the last good map.
		return
	}
	if !info.ModTime().After(f.snap.Load().modTime) {
		return
	}

	_, err, _ = f.reload.Do("reload", func() (any, error) {
		// Re-check under the flight: another caller may have finished the
		// reload while this one was queued.
		if !info.ModTime().After(f.snap.Load().modTime) {
			return nil, nil
		}
		snap, loadErr := f.load(ctx)
		if loadErr != nil {
			return nil, loadErr
		}
		f.snap.Store(snap)
		zap.L().Info("suppression: map reloaded",
			zap.String("path", f.path),
			zap.Int("parents", len(snap.rules)),
		)
		return nil, nil
	})
	if err != nil {
		zap.L().Warn("suppression: reload failed, keeping previous map",
			zap.String("path", f.path),
			zap.Error(err),
		)
	}
}

// load reads and validates the artifact under a shared advisory lock,
// retrying with bounded exponential backoff if a writer holds it.
func (f *Filter) load(ctx context.Context) (*snapshot, error) {
	// Stat before locking: acquiring an advisory lock would create a missing
	// artifact as an empty file.
	if _, err := os.Stat(f.path); err != nil {
		return nil, eris.Wrap(err, "suppression: stat artifact")
	}

	lock := flock.New(f.path)
	err := resilience.Do(ctx, f.retry, func(ctx context.Context) error {
		locked, lockErr := lock.TryRLock()
		if lockErr != nil {
			return eris.Wrap(lockErr, "suppression: acquire read lock")
		}
		if !locked {
			return resilience.NewContentionError(eris.New("suppression: artifact exclusively locked"))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	defer func() { _ = lock.Unlock() }()

	info, err := os.Stat(f.path)
	if err != nil {
		return nil, eris.Wrap(err, "suppression: stat artifact")
	}
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, eris.Wrap(err, "suppression: read artifact")
	}

	rules, err := parseRules(data)
	if err != nil {
		return nil, err
	}
	return &snapshot{rules: rules, modTime: info.ModTime()}, nil
}

// parseRules validates the artifact schema: an object mapping rule ids to
// lists of rule ids. Malformed entries are logged and skipped; only a
// non-object root is fatal to the load.
func parseRules(data []byte) (map[string][]string, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, eris.Wrap(err, "suppression: artifact is not a JSON object")
	}

	rules := make(map[string][]string, len(raw))
	for parent, value := range raw {
		list, ok := value.([]any)
		if !ok {
			zap.L().Warn("suppression: skipping entry with non-list children",
				zap.String("parent", parent),
			)
			continue
		}
		children := make([]string, 0, len(list))
		for _, item := range list {
			child, ok := item.(string)
			if !ok {
				zap.L().Warn("suppression: skipping non-string child id",
					zap.String("parent", parent),
				)
				continue
			}
			children = append(children, child)
		}
		rules[parent] = children
	}
	return rules, nil
}
