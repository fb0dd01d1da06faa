package admin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/mkellner/shopctl/internal/apierr"
	"github.com/mkellner/shopctl/internal/client"
)

// Sync actions.
const (
	ActionUpsert = "upsert"
	ActionDelete = "delete"
)

// Indexing behaviors accepted by the sync endpoint. Empty means synchronous
// indexing, the remote default.
const (
	IndexingQueued   = "use-queue-indexing"
	IndexingDisabled = "disable-indexing"
)

// Operation is one named batch inside a sync request. Immutable once built;
// one call to Sync maps the whole slice onto a single transactional request.
type Operation struct {
	Entity           string           `json:"entity"`
	Action           string           `json:"action"`
	Payload          []map[string]any `json:"payload"`
	Key              string           `json:"key,omitempty"`
	IndexingBehavior string           `json:"indexingBehavior,omitempty"`
	SkipTriggerFlow  bool             `json:"skipTriggerFlow,omitempty"`
}

// syncEntry is the wire shape of one operation.
type syncEntry struct {
	Entity  string           `json:"entity"`
	Action  string           `json:"action"`
	Payload []map[string]any `json:"payload"`
}

// SyncReport is the envelope of a successful sync response.
type SyncReport struct {
	Data     map[string]any `json:"data"`
	NotFound []any          `json:"notFound"`
	Deleted  []any          `json:"deleted"`
}

// Sync POSTs the operations as one transactional request to
// /api/_action/sync. The remote applies the batch atomically; a non-2xx
// comes back as a single RemoteError with the remote's per-operation detail
// passed through unmodified. Operations are never split or reordered — the
// request body preserves input order because batches can be order-sensitive
// (categories before the products that reference them).
//
// An abandoned call (cancelled context) may still have committed on the
// remote; the error only means the outcome was not observed locally.
func (s *Service) Sync(ctx context.Context, ops []Operation) (*client.Result, error) {
	batch := make([]Operation, len(ops))
	copy(batch, ops)

	indexing, skipFlow, err := validateSyncOps(batch)
	if err != nil {
		return nil, err
	}

	body, err := encodeSyncBody(batch)
	if err != nil {
		return nil, err
	}

	var opts []client.RequestOption
	if indexing != "" {
		opts = append(opts, client.WithHeader("indexing-behavior", indexing))
	}
	if skipFlow {
		opts = append(opts, client.WithHeader("sw-skip-trigger-flow", "1"))
	}

	res, err := s.dispatcher.Dispatch(ctx, http.MethodPost, "/_action/sync", body, nil, opts...)
	if err != nil {
		return nil, err
	}

	if report, ok := ParseSyncReport(res); ok {
		s.logger.Info().
			Int("operations", len(batch)).
			Int("entities_written", len(report.Data)).
			Int("not_found", len(report.NotFound)).
			Int("deleted", len(report.Deleted)).
			Msg("sync batch applied")
	}
	return res, nil
}

// ParseSyncReport decodes the sync response envelope from a 2xx result.
func ParseSyncReport(res *client.Result) (SyncReport, bool) {
	var report SyncReport
	if res == nil || len(res.Raw) == 0 {
		return report, false
	}
	if err := json.Unmarshal(res.Raw, &report); err != nil {
		return SyncReport{}, false
	}
	return report, true
}

// validateSyncOps checks the batch before any network call and resolves the
// batch-level headers. All operations must agree on the indexing behavior
// because it is a request header, not a per-operation field.
func validateSyncOps(ops []Operation) (indexing string, skipFlow bool, err error) {
	if len(ops) == 0 {
		return "", false, &apierr.ValidationError{Detail: "sync requires at least one operation"}
	}

	seen := make(map[string]struct{}, len(ops))
	for i := range ops {
		op := &ops[i]
		if op.Entity == "" {
			return "", false, &apierr.ValidationError{Detail: fmt.Sprintf("operation %d: entity is required", i)}
		}
		if op.Action != ActionUpsert && op.Action != ActionDelete {
			return "", false, &apierr.ValidationError{Detail: fmt.Sprintf("operation %d: action must be %q or %q, got %q", i, ActionUpsert, ActionDelete, op.Action)}
		}
		if len(op.Payload) == 0 {
			return "", false, &apierr.ValidationError{Detail: fmt.Sprintf("operation %d: payload must not be empty", i)}
		}
		switch op.IndexingBehavior {
		case "", IndexingQueued, IndexingDisabled:
		default:
			return "", false, &apierr.ValidationError{Detail: fmt.Sprintf("operation %d: unknown indexing behavior %q", i, op.IndexingBehavior)}
		}
		if op.IndexingBehavior != "" {
			if indexing != "" && indexing != op.IndexingBehavior {
				return "", false, &apierr.ValidationError{Detail: "operations disagree on indexing behavior"}
			}
			indexing = op.IndexingBehavior
		}
		if op.SkipTriggerFlow {
			skipFlow = true
		}

		key := op.Key
		if key == "" {
			key = generatedKey(op.Action, op.Entity)
			op.Key = key
		}
		if _, dup := seen[key]; dup {
			return "", false, &apierr.ValidationError{Detail: fmt.Sprintf("duplicate operation key %q", key)}
		}
		seen[key] = struct{}{}
	}
	return indexing, skipFlow, nil
}

// encodeSyncBody hand-builds the JSON object so member order equals input
// order; json.Marshal of a map would sort keys alphabetically.
func encodeSyncBody(ops []Operation) (json.RawMessage, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, op := range ops {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(op.Key)
		if err != nil {
			return nil, &apierr.ValidationError{Detail: fmt.Sprintf("operation key %q is not serializable: %v", op.Key, err)}
		}
		buf.Write(key)
		buf.WriteByte(':')
		entry, err := json.Marshal(syncEntry{Entity: op.Entity, Action: op.Action, Payload: op.Payload})
		if err != nil {
			return nil, &apierr.ValidationError{Detail: fmt.Sprintf("operation %q payload is not serializable: %v", op.Key, err)}
		}
		buf.Write(entry)
	}
	buf.WriteByte('}')
	return json.RawMessage(buf.Bytes()), nil
}

func generatedKey(action, entity string) string {
	return fmt.Sprintf("%s-%s-%s", action, entity, uuid.NewString()[:8])
}
