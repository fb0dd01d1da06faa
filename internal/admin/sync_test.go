package admin

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkellner/shopctl/internal/apierr"
)

func upsertOp(entity, key string) Operation {
	return Operation{
		Entity:  entity,
		Action:  ActionUpsert,
		Payload: []map[string]any{{"name": "x"}},
		Key:     key,
	}
}

// bodyKeys returns the top-level member names of a JSON object in document
// order.
func bodyKeys(t *testing.T, raw []byte) []string {
	t.Helper()
	dec := json.NewDecoder(strings.NewReader(string(raw)))
	tok, err := dec.Token()
	require.NoError(t, err)
	require.Equal(t, json.Delim('{'), tok)

	var keys []string
	for dec.More() {
		tok, err := dec.Token()
		require.NoError(t, err)
		keys = append(keys, tok.(string))

		var skip json.RawMessage
		require.NoError(t, dec.Decode(&skip))
	}
	return keys
}

func TestSyncPreservesOperationOrder(t *testing.T) {
	svc, rec := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		okJSON(w, `{"data":{},"notFound":[],"deleted":[]}`)
	})

	// Keys chosen so alphabetical ordering would flip them.
	ops := []Operation{
		upsertOp("category", "zebra"),
		upsertOp("product", "alpha"),
	}
	_, err := svc.Sync(context.Background(), ops)
	require.NoError(t, err)

	assert.Equal(t, "/api/_action/sync", rec.path)
	assert.Equal(t, []string{"zebra", "alpha"}, bodyKeys(t, rec.body))

	var decoded map[string]syncEntry
	require.NoError(t, json.Unmarshal(rec.body, &decoded))
	assert.Equal(t, "category", decoded["zebra"].Entity)
	assert.Equal(t, "product", decoded["alpha"].Entity)
}

func TestSyncGeneratesUniqueKeys(t *testing.T) {
	svc, rec := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		okJSON(w, `{"data":{}}`)
	})

	ops := []Operation{
		upsertOp("product", ""),
		upsertOp("product", ""),
	}
	_, err := svc.Sync(context.Background(), ops)
	require.NoError(t, err)

	keys := bodyKeys(t, rec.body)
	require.Len(t, keys, 2)
	assert.NotEqual(t, keys[0], keys[1])
	for _, key := range keys {
		assert.True(t, strings.HasPrefix(key, "upsert-product-"), "key %q", key)
	}
}

func TestSyncDuplicateKeyIsCallerError(t *testing.T) {
	svc, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected for invalid batches")
	})

	_, err := svc.Sync(context.Background(), []Operation{
		upsertOp("product", "same"),
		upsertOp("category", "same"),
	})
	var ve *apierr.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Detail, "same")
}

func TestSyncValidatesOperations(t *testing.T) {
	svc, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected for invalid batches")
	})

	tests := []struct {
		name string
		ops  []Operation
	}{
		{"empty batch", nil},
		{"missing entity", []Operation{{Action: ActionUpsert, Payload: []map[string]any{{}}}}},
		{"bad action", []Operation{{Entity: "product", Action: "replace", Payload: []map[string]any{{}}}}},
		{"empty payload", []Operation{{Entity: "product", Action: ActionDelete}}},
		{"bad indexing behavior", []Operation{{
			Entity: "product", Action: ActionUpsert,
			Payload:          []map[string]any{{}},
			IndexingBehavior: "maybe-later",
		}}},
		{"mixed indexing behaviors", []Operation{
			{Entity: "product", Action: ActionUpsert, Payload: []map[string]any{{}}, IndexingBehavior: IndexingQueued},
			{Entity: "category", Action: ActionUpsert, Payload: []map[string]any{{}}, IndexingBehavior: IndexingDisabled},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Sync(context.Background(), tt.ops)
			var ve *apierr.ValidationError
			require.ErrorAs(t, err, &ve)
		})
	}
}

func TestSyncSetsPerformanceHeaders(t *testing.T) {
	svc, rec := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		okJSON(w, `{"data":{}}`)
	})

	op := upsertOp("product", "k1")
	op.IndexingBehavior = IndexingQueued
	op.SkipTriggerFlow = true

	_, err := svc.Sync(context.Background(), []Operation{op})
	require.NoError(t, err)

	assert.Equal(t, IndexingQueued, rec.headers.Get("indexing-behavior"))
	assert.Equal(t, "1", rec.headers.Get("sw-skip-trigger-flow"))
}

func TestSyncOmitsHeadersByDefault(t *testing.T) {
	svc, rec := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		okJSON(w, `{"data":{}}`)
	})

	_, err := svc.Sync(context.Background(), []Operation{upsertOp("product", "k1")})
	require.NoError(t, err)

	assert.Empty(t, rec.headers.Get("indexing-behavior"))
	assert.Empty(t, rec.headers.Get("sw-skip-trigger-flow"))
}

func TestSyncFailureIsSingleBatchError(t *testing.T) {
	detail := `{"errors":[{"source":{"pointer":"/alpha/0"},"detail":"missing taxId"}]}`
	svc, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(detail))
	})

	_, err := svc.Sync(context.Background(), []Operation{
		upsertOp("category", "alpha"),
		upsertOp("product", "beta"),
	})
	require.Error(t, err)

	// The remote's per-operation detail is passed through unmodified.
	var re *apierr.RemoteError
	require.ErrorAs(t, err, &re)
	assert.JSONEq(t, detail, string(re.Payload))
}

func TestParseSyncReport(t *testing.T) {
	svc, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		okJSON(w, `{"data":{"product":[{"id":"p1"}]},"notFound":[],"deleted":[{"id":"d1"}]}`)
	})

	res, err := svc.Sync(context.Background(), []Operation{upsertOp("product", "k1")})
	require.NoError(t, err)

	report, ok := ParseSyncReport(res)
	require.True(t, ok)
	assert.Len(t, report.Data, 1)
	assert.Len(t, report.Deleted, 1)
	assert.Empty(t, report.NotFound)
}
