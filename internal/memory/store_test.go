package memory

import (
	"sort"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cortex/internal/config"
	"cortex/internal/storage"
	"cortex/internal/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	cfg := config.Default()
	cfg.Storage.DatabasePath = t.TempDir() + "/cortex.db"

	engine, err := storage.Open(cfg.Storage)
	require.NoError(t, err)
	t.Cleanup(func() { engine.Close() })

	return NewStore(engine)
}

func testNamespace(t *testing.T) types.Namespace {
	t.Helper()
	ns, err := types.ParseNamespace(types.DefaultNamespace)
	require.NoError(t, err)
	return ns
}

func TestCreateBulkAndGetBulkRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ns := testNamespace(t)

	a := New(ns, types.MemoryInsight, types.ImportanceNormal, "use bcrypt for password hashing")
	a.LinkedFiles = []string{"src/auth/hash.go"}
	a.Tags = []string{"security", "no-md5"}
	b := New(ns, types.MemoryInsight, types.ImportanceNormal, "retry with exponential backoff")

	require.NoError(t, s.CreateBulk([]*Record{a, b}))

	got, err := s.GetBulk([]string{a.ID, b.ID})
	require.NoError(t, err)
	require.Len(t, got, 2)

	byID := map[string]*Record{got[0].ID: got[0], got[1].ID: got[1]}
	loadedA := byID[a.ID]
	require.NotNil(t, loadedA)
	assert.Equal(t, a.Content, loadedA.Content)
	if diff := cmp.Diff(a.LinkedFiles, loadedA.LinkedFiles); diff != "" {
		t.Errorf("LinkedFiles mismatch (-want +got):\n%s", diff)
	}
	sort.Strings(loadedA.Tags)
	if diff := cmp.Diff([]string{"no-md5", "security"}, loadedA.Tags); diff != "" {
		t.Errorf("Tags mismatch (-want +got):\n%s", diff)
	}
}

func TestDeleteRemovesRecord(t *testing.T) {
	s := newTestStore(t)
	ns := testNamespace(t)
	r := New(ns, types.MemoryInsight, types.ImportanceNormal, "ephemeral note")
	require.NoError(t, s.Put(r))

	require.NoError(t, s.Delete(r.ID))

	_, err := s.Get(r.ID)
	require.Error(t, err)
	assert.True(t, types.IsKind(err, types.KindNotFound))
}

func TestDeleteMissingRecordReturnsNotFound(t *testing.T) {
	s := newTestStore(t)
	err := s.Delete(types.NewMemoryID())
	require.Error(t, err)
	assert.True(t, types.IsKind(err, types.KindNotFound))
}

func TestQueryByTypeAndImportance(t *testing.T) {
	s := newTestStore(t)
	ns := testNamespace(t)

	insight := New(ns, types.MemoryInsight, types.ImportanceCritical, "critical insight")
	decision := New(ns, types.MemoryDecision, types.ImportanceNormal, "a decision")
	require.NoError(t, s.Put(insight))
	require.NoError(t, s.Put(decision))

	byType, err := s.QueryByType(ns.String(), types.MemoryInsight)
	require.NoError(t, err)
	require.Len(t, byType, 1)
	assert.Equal(t, insight.ID, byType[0].ID)

	byImportance, err := s.QueryByImportance(ns.String(), types.ImportanceCritical)
	require.NoError(t, err)
	require.Len(t, byImportance, 1)
	assert.Equal(t, insight.ID, byImportance[0].ID)
}

func TestQueryByConfidenceRange(t *testing.T) {
	s := newTestStore(t)
	ns := testNamespace(t)

	low := New(ns, types.MemoryInsight, types.ImportanceNormal, "low confidence")
	low.Confidence = 0.2
	high := New(ns, types.MemoryInsight, types.ImportanceNormal, "high confidence")
	high.Confidence = 0.9
	require.NoError(t, s.Put(low))
	require.NoError(t, s.Put(high))

	results, err := s.QueryByConfidenceRange(ns.String(), 0.5, 1.0)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, high.ID, results[0].ID)
}

func TestQueryByDateRange(t *testing.T) {
	s := newTestStore(t)
	ns := testNamespace(t)

	r := New(ns, types.MemoryInsight, types.ImportanceNormal, "dated")
	require.NoError(t, s.Put(r))

	from := time.Now().Add(-time.Hour)
	to := time.Now().Add(time.Hour)
	results, err := s.QueryByDateRange(ns.String(), from, to)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, r.ID, results[0].ID)

	none, err := s.QueryByDateRange(ns.String(), to, to.Add(time.Hour))
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestQueryByTags(t *testing.T) {
	s := newTestStore(t)
	ns := testNamespace(t)

	tagged := New(ns, types.MemoryInsight, types.ImportanceNormal, "tagged memory")
	tagged.Tags = []string{"security", "crypto"}
	untagged := New(ns, types.MemoryInsight, types.ImportanceNormal, "untagged memory")
	require.NoError(t, s.Put(tagged))
	require.NoError(t, s.Put(untagged))

	results, err := s.QueryByTags(ns.String(), []string{"crypto"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, tagged.ID, results[0].ID)
}

func TestRelationshipAddGetRemove(t *testing.T) {
	s := newTestStore(t)
	ns := testNamespace(t)

	source := New(ns, types.MemoryInsight, types.ImportanceNormal, "source memory")
	target := New(ns, types.MemoryInsight, types.ImportanceNormal, "target memory")
	require.NoError(t, s.Put(source))
	require.NoError(t, s.Put(target))

	rel := Relationship{
		SourceID:         source.ID,
		TargetID:         target.ID,
		RelationshipType: "supersedes",
		Strength:         0.8,
		Evidence:         []string{"observed in PR #42"},
	}
	require.NoError(t, s.AddRelationship(rel))

	got, err := s.GetRelationships(source.ID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, rel.RelationshipType, got[0].RelationshipType)
	assert.Equal(t, rel.Strength, got[0].Strength)
	if diff := cmp.Diff(rel.Evidence, got[0].Evidence); diff != "" {
		t.Errorf("Evidence mismatch (-want +got):\n%s", diff)
	}

	require.NoError(t, s.RemoveRelationship(source.ID, target.ID, "supersedes"))
	got, err = s.GetRelationships(source.ID)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestAddRelationshipUpsertsOnConflict(t *testing.T) {
	s := newTestStore(t)
	ns := testNamespace(t)

	source := New(ns, types.MemoryInsight, types.ImportanceNormal, "source memory")
	target := New(ns, types.MemoryInsight, types.ImportanceNormal, "target memory")
	require.NoError(t, s.Put(source))
	require.NoError(t, s.Put(target))

	rel := Relationship{SourceID: source.ID, TargetID: target.ID, RelationshipType: "relates_to", Strength: 0.5}
	require.NoError(t, s.AddRelationship(rel))
	rel.Strength = 0.95
	require.NoError(t, s.AddRelationship(rel))

	got, err := s.GetRelationships(source.ID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 0.95, got[0].Strength)
}
