package investigate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seclens/edrsearch-mcp/internal/cache"
	"github.com/seclens/edrsearch-mcp/pkg/edr"
	"github.com/seclens/edrsearch-mcp/pkg/query"
)

// fakeClient records every query string and serves canned responses.
type fakeClient struct {
	queries   []string
	records   []edr.Record
	searchErr error

	alerts      map[string]edr.Record
	singleCalls int
	batchIDs    [][]string
}

func (f *fakeClient) SearchEvents(_ context.Context, queryString string, _ edr.SearchOptions) ([]edr.Record, error) {
	f.queries = append(f.queries, queryString)
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.records, nil
}

func (f *fakeClient) GetAlertsByIDs(_ context.Context, ids []string) ([]edr.Record, error) {
	f.batchIDs = append(f.batchIDs, ids)
	var out []edr.Record
	for _, id := range ids {
		if rec, ok := f.alerts[id]; ok {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (f *fakeClient) GetSingleAlert(_ context.Context, id string) (edr.Record, error) {
	f.singleCalls++
	rec, ok := f.alerts[id]
	if !ok {
		return nil, nil
	}
	return rec, nil
}

func (f *fakeClient) QueryAlertIDs(_ context.Context, _ string, _ edr.AlertQueryOptions) ([]string, error) {
	return []string{"ldt:a:1"}, nil
}

func (f *fakeClient) SearchAndGetAlerts(_ context.Context, _ string, _ edr.AlertQueryOptions) ([]edr.Record, error) {
	return []edr.Record{}, nil
}

func TestHashByFilenameScopesToHost(t *testing.T) {
	fake := &fakeClient{records: []edr.Record{{"SHA256HashData": "abc"}}}
	inv := New(fake)

	records, err := inv.HashByFilename(context.Background(), "evil.exe",
		query.IncludeHost("H1"), edr.SearchOptions{})
	require.NoError(t, err)
	require.Len(t, records, 1)

	require.Len(t, fake.queries, 1)
	assert.Equal(t,
		`FileName="evil.exe" AND SHA256HashData=/.+/ AND aid="H1"`+
			` | select([timestamp, aid, #event_simpleName, FilePath, FileName, SHA256HashData])`,
		fake.queries[0])
}

func TestHashByFilenameExcludedHost(t *testing.T) {
	fake := &fakeClient{}
	inv := New(fake)

	_, err := inv.HashByFilename(context.Background(), "evil.exe",
		query.ExcludeHost("H1"), edr.SearchOptions{})
	require.NoError(t, err)
	assert.Contains(t, fake.queries[0], `aid!="H1"`)
}

func TestHashByFilenameEmptyResultIsNotAnError(t *testing.T) {
	fake := &fakeClient{records: []edr.Record{}}
	inv := New(fake)

	records, err := inv.HashByFilename(context.Background(), "ghost.exe",
		query.Unrestricted(), edr.SearchOptions{})
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestHashByFilenameRejectsEmptyFilename(t *testing.T) {
	fake := &fakeClient{}
	inv := New(fake)

	_, err := inv.HashByFilename(context.Background(), "",
		query.Unrestricted(), edr.SearchOptions{})
	require.ErrorIs(t, err, query.ErrEmptyTemplate)
	assert.Empty(t, fake.queries)
}

func TestProcessTemplatesRequireHost(t *testing.T) {
	fake := &fakeClient{}
	inv := New(fake)

	_, err := inv.ProcessStartupByPID(context.Background(), "40612979432", "", edr.SearchOptions{})
	require.ErrorIs(t, err, ErrMissingHost)
	assert.Empty(t, fake.queries, "validation must fail before any backend contact")
}

func TestProcessStartupByPIDQuery(t *testing.T) {
	fake := &fakeClient{}
	inv := New(fake)

	_, err := inv.ProcessStartupByPID(context.Background(), "40612979432", "H1", edr.SearchOptions{})
	require.NoError(t, err)
	assert.Equal(t,
		`TargetProcessId="40612979432" AND aid="H1"`+
			` | select([timestamp, aid, FilePath, FileName, TargetProcessId, CommandLine, ParentBaseFileName, ParentProcessId])`,
		fake.queries[0])
}

func TestProcessDetailsRenamesFields(t *testing.T) {
	fake := &fakeClient{}
	inv := New(fake)

	_, err := inv.ProcessDetailsByPID(context.Background(), "123", "H1", edr.SearchOptions{})
	require.NoError(t, err)
	q := fake.queries[0]
	assert.Contains(t, q, `ProcessId := rename(TargetProcessId)`)
	assert.Contains(t, q, `ProcessName := rename(FileName)`)
	assert.Contains(t, q, `ParentProcessName := rename(ParentBaseFileName)`)
}

func TestFileTargetValidation(t *testing.T) {
	fake := &fakeClient{}
	inv := New(fake)

	_, err := inv.CreatorProcess(context.Background(), FileTarget{},
		query.Unrestricted(), edr.SearchOptions{})
	require.ErrorIs(t, err, ErrAmbiguousTarget)

	_, err = inv.CreatorProcess(context.Background(),
		FileTarget{Filename: "a.exe", Hash: "abc"},
		query.Unrestricted(), edr.SearchOptions{})
	require.ErrorIs(t, err, ErrAmbiguousTarget)

	assert.Empty(t, fake.queries)
}

func TestExecutorProcessFilenameMatchesCommandLineToo(t *testing.T) {
	fake := &fakeClient{}
	inv := New(fake)

	_, err := inv.ExecutorProcess(context.Background(),
		FileTarget{Filename: "stage2.exe"},
		query.Unrestricted(), edr.SearchOptions{})
	require.NoError(t, err)
	assert.Contains(t, fake.queries[0],
		`(FileName="stage2.exe" OR CommandLine="*stage2.exe*")`)
}

func TestCreatedFilesByPIDSubquery(t *testing.T) {
	fake := &fakeClient{}
	inv := New(fake)

	_, err := inv.CreatedFilesByPID(context.Background(), "123", "H1", edr.SearchOptions{})
	require.NoError(t, err)
	assert.Contains(t, fake.queries[0],
		`(#event_simpleName="*Written*" OR #event_simpleName="FileCreateInfo")`)
}

func TestCompressedFileOperationsCase(t *testing.T) {
	fake := &fakeClient{}
	inv := New(fake)

	_, err := inv.CompressedFileOperations(context.Background(),
		query.Unrestricted(), edr.SearchOptions{})
	require.NoError(t, err)
	q := fake.queries[0]
	assert.Contains(t, q, "case {")
	assert.Contains(t, q, `ProcessId := rename(TargetProcessId)`)
	assert.Contains(t, q, `CompressedFile := rename(FileName)`)
}

func TestRunPropagatesExecutorErrors(t *testing.T) {
	fake := &fakeClient{searchErr: &edr.PollTimeoutError{Attempts: 60}}
	inv := New(fake)

	_, err := inv.HashByFilename(context.Background(), "evil.exe",
		query.Unrestricted(), edr.SearchOptions{})
	require.ErrorIs(t, err, edr.ErrPollTimeout)
}

func TestScopeFrom(t *testing.T) {
	assert.False(t, ScopeFrom("", false).Restricted())
	assert.False(t, ScopeFrom("", true).Restricted())

	inc := ScopeFrom("H1", false)
	require.True(t, inc.Restricted())
	assert.False(t, inc.Excluded())

	exc := ScopeFrom("H1", true)
	require.True(t, exc.Restricted())
	assert.True(t, exc.Excluded())
}

func TestAlertByIDServesFromCache(t *testing.T) {
	rec := edr.Record{"composite_id": "ldt:a:1", "severity": float64(70)}
	fake := &fakeClient{alerts: map[string]edr.Record{"ldt:a:1": rec}}
	alerts, err := cache.NewAlertCache(16)
	require.NoError(t, err)
	inv := New(fake, WithAlertCache("ACME", alerts))

	got, err := inv.AlertByID(context.Background(), "ldt:a:1")
	require.NoError(t, err)
	assert.Equal(t, rec, got)
	assert.Equal(t, 1, fake.singleCalls)

	got, err = inv.AlertByID(context.Background(), "ldt:a:1")
	require.NoError(t, err)
	assert.Equal(t, rec, got)
	assert.Equal(t, 1, fake.singleCalls, "second lookup must be a cache hit")
}

func TestAlertByIDUnknownIsNotCached(t *testing.T) {
	fake := &fakeClient{alerts: map[string]edr.Record{}}
	alerts, err := cache.NewAlertCache(16)
	require.NoError(t, err)
	inv := New(fake, WithAlertCache("ACME", alerts))

	got, err := inv.AlertByID(context.Background(), "ldt:a:404")
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = inv.AlertByID(context.Background(), "ldt:a:404")
	require.NoError(t, err)
	assert.Equal(t, 2, fake.singleCalls)
}

func TestAlertsByIDsMixesCacheAndFetch(t *testing.T) {
	recA := edr.Record{"composite_id": "ldt:a:1"}
	recB := edr.Record{"composite_id": "ldt:b:2"}
	fake := &fakeClient{alerts: map[string]edr.Record{"ldt:a:1": recA, "ldt:b:2": recB}}
	alerts, err := cache.NewAlertCache(16)
	require.NoError(t, err)
	inv := New(fake, WithAlertCache("ACME", alerts))

	_, err = inv.AlertByID(context.Background(), "ldt:a:1")
	require.NoError(t, err)

	got, err := inv.AlertsByIDs(context.Background(), []string{"ldt:a:1", "ldt:b:2"})
	require.NoError(t, err)
	require.Equal(t, []edr.Record{recA, recB}, got, "input order must be preserved")

	require.Len(t, fake.batchIDs, 1)
	assert.Equal(t, []string{"ldt:b:2"}, fake.batchIDs[0], "cached ids must not be refetched")
}

func TestAlertsByIDsRejectsEmptyInput(t *testing.T) {
	inv := New(&fakeClient{})
	_, err := inv.AlertsByIDs(context.Background(), nil)
	require.ErrorIs(t, err, query.ErrEmptyTemplate)
}

func TestAlertsByIDsWithoutCache(t *testing.T) {
	recA := edr.Record{"composite_id": "ldt:a:1"}
	fake := &fakeClient{alerts: map[string]edr.Record{"ldt:a:1": recA}}
	inv := New(fake)

	got, err := inv.AlertsByIDs(context.Background(), []string{"ldt:a:1", "ldt:a:404"})
	require.NoError(t, err)
	assert.Equal(t, []edr.Record{recA}, got)
}
