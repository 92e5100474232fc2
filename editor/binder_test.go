package editor_test

import (
	"context"
	"net/http"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/c360studio/sparqled/autocomplete"
	"github.com/c360studio/sparqled/editor"
	"github.com/c360studio/sparqled/examples"
	"github.com/c360studio/sparqled/metrics"
	"github.com/c360studio/sparqled/prefix"
	"github.com/c360studio/sparqled/sparql"
	"github.com/c360studio/sparqled/sparql/sparqltest"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
	)
}

var uniprotExamples = []sparqltest.Example{
	{ID: "http://ex.org/q/1", Comment: "Proteins", Query: "SELECT ?p { ?p a up:Protein }"},
	{ID: "http://ex.org/q/2", Comment: "Taxa", Query: "SELECT ?t { ?t a up:Taxon }"},
	{ID: "http://ex.org/q/3", Label: "Labels", Query: "SELECT ?l { ?s rdfs:label ?l }"},
	{ID: "http://ex.org/q/4", Comment: "Concepts", Query: "SELECT ?c { ?c a skos:Concept }"},
}

func newBinder(t *testing.T, endpoint *sparqltest.Endpoint, opts ...editor.Option) *editor.Binder {
	t.Helper()
	client, err := sparql.NewClient(endpoint.URL)
	require.NoError(t, err)
	b := editor.New(context.Background(), client, opts...)
	b.Wait()
	return b
}

func TestBinder_LoadsPrefixesAndExamples(t *testing.T) {
	endpoint := sparqltest.NewEndpoint(t)
	endpoint.SetPrefixes(map[string]string{
		"sachem": "http://bioinfo.uochb.cas.cz/rdf/v1.0/sachem#",
		"up":     "http://example.org/up/",
	})
	endpoint.SetExamples(uniprotExamples...)

	m := metrics.New()
	b := newBinder(t, endpoint, editor.WithMetrics(m))

	prefixes := b.ResultPrefixes()
	assert.Len(t, prefixes, 14)
	assert.Equal(t, "http://example.org/up/", prefixes["up"])
	assert.Equal(t, float64(14), testutil.ToFloat64(m.PrefixesLoaded))

	panel := b.Panel()
	require.NotNil(t, panel)
	assert.Len(t, panel.Inline(), 3)
	assert.Len(t, panel.All(), 4)
	assert.Equal(t, "Labels", b.Examples()[2].Comment)
	assert.Equal(t, float64(4), testutil.ToFloat64(m.ExamplesLoaded))

	assert.Equal(t, 1, endpoint.Hits(sparqltest.KindPrefixes))
	assert.Equal(t, 1, endpoint.Hits(sparqltest.KindExamples))
}

func TestBinder_PrefixFailureKeepsDefaults(t *testing.T) {
	endpoint := sparqltest.NewEndpoint(t)
	endpoint.SetStatus(sparqltest.KindPrefixes, http.StatusInternalServerError)

	b := newBinder(t, endpoint)
	assert.Equal(t, prefix.Defaults(), b.ResultPrefixes())

	buf := editor.NewBuffer("SELECT * { ?s a up:Protein }", nil)
	added := b.InjectPrefixes(buf)
	assert.Equal(t, []string{"up"}, added)
	assert.Equal(t, "PREFIX up: <http://purl.uniprot.org/core/>\nSELECT * { ?s a up:Protein }", buf.Value())
}

func TestBinder_NoExamplesNoPanel(t *testing.T) {
	endpoint := sparqltest.NewEndpoint(t)

	b := newBinder(t, endpoint)
	assert.Nil(t, b.Panel())
	assert.Empty(t, b.Examples())

	_, err := b.UseExample(editor.NewBuffer("", nil), 0)
	assert.ErrorIs(t, err, examples.ErrNotFound)
}

func TestBinder_ExampleFailureShowsNothing(t *testing.T) {
	endpoint := sparqltest.NewEndpoint(t)
	endpoint.SetExamples(uniprotExamples...)
	endpoint.SetStatus(sparqltest.KindExamples, http.StatusBadRequest)

	b := newBinder(t, endpoint)
	assert.Nil(t, b.Panel())
}

func TestBinder_InjectAscendingAndIdempotent(t *testing.T) {
	endpoint := sparqltest.NewEndpoint(t)
	b := newBinder(t, endpoint)

	buf := editor.NewBuffer("SELECT ?s { ?s a up:Protein ; rdfs:label ?l ; skos:prefLabel ?p }", nil)
	added := b.InjectPrefixes(buf)
	if diff := cmp.Diff([]string{"rdfs", "skos", "up"}, added); diff != "" {
		t.Errorf("added prefixes mismatch (-want +got):\n%s", diff)
	}

	want := "PREFIX rdfs: <http://www.w3.org/2000/01/rdf-schema#>\n" +
		"PREFIX skos: <http://www.w3.org/2004/02/skos/core#>\n" +
		"PREFIX up: <http://purl.uniprot.org/core/>\n" +
		"SELECT ?s { ?s a up:Protein ; rdfs:label ?l ; skos:prefLabel ?p }"
	assert.Equal(t, want, buf.Value())

	assert.Empty(t, b.InjectPrefixes(buf))
	assert.Equal(t, want, buf.Value())
}

func TestBinder_InjectKeepsConflictingDeclaration(t *testing.T) {
	endpoint := sparqltest.NewEndpoint(t)
	b := newBinder(t, endpoint)

	query := "PREFIX up: <http://example.org/other/>\nSELECT * { ?s a up:Protein }"
	buf := editor.NewBuffer(query, nil)
	assert.Empty(t, b.InjectPrefixes(buf))
	assert.Equal(t, query, buf.Value())
}

func TestBinder_UseExample(t *testing.T) {
	endpoint := sparqltest.NewEndpoint(t)
	endpoint.SetExamples(uniprotExamples...)
	b := newBinder(t, endpoint)

	b.Panel().OpenModal()
	buf := editor.NewBuffer("SELECT * {}", nil)

	ex, err := b.UseExample(buf, 2)
	require.NoError(t, err)
	assert.Equal(t, "http://ex.org/q/3", ex.ID)
	assert.Equal(t, "PREFIX rdfs: <http://www.w3.org/2000/01/rdf-schema#>\nSELECT ?l { ?s rdfs:label ?l }", buf.Value())
	assert.False(t, b.Panel().ModalOpen())
}

func TestBinder_UseExampleID(t *testing.T) {
	endpoint := sparqltest.NewEndpoint(t)
	endpoint.SetExamples(uniprotExamples...)
	b := newBinder(t, endpoint)

	all := b.OpenExamples()
	assert.Len(t, all, len(uniprotExamples))
	assert.True(t, b.Panel().ModalOpen())

	buf := editor.NewBuffer("", nil)
	ex, err := b.UseExampleID(buf, "http://ex.org/q/3")
	require.NoError(t, err)
	assert.Equal(t, "http://ex.org/q/3", ex.ID)
	assert.Equal(t, "PREFIX rdfs: <http://www.w3.org/2000/01/rdf-schema#>\nSELECT ?l { ?s rdfs:label ?l }", buf.Value())
	assert.False(t, b.Panel().ModalOpen())

	_, err = b.UseExampleID(buf, "http://ex.org/q/missing")
	assert.ErrorIs(t, err, examples.ErrNotFound)
}

func TestBinder_OpenExamplesWithoutExamples(t *testing.T) {
	b := newBinder(t, sparqltest.NewEndpoint(t))
	assert.Nil(t, b.OpenExamples())
}

func TestBinder_Bootstrap(t *testing.T) {
	endpoint := sparqltest.NewEndpoint(t)
	b := newBinder(t, endpoint)

	buf := b.NewBuffer("")
	ran, err := b.Bootstrap(context.Background(), buf, "?query=SELECT%20%3Fs%20%7B%20%3Fs%20a%20up%3AProtein%20%7D&x=1")
	require.NoError(t, err)
	assert.True(t, ran)

	queries := endpoint.Queries()
	require.Len(t, queries, 1)
	assert.Equal(t, "PREFIX up: <http://purl.uniprot.org/core/>\nSELECT ?s { ?s a up:Protein }", queries[0])

	resp, ok := buf.Response()
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Contains(t, resp.Data, `"bindings"`)
}

func TestBinder_BootstrapWithoutQuery(t *testing.T) {
	endpoint := sparqltest.NewEndpoint(t)
	b := newBinder(t, endpoint)

	buf := b.NewBuffer("SELECT * {}")
	ran, err := b.Bootstrap(context.Background(), buf, "?x=1")
	require.NoError(t, err)
	assert.False(t, ran)
	assert.Equal(t, "SELECT * {}", buf.Value())
	assert.Empty(t, endpoint.Queries())
}

func TestBinder_RunRecordsErrorStatus(t *testing.T) {
	endpoint := sparqltest.NewEndpoint(t)
	endpoint.SetStatus(sparqltest.KindQuery, http.StatusBadRequest)

	m := metrics.New()
	b := newBinder(t, endpoint, editor.WithMetrics(m))

	buf := b.NewBuffer("SELECT nonsense")
	require.NoError(t, b.Run(context.Background(), buf))

	resp, ok := buf.Response()
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, resp.Status)
	assert.Equal(t, "fake endpoint error", resp.Data)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.QueriesRun.WithLabelValues("4xx")))
}

func TestBinder_AddAllPrefixes(t *testing.T) {
	endpoint := sparqltest.NewEndpoint(t)
	b := newBinder(t, endpoint, editor.WithRemotePrefixes(false))
	assert.Equal(t, 0, endpoint.Hits(sparqltest.KindPrefixes))

	buf := editor.NewBuffer("SELECT * {}", nil)
	b.AddAllPrefixes(buf)

	defaults := prefix.Defaults()
	keys := make([]string, 0, len(defaults))
	for k := range defaults {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var want strings.Builder
	for _, k := range keys {
		want.WriteString("PREFIX " + k + ": <" + defaults[k] + ">\n")
	}
	want.WriteString("SELECT * {}")

	assert.Equal(t, want.String(), buf.Value())
	assert.True(t, buf.Collapsed())
}

func TestBinder_WithDefaults(t *testing.T) {
	endpoint := sparqltest.NewEndpoint(t)
	b := newBinder(t, endpoint, editor.WithDefaults(map[string]string{"ex": "http://example.org/"}))

	assert.Len(t, b.ResultPrefixes(), 14)
	assert.Equal(t, "http://example.org/", b.ResultPrefixes()["ex"])
}

func TestBinder_Refresh(t *testing.T) {
	endpoint := sparqltest.NewEndpoint(t)
	b := newBinder(t, endpoint)
	assert.Nil(t, b.Panel())

	endpoint.SetPrefixes(map[string]string{"sachem": "http://bioinfo.uochb.cas.cz/rdf/v1.0/sachem#"})
	endpoint.SetExamples(uniprotExamples[:2]...)
	require.NoError(t, b.Refresh(context.Background()))

	assert.Contains(t, b.ResultPrefixes(), "sachem")
	require.NotNil(t, b.Panel())
	assert.Equal(t, 2, b.Panel().Len())

	endpoint.SetStatus(sparqltest.KindExamples, http.StatusServiceUnavailable)
	endpoint.SetStatus(sparqltest.KindPrefixes, http.StatusServiceUnavailable)
	require.Error(t, b.Refresh(context.Background()))

	assert.Contains(t, b.ResultPrefixes(), "sachem")
	assert.Equal(t, 2, b.Panel().Len())
}

func TestBinder_LocalExamplesFollowRemote(t *testing.T) {
	endpoint := sparqltest.NewEndpoint(t)
	endpoint.SetExamples(uniprotExamples[:1]...)

	local := []examples.Example{{ID: "local.rq", Query: "ASK {}", Source: examples.SourceLocal}}
	b := newBinder(t, endpoint)
	b.SetLocalExamples(local)

	all := b.Examples()
	require.Len(t, all, 2)
	assert.Equal(t, "http://ex.org/q/1", all[0].ID)
	assert.Equal(t, "local.rq", all[1].ID)
}

func TestBinder_RegistersVoidProviders(t *testing.T) {
	endpoint := sparqltest.NewEndpoint(t)
	endpoint.SetTerms(
		[]string{"http://purl.uniprot.org/core/Protein"},
		[]string{"http://purl.uniprot.org/core/organism"},
	)

	noop := func(ctx context.Context, token string) []string { return nil }
	registry := autocomplete.NewRegistry(
		autocomplete.Provider{Name: "prefixes", Get: noop},
		autocomplete.Provider{Name: "class", Get: noop},
		autocomplete.Provider{Name: "property", Get: noop},
	)
	b := newBinder(t, endpoint, editor.WithRegistry(registry))

	assert.Equal(t, []string{"prefixes", autocomplete.ClassProviderName, autocomplete.PropertyProviderName}, b.Registry().Names())

	classes, ok := b.Registry().Get(autocomplete.ClassProviderName)
	require.True(t, ok)
	assert.True(t, classes.Bulk)
	assert.Equal(t, []string{"http://purl.uniprot.org/core/Protein"}, classes.Get(context.Background(), "ignored"))
}

func TestBinder_RefreshWaitsForInitialLoad(t *testing.T) {
	endpoint := sparqltest.NewEndpoint(t)
	endpoint.SetPrefixes(map[string]string{"old": "http://old.example.org/"})
	release := endpoint.Hold(sparqltest.KindPrefixes)
	t.Cleanup(release)

	client, err := sparql.NewClient(endpoint.URL)
	require.NoError(t, err)
	b := editor.New(context.Background(), client)

	require.Eventually(t, func() bool {
		return endpoint.Hits(sparqltest.KindPrefixes) == 1
	}, 2*time.Second, 5*time.Millisecond)
	endpoint.SetPrefixes(map[string]string{"new": "http://new.example.org/"})

	done := make(chan error, 1)
	go func() { done <- b.Refresh(context.Background()) }()

	assert.Never(t, func() bool { return len(done) > 0 }, 100*time.Millisecond, 10*time.Millisecond)
	release()
	require.NoError(t, <-done)

	got := b.ResultPrefixes()
	assert.Equal(t, "http://new.example.org/", got["new"])
	assert.NotContains(t, got, "old")
	assert.Equal(t, 2, endpoint.Hits(sparqltest.KindPrefixes))
}
