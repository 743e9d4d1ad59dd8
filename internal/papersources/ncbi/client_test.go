package ncbi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/oa-metasearch/internal/domain"
	"github.com/helixir/oa-metasearch/internal/httpclient"
	"github.com/helixir/oa-metasearch/internal/papersources"
)

const esearchJSON = `{"header":{"type":"esearch"},"esearchresult":{"count":"2","retmax":"2","retstart":"0","idlist":["12345678","87654321"]}}`

const esearchEmptyJSON = `{"esearchresult":{"count":"0","retmax":"0","retstart":"0","idlist":[],"errorlist":{"phrasesnotfound":["zzzz"],"fieldsnotfound":[]}}}`

const efetchXML = `<?xml version="1.0" encoding="UTF-8" ?>
<PubmedArticleSet>
	<PubmedArticle>
		<MedlineCitation Status="MEDLINE" Owner="NLM">
			<PMID Version="1">12345678</PMID>
			<DateRevised><Year>2023</Year><Month>06</Month><Day>01</Day></DateRevised>
			<Article PubModel="Print-Electronic">
				<Journal>
					<JournalIssue CitedMedium="Internet">
						<Volume>25</Volume>
						<PubDate><Year>2023</Year><Month>Mar</Month><Day>15</Day></PubDate>
					</JournalIssue>
					<Title>Journal of Testing</Title>
					<ISOAbbreviation>J Test</ISOAbbreviation>
				</Journal>
				<ArticleTitle>CRISPR-Cas9 Gene Editing in Biomedical Research</ArticleTitle>
				<ELocationID EIdType="doi" ValidYN="Y">10.1038/nature12373</ELocationID>
				<Abstract>
					<AbstractText Label="BACKGROUND">Gene editing technologies.</AbstractText>
					<AbstractText Label="RESULTS">Improved efficiency.</AbstractText>
				</Abstract>
				<AuthorList CompleteYN="Y">
					<Author ValidYN="Y"><LastName>Smith</LastName><ForeName>John A</ForeName></Author>
					<Author ValidYN="N"><LastName>Ghost</LastName></Author>
					<Author ValidYN="Y"><CollectiveName>CRISPR Research Consortium</CollectiveName></Author>
				</AuthorList>
				<Language>eng</Language>
				<ArticleDate DateType="Electronic"><Year>2023</Year><Month>02</Month><Day>28</Day></ArticleDate>
			</Article>
			<MeshHeadingList>
				<MeshHeading><DescriptorName UI="D1">Gene Editing</DescriptorName></MeshHeading>
			</MeshHeadingList>
			<KeywordList Owner="NOTNLM">
				<Keyword>CRISPR</Keyword>
				<Keyword>gene editing</Keyword>
			</KeywordList>
		</MedlineCitation>
		<PubmedData>
			<ArticleIdList>
				<ArticleId IdType="pubmed">12345678</ArticleId>
				<ArticleId IdType="pmc">PMC9876543</ArticleId>
			</ArticleIdList>
		</PubmedData>
	</PubmedArticle>
	<PubmedArticle>
		<MedlineCitation>
			<PMID Version="1">87654321</PMID>
			<Article>
				<Journal>
					<JournalIssue><PubDate><MedlineDate>2022 Jan-Feb</MedlineDate></PubDate></JournalIssue>
					<ISOAbbreviation>Mol Ther Methods</ISOAbbreviation>
				</Journal>
				<ArticleTitle>Advances in Gene Therapy Delivery Systems</ArticleTitle>
				<Abstract><AbstractText>Viral and non-viral delivery.</AbstractText></Abstract>
				<Language>fre</Language>
			</Article>
		</MedlineCitation>
		<PubmedData>
			<ArticleIdList>
				<ArticleId IdType="pubmed">87654321</ArticleId>
				<ArticleId IdType="doi">10.5678/mol.2022.050</ArticleId>
			</ArticleIdList>
		</PubmedData>
	</PubmedArticle>
</PubmedArticleSet>`

func createTestClient(baseURL string) *Client {
	hc := httpclient.New(httpclient.Config{Name: "ncbi", RateLimit: 1000, Timeout: 5 * time.Second})
	return NewWithHTTPClient(Config{BaseURL: baseURL, APIKey: "key-123", Enabled: true}, hc)
}

func TestNew(t *testing.T) {
	c := New(Config{Enabled: true, MaxResults: 50000})
	assert.Equal(t, DefaultBaseURL, c.config.BaseURL)
	assert.Equal(t, DefaultRateLimit, c.config.RateLimit)
	assert.Equal(t, MaxResultsLimit, c.config.MaxResults)
	assert.Equal(t, domain.SourceNCBI, c.Source())
	assert.Equal(t, "PubMed", c.Name())
	assert.True(t, c.IsEnabled())
}

func TestClient_Search_TwoStep(t *testing.T) {
	var esearchQuery, efetchQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/esearch.fcgi"):
			esearchQuery = r.URL.RawQuery
			_, _ = w.Write([]byte(esearchJSON))
		case strings.HasSuffix(r.URL.Path, "/efetch.fcgi"):
			efetchQuery = r.URL.RawQuery
			_, _ = w.Write([]byte(efetchXML))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	records, err := createTestClient(server.URL).Search(context.Background(), papersources.Query{
		TitleOrKeywords: "gene editing",
		YearFrom:        domain.IntPtr(2020),
	})
	require.NoError(t, err)

	assert.Contains(t, esearchQuery, "retmode=json")
	assert.Contains(t, esearchQuery, "api_key=key-123")
	assert.Contains(t, efetchQuery, "id=12345678%2C87654321")

	require.Len(t, records, 2)
	first := records[0]
	assert.Equal(t, "ncbi:12345678", first.ID)
	assert.Equal(t, "CRISPR-Cas9 Gene Editing in Biomedical Research", first.Title)
	assert.Equal(t, "10.1038/nature12373", first.DOI)
	assert.Equal(t, []string{"John A Smith", "CRISPR Research Consortium"}, first.Authors)
	assert.Equal(t, "BACKGROUND: Gene editing technologies. RESULTS: Improved efficiency.", first.Abstract)
	assert.Equal(t, "Journal of Testing", first.Venue)
	assert.Equal(t, []string{"Gene Editing", "CRISPR"}, first.Topics)
	assert.Equal(t, domain.OAStatusPublished, first.OAStatus)
	assert.Equal(t, "https://www.ncbi.nlm.nih.gov/pmc/articles/PMC9876543/pdf/", first.BestPDFURL)
	assert.Equal(t, "https://pubmed.ncbi.nlm.nih.gov/12345678/", first.LandingPage)
	assert.Equal(t, "en", first.Language)
	assert.Equal(t, time.Date(2023, 2, 28, 0, 0, 0, 0, time.UTC), first.CreatedAt)
	require.NotNil(t, first.UpdatedAt)

	second := records[1]
	assert.Equal(t, "ncbi:87654321", second.ID)
	assert.Equal(t, "Mol Ther Methods", second.Venue)
	assert.Equal(t, domain.OAStatusOther, second.OAStatus)
	assert.Empty(t, second.BestPDFURL)
	assert.Equal(t, "fr", second.Language)
	require.NotNil(t, second.Year)
	assert.Equal(t, 2022, *second.Year)
	assert.NotNil(t, second.Authors)
}

func TestClient_Search_ZeroIDsSkipsEfetch(t *testing.T) {
	var efetchCalls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/efetch.fcgi") {
			efetchCalls.Add(1)
		}
		_, _ = w.Write([]byte(esearchEmptyJSON))
	}))
	defer server.Close()

	records, err := createTestClient(server.URL).Search(context.Background(), papersources.Query{TitleOrKeywords: "zzzz"})
	require.NoError(t, err)
	assert.NotNil(t, records)
	assert.Empty(t, records)
	assert.Equal(t, int32(0), efetchCalls.Load())
}

func TestClient_Search_DOI(t *testing.T) {
	var term string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/esearch.fcgi") {
			term = r.URL.Query().Get("term")
			_, _ = w.Write([]byte(esearchJSON))
			return
		}
		_, _ = w.Write([]byte(efetchXML))
	}))
	defer server.Close()

	records, err := createTestClient(server.URL).Search(context.Background(), papersources.Query{DOI: "10.1038/nature12373"})
	require.NoError(t, err)

	assert.Equal(t, "10.1038/nature12373[DOI]", term)
	require.Len(t, records, 1)
	assert.Equal(t, "10.1038/nature12373", records[0].DOI)
}

func TestClient_Search_EmptyQuery(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { calls.Add(1) }))
	defer server.Close()

	records, err := createTestClient(server.URL).Search(context.Background(), papersources.Query{})
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Equal(t, int32(0), calls.Load())
}

func TestClient_Search_EsearchError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"esearchresult":{"ERROR":"Invalid db name"}}`))
	}))
	defer server.Close()

	_, err := createTestClient(server.URL).Search(context.Background(), papersources.Query{TitleOrKeywords: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid db name")
}

func TestClient_Fetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("id") == "12345678" {
			_, _ = w.Write([]byte(efetchXML))
			return
		}
		_, _ = w.Write([]byte(`<PubmedArticleSet></PubmedArticleSet>`))
	}))
	defer server.Close()

	c := createTestClient(server.URL)

	rec, err := c.Fetch(context.Background(), "12345678")
	require.NoError(t, err)
	assert.Equal(t, "ncbi:12345678", rec.ID)

	_, err = c.Fetch(context.Background(), "11111111")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = c.Fetch(context.Background(), "not-a-pmid")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestBuildTerm(t *testing.T) {
	tests := []struct {
		name string
		q    papersources.Query
		want string
	}{
		{name: "keywords", q: papersources.Query{TitleOrKeywords: "crispr"}, want: "crispr"},
		{name: "doi wins", q: papersources.Query{DOI: "doi:10.1/X", TitleOrKeywords: "crispr"}, want: "10.1/x[DOI]"},
		{name: "closed range", q: papersources.Query{TitleOrKeywords: "a", YearFrom: domain.IntPtr(2020), YearTo: domain.IntPtr(2021)}, want: `a AND ("2020"[PDAT] : "2021"[PDAT])`},
		{name: "open upper", q: papersources.Query{TitleOrKeywords: "a", YearFrom: domain.IntPtr(2020)}, want: `a AND ("2020"[PDAT] : "3000"[PDAT])`},
		{name: "open lower", q: papersources.Query{TitleOrKeywords: "a", YearTo: domain.IntPtr(1999)}, want: `a AND ("1800"[PDAT] : "1999"[PDAT])`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, buildTerm(tt.q))
		})
	}
}

func TestParseMonth(t *testing.T) {
	assert.Equal(t, time.March, parseMonth("Mar"))
	assert.Equal(t, time.March, parseMonth("03"))
	assert.Equal(t, time.September, parseMonth("September"))
	assert.Equal(t, time.January, parseMonth(""))
	assert.Equal(t, time.January, parseMonth("Spring"))
}
