package content_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lid-trainer/backend/internal/content"
	"github.com/lid-trainer/backend/internal/domain/question"
)

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}

// writeScope splits qs into pages of size per page under data/{lang}/{scope}.
func writeScope(t *testing.T, fsys fstest.MapFS, lang, scope string, qs []question.Question, size int) {
	t.Helper()
	pages := (len(qs) + size - 1) / size
	for n := 1; n <= pages; n++ {
		end := min(n*size, len(qs))
		page := content.Page{
			Questions: qs[(n-1)*size : end],
			Pagination: content.Pagination{
				Page:           n,
				TotalPages:     pages,
				TotalQuestions: len(qs),
				HasNext:        n < pages,
				HasPrev:        n > 1,
			},
			Language: lang,
		}
		fsys[fmt.Sprintf("data/%s/%s/page-%d.json", lang, scope, n)] = &fstest.MapFile{Data: mustJSON(t, page)}
	}
}

func federal(n int) []question.Question {
	qs := make([]question.Question, n)
	for i := range qs {
		qs[i] = question.Question{
			ID:       fmt.Sprintf("q%03d", i+1),
			Number:   question.Number(fmt.Sprint(i + 1)),
			Solution: question.OptionA,
			Category: "Politik in der Demokratie",
		}
	}
	return qs
}

func TestScopeAssemblesPagesInOrder(t *testing.T) {
	fsys := fstest.MapFS{}
	writeScope(t, fsys, "de", content.ScopeAll, federal(95), 10)
	src := content.NewSource(content.NewFSFetcher(fsys), 3, zap.NewNop(), nil)

	qs, err := src.Scope(context.Background(), "de", content.ScopeAll)
	require.NoError(t, err)
	require.Len(t, qs, 95)
	for i, q := range qs {
		assert.Equal(t, fmt.Sprintf("q%03d", i+1), q.ID)
	}
}

func TestScopeSkipsInvalidQuestions(t *testing.T) {
	qs := federal(3)
	qs[1].Solution = question.OptionNone
	fsys := fstest.MapFS{}
	writeScope(t, fsys, "de", content.ScopeAll, qs, 10)
	src := content.NewSource(content.NewFSFetcher(fsys), 2, nil, nil)

	got, err := src.Scope(context.Background(), "de", content.ScopeAll)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestScopeFailsOnMissingPage(t *testing.T) {
	fsys := fstest.MapFS{}
	writeScope(t, fsys, "de", content.ScopeAll, federal(30), 10)
	delete(fsys, "data/de/all/page-3.json")
	src := content.NewSource(content.NewFSFetcher(fsys), 2, nil, nil)

	_, err := src.Scope(context.Background(), "de", content.ScopeAll)
	assert.ErrorIs(t, err, content.ErrNotFound)
}

func TestQuestionsMergesStatePool(t *testing.T) {
	fsys := fstest.MapFS{}
	writeScope(t, fsys, "de", content.ScopeAll, federal(20), 10)
	state := []question.Question{
		{ID: "by1", Number: "BY-1", Solution: question.OptionB, Category: "Bayern"},
		{ID: "by2", Number: "BY-2", Solution: question.OptionC, Category: "Bayern"},
		federal(1)[0],
	}
	writeScope(t, fsys, "de", content.StateScope("BY", ""), state, 10)
	src := content.NewSource(content.NewFSFetcher(fsys), 2, nil, nil)
	ctx := context.Background()

	general, err := src.Questions(ctx, "de", "")
	require.NoError(t, err)
	assert.Len(t, general, 20)

	pool, err := src.Questions(ctx, "de", "by")
	require.NoError(t, err)
	assert.Len(t, pool, 22)

	again, err := src.Questions(ctx, "de", "")
	require.NoError(t, err)
	assert.Len(t, again, 20)

	_, err = src.Questions(ctx, "de", "XX")
	assert.Error(t, err)
}

func TestScopeNames(t *testing.T) {
	assert.Equal(t, "by/all", content.StateScope("BY", ""))
	assert.Equal(t, "nw/politik-in-der-demokratie", content.StateScope("NW", "Politik in der Demokratie"))
	assert.Equal(t, "geschichte-und-verantwortung", content.CategoryScope("Geschichte und Verantwortung"))
}

func TestMetadataAndCategories(t *testing.T) {
	fsys := fstest.MapFS{
		"data/metadata.json": &fstest.MapFile{Data: []byte(`{"languages":["de","en","tr"],"pageSize":10,"totalQuestions":460,
			"states":[{"code":"BY","count":10}]}`)},
		"data/en/categories.json": &fstest.MapFile{Data: []byte(`{"categories":[{"id":"politik","name":"Politics","count":120}],"total":1,"language":"en"}`)},
	}
	src := content.NewSource(content.NewFSFetcher(fsys), 1, nil, nil)
	ctx := context.Background()

	meta, err := src.Metadata(ctx)
	require.NoError(t, err)
	assert.Equal(t, 460, meta.TotalQuestions)
	assert.Equal(t, "BY", meta.States[0].Code)

	cats, err := src.Categories(ctx, "en")
	require.NoError(t, err)
	require.Len(t, cats.Categories, 1)
	assert.Equal(t, "Politics", cats.Categories[0].Name)

	_, err = src.Categories(ctx, "fr")
	assert.Error(t, err)
	_, err = src.Page(ctx, "de", content.ScopeAll, 0)
	assert.Error(t, err)
}

func TestHTTPFetcher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/data/metadata.json":
			w.Write([]byte(`{"totalQuestions":310}`))
		case "/data/broken.json":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	f := content.NewHTTPFetcher(srv.URL+"/", 2*time.Second)
	ctx := context.Background()

	data, err := f.Fetch(ctx, "/data/metadata.json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"totalQuestions":310}`, string(data))

	_, err = f.Fetch(ctx, "data/missing.json")
	assert.ErrorIs(t, err, content.ErrNotFound)

	_, err = f.Fetch(ctx, "data/broken.json")
	require.Error(t, err)
	assert.NotErrorIs(t, err, content.ErrNotFound)
}
