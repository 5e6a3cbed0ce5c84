package server

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"legisdash/internal/adapter/events"
	"legisdash/internal/config"
	"legisdash/internal/logging"
	"legisdash/internal/metrics"
	"legisdash/internal/service/dashboard"
	"legisdash/internal/service/ingest"
)

const legislatorCSV = "nome_deputado,partido,uf,seguidores_twitter,curtidas_instagram,visualizacoes_tiktok\n" +
	"Alice,PA,SP,1500,20,3\n" +
	"Bob,PB,SP,50,0,0\n" +
	"Cara,PA,RJ,200,1,1\n"

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	log := logging.Discard()
	collector := metrics.New("test")

	svc := dashboard.NewService(
		ingest.NewMemo(8, ingest.MemoHooks{OnHit: collector.MemoHit, OnMiss: collector.MemoMiss}),
		nil,
		nil,
		events.Nop{},
		collector,
		log,
		dashboard.Config{
			MaxDatasets:         10,
			Charset:             "utf-8",
			LegislatorDelimiter: ',',
			PostDelimiter:       ';',
			Legislators:         dashboard.TopRange{Min: 1, Max: 20, Default: 10},
			Posts:               dashboard.TopRange{Min: 1, Max: 30, Default: 10},
		},
	)

	return NewRouter(config.ServerConfig{
		RequestTimeout: 5 * time.Second,
		CorsOrigins:    []string{"*"},
	}, Deps{
		Dashboard:      svc,
		Metrics:        collector,
		MaxUploadBytes: 1 << 20,
		Log:            log,
	})
}

func do(t *testing.T, h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func uploadCSV(t *testing.T, h http.Handler, body string) string {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/datasets?filename=deputados.csv", strings.NewReader(body))
	req.Header.Set("Content-Type", "text/csv")

	rr := do(t, h, req)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var resp struct {
		ID       string `json:"id"`
		Filename string `json:"filename"`
		Rows     int    `json:"rows"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Equal(t, 3, resp.Rows)
	require.Equal(t, "deputados.csv", resp.Filename)
	return resp.ID
}

func TestHealth(t *testing.T) {
	rr := do(t, newTestRouter(t), httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "OK", rr.Body.String())
}

func TestUploadMultipart(t *testing.T) {
	h := newTestRouter(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("kind", "posts"))
	part, err := mw.CreateFormFile("file", "posts.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte("data;nome_deputado;rede;engajamento_total;mensagem\n2024-01-02;Ana;x;10;Oi\n"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/datasets", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	rr := do(t, h, req)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "posts", resp["kind"])
	assert.Equal(t, "posts.csv", resp["filename"])
	assert.Equal(t, float64(30), resp["top_range"].(map[string]interface{})["max"])
}

func TestUploadMultipartMissingFile(t *testing.T) {
	h := newTestRouter(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("kind", "legislators"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/datasets", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	assert.Equal(t, http.StatusBadRequest, do(t, h, req).Code)
}

func TestUploadRejections(t *testing.T) {
	h := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/datasets", strings.NewReader("{}"))
	req.Header.Set("Content-Type", "application/json")
	assert.Equal(t, http.StatusUnsupportedMediaType, do(t, h, req).Code)

	req = httptest.NewRequest(http.MethodPost, "/api/v1/datasets?kind=videos", strings.NewReader(legislatorCSV))
	req.Header.Set("Content-Type", "text/csv")
	assert.Equal(t, http.StatusBadRequest, do(t, h, req).Code)

	req = httptest.NewRequest(http.MethodPost, "/api/v1/datasets", strings.NewReader("partido,uf\nPA,SP\n"))
	req.Header.Set("Content-Type", "text/csv")
	rr := do(t, h, req)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Contains(t, rr.Body.String(), "Erro ao carregar o arquivo CSV")

	req = httptest.NewRequest(http.MethodPost, "/api/v1/datasets?enrich=store", strings.NewReader(legislatorCSV))
	req.Header.Set("Content-Type", "text/csv")
	assert.Equal(t, http.StatusServiceUnavailable, do(t, h, req).Code)

	req = httptest.NewRequest(http.MethodPost, "/api/v1/datasets", strings.NewReader(strings.Repeat("x", 2<<20)))
	req.Header.Set("Content-Type", "text/csv")
	assert.Equal(t, http.StatusRequestEntityTooLarge, do(t, h, req).Code)
}

func TestListAndGetDataset(t *testing.T) {
	h := newTestRouter(t)
	id := uploadCSV(t, h, legislatorCSV)

	rr := do(t, h, httptest.NewRequest(http.MethodGet, "/api/v1/datasets", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var list []map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, id, list[0]["id"])

	rr = do(t, h, httptest.NewRequest(http.MethodGet, "/api/v1/datasets/"+id, nil))
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = do(t, h, httptest.NewRequest(http.MethodGet, "/api/v1/datasets/unknown", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestGetRecordsFiltered(t *testing.T) {
	h := newTestRouter(t)
	id := uploadCSV(t, h, legislatorCSV)

	rr := do(t, h, httptest.NewRequest(http.MethodGet, "/api/v1/datasets/"+id+"/records?uf=SP&partido=todos&nome=ali", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var view struct {
		Count int `json:"count"`
		Rows  []struct {
			Name    string `json:"name"`
			Metrics map[string]struct {
				Display   string `json:"display"`
				Highlight bool   `json:"highlight"`
			} `json:"metrics"`
		} `json:"rows"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &view))
	require.Equal(t, 1, view.Count)
	assert.Equal(t, "Alice", view.Rows[0].Name)
	assert.Equal(t, "1,500", view.Rows[0].Metrics["followers_twitter"].Display)
	assert.True(t, view.Rows[0].Metrics["followers_twitter"].Highlight)
}

func TestGetOptions(t *testing.T) {
	h := newTestRouter(t)
	id := uploadCSV(t, h, legislatorCSV)

	rr := do(t, h, httptest.NewRequest(http.MethodGet, "/api/v1/datasets/"+id+"/options", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"regions":["RJ","SP"],"parties":["PA","PB"]}`, rr.Body.String())
}

func TestGetTop(t *testing.T) {
	h := newTestRouter(t)
	id := uploadCSV(t, h, legislatorCSV)

	rr := do(t, h, httptest.NewRequest(http.MethodGet, "/api/v1/datasets/"+id+"/top?column=seguidores_twitter&n=2", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		Column  string `json:"column"`
		Count   int    `json:"count"`
		Records []struct {
			Name string `json:"name"`
		} `json:"records"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "followers_twitter", resp.Column)
	require.Equal(t, 2, resp.Count)
	assert.Equal(t, "Alice", resp.Records[0].Name)
	assert.Equal(t, "Cara", resp.Records[1].Name)

	rr = do(t, h, httptest.NewRequest(http.MethodGet, "/api/v1/datasets/"+id+"/top?column=partido", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(t, h, httptest.NewRequest(http.MethodGet, "/api/v1/datasets/"+id+"/top", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(t, h, httptest.NewRequest(http.MethodGet, "/api/v1/datasets/"+id+"/top?column=views_tiktok&n=dez", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestGetCharts(t *testing.T) {
	h := newTestRouter(t)
	id := uploadCSV(t, h, legislatorCSV)

	rr := do(t, h, httptest.NewRequest(http.MethodGet, "/api/v1/datasets/"+id+"/charts?n=5", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var panels []struct {
		Title string `json:"title"`
		Chart struct {
			Schema string `json:"$schema"`
		} `json:"chart"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &panels))
	require.Len(t, panels, 3)
	assert.Equal(t, "Top 5 por Seguidores no X", panels[0].Title)
	assert.NotEmpty(t, panels[0].Chart.Schema)
}

func TestExport(t *testing.T) {
	h := newTestRouter(t)
	id := uploadCSV(t, h, legislatorCSV)

	rr := do(t, h, httptest.NewRequest(http.MethodGet, "/api/v1/datasets/"+id+"/export.csv?region=RJ", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rr.Header().Get("Content-Type"))
	assert.Contains(t, rr.Header().Get("Content-Disposition"), "dados_deputados_filtrados.csv")
	assert.Equal(t,
		"nome_deputado,partido,uf,seguidores_twitter,curtidas_instagram,visualizacoes_tiktok\nCara,PA,RJ,200,1,1\n",
		rr.Body.String())
}

func TestRefreshFollowersWithoutLookup(t *testing.T) {
	h := newTestRouter(t)
	id := uploadCSV(t, h, legislatorCSV)

	rr := do(t, h, httptest.NewRequest(http.MethodPost, "/api/v1/datasets/"+id+"/refresh-followers", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestDatasetEventsDisabled(t *testing.T) {
	rr := do(t, newTestRouter(t), httptest.NewRequest(http.MethodGet, "/ws/datasets", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestRouter(t)
	uploadCSV(t, h, legislatorCSV)

	rr := do(t, h, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `test_uploads_total{kind="legislators",result="ok"} 1`)
	assert.Contains(t, rr.Body.String(), "test_datasets_loaded 1")
}
