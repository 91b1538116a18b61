package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"mandi-prices/extractor"
	"mandi-prices/models"
	"mandi-prices/scraper"
	"mandi-prices/scraper/scrapertest"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type stubExtractor struct {
	result models.ScrapeResult
	err    error
	calls  int
}

func (s *stubExtractor) Extract(ctx context.Context) (models.ScrapeResult, error) {
	s.calls++
	return s.result, s.err
}

func newExtractor(driver *scrapertest.Driver) *extractor.Extractor {
	return extractor.New(scraper.NewPool(driver, 1), extractor.Options{
		TargetURL:    "https://enam.example/trade-data",
		ReadyTimeout: 100 * time.Millisecond,
		PageTimeout:  100 * time.Millisecond,
		PollInterval: time.Millisecond,
	})
}

func getPrices(t *testing.T, ex PriceExtractor) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/api/prices", nil)
	req.Header.Set("Origin", "http://dashboard.example")
	w := httptest.NewRecorder()
	NewServer(ex).Router().ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) models.PricesResponse {
	t.Helper()
	var resp models.PricesResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestGetPricesTwoPages(t *testing.T) {
	driver := &scrapertest.Driver{Pages: []scrapertest.Page{
		{
			HTML: scrapertest.TableHTML(
				[]string{"Gujarat", "Rajkot", "Cotton", "6500", "7000", "7250"},
				[]string{"Punjab", "Khanna", "Wheat", "2100", "2125", "2150"},
			),
			Next: &scrapertest.Next{Class: "page-link"},
		},
		{
			HTML: scrapertest.TableHTML([]string{"Haryana", "Karnal", "Paddy", "1900", "2000", "2100"}),
			Next: &scrapertest.Next{Class: "page-link disabled"},
		},
	}}

	w := getPrices(t, newExtractor(driver))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

	resp := decode(t, w)
	assert.Equal(t, 3, resp.TotalRecords)
	assert.Equal(t, []models.PriceRecord{
		{State: "Gujarat", Mandi: "Rajkot", Commodity: "Cotton", MinPrice: "6500", ModalPrice: "7000", MaxPrice: "7250"},
		{State: "Punjab", Mandi: "Khanna", Commodity: "Wheat", MinPrice: "2100", ModalPrice: "2125", MaxPrice: "2150"},
		{State: "Haryana", Mandi: "Karnal", Commodity: "Paddy", MinPrice: "1900", ModalPrice: "2000", MaxPrice: "2100"},
	}, resp.Data)
}

func TestGetPricesEmptyTable(t *testing.T) {
	driver := &scrapertest.Driver{Pages: []scrapertest.Page{{HTML: scrapertest.TableHTML()}}}

	w := getPrices(t, newExtractor(driver))

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"total_records": 0, "data": []}`, w.Body.String())
}

func TestGetPricesRowsDrawnAfterTable(t *testing.T) {
	driver := &scrapertest.Driver{
		Loading:      scrapertest.EmptyTableHTML,
		LoadingReads: 4,
		Pages: []scrapertest.Page{{
			HTML: scrapertest.TableHTML([]string{"Haryana", "Karnal", "Paddy", "1900", "2000", "2100"}),
		}},
	}

	w := getPrices(t, newExtractor(driver))

	require.Equal(t, http.StatusOK, w.Code)
	resp := decode(t, w)
	require.Equal(t, 1, resp.TotalRecords)
	assert.Equal(t, "Karnal", resp.Data[0].Mandi)
}

func TestGetPricesShortRowDropped(t *testing.T) {
	driver := &scrapertest.Driver{Pages: []scrapertest.Page{{
		HTML: scrapertest.TableHTML(
			[]string{"Bihar", "Patna", "Maize", "1800"},
			[]string{"Bihar", "Gulabbagh", "Maize", "1850", "1900", "1950"},
		),
	}}}

	w := getPrices(t, newExtractor(driver))

	require.Equal(t, http.StatusOK, w.Code)
	resp := decode(t, w)
	require.Equal(t, 1, resp.TotalRecords)
	assert.Equal(t, "Gulabbagh", resp.Data[0].Mandi)
}

func TestGetPricesFieldOrder(t *testing.T) {
	ex := &stubExtractor{result: models.ScrapeResult{Records: []models.PriceRecord{
		{State: "S", Mandi: "M", Commodity: "C", MinPrice: "1", ModalPrice: "2", MaxPrice: "3"},
	}}}

	w := getPrices(t, ex)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t,
		`{"total_records":1,"data":[{"state":"S","mandi":"M","commodity":"C","min_price":"1","modal_price":"2","max_price":"3"}]}`,
		w.Body.String())
	assert.Equal(t, 1, ex.calls)
}

func TestGetPricesTotalMatchesData(t *testing.T) {
	for _, n := range []int{0, 1, 25} {
		records := make([]models.PriceRecord, n)
		w := getPrices(t, &stubExtractor{result: models.ScrapeResult{Records: records}})
		resp := decode(t, w)
		assert.Equal(t, len(resp.Data), resp.TotalRecords)
		assert.Equal(t, n, resp.TotalRecords)
	}
}

func TestGetPricesExtractorError(t *testing.T) {
	w := getPrices(t, &stubExtractor{err: errors.New("failed to launch browser")})

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Empty(t, w.Body.String())
}

func TestCORSPreflight(t *testing.T) {
	req := httptest.NewRequest(http.MethodOptions, "/api/prices", nil)
	req.Header.Set("Origin", "http://dashboard.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	w := httptest.NewRecorder()

	ex := &stubExtractor{}
	NewServer(ex).Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Zero(t, ex.calls)
}

func TestUnknownRoute(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/other", nil)
	w := httptest.NewRecorder()
	NewServer(&stubExtractor{}).Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
