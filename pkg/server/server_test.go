package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coolbeans/concurrence/pkg/config"
	"github.com/coolbeans/concurrence/pkg/dataset"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// testDataset has two members sharing two cases with one agreement, and a
// third member who only sits in the later period.
func testDataset() *dataset.Dataset {
	return &dataset.Dataset{
		Cases: []dataset.Case{
			{ID: "C1", Period: 1960, Votes: map[string]dataset.Outcome{
				"HLBlack": dataset.OutcomeMajority, "WODouglas": dataset.OutcomeMajority,
			}},
			{ID: "C2", Period: 1961, Votes: map[string]dataset.Outcome{
				"HLBlack": dataset.OutcomeMajority, "WODouglas": dataset.OutcomeDissent, "EWarren": dataset.OutcomeMajority,
			}},
		},
		Members: map[string]dataset.Member{
			"HLBlack":   {ID: "HLBlack", Name: "H.L. Black", FirstPeriod: 1960, LastPeriod: 1961, Affiliation: dataset.AffiliationDemocratic},
			"WODouglas": {ID: "WODouglas", Name: "W.O. Douglas", FirstPeriod: 1960, LastPeriod: 1961, Affiliation: dataset.AffiliationDemocratic},
			"EWarren":   {ID: "EWarren", Name: "E. Warren", FirstPeriod: 1961, LastPeriod: 1961, Affiliation: dataset.AffiliationRepublican},
		},
		Meta: dataset.Meta{
			MinPeriod: 1960, MaxPeriod: 1961, CaseCount: 2, MemberCount: 3,
			GeneratedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
			Source:      "test",
		},
	}
}

func newTestRouter(holder *Holder) *gin.Engine {
	return New(holder, config.Default()).SetupRouter()
}

func doRequest(t *testing.T, r http.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

type viewResponse struct {
	Members []string `json:"members"`
	Matrix  [][]*struct {
		Agreed int      `json:"agreed"`
		Total  int      `json:"total"`
		Rate   *float64 `json:"rate"`
	} `json:"matrix"`
	ScaleRange *struct {
		Min float64 `json:"min"`
		Max float64 `json:"max"`
	} `json:"scale_range"`
	CaseCount int `json:"case_count"`
}

func TestHealth(t *testing.T) {
	r := newTestRouter(NewHolder(testDataset(), nil))
	w := doRequest(t, r, http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)

	empty := newTestRouter(NewHolder(nil, nil))
	w = doRequest(t, empty, http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestGetDataset(t *testing.T) {
	r := newTestRouter(NewHolder(testDataset(), nil))
	w := doRequest(t, r, http.MethodGet, "/api/dataset")
	require.Equal(t, http.StatusOK, w.Code)

	ds, err := dataset.Decode(w.Body)
	require.NoError(t, err)
	assert.Equal(t, 2, ds.Meta.CaseCount)
	assert.Equal(t, "W.O. Douglas", ds.MemberName("WODouglas"))
}

func TestGetDataset_NotLoaded(t *testing.T) {
	r := newTestRouter(NewHolder(nil, nil))
	w := doRequest(t, r, http.MethodGet, "/api/dataset")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestGetView(t *testing.T) {
	r := newTestRouter(NewHolder(testDataset(), nil))
	w := doRequest(t, r, http.MethodGet, "/api/view?members=HLBlack,WODouglas")
	require.Equal(t, http.StatusOK, w.Code)

	var resp viewResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, []string{"HLBlack", "WODouglas"}, resp.Members)
	assert.Equal(t, 2, resp.CaseCount)
	require.Len(t, resp.Matrix, 2)
	assert.Nil(t, resp.Matrix[0][0], "diagonal should be null")

	cell := resp.Matrix[0][1]
	require.NotNil(t, cell)
	assert.Equal(t, 1, cell.Agreed)
	assert.Equal(t, 2, cell.Total)
	require.NotNil(t, cell.Rate)
	assert.InDelta(t, 0.5, *cell.Rate, 1e-9)

	require.NotNil(t, resp.ScaleRange)
	assert.InDelta(t, 0.5, resp.ScaleRange.Min, 1e-9)
	assert.InDelta(t, 0.5, resp.ScaleRange.Max, 1e-9)
}

func TestGetView_PeriodWindow(t *testing.T) {
	r := newTestRouter(NewHolder(testDataset(), nil))

	w := doRequest(t, r, http.MethodGet, "/api/view?from=1960&to=1960")
	require.Equal(t, http.StatusOK, w.Code)
	var resp viewResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, []string{"HLBlack", "WODouglas"}, resp.Members)
	assert.Equal(t, 1, resp.CaseCount)

	w = doRequest(t, r, http.MethodGet, "/api/view?from=1990&to=1995")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"matrix":[]`)
	assert.Contains(t, w.Body.String(), `"scale_range":null`)
}

func TestGetView_BadParams(t *testing.T) {
	r := newTestRouter(NewHolder(testDataset(), nil))

	tests := []struct {
		name   string
		target string
	}{
		{"non-numeric from", "/api/view?from=abc"},
		{"non-numeric min sample", "/api/view?min_sample=lots"},
		{"inverted range", "/api/view?from=1961&to=1960"},
		{"negative min sample", "/api/view?min_sample=-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(t, r, http.MethodGet, tt.target)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), "error")
		})
	}
}

func TestGetPairs(t *testing.T) {
	r := newTestRouter(NewHolder(testDataset(), nil))
	w := doRequest(t, r, http.MethodGet, "/api/pairs")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Pairs []struct {
			A    string  `json:"a"`
			B    string  `json:"b"`
			Rate float64 `json:"rate"`
		} `json:"pairs"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Pairs, 3)
	assert.InDelta(t, 1.0, resp.Pairs[0].Rate, 1e-9)
	assert.InDelta(t, 0.0, resp.Pairs[2].Rate, 1e-9)

	w = doRequest(t, r, http.MethodGet, "/api/pairs?limit=1")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Pairs, 1)

	w = doRequest(t, r, http.MethodGet, "/api/pairs?min_sample=5")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"pairs":[]`)

	w = doRequest(t, r, http.MethodGet, "/api/pairs?limit=-2")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPostReload(t *testing.T) {
	next := testDataset()
	next.Meta.Source = "reloaded"
	holder := NewHolder(testDataset(), func() (*dataset.Dataset, error) {
		return next, nil
	})
	r := newTestRouter(holder)

	w := doRequest(t, r, http.MethodPost, "/api/reload")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "reloaded", holder.Dataset().Meta.Source)
}

func TestPostReload_NotConfigured(t *testing.T) {
	r := newTestRouter(NewHolder(testDataset(), nil))
	w := doRequest(t, r, http.MethodPost, "/api/reload")
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestPostReload_FailureKeepsDataset(t *testing.T) {
	original := testDataset()
	holder := NewHolder(original, func() (*dataset.Dataset, error) {
		return nil, errors.New("source file not found")
	})
	r := newTestRouter(holder)

	w := doRequest(t, r, http.MethodPost, "/api/reload")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Same(t, original, holder.Dataset())
}

func TestHolderReload_NoLoader(t *testing.T) {
	holder := NewHolder(nil, nil)
	assert.False(t, holder.CanReload())
	_, err := holder.Reload()
	assert.ErrorIs(t, err, ErrNoLoader)
	assert.Nil(t, holder.Dataset())
}
