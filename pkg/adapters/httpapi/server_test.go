package httpapi_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/lattice/pkg/adapters/httpapi"
	"github.com/aretw0/lattice/pkg/adapters/memory"
	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/schema"
)

func testServer(t *testing.T) *httptest.Server {
	t.Helper()
	loader := memory.NewLoader(&schema.Schema{
		ID: "signup",
		Sections: []schema.Section{
			{
				ID:    "main",
				Order: 1,
				Fields: []schema.Field{
					{ID: "plan", Type: schema.FieldSelect, Required: true, Options: &schema.OptionSet{
						Static: []schema.Option{{Value: "free"}, {Value: "pro"}},
					}},
					{
						ID:       "company",
						Type:     schema.FieldText,
						Required: true,
						Visible:  &schema.Condition{Field: "plan", Cmp: schema.CmpEq, Value: "pro"},
					},
				},
			},
		},
	})
	srv := httptest.NewServer(httpapi.NewHandler(loader))
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestValidateEndpoint(t *testing.T) {
	srv := testServer(t)

	t.Run("full pass reports errors", func(t *testing.T) {
		resp := postJSON(t, srv.URL+"/schemas/signup/validate", map[string]any{
			"data": domain.Snapshot{"plan": "pro"},
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var results domain.ValidationResults
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&results))
		assert.False(t, results.IsValid)
		assert.Contains(t, results.FieldErrors, "company")
	})

	t.Run("scoped pass via field parameter", func(t *testing.T) {
		resp := postJSON(t, srv.URL+"/schemas/signup/validate", map[string]any{
			"data":  domain.Snapshot{"plan": "free"},
			"field": "plan",
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var results domain.ValidationResults
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&results))
		assert.True(t, results.IsValid)
	})

	t.Run("unknown schema is 404", func(t *testing.T) {
		resp := postJSON(t, srv.URL+"/schemas/ghost/validate", map[string]any{"data": domain.Snapshot{}})
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestConditionalEndpoint(t *testing.T) {
	srv := testServer(t)

	resp := postJSON(t, srv.URL+"/schemas/signup/conditional", map[string]any{
		"data": domain.Snapshot{"plan": "free"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var state domain.ConditionalState
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&state))
	assert.False(t, state.Fields["company"].Visible)
	assert.True(t, state.Fields["plan"].Visible)
}

func TestDependentsEndpoint(t *testing.T) {
	srv := testServer(t)

	resp, err := http.Get(srv.URL + "/schemas/signup/dependents?field=plan")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Field      string   `json:"field"`
		Dependents []string `json:"dependents"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, []string{"company"}, body.Dependents)

	t.Run("unknown field is 400", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/schemas/signup/dependents?field=nope")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestSchemaEndpoints(t *testing.T) {
	srv := testServer(t)

	t.Run("list", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/schemas")
		require.NoError(t, err)
		defer resp.Body.Close()

		var body struct {
			Schemas []string `json:"schemas"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, []string{"signup"}, body.Schemas)
	})

	t.Run("fetch round-trips through the schema codec", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/schemas/signup")
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var s schema.Schema
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&s))
		assert.Equal(t, "signup", s.ID)
		require.NoError(t, s.Validate())
	})
}
