package remote_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/lattice/pkg/adapters/remote"
	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/ports"
)

func TestCheckerOutcomes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/checks/unique_email", r.URL.Path)

		var req ports.RemoteCheckRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "email", req.FieldID)

		w.Header().Set("Content-Type", "application/json")
		if req.Value == "taken@example.com" {
			json.NewEncoder(w).Encode(map[string]string{
				"status": "invalid", "message": "already registered",
			})
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"status": "valid"})
	}))
	defer srv.Close()

	checker := remote.New(srv.URL)
	ctx := context.Background()

	t.Run("valid", func(t *testing.T) {
		out, err := checker.Check(ctx, ports.RemoteCheckRequest{
			Check: "unique_email", FieldID: "email", Value: "fresh@example.com",
		})
		require.NoError(t, err)
		assert.Equal(t, domain.OutcomeValid, out.Status)
	})

	t.Run("invalid with message", func(t *testing.T) {
		out, err := checker.Check(ctx, ports.RemoteCheckRequest{
			Check: "unique_email", FieldID: "email", Value: "taken@example.com",
		})
		require.NoError(t, err)
		assert.Equal(t, domain.OutcomeInvalid, out.Status)
		assert.Equal(t, "already registered", out.Message)
	})
}

func TestCheckerDegradesToUnknown(t *testing.T) {
	ctx := context.Background()

	t.Run("backend error status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		}))
		defer srv.Close()

		out, err := remote.New(srv.URL).Check(ctx, ports.RemoteCheckRequest{Check: "x"})
		require.Error(t, err)
		assert.Equal(t, domain.OutcomeUnknown, out.Status)
	})

	t.Run("unreachable backend", func(t *testing.T) {
		out, err := remote.New("http://127.0.0.1:1").Check(ctx, ports.RemoteCheckRequest{Check: "x"})
		require.Error(t, err)
		assert.Equal(t, domain.OutcomeUnknown, out.Status)
	})

	t.Run("unrecognized status in body", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]string{"status": "maybe"})
		}))
		defer srv.Close()

		out, err := remote.New(srv.URL).Check(ctx, ports.RemoteCheckRequest{Check: "x"})
		require.NoError(t, err)
		assert.Equal(t, domain.OutcomeUnknown, out.Status)
	})
}
