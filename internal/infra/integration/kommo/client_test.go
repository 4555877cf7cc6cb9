package kommo

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/impressaovipjames-spec/hybrid-nexus-render/internal/automation"
)

func TestAddNote_ExistingContact(t *testing.T) {
	var noteBody []noteRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/contacts":
			assert.Equal(t, "11900000000", r.URL.Query().Get("query"))
			w.Write([]byte(`{"_embedded":{"contacts":[{"id":42}]}}`))
		case r.Method == http.MethodPost && r.URL.Path == "/contacts/42/notes":
			b, _ := io.ReadAll(r.Body)
			require.NoError(t, json.Unmarshal(b, &noteBody))
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{}`))
		default:
			t.Errorf("requisição inesperada: %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok")
	err := c.AddNote(context.Background(), automation.CRMNote{
		Phone: "11900000000", Email: "ana@x.com", Name: "Ana", Action: "status_update", Description: "Ana virou qualificado",
	})
	require.NoError(t, err)
	require.Len(t, noteBody, 1)
	assert.Equal(t, "common", noteBody[0].NoteType)
	assert.Equal(t, "Ana virou qualificado", noteBody[0].Params.Text)
}

func TestAddNote_CreatesMissingContact(t *testing.T) {
	created := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet:
			w.WriteHeader(http.StatusNoContent)
		case r.URL.Path == "/contacts":
			created = true
			w.Write([]byte(`{"_embedded":{"contacts":[{"id":7}]}}`))
		case r.URL.Path == "/contacts/7/notes":
			w.Write([]byte(`{}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	err := NewClient(srv.URL, "tok").AddNote(context.Background(), automation.CRMNote{Phone: "1", Email: "b@x.com", Name: "Bia", Action: "lead_capture"})
	require.NoError(t, err)
	assert.True(t, created)
}

func TestAddNote_NotConfiguredAndUpstreamError(t *testing.T) {
	err := NewClient("http://127.0.0.1:0", "").AddNote(context.Background(), automation.CRMNote{})
	assert.Error(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	err = NewClient(srv.URL, "tok").AddNote(context.Background(), automation.CRMNote{Phone: "1"})
	assert.Error(t, err)
}
