package history

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonyyueyu/optimization/pkg/chat"
)

func TestCreate(t *testing.T) {
	t.Run("should return the new thread id", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/api/history/threads", r.URL.Path)

			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "alice", body["owner"])
			assert.Equal(t, "minimize shipping cost", body["title"])

			w.WriteHeader(http.StatusCreated)
			fmt.Fprint(w, `{"id":"thread-123"}`)
		}))
		defer server.Close()

		client := NewClient(server.URL)
		id, err := client.Create(context.Background(), "alice", "minimize shipping cost")
		require.NoError(t, err)
		assert.Equal(t, "thread-123", id)
	})

	t.Run("should reject an empty id", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{}`)
		}))
		defer server.Close()

		_, err := NewClient(server.URL).Create(context.Background(), "alice", "t")
		assert.Error(t, err)
	})
}

func TestList(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "alice", r.URL.Query().Get("owner"))
		fmt.Fprint(w, `{"thread-1":{"title":"first"},"thread-2":{"title":"second"}}`)
	}))
	defer server.Close()

	threads, err := NewClient(server.URL).List(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, threads, 2)
	assert.Equal(t, "first", threads["thread-1"].Title)
}

func TestFetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/history/threads/thread-1/messages", r.URL.Path)
		fmt.Fprint(w, `[{"role":"user","type":"text","content":"solve it"},{"role":"assistant","type":"steps","summary":"done","steps":[{"number":1}]}]`)
	}))
	defer server.Close()

	messages, err := NewClient(server.URL).Fetch(context.Background(), "alice", "thread-1")
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.True(t, messages[0].IsUser())
	assert.True(t, messages[1].IsSteps())
	assert.Equal(t, 1, messages[1].Steps[0].Number)
}

func TestAppend(t *testing.T) {
	var got struct {
		Owner   string       `json:"owner"`
		Message chat.Message `json:"message"`
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	msg := chat.NewStepsMessage("solved", []chat.Step{{Number: 1, Output: "42"}})
	err := NewClient(server.URL).Append(context.Background(), "alice", "thread-1", msg)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Owner)
	assert.Equal(t, chat.TypeSteps, got.Message.Type)
}

func TestDelete(t *testing.T) {
	t.Run("should issue DELETE for the thread", func(t *testing.T) {
		var method, path string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			method = r.Method
			path = r.URL.Path
			w.WriteHeader(http.StatusNoContent)
		}))
		defer server.Close()

		err := NewClient(server.URL).Delete(context.Background(), "alice", "thread-9")
		require.NoError(t, err)
		assert.Equal(t, http.MethodDelete, method)
		assert.Equal(t, "/api/history/threads/thread-9", path)
	})

	t.Run("should report failure status", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()

		err := NewClient(server.URL).Delete(context.Background(), "alice", "missing")
		assert.Error(t, err)
	})
}

func TestClose(t *testing.T) {
	t.Run("should fire the close notification", func(t *testing.T) {
		hit := make(chan string, 1)
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hit <- r.URL.Path
		}))
		defer server.Close()

		NewClient(server.URL).Close("alice", "thread-1")
		assert.Equal(t, "/api/history/threads/thread-1/close", <-hit)
	})

	t.Run("should swallow delivery failures", func(t *testing.T) {
		client := NewClient("http://127.0.0.1:1") // nothing listening
		assert.NotPanics(t, func() {
			client.Close("alice", "thread-1")
		})
	})
}
