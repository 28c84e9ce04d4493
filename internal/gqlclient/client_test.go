package gqlclient_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/witnet/ethrpc-gateway/internal/gqlclient"
)

func TestQueryDecodesData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "query { block { number } }", body["query"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"block":{"number":42}}}`))
	}))
	defer srv.Close()

	c := gqlclient.New(srv.URL)
	var out struct {
		Block struct {
			Number int `json:"number"`
		} `json:"block"`
	}
	err := c.Query(context.Background(), "query { block { number } }", nil, &out)
	require.NoError(t, err)
	require.Equal(t, 42, out.Block.Number)
}

func TestQueryReturnsGraphQLErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"errors":[{"message":"not found"}]}`))
	}))
	defer srv.Close()

	c := gqlclient.New(srv.URL)
	err := c.Query(context.Background(), "query {}", nil, nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "not found")
}

func TestQueryPassesVariables(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		vars, ok := body["variables"].(map[string]interface{})
		require.True(t, ok)
		require.Equal(t, "0xabc", vars["hash"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{}}`))
	}))
	defer srv.Close()

	c := gqlclient.New(srv.URL)
	err := c.Query(context.Background(), "query($hash: String!) {}", map[string]interface{}{"hash": "0xabc"}, nil)
	require.NoError(t, err)
}
