package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/nao1215/menum/pkg/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRESTForwarder_Upload(t *testing.T) {
	t.Parallel()

	t.Run("サービスロールキー付きでPOSTし公開URLを返すこと", func(t *testing.T) {
		t.Parallel()

		var gotPath, gotAuth, gotContentType string
		var gotBody []byte
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			gotPath = r.URL.Path
			gotAuth = r.Header.Get("Authorization")
			gotContentType = r.Header.Get("Content-Type")
			gotBody, _ = io.ReadAll(r.Body)
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"Key":"menu-images/x"}`))
		}))
		t.Cleanup(server.Close)

		f := NewRESTForwarder(Settings{BaseURL: server.URL + "/", ServiceRoleKey: "service-key", Bucket: "menu-images"}, nil)
		obj, err := f.Upload(context.Background(), "menu-1", []byte("png-bytes"), "png")
		require.NoError(t, err)

		assert.Regexp(t, objectPathPattern, obj.Path)
		assert.Equal(t, "/storage/v1/object/menu-images/"+obj.Path, gotPath)
		assert.Equal(t, "Bearer service-key", gotAuth)
		assert.Equal(t, "image/png", gotContentType)
		assert.Equal(t, []byte("png-bytes"), gotBody)
		assert.Equal(t, server.URL+"/storage/v1/object/public/menu-images/"+obj.Path, obj.URL)
		assert.True(t, strings.Contains(obj.URL, obj.Path))
	})

	t.Run("2xx以外の応答はアップロード失敗になること", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"Bucket not found"}`))
		}))
		t.Cleanup(server.Close)

		f := NewRESTForwarder(Settings{BaseURL: server.URL, ServiceRoleKey: "k", Bucket: "missing"}, nil)
		_, err := f.Upload(context.Background(), "menu-1", []byte("x"), "jpg")
		require.Error(t, err)
		assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))
		assert.Contains(t, err.Error(), "Bucket not found")
	})

	t.Run("設定が不足している場合は通信せずに設定エラーになること", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusOK)
		}))
		t.Cleanup(server.Close)

		f := NewRESTForwarder(Settings{BaseURL: server.URL}, nil)
		_, err := f.Upload(context.Background(), "menu-1", []byte("x"), "jpg")
		require.Error(t, err)
		assert.Equal(t, apperr.KindConfig, apperr.KindOf(err))
		assert.Contains(t, apperr.MessageOf(err, ""), "SUPABASE_SERVICE_ROLE_KEY, SUPABASE_STORAGE_BUCKET")
		assert.Equal(t, int32(0), calls.Load())
	})
}
