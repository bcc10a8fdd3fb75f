package apiclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticToken string

func (t staticToken) Token() string { return string(t) }

func newTestClient(t *testing.T, h http.HandlerFunc, token string, timeout ...time.Duration) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	opts := Options{BaseURL: srv.URL, Tokens: staticToken(token)}
	if len(timeout) > 0 {
		opts.Timeout = timeout[0]
	}
	return New(opts), srv
}

func writeJSON(w http.ResponseWriter, code int, body string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_, _ = io.WriteString(w, body)
}

func TestClient_Do_success(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
		wantData    string
		wantMessage string
	}{
		{
			name:        "envelope passed through",
			contentType: "application/json",
			body:        `{"success": true, "data": {"id": "c1"}, "message": "loaded"}`,
			wantData:    `{"id": "c1"}`,
			wantMessage: "loaded",
		},
		{name: "raw array wrapped", contentType: "application/json", body: `[{"id": "c1"}, {"id": "c2"}]`, wantData: `[{"id": "c1"}, {"id": "c2"}]`},
		{name: "raw object wrapped", contentType: "application/json", body: `{"id": "c1"}`, wantData: `{"id": "c1"}`},
		{name: "envelope with null data", contentType: "application/json", body: `{"success": true, "data": null}`},
		{name: "malformed json degrades to null", contentType: "application/json", body: `{"id": `},
		{name: "empty body", contentType: "application/json"},
		{name: "plain text kept as message", contentType: "text/plain", body: "enrolled", wantMessage: "enrolled"},
		{name: "undeclared json", body: `{"id": "c1"}`, wantData: `{"id": "c1"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				if tt.contentType != "" {
					w.Header().Set("Content-Type", tt.contentType)
				}
				_, _ = io.WriteString(w, tt.body)
			}, "token")

			res := c.Get(context.Background(), "/api/courses")
			require.True(t, res.Success, "error: %s", res.Error)
			assert.Equal(t, http.StatusOK, res.Status)
			assert.Equal(t, KindNone, res.Kind)
			if tt.wantData == "" {
				assert.Empty(t, res.Data)
			} else {
				assert.JSONEq(t, tt.wantData, string(res.Data))
			}
			assert.Equal(t, tt.wantMessage, res.Message.String)
			assert.Equal(t, tt.wantMessage != "", res.Message.Valid)
		})
	}
}

func TestClient_Do_failure(t *testing.T) {
	tests := []struct {
		name        string
		code        int
		contentType string
		body        string
		wantErr     string
	}{
		{name: "message", code: 400, contentType: "application/json", body: `{"message": "Title is required", "error": "bad"}`, wantErr: "Title is required"},
		{name: "error", code: 403, contentType: "application/json", body: `{"error": "permission denied"}`, wantErr: "permission denied"},
		{name: "error object", code: 403, contentType: "application/json", body: `{"error": {"message": "forbidden"}}`, wantErr: "forbidden"},
		{name: "detail", code: 409, contentType: "application/problem+json", body: `{"detail": "already enrolled"}`, wantErr: "already enrolled"},
		{name: "title", code: 400, contentType: "application/problem+json", body: `{"title": "One or more validation errors occurred.", "errors": {"Title": ["too long"]}}`, wantErr: "One or more validation errors occurred."},
		{name: "errors array", code: 422, contentType: "application/json", body: `{"errors": ["a", {"message": "b"}, "c"]}`, wantErr: "a; b; c"},
		{name: "errors object", code: 400, contentType: "application/json", body: `{"errors": {"Title": ["required", "too short"], "AgeGroup": ["invalid"]}}`, wantErr: "invalid; required; too short"},
		{name: "plain text", code: 502, contentType: "text/html", body: "<h1>Bad Gateway</h1>", wantErr: "<h1>Bad Gateway</h1>"},
		{name: "empty json", code: 404, contentType: "application/json", body: `{}`, wantErr: "404 Not Found"},
		{name: "no body", code: 500, wantErr: "500 Internal Server Error"},
		{name: "malformed json", code: 500, contentType: "application/json", body: `{"message": `, wantErr: "500 Internal Server Error"},
		{name: "envelope failure on 200", code: 200, contentType: "application/json", body: `{"success": false, "data": null, "message": "quiz closed"}`, wantErr: "quiz closed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				if tt.contentType != "" {
					w.Header().Set("Content-Type", tt.contentType)
				}
				w.WriteHeader(tt.code)
				_, _ = io.WriteString(w, tt.body)
			}, "token")

			res := c.Post(context.Background(), "/api/courses", map[string]string{"title": "x"})
			assert.False(t, res.Success)
			assert.Equal(t, tt.code, res.Status)
			assert.Equal(t, KindHTTP, res.Kind)
			assert.Equal(t, tt.wantErr, res.Error)

			err := res.Err()
			require.Error(t, err)
			assert.True(t, IsStatus(err, tt.code))
			assert.True(t, IsKind(err, KindHTTP))
		})
	}
}

func TestClient_Do_headers(t *testing.T) {
	var got http.Header
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		writeJSON(w, http.StatusOK, `{}`)
	}, "abc")

	res := c.Post(context.Background(), "courses", map[string]string{"title": "x"}, Header("X-Extra", "1"))
	require.True(t, res.Success)
	assert.Equal(t, "application/json", got.Get("Accept"))
	assert.Equal(t, "application/json", got.Get("Content-Type"))
	assert.Equal(t, "Bearer abc", got.Get("Authorization"))
	assert.Equal(t, "1", got.Get("X-Extra"))
	assert.NotEmpty(t, got.Get("X-Request-ID"))

	// no token: no auth header, call still made
	anon := New(Options{BaseURL: c.BaseURL()})
	res = anon.Get(context.Background(), "/api/courses")
	require.True(t, res.Success)
	assert.Empty(t, got.Get("Authorization"))
}

func TestClient_Do_multipart(t *testing.T) {
	var (
		contentType string
		fields      = make(map[string]string)
		fileContent string
		fileName    string
	)
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		contentType = r.Header.Get("Content-Type")
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			writeJSON(w, http.StatusBadRequest, fmt.Sprintf(`{"message": %q}`, err.Error()))
			return
		}
		for k, v := range r.MultipartForm.Value {
			fields[k] = v[0]
		}
		f, hdr, err := r.FormFile("Image")
		if err == nil {
			defer f.Close()
			data, _ := io.ReadAll(f)
			fileContent = string(data)
			fileName = hdr.Filename
		}
		writeJSON(w, http.StatusCreated, `{"success": true, "data": {"id": "c9"}}`)
	}, "abc")

	form := NewForm().
		Set("Title", "Say No").
		Set("Description", "Prevention basics").
		SetIfNotEmpty("AgeGroup", "  ").
		File("Image", "cover.png", strings.NewReader("PNG..."))
	res := c.Post(context.Background(), "/api/courses", form, Protected())
	require.True(t, res.Success, res.Error)
	assert.True(t, strings.HasPrefix(contentType, "multipart/form-data; boundary="), contentType)
	assert.Equal(t, map[string]string{"Title": "Say No", "Description": "Prevention basics"}, fields)
	assert.Equal(t, "PNG...", fileContent)
	assert.Equal(t, "cover.png", fileName)
}

func TestClient_Do_protectedWithoutToken(t *testing.T) {
	var hits int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		writeJSON(w, http.StatusOK, `{}`)
	}, "")

	res := c.Get(context.Background(), "/api/enrollments/my", Protected())
	assert.False(t, res.Success)
	assert.Equal(t, http.StatusUnauthorized, res.Status)
	assert.Equal(t, KindAuth, res.Kind)
	assert.Equal(t, int32(0), atomic.LoadInt32(&hits))

	// public calls go through
	res = c.Get(context.Background(), "/api/courses")
	assert.True(t, res.Success)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestClient_Do_timeout(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
		writeJSON(w, http.StatusOK, `{}`)
	}, "token", 50*time.Millisecond)

	start := time.Now()
	res := c.Get(context.Background(), "/api/quizzes/q1")
	elapsed := time.Since(start)

	assert.False(t, res.Success)
	assert.Equal(t, http.StatusRequestTimeout, res.Status)
	assert.Equal(t, KindTimeout, res.Kind)
	assert.Equal(t, "request timed out after 50ms: GET /api/quizzes/q1", res.Error)
	assert.Less(t, int64(elapsed), int64(time.Second), "returned after %v", elapsed)
}

func TestClient_Do_callerDeadline(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}, "token", time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	res := c.Get(ctx, "/api/quizzes/q1")

	assert.False(t, res.Success)
	assert.Equal(t, KindTimeout, res.Kind)
	assert.Equal(t, "request timed out: GET /api/quizzes/q1", res.Error)
	assert.NotContains(t, res.Error, time.Minute.String())
}

func TestClient_Do_aborted(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}, "token")

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	res := c.Get(ctx, "/api/quizzes/q1")
	assert.False(t, res.Success)
	assert.Equal(t, KindTimeout, res.Kind)
	assert.Contains(t, res.Error, "aborted")
}

func TestClient_Do_network(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	baseURL := srv.URL
	srv.Close()

	c := New(Options{BaseURL: baseURL, Tokens: staticToken("t")})
	res := c.Get(context.Background(), "/api/courses")
	assert.False(t, res.Success)
	assert.Equal(t, 0, res.Status)
	assert.Equal(t, KindNetwork, res.Kind)
	assert.Contains(t, res.Error, "network error")
}

func TestClient_Do_unauthorizedHook(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, `{"message": "token expired"}`)
	}))
	defer srv.Close()

	c := New(Options{
		BaseURL:        srv.URL,
		Tokens:         staticToken("expired"),
		OnUnauthorized: func() { atomic.AddInt32(&calls, 1) },
	})
	res := c.Get(context.Background(), "/api/enrollments/my", Protected())
	assert.Equal(t, http.StatusUnauthorized, res.Status)
	assert.Equal(t, "token expired", res.Error)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	// no token sent: nothing to invalidate
	anon := New(Options{BaseURL: srv.URL, OnUnauthorized: func() { atomic.AddInt32(&calls, 1) }})
	_ = anon.Get(context.Background(), "/api/auth/me")
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestClient_Do_query(t *testing.T) {
	var rawQuery string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		rawQuery = r.URL.RawQuery
		writeJSON(w, http.StatusOK, `[]`)
	}, "")

	res := c.Get(context.Background(), "/api/courses", Query(map[string][]string{"search": {"drug"}, "ageGroup": {"Teen"}}))
	require.True(t, res.Success)
	assert.Equal(t, "ageGroup=Teen&search=drug", rawQuery)
}

func TestResult_Decode(t *testing.T) {
	type course struct {
		ID string `json:"id"`
	}
	tests := []struct {
		name string
		data string
		want []course
	}{
		{name: "plain", data: `[{"id": "a"}]`, want: []course{{ID: "a"}}},
		{name: "nested envelope", data: `{"success": true, "data": [{"id": "b"}]}`, want: []course{{ID: "b"}}},
		{name: "null", data: `null`},
		{name: "empty"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Result{Success: true, Data: json.RawMessage(tt.data)}
			var got []course
			if err := res.Decode(&got); err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			assert.Equal(t, tt.want, got)
		})
	}

	res := Result{Success: true, Data: json.RawMessage(`"nope"`)}
	var c course
	assert.Error(t, res.Decode(&c))
}

func TestResult_Err(t *testing.T) {
	assert.NoError(t, Result{Success: true}.Err())

	err := Result{Error: "not found", Status: 404, Kind: KindHTTP}.Err()
	assert.EqualError(t, err, "not found (status 404)")
	assert.False(t, IsStatus(err, 401))

	err = Result{Error: "network error", Kind: KindNetwork}.Err()
	assert.EqualError(t, err, "network error")
	assert.True(t, IsKind(err, KindNetwork))
}

func TestResult_Into(t *testing.T) {
	errMissing := errors.New("thing not found")
	errDenied := errors.New("denied")
	sentinels := Statuses{http.StatusNotFound: errMissing, http.StatusForbidden: errDenied}

	var got struct {
		ID string `json:"id"`
	}
	ok := Result{Success: true, Data: json.RawMessage(`{"id": "c1"}`)}
	require.NoError(t, ok.Into(&got, "getting thing", sentinels))
	assert.Equal(t, "c1", got.ID)
	assert.NoError(t, ok.Into(nil, "deleting thing", nil))

	bad := Result{Success: true, Data: json.RawMessage(`[1, 2]`)}
	assert.Contains(t, bad.Into(&got, "getting thing", nil).Error(), "getting thing")

	err := Result{Error: "no such thing", Status: http.StatusNotFound, Kind: KindHTTP}.Into(&got, "getting thing", sentinels)
	assert.ErrorIs(t, err, errMissing)
	assert.EqualError(t, err, "no such thing: thing not found")

	err = Result{Error: "nope", Status: http.StatusForbidden, Kind: KindHTTP}.Into(nil, "deleting thing", sentinels)
	assert.ErrorIs(t, err, errDenied)

	err = Result{Error: "no such thing", Status: http.StatusNotFound, Kind: KindHTTP}.Into(&got, "listing things", nil)
	assert.NotErrorIs(t, err, errMissing)
	assert.True(t, IsStatus(err, http.StatusNotFound))
	assert.EqualError(t, err, "listing things: no such thing (status 404)")

	err = Result{Error: "request timed out", Kind: KindTimeout}.Into(&got, "getting thing", NotFound(errMissing))
	assert.True(t, IsKind(err, KindTimeout))
}
