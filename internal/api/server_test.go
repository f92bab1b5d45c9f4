package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dgallion1/casemap/internal/config"
	"github.com/dgallion1/casemap/internal/pipeline"
	"github.com/dgallion1/casemap/internal/xmind"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testKey = "test-key"
	caseDoc = "## 模块A\n### 功能B\n##### C01 登录成功\n- 操作：\n1. 输入账号\n- 预期：\n1. 进入首页\n- 优先级：P1\n"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := config.Config{
		Port:           "0",
		APIKey:         testKey,
		WorkerCount:    1,
		MaxQueueSize:   4,
		MaxUploadBytes: 1 << 20,
		JobTTL:         time.Hour,
	}
	log := slog.New(slog.DiscardHandler)
	orch := pipeline.NewOrchestrator(cfg, pipeline.NewConverter(pipeline.ConverterOptions{}, log), log)
	orch.Start(context.Background())
	t.Cleanup(orch.Stop)
	return NewServer(orch, log, cfg)
}

type part struct {
	field, filename string
	data            []byte
}

func upload(t *testing.T, path string, fields map[string]string, files ...part) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for _, f := range files {
		fw, err := mw.CreateFormFile(f.field, f.filename)
		require.NoError(t, err)
		_, err = fw.Write(f.data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+testKey)
	return req
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m), rec.Body.String())
	return m
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	rec := serve(s, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestAuth(t *testing.T) {
	s := newTestServer(t)

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/api/stats", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "missing authorization", decode(t, rec)["error"])

	req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec = serve(s, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid api key", decode(t, rec)["error"])
}

func TestConvert(t *testing.T) {
	s := newTestServer(t)
	req := upload(t, "/api/convert", map[string]string{"root": "支付/V1", "story": "STORY-7"},
		part{"file", "cases.md", []byte(caseDoc)})
	rec := serve(s, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Equal(t, workbookContentType, rec.Header().Get("Content-Type"))
	assert.Equal(t, "0", rec.Header().Get("X-Casemap-Dropped"))
	_, params, err := mime.ParseMediaType(rec.Header().Get("Content-Disposition"))
	require.NoError(t, err)
	assert.Equal(t, "cases.xmind", params["filename"])

	body := rec.Body.Bytes()
	wb, err := xmind.Load(bytes.NewReader(body), int64(len(body)))
	require.NoError(t, err)
	root := wb.Primary().Root
	assert.Equal(t, "支付", root.Title)
	require.Len(t, root.Children, 1)
	assert.Equal(t, "V1", root.Children[0].Title)
	assert.Equal(t, []string{"STORY-7"}, root.Children[0].Labels)
}

func TestConvert_MergesExisting(t *testing.T) {
	s := newTestServer(t)
	first := serve(s, upload(t, "/api/convert", map[string]string{"root": "支付/V1"}, part{"file", "a.md", []byte(caseDoc)}))
	require.Equal(t, http.StatusOK, first.Code)

	second := serve(s, upload(t, "/api/convert", map[string]string{"root": "支付/V2"},
		part{"file", "a.md", []byte(caseDoc)},
		part{"existing", "支付.xmind", first.Body.Bytes()}))
	require.Equal(t, http.StatusOK, second.Code, second.Body.String())

	body := second.Body.Bytes()
	wb, err := xmind.Load(bytes.NewReader(body), int64(len(body)))
	require.NoError(t, err)
	assert.Len(t, wb.Primary().Root.Children, 2)
}

func TestConvert_Errors(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name   string
		fields map[string]string
		file   part
		code   int
	}{
		{"unsupported extension", nil, part{"file", "a.exe", []byte("x")}, http.StatusBadRequest},
		{"unknown mode", map[string]string{"mode": "tree"}, part{"file", "a.md", []byte(caseDoc)}, http.StatusBadRequest},
		{"missing file", nil, part{"other", "a.md", []byte(caseDoc)}, http.StatusBadRequest},
		{"no content", nil, part{"file", "a.md", []byte("prose only\n")}, http.StatusUnprocessableEntity},
		{"blank root", map[string]string{"root": " / "}, part{"file", "a.md", []byte(caseDoc)}, http.StatusBadRequest},
		{"too large", nil, part{"file", "a.md", bytes.Repeat([]byte("a"), 1<<20+1)}, http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(s, upload(t, "/api/convert", tt.fields, tt.file))
			assert.Equal(t, tt.code, rec.Code, rec.Body.String())
			assert.NotEmpty(t, decode(t, rec)["error"])
		})
	}
}

func TestInspect(t *testing.T) {
	s := newTestServer(t)
	rec := serve(s, upload(t, "/api/inspect", nil, part{"file", "支付_V1.2.md", []byte(caseDoc)}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var in pipeline.Inspection
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &in))
	assert.Equal(t, pipeline.ModeCases, in.Mode)
	assert.Equal(t, "支付V1.2", in.Label.Root)
	assert.Equal(t, "支付V1.2测试用例.xmind", in.FileName)
	require.Len(t, in.Records, 1)
	assert.Equal(t, "登录成功", in.Records[0].Title)
	assert.Equal(t, 1, in.Summary.Total)
}

func TestJobs(t *testing.T) {
	s := newTestServer(t)
	rec := serve(s, upload(t, "/api/jobs", map[string]string{"mode": "outline"},
		part{"file", "plan.md", []byte("# 计划\n- a\n    - b\n")}))
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	accepted := decode(t, rec)
	id, _ := accepted["job_id"].(string)
	require.NotEmpty(t, id)
	assert.Equal(t, "/api/jobs/"+id, accepted["poll_url"])

	authed := func(path string) *http.Request {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("Authorization", "Bearer "+testKey)
		return req
	}

	require.Eventually(t, func() bool {
		var snap pipeline.JobSnapshot
		rec := serve(s, authed("/api/jobs/"+id))
		if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
			return false
		}
		return snap.Status == pipeline.StatusCompleted
	}, 5*time.Second, 10*time.Millisecond)

	res := serve(s, authed("/api/jobs/"+id+"/result"))
	require.Equal(t, http.StatusOK, res.Code, res.Body.String())
	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	_, err = xmind.Load(bytes.NewReader(body), int64(len(body)))
	assert.NoError(t, err)

	assert.Equal(t, http.StatusNotFound, serve(s, authed("/api/jobs/missing")).Code)
	assert.Equal(t, http.StatusNotFound, serve(s, authed("/api/jobs/missing/result")).Code)
}

func TestJobs_FailedResult(t *testing.T) {
	s := newTestServer(t)
	rec := serve(s, upload(t, "/api/jobs", nil, part{"file", "a.md", []byte("nothing\n")}))
	require.Equal(t, http.StatusAccepted, rec.Code)
	id := decode(t, rec)["job_id"].(string)

	job := s.orchestrator.GetJob(id)
	require.NotNil(t, job)
	select {
	case <-job.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("job did not finish")
	}

	req := httptest.NewRequest(http.MethodGet, "/api/jobs/"+id+"/result", nil)
	req.Header.Set("Authorization", "Bearer "+testKey)
	res := serve(s, req)
	assert.Equal(t, http.StatusUnprocessableEntity, res.Code)
	assert.Contains(t, decode(t, res)["error"], "job failed")
}

func TestStats(t *testing.T) {
	s := newTestServer(t)
	require.Equal(t, http.StatusOK, serve(s, upload(t, "/api/convert", nil, part{"file", "a.md", []byte(caseDoc)})).Code)

	req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	req.Header.Set("Authorization", "Bearer "+testKey)
	rec := serve(s, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Conversions pipeline.StatsSnapshot `json:"conversions"`
		QueueDepth  int                    `json:"queue_depth"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Conversions.All.Count)
	assert.Equal(t, 1, body.Conversions.ByMode[pipeline.ModeCases].Count)
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "cases.md", sanitizeFilename(`C:\Users\me\cases.md`))
	assert.Equal(t, "b.md", sanitizeFilename("../a/b.md"))
	assert.Equal(t, "unnamed", sanitizeFilename(""))
}
