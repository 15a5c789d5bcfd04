package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"auto_spec_builder/attachments"
	"auto_spec_builder/generator"
	"auto_spec_builder/pipeline"
	"auto_spec_builder/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubLLM struct {
	reply string
	err   error
}

func (s stubLLM) Complete(context.Context, generator.Prompt) (string, error) {
	return s.reply, s.err
}

const reply = "```json\n" + `{"title":"Лендинг","sections":[{"title":"Вёрстка","items":[{"content":"Шапка","timeEstimate":60},{"content":"Подвал","timeEstimate":30}]}]}` + "\n```"

type harness struct {
	srv   *httptest.Server
	store *store.Store
}

func newHarness(t *testing.T, llm generator.LLMClient) harness {
	t.Helper()
	dir := t.TempDir()
	st, err := store.Open(context.Background(), filepath.Join(dir, "specs.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	files, err := attachments.NewFileStore(filepath.Join(dir, "uploads"), nil)
	require.NoError(t, err)
	agent, err := generator.NewAgent(llm, nil)
	require.NoError(t, err)
	p, err := pipeline.New(agent, st, files, nil)
	require.NoError(t, err)
	s, err := New(p, st, nil)
	require.NoError(t, err)

	srv := httptest.NewServer(s.Routes())
	t.Cleanup(srv.Close)
	return harness{srv: srv, store: st}
}

func (h harness) do(t *testing.T, method, path string, user int64, body io.Reader, contentType string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, h.srv.URL+path, body)
	require.NoError(t, err)
	if user != 0 {
		req.Header.Set(UserHeader, fmt.Sprint(user))
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := h.srv.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (h harness) doJSON(t *testing.T, method, path string, user int64, v any) *http.Response {
	t.Helper()
	var body io.Reader
	if v != nil {
		data, err := json.Marshal(v)
		require.NoError(t, err)
		body = bytes.NewReader(data)
	}
	return h.do(t, method, path, user, body, "application/json")
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func (h harness) project(t *testing.T, user int64) store.Project {
	t.Helper()
	resp := h.doJSON(t, http.MethodPost, "/api/projects", user, map[string]string{"name": "Сайт"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return decode[store.Project](t, resp)
}

func TestHealthAndIdentity(t *testing.T) {
	h := newHarness(t, stubLLM{reply: reply})

	resp := h.do(t, http.MethodGet, "/api/health", 0, nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("Content-Type"))

	resp = h.do(t, http.MethodGet, "/api/specifications", 0, nil, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "unauthorized", decode[errorBody](t, resp).Kind)

	req, _ := http.NewRequest(http.MethodGet, h.srv.URL+"/api/specifications", nil)
	req.Header.Set(UserHeader, "-3")
	resp2, err := h.srv.Client().Do(req)
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp2.StatusCode)
}

func TestDomains(t *testing.T) {
	h := newHarness(t, stubLLM{})
	resp := h.do(t, http.MethodGet, "/api/crm/systems", 1, nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list := decode[[]map[string]any](t, resp)
	require.Len(t, list, len(generator.Domains))
	assert.Equal(t, "bitrix24", list[0]["id"])
}

func TestStructure(t *testing.T) {
	h := newHarness(t, stubLLM{reply: reply})

	resp := h.doJSON(t, http.MethodPost, "/api/ai/structure", 1, map[string]any{"text": "Нужен лендинг", "crmSystem": "wordpress"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	tree := decode[generator.Tree](t, resp)
	assert.Equal(t, "Лендинг", tree.Title)
	require.Len(t, tree.Sections[0].Items, 2)

	resp = h.doJSON(t, http.MethodPost, "/api/ai/structure", 1, map[string]any{"text": " "})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "validation", decode[errorBody](t, resp).Kind)

	resp = h.do(t, http.MethodPost, "/api/ai/structure", 1, strings.NewReader("{"), "application/json")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGenerate_ErrorClassification(t *testing.T) {
	cases := []struct {
		name   string
		llm    stubLLM
		status int
		kind   string
	}{
		{"timeout", stubLLM{err: generator.ErrTimeout}, http.StatusGatewayTimeout, "timeout"},
		{"unavailable", stubLLM{err: generator.ErrBackendUnavailable}, http.StatusServiceUnavailable, "backend_unavailable"},
		{"status", stubLLM{err: &generator.BackendStatusError{StatusCode: 500, Body: "boom"}}, http.StatusBadGateway, "backend_error"},
		{"malformed", stubLLM{reply: "not json"}, http.StatusBadGateway, "malformed_generation"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t, tc.llm)
			p := h.project(t, 1)

			resp := h.doJSON(t, http.MethodPost, "/api/specifications/generate", 1, map[string]any{"text": "x", "projectId": p.ID})
			assert.Equal(t, tc.status, resp.StatusCode)
			assert.Equal(t, tc.kind, decode[errorBody](t, resp).Kind)

			list, err := h.store.List(context.Background(), 1)
			require.NoError(t, err)
			assert.Empty(t, list)
		})
	}
}

func TestSpecificationLifecycle(t *testing.T) {
	h := newHarness(t, stubLLM{reply: reply})
	p := h.project(t, 1)

	resp := h.doJSON(t, http.MethodPost, "/api/specifications/generate", 1, map[string]any{"text": "Нужен лендинг", "projectId": p.ID + 50})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "parent_not_found", decode[errorBody](t, resp).Kind)

	resp = h.doJSON(t, http.MethodPost, "/api/specifications/generate", 1, map[string]any{"text": "Нужен лендинг", "projectId": p.ID})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	spec := decode[store.Specification](t, resp)
	assert.Equal(t, "Лендинг", spec.Title)

	path := fmt.Sprintf("/api/specifications/%d", spec.ID)
	resp = h.do(t, http.MethodGet, path, 2, nil, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = h.doJSON(t, http.MethodPut, path, 1, map[string]any{
		"title":    "Обновлено",
		"sections": []map[string]any{{"title": "Один", "items": []map[string]any{{"content": "a", "timeEstimate": 90}, {"content": "b"}}}},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	updated := decode[store.Specification](t, resp)
	assert.Equal(t, "Обновлено", updated.Title)
	require.Len(t, updated.Sections, 1)
	assert.Len(t, updated.Sections[0].Items, 2)

	resp = h.doJSON(t, http.MethodPut, path, 1, map[string]any{"title": "x", "sections": []any{}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = h.do(t, http.MethodGet, "/api/export/doc/"+fmt.Sprint(spec.ID), 1, nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.wordprocessingml.document", resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), fmt.Sprintf("tz-%d.docx", spec.ID))

	resp = h.do(t, http.MethodGet, "/api/export/html/"+fmt.Sprint(spec.ID), 1, nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	page, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(page), "1 ч 30 мин")

	resp = h.do(t, http.MethodGet, "/api/specifications", 1, nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]store.Specification](t, resp), 1)

	resp = h.do(t, http.MethodDelete, path, 1, nil, "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = h.do(t, http.MethodGet, path, 1, nil, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = h.do(t, http.MethodGet, "/api/specifications/abc", 1, nil, "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func multipartBody(t *testing.T, field, name string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, name)
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestUploadDoc(t *testing.T) {
	h := newHarness(t, stubLLM{})

	body, ct := multipartBody(t, "document", "brief.txt", []byte("Нужна интеграция с Битрикс24.\n"))
	resp := h.do(t, http.MethodPost, "/api/specifications/upload-doc", 1, body, ct)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Нужна интеграция с Битрикс24.", decode[map[string]string](t, resp)["text"])

	body, ct = multipartBody(t, "document", "brief.pdf", []byte("%PDF"))
	resp = h.do(t, http.MethodPost, "/api/specifications/upload-doc", 1, body, ct)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	body, ct = multipartBody(t, "other", "brief.txt", []byte("x"))
	resp = h.do(t, http.MethodPost, "/api/specifications/upload-doc", 1, body, ct)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAttachments(t *testing.T) {
	h := newHarness(t, stubLLM{reply: reply})
	p := h.project(t, 1)
	resp := h.doJSON(t, http.MethodPost, "/api/specifications/generate", 1, map[string]any{"text": "x", "projectId": p.ID})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	spec := decode[store.Specification](t, resp)
	itemID := spec.Sections[0].Items[0].ID

	var img bytes.Buffer
	require.NoError(t, png.Encode(&img, image.NewGray(image.Rect(0, 0, 3, 3))))

	body, ct := multipartBody(t, "file", "shot.png", img.Bytes())
	resp = h.do(t, http.MethodPost, fmt.Sprintf("/api/attachments/%d", itemID), 2, body, ct)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	body, ct = multipartBody(t, "file", "shot.png", img.Bytes())
	resp = h.do(t, http.MethodPost, fmt.Sprintf("/api/attachments/%d", itemID), 1, body, ct)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	a := decode[store.Attachment](t, resp)
	assert.Equal(t, "image/png", a.MediaType)

	body, ct = multipartBody(t, "file", "big.png", bytes.Repeat([]byte{0}, pipeline.MaxAttachmentSize+10))
	resp = h.do(t, http.MethodPost, fmt.Sprintf("/api/attachments/%d", itemID), 1, body, ct)
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)

	resp = h.do(t, http.MethodDelete, fmt.Sprintf("/api/attachments/%d", a.ID), 1, nil, "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = h.do(t, http.MethodDelete, fmt.Sprintf("/api/attachments/%d", a.ID), 1, nil, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestPrompts(t *testing.T) {
	h := newHarness(t, stubLLM{})

	resp := h.do(t, http.MethodGet, "/api/prompts/default-text", 1, nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	text := decode[map[string]string](t, resp)["text"]
	assert.Equal(t, generator.DefaultInstructions, text)
	assert.NotContains(t, text, generator.OutputContract)

	resp = h.doJSON(t, http.MethodPost, "/api/prompts", 1, map[string]any{"title": "Мой", "content": "Правила", "isDefault": true})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[store.Prompt](t, resp)
	assert.True(t, created.IsDefault)

	resp = h.doJSON(t, http.MethodPost, "/api/prompts", 1, map[string]any{"title": "Пустой", "content": ""})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = h.do(t, http.MethodGet, "/api/prompts", 1, nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]store.Prompt](t, resp), 1)

	resp = h.doJSON(t, http.MethodPost, "/api/prompts", 1, map[string]any{"title": "", "content": "Правила"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	path := fmt.Sprintf("/api/prompts/%d", created.ID)
	resp = h.doJSON(t, http.MethodPut, path, 1, map[string]any{"title": "Мой v2", "content": "Новые правила", "isDefault": true})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	updated := decode[store.Prompt](t, resp)
	assert.Equal(t, "Мой v2", updated.Title)
	assert.Equal(t, "Новые правила", updated.Content)
	resp = h.doJSON(t, http.MethodPut, path, 2, map[string]any{"title": "Чужой", "content": "x"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = h.do(t, http.MethodDelete, fmt.Sprintf("/api/prompts/%d", created.ID), 2, nil, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp = h.do(t, http.MethodDelete, fmt.Sprintf("/api/prompts/%d", created.ID), 1, nil, "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}
