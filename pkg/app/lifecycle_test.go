package app

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/gin-gonic/gin"

	"github.com/yeisme/eduaccess/pkg/configs"
	"github.com/yeisme/eduaccess/pkg/internal/handle"
	"github.com/yeisme/eduaccess/pkg/internal/jobs"
	"github.com/yeisme/eduaccess/pkg/internal/model"
	"github.com/yeisme/eduaccess/pkg/internal/router"
	"github.com/yeisme/eduaccess/pkg/internal/storage"
	"github.com/yeisme/eduaccess/pkg/internal/storage/blob"
	"github.com/yeisme/eduaccess/pkg/internal/storage/db/dbtest"
	"github.com/yeisme/eduaccess/pkg/internal/storage/kv"
	"github.com/yeisme/eduaccess/pkg/internal/storage/mq"
)

const lecture = "Photosynthesis converts light energy into chemical energy. It happens in chloroplasts."

func newTestComponents(t *testing.T, cfg *configs.AppConfig) *Components {
	t.Helper()

	store, err := kv.NewKVClient(context.Background(), &configs.KVConfig{Type: configs.KVMemory})
	if err != nil {
		t.Fatalf("kv: %v", err)
	}

	ch := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 16}, watermill.NopLogger{})
	bus := mq.NewClient(ch, ch)

	t.Cleanup(func() { _ = bus.Close() })

	mgr := &storage.Manager{DB: dbtest.Open(t), Blob: blob.NewMemory(), MQ: bus, KV: store}

	c, err := assemble(mgr, cfg)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}

	return c
}

func uploadBody(t *testing.T, name, content string) ([]byte, string) {
	t.Helper()

	var buf bytes.Buffer

	mw := multipart.NewWriter(&buf)

	fw, err := mw.CreateFormFile("file", name)
	if err != nil {
		t.Fatalf("form file: %v", err)
	}

	_, _ = fw.Write([]byte(content))
	_ = mw.WriteField("title", "Week 1")
	_ = mw.Close()

	return buf.Bytes(), mw.FormDataContentType()
}

func serve(r http.Handler, method, path string, body []byte, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	return w
}

func TestMaterialLifecycle(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := configs.Defaults()
	cfg.AI.Provider = configs.AIProviderEcho
	cfg.AI.SpeechProvider = configs.SpeechPlaceholder
	cfg.Pipeline.AutoProcess = false

	c := newTestComponents(t, &cfg)

	worker := jobs.NewWorker(c.Storage.MQ, c.Pipeline, cfg.Pipeline)
	if err := worker.Start(ctx); err != nil {
		t.Fatalf("start worker: %v", err)
	}

	engine := gin.New()
	router.RegisterMaterialRoutes(engine, &handle.Handlers{Materials: c.Materials, MaxUploadSize: 1 << 20})

	body, ct := uploadBody(t, "notes.txt", lecture)

	w := serve(engine, http.MethodPost, "/materials", body, ct)
	if w.Code != http.StatusCreated {
		t.Fatalf("upload status = %d (%s)", w.Code, w.Body.String())
	}

	var uploaded model.Material
	if err := json.Unmarshal(w.Body.Bytes(), &uploaded); err != nil || uploaded.ID == "" {
		t.Fatalf("decode upload: %v (%s)", err, w.Body.String())
	}

	if uploaded.Status != model.StatusPending {
		t.Fatalf("uploaded status = %s", uploaded.Status)
	}

	w = serve(engine, http.MethodPost, "/materials/process", []byte(`{"materialId":"`+uploaded.ID+`"}`), "application/json")
	if w.Code != http.StatusOK {
		t.Fatalf("process status = %d (%s)", w.Code, w.Body.String())
	}

	var got model.Material

	deadline := time.Now().Add(5 * time.Second)
	for {
		w = serve(engine, http.MethodGet, "/materials/"+uploaded.ID, nil, "")
		if w.Code != http.StatusOK {
			t.Fatalf("get status = %d", w.Code)
		}

		if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
			t.Fatalf("decode material: %v", err)
		}

		if got.Status == model.StatusCompleted || got.Status == model.StatusFailed {
			break
		}

		if time.Now().After(deadline) {
			t.Fatalf("material still %s after polling", got.Status)
		}

		time.Sleep(20 * time.Millisecond)
	}

	if got.Status != model.StatusCompleted {
		t.Fatalf("final status = %s (%s)", got.Status, got.Description)
	}

	if got.Summary == nil || *got.Summary == "" || got.SimplifiedContent == nil || *got.SimplifiedContent == "" {
		t.Errorf("processed fields missing: %+v", got)
	}

	if got.AudioURL == nil || !strings.HasSuffix(*got.AudioURL, "audio/"+uploaded.ID+".mp3") {
		t.Errorf("audio_url = %v", got.AudioURL)
	}

	cancel()
	worker.Wait()
}
