package webhook

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/borovikovd/oleg-bot/internal/telegram"
)

type recordingProcessor struct {
	updates []*telegram.Update
}

func (p *recordingProcessor) ProcessUpdate(ctx context.Context, update *telegram.Update) {
	p.updates = append(p.updates, update)
}

func TestWebhookAcceptsUpdate(t *testing.T) {
	p := &recordingProcessor{}
	srv := httptest.NewServer(NewServer(p, "").Router())
	defer srv.Close()

	body := `{"update_id":1,"message":{"message_id":10,"chat":{"id":-5,"type":"group"},"text":"hi"}}`
	resp, err := http.Post(srv.URL+"/webhook/telegram", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if len(p.updates) != 1 {
		t.Fatalf("processed %d updates", len(p.updates))
	}
	if p.updates[0].Message == nil || p.updates[0].Message.Text != "hi" {
		t.Fatalf("update = %+v", p.updates[0])
	}
}

func TestWebhookRejectsBadSecret(t *testing.T) {
	p := &recordingProcessor{}
	srv := httptest.NewServer(NewServer(p, "s3cret").Router())
	defer srv.Close()

	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/webhook/telegram", strings.NewReader(`{"update_id":1}`))
	req.Header.Set("X-Telegram-Bot-Api-Secret-Token", "wrong")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if len(p.updates) != 0 {
		t.Fatal("update must not be processed on bad secret")
	}
}

func TestWebhookAcceptsCorrectSecret(t *testing.T) {
	p := &recordingProcessor{}
	srv := httptest.NewServer(NewServer(p, "s3cret").Router())
	defer srv.Close()

	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/webhook/telegram", strings.NewReader(`{"update_id":1}`))
	req.Header.Set("X-Telegram-Bot-Api-Secret-Token", "s3cret")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if len(p.updates) != 1 {
		t.Fatal("update should be processed with matching secret")
	}
}

func TestWebhookRejectsMalformedJSON(t *testing.T) {
	p := &recordingProcessor{}
	srv := httptest.NewServer(NewServer(p, "").Router())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/webhook/telegram", "application/json", strings.NewReader("{not json"))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestHealthEndpoint(t *testing.T) {
	srv := httptest.NewServer(NewServer(&recordingProcessor{}, "").Router())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestRootEndpoint(t *testing.T) {
	srv := httptest.NewServer(NewServer(&recordingProcessor{}, "").Router())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}
