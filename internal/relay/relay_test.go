package relay

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"storedesk/internal/models"
)

func sampleOrder() models.Order {
	return models.Order{
		ID:      31,
		StoreID: 7,
		Items: []models.OrderItem{
			{Name: "Margherita", Quantity: 2, Price: 8.5},
			{Name: "Cola", Quantity: 1, Price: 2},
		},
		TotalPrice:      19,
		DeliveryAddress: "Main St 1",
		Status:          models.StatusPending,
	}
}

func TestCard(t *testing.T) {
	card := Card(sampleOrder())
	for _, want := range []string{"New order #31", "2 x Margherita  8.50", "Total: 19.00", "Deliver to: Main St 1"} {
		if !strings.Contains(card, want) {
			t.Errorf("card missing %q:\n%s", want, card)
		}
	}
	if strings.Contains(card, "Phone:") {
		t.Error("empty phone must be left out")
	}
}

func TestRoutingKey(t *testing.T) {
	if got := RoutingKey(sampleOrder()); got != "store.7.new_order" {
		t.Errorf("RoutingKey = %q", got)
	}
}

type recordingSink struct {
	got []int64
	err error
}

func (r *recordingSink) Forward(_ context.Context, o models.Order) error {
	r.got = append(r.got, o.ID)
	return r.err
}

func TestFanoutCallsEverySink(t *testing.T) {
	boom := errors.New("sink down")
	a := &recordingSink{err: boom}
	b := &recordingSink{}
	err := Fanout{a, b}.Forward(context.Background(), sampleOrder())
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want the failing sink's error", err)
	}
	if len(a.got) != 1 || len(b.got) != 1 {
		t.Errorf("a = %v, b = %v", a.got, b.got)
	}
	if err := (Fanout{}).Forward(context.Background(), sampleOrder()); err != nil {
		t.Errorf("empty fanout err = %v", err)
	}
}

// fakeTelegram answers getMe and records sendMessage calls.
type fakeTelegram struct {
	mu   sync.Mutex
	sent []map[string]string
}

func (f *fakeTelegram) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()
	w.Header().Set("Content-Type", "application/json")
	switch {
	case strings.HasSuffix(r.URL.Path, "/getMe"):
		_, _ = w.Write([]byte(`{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"Desk","username":"desk_bot"}}`))
	case strings.HasSuffix(r.URL.Path, "/sendMessage"):
		f.mu.Lock()
		f.sent = append(f.sent, map[string]string{"chat_id": r.Form.Get("chat_id"), "text": r.Form.Get("text")})
		f.mu.Unlock()
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":5,"date":0,"chat":{"id":42,"type":"private"}}}`))
	default:
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"ok":false,"error_code":404,"description":"Not Found"}`))
	}
}

func TestTelegramSink(t *testing.T) {
	fake := &fakeTelegram{}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	bot, err := tgbotapi.NewBotAPIWithAPIEndpoint("123:abc", srv.URL+"/bot%s/%s")
	if err != nil {
		t.Fatalf("NewBotAPI: %v", err)
	}
	sink := NewTelegramSink(bot, 42)
	if err := sink.Forward(context.Background(), sampleOrder()); err != nil {
		t.Fatalf("Forward: %v", err)
	}

	fake.mu.Lock()
	defer fake.mu.Unlock()
	if len(fake.sent) != 1 {
		t.Fatalf("sent = %v", fake.sent)
	}
	if fake.sent[0]["chat_id"] != "42" || !strings.Contains(fake.sent[0]["text"], "New order #31") {
		t.Errorf("message = %v", fake.sent[0])
	}
}

func TestTelegramSinkHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := NewTelegramSink(nil, 1).Forward(ctx, sampleOrder()); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v", err)
	}
}

func TestAMQPSink_Integration(t *testing.T) {
	url := os.Getenv("AMQP_URL")
	if url == "" {
		t.Skip("skipping integration test: AMQP_URL not set")
	}
	exchange := "storedesk.test"
	sink, err := DialAMQP(url, exchange)
	if err != nil {
		t.Fatalf("DialAMQP: %v", err)
	}
	defer sink.Close()

	ch := sink.Channel()
	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := ch.QueueBind(q.Name, "store.*.new_order", exchange, false, nil); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sink.Forward(ctx, sampleOrder()); err != nil {
		t.Fatalf("Forward: %v", err)
	}

	var (
		msg amqpDelivery
		ok  bool
	)
	for !ok {
		d, got, err := ch.Get(q.Name, true)
		if err != nil {
			t.Fatal(err)
		}
		if got {
			msg, ok = amqpDelivery{key: d.RoutingKey, body: d.Body, id: d.MessageId}, true
			break
		}
		select {
		case <-ctx.Done():
			t.Fatal("message never arrived")
		case <-time.After(20 * time.Millisecond):
		}
	}

	if msg.key != "store.7.new_order" || msg.id == "" {
		t.Errorf("delivery key = %q, id = %q", msg.key, msg.id)
	}
	var o models.Order
	if err := json.Unmarshal(msg.body, &o); err != nil || o.ID != 31 {
		t.Errorf("body = %s, %v", msg.body, err)
	}
}

func TestAMQPSinkLateConfirms_Integration(t *testing.T) {
	url := os.Getenv("AMQP_URL")
	if url == "" {
		t.Skip("skipping integration test: AMQP_URL not set")
	}
	sink, err := DialAMQP(url, "storedesk.test")
	if err != nil {
		t.Fatalf("DialAMQP: %v", err)
	}
	defer sink.Close()

	// give up on the confirms of a few orders, then every later forward must
	// still get its own answer
	for i := 0; i < 3; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), time.Microsecond)
		_ = sink.Forward(ctx, sampleOrder())
		cancel()
	}
	for i := 0; i < 3; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := sink.Forward(ctx, sampleOrder())
		cancel()
		if err != nil {
			t.Fatalf("Forward %d after abandoned confirms: %v", i, err)
		}
	}
}

type amqpDelivery struct {
	key  string
	body []byte
	id   string
}
