package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-weekly-orders/internal/logging"
	"github.com/ariefcatur/go-weekly-orders/internal/orders"
)

type fakeSender struct {
	sent []string
	err  error
}

func (f *fakeSender) Send(ctx context.Context, text string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, text)
	return nil
}

type fakeDedup map[string]bool

func (f fakeDedup) FirstSeen(ctx context.Context, service, id string) (bool, error) {
	k := service + ":" + id
	if f[k] {
		return false, nil
	}
	f[k] = true
	return true, nil
}

func (f fakeDedup) Forget(ctx context.Context, service, id string) error {
	delete(f, service+":"+id)
	return nil
}

func placed(t *testing.T) kafkago.Message {
	t.Helper()
	b, err := NewOrderPlaced(orders.Order{
		ID:           5,
		CustomerName: "Ana",
		DeliveryFee:  d("10"),
		TotalAmount:  d("22.40"),
		Items: []orders.Item{
			{ProductID: 1, ProductName: "Tomate", Unit: "kg", Quantity: d("2"), UnitPrice: d("6.20"), LineTotal: d("12.40")},
		},
	}, "weekly-orders", "trace-1")
	require.NoError(t, err)
	return kafkago.Message{Key: PartitionKey(5), Value: b}
}

func newDispatcher(s Sender) *Dispatcher {
	return &Dispatcher{Sender: s, Dedup: fakeDedup{}, Service: "notifier", Log: logging.Discard()}
}

func TestDispatcher_SendsOnce(t *testing.T) {
	s := &fakeSender{}
	disp := newDispatcher(s)
	m := placed(t)

	require.NoError(t, disp.HandleOrderPlaced(context.Background(), m))
	require.NoError(t, disp.HandleOrderPlaced(context.Background(), m))

	require.Len(t, s.sent, 1)
	assert.Contains(t, s.sent[0], "Novo pedido #5")
	assert.Contains(t, s.sent[0], "2 kg Tomate: R$ 12,40")
}

func TestDispatcher_FailedSendIsRetried(t *testing.T) {
	s := &fakeSender{err: errors.New("timeout")}
	disp := newDispatcher(s)
	m := placed(t)

	assert.Error(t, disp.HandleOrderPlaced(context.Background(), m))

	s.err = nil
	require.NoError(t, disp.HandleOrderPlaced(context.Background(), m))
	assert.Len(t, s.sent, 1)
}

func TestDispatcher_SkipsForeignAndMalformed(t *testing.T) {
	s := &fakeSender{}
	disp := newDispatcher(s)
	ctx := context.Background()

	assert.NoError(t, disp.HandleOrderPlaced(ctx, kafkago.Message{Value: []byte("not json")}))

	other, _ := json.Marshal(Envelope{EventID: "x", EventType: "Something"})
	assert.NoError(t, disp.HandleOrderPlaced(ctx, kafkago.Message{Value: other}))

	bad, _ := json.Marshal(Envelope{EventID: "y", EventType: EventOrderPlaced, Payload: json.RawMessage(`"nope"`)})
	assert.NoError(t, disp.HandleOrderPlaced(ctx, kafkago.Message{Value: bad}))

	disabled := newDispatcher(&fakeSender{err: ErrChatDisabled})
	assert.NoError(t, disabled.HandleOrderPlaced(ctx, placed(t)))

	assert.Empty(t, s.sent)
}

func TestNewOrderPlaced_Envelope(t *testing.T) {
	m := placed(t)
	var env Envelope
	require.NoError(t, json.Unmarshal(m.Value, &env))
	assert.Equal(t, EventOrderPlaced, env.EventType)
	assert.Equal(t, "5", env.CorrelationID)
	assert.Equal(t, "trace-1", env.TraceID)
	assert.NotEmpty(t, env.EventID)
	assert.Equal(t, []byte("5"), m.Key)
}
