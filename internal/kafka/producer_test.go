package kafka

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestProducer_PublishAfterCloseDrops(t *testing.T) {
	p := NewProducer([]string{"localhost:9092"}, 4, zap.NewNop())

	p.Publish("order.created", []byte("o-1"), []byte(`{}`))
	assert.Len(t, p.inbox, 1)

	p.Close()
	assert.NotPanics(t, func() {
		p.Publish("order.created", []byte("o-2"), []byte(`{}`))
	})
	assert.NotPanics(t, p.Close)
}

func TestProducer_ConcurrentPublishAndClose(t *testing.T) {
	p := NewProducer([]string{"localhost:9092"}, 1, zap.NewNop())

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				p.Publish("order.status.changed", []byte("o"), []byte(`{}`))
			}
		}()
	}
	p.Close()
	wg.Wait()
}

func TestProducer_FullInboxDrops(t *testing.T) {
	p := NewProducer([]string{"localhost:9092"}, 1, zap.NewNop())
	p.Publish("order.created", []byte("a"), []byte(`{}`))
	p.Publish("order.created", []byte("b"), []byte(`{}`))
	assert.Len(t, p.inbox, 1)
}
