package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type recorder struct {
	events []Event
}

func (r *recorder) OnEvent(e Event) { r.events = append(r.events, e) }

func TestPublishFansOutToAllSubscribers(t *testing.T) {
	b := New()
	r1, r2 := &recorder{}, &recorder{}
	b.Subscribe(r1)
	b.Subscribe(r2)

	b.DataAdded("k")
	assert.Equal(t, []Event{{Kind: KindDataAdded, Key: "k"}}, r1.events)
	assert.Equal(t, []Event{{Kind: KindDataAdded, Key: "k"}}, r2.events)
}

func TestPublishDistinguishesKinds(t *testing.T) {
	b := New()
	r := &recorder{}
	b.Subscribe(r)

	b.DataAdded("a")
	b.DataRemoved("a")
	b.KeyModified("a")

	require := []Kind{KindDataAdded, KindDataRemoved, KindKeyModified}
	for i, e := range r.events {
		assert.Equal(t, require[i], e.Kind)
	}
}

func TestSubscribeAfterPublishMissesEarlierEvents(t *testing.T) {
	b := New()
	b.DataAdded("before")
	r := &recorder{}
	b.Subscribe(r)
	b.DataAdded("after")
	assert.Len(t, r.events, 1)
	assert.Equal(t, "after", r.events[0].Key)
}
