package ibc

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAllPages(t *testing.T) {
	p := AllPages()
	assert.Equal(t, uint64(math.MaxUint64), p.Limit)
	assert.Empty(t, p.Key)
	assert.Zero(t, p.Offset)
	assert.False(t, p.CountTotal)
	assert.False(t, p.Reverse)
}

func TestHeightQueryWireValue(t *testing.T) {
	assert.Equal(t, uint64(0), LatestHeight().WireValue())

	h := Height{RevisionNumber: 2, RevisionHeight: 42}
	assert.Equal(t, uint64(42), AtHeight(h).WireValue())
}

func TestHeightCompareWithinRevision(t *testing.T) {
	lo := Height{RevisionNumber: 1, RevisionHeight: 5}
	hi := Height{RevisionNumber: 1, RevisionHeight: 9}
	assert.Equal(t, -1, lo.Compare(hi))
	assert.Equal(t, 1, hi.Compare(lo))
	assert.Equal(t, 0, lo.Compare(lo))
}

func TestHeightComparePanicsAcrossRevisions(t *testing.T) {
	a := Height{RevisionNumber: 1, RevisionHeight: 5}
	b := Height{RevisionNumber: 2, RevisionHeight: 5}
	assert.Panics(t, func() { a.Compare(b) })
}

func TestObjectEqualityIsStructural(t *testing.T) {
	a := NewPacketObject("chainA", "channel-0", "transfer", "chainB")
	b := NewPacketObject("chainA", "channel-0", "transfer", "chainB")
	assert.Equal(t, a, b)

	c := NewChannelObject("chainA", "channel-0", "transfer", "chainB")
	assert.NotEqual(t, a, c, "same identifiers under a different kind are a different object")
}

func TestEventAttrMissingKey(t *testing.T) {
	ev := Event{Type: EventSendPacket, Raw: []byte(`{"packet_src_port":"transfer"}`)}

	v, ok := ev.Attr("packet_src_port")
	assert.True(t, ok)
	assert.Equal(t, "transfer", v)

	_, ok = ev.Attr("packet_dst_port")
	assert.False(t, ok)

	_, ok = Event{Type: EventSendPacket}.Attr("anything")
	assert.False(t, ok)
}
