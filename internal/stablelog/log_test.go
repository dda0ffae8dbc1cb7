package stablelog

import (
	"encoding/binary"
	"fmt"
	"slices"
	"testing"

	"github.com/hupe1980/neuronidx/segment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(t *testing.T, seg segment.Segment) []Record {
	t.Helper()
	var got []Record
	_, err := Open(seg, func(r Record) error {
		got = append(got, Record{Type: r.Type, Key: slices.Clone(r.Key), Value: slices.Clone(r.Value)})
		return nil
	})
	require.NoError(t, err)
	return got
}

func TestRecordRoundTrip(t *testing.T) {
	rec := Record{Type: RecordTypePut, Key: []byte("key"), Value: []byte("value")}
	buf, err := rec.Encode(nil)
	require.NoError(t, err)
	assert.Len(t, buf, rec.Size())

	got, n, err := Decode(buf)
	require.NoError(t, err)
	assert.Equal(t, rec.Size(), n)
	assert.Equal(t, rec.Type, got.Type)
	assert.Equal(t, rec.Key, got.Key)
	assert.Equal(t, rec.Value, got.Value)
}

func TestDecodeRejectsDamage(t *testing.T) {
	rec := Record{Type: RecordTypeDelete, Key: []byte("k")}
	buf, err := rec.Encode(nil)
	require.NoError(t, err)

	_, _, err = Decode(buf[:len(buf)-1])
	assert.ErrorIs(t, err, ErrShortRecord)

	flipped := slices.Clone(buf)
	flipped[len(flipped)-1] ^= 0xff
	_, _, err = Decode(flipped)
	assert.ErrorIs(t, err, ErrInvalidCRC)

	_, err = (&Record{Type: 9}).Encode(nil)
	assert.ErrorIs(t, err, ErrInvalidType)
}

func TestLogAppendAndReplay(t *testing.T) {
	seg := segment.NewMemory()
	l, err := Open(seg, nil)
	require.NoError(t, err)
	assert.Zero(t, l.Len())

	require.NoError(t, l.Put([]byte("a"), []byte("1")))
	require.NoError(t, l.Put([]byte("b"), nil))
	require.NoError(t, l.Delete([]byte("a")))
	assert.Equal(t, int64(3), l.Len())

	got := collect(t, seg)
	require.Len(t, got, 3)
	assert.Equal(t, RecordTypePut, got[0].Type)
	assert.Equal(t, "a", string(got[0].Key))
	assert.Equal(t, "1", string(got[0].Value))
	assert.Equal(t, "b", string(got[1].Key))
	assert.Equal(t, RecordTypeDelete, got[2].Type)
}

func TestLogGrowsAcrossPages(t *testing.T) {
	seg := segment.NewMemory()
	l, err := Open(seg, nil)
	require.NoError(t, err)

	value := make([]byte, 1000)
	for i := 0; i < 200; i++ {
		key := binary.BigEndian.AppendUint32(nil, uint32(i))
		require.NoError(t, l.Put(key, value))
	}
	assert.Greater(t, seg.Size(), int64(segment.PageSize))
	assert.Len(t, collect(t, seg), 200)
}

func TestLogTornAppendIsInvisible(t *testing.T) {
	faulty := segment.NewFaulty(segment.NewMemory())
	l, err := Open(faulty, nil)
	require.NoError(t, err)
	require.NoError(t, l.Put([]byte("kept"), nil))

	// Allow the record write, fail the header commit.
	faulty.SetFault(segment.Fault{FailAfterWrites: 1})
	err = l.Put([]byte("torn"), nil)
	require.ErrorIs(t, err, segment.ErrInjected)
	assert.Equal(t, int64(1), l.Len())

	faulty.Heal()
	got := collect(t, faulty)
	require.Len(t, got, 1)
	assert.Equal(t, "kept", string(got[0].Key))
}

func TestLogRewrite(t *testing.T) {
	seg := segment.NewMemory()
	l, err := Open(seg, nil)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		require.NoError(t, l.Put([]byte(fmt.Sprintf("k%d", i)), nil))
	}

	live := []Record{
		{Type: RecordTypePut, Key: []byte("k3")},
		{Type: RecordTypePut, Key: []byte("k7")},
	}
	require.NoError(t, l.Rewrite(slices.Values(live)))
	assert.Equal(t, int64(2), l.Len())

	got := collect(t, seg)
	require.Len(t, got, 2)
	assert.Equal(t, "k3", string(got[0].Key))
	assert.Equal(t, "k7", string(got[1].Key))

	// The freed prefix is reused by the next compaction.
	require.NoError(t, l.Rewrite(slices.Values(live[:1])))
	assert.Equal(t, int64(headerSize), l.start)
	got = collect(t, seg)
	require.Len(t, got, 1)
	assert.Equal(t, "k3", string(got[0].Key))

	require.NoError(t, l.Put([]byte("k9"), nil))
	assert.Len(t, collect(t, seg), 2)
}

func TestOpenRejectsForeignSegment(t *testing.T) {
	seg := segment.NewMemory()
	require.NoError(t, segment.Load(seg, []byte("definitely not a log header....!")))

	_, err := Open(seg, nil)
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestOpenPropagatesReplayError(t *testing.T) {
	seg := segment.NewMemory()
	l, err := Open(seg, nil)
	require.NoError(t, err)
	require.NoError(t, l.Put([]byte("x"), nil))

	boom := fmt.Errorf("boom")
	_, err = Open(seg, func(Record) error { return boom })
	assert.ErrorIs(t, err, boom)
}
