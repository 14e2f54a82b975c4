package eventlog

import (
	"bytes"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureSink struct{ entries []Entry }

func (c *captureSink) Record(e Entry) { c.entries = append(c.entries, e) }

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	sink := &captureSink{}
	l := New(log.New(&buf, "", 0), "warn", sink).With("relay")

	l.Debugf("hidden %d", 1)
	l.Infof("hidden %d", 2)
	l.Warnf("peer closed: %s", "eof")
	l.Errorf("boom")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "warn [relay] peer closed: eof")
	assert.Contains(t, out, "error [relay] boom")

	require.Len(t, sink.entries, 2)
	assert.Equal(t, "warn", sink.entries[0].Level)
	assert.Equal(t, "relay", sink.entries[0].Component)
	assert.Equal(t, "peer closed: eof", sink.entries[0].Message)
	assert.NotEmpty(t, sink.entries[0].TS)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, Debug, ParseLevel("debug"))
	assert.Equal(t, Info, ParseLevel("info"))
	assert.Equal(t, Info, ParseLevel(""))
	assert.Equal(t, Warn, ParseLevel("warn"))
	assert.Equal(t, Error, ParseLevel("error"))
}

func TestWithDoesNotMutateParent(t *testing.T) {
	var buf bytes.Buffer
	parent := New(log.New(&buf, "", 0), "info", nil)
	_ = parent.With("child")
	parent.Infof("plain")
	assert.Equal(t, "info plain\n", buf.String())
}

func TestDiscard(t *testing.T) {
	assert.NotPanics(t, func() { Discard().Errorf("nothing") })
}
