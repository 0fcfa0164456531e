package scan

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/mailpat/internal/mail"
	"github.com/roach88/mailpat/internal/mailbox"
	"github.com/roach88/mailpat/internal/match"
	"github.com/roach88/mailpat/internal/metrics"
	"github.com/roach88/mailpat/internal/pattern"
	mptestutil "github.com/roach88/mailpat/internal/testutil"
)

func sampleMailbox(n int) *mailbox.Mailbox {
	msgs := make([]*mailbox.Message, n)
	for i := range msgs {
		msgs[i] = &mailbox.Message{Envelope: mailbox.Envelope{
			From:      []mail.Address{{Mailbox: fmt.Sprintf("user%d@example.com", i%3)}},
			Subject:   fmt.Sprintf("message %d", i+1),
			MessageID: fmt.Sprintf("m%d@example.com", i+1),
		}}
		if i%2 == 0 {
			msgs[i].Status = mail.FlagRead
		}
	}
	return mailbox.New(msgs...)
}

func compile(t *testing.T, input string) *pattern.Tree {
	t.Helper()
	tree, err := pattern.Compile(input, pattern.Options{})
	require.NoError(t, err)
	return tree
}

func TestUUIDv7Generator(t *testing.T) {
	id := UUIDv7Generator{}.Generate()
	parsed, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), parsed.Version())
	assert.NotEqual(t, id, UUIDv7Generator{}.Generate())
}

func TestScan(t *testing.T) {
	s := New(match.New(), WithIDGenerator(mptestutil.NewSequenceIDGenerator("")))
	mb := sampleMailbox(6)

	res, err := s.Scan(context.Background(), compile(t, "~f user0 | ~U"), mb)
	require.NoError(t, err)
	assert.Equal(t, "scan-0001", res.ID)
	assert.Equal(t, "~f user0 | ~U", res.Pattern)
	assert.Equal(t, 6, res.Scanned)
	assert.Equal(t, []int{1, 2, 4, 6}, res.Numbers())
}

func TestScan_WorkersKeepOrder(t *testing.T) {
	mb := sampleMailbox(50)
	tree := compile(t, "~R")

	serial, err := New(match.New()).Scan(context.Background(), tree, mb)
	require.NoError(t, err)

	parallel, err := New(match.New(), WithWorkers(4)).Scan(context.Background(), tree, mb)
	require.NoError(t, err)

	assert.Len(t, serial.Matches, 25)
	assert.Equal(t, serial.Numbers(), parallel.Numbers())
}

func TestScan_EmptyMailbox(t *testing.T) {
	res, err := New(match.New(), WithWorkers(3)).Scan(context.Background(), compile(t, "~A"), mailbox.New())
	require.NoError(t, err)
	assert.Zero(t, res.Scanned)
	assert.Empty(t, res.Matches)
}

func TestScan_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(match.New()).Scan(ctx, compile(t, "~A"), sampleMailbox(3))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestScan_EvaluationError(t *testing.T) {
	tree := compile(t, "~A")
	tree.Release()

	_, err := New(match.New()).Scan(context.Background(), tree, sampleMailbox(2))
	assert.ErrorIs(t, err, match.ErrReleasedTree)
}

func TestScan_Metrics(t *testing.T) {
	rec := metrics.NewRecorder()
	clock := mptestutil.NewFakeClock(time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC))
	s := New(match.New(match.WithObserver(rec)), WithRecorder(rec), WithClock(clock))

	_, err := s.Scan(context.Background(), compile(t, "~R"), sampleMailbox(5))
	require.NoError(t, err)

	assert.Equal(t, 3.0, testutil.ToFloat64(rec.MessagesScanned.WithLabelValues("match")))
	assert.Equal(t, 2.0, testutil.ToFloat64(rec.MessagesScanned.WithLabelValues("nomatch")))
	assert.Equal(t, 3.0, testutil.ToFloat64(rec.LeafEvaluations.WithLabelValues("read", "match")))
}

func TestTag(t *testing.T) {
	mb := sampleMailbox(4)
	s := New(match.New())

	res, err := s.Tag(context.Background(), compile(t, "~R"), mb, true)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3}, res.Numbers())

	tagged, err := s.Scan(context.Background(), compile(t, "~T"), mb)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3}, tagged.Numbers())

	_, err = s.Tag(context.Background(), compile(t, "~f user0"), mb, false)
	require.NoError(t, err)
	assert.True(t, mb.Messages()[2].Flags().Has(mail.FlagTagged))
	assert.False(t, mb.Messages()[0].Flags().Has(mail.FlagTagged))
}

func TestScan_CollapsedThread(t *testing.T) {
	root := &mailbox.Message{Envelope: mailbox.Envelope{Subject: "plans", MessageID: "root@example.com"}}
	reply := &mailbox.Message{Envelope: mailbox.Envelope{
		Subject:    "Re: plans",
		MessageID:  "reply@example.com",
		References: []string{"root@example.com"},
	}}
	other := &mailbox.Message{Envelope: mailbox.Envelope{Subject: "other", MessageID: "other@example.com"}}
	mb := mailbox.New(root, reply, other)
	mb.Collapse(root)
	s := New(match.New(), WithWorkers(2))

	all, err := s.Scan(context.Background(), compile(t, "~A"), mb)
	require.NoError(t, err)
	assert.Equal(t, 3, all.Scanned)
	assert.Equal(t, []int{1, 2, 3}, all.Numbers())

	collapsed, err := s.Tag(context.Background(), compile(t, "~v"), mb, true)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, collapsed.Numbers())
	assert.True(t, reply.Flags().Has(mail.FlagTagged))
	assert.False(t, other.Flags().Has(mail.FlagTagged))
}

func TestScan_LogsAtDebug(t *testing.T) {
	var buf bytes.Buffer
	info := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
	_, err := New(match.New(), WithLogger(info)).Scan(context.Background(), compile(t, "~A"), sampleMailbox(2))
	require.NoError(t, err)
	assert.Empty(t, buf.String())

	buf.Reset()
	debug := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	_, err = New(match.New(), WithLogger(debug)).Scan(context.Background(), compile(t, "~A"), sampleMailbox(2))
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "scan finished")
}
