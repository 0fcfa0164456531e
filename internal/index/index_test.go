package index

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/mailpat/internal/mailbox"
	"github.com/roach88/mailpat/internal/match"
	"github.com/roach88/mailpat/internal/pattern"
	"github.com/roach88/mailpat/internal/testutil"
)

var (
	_ match.Searcher        = (*Index)(nil)
	_ pattern.ExternalQuery = (*Index)(nil)
)

func createTestIndex(t *testing.T) *Index {
	t.Helper()
	path := filepath.Join(t.TempDir(), "index.db")
	ix, err := Open(path, WithClock(testutil.NewFakeClock(time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC))))
	require.NoError(t, err)
	t.Cleanup(func() { ix.Close() })
	return ix
}

func parse(t *testing.T, raw string) *mailbox.Message {
	t.Helper()
	m, err := mailbox.Parse([]byte(raw))
	require.NoError(t, err)
	return m
}

const invoice = "From: billing@example.com\r\n" +
	"Subject: Invoice 42\r\n" +
	"Message-ID: <inv42@example.com>\r\n" +
	"Content-Type: text/html\r\n" +
	"\r\n" +
	"<p>Amount <b>due</b>: 100 EUR</p>\r\n"

const newsletter = "From: news@lists.example.com\r\n" +
	"Subject: Weekly digest\r\n" +
	"Message-ID: <digest@example.com>\r\n" +
	"\r\n" +
	"Nothing about money this week.\r\n"

func TestOpen_AppliesSchema(t *testing.T) {
	ix := createTestIndex(t)

	version, err := ix.SchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, currentSchemaVersion, version)

	n, err := ix.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")
	first, err := Open(path)
	require.NoError(t, err)
	_, err = first.Add(context.Background(), parse(t, newsletter))
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := Open(path)
	require.NoError(t, err)
	defer second.Close()
	n, err := second.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestAdd_SkipsUnchanged(t *testing.T) {
	ix := createTestIndex(t)
	ctx := context.Background()
	m := parse(t, invoice)

	written, err := ix.Add(ctx, m)
	require.NoError(t, err)
	assert.True(t, written)

	written, err = ix.Add(ctx, m)
	require.NoError(t, err)
	assert.False(t, written)

	changed := parse(t, invoice+"Updated.\r\n")
	written, err = ix.Add(ctx, changed)
	require.NoError(t, err)
	assert.True(t, written)

	n, err := ix.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestAdd_NoMessageID(t *testing.T) {
	ix := createTestIndex(t)
	written, err := ix.Add(context.Background(), parse(t, "Subject: anon\r\n\r\nbody\r\n"))
	require.NoError(t, err)
	assert.False(t, written)
}

func TestAddMailbox(t *testing.T) {
	ix := createTestIndex(t)
	mb := mailbox.New(parse(t, invoice), parse(t, newsletter))

	written, skipped, err := ix.AddMailbox(context.Background(), mb)
	require.NoError(t, err)
	assert.Equal(t, 2, written)
	assert.Zero(t, skipped)

	written, skipped, err = ix.AddMailbox(context.Background(), mb)
	require.NoError(t, err)
	assert.Zero(t, written)
	assert.Equal(t, 2, skipped)
}

func TestSearch(t *testing.T) {
	ix := createTestIndex(t)
	ctx := context.Background()
	inv := parse(t, invoice)
	_, err := ix.Add(ctx, inv)
	require.NoError(t, err)

	tests := []struct {
		name       string
		field      pattern.Kind
		text       string
		ignoreCase bool
		want       bool
	}{
		{"body text", pattern.KindBody, "due", false, true},
		{"html stripped", pattern.KindBody, "<b>", false, false},
		{"body case", pattern.KindBody, "AMOUNT", false, false},
		{"body ignore case", pattern.KindBody, "AMOUNT", true, true},
		{"header", pattern.KindHeader, "Invoice 42", false, true},
		{"header not body", pattern.KindHeader, "EUR", false, false},
		{"whole", pattern.KindWholeMessage, "EUR", false, true},
		{"whole header", pattern.KindWholeMessage, "billing@", false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ix.Search(ctx, inv, tt.field, tt.text, tt.ignoreCase)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSearch_Errors(t *testing.T) {
	ix := createTestIndex(t)
	ctx := context.Background()

	_, err := ix.Search(ctx, parse(t, newsletter), pattern.KindBody, "money", false)
	assert.True(t, errors.Is(err, ErrNotIndexed))

	_, err = ix.Search(ctx, parse(t, newsletter), pattern.KindSubject, "money", false)
	require.Error(t, err)
}

func TestMessageIDs(t *testing.T) {
	ix := createTestIndex(t)
	ctx := context.Background()
	_, _, err := ix.AddMailbox(ctx, mailbox.New(parse(t, invoice), parse(t, newsletter)))
	require.NoError(t, err)

	tests := []struct {
		query string
		want  []string
	}{
		{"invoice", []string{"inv42@example.com"}},
		{"example.com", []string{"digest@example.com", "inv42@example.com"}},
		{"money week", []string{"digest@example.com"}},
		{"money invoice", nil},
		{"subject:weekly", []string{"digest@example.com"}},
		{"body:weekly", nil},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			ids, err := ix.MessageIDs(tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids)
		})
	}

	_, err = ix.MessageIDs("   ")
	require.Error(t, err)
}

func TestIndex_DrivesPatterns(t *testing.T) {
	ix := createTestIndex(t)
	ctx := context.Background()
	inv, news := parse(t, invoice), parse(t, newsletter)
	_, _, err := ix.AddMailbox(ctx, mailbox.New(inv, news))
	require.NoError(t, err)

	tree, err := pattern.Compile("=b due | ~I digest", pattern.Options{ServerSearch: true, External: ix})
	require.NoError(t, err)

	e := match.New(match.WithSearcher(ix))
	for _, m := range []*mailbox.Message{inv, news} {
		ok, err := e.Match(ctx, tree, match.Flags{}, m, nil, nil)
		require.NoError(t, err)
		assert.True(t, ok, m.Subject())
	}
}

func TestDigest(t *testing.T) {
	assert.Len(t, Digest([]byte("x")), 64)
	assert.Equal(t, Digest([]byte("x")), Digest([]byte("x")))
	assert.NotEqual(t, Digest([]byte("x")), Digest([]byte("y")))
}
