package journal

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/matryer/is"

	"github.com/chriscow/eco-go/pkg/advice"
	"github.com/chriscow/eco-go/pkg/live"
)

func openTest(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(filepath.Join(t.TempDir(), "sub", "journal.db"), nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { j.Close() })
	return j
}

func verdict(label string, announce bool) live.Verdict {
	return live.Verdict{
		SessionID: "s1",
		At:        time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		StabilityEvent: live.StabilityEvent{
			Label:          label,
			Confidence:     0.9,
			Count:          3,
			ShouldAnnounce: announce,
		},
		Spoken:     "This is " + label + ".",
		Dispatched: true,
	}
}

func TestAppendAndRecent(t *testing.T) {
	is := is.New(t)
	j := openTest(t)
	ctx := context.Background()

	id, err := j.Append(ctx, VerdictEntry(verdict("Organic", true)))
	is.NoErr(err)
	is.Equal(id, int64(1))

	is.NoErr(j.RecordAnswer(ctx, "s1", advice.Answer{
		Question: "where do cans go",
		Text:     "Cans go in the recycling bin.",
		Source:   advice.SourceKeyword,
		Spoken:   true,
	}))

	entries, err := j.Recent(ctx, 10)
	is.NoErr(err)
	is.Equal(len(entries), 2)

	is.Equal(entries[0].Kind, KindAnswer) // newest first
	is.Equal(entries[0].Detail, "where do cans go")
	is.Equal(entries[0].Source, advice.SourceKeyword)
	is.True(entries[0].Spoken)

	is.Equal(entries[1].Kind, KindVerdict)
	is.Equal(entries[1].Label, "Organic")
	is.Equal(entries[1].Confidence, 0.9)
	is.True(entries[1].At.Equal(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)))

	limited, err := j.Recent(ctx, 1)
	is.NoErr(err)
	is.Equal(len(limited), 1)
}

func TestAppendRequiresKind(t *testing.T) {
	is := is.New(t)
	j := openTest(t)
	_, err := j.Append(context.Background(), Entry{Text: "x"})
	is.True(err != nil)
}

func TestObserveAndRun(t *testing.T) {
	is := is.New(t)
	j := openTest(t)

	j.Observe(verdict("Organic", false)) // not announced, ignored
	j.Observe(verdict("Organic", true))
	j.Observe(verdict("Inorganic", true))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	is.NoErr(j.Run(ctx)) // drains on shutdown

	entries, err := j.Session(context.Background(), "s1")
	is.NoErr(err)
	is.Equal(len(entries), 2)
	is.Equal(entries[0].Label, "Organic")
	is.Equal(entries[1].Label, "Inorganic")
}

func TestObserveDropsWhenFull(t *testing.T) {
	is := is.New(t)
	j := openTest(t)
	for i := 0; i < queueSize+5; i++ {
		j.Observe(verdict("Organic", true))
	}
	is.Equal(len(j.queue), queueSize)
}

func TestReopenKeepsEntries(t *testing.T) {
	is := is.New(t)
	path := filepath.Join(t.TempDir(), "journal.db")

	j, err := Open(path, nil)
	is.NoErr(err)
	_, err = j.Append(context.Background(), VerdictEntry(verdict("Organic", true)))
	is.NoErr(err)
	is.NoErr(j.Close())
	is.NoErr(j.Close()) // idempotent

	_, err = j.Recent(context.Background(), 1)
	is.Equal(err, ErrClosed)

	j, err = Open(path, nil)
	is.NoErr(err)
	defer j.Close()
	entries, err := j.Recent(context.Background(), 10)
	is.NoErr(err)
	is.Equal(len(entries), 1)
}
