package classify

import (
	"testing"

	"github.com/matryer/is"
)

func TestResultRanked(t *testing.T) {
	is := is.New(t)
	r := Result{
		{Label: "Organic", Confidence: 0.2},
		{Label: "Inorganic", Confidence: 0.7},
		{Label: "NoWaste", Confidence: 0.1},
	}

	ranked := r.Ranked()
	is.Equal(ranked[0].Label, "Inorganic")
	is.Equal(ranked[2].Label, "NoWaste")
	is.Equal(r[0].Label, "Organic") // original order must be untouched
}

func TestResultRanked_StableOnTies(t *testing.T) {
	is := is.New(t)
	r := Result{{Label: "A", Confidence: 0.5}, {Label: "B", Confidence: 0.5}}
	is.Equal(r.Ranked()[0].Label, "A")
}

func TestResultTop(t *testing.T) {
	is := is.New(t)

	_, ok := Result{}.Top()
	is.True(!ok) // empty result has no top

	top, ok := Result{{Label: "", Confidence: 0.99}, {Label: "Organic", Confidence: 0.6}}.Top()
	is.True(ok)
	is.Equal(top.Label, "Organic") // empty labels are never a verdict
}

func TestResultAbove(t *testing.T) {
	is := is.New(t)
	r := Result{{Label: "A", Confidence: 0.4}, {Label: "B", Confidence: 0.8}, {Label: "C", Confidence: 0.5}}

	above := r.Above(0.5)
	is.Equal(len(above), 2)
	is.Equal(above[0].Label, "B")
	is.Equal(above[1].Label, "C")
}
