package safety

import (
	"math"
	"testing"
)

func TestScore_CleanText(t *testing.T) {
	c := &Checker{Floor: 0.5}
	if got := c.Score("new sneaker drop breaks resale records"); got != 1.0 {
		t.Fatalf("score=%.2f want 1.0 for clean text", got)
	}
}

func TestScore_GroupDeductsOnce(t *testing.T) {
	c := &Checker{Floor: 0.5}
	one := c.Score("shooting reported downtown")
	many := c.Score("shooting attack violence reported downtown")
	if one != many {
		t.Fatalf("multiple hits in one group deducted more than once: %.2f vs %.2f", one, many)
	}
	if math.Abs(one-0.6) > 1e-9 {
		t.Fatalf("score=%.2f want 0.6 after the violence deduction", one)
	}
}

func TestScore_DeductionsStack(t *testing.T) {
	c := &Checker{Floor: 0.5}
	got := c.Score("fatal crash leads to lawsuit")
	// death 0.3 + disaster 0.2 + scandal 0.2
	if math.Abs(got-0.3) > 1e-9 {
		t.Fatalf("score=%.2f want 0.3 with three groups hit", got)
	}
}

func TestScore_WholeTokenMatching(t *testing.T) {
	c := &Checker{Floor: 0.5}
	if got := c.Score("deadline for skill assessment attacks nothing"); got < 1.0 {
		// "deadline" must not trip "dead", "skill" must not trip any
		// violence keyword, but "attacks" is a distinct token too.
		t.Fatalf("score=%.2f, substring matched inside a longer token", got)
	}
}

func TestScore_MultiWordKeyword(t *testing.T) {
	c := &Checker{Floor: 0.5}
	if got := c.Score("suspected hate crime under investigation"); got != 0.5 {
		t.Fatalf("score=%.2f want 0.5 for a phrase keyword", got)
	}
}

func TestScore_FloorsAtZero(t *testing.T) {
	c := &Checker{Floor: 0.5}
	got := c.Score("explicit nazi terrorist fentanyl scandal death crash")
	if got != 0 {
		t.Fatalf("score=%.2f want 0", got)
	}
}

func TestIsSafe(t *testing.T) {
	c := &Checker{Floor: 0.5}
	if !c.IsSafe("viral dance challenge") {
		t.Fatalf("clean topic marked unsafe")
	}
	if c.IsSafe("death and fraud after the crash") {
		t.Fatalf("score 0.3 still marked safe")
	}

	strict := &Checker{Floor: 0.9}
	if strict.IsSafe("minor scandal brewing") {
		t.Fatalf("0.8 passed a 0.9 floor")
	}
}
