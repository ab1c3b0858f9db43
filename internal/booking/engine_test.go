package booking

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/solenne-institute/booking/internal/model"
)

func TestCandidatesFromLinksIntersection(t *testing.T) {
	services := map[string]model.Service{
		"cut":   {ID: "cut", BasePriceCents: 3000},
		"color": {ID: "color", BasePriceCents: 9000},
	}
	links := []model.ServiceLink{
		{ServiceID: "cut", PractitionerID: "alice"},
		{ServiceID: "color", PractitionerID: "alice"},
		{ServiceID: "cut", PractitionerID: "bob"},
	}

	candidates, prices := candidatesFromLinks([]string{"cut", "color"}, services, links)
	if len(candidates) != 1 || candidates[0] != "alice" {
		t.Fatalf("candidates = %v, want [alice]", candidates)
	}
	if got := prices["alice"]["cut"]; got != 3000 {
		t.Fatalf("alice cut price = %d, want 3000", got)
	}
	if got := prices["alice"]["color"]; got != 9000 {
		t.Fatalf("alice color price = %d, want 9000", got)
	}
	if _, ok := prices["bob"]; ok {
		t.Fatalf("bob should be excluded, missing a link for color")
	}
}

func TestCandidatesFromLinksAppliesLinkPricing(t *testing.T) {
	override := int64(2500)
	pct := 50
	services := map[string]model.Service{
		"cut": {ID: "cut", BasePriceCents: 3000},
	}
	links := []model.ServiceLink{
		{ServiceID: "cut", PractitionerID: "alice", PriceCentsOverride: &override},
		{ServiceID: "cut", PractitionerID: "bob", DiscountPercent: &pct},
	}

	candidates, prices := candidatesFromLinks([]string{"cut"}, services, links)
	if len(candidates) != 2 {
		t.Fatalf("candidates = %v, want two", candidates)
	}
	if got := prices["alice"]["cut"]; got != 2500 {
		t.Fatalf("override price = %d, want 2500", got)
	}
	if got := prices["bob"]["cut"]; got != 1500 {
		t.Fatalf("discounted price = %d, want 1500", got)
	}
}

func TestCandidatesFromLinksIgnoresUnknownService(t *testing.T) {
	services := map[string]model.Service{
		"cut": {ID: "cut", BasePriceCents: 3000},
	}
	links := []model.ServiceLink{
		{ServiceID: "cut", PractitionerID: "alice"},
		{ServiceID: "ghost", PractitionerID: "alice"},
	}
	candidates, prices := candidatesFromLinks([]string{"cut"}, services, links)
	if len(candidates) != 1 {
		t.Fatalf("candidates = %v, want [alice]", candidates)
	}
	if len(prices["alice"]) != 1 {
		t.Fatalf("prices for alice = %v, ghost link should be dropped", prices["alice"])
	}
}

func TestClassifyMapsSerializationFailures(t *testing.T) {
	e := &Engine{}

	for _, code := range []string{"40001", "40P01", "23P01"} {
		err := e.classify(&pgconn.PgError{Code: code})
		if !errors.Is(err, ErrSlotConflict) {
			t.Fatalf("code %s: got %v, want ErrSlotConflict", code, err)
		}
	}

	// Losing an insert race on a unique index is retryable, never an
	// identity conflict.
	err := e.classify(&pgconn.PgError{Code: "23505"})
	if !errors.Is(err, ErrSlotConflict) {
		t.Fatalf("code 23505: got %v, want ErrSlotConflict", err)
	}
	if errors.Is(err, ErrIdentityConflict) {
		t.Fatalf("code 23505 must not surface as identity conflict")
	}

	plain := errors.New("connection reset")
	if got := e.classify(plain); !errors.Is(got, plain) {
		t.Fatalf("unrelated error rewritten: %v", got)
	}
}

func TestServiceSummaryPreservesRequestOrder(t *testing.T) {
	services := map[string]model.Service{
		"a": {ID: "a", Name: "Deep Cleanse"},
		"b": {ID: "b", Name: "Scalp Massage"},
	}
	got := serviceSummary([]string{"b", "a"}, services)
	if got != "Scalp Massage, Deep Cleanse" {
		t.Fatalf("summary = %q", got)
	}
}

func TestNormalizeEmail(t *testing.T) {
	if got := NormalizeEmail("  Mia.Laurent@Example.COM "); got != "mia.laurent@example.com" {
		t.Fatalf("got %q", got)
	}
	if got := NormalizeEmail("   "); got != "" {
		t.Fatalf("blank input should normalize to empty, got %q", got)
	}
}

func TestNormalizePhone(t *testing.T) {
	cases := map[string]string{
		"+33 6 12 34 56 78": "+33612345678",
		"(06) 12-34-56-78":  "0612345678",
		"06.12.34.56.78":    "0612345678",
		"":                  "",
	}
	for in, want := range cases {
		if got := NormalizePhone(in); got != want {
			t.Fatalf("NormalizePhone(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestIsInvalidInput(t *testing.T) {
	err := invalidInput("bad field %s", "email")
	if !IsInvalidInput(err) {
		t.Fatalf("expected invalid input classification")
	}
	if IsInvalidInput(ErrSlotConflict) {
		t.Fatalf("slot conflict is not invalid input")
	}
	if err.Error() != "invalid input: bad field email" {
		t.Fatalf("message = %q", err.Error())
	}
}
