package cache

import (
	"net/url"
	"strings"
	"testing"
)

func TestRequestKeyer_Deterministic(t *testing.T) {
	k := NewRequestKeyer()

	a := url.Values{}
	a.Set("startDate", "2026-01-01")
	a.Set("endDate", "2026-01-31")

	b := url.Values{}
	b.Set("endDate", "2026-01-31")
	b.Set("startDate", "2026-01-01")

	keyA, err := k.Key("adv", "GET", "/v2/campaigns", a)
	if err != nil {
		t.Fatalf("Key failed: %v", err)
	}
	keyB, err := k.Key("adv", "GET", "/v2/campaigns", b)
	if err != nil {
		t.Fatalf("Key failed: %v", err)
	}
	if keyA != keyB {
		t.Errorf("parameter order changed the key: %q vs %q", keyA, keyB)
	}
}

func TestRequestKeyer_DistinguishesRequests(t *testing.T) {
	k := NewRequestKeyer()

	base, _ := k.Key("adv", "GET", "/v2/campaigns", nil)

	otherMethod, _ := k.Key("adv", "POST", "/v2/campaigns", nil)
	if base == otherMethod {
		t.Error("method should participate in the key")
	}

	otherPath, _ := k.Key("adv", "GET", "/v2/adGroups", nil)
	if base == otherPath {
		t.Error("path should participate in the key")
	}

	query := url.Values{}
	query.Set("stateFilter", "enabled")
	otherQuery, _ := k.Key("adv", "GET", "/v2/campaigns", query)
	if base == otherQuery {
		t.Error("query should participate in the key")
	}

	otherNS, _ := k.Key("dsp", "GET", "/v2/campaigns", nil)
	if base == otherNS {
		t.Error("namespace should participate in the key")
	}
}

func TestRequestKeyer_PrefixCoversCollectionAndItems(t *testing.T) {
	k := NewRequestKeyer()

	listKey, _ := k.Key("adv", "GET", "/v2/campaigns", nil)
	itemKey, _ := k.Key("adv", "GET", "/v2/campaigns/1234", nil)
	prefix := k.Prefix("adv", "/v2/campaigns")

	if !strings.HasPrefix(listKey, prefix) {
		t.Errorf("list key %q not covered by prefix %q", listKey, prefix)
	}
	if !strings.HasPrefix(itemKey, prefix) {
		t.Errorf("item key %q not covered by prefix %q", itemKey, prefix)
	}

	unrelated, _ := k.Key("adv", "GET", "/v2/adGroups", nil)
	if strings.HasPrefix(unrelated, prefix) {
		t.Errorf("unrelated key %q should not match prefix %q", unrelated, prefix)
	}
}

func TestRequestKeyer_RejectsEmptyParts(t *testing.T) {
	k := NewRequestKeyer()

	if _, err := k.Key("", "GET", "/v2/campaigns", nil); err != ErrInvalidKey {
		t.Errorf("Key with empty namespace = %v, want ErrInvalidKey", err)
	}
	if _, err := k.Key("adv", "GET", "", nil); err != ErrInvalidKey {
		t.Errorf("Key with empty path = %v, want ErrInvalidKey", err)
	}
}

func TestCanonicalQuery_MultiValue(t *testing.T) {
	a := url.Values{"id": {"3", "1", "2"}}
	b := url.Values{"id": {"1", "2", "3"}}

	if canonicalQuery(a) != canonicalQuery(b) {
		t.Errorf("value order changed serialization: %q vs %q", canonicalQuery(a), canonicalQuery(b))
	}
	if got, want := canonicalQuery(b), "id=1&id=2&id=3"; got != want {
		t.Errorf("canonicalQuery = %q, want %q", got, want)
	}
}
